// Package agent holds the category-specific planners and the registry that
// resolves a classified category to one of them. Agents are a closed set
// behind a single capability interface: parameters in, one serializable
// Action out. No agent executes anything; the only side effect allowed
// during planning is the read-only target lookup.
package agent

import (
	"context"
	"strconv"

	"github.com/ai-Ev1lC0rP/proxmox-ai/pkg/contracts"
	"github.com/ai-Ev1lC0rP/proxmox-ai/pkg/proxmox"
)

// Lookuper is the slice of the infrastructure service agents may touch
// while planning.
type Lookuper interface {
	Lookup(ctx context.Context, target contracts.Target) (*proxmox.ResourceDescriptor, error)
}

// Agent plans an Action from extracted parameters and can render an Action
// back into text for confirmation prompts.
type Agent interface {
	Plan(ctx context.Context, params map[string]string) (contracts.Action, error)
	Describe(action contracts.Action) string
}

// Registry maps categories to agents.
type Registry struct {
	agents map[contracts.Category]Agent
}

// NewRegistry builds the full closed set of agents over the given lookup
// capability.
func NewRegistry(lookup Lookuper) *Registry {
	r := &Registry{agents: make(map[contracts.Category]Agent)}
	r.register(contracts.CategoryVM, &guestAgent{category: contracts.CategoryVM, lookup: lookup})
	r.register(contracts.CategoryContainer, &guestAgent{category: contracts.CategoryContainer, lookup: lookup})
	r.register(contracts.CategoryStorage, &storageAgent{})
	r.register(contracts.CategoryCluster, &clusterAgent{})
	r.register(contracts.CategoryBackup, &backupAgent{lookup: lookup})
	r.register(contracts.CategoryMonitoring, &monitoringAgent{})
	r.register(contracts.CategoryAccess, &accessAgent{})
	r.register(contracts.CategoryFirewall, &firewallAgent{})
	r.register(contracts.CategoryAPI, &apiAgent{})
	return r
}

func (r *Registry) register(c contracts.Category, a Agent) {
	r.agents[c] = a
}

// Resolve returns the agent for a category. The category may come from the
// caller's explicit override, so arbitrary strings must fail cleanly with
// UnknownCategoryError.
func (r *Registry) Resolve(category contracts.Category) (Agent, error) {
	a, ok := r.agents[category]
	if !ok {
		return nil, &contracts.UnknownCategoryError{Category: string(category)}
	}
	return a, nil
}

// newAction is the single construction point for Actions: risk is derived
// here and nowhere else.
func newAction(category contracts.Category, op contracts.Operation, target contracts.Target, payload map[string]any) contracts.Action {
	return contracts.Action{
		Category:  category,
		Operation: op,
		Target:    target,
		Payload:   payload,
		RiskLevel: contracts.RiskFor(op),
	}
}

// operationFromParams reads the extracted operation hint, defaulting to read.
func operationFromParams(params map[string]string) contracts.Operation {
	if op := params["operation"]; op != "" {
		return contracts.Operation(op)
	}
	return contracts.OpRead
}

// numericResourceID validates that the extracted resource id is a PVE vmid.
func numericResourceID(params map[string]string) (string, error) {
	id := params["resource_id"]
	if id == "" {
		return "", &contracts.MissingParameterError{Name: "resource_id"}
	}
	if _, err := strconv.Atoi(id); err != nil {
		return "", &contracts.InvalidParameterError{Name: "resource_id", Reason: "must be a numeric vmid"}
	}
	return id, nil
}

// applyAutomation flags the action for the Ansible runner when the
// instruction named a playbook.
func applyAutomation(action *contracts.Action, params map[string]string) {
	if pb := params["playbook"]; pb != "" {
		action.ViaAutomation = true
		action.PlaybookID = pb
	}
}

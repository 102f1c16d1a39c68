package agent

import (
	"context"
	"fmt"

	"github.com/ai-Ev1lC0rP/proxmox-ai/pkg/contracts"
)

// storageAgent plans storage pool actions. Storage ids are names, not
// vmids, so no numeric validation and no guest lookup.
type storageAgent struct{}

func (a *storageAgent) Plan(ctx context.Context, params map[string]string) (contracts.Action, error) {
	op := operationFromParams(params)
	target := contracts.Target{Node: params["node"], ResourceID: params["storage"]}

	switch op {
	case contracts.OpRead:
		// fine with or without a specific pool
	case contracts.OpCreate, contracts.OpModify, contracts.OpDelete:
		if target.ResourceID == "" {
			return contracts.Action{}, &contracts.MissingParameterError{Name: "storage"}
		}
	default:
		return contracts.Action{}, &contracts.InvalidParameterError{
			Name: "operation", Reason: fmt.Sprintf("storage does not support %q", op),
		}
	}

	action := newAction(contracts.CategoryStorage, op, target, nil)
	applyAutomation(&action, params)
	return action, nil
}

func (a *storageAgent) Describe(action contracts.Action) string {
	if action.Target.ResourceID == "" {
		return "list storage pools"
	}
	return fmt.Sprintf("%s storage pool %s", action.Operation, action.Target.ResourceID)
}

// clusterAgent answers cluster-level questions. Mutating the cluster
// topology through free text is out of bounds; only reads plan, unless the
// instruction routes through a named Ansible playbook.
type clusterAgent struct{}

func (a *clusterAgent) Plan(ctx context.Context, params map[string]string) (contracts.Action, error) {
	op := operationFromParams(params)
	if op != contracts.OpRead && params["playbook"] == "" {
		return contracts.Action{}, &contracts.InvalidParameterError{
			Name: "operation", Reason: "cluster changes require an explicit playbook",
		}
	}
	action := newAction(contracts.CategoryCluster, op, contracts.Target{Node: params["node"]}, nil)
	applyAutomation(&action, params)
	return action, nil
}

func (a *clusterAgent) Describe(action contracts.Action) string {
	if action.ViaAutomation {
		return fmt.Sprintf("run playbook %s against the cluster", action.PlaybookID)
	}
	return "report cluster status"
}

// monitoringAgent is read-only by construction.
type monitoringAgent struct{}

func (a *monitoringAgent) Plan(ctx context.Context, params map[string]string) (contracts.Action, error) {
	op := operationFromParams(params)
	if op != contracts.OpRead {
		return contracts.Action{}, &contracts.InvalidParameterError{
			Name: "operation", Reason: "monitoring is read-only",
		}
	}
	return newAction(contracts.CategoryMonitoring, contracts.OpRead, contracts.Target{Node: params["node"]}, nil), nil
}

func (a *monitoringAgent) Describe(action contracts.Action) string {
	if action.Target.Node != "" {
		return "report resource usage for node " + action.Target.Node
	}
	return "report resource usage across the cluster"
}

package agent

import (
	"context"
	"fmt"

	"github.com/ai-Ev1lC0rP/proxmox-ai/pkg/contracts"
)

// guestAgent plans VM and container actions; the two categories share every
// rule except the API path, which the executor derives from the category.
type guestAgent struct {
	category contracts.Category
	lookup   Lookuper
}

func (a *guestAgent) Plan(ctx context.Context, params map[string]string) (contracts.Action, error) {
	op := operationFromParams(params)
	target := contracts.Target{Node: params["node"]}

	payload := map[string]any{}
	if f := params["status_filter"]; f != "" {
		payload["status_filter"] = f
	}

	switch op {
	case contracts.OpRead:
		// Listing needs no target; a specific read does.
		if id := params["resource_id"]; id != "" {
			resolved, err := a.resolveTarget(ctx, contracts.Target{Node: target.Node, ResourceID: id})
			if err != nil {
				return contracts.Action{}, err
			}
			target = resolved
		}

	case contracts.OpCreate:
		// A new guest has no existing target to look up, but it must land
		// on a named node.
		if target.Node == "" {
			return contracts.Action{}, &contracts.MissingParameterError{Name: "node"}
		}
		if id := params["resource_id"]; id != "" {
			target.ResourceID = id
		}

	case contracts.OpStart, contracts.OpStop, contracts.OpRestart, contracts.OpDelete, contracts.OpModify:
		id, err := numericResourceID(params)
		if err != nil {
			return contracts.Action{}, err
		}
		resolved, err := a.resolveTarget(ctx, contracts.Target{Node: target.Node, ResourceID: id})
		if err != nil {
			return contracts.Action{}, err
		}
		target = resolved

	default:
		return contracts.Action{}, &contracts.InvalidParameterError{
			Name: "operation", Reason: fmt.Sprintf("unsupported operation %q", op),
		}
	}

	if len(payload) == 0 {
		payload = nil
	}
	action := newAction(a.category, op, target, payload)
	applyAutomation(&action, params)
	return action, nil
}

// resolveTarget confirms the guest exists and fills in the node when the
// instruction did not name one.
func (a *guestAgent) resolveTarget(ctx context.Context, target contracts.Target) (contracts.Target, error) {
	desc, err := a.lookup.Lookup(ctx, target)
	if err != nil {
		return contracts.Target{}, err
	}
	return contracts.Target{Node: desc.Node, ResourceID: desc.ID}, nil
}

func (a *guestAgent) Describe(action contracts.Action) string {
	noun := "VM"
	if a.category == contracts.CategoryContainer {
		noun = "container"
	}
	if action.Operation == contracts.OpRead && action.Target.ResourceID == "" {
		return fmt.Sprintf("list %ss across the cluster", noun)
	}
	return fmt.Sprintf("%s %s %s", action.Operation, noun, action.Target.ResourceID)
}

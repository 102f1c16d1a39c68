package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/ai-Ev1lC0rP/proxmox-ai/pkg/contracts"
)

// accessAgent plans user and permission actions. User ids must carry a
// realm ("name@pve", "name@pam"); the API rejects bare names anyway, so we
// fail them early with a reason the caller can act on.
type accessAgent struct{}

func (a *accessAgent) Plan(ctx context.Context, params map[string]string) (contracts.Action, error) {
	op := operationFromParams(params)
	user := params["user"]

	switch op {
	case contracts.OpRead:
		return newAction(contracts.CategoryAccess, op, contracts.Target{}, nil), nil
	case contracts.OpCreate, contracts.OpModify, contracts.OpDelete:
		if user == "" {
			return contracts.Action{}, &contracts.MissingParameterError{Name: "user"}
		}
		if !strings.Contains(user, "@") {
			return contracts.Action{}, &contracts.InvalidParameterError{
				Name: "user", Reason: "must include a realm, e.g. alice@pve",
			}
		}
		var payload map[string]any
		if op == contracts.OpCreate {
			payload = map[string]any{"userid": user}
		}
		return newAction(contracts.CategoryAccess, op, contracts.Target{ResourceID: user}, payload), nil
	}

	return contracts.Action{}, &contracts.InvalidParameterError{
		Name: "operation", Reason: fmt.Sprintf("access does not support %q", op),
	}
}

func (a *accessAgent) Describe(action contracts.Action) string {
	if action.Operation == contracts.OpRead {
		return "list users and permissions"
	}
	return fmt.Sprintf("%s user %s", action.Operation, action.Target.ResourceID)
}

// firewallAgent plans cluster firewall rule actions.
type firewallAgent struct{}

func (a *firewallAgent) Plan(ctx context.Context, params map[string]string) (contracts.Action, error) {
	op := operationFromParams(params)

	switch op {
	case contracts.OpRead:
		return newAction(contracts.CategoryFirewall, op, contracts.Target{}, nil), nil
	case contracts.OpCreate:
		return newAction(contracts.CategoryFirewall, op, contracts.Target{}, map[string]any{
			"action": "ACCEPT",
			"type":   "in",
		}), nil
	case contracts.OpDelete:
		// Rules are addressed by position in the PVE API.
		pos := params["resource_id"]
		if pos == "" {
			return contracts.Action{}, &contracts.MissingParameterError{Name: "resource_id"}
		}
		return newAction(contracts.CategoryFirewall, op, contracts.Target{ResourceID: pos}, nil), nil
	}

	return contracts.Action{}, &contracts.InvalidParameterError{
		Name: "operation", Reason: fmt.Sprintf("firewall does not support %q", op),
	}
}

func (a *firewallAgent) Describe(action contracts.Action) string {
	switch action.Operation {
	case contracts.OpRead:
		return "list firewall rules"
	case contracts.OpDelete:
		return "delete firewall rule at position " + action.Target.ResourceID
	default:
		return fmt.Sprintf("%s firewall rule", action.Operation)
	}
}

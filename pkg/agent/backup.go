package agent

import (
	"context"
	"fmt"

	"github.com/ai-Ev1lC0rP/proxmox-ai/pkg/contracts"
)

// backupAgent plans vzdump backups and backup listings. Creating a backup
// needs the guest's node, so planning resolves the target the same way the
// guest agents do.
type backupAgent struct {
	lookup Lookuper
}

func (a *backupAgent) Plan(ctx context.Context, params map[string]string) (contracts.Action, error) {
	op := operationFromParams(params)

	switch op {
	case contracts.OpRead:
		node := params["node"]
		if node == "" {
			return contracts.Action{}, &contracts.MissingParameterError{Name: "node"}
		}
		payload := map[string]any{}
		if s := params["storage"]; s != "" {
			payload["storage"] = s
		}
		if len(payload) == 0 {
			payload = nil
		}
		return newAction(contracts.CategoryBackup, op, contracts.Target{Node: node}, payload), nil

	case contracts.OpCreate:
		id, err := numericResourceID(params)
		if err != nil {
			return contracts.Action{}, err
		}
		desc, err := a.lookup.Lookup(ctx, contracts.Target{Node: params["node"], ResourceID: id})
		if err != nil {
			return contracts.Action{}, err
		}
		payload := map[string]any{"mode": "snapshot"}
		if s := params["storage"]; s != "" {
			payload["storage"] = s
		}
		action := newAction(contracts.CategoryBackup, op, contracts.Target{Node: desc.Node, ResourceID: desc.ID}, payload)
		applyAutomation(&action, params)
		return action, nil
	}

	return contracts.Action{}, &contracts.InvalidParameterError{
		Name: "operation", Reason: fmt.Sprintf("backup supports listing and creation, not %q", op),
	}
}

func (a *backupAgent) Describe(action contracts.Action) string {
	if action.Operation == contracts.OpRead {
		return "list backups on node " + action.Target.Node
	}
	return fmt.Sprintf("back up guest %s on node %s", action.Target.ResourceID, action.Target.Node)
}

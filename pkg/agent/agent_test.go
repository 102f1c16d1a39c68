package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-Ev1lC0rP/proxmox-ai/pkg/contracts"
	"github.com/ai-Ev1lC0rP/proxmox-ai/pkg/proxmox"
)

// fakeLookup resolves ids from a static map.
type fakeLookup struct {
	guests map[string]proxmox.ResourceDescriptor
	calls  int
}

func (f *fakeLookup) Lookup(ctx context.Context, target contracts.Target) (*proxmox.ResourceDescriptor, error) {
	f.calls++
	if desc, ok := f.guests[target.ResourceID]; ok {
		return &desc, nil
	}
	return nil, &contracts.TargetNotFoundError{ResourceID: target.ResourceID}
}

func testLookup() *fakeLookup {
	return &fakeLookup{guests: map[string]proxmox.ResourceDescriptor{
		"101": {ID: "101", Node: "pve1", Type: "qemu", Name: "web01", Status: "running"},
		"200": {ID: "200", Node: "pve2", Type: "lxc", Name: "cache01", Status: "stopped"},
	}}
}

func TestRegistryResolve(t *testing.T) {
	r := NewRegistry(testLookup())

	for _, c := range contracts.Categories() {
		a, err := r.Resolve(c)
		require.NoError(t, err, c)
		require.NotNil(t, a, c)
	}

	_, err := r.Resolve(contracts.Category("definitely-not-an-agent"))
	var unknown *contracts.UnknownCategoryError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "definitely-not-an-agent", unknown.Category)
}

func TestGuestAgentPlanDelete(t *testing.T) {
	lookup := testLookup()
	a := &guestAgent{category: contracts.CategoryVM, lookup: lookup}

	action, err := a.Plan(context.Background(), map[string]string{
		"operation":   "delete",
		"resource_id": "101",
	})
	require.NoError(t, err)
	assert.Equal(t, contracts.OpDelete, action.Operation)
	assert.Equal(t, contracts.RiskDestructive, action.RiskLevel)
	// Node filled in from the lookup.
	assert.Equal(t, "pve1", action.Target.Node)
	assert.Equal(t, "101", action.Target.ResourceID)
	assert.Equal(t, 1, lookup.calls)
}

func TestGuestAgentPlanListNeedsNoTarget(t *testing.T) {
	lookup := testLookup()
	a := &guestAgent{category: contracts.CategoryVM, lookup: lookup}

	action, err := a.Plan(context.Background(), map[string]string{"operation": "read"})
	require.NoError(t, err)
	assert.Equal(t, contracts.RiskSafe, action.RiskLevel)
	assert.Empty(t, action.Target.ResourceID)
	assert.Zero(t, lookup.calls)
}

func TestGuestAgentPlanErrors(t *testing.T) {
	a := &guestAgent{category: contracts.CategoryVM, lookup: testLookup()}

	_, err := a.Plan(context.Background(), map[string]string{"operation": "stop"})
	var missing *contracts.MissingParameterError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "resource_id", missing.Name)

	_, err = a.Plan(context.Background(), map[string]string{"operation": "stop", "resource_id": "web01"})
	var invalid *contracts.InvalidParameterError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "resource_id", invalid.Name)

	_, err = a.Plan(context.Background(), map[string]string{"operation": "stop", "resource_id": "999"})
	var notFound *contracts.TargetNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "999", notFound.ResourceID)

	_, err = a.Plan(context.Background(), map[string]string{"operation": "create"})
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "node", missing.Name)
}

func TestGuestAgentPlaybookRouting(t *testing.T) {
	a := &guestAgent{category: contracts.CategoryVM, lookup: testLookup()}

	action, err := a.Plan(context.Background(), map[string]string{
		"operation":   "modify",
		"resource_id": "101",
		"playbook":    "vm-resize",
	})
	require.NoError(t, err)
	assert.True(t, action.ViaAutomation)
	assert.Equal(t, "vm-resize", action.PlaybookID)
	// Risk still derives from the operation, not the transport.
	assert.Equal(t, contracts.RiskConfirm, action.RiskLevel)
}

func TestClusterAgentReadOnly(t *testing.T) {
	a := &clusterAgent{}

	action, err := a.Plan(context.Background(), map[string]string{"operation": "read"})
	require.NoError(t, err)
	assert.Equal(t, contracts.RiskSafe, action.RiskLevel)

	_, err = a.Plan(context.Background(), map[string]string{"operation": "delete"})
	var invalid *contracts.InvalidParameterError
	require.ErrorAs(t, err, &invalid)

	// A named playbook is the sanctioned way to change the cluster.
	action, err = a.Plan(context.Background(), map[string]string{"operation": "modify", "playbook": "add-node"})
	require.NoError(t, err)
	assert.True(t, action.ViaAutomation)
}

func TestMonitoringAgentRejectsWrites(t *testing.T) {
	a := &monitoringAgent{}
	_, err := a.Plan(context.Background(), map[string]string{"operation": "modify"})
	var invalid *contracts.InvalidParameterError
	require.ErrorAs(t, err, &invalid)
}

func TestBackupAgentCreateResolvesNode(t *testing.T) {
	a := &backupAgent{lookup: testLookup()}

	action, err := a.Plan(context.Background(), map[string]string{
		"operation":   "create",
		"resource_id": "200",
	})
	require.NoError(t, err)
	assert.Equal(t, "pve2", action.Target.Node)
	assert.Equal(t, contracts.RiskConfirm, action.RiskLevel)
	assert.Equal(t, "snapshot", action.Payload["mode"])
}

func TestAccessAgentRealmValidation(t *testing.T) {
	a := &accessAgent{}

	_, err := a.Plan(context.Background(), map[string]string{"operation": "delete", "user": "alice"})
	var invalid *contracts.InvalidParameterError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "user", invalid.Name)

	action, err := a.Plan(context.Background(), map[string]string{"operation": "delete", "user": "alice@pve"})
	require.NoError(t, err)
	assert.Equal(t, contracts.RiskDestructive, action.RiskLevel)
	assert.Equal(t, "alice@pve", action.Target.ResourceID)
}

func TestAPIAgentDerivesOperationFromMethod(t *testing.T) {
	a := &apiAgent{}

	action, err := a.Plan(context.Background(), map[string]string{
		"text": "DELETE /nodes/pve1/qemu/101",
	})
	require.NoError(t, err)
	assert.Equal(t, contracts.OpDelete, action.Operation)
	assert.Equal(t, contracts.RiskDestructive, action.RiskLevel)
	assert.Equal(t, "/nodes/pve1/qemu/101", action.Payload["path"])

	action, err = a.Plan(context.Background(), map[string]string{
		"text": "call /cluster/status for me",
	})
	require.NoError(t, err)
	assert.Equal(t, contracts.OpRead, action.Operation)

	_, err = a.Plan(context.Background(), map[string]string{"text": "call the api"})
	var missing *contracts.MissingParameterError
	require.ErrorAs(t, err, &missing)
}

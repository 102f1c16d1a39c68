package gate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-Ev1lC0rP/proxmox-ai/pkg/audit"
	"github.com/ai-Ev1lC0rP/proxmox-ai/pkg/contracts"
)

// recordingLogger captures audit events in memory.
type recordingLogger struct {
	events []recordedEvent
}

type recordedEvent struct {
	eventType audit.EventType
	action    string
	resource  string
	metadata  map[string]any
}

func (r *recordingLogger) Record(_ context.Context, t audit.EventType, action, resource, _ string, metadata map[string]any) error {
	r.events = append(r.events, recordedEvent{eventType: t, action: action, resource: resource, metadata: metadata})
	return nil
}

func (r *recordingLogger) ofType(t audit.EventType) []recordedEvent {
	var out []recordedEvent
	for _, e := range r.events {
		if e.eventType == t {
			out = append(out, e)
		}
	}
	return out
}

func actionWithRisk(op contracts.Operation) contracts.Action {
	return contracts.Action{
		Category:  contracts.CategoryVM,
		Operation: op,
		Target:    contracts.Target{Node: "pve1", ResourceID: "101"},
		RiskLevel: contracts.RiskFor(op),
	}
}

func TestAuthorizePolicyTable(t *testing.T) {
	cases := []struct {
		name     string
		op       contracts.Operation
		explicit bool
		want     Verdict
	}{
		{"safe implicit", contracts.OpRead, false, Proceed},
		{"safe explicit", contracts.OpRead, true, Proceed},
		{"confirm implicit", contracts.OpStop, false, RequireConfirmation},
		{"confirm explicit", contracts.OpStop, true, Proceed},
		{"destructive implicit", contracts.OpDelete, false, RequireConfirmation},
		{"destructive explicit", contracts.OpDelete, true, Proceed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g, err := New(nil, nil)
			require.NoError(t, err)

			decision := g.Authorize(context.Background(), actionWithRisk(tc.op), tc.explicit)
			assert.Equal(t, tc.want, decision.Verdict)
			if tc.want == RequireConfirmation {
				assert.Contains(t, decision.Prompt, "101")
				assert.Contains(t, decision.Prompt, string(tc.op))
			}
		})
	}
}

func TestAuthorizeUnknownRiskRejects(t *testing.T) {
	g, err := New(nil, nil)
	require.NoError(t, err)

	action := actionWithRisk(contracts.OpRead)
	action.RiskLevel = contracts.RiskLevel("imaginary")

	decision := g.Authorize(context.Background(), action, true)
	assert.Equal(t, Reject, decision.Verdict)
	assert.Contains(t, decision.Reason, "imaginary")
}

func TestAuthorizeDestructiveAlwaysAudited(t *testing.T) {
	for _, explicit := range []bool{false, true} {
		log := &recordingLogger{}
		g, err := New(log, nil)
		require.NoError(t, err)

		g.Authorize(context.Background(), actionWithRisk(contracts.OpDelete), explicit)

		destructive := log.ofType(audit.EventDestructive)
		require.Len(t, destructive, 1, "explicit=%v", explicit)
		assert.Equal(t, "delete", destructive[0].action)
		assert.Equal(t, "101", destructive[0].resource)
	}
}

func TestAuthorizeDecisionAuditMetadata(t *testing.T) {
	log := &recordingLogger{}
	g, err := New(log, nil)
	require.NoError(t, err)

	g.Authorize(context.Background(), actionWithRisk(contracts.OpStop), true)

	decisions := log.ofType(audit.EventDecision)
	require.Len(t, decisions, 1)
	assert.Equal(t, string(Proceed), decisions[0].metadata["verdict"])
	assert.Equal(t, string(contracts.RiskConfirm), decisions[0].metadata["risk_level"])
	assert.Equal(t, true, decisions[0].metadata["explicit_execute"])
}

func TestDenyRuleTightensProceed(t *testing.T) {
	g, err := New(nil, []string{
		`action.operation == "delete" && action.target.resource_id == "101"`,
	})
	require.NoError(t, err)

	// The rule fires only where the table said Proceed.
	decision := g.Authorize(context.Background(), actionWithRisk(contracts.OpDelete), true)
	assert.Equal(t, Reject, decision.Verdict)
	assert.Contains(t, decision.Reason, "denied by policy rule")

	// Without the explicit flag the table verdict stands untouched.
	decision = g.Authorize(context.Background(), actionWithRisk(contracts.OpDelete), false)
	assert.Equal(t, RequireConfirmation, decision.Verdict)

	// An unrelated action is not denied.
	decision = g.Authorize(context.Background(), actionWithRisk(contracts.OpRead), false)
	assert.Equal(t, Proceed, decision.Verdict)
}

func TestDenyRuleNeverLoosens(t *testing.T) {
	// A rule that evaluates false changes nothing.
	g, err := New(nil, []string{`action.operation == "never-matches"`})
	require.NoError(t, err)

	decision := g.Authorize(context.Background(), actionWithRisk(contracts.OpDelete), false)
	assert.Equal(t, RequireConfirmation, decision.Verdict)
}

func TestBrokenRuleFailsClosed(t *testing.T) {
	// Compiles, but errors at evaluation: the field does not exist.
	g, err := New(nil, []string{`action.no_such_field == "x"`})
	require.NoError(t, err)

	decision := g.Authorize(context.Background(), actionWithRisk(contracts.OpRead), false)
	assert.Equal(t, Reject, decision.Verdict)
	assert.Contains(t, decision.Reason, "policy evaluation failed")
}

func TestCompileRulesRejectsMalformed(t *testing.T) {
	_, err := New(nil, []string{`action.operation ==`})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compile rule")
}

func TestNonBooleanRuleFailsClosed(t *testing.T) {
	g, err := New(nil, []string{`action.operation`})
	require.NoError(t, err)

	decision := g.Authorize(context.Background(), actionWithRisk(contracts.OpRead), false)
	assert.Equal(t, Reject, decision.Verdict)
}

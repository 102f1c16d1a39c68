// Package gate decides whether a planned Action proceeds, needs human
// confirmation, or is rejected. The decision is a total deterministic
// function of the action's risk level and the caller's explicit-execute
// flag; operator deny rules can tighten it, never loosen it.
package gate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ai-Ev1lC0rP/proxmox-ai/pkg/audit"
	"github.com/ai-Ev1lC0rP/proxmox-ai/pkg/contracts"
)

// Verdict is the gate's three-way outcome.
type Verdict string

const (
	Proceed             Verdict = "proceed"
	RequireConfirmation Verdict = "require_confirmation"
	Reject              Verdict = "reject"
)

// Decision carries the verdict and its user-facing text. Prompt is set for
// confirmation verdicts, Reason for rejections; both embed the action
// summary so the caller can decide with full context.
type Decision struct {
	Verdict Verdict `json:"verdict"`
	Prompt  string  `json:"prompt,omitempty"`
	Reason  string  `json:"reason,omitempty"`
}

// Gate authorizes Actions.
type Gate struct {
	auditLog audit.Logger
	rules    *RuleSet
}

// New creates a Gate. auditLog may be nil (events are dropped); denyRules
// are CEL expressions compiled once at construction.
func New(auditLog audit.Logger, denyRules []string) (*Gate, error) {
	if auditLog == nil {
		auditLog = audit.Nop{}
	}
	rules, err := CompileRules(denyRules)
	if err != nil {
		return nil, err
	}
	return &Gate{auditLog: auditLog, rules: rules}, nil
}

// Authorize applies the policy table:
//
//	risk        | execute=false        | execute=true
//	safe        | Proceed              | Proceed
//	confirm     | RequireConfirmation  | Proceed
//	destructive | RequireConfirmation  | Proceed
//
// Risk is never re-derived or downgraded here; the gate consumes the level
// the planner assigned. Destructive actions always emit an audit summary of
// the target before any execution path is taken, explicit flag or not.
func (g *Gate) Authorize(ctx context.Context, action contracts.Action, explicitExecute bool) Decision {
	summary := action.Summary()

	if action.RiskLevel == contracts.RiskDestructive {
		// Audit record, not a blocking step.
		_ = g.auditLog.Record(ctx, audit.EventDestructive,
			string(action.Operation), action.Target.ResourceID, summary, nil)
	}

	var decision Decision
	switch action.RiskLevel {
	case contracts.RiskSafe:
		decision = Decision{Verdict: Proceed}
	case contracts.RiskConfirm, contracts.RiskDestructive:
		if explicitExecute {
			decision = Decision{Verdict: Proceed}
		} else {
			decision = Decision{
				Verdict: RequireConfirmation,
				Prompt:  fmt.Sprintf("confirm before executing: %s", summary),
			}
		}
	default:
		// Unknown risk levels fail closed.
		decision = Decision{Verdict: Reject, Reason: fmt.Sprintf("unknown risk level %q for %s", action.RiskLevel, summary)}
	}

	// Deny rules are consulted only where the table already said Proceed.
	if decision.Verdict == Proceed && g.rules.Len() > 0 {
		denied, rule, err := g.rules.Denies(action)
		switch {
		case err != nil:
			// A broken rule must not open the gate.
			decision = Decision{Verdict: Reject, Reason: fmt.Sprintf("policy evaluation failed for %s: %v", summary, err)}
		case denied:
			decision = Decision{Verdict: Reject, Reason: fmt.Sprintf("denied by policy rule %q: %s", rule, summary)}
		}
	}

	_ = g.auditLog.Record(ctx, audit.EventDecision,
		string(action.Operation), action.Target.ResourceID, summary, map[string]any{
			"verdict":          string(decision.Verdict),
			"risk_level":       string(action.RiskLevel),
			"explicit_execute": explicitExecute,
		})

	return decision
}

// actionInput converts an Action into the CEL evaluation input through its
// JSON form, so rules address the same field names callers see in logs.
func actionInput(action contracts.Action) (map[string]any, error) {
	raw, err := json.Marshal(action)
	if err != nil {
		return nil, fmt.Errorf("gate: marshal action: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("gate: unmarshal action: %w", err)
	}
	return m, nil
}

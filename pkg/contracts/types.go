// Package contracts defines the shared data model of the dispatch core:
// instructions, intents, actions and execution results. Everything here is
// a plain serializable value; no component in this package talks to the
// network or holds state.
package contracts

import (
	"fmt"
	"time"
)

// Category identifies which agent a classified instruction is routed to.
type Category string

const (
	CategoryVM         Category = "vm"
	CategoryContainer  Category = "container"
	CategoryStorage    Category = "storage"
	CategoryCluster    Category = "cluster"
	CategoryBackup     Category = "backup"
	CategoryMonitoring Category = "monitoring"
	CategoryAccess     Category = "access"
	CategoryFirewall   Category = "firewall"
	CategoryAPI        Category = "api"

	// CategoryClarification is the pseudo-category returned when the
	// classifier's confidence is below the configured threshold. It has no
	// agent; the dispatcher turns it into a question back to the caller.
	CategoryClarification Category = "clarification_needed"
)

// Categories returns the closed routing enum, in the order embedded into the
// classification prompt. CategoryClarification is deliberately absent: the
// model must never be offered it as a choice.
func Categories() []Category {
	return []Category{
		CategoryVM, CategoryContainer, CategoryStorage, CategoryCluster,
		CategoryBackup, CategoryMonitoring, CategoryAccess, CategoryFirewall,
		CategoryAPI,
	}
}

// Valid reports whether c is a routable category (clarification excluded).
func (c Category) Valid() bool {
	for _, k := range Categories() {
		if c == k {
			return true
		}
	}
	return false
}

// Operation is the kind of change an Action proposes.
type Operation string

const (
	OpRead    Operation = "read"
	OpCreate  Operation = "create"
	OpStart   Operation = "start"
	OpStop    Operation = "stop"
	OpRestart Operation = "restart"
	OpDelete  Operation = "delete"
	OpModify  Operation = "modify"
)

// RiskLevel drives the execution gate's policy table.
type RiskLevel string

const (
	RiskSafe        RiskLevel = "safe"
	RiskConfirm     RiskLevel = "confirm"
	RiskDestructive RiskLevel = "destructive"
)

// RiskFor derives the risk level of an operation. It is a pure total
// function: every operation maps to exactly one level, and agents must not
// assign risk any other way. Unknown operations rank destructive so that a
// malformed Action can never slip past the gate as safe.
func RiskFor(op Operation) RiskLevel {
	switch op {
	case OpRead:
		return RiskSafe
	case OpCreate, OpStart, OpStop, OpRestart, OpModify:
		return RiskConfirm
	case OpDelete:
		return RiskDestructive
	default:
		return RiskDestructive
	}
}

// Instruction is one raw request from the caller. Immutable once received;
// the dispatcher owns it for the duration of a single Handle call.
type Instruction struct {
	Text string `json:"text"`

	// ExplicitExecute is set by the caller (a CLI flag, an API field),
	// never inferred from the instruction text.
	ExplicitExecute bool `json:"explicit_execute"`

	// AgentOverride skips classification and routes straight to the named
	// category. Arbitrary strings are allowed here and must fail cleanly.
	AgentOverride string `json:"agent_override,omitempty"`
}

// Intent is the classifier's verdict on one Instruction.
type Intent struct {
	Category   Category          `json:"category"`
	Parameters map[string]string `json:"parameters,omitempty"`
	Confidence float64           `json:"confidence"`

	// Fallback marks intents produced by the keyword heuristic after the
	// completion service was unavailable.
	Fallback bool `json:"fallback,omitempty"`
}

// Target names the resource an Action operates on.
type Target struct {
	Node       string `json:"node,omitempty"`
	ResourceID string `json:"resource_id,omitempty"`
}

// Action is a serializable description of a proposed infrastructure
// operation. It is created exactly once by an agent's Plan and consumed
// exactly once by the execution gate; it round-trips through JSON unchanged
// so it can be logged, audited and replayed to the caller verbatim.
type Action struct {
	Category  Category       `json:"category"`
	Operation Operation      `json:"operation"`
	Target    Target         `json:"target"`
	Payload   map[string]any `json:"payload,omitempty"`
	RiskLevel RiskLevel      `json:"risk_level"`

	// ViaAutomation routes execution through the Ansible runner instead of
	// the direct Proxmox API call.
	ViaAutomation bool   `json:"via_automation,omitempty"`
	PlaybookID    string `json:"playbook_id,omitempty"`
}

// Summary renders the action for humans: confirmation prompts, rejection
// reasons and audit records all embed it so the operator always sees the
// operation, the target and the risk before deciding.
func (a Action) Summary() string {
	target := a.Target.ResourceID
	if target == "" {
		target = "all"
	}
	s := fmt.Sprintf("%s %s %s", a.Operation, a.Category, target)
	if a.Target.Node != "" {
		s += " on node " + a.Target.Node
	}
	if a.ViaAutomation {
		s += fmt.Sprintf(" via playbook %s", a.PlaybookID)
	}
	return fmt.Sprintf("%s (risk: %s)", s, a.RiskLevel)
}

// Status is the terminal outcome of one dispatched instruction.
type Status string

const (
	StatusExecuted          Status = "executed"
	StatusNeedsConfirmation Status = "needs_confirmation"
	StatusRejected          Status = "rejected"
	StatusFailed            Status = "failed"
)

// ExecutionResult is the single value returned to the caller. The core does
// not persist it; history recording is the collaborators' concern.
type ExecutionResult struct {
	Status Status `json:"status"`
	Detail string `json:"detail"`

	// Action carries the planned action when one was produced, so callers
	// can re-submit it after a confirmation round-trip.
	Action *Action `json:"action,omitempty"`

	RawResponse map[string]any `json:"raw_response,omitempty"`
	CompletedAt time.Time      `json:"completed_at"`
}

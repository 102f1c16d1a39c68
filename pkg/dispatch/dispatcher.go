// Package dispatch wires classifier, agents, gate and remote collaborators
// into the single entry point of the core: Handle, one Instruction in, one
// ExecutionResult out. Per request the flow is Received → Classified →
// Planned → Authorized → {Executed | NeedsConfirmation | Rejected | Failed};
// all four right-hand states are terminal and nothing retries across stages.
//
// Handle never lets an error escape. Every failure below it is translated
// into a failed ExecutionResult whose detail names the originating error
// kind and retains the instruction text, so callers can audit and retry.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ai-Ev1lC0rP/proxmox-ai/pkg/agent"
	"github.com/ai-Ev1lC0rP/proxmox-ai/pkg/ansible"
	"github.com/ai-Ev1lC0rP/proxmox-ai/pkg/audit"
	"github.com/ai-Ev1lC0rP/proxmox-ai/pkg/classify"
	"github.com/ai-Ev1lC0rP/proxmox-ai/pkg/contracts"
	"github.com/ai-Ev1lC0rP/proxmox-ai/pkg/gate"
	"github.com/ai-Ev1lC0rP/proxmox-ai/pkg/history"
	"github.com/ai-Ev1lC0rP/proxmox-ai/pkg/llm"
	"github.com/ai-Ev1lC0rP/proxmox-ai/pkg/observability"
	"github.com/ai-Ev1lC0rP/proxmox-ai/pkg/proxmox"
)

// Classifier is the intent-classification capability.
type Classifier interface {
	Classify(ctx context.Context, text string) (contracts.Intent, error)
}

// Fallback is the offline keyword classifier.
type Fallback interface {
	Match(text string) (contracts.Intent, bool)
}

// Resolver maps categories to agents.
type Resolver interface {
	Resolve(category contracts.Category) (agent.Agent, error)
}

// Authorizer is the execution gate.
type Authorizer interface {
	Authorize(ctx context.Context, action contracts.Action, explicitExecute bool) gate.Decision
}

// Options carries the optional collaborators and tunables.
type Options struct {
	Runner   ansible.Runner // required only if actions may set ViaAutomation
	History  history.Store  // best-effort interaction log
	Embedder llm.Embedder   // embeddings for the history log
	Audit    audit.Logger

	ClassifyTimeout time.Duration // bound on the completion-service call
	ExecuteTimeout  time.Duration // bound on planning lookups and execution
}

// Dispatcher orchestrates one Handle call per Instruction. It holds no
// per-request state, so a single Dispatcher serves concurrent requests
// without coordination.
type Dispatcher struct {
	classifier Classifier
	fallback   Fallback
	registry   Resolver
	gate       Authorizer
	remote     proxmox.Service
	opts       Options
	telemetry  *observability.Telemetry
}

// New wires a Dispatcher. classifier may be nil (keyword-only operation,
// the completion service treated as permanently unavailable).
func New(classifier Classifier, fallback Fallback, registry Resolver, authorizer Authorizer, remote proxmox.Service, opts Options) *Dispatcher {
	if fallback == nil {
		fallback = classify.NewKeywordFallback(nil)
	}
	if opts.Audit == nil {
		opts.Audit = audit.Nop{}
	}
	if opts.ClassifyTimeout <= 0 {
		opts.ClassifyTimeout = 15 * time.Second
	}
	if opts.ExecuteTimeout <= 0 {
		opts.ExecuteTimeout = 60 * time.Second
	}
	return &Dispatcher{
		classifier: classifier,
		fallback:   fallback,
		registry:   registry,
		gate:       authorizer,
		remote:     remote,
		opts:       opts,
		telemetry:  observability.New(),
	}
}

// Handle processes one instruction to a terminal result.
func (d *Dispatcher) Handle(ctx context.Context, instr contracts.Instruction) contracts.ExecutionResult {
	result := d.handle(ctx, instr)
	result.CompletedAt = time.Now().UTC()
	d.telemetry.RecordResult(ctx, string(result.Status))
	d.record(instr, result)
	return result
}

func (d *Dispatcher) handle(ctx context.Context, instr contracts.Instruction) contracts.ExecutionResult {
	text := strings.TrimSpace(instr.Text)
	if text == "" {
		return failed(instr, contracts.ErrEmptyInstruction)
	}

	// Received → Classified
	clsCtx, clsSpan := d.telemetry.StartStage(ctx, "classify")
	intent, err := d.classified(clsCtx, instr, text)
	d.telemetry.EndStage(clsSpan, err)
	if err != nil {
		return failed(instr, err)
	}
	if intent.Category == contracts.CategoryClarification {
		return contracts.ExecutionResult{
			Status: contracts.StatusNeedsConfirmation,
			Detail: fmt.Sprintf("instruction %q is ambiguous (confidence %.2f); please rephrase with the resource and operation you mean", text, intent.Confidence),
		}
	}

	// Classified → Planned
	planner, err := d.registry.Resolve(intent.Category)
	if err != nil {
		return failed(instr, err)
	}
	// Agents that parse endpoint syntax need the raw text.
	if intent.Parameters == nil {
		intent.Parameters = map[string]string{}
	}
	intent.Parameters["text"] = text

	planCtx, cancelPlan := context.WithTimeout(ctx, d.opts.ExecuteTimeout)
	planCtx, planSpan := d.telemetry.StartStage(planCtx, "plan")
	action, err := planner.Plan(planCtx, intent.Parameters)
	d.telemetry.EndStage(planSpan, err)
	cancelPlan()
	if err != nil {
		return failed(instr, err)
	}

	// Planned → Authorized
	decision := d.gate.Authorize(ctx, action, instr.ExplicitExecute)
	d.telemetry.RecordDecision(ctx, string(decision.Verdict), string(action.RiskLevel))

	switch decision.Verdict {
	case gate.RequireConfirmation:
		return contracts.ExecutionResult{
			Status: contracts.StatusNeedsConfirmation,
			Detail: decision.Prompt,
			Action: &action,
		}
	case gate.Reject:
		return contracts.ExecutionResult{
			Status: contracts.StatusRejected,
			Detail: decision.Reason,
			Action: &action,
		}
	}

	// Cancellation before the Proceed decision is acted on is a clean
	// no-op: nothing has been sent yet.
	if err := ctx.Err(); err != nil {
		return failed(instr, fmt.Errorf("canceled before execution: %w", err))
	}

	// Authorized → Executed
	return d.execute(ctx, instr, action)
}

// classified produces the Intent: explicit override first, then the
// completion service, then the keyword fallback.
func (d *Dispatcher) classified(ctx context.Context, instr contracts.Instruction, text string) (contracts.Intent, error) {
	if instr.AgentOverride != "" {
		return contracts.Intent{
			Category:   contracts.Category(instr.AgentOverride),
			Parameters: classify.ExtractParams(text),
			Confidence: 1.0,
		}, nil
	}

	if d.classifier != nil {
		span := func() (contracts.Intent, error) {
			clsCtx, cancel := context.WithTimeout(ctx, d.opts.ClassifyTimeout)
			defer cancel()
			return d.classifier.Classify(clsCtx, text)
		}
		intent, err := span()
		switch {
		case err == nil:
			return intent, nil
		case errors.Is(err, contracts.ErrEmptyInstruction):
			return contracts.Intent{}, err
		case errors.Is(err, context.Canceled) && ctx.Err() != nil:
			return contracts.Intent{}, fmt.Errorf("canceled during classification: %w", ctx.Err())
		}
		// Unavailable or timed out: fall through to keywords.
	}

	if intent, ok := d.fallback.Match(text); ok {
		d.telemetry.RecordFallback(ctx)
		return intent, nil
	}
	return contracts.Intent{}, contracts.ErrClassificationUnavailable
}

// execute issues the remote call (direct or via the automation runner) and
// maps its outcome. From here on a cancellation is no longer clean: the
// operation may have reached the cluster, so it reports Indeterminate.
func (d *Dispatcher) execute(ctx context.Context, instr contracts.Instruction, action contracts.Action) contracts.ExecutionResult {
	execCtx, cancel := context.WithTimeout(ctx, d.opts.ExecuteTimeout)
	defer cancel()

	execCtx, execSpan := d.telemetry.StartStage(execCtx, "execute")
	var raw map[string]any
	var err error
	if action.ViaAutomation {
		raw, err = d.runPlaybook(execCtx, action)
	} else {
		raw, err = d.remote.Execute(execCtx, action)
	}
	d.telemetry.EndStage(execSpan, err)

	_ = d.opts.Audit.Record(ctx, audit.EventExecution,
		string(action.Operation), action.Target.ResourceID, action.Summary(), map[string]any{
			"success": err == nil,
		})

	if err != nil {
		if errors.Is(err, context.Canceled) || (ctx.Err() != nil && errors.Is(ctx.Err(), context.Canceled)) {
			return failed(instr, fmt.Errorf("%w (action: %s)", contracts.ErrIndeterminate, action.Summary()))
		}
		return failed(instr, err)
	}

	return contracts.ExecutionResult{
		Status:      contracts.StatusExecuted,
		Detail:      fmt.Sprintf("executed: %s", action.Summary()),
		Action:      &action,
		RawResponse: raw,
	}
}

func (d *Dispatcher) runPlaybook(ctx context.Context, action contracts.Action) (map[string]any, error) {
	if d.opts.Runner == nil {
		return nil, &contracts.RemoteFaultError{Detail: "no automation runner configured"}
	}

	vars := map[string]any{}
	for k, v := range action.Payload {
		vars[k] = v
	}
	if action.Target.ResourceID != "" {
		vars["vmid"] = action.Target.ResourceID
	}
	if action.Target.Node != "" {
		vars["node"] = action.Target.Node
	}

	run, err := d.opts.Runner.Run(ctx, action.PlaybookID, vars)
	if err != nil {
		return nil, err
	}
	if !run.Success {
		return nil, &contracts.RemoteFaultError{Detail: fmt.Sprintf("playbook %s failed: %s", action.PlaybookID, tail(run.Output, 512))}
	}
	return map[string]any{"playbook": action.PlaybookID, "output": run.Output}, nil
}

// record writes the interaction to the history store. Best effort: history
// failures are invisible to the caller.
func (d *Dispatcher) record(instr contracts.Instruction, result contracts.ExecutionResult) {
	if d.opts.History == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	entry := history.Entry{
		Instruction: instr.Text,
		Status:      string(result.Status),
		Detail:      result.Detail,
	}
	if result.Action != nil {
		entry.Category = string(result.Action.Category)
		if raw, err := json.Marshal(result.Action); err == nil {
			entry.ActionJSON = string(raw)
		}
	}

	var embedding []float32
	if d.opts.Embedder != nil {
		if emb, err := d.opts.Embedder.Embed(ctx, instr.Text); err == nil {
			embedding = emb
		}
	}
	_ = d.opts.History.Record(ctx, entry, embedding)
}

// failed builds the terminal failure result. The instruction text is always
// part of the detail; dropping it would break audit and caller-side retry.
func failed(instr contracts.Instruction, err error) contracts.ExecutionResult {
	detail := fmt.Sprintf("instruction %q: %s", strings.TrimSpace(instr.Text), errDetail(err))
	return contracts.ExecutionResult{Status: contracts.StatusFailed, Detail: detail}
}

// errDetail prefixes the message with the error kind's stable name.
func errDetail(err error) string {
	var (
		unknownCat *contracts.UnknownCategoryError
		missing    *contracts.MissingParameterError
		invalid    *contracts.InvalidParameterError
		notFound   *contracts.TargetNotFoundError
		fault      *contracts.RemoteFaultError
	)
	switch {
	case errors.Is(err, contracts.ErrEmptyInstruction):
		return "EmptyInstruction: " + err.Error()
	case errors.Is(err, contracts.ErrClassificationUnavailable):
		return "ClassificationUnavailable: " + err.Error()
	case errors.Is(err, contracts.ErrRemoteTimeout):
		return "RemoteTimeout: " + err.Error()
	case errors.Is(err, contracts.ErrIndeterminate):
		return "Indeterminate: " + err.Error()
	case errors.As(err, &unknownCat):
		return "UnknownCategory: " + err.Error()
	case errors.As(err, &missing):
		return "MissingRequiredParameter: " + err.Error()
	case errors.As(err, &invalid):
		return "InvalidParameterValue: " + err.Error()
	case errors.As(err, &notFound):
		return "TargetNotFound: " + err.Error()
	case errors.As(err, &fault):
		return "RemoteFault: " + err.Error()
	default:
		return err.Error()
	}
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}

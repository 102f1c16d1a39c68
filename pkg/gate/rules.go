package gate

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/ai-Ev1lC0rP/proxmox-ai/pkg/contracts"
)

// RuleSet holds compiled CEL deny rules. A rule sees the action as a
// dynamic map under the variable "action" and denies when it evaluates to
// true, e.g.:
//
//	action.operation == "delete" && action.target.resource_id == "100"
//	action.category == "firewall" && !has(action.target.node)
type RuleSet struct {
	sources  []string
	programs []cel.Program
}

// CompileRules compiles the expressions; a malformed rule fails
// construction rather than being skipped at evaluation time.
func CompileRules(exprs []string) (*RuleSet, error) {
	env, err := cel.NewEnv(cel.Variable("action", cel.DynType))
	if err != nil {
		return nil, fmt.Errorf("gate: create CEL environment: %w", err)
	}

	rs := &RuleSet{}
	for _, expr := range exprs {
		ast, issues := env.Compile(expr)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("gate: compile rule %q: %w", expr, issues.Err())
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("gate: program rule %q: %w", expr, err)
		}
		rs.sources = append(rs.sources, expr)
		rs.programs = append(rs.programs, prg)
	}
	return rs, nil
}

// Len returns the number of compiled rules.
func (rs *RuleSet) Len() int { return len(rs.programs) }

// Denies evaluates the rules in order and returns the first that matches.
func (rs *RuleSet) Denies(action contracts.Action) (bool, string, error) {
	input, err := actionInput(action)
	if err != nil {
		return false, "", err
	}

	for i, prg := range rs.programs {
		out, _, err := prg.Eval(map[string]any{"action": input})
		if err != nil {
			return false, rs.sources[i], fmt.Errorf("evaluate %q: %w", rs.sources[i], err)
		}
		denied, ok := out.Value().(bool)
		if !ok {
			return false, rs.sources[i], fmt.Errorf("rule %q is not boolean", rs.sources[i])
		}
		if denied {
			return true, rs.sources[i], nil
		}
	}
	return false, "", nil
}

// Package rules provides the CEL-Go based classification ladders.
//
// A ladder is an ordered list of compiled boolean CEL predicates, each
// paired with an outcome string. Evaluation walks the steps top-down and
// returns the outcome of the first predicate that holds; order is part
// of the contract, so overlapping predicates resolve deterministically.
package rules

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/opensource-telco/kestrel/internal/domain"
)

// Step is one (predicate, outcome) pair of a ladder definition.
type Step struct {
	Expression string
	Outcome    string
}

type compiledStep struct {
	expression string
	outcome    string
	program    cel.Program
}

// Ladder evaluates its steps in declaration order, first match wins.
type Ladder struct {
	steps      []compiledStep
	defaultOut string
	hasDefault bool
}

func newEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("avg_duration", cel.DoubleType),
		cel.Variable("total_calls", cel.DoubleType),
		cel.Variable("night_ratio", cel.DoubleType),
		cel.Variable("origin_regions", cel.DoubleType),
		cel.Variable("target_regions", cel.DoubleType),
		cel.Variable("risk_score", cel.DoubleType),
		cel.Variable("is_fraud", cel.BoolType),
		cel.Variable("has_cluster", cel.BoolType),
	)
}

// NewLadder compiles the ordered steps into an evaluable ladder.
func NewLadder(steps []Step) (*Ladder, error) {
	env, err := newEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	l := &Ladder{steps: make([]compiledStep, 0, len(steps))}
	for _, s := range steps {
		ast, issues := env.Compile(s.Expression)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("failed to compile predicate %q: %w", s.Expression, issues.Err())
		}
		if ast.OutputType() != cel.BoolType {
			return nil, fmt.Errorf("predicate %q must return bool, got %s", s.Expression, ast.OutputType())
		}
		program, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("failed to create program for %q: %w", s.Expression, err)
		}
		l.steps = append(l.steps, compiledStep{
			expression: s.Expression,
			outcome:    s.Outcome,
			program:    program,
		})
	}
	return l, nil
}

// WithDefault sets the outcome returned when no predicate matches.
func (l *Ladder) WithDefault(outcome string) *Ladder {
	l.defaultOut = outcome
	l.hasDefault = true
	return l
}

// Activation holds the variables a ladder predicate can reference.
type Activation struct {
	Features   domain.FeatureVector
	RiskScore  float64
	IsFraud    bool
	HasCluster bool
}

func (a Activation) vars() map[string]any {
	return map[string]any{
		"avg_duration":   a.Features.AvgDuration,
		"total_calls":    a.Features.TotalCalls,
		"night_ratio":    a.Features.NightRatio,
		"origin_regions": a.Features.OriginRegions,
		"target_regions": a.Features.TargetRegions,
		"risk_score":     a.RiskScore,
		"is_fraud":       a.IsFraud,
		"has_cluster":    a.HasCluster,
	}
}

// Evaluate returns the outcome of the first matching step. The second
// return is false when no step matched and no default is configured. A
// predicate that errors at runtime is skipped, never matched.
func (l *Ladder) Evaluate(act Activation) (string, bool) {
	vars := act.vars()
	for _, step := range l.steps {
		out, _, err := step.program.Eval(vars)
		if err != nil {
			continue
		}
		if matched, ok := out.(types.Bool); ok && bool(matched) {
			return step.outcome, true
		}
	}
	if l.hasDefault {
		return l.defaultOut, true
	}
	return "", false
}

// Steps returns the ladder's (expression, outcome) pairs in order.
func (l *Ladder) Steps() []Step {
	steps := make([]Step, 0, len(l.steps))
	for _, s := range l.steps {
		steps = append(steps, Step{Expression: s.expression, Outcome: s.outcome})
	}
	return steps
}

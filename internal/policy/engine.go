// Package policy evaluates the run admission policy with OPA.
package policy

import (
	"context"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/rego"
)

// Decision is the outcome of an admission check.
type Decision string

const (
	DecisionAllow Decision = "allow"
	DecisionBlock Decision = "block"
)

// Input is the document a policy sees as `input`.
type Input struct {
	Query          string `json:"query"`
	Model          string `json:"model,omitempty"`
	Provider       string `json:"provider,omitempty"`
	MaxQueryLength int    `json:"max_query_length"`
}

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content. The
// policy must define package run_admission with a decision rule and may
// define a reason rule.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.run_admission"),
		rego.Module("run_admission.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// NewEngineFromFile loads the policy from path, or DefaultPolicy when path
// is empty.
func NewEngineFromFile(ctx context.Context, path string) (*Engine, error) {
	if path == "" {
		return NewEngine(ctx, DefaultPolicy)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	return NewEngine(ctx, string(content))
}

// Evaluate checks whether a run may be launched.
func (e *Engine) Evaluate(ctx context.Context, input Input) (Decision, string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return DecisionAllow, "default", nil
	}

	doc, ok := results[0].Expressions[0].Value.(map[string]interface{})
	if !ok {
		return DecisionAllow, "unexpected return type", nil
	}

	reason, _ := doc["reason"].(string)
	switch decision, _ := doc["decision"].(string); Decision(decision) {
	case DecisionBlock:
		return DecisionBlock, reason, nil
	case DecisionAllow, "":
		return DecisionAllow, reason, nil
	default:
		return "", "", fmt.Errorf("unknown policy decision %q", decision)
	}
}

// DefaultPolicy is the default policy content.
const DefaultPolicy = `
package run_admission

import rego.v1

default decision := "allow"

decision := "block" if {
	input.max_query_length > 0
	count(input.query) > input.max_query_length
}

reason := "query exceeds maximum length" if {
	decision == "block"
}
`

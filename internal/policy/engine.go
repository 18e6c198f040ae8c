// Package policy evaluates incoming chat messages against a Rego policy.
package policy

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/open-policy-agent/opa/rego"
)

// Decisions.
const (
	DecisionAllow = "allow"
	DecisionBlock = "block"
)

// Input is the document a policy is evaluated against.
type Input struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	Length    int    `json:"length"`
	MaxLength int    `json:"max_length"`
}

// NewInput builds the policy input for a message. Length counts runes.
func NewInput(sessionID, message string, maxLength int) Input {
	return Input{
		SessionID: sessionID,
		Message:   message,
		Length:    utf8.RuneCountInString(message),
		MaxLength: maxLength,
	}
}

// Result is the outcome of a policy evaluation.
type Result struct {
	Decision string
	Reasons  []string
}

// Allowed reports whether the message may proceed.
func (r Result) Allowed() bool {
	return r.Decision != DecisionBlock
}

// Reason joins the deny reasons.
func (r Result) Reason() string {
	return strings.Join(r.Reasons, "; ")
}

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content. The
// policy must define the set data.chat_policy.deny.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.chat_policy.deny"),
		rego.Module("chat_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate checks a message against the policy. Any deny entry blocks it.
func (e *Engine) Evaluate(ctx context.Context, input Input) (Result, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return Result{}, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return Result{Decision: DecisionAllow}, nil
	}

	set, ok := results[0].Expressions[0].Value.([]interface{})
	if !ok {
		return Result{}, fmt.Errorf("unexpected policy result type %T", results[0].Expressions[0].Value)
	}

	var reasons []string
	for _, v := range set {
		if s, ok := v.(string); ok {
			reasons = append(reasons, s)
		}
	}
	if len(reasons) == 0 {
		return Result{Decision: DecisionAllow}, nil
	}
	sort.Strings(reasons)
	return Result{Decision: DecisionBlock, Reasons: reasons}, nil
}

// DefaultPolicy rejects blank messages and messages over the length limit.
const DefaultPolicy = `
package chat_policy

deny["empty message"] {
	trim_space(input.message) == ""
}

deny["message too long"] {
	input.max_length > 0
	input.length > input.max_length
}
`

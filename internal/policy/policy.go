// Package policy evaluates the §7 "Warnings" list as embedded Rego
// rules against a JSON projection of the in-progress document, using
// the OPA Go SDK directly. The reference tooling's own policy engine
// shells out to an external Rust binary because its rules were written
// in Rust and needed a cross-language boundary; nothing in this domain
// has that boundary, so the rules are evaluated in-process instead —
// see rules.rego.
package policy

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/prometheus/client_golang/prometheus"
)

//go:embed rules.rego
var rulesSource string

var (
	evaluationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "p4c_bm2json_policy_evaluations_total",
		Help: "Number of times the warnings policy was evaluated.",
	})
	violationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "p4c_bm2json_policy_violations_total",
		Help: "Number of warnings raised across all policy evaluations.",
	})
)

// Register attaches the policy's counters to reg. Callers that want a
// /metrics endpoint (e.g. cmd/p4c-bm2json's -metrics-addr flag) call
// this once against a prometheus.Registry before serving promhttp.
func Register(reg *prometheus.Registry) {
	reg.MustRegister(evaluationsTotal, violationsTotal)
}

// Warning is one policy-evaluated warning.
type Warning struct {
	Rule    string `json:"rule"`
	Message string `json:"message"`
	Name    string `json:"name,omitempty"`
}

// Engine evaluates the embedded Rego ruleset.
type Engine struct {
	query rego.PreparedEvalQuery
}

// New prepares the embedded Rego rules for evaluation.
func New(ctx context.Context) (*Engine, error) {
	r := rego.New(
		rego.Query("data.p4cbm2json.warnings"),
		rego.Module("rules.rego", rulesSource),
	)
	q, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("preparing policy rules: %w", err)
	}
	return &Engine{query: q}, nil
}

// Facts is the minimal JSON projection the rules need — not the whole
// document, since the rules only look at actions/tables/parsers.
type Facts struct {
	UnusedActionParams     []string `json:"unused_action_params"`
	UnusedDirectCounters   []string `json:"unused_direct_counters"`
	OverriddenDefaultActions []string `json:"overridden_default_actions"`
	RejectTransitions      []string `json:"reject_transitions"`
	UnknownExternMethods   []string `json:"unknown_extern_methods"`
}

// Evaluate runs the rules against facts and returns the warnings they
// produce.
func (e *Engine) Evaluate(ctx context.Context, facts Facts) ([]Warning, error) {
	evaluationsTotal.Inc()

	raw, err := json.Marshal(facts)
	if err != nil {
		return nil, fmt.Errorf("marshaling policy facts: %w", err)
	}
	var input any
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, fmt.Errorf("unmarshaling policy facts: %w", err)
	}

	rs, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, fmt.Errorf("evaluating policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return nil, nil
	}

	raw, err = json.Marshal(rs[0].Expressions[0].Value)
	if err != nil {
		return nil, fmt.Errorf("marshaling policy result: %w", err)
	}
	var warnings []Warning
	if err := json.Unmarshal(raw, &warnings); err != nil {
		return nil, fmt.Errorf("unmarshaling policy result: %w", err)
	}
	violationsTotal.Add(float64(len(warnings)))
	return warnings, nil
}

package policy

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestEvaluateProducesWarningPerUnusedActionParam(t *testing.T) {
	ctx := context.Background()
	e, err := New(ctx)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	warnings, err := e.Evaluate(ctx, Facts{UnusedActionParams: []string{"port"}})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("got %d warnings, want 1", len(warnings))
	}
	if warnings[0].Rule != "unused_action_parameter" || warnings[0].Name != "port" {
		t.Errorf("warning = %#v, want rule unused_action_parameter for name port", warnings[0])
	}
}

func TestEvaluateCombinesMultipleFactKinds(t *testing.T) {
	ctx := context.Background()
	e, err := New(ctx)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	warnings, err := e.Evaluate(ctx, Facts{
		UnusedDirectCounters: []string{"cnt"},
		RejectTransitions:    []string{"parse_ipv4"},
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(warnings) != 2 {
		t.Fatalf("got %d warnings, want 2", len(warnings))
	}
	rules := map[string]bool{}
	for _, w := range warnings {
		rules[w.Rule] = true
	}
	if !rules["unused_direct_counter"] || !rules["explicit_reject_transition"] {
		t.Errorf("warnings = %#v, missing an expected rule", warnings)
	}
}

func TestEvaluateEmptyFactsProducesNoWarnings(t *testing.T) {
	ctx := context.Background()
	e, err := New(ctx)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	warnings, err := e.Evaluate(ctx, Facts{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("got %d warnings, want 0 for empty facts", len(warnings))
	}
}

func TestRegisterAttachesCountersWithoutPanicking(t *testing.T) {
	reg := prometheus.NewRegistry()
	Register(reg)
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	names := map[string]bool{}
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	if !names["p4c_bm2json_policy_evaluations_total"] || !names["p4c_bm2json_policy_violations_total"] {
		t.Errorf("registered metric names = %#v, missing expected counters", names)
	}
}

package router

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mladen1312/nyx-light-racunovodja/internal/overseer"
	"github.com/mladen1312/nyx-light-racunovodja/internal/pipeline"
	"github.com/mladen1312/nyx-light-racunovodja/internal/types"
)

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	store, err := pipeline.NewStore(filepath.Join(t.TempDir(), "pipeline.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	pipe := pipeline.New(store, t.TempDir(), nil)
	ov, err := overseer.New()
	if err != nil {
		t.Fatalf("overseer.New: %v", err)
	}
	return NewExecutor(ov, pipe, types.ERPCpp)
}

func TestDispatchOverseerShortCircuit(t *testing.T) {
	e := newTestExecutor(t)
	result := e.Dispatch(context.Background(), "Kako mogu sakrij prihod od poreznika?", false, nil, "client-1", "user-1")
	if result.Success {
		t.Fatal("expected overseer refusal to short-circuit dispatch")
	}
	if result.Module != "overseer" {
		t.Fatalf("expected module overseer, got %s", result.Module)
	}
}

func TestDispatchGenericModuleAcknowledged(t *testing.T) {
	e := newTestExecutor(t)
	result := e.Dispatch(context.Background(), "koji je rok za predaju gfi izvještaja", false, nil, "client-1", "user-1")
	if !result.Success {
		t.Fatalf("expected generic handler to succeed, got errors %v", result.Errors)
	}
}

func TestDispatchPayrollMissingFieldsAsksForInput(t *testing.T) {
	e := newTestExecutor(t)
	result := e.Dispatch(context.Background(), "obračunaj plaću za zaposlenika u Zagrebu", false, nil, "client-1", "user-1")
	if result.Success {
		t.Fatal("expected missing-fields failure without gross amount")
	}
	if result.Action != "need_input" {
		t.Fatalf("expected need_input action, got %s", result.Action)
	}
}

func TestDispatchPayrollSubmitsProposal(t *testing.T) {
	e := newTestExecutor(t)
	entities := map[string]interface{}{"gross": "2000", "city": "Zagreb"}
	result, ok := e.handlers["payroll"](context.Background(), "create", entities, "client-1", "user-1"), true
	_ = ok
	if !result.Success {
		t.Fatalf("expected payroll submit to succeed, got errors %v", result.Errors)
	}
	if result.Payload["proposal_id"] == nil {
		t.Fatal("expected a proposal_id in the payload")
	}
}

func TestDispatchUnknownModuleNeverPanics(t *testing.T) {
	e := newTestExecutor(t)
	result := e.execute(context.Background(), types.RouterResult{Module: "does_not_exist", Confidence: 0.9}, "client-1", "user-1")
	if result.Success {
		t.Fatal("expected failure for unknown module")
	}
}

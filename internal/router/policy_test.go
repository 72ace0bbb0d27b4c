package router

import (
	"testing"

	"github.com/mladen1312/nyx-light-racunovodja/internal/types"
)

func TestDecideExecuteAboveThreshold(t *testing.T) {
	action, _ := Decide(types.RouterResult{Module: "payroll", Confidence: 0.8}, nil)
	if action != ActionExecute {
		t.Fatalf("expected execute, got %s", action)
	}
}

func TestDecideHintInMiddleBand(t *testing.T) {
	action, _ := Decide(types.RouterResult{Module: "payroll", Confidence: 0.5}, nil)
	if action != ActionHint {
		t.Fatalf("expected hint, got %s", action)
	}
}

func TestDecideChatBelowThreshold(t *testing.T) {
	action, _ := Decide(types.RouterResult{Module: "payroll", Confidence: 0.2}, nil)
	if action != ActionChat {
		t.Fatalf("expected chat, got %s", action)
	}
}

func TestDecideGeneralIsAlwaysChat(t *testing.T) {
	action, _ := Decide(types.RouterResult{Module: "general", Confidence: 0.9}, nil)
	if action != ActionChat {
		t.Fatalf("expected chat for general module, got %s", action)
	}
}

func TestDecideSemanticOverrideForcesExecute(t *testing.T) {
	action, result := Decide(
		types.RouterResult{Module: "general", Confidence: 0.1},
		&SemanticHint{Module: "payroll", Confidence: 0.95},
	)
	if action != ActionExecute {
		t.Fatalf("expected semantic override to force execute, got %s", action)
	}
	if result.Module != "payroll" {
		t.Fatalf("expected module overridden to payroll, got %s", result.Module)
	}
}

func TestDecideSemanticHintBelowThresholdDoesNotOverride(t *testing.T) {
	action, result := Decide(
		types.RouterResult{Module: "general", Confidence: 0.1},
		&SemanticHint{Module: "payroll", Confidence: 0.7},
	)
	if action != ActionChat {
		t.Fatalf("expected chat since semantic confidence is below override threshold, got %s", action)
	}
	if result.Module != "general" {
		t.Fatalf("expected module unchanged, got %s", result.Module)
	}
}

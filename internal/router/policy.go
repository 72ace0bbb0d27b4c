package router

import "github.com/mladen1312/nyx-light-racunovodja/internal/types"

// Action is the dispatch policy's verdict for a classified utterance
// (spec.md §4.2 dispatch policy).
type Action string

const (
	// ActionExecute runs the module handler and injects its llm_context.
	ActionExecute Action = "execute"
	// ActionHint injects a "possibly module X" hint without executing.
	ActionHint Action = "hint"
	// ActionChat skips module dispatch; the LLM answers from RAG context
	// alone.
	ActionChat Action = "chat"
)

// SemanticHint is the L2 semantic-memory override input. A hint with
// confidence >= 0.9 replaces the router's module and forces execute; a
// weaker hint is ignored by Decide and reaches neither the handler nor the
// LLM context.
type SemanticHint struct {
	Module     string
	Confidence float64
}

// semanticOverrideThreshold is the resolved Open Question's cutoff.
const semanticOverrideThreshold = 0.9

// Decide applies the dispatch policy from spec.md §4.2:
//
//	confidence > 0.6 and module != general  -> execute
//	0.4 < confidence <= 0.6 and module != general -> hint
//	otherwise -> chat
//
// An L2 semantic hint with confidence >= 0.9 overrides the router's module
// choice outright and forces execute, regardless of the router's own score.
func Decide(result types.RouterResult, semantic *SemanticHint) (Action, types.RouterResult) {
	if semantic != nil && semantic.Confidence >= semanticOverrideThreshold && semantic.Module != "" {
		result.Module = semantic.Module
		result.Confidence = semantic.Confidence
		return ActionExecute, result
	}

	if result.Module == "general" {
		return ActionChat, result
	}

	switch {
	case result.Confidence > 0.6:
		return ActionExecute, result
	case result.Confidence > 0.4:
		return ActionHint, result
	default:
		return ActionChat, result
	}
}

package router

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mladen1312/nyx-light-racunovodja/internal/apperr"
	"github.com/mladen1312/nyx-light-racunovodja/internal/logging"
	"github.com/mladen1312/nyx-light-racunovodja/internal/overseer"
	"github.com/mladen1312/nyx-light-racunovodja/internal/pipeline"
	"github.com/mladen1312/nyx-light-racunovodja/internal/types"
)

// HandlerFunc is the contract every module handler satisfies (spec.md §4.2:
// "Each handler takes (sub_intent, entities, client_id, user_id) and
// returns a ModuleResult"). ctx carries request-scoped deadlines.
type HandlerFunc func(ctx context.Context, subIntent string, entities map[string]interface{}, clientID, userID string) types.ModuleResult

// Executor dispatches a RouterResult to its handler, with the Overseer
// short-circuit in front of every dispatch (SPEC_FULL.md §4.2).
type Executor struct {
	overseer *overseer.Overseer
	pipe     *pipeline.Pipeline
	erp      types.ERPTarget
	handlers map[string]HandlerFunc
}

// NewExecutor wires an Executor against the deterministic engines and the
// booking pipeline. erp is the default ERP target new proposals are routed
// to; a real deployment picks this per client, not globally, but a single
// default keeps the handler signatures in this package simple (spec.md
// does not require per-call ERP selection at the router layer).
func NewExecutor(ov *overseer.Overseer, pipe *pipeline.Pipeline, erp types.ERPTarget) *Executor {
	e := &Executor{overseer: ov, pipe: pipe, erp: erp}
	e.handlers = e.buildHandlers()
	return e
}

// Dispatch runs the full two-phase pipeline for one utterance: check the
// Overseer, classify, apply dispatch policy (with an optional L2
// override), then run or hint the module handler. It never panics: an
// unknown module or a handler panic/error becomes a failed ModuleResult
// (spec.md §4.2: "Handler exception -> ModuleResult(success=false) ...
// never propagates to the caller").
func (e *Executor) Dispatch(ctx context.Context, text string, hasFile bool, semantic *SemanticHint, clientID, userID string) types.ModuleResult {
	log := logging.For(logging.CategoryRouter)

	if v := e.overseer.Check(ctx, text); v.Refused {
		log.Warn("overseer refused request", zap.String("category", string(v.Category)))
		return v.Refusal()
	}

	classified := Classify(text, hasFile)
	action, result := Decide(classified, semantic)

	switch action {
	case ActionChat:
		return types.ModuleResult{Success: true, Module: "general", Action: "chat", Summary: "", LLMContext: ""}
	case ActionHint:
		return types.ModuleResult{
			Success:    true,
			Module:     result.Module,
			Action:     "hint",
			Summary:    fmt.Sprintf("possibly module %s (confidence %.2f)", result.Module, result.Confidence),
			LLMContext: fmt.Sprintf("Korisnikov upit vjerojatno pripada modulu %q, no povjerenje je nedovoljno za automatsko izvršenje.", result.Module),
		}
	}

	return e.execute(ctx, result, clientID, userID)
}

func (e *Executor) execute(ctx context.Context, result types.RouterResult, clientID, userID string) (out types.ModuleResult) {
	handler, ok := e.handlers[result.Module]
	if !ok {
		return types.ModuleResult{Success: false, Module: result.Module, Action: "dispatch", Errors: []string{"unknown module"}}
	}

	log := logging.For(logging.CategoryRouter)
	defer func() {
		if r := recover(); r != nil {
			log.Error("handler panic recovered", zap.String("module", result.Module), zap.Any("recover", r))
			out = types.ModuleResult{Success: false, Module: result.Module, Action: result.SubIntent, Errors: []string{fmt.Sprintf("handler panic: %v", r)}}
		}
	}()

	return handler(ctx, result.SubIntent, result.Entities, clientID, userID)
}

// --- entity extraction helpers shared by handlers ---

func decimalEntity(entities map[string]interface{}, key string) (decimal.Decimal, bool) {
	raw, ok := entities[key]
	if !ok {
		return decimal.Zero, false
	}
	switch v := raw.(type) {
	case decimal.Decimal:
		return v, true
	case float64:
		return decimal.NewFromFloat(v), true
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	default:
		return decimal.Zero, false
	}
}

func stringEntity(entities map[string]interface{}, key string) (string, bool) {
	raw, ok := entities[key]
	if !ok {
		return "", false
	}
	s, ok := raw.(string)
	return s, ok
}

// missingFields builds the standard "ask the user for these figures"
// failure result a deterministic-engine handler returns when the Router's
// keyword/shape classification recognised the module but the chat turn did
// not carry the numeric fields the engine needs (the Router never performs
// amount extraction itself — spec.md §4.2: "uses keyword, regex, and shape
// features", not a full NLU parse).
func missingFields(module string, fields ...string) types.ModuleResult {
	return types.ModuleResult{
		Success: false,
		Module:  module,
		Action:  "need_input",
		Summary: "nedostaju podaci potrebni za obračun",
		Errors:  fields,
		LLMContext: fmt.Sprintf(
			"Modul %q je prepoznat, ali nedostaju sljedeći podaci: %v. Zamoli korisnika da ih dostavi.",
			module, fields),
	}
}

func submitFailure(module string, err error) types.ModuleResult {
	return types.ModuleResult{
		Success: false,
		Module:  module,
		Action:  "submit",
		Summary: "prijedlog knjiženja nije spremljen",
		Errors:  []string{err.Error()},
	}
}

func asValidationErrors(err error) []string {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return []string{appErr.Error()}
	}
	return []string{err.Error()}
}

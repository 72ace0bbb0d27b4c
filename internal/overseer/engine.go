// Package overseer implements the hard safety boundary sitting between the
// Router and the Executor (spec.md §4.2 design notes, §2 "L3 Overseer"):
// a rule list, not a generative model, built on Google Mangle Datalog —
// "the router is a cheap deterministic classifier; the overseer is a rule
// list with a small whitelist of accounting contexts, not a generative
// model."
//
// engine.go is adapted from the teacher's internal/mangle/engine.go:
// kept are schema loading, fact insertion and querying over an in-memory
// ConcurrentFactStore; dropped are the teacher's file-based fact
// replacement and SQLite persistence hooks (WarmFromPersistence,
// ReplaceFactsForFile*), since the overseer's rule base is small, static,
// and loaded once at startup rather than incrementally re-synced from a
// source tree.
package overseer

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	mengine "github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	_ "github.com/google/mangle/packages"
	"github.com/google/mangle/parse"
	"github.com/google/mangle/unionfind"
)

// Fact is one Datalog fact: predicate(args...).
type Fact struct {
	Predicate string
	Args      []interface{}
}

// QueryResult is the set of variable bindings a query produced.
type QueryResult struct {
	Bindings []map[string]interface{}
	Duration time.Duration
}

// Engine wraps a Mangle fact store plus a compiled rule program, the same
// Hollow-Kernel shape as the teacher's mangle.Engine, trimmed to what the
// overseer needs.
type Engine struct {
	mu              sync.RWMutex
	store           factstore.ConcurrentFactStore
	baseStore       factstore.FactStoreWithRemove
	programInfo     *analysis.ProgramInfo
	queryContext    *mengine.QueryContext
	predicateIndex  map[string]ast.PredicateSym
	schemaFragments []parse.SourceUnit
	queryTimeout    time.Duration
}

// NewEngine returns an empty engine; call LoadSchemaString before adding
// facts or querying.
func NewEngine(queryTimeout time.Duration) *Engine {
	if queryTimeout <= 0 {
		queryTimeout = 5 * time.Second
	}
	baseStore := factstore.NewSimpleInMemoryStore()
	return &Engine{
		baseStore:      baseStore,
		store:          factstore.NewConcurrentFactStore(baseStore),
		predicateIndex: make(map[string]ast.PredicateSym),
		queryTimeout:   queryTimeout,
	}
}

// LoadSchemaString parses and adds a Mangle schema fragment (decls plus
// rules) to the engine's program.
func (e *Engine) LoadSchemaString(schema string) error {
	unit, err := parse.Unit(bytes.NewReader([]byte(schema)))
	if err != nil {
		return fmt.Errorf("parse overseer schema: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.schemaFragments = append(e.schemaFragments, unit)
	return e.rebuildProgramLocked()
}

func (e *Engine) rebuildProgramLocked() error {
	var clauses []ast.Clause
	var decls []ast.Decl
	for _, fragment := range e.schemaFragments {
		clauses = append(clauses, fragment.Clauses...)
		decls = append(decls, fragment.Decls...)
	}
	unit := parse.SourceUnit{Clauses: clauses, Decls: decls}

	programInfo, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return fmt.Errorf("analyze overseer schema: %w", err)
	}
	e.programInfo = programInfo
	e.predicateIndex = make(map[string]ast.PredicateSym, len(programInfo.Decls))

	predToDecl := make(map[ast.PredicateSym]*ast.Decl, len(programInfo.Decls))
	for sym, decl := range programInfo.Decls {
		e.predicateIndex[sym.Symbol] = sym
		predToDecl[sym] = decl
	}
	predToRules := make(map[ast.PredicateSym][]ast.Clause)
	for _, clause := range programInfo.Rules {
		predToRules[clause.Head.Predicate] = append(predToRules[clause.Head.Predicate], clause)
	}

	e.queryContext = &mengine.QueryContext{PredToRules: predToRules, PredToDecl: predToDecl, Store: e.store}
	return nil
}

// AddFact inserts one fact and re-evaluates the rule program.
func (e *Engine) AddFact(predicate string, args ...interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.programInfo == nil {
		return fmt.Errorf("no schema loaded; call LoadSchemaString first")
	}
	atom, err := e.factToAtomLocked(Fact{Predicate: predicate, Args: args})
	if err != nil {
		return err
	}
	e.store.Add(atom)
	_, err = mengine.EvalProgramWithStats(e.programInfo, e.store)
	return err
}

func (e *Engine) factToAtomLocked(fact Fact) (ast.Atom, error) {
	sym, ok := e.predicateIndex[fact.Predicate]
	if !ok {
		return ast.Atom{}, fmt.Errorf("predicate %s is not declared", fact.Predicate)
	}
	if len(fact.Args) != sym.Arity {
		return ast.Atom{}, fmt.Errorf("predicate %s expects %d args, got %d", fact.Predicate, sym.Arity, len(fact.Args))
	}
	args := make([]ast.BaseTerm, len(fact.Args))
	for i, raw := range fact.Args {
		term, err := toBaseTerm(raw)
		if err != nil {
			return ast.Atom{}, fmt.Errorf("predicate %s arg %d: %w", fact.Predicate, i, err)
		}
		args[i] = term
	}
	return ast.Atom{Predicate: sym, Args: args}, nil
}

func toBaseTerm(value interface{}) (ast.BaseTerm, error) {
	switch v := value.(type) {
	case string:
		if strings.HasPrefix(v, "/") {
			return ast.Name(v)
		}
		return ast.String(v), nil
	case int:
		return ast.Number(int64(v)), nil
	case int64:
		return ast.Number(v), nil
	case float64:
		return ast.Float64(v), nil
	case bool:
		if v {
			return ast.TrueConstant, nil
		}
		return ast.FalseConstant, nil
	default:
		return nil, fmt.Errorf("unsupported fact argument type %T", v)
	}
}

// Query evaluates a Mangle query atom (e.g. "refuse(Reason)") and returns
// its variable bindings.
func (e *Engine) Query(ctx context.Context, query string) (*QueryResult, error) {
	shape, err := parseQueryShape(query)
	if err != nil {
		return nil, err
	}

	e.mu.RLock()
	qc := e.queryContext
	if qc == nil {
		e.mu.RUnlock()
		return nil, fmt.Errorf("no schema loaded")
	}
	decl, ok := qc.PredToDecl[shape.atom.Predicate]
	if !ok || len(decl.Modes()) == 0 {
		e.mu.RUnlock()
		return nil, fmt.Errorf("predicate %s has no declared mode", shape.atom.Predicate.Symbol)
	}
	mode := decl.Modes()[0]
	e.mu.RUnlock()

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.queryTimeout)
		defer cancel()
	}

	start := time.Now()
	var results []map[string]interface{}
	err = qc.EvalQuery(shape.atom, mode, unionfind.New(), func(fact ast.Atom) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		row := make(map[string]interface{}, len(shape.variables))
		for _, b := range shape.variables {
			if b.Index < len(fact.Args) {
				row[b.Name] = toInterface(fact.Args[b.Index])
			}
		}
		results = append(results, row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &QueryResult{Bindings: results, Duration: time.Since(start)}, nil
}

type queryVariable struct {
	Name  string
	Index int
}

type queryShape struct {
	atom      ast.Atom
	variables []queryVariable
}

func parseQueryShape(query string) (*queryShape, error) {
	clean := strings.TrimSpace(query)
	clean = strings.TrimSuffix(clean, ".")
	atom, err := parse.Atom(clean)
	if err != nil {
		return nil, fmt.Errorf("parse query %q: %w", query, err)
	}
	var vars []queryVariable
	for idx, arg := range atom.Args {
		if v, ok := arg.(ast.Variable); ok {
			vars = append(vars, queryVariable{Name: v.Symbol, Index: idx})
		}
	}
	return &queryShape{atom: atom, variables: vars}, nil
}

func toInterface(term ast.BaseTerm) interface{} {
	c, ok := term.(ast.Constant)
	if !ok {
		return fmt.Sprintf("%v", term)
	}
	switch c.Type {
	case ast.NumberType:
		return c.NumValue
	case ast.Float64Type:
		return math.Float64frombits(uint64(c.NumValue))
	default:
		return c.Symbol
	}
}

// Clear drops every fact (used between test cases).
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.baseStore = factstore.NewSimpleInMemoryStore()
	e.store = factstore.NewConcurrentFactStore(e.baseStore)
	if e.queryContext != nil {
		e.queryContext.Store = e.store
	}
}

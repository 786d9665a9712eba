// Package cel is the public integration surface (spec §6): it wraps the
// evaluator (internal/celeval), the JIT backend (internal/jit/...), and the
// constant-folding optimizer (internal/celoptimize) behind the
// compile/execute façade the rest of the system is described in terms of.
// Parsing, type checking, proto integration, and every other external
// collaborator named in §1 stay out of scope; Env.Compile takes an
// already-built celast.Node, not source text.
package cel

import (
	"fmt"

	"sort"
	"sync"
	"sync/atomic"

	"golang.org/x/exp/maps"
	"golang.org/x/sync/singleflight"

	"cel/internal/celast"
	"cel/internal/celcontext"
	"cel/internal/celerrors"
	"cel/internal/celeval"
	"cel/internal/celoptimize"
	"cel/internal/celvalue"
	"cel/internal/jit/driver"
)

// evalProgram runs the tree-walking evaluator over n; factored out of
// Program.Execute so it reads as a single call site next to ExecuteJIT.
func evalProgram(n celast.Node, ctx *celcontext.Context) (celvalue.Value, error) {
	return celeval.Eval(n, ctx)
}

// Env is a reusable compilation environment: a base Context (registered
// variables, functions, and container, per §4.2) plus an optional
// optimizer hook (§4.4). A single Env may compile many programs and is
// safe for concurrent use once its base Context is no longer being
// mutated, mirroring the teacher's single shared *Context wired through
// its compiler/VM at startup.
type Env struct {
	base *celcontext.Context
	hook celoptimize.Hook

	group singleflight.Group

	// names tracks the Env's own directly-registered variable names (not
	// those of any parent scope, since Env always owns a root Context), for
	// VariableNames diagnostics.
	names map[string]struct{}
}

// NewEnv creates an Env with a fresh, empty base Context.
func NewEnv() *Env {
	return &Env{base: celcontext.NewContext(), names: make(map[string]struct{})}
}

// Define registers a variable in the Env's base context, visible to every
// program compiled against it (§4.2).
func (e *Env) Define(name string, v celvalue.Value) {
	e.base.Define(name, v)
	e.names[name] = struct{}{}
}

// VariableNames returns the names registered directly on this Env via
// Define, sorted for stable diagnostic output. It does not include names
// bound only inside a per-call Activation.
func (e *Env) VariableNames() []string {
	names := maps.Keys(e.names)
	sort.Strings(names)
	return names
}

// DefineFunction registers an unqualified global function (§4.2).
func (e *Env) DefineFunction(name string, fn celcontext.Function) {
	e.base.DefineFunction(name, fn)
}

// DefineMethod registers a function callable only with a receiver of the
// given type name (§4.2's per-type table).
func (e *Env) DefineMethod(typeName, name string, fn celcontext.Function) {
	e.base.DefineMethod(typeName, name, fn)
}

// SetContainer sets the dot-qualified namespace used for qualified
// identifier resolution (§4.8).
func (e *Env) SetContainer(container string) {
	e.base.SetContainer(container)
}

// SetOptimizerHook installs the pluggable constant-folding rewrite hook
// (§4.4), applied to every node Compile folds before evaluation or
// lowering. Passing nil disables domain-specific folding while keeping the
// base literal/list/map folding.
func (e *Env) SetOptimizerHook(hook celoptimize.Hook) {
	e.hook = hook
}

// Activation creates a nested Context for a single evaluation, layering
// per-call variables over the Env's base registrations without mutating
// it (§4.2's "an inner scope shadows outer scopes without mutating them").
func (e *Env) Activation() *celcontext.Context {
	return e.base.NewChild()
}

// Program is a compiled expression, reusable across many evaluations and
// callable concurrently from multiple goroutines, each with its own
// Context (§5, §6). It never mutates its own state on Execute; the one
// piece of lazily-initialized state, the JIT lowering, is guarded by
// jitOnce so concurrent first calls to ExecuteJIT/Prewarm lower p exactly
// once instead of racing on compiled/jitErr.
type Program struct {
	ast celast.Node

	jitOnce  sync.Once
	compiled *driver.Program // set once by jitOnce, nil until then
	jitErr   error           // set once by jitOnce, alongside compiled
	jitDone  atomic.Bool     // true once jitOnce's func has run
}

// Compile folds n with the Env's optimizer hook (§4.4) and wraps the
// result as a Program. Folding is semantics-preserving (§8) so the choice
// between interpreted and JIT execution is purely a performance knob, not
// an observable one.
func (e *Env) Compile(n celast.Node) (*Program, error) {
	folded := celoptimize.Fold(n, e.hook)
	return &Program{ast: folded}, nil
}

// CompileCached is Compile, but deduplicates concurrent calls that share
// the same cacheKey (e.g. the raw source text hashed by the caller's
// parser) via golang.org/x/sync/singleflight, so that N goroutines racing
// to compile the same expression perform the fold once (§5: compiled
// programs are meant to be built once and reused across many evaluations).
func (e *Env) CompileCached(cacheKey string, n celast.Node) (*Program, error) {
	v, err, _ := e.group.Do(cacheKey, func() (interface{}, error) {
		return e.Compile(n)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Program), nil
}

// Interpreted reports whether p has not yet been lowered to the JIT
// backend; every Program starts this way and may be promoted in place by
// Prewarm or the first call to ExecuteJIT.
func (p *Program) Interpreted() bool { return !p.jitDone.Load() }

// Prewarm lowers p to the JIT backend ahead of the first ExecuteJIT call,
// useful when compile latency should not be charged to the first request.
// Safe to call concurrently with itself and with ExecuteJIT: sync.Once
// guarantees the lowering runs exactly once, and every caller, whether it
// ran the lowering or merely waited for it, observes the same compiled/
// jitErr result.
func (p *Program) Prewarm() error {
	p.jitOnce.Do(func() {
		compiled, err := driver.Compile(p.ast)
		if err != nil {
			p.jitErr = fmt.Errorf("cel: prewarm: %w", err)
		} else {
			p.compiled = compiled
		}
		p.jitDone.Store(true)
	})
	return p.jitErr
}

// Execute runs p against ctx using the tree-walking evaluator (§4.3).
func (p *Program) Execute(ctx *celcontext.Context) (celvalue.Value, error) {
	return evalProgram(p.ast, ctx)
}

// ExecuteJIT runs p against ctx using the JIT backend (§4.5-§4.7),
// lowering p on first use and caching the result for subsequent calls.
// Per §8, it returns the same value or error kind as Execute for every
// well-formed expression and context, modulo unspecified map iteration
// order.
func (p *Program) ExecuteJIT(ctx *celcontext.Context) (celvalue.Value, error) {
	if err := p.Prewarm(); err != nil {
		return celvalue.Value{}, err
	}
	return p.compiled.Execute(ctx)
}

// AsError reports whether err is the structured error type every
// evaluation failure surfaces as (§7), and returns it. A failure to lower
// a Program for the JIT backend (from Prewarm or ExecuteJIT's first call)
// is a plain wrapped error, for which it reports false.
func AsError(err error) (*celerrors.Error, bool) {
	ce, ok := err.(*celerrors.Error)
	return ce, ok
}

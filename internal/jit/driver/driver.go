// Package driver compiles a celast.Node to an LLVM module (internal/jit/lower)
// and executes it. The execution strategy is an in-process interpreter
// walking the generated IR block-by-block rather than machine code: swapping
// it for a real native backend replaces the execState interpreter in exec.go
// and leaves the lowering package unchanged (DESIGN.md, Open Question).
package driver

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"cel/internal/celast"
	"cel/internal/celcontext"
	"cel/internal/celvalue"
	"cel/internal/jit/lower"
	"cel/internal/jit/rt"
)

// Program is a compiled expression, safe to Execute repeatedly and
// concurrently from multiple goroutines (spec §5/§6): it holds no mutable
// state of its own, only the immutable IR and site-op metadata lowering
// produced.
type Program struct {
	ID     uuid.UUID
	result *lower.Result
}

// Compile lowers n to IR and wraps it as an executable Program.
func Compile(n celast.Node) (*Program, error) {
	res, err := lower.Lower(n)
	if err != nil {
		return nil, fmt.Errorf("driver: compile: %w", err)
	}
	return &Program{ID: uuid.New(), result: res}, nil
}

// Execute runs the compiled program against ctx and returns the resulting
// value, unboxed from the JIT's tagword.Word representation.
func (p *Program) Execute(ctx *celcontext.Context) (celvalue.Value, error) {
	e := newExecState(ctx, p.result.Ops)
	w, err := e.call(p.result.Entry, -1)
	if err != nil {
		return celvalue.Value{}, err
	}
	return rt.Unbox(w), nil
}

// Stats reports a short, human-readable summary of the compiled module,
// useful for diagnostics and logging around a compile cache.
func (p *Program) Stats() string {
	return fmt.Sprintf("program %s: %s functions, %s site ops",
		p.ID, humanize.Comma(int64(len(p.result.Module.Funcs))), humanize.Comma(int64(len(p.result.Ops))))
}

func (p *Program) String() string { return p.ID.String() }

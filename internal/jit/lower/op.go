package lower

import "github.com/llir/llvm/ir"

// OpKind identifies the runtime operation a declared "site" function stands
// in for. LLVM IR has no room for CEL-level metadata (field names,
// comprehension variable bindings, the call graph between an operator and
// its already-lowered operand functions), so every call site the
// interpreter must treat specially gets one of these attached.
type OpKind int

const (
	// OpVar resolves an identifier: first against the frame chain passed as
	// the site's single argument (comprehension-bound names), then against
	// the evaluation context (§4.2, §4.3).
	OpVar OpKind = iota
	// OpField, OpOptField, OpHas implement `.field`, `.?field`, and the
	// has() macro respectively; the site's argument is the already-computed
	// operand word.
	OpField
	OpOptField
	OpHas
	// OpRt dispatches to a named internal/jit/rt opcode; Name is the rt
	// function's key in the driver's dispatch table and NodeID lets the
	// interpreter attach error attribution the way celeval's wrapNode does.
	OpRt
	// OpAnd, OpOr implement the commutative short-circuit `&&`/`||` (§4.3):
	// a deciding left operand skips the right; otherwise the right operand
	// is evaluated even when the left errored, and a deciding right operand
	// wins over that error, mirroring celeval's evalAnd/evalOr.
	OpAnd
	OpOr
	// OpListLit, OpMapLit build list/map literals, unwrapping or skipping
	// Optional-marked entries per §4.3's list/map literal rule.
	OpListLit
	OpMapLit
	// OpComprehension is the bounded fold (§4.3) over a list or map range,
	// backed at runtime by an internal/jit/rt.Frame fast-slot activation
	// (§4.6).
	OpComprehension
	// OpCall is the generic dispatch for any call outside the fixed
	// operator vocabulary: builtins, Object methods, and host-registered
	// context functions, mirroring celeval's evalMethodCall/evalFreeCall.
	OpCall
)

// ListElem is one element of a lowered list literal.
type ListElem struct {
	Fn       *ir.Func
	Optional bool
}

// MapEntry is one key/value pair of a lowered map literal.
type MapEntry struct {
	KeyFn, ValFn *ir.Func
	Optional     bool
}

// Op is the metadata attached to one declared site function.
type Op struct {
	Kind   OpKind
	Name   string // OpVar/OpField/OpOptField/OpHas/OpRt/OpCall
	NodeID int64

	// OpAnd, OpOr
	Left, Right *ir.Func

	// OpListLit
	Elems []ListElem
	// OpMapLit
	Entries []MapEntry

	// OpComprehension
	RangeFn, AccuInitFn, LoopCondFn, LoopStepFn, ResultFn *ir.Func
	IterVar, IterVar2, AccuVar                            string

	// OpCall
	Receiver *ir.Func // nil for an unqualified call
	Args     []*ir.Func
}

// Package lower translates a celast.Node into an LLVM module using
// github.com/llir/llvm, grounded on the per-node lowering structure of an
// amd64 JIT (see DESIGN.md), with allocas standing in for registers. Every AST node
// becomes its own zero-argument-besides-frame-handle function; composite
// nodes (operators, literals, comprehensions) call their already-lowered
// children and are annotated with an *Op the driver consults at
// interpretation time, since raw IR instructions have no room for CEL
// metadata such as field names or comprehension variable bindings.
package lower

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"

	"cel/internal/celast"
	"cel/internal/jit/rt"
)

// Fixed operator vocabulary, mirroring internal/celeval/call.go's Call.Function.
const (
	opAnd      = "&&"
	opOr       = "||"
	opNot      = "!"
	opNeg      = "neg"
	opCond     = "?:"
	opIn       = "in"
	opIndex    = "index"
	opOptIndex = "optindex"
	opEq       = "=="
	opNe       = "!="
	opLt       = "<"
	opLe       = "<="
	opGt       = ">"
	opGe       = ">="
	opAdd      = "+"
	opSub      = "-"
	opMul      = "*"
	opDiv      = "/"
	opRem      = "%"
)

// Result is the output of Lower: the constructed module, its entry point,
// and the site-function metadata the driver needs to interpret it.
type Result struct {
	Module *ir.Module
	Entry  *ir.Func
	Ops    map[*ir.Func]*Op
}

// Lower builds an LLVM module computing n, with Entry taking a single i64
// "frame" argument (the active comprehension frame handle, -1 at the
// top level) and returning the result as a tagword.Word bit pattern.
func Lower(n celast.Node) (*Result, error) {
	b := &builder{
		mod: ir.NewModule(),
		ops: map[*ir.Func]*Op{},
	}
	entry, err := b.lowerNode(n)
	if err != nil {
		return nil, fmt.Errorf("lower: %w", err)
	}
	return &Result{Module: b.mod, Entry: entry, Ops: b.ops}, nil
}

type builder struct {
	mod *ir.Module
	ops map[*ir.Func]*Op
	seq int
}

func (b *builder) newFunc(label string) (*ir.Func, *ir.Block) {
	b.seq++
	fn := b.mod.NewFunc(fmt.Sprintf("%s.%d", label, b.seq), types.I64, ir.NewParam("frame", types.I64))
	return fn, fn.NewBlock("entry")
}

func (b *builder) site(argc int, op *Op) *ir.Func {
	b.seq++
	params := make([]*ir.Param, argc)
	for i := range params {
		params[i] = ir.NewParam("", types.I64)
	}
	fn := b.mod.NewFunc(fmt.Sprintf("site.%d", b.seq), types.I64, params...)
	b.ops[fn] = op
	return fn
}

func (b *builder) lowerNode(n celast.Node) (*ir.Func, error) {
	switch node := n.(type) {
	case *celast.InlineValue:
		return b.lowerLiteral(node)
	case *celast.Ident:
		return b.lowerIdent(node)
	case *celast.Select:
		return b.lowerSelect(node)
	case *celast.Call:
		return b.lowerCall(node)
	case *celast.List:
		return b.lowerList(node)
	case *celast.Map:
		return b.lowerMap(node)
	case *celast.Comprehension:
		return b.lowerComprehension(node)
	default:
		return nil, fmt.Errorf("unsupported node type %T", n)
	}
}

func (b *builder) lowerLiteral(n *celast.InlineValue) (*ir.Func, error) {
	fn, entry := b.newFunc("lit")
	w := rt.Box(n.Value)
	entry.NewRet(constant.NewInt(types.I64, int64(uint64(w))))
	return fn, nil
}

func (b *builder) lowerIdent(n *celast.Ident) (*ir.Func, error) {
	fn, entry := b.newFunc("ident")
	site := b.site(1, &Op{Kind: OpVar, Name: n.Name, NodeID: n.ID()})
	entry.NewRet(entry.NewCall(site, fn.Params[0]))
	return fn, nil
}

func (b *builder) lowerSelect(n *celast.Select) (*ir.Func, error) {
	operandFn, err := b.lowerNode(n.Operand)
	if err != nil {
		return nil, err
	}
	fn, entry := b.newFunc("select")
	kind := OpField
	switch {
	case n.Test:
		kind = OpHas
	case n.Optional:
		kind = OpOptField
	}
	site := b.site(1, &Op{Kind: kind, Name: n.Field, NodeID: n.ID()})
	operand := entry.NewCall(operandFn, fn.Params[0])
	entry.NewRet(entry.NewCall(site, operand))
	return fn, nil
}

func (b *builder) lowerCall(n *celast.Call) (*ir.Func, error) {
	switch n.Function {
	case opAnd:
		return b.lowerShortCircuit(n, OpAnd)
	case opOr:
		return b.lowerShortCircuit(n, OpOr)
	case opCond:
		return b.lowerCond(n)
	case opNot:
		return b.lowerUnary(n, "not")
	case opNeg:
		return b.lowerUnary(n, "neg")
	case opIn:
		return b.lowerBinary(n, "in")
	case opIndex:
		return b.lowerBinary(n, "index")
	case opOptIndex:
		return b.lowerBinary(n, "optindex")
	case opEq:
		return b.lowerBinary(n, "eq")
	case opNe:
		return b.lowerBinary(n, "ne")
	case opLt:
		return b.lowerBinary(n, "lt")
	case opLe:
		return b.lowerBinary(n, "le")
	case opGt:
		return b.lowerBinary(n, "gt")
	case opGe:
		return b.lowerBinary(n, "ge")
	case opAdd:
		return b.lowerBinary(n, "add")
	case opSub:
		return b.lowerBinary(n, "sub")
	case opMul:
		return b.lowerBinary(n, "mul")
	case opDiv:
		return b.lowerBinary(n, "div")
	case opRem:
		return b.lowerBinary(n, "rem")
	default:
		return b.lowerGenericCall(n)
	}
}

func (b *builder) lowerUnary(n *celast.Call, rtName string) (*ir.Func, error) {
	argFn, err := b.lowerNode(n.Args[0])
	if err != nil {
		return nil, err
	}
	fn, entry := b.newFunc("op_" + rtName)
	arg := entry.NewCall(argFn, fn.Params[0])
	site := b.site(1, &Op{Kind: OpRt, Name: rtName, NodeID: n.ID()})
	entry.NewRet(entry.NewCall(site, arg))
	return fn, nil
}

func (b *builder) lowerBinary(n *celast.Call, rtName string) (*ir.Func, error) {
	lfn, err := b.lowerNode(n.Args[0])
	if err != nil {
		return nil, err
	}
	rfn, err := b.lowerNode(n.Args[1])
	if err != nil {
		return nil, err
	}
	fn, entry := b.newFunc("op_" + rtName)
	l := entry.NewCall(lfn, fn.Params[0])
	r := entry.NewCall(rfn, fn.Params[0])
	site := b.site(2, &Op{Kind: OpRt, Name: rtName, NodeID: n.ID()})
	entry.NewRet(entry.NewCall(site, l, r))
	return fn, nil
}

// lowerShortCircuit lowers `&&`/`||`: both operand functions are recorded
// on the Op, not called from this node's own IR body, so the driver decides
// when to evaluate each (§4.3's commutative error rule): a deciding left
// operand skips the right, and a left error does not abort before the right
// operand has had the chance to decide the result.
func (b *builder) lowerShortCircuit(n *celast.Call, kind OpKind) (*ir.Func, error) {
	lfn, err := b.lowerNode(n.Args[0])
	if err != nil {
		return nil, err
	}
	rfn, err := b.lowerNode(n.Args[1])
	if err != nil {
		return nil, err
	}
	fn, entry := b.newFunc("op_bool")
	site := b.site(1, &Op{Kind: kind, Left: lfn, Right: rfn, NodeID: n.ID()})
	entry.NewRet(entry.NewCall(site, fn.Params[0]))
	return fn, nil
}

// lowerCond lowers `?:` using real basic blocks and the alloca-as-register
// idiom: condition errors abort normally (a plain nested call), but only
// the taken branch is ever evaluated, matching evalCond.
func (b *builder) lowerCond(n *celast.Call) (*ir.Func, error) {
	condFn, err := b.lowerNode(n.Args[0])
	if err != nil {
		return nil, err
	}
	thenFn, err := b.lowerNode(n.Args[1])
	if err != nil {
		return nil, err
	}
	elseFn, err := b.lowerNode(n.Args[2])
	if err != nil {
		return nil, err
	}

	fn, entry := b.newFunc("cond")
	frame := fn.Params[0]
	condWord := entry.NewCall(condFn, frame)
	toBool := b.site(1, &Op{Kind: OpRt, Name: "tobool", NodeID: n.ID()})
	boolRaw := entry.NewCall(toBool, condWord) // 0 or 1, raw (not a tagword.Word)

	resSlot := entry.NewAlloca(types.I64)
	thenBlock := fn.NewBlock("then")
	elseBlock := fn.NewBlock("else")
	mergeBlock := fn.NewBlock("merge")

	cmp := entry.NewICmp(enum.IPredNE, boolRaw, constant.NewInt(types.I64, 0))
	entry.NewCondBr(cmp, thenBlock, elseBlock)

	tv := thenBlock.NewCall(thenFn, frame)
	thenBlock.NewStore(tv, resSlot)
	thenBlock.NewBr(mergeBlock)

	ev := elseBlock.NewCall(elseFn, frame)
	elseBlock.NewStore(ev, resSlot)
	elseBlock.NewBr(mergeBlock)

	mergeBlock.NewRet(mergeBlock.NewLoad(types.I64, resSlot))
	return fn, nil
}

func (b *builder) lowerList(n *celast.List) (*ir.Func, error) {
	elems := make([]ListElem, len(n.Elements))
	for i, a := range n.Elements {
		efn, err := b.lowerNode(a.Value)
		if err != nil {
			return nil, err
		}
		elems[i] = ListElem{Fn: efn, Optional: a.Optional}
	}
	fn, entry := b.newFunc("list")
	site := b.site(1, &Op{Kind: OpListLit, Elems: elems, NodeID: n.ID()})
	entry.NewRet(entry.NewCall(site, fn.Params[0]))
	return fn, nil
}

func (b *builder) lowerMap(n *celast.Map) (*ir.Func, error) {
	entries := make([]MapEntry, len(n.Entries))
	for i, e := range n.Entries {
		kfn, err := b.lowerNode(e.Key)
		if err != nil {
			return nil, err
		}
		vfn, err := b.lowerNode(e.Value)
		if err != nil {
			return nil, err
		}
		entries[i] = MapEntry{KeyFn: kfn, ValFn: vfn, Optional: e.Optional}
	}
	fn, entry := b.newFunc("map")
	site := b.site(1, &Op{Kind: OpMapLit, Entries: entries, NodeID: n.ID()})
	entry.NewRet(entry.NewCall(site, fn.Params[0]))
	return fn, nil
}

// lowerComprehension lowers the bounded fold (§4.3). The loop itself runs
// in the driver (exec.go), which owns the rt.Frame activation (§4.6);
// lowering's job is to produce the five already-compiled sub-functions the
// driver calls at each stage.
func (b *builder) lowerComprehension(n *celast.Comprehension) (*ir.Func, error) {
	rangeFn, err := b.lowerNode(n.IterRange)
	if err != nil {
		return nil, err
	}
	accuInitFn, err := b.lowerNode(n.AccuInit)
	if err != nil {
		return nil, err
	}
	loopCondFn, err := b.lowerNode(n.LoopCond)
	if err != nil {
		return nil, err
	}
	loopStepFn, err := b.lowerNode(n.LoopStep)
	if err != nil {
		return nil, err
	}
	resultFn, err := b.lowerNode(n.Result)
	if err != nil {
		return nil, err
	}

	fn, entry := b.newFunc("comprehension")
	site := b.site(1, &Op{
		Kind:       OpComprehension,
		RangeFn:    rangeFn,
		AccuInitFn: accuInitFn,
		LoopCondFn: loopCondFn,
		LoopStepFn: loopStepFn,
		ResultFn:   resultFn,
		IterVar:    n.IterVar,
		IterVar2:   n.IterVar2,
		AccuVar:    n.AccuVar,
		NodeID:     n.ID(),
	})
	entry.NewRet(entry.NewCall(site, fn.Params[0]))
	return fn, nil
}

func (b *builder) lowerGenericCall(n *celast.Call) (*ir.Func, error) {
	var recvFn *ir.Func
	if n.Receiver != nil {
		var err error
		recvFn, err = b.lowerNode(n.Receiver)
		if err != nil {
			return nil, err
		}
	}
	argFns := make([]*ir.Func, len(n.Args))
	for i, a := range n.Args {
		afn, err := b.lowerNode(a)
		if err != nil {
			return nil, err
		}
		argFns[i] = afn
	}
	fn, entry := b.newFunc("call_" + sanitize(n.Function))
	site := b.site(1, &Op{
		Kind:     OpCall,
		Name:     n.Function,
		Receiver: recvFn,
		Args:     argFns,
		NodeID:   n.ID(),
	})
	entry.NewRet(entry.NewCall(site, fn.Params[0]))
	return fn, nil
}

func sanitize(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "anon"
	}
	return string(out)
}

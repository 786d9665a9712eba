package driver

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/value"

	"cel/internal/celcontext"
	"cel/internal/celerrors"
	"cel/internal/celvalue"
	"cel/internal/jit/lower"
	"cel/internal/jit/rt"
	"cel/internal/jit/tagword"
)

// frameEntry is one comprehension activation, chained to its enclosing
// comprehension (if any) so a nested fold can still resolve an outer
// accumulator or iteration variable, mirroring celeval's nested scope chain.
type frameEntry struct {
	parent int64 // -1 if this is the outermost active frame
	names  map[string]int
	frame  *rt.Frame
}

// execState is the per-Execute-call interpreter state. It is never shared
// across concurrent Execute calls on the same *Program, which is what
// makes those calls safe to run from multiple goroutines.
type execState struct {
	ctx    *celcontext.Context
	ops    map[*ir.Func]*lower.Op
	mem    map[*ir.InstAlloca]tagword.Word
	vals   map[value.Value]tagword.Word
	frames []*frameEntry
}

func newExecState(ctx *celcontext.Context, ops map[*ir.Func]*lower.Op) *execState {
	return &execState{
		ctx:  ctx,
		ops:  ops,
		mem:  map[*ir.InstAlloca]tagword.Word{},
		vals: map[value.Value]tagword.Word{},
	}
}

// call runs fn to completion with frame as its single "active comprehension
// frame handle" argument, walking basic blocks until a terminator returns.
func (e *execState) call(fn *ir.Func, frame int64) (tagword.Word, error) {
	if len(fn.Params) > 0 {
		e.vals[fn.Params[0]] = tagword.Word(uint64(frame))
	}
	cur := fn.Blocks[0]
	for {
		for _, inst := range cur.Insts {
			if err := e.exec(inst); err != nil {
				return 0, err
			}
		}
		switch term := cur.Term.(type) {
		case *ir.TermRet:
			if term.X == nil {
				return 0, nil
			}
			return e.resolve(term.X), nil
		case *ir.TermBr:
			cur = term.Target
		case *ir.TermCondBr:
			if int64(e.resolve(term.Cond)) != 0 {
				cur = term.TargetTrue
			} else {
				cur = term.TargetFalse
			}
		default:
			return 0, fmt.Errorf("driver: unsupported terminator %T", cur.Term)
		}
	}
}

func (e *execState) exec(inst ir.Instruction) error {
	switch in := inst.(type) {
	case *ir.InstAlloca:
		// Lazily zero-initialized: e.mem reads default to the zero Word.
	case *ir.InstStore:
		e.mem[in.Dst.(*ir.InstAlloca)] = e.resolve(in.Src)
	case *ir.InstLoad:
		e.vals[in] = e.mem[in.Src.(*ir.InstAlloca)]
	case *ir.InstICmp:
		l, r := int64(e.resolve(in.X)), int64(e.resolve(in.Y))
		var b bool
		switch in.Pred {
		case enum.IPredEQ:
			b = l == r
		case enum.IPredNE:
			b = l != r
		default:
			return fmt.Errorf("driver: unsupported icmp predicate %v", in.Pred)
		}
		if b {
			e.vals[in] = 1
		} else {
			e.vals[in] = 0
		}
	case *ir.InstCall:
		out, err := e.execCall(in)
		if err != nil {
			return err
		}
		e.vals[in] = out
	default:
		return fmt.Errorf("driver: unsupported instruction %T", inst)
	}
	return nil
}

// resolve reads the already-computed Word behind an IR value: either a
// literal constant or a prior instruction's result.
func (e *execState) resolve(v value.Value) tagword.Word {
	if ci, ok := v.(*constant.Int); ok {
		return tagword.Word(uint64(ci.X.Int64()))
	}
	return e.vals[v]
}

func (e *execState) execCall(in *ir.InstCall) (tagword.Word, error) {
	fn, ok := in.Callee.(*ir.Func)
	if !ok {
		return 0, fmt.Errorf("driver: indirect call unsupported")
	}
	if op, ok := e.ops[fn]; ok {
		return e.dispatchOp(op, in.Args)
	}
	// A plain outlined node function: its sole argument is the frame
	// handle to forward.
	return e.call(fn, int64(e.resolve(in.Args[0])))
}

func (e *execState) dispatchOp(op *lower.Op, args []value.Value) (tagword.Word, error) {
	switch op.Kind {
	case lower.OpVar:
		return e.evalVar(op, int64(e.resolve(args[0])))
	case lower.OpField:
		w, err := rt.RtMember(e.resolve(args[0]), op.Name)
		return w, wrapErr(err, op.NodeID)
	case lower.OpOptField:
		return rt.RtOptSelect(e.resolve(args[0]), op.Name), nil
	case lower.OpHas:
		return rt.RtHas(e.resolve(args[0]), op.Name), nil
	case lower.OpRt:
		words := make([]tagword.Word, len(args))
		for i, a := range args {
			words[i] = e.resolve(a)
		}
		fn, ok := rtTable[op.Name]
		if !ok {
			return 0, fmt.Errorf("driver: unknown rt op %q", op.Name)
		}
		w, err := fn(words)
		return w, wrapErr(err, op.NodeID)
	case lower.OpAnd:
		return e.evalAnd(op, int64(e.resolve(args[0])))
	case lower.OpOr:
		return e.evalOr(op, int64(e.resolve(args[0])))
	case lower.OpListLit:
		return e.evalListLit(op, int64(e.resolve(args[0])))
	case lower.OpMapLit:
		return e.evalMapLit(op, int64(e.resolve(args[0])))
	case lower.OpComprehension:
		return e.evalComprehension(op, int64(e.resolve(args[0])))
	case lower.OpCall:
		return e.evalCall(op, int64(e.resolve(args[0])))
	default:
		return 0, fmt.Errorf("driver: unhandled op kind %v", op.Kind)
	}
}

func wrapErr(err error, nodeID int64) error {
	if err == nil {
		return nil
	}
	if ce, ok := err.(*celerrors.Error); ok {
		return ce.WithNode(nodeID)
	}
	return err
}

// rtTable is the shared internal/jit/rt opcode dispatch, keyed by the name
// lowering recorded on each OpRt site.
var rtTable = map[string]func([]tagword.Word) (tagword.Word, error){
	"not": func(a []tagword.Word) (tagword.Word, error) { return rt.RtNot(a[0]) },
	"neg": func(a []tagword.Word) (tagword.Word, error) { return rt.RtNeg(a[0]) },
	"in":  func(a []tagword.Word) (tagword.Word, error) { return rt.RtIn(a[0], a[1]) },
	"index": func(a []tagword.Word) (tagword.Word, error) {
		return rt.RtIndex(a[0], a[1])
	},
	"optindex": func(a []tagword.Word) (tagword.Word, error) { return rt.RtOptIndex(a[0], a[1]), nil },
	"eq":       func(a []tagword.Word) (tagword.Word, error) { return rt.RtEq(a[0], a[1]), nil },
	"ne":       func(a []tagword.Word) (tagword.Word, error) { return rt.RtNe(a[0], a[1]), nil },
	"lt":       func(a []tagword.Word) (tagword.Word, error) { return rt.RtLt(a[0], a[1]) },
	"le":       func(a []tagword.Word) (tagword.Word, error) { return rt.RtLe(a[0], a[1]) },
	"gt":       func(a []tagword.Word) (tagword.Word, error) { return rt.RtGt(a[0], a[1]) },
	"ge":       func(a []tagword.Word) (tagword.Word, error) { return rt.RtGe(a[0], a[1]) },
	"add":      func(a []tagword.Word) (tagword.Word, error) { return rt.RtAdd(a[0], a[1]) },
	"sub":      func(a []tagword.Word) (tagword.Word, error) { return rt.RtSub(a[0], a[1]) },
	"mul":      func(a []tagword.Word) (tagword.Word, error) { return rt.RtMul(a[0], a[1]) },
	"div":      func(a []tagword.Word) (tagword.Word, error) { return rt.RtDiv(a[0], a[1]) },
	"rem":      func(a []tagword.Word) (tagword.Word, error) { return rt.RtRem(a[0], a[1]) },
	"tobool": func(a []tagword.Word) (tagword.Word, error) {
		b, err := rt.RtToBool(a[0])
		if err != nil {
			return 0, err
		}
		if b {
			return 1, nil
		}
		return 0, nil
	},
}

func (e *execState) evalVar(op *lower.Op, frame int64) (tagword.Word, error) {
	for h := frame; h >= 0; {
		fe := e.frames[h]
		if slot, ok := fe.names[op.Name]; ok {
			// Slot 0 (the accumulator) is reassigned every iteration by
			// stepLoop, so a read that outlives the current iteration must
			// clone it; the iteration variable slots are set fresh before
			// each step and never aliased, so a plain borrow is safe.
			if slot == 0 {
				return fe.frame.RtGetSlotCloned(slot), nil
			}
			return fe.frame.RtGetSlot(slot), nil
		}
		h = fe.parent
	}
	if v, ok := e.ctx.ResolveVariable(op.Name); ok {
		return rt.Box(v), nil
	}
	return 0, celerrors.UndeclaredReference(op.Name).WithNode(op.NodeID)
}

// evalAnd mirrors celeval's evalAnd: a false left operand returns at once
// without evaluating the right; otherwise the right is evaluated even when
// the left errored, so a false right operand still wins over that error.
func (e *execState) evalAnd(op *lower.Op, frame int64) (tagword.Word, error) {
	lv, lerr := e.call(op.Left, frame)
	if lerr == nil {
		if lb := rt.Unbox(lv); lb.Kind() == celvalue.KindBool && !lb.BoolValue() {
			return tagword.FromBool(false), nil
		}
	}
	rv, rerr := e.call(op.Right, frame)
	if rerr == nil {
		if rb := rt.Unbox(rv); rb.Kind() == celvalue.KindBool && !rb.BoolValue() {
			return tagword.FromBool(false), nil
		}
	}
	if lerr != nil {
		return 0, lerr
	}
	if rerr != nil {
		return 0, rerr
	}
	lb, rb := rt.Unbox(lv), rt.Unbox(rv)
	if lb.Kind() != celvalue.KindBool {
		return 0, celerrors.UnexpectedType(lb.TypeName(), "bool").WithNode(op.NodeID)
	}
	if rb.Kind() != celvalue.KindBool {
		return 0, celerrors.UnexpectedType(rb.TypeName(), "bool").WithNode(op.NodeID)
	}
	return tagword.FromBool(lb.BoolValue() && rb.BoolValue()), nil
}

func (e *execState) evalOr(op *lower.Op, frame int64) (tagword.Word, error) {
	lv, lerr := e.call(op.Left, frame)
	if lerr == nil {
		if lb := rt.Unbox(lv); lb.Kind() == celvalue.KindBool && lb.BoolValue() {
			return tagword.FromBool(true), nil
		}
	}
	rv, rerr := e.call(op.Right, frame)
	if rerr == nil {
		if rb := rt.Unbox(rv); rb.Kind() == celvalue.KindBool && rb.BoolValue() {
			return tagword.FromBool(true), nil
		}
	}
	if lerr != nil {
		return 0, lerr
	}
	if rerr != nil {
		return 0, rerr
	}
	lb, rb := rt.Unbox(lv), rt.Unbox(rv)
	if lb.Kind() != celvalue.KindBool {
		return 0, celerrors.UnexpectedType(lb.TypeName(), "bool").WithNode(op.NodeID)
	}
	if rb.Kind() != celvalue.KindBool {
		return 0, celerrors.UnexpectedType(rb.TypeName(), "bool").WithNode(op.NodeID)
	}
	return tagword.FromBool(lb.BoolValue() || rb.BoolValue()), nil
}

func (e *execState) evalListLit(op *lower.Op, frame int64) (tagword.Word, error) {
	words := make([]tagword.Word, 0, len(op.Elems))
	for _, el := range op.Elems {
		w, err := e.call(el.Fn, frame)
		if err != nil {
			return 0, err
		}
		if el.Optional {
			v := rt.Unbox(w)
			opt, ok := celvalue.AsOptional(v)
			if !ok {
				return 0, celerrors.UnexpectedType(v.TypeName(), "optional_type").WithNode(op.NodeID)
			}
			if !opt.HasValue() {
				continue
			}
			w = rt.Box(opt.Value())
		}
		words = append(words, w)
	}
	return rt.RtMakeList(words...), nil
}

func (e *execState) evalMapLit(op *lower.Op, frame int64) (tagword.Word, error) {
	words := make([]tagword.Word, 0, len(op.Entries)*2)
	for _, me := range op.Entries {
		kw, err := e.call(me.KeyFn, frame)
		if err != nil {
			return 0, err
		}
		vw, err := e.call(me.ValFn, frame)
		if err != nil {
			return 0, err
		}
		if me.Optional {
			vv := rt.Unbox(vw)
			opt, ok := celvalue.AsOptional(vv)
			if !ok {
				return 0, celerrors.UnexpectedType(vv.TypeName(), "optional_type").WithNode(op.NodeID)
			}
			if !opt.HasValue() {
				continue
			}
			vw = rt.Box(opt.Value())
		}
		words = append(words, kw, vw)
	}
	w, err := rt.RtMakeMap(words...)
	if err != nil {
		return 0, wrapErr(err, op.NodeID)
	}
	return w, nil
}

// evalComprehension runs the bounded fold in Go, driving the already
// lowered range/accuInit/loopCond/loopStep/result sub-functions through a
// freshly allocated rt.Frame (§4.6), pushed onto e.frames so OpVar lookups
// from inside the loop body resolve AccuVar/IterVar/IterVar2.
func (e *execState) evalComprehension(op *lower.Op, parent int64) (tagword.Word, error) {
	rangeW, err := e.call(op.RangeFn, parent)
	if err != nil {
		return 0, err
	}
	rangeVal := rt.Unbox(rangeW)

	names := map[string]int{op.AccuVar: 0, op.IterVar: 1}
	if op.IterVar2 != "" {
		names[op.IterVar2] = 2
	}
	fe := &frameEntry{parent: parent, names: names, frame: rt.NewFrame(4)}
	e.frames = append(e.frames, fe)
	handle := int64(len(e.frames) - 1)

	accuInit, err := e.call(op.AccuInitFn, parent)
	if err != nil {
		return 0, err
	}
	fe.frame.RtSetSlot(0, accuInit)

	switch rangeVal.Kind() {
	case celvalue.KindMap:
		length := rt.RtMapLen(rangeW)
		for i := int64(0); i < length; i++ {
			keyW := rt.RtMapKeyAt(rangeW, i)
			fe.frame.RtSetSlot(1, keyW)
			if op.IterVar2 != "" {
				fe.frame.RtSetSlot(2, rt.RtMapValueAt(rangeW, i))
			}
			cont, err := e.stepLoop(op, fe, handle)
			rt.RtFreeValue(keyW)
			if err != nil {
				return 0, err
			}
			if !cont {
				break
			}
		}
	case celvalue.KindList:
		length := rt.RtListLen(rangeW)
		for i := int64(0); i < length; i++ {
			elemW, err := rt.RtListGet(rangeW, i)
			if err != nil {
				return 0, wrapErr(err, op.NodeID)
			}
			fe.frame.RtSetSlot(1, elemW)
			cont, err := e.stepLoop(op, fe, handle)
			rt.RtFreeValue(elemW)
			if err != nil {
				return 0, err
			}
			if !cont {
				break
			}
		}
	default:
		e.frames = e.frames[:len(e.frames)-1]
		return 0, celerrors.UnexpectedType(rangeVal.TypeName(), "list or map").WithNode(op.NodeID)
	}

	result, err := e.call(op.ResultFn, handle)
	rt.RtFreeValue(rangeW)
	e.frames = e.frames[:len(e.frames)-1]
	if err != nil {
		return 0, err
	}
	return result, nil
}

// stepLoop evaluates one iteration's condition and step, reporting whether
// the loop should continue.
func (e *execState) stepLoop(op *lower.Op, fe *frameEntry, handle int64) (bool, error) {
	condW, err := e.call(op.LoopCondFn, handle)
	if err != nil {
		return false, err
	}
	cond := rt.Unbox(condW)
	if cond.Kind() != celvalue.KindBool {
		return false, celerrors.UnexpectedType(cond.TypeName(), "bool").WithNode(op.NodeID)
	}
	if !cond.BoolValue() {
		return false, nil
	}
	stepW, err := e.call(op.LoopStepFn, handle)
	if err != nil {
		return false, err
	}
	prevAccu := fe.frame.RtGetSlot(0)
	if prevAccu != stepW {
		rt.RtFreeValue(prevAccu)
	}
	fe.frame.RtSetSlot(0, stepW)
	return true, nil
}

func (e *execState) evalCall(op *lower.Op, frame int64) (tagword.Word, error) {
	var recv *tagword.Word
	if op.Receiver != nil {
		rw, err := e.call(op.Receiver, frame)
		if err != nil {
			return 0, err
		}
		recv = &rw
	}
	args := make([]tagword.Word, len(op.Args))
	for i, afn := range op.Args {
		aw, err := e.call(afn, frame)
		if err != nil {
			return 0, err
		}
		args[i] = aw
	}
	return dispatchGeneric(e.ctx, op, recv, args)
}

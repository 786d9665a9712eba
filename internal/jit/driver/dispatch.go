package driver

import (
	"cel/internal/celcontext"
	"cel/internal/celerrors"
	"cel/internal/celvalue"
	"cel/internal/jit/lower"
	"cel/internal/jit/rt"
	"cel/internal/jit/tagword"
)

// dispatchGeneric resolves any call outside the fixed operator vocabulary:
// builtins, Object methods, and host-registered context functions, in the
// same tiered order as celeval's evalMethodCall/evalFreeCall, but routed
// entirely through internal/jit/rt's opcode table (§4.7) rather than a
// parallel Go reimplementation of celvalue-level semantics.
func dispatchGeneric(ctx *celcontext.Context, op *lower.Op, recv *tagword.Word, args []tagword.Word) (tagword.Word, error) {
	if recv != nil {
		return dispatchMethod(ctx, op, *recv, args)
	}
	return dispatchFree(ctx, op, args)
}

func dispatchMethod(ctx *celcontext.Context, op *lower.Op, recv tagword.Word, args []tagword.Word) (tagword.Word, error) {
	if w, ok, err := builtinMethod(op, recv, args); ok {
		return w, err
	}
	recvVal := rt.Unbox(recv)
	if recvVal.Kind() == celvalue.KindObject {
		if fn, ok := recvVal.ObjectValueOf().Method(op.Name); ok {
			v, err := fn(unboxAll(args))
			if err != nil {
				return 0, celerrors.FunctionError(op.Name, err).WithNode(op.NodeID)
			}
			return rt.Box(v), nil
		}
	}
	if fn, ok := ctx.LookupMethod(recvVal.TypeName(), op.Name); ok {
		return callHostFunction(op, fn, &recv, args)
	}
	if fn, ok := ctx.LookupFunction(op.Name); ok {
		return callHostFunction(op, fn, &recv, args)
	}
	return 0, celerrors.NoSuchOverload(op.Name).WithNode(op.NodeID)
}

func dispatchFree(ctx *celcontext.Context, op *lower.Op, args []tagword.Word) (tagword.Word, error) {
	if w, ok, err := builtinFunction(op, args); ok {
		return w, err
	}
	if fn, ok := ctx.LookupFunction(op.Name); ok {
		return callHostFunction(op, fn, nil, args)
	}
	return 0, celerrors.UndeclaredReference(op.Name).WithNode(op.NodeID)
}

func callHostFunction(op *lower.Op, fn celcontext.Function, recv *tagword.Word, args []tagword.Word) (tagword.Word, error) {
	w, err := rt.RtCallFunction(fn, recv, args)
	if err != nil {
		return 0, celerrors.FunctionError(op.Name, err).WithNode(op.NodeID)
	}
	return w, nil
}

func unboxAll(words []tagword.Word) []celvalue.Value {
	vals := make([]celvalue.Value, len(words))
	for i, w := range words {
		vals[i] = rt.Unbox(w)
	}
	return vals
}

// builtinMethod dispatches the fixed receiver-style builtins supplemented in
// SPEC_FULL.md, each one an internal/jit/rt opcode rather than a reimplemented
// celvalue call, mirroring celeval/call.go's builtinMethod tier order.
func builtinMethod(op *lower.Op, recv tagword.Word, args []tagword.Word) (tagword.Word, bool, error) {
	recvVal := rt.Unbox(recv)
	switch op.Name {
	case "contains":
		if recvVal.Kind() != celvalue.KindString || len(args) != 1 || rt.Unbox(args[0]).Kind() != celvalue.KindString {
			return 0, false, nil
		}
		return tagword.FromBool(rt.RtContains(recv, args[0])), true, nil
	case "startsWith":
		if recvVal.Kind() != celvalue.KindString || len(args) != 1 || rt.Unbox(args[0]).Kind() != celvalue.KindString {
			return 0, false, nil
		}
		return tagword.FromBool(rt.RtStartsWith(recv, args[0])), true, nil
	case "endsWith":
		if recvVal.Kind() != celvalue.KindString || len(args) != 1 || rt.Unbox(args[0]).Kind() != celvalue.KindString {
			return 0, false, nil
		}
		return tagword.FromBool(rt.RtEndsWith(recv, args[0])), true, nil
	case "matches":
		if recvVal.Kind() != celvalue.KindString || len(args) != 1 || rt.Unbox(args[0]).Kind() != celvalue.KindString {
			return 0, false, nil
		}
		ok, err := rt.RtMatches(recv, args[0])
		if err != nil {
			return 0, true, celerrors.FunctionError("matches", err).WithNode(op.NodeID)
		}
		return tagword.FromBool(ok), true, nil
	case "size":
		return rt.Box(celvalue.Int(rt.RtSize(recv))), true, nil
	case "getFullYear", "getMonth", "getDayOfMonth", "getDate", "getDayOfWeek", "getHours", "getMinutes", "getSeconds", "getMilliseconds":
		w, err := rt.RtTimeAccessor(op.Name, recv)
		if err != nil {
			// Name matched the outer switch but recv's kind doesn't carry
			// this accessor (e.g. getDate on a Duration); fall through to
			// the next dispatch tier rather than erroring, same as celeval.
			return 0, false, nil
		}
		return w, true, nil
	}
	return 0, false, nil
}

// builtinFunction dispatches the fixed free-function builtins, each an
// internal/jit/rt opcode, mirroring celeval/call.go's builtinFunction.
func builtinFunction(op *lower.Op, args []tagword.Word) (tagword.Word, bool, error) {
	switch op.Name {
	case "int":
		return coerce1(op, args, rt.RtInt)
	case "uint":
		return coerce1(op, args, rt.RtUint)
	case "double":
		return coerce1(op, args, rt.RtDouble)
	case "string":
		return coerce1(op, args, rt.RtString)
	case "bytes":
		return coerce1(op, args, rt.RtBytes)
	case "type":
		if len(args) != 1 {
			return 0, true, celerrors.NoSuchOverload("type").WithNode(op.NodeID)
		}
		return rt.RtType(args[0]), true, nil
	case "dyn":
		if len(args) != 1 {
			return 0, true, celerrors.NoSuchOverload("dyn").WithNode(op.NodeID)
		}
		return rt.RtDyn(args[0]), true, nil
	case "size":
		if len(args) != 1 {
			return 0, true, celerrors.NoSuchOverload("size").WithNode(op.NodeID)
		}
		return rt.Box(celvalue.Int(rt.RtSize(args[0]))), true, nil
	case "timestamp":
		if len(args) != 1 || rt.Unbox(args[0]).Kind() != celvalue.KindString {
			return 0, true, celerrors.NoSuchOverload("timestamp").WithNode(op.NodeID)
		}
		w, err := rt.RtParseTimestamp(args[0])
		if err != nil {
			return 0, true, wrapErr(err, op.NodeID)
		}
		return w, true, nil
	case "duration":
		if len(args) != 1 || rt.Unbox(args[0]).Kind() != celvalue.KindString {
			return 0, true, celerrors.NoSuchOverload("duration").WithNode(op.NodeID)
		}
		w, err := rt.RtParseDuration(args[0])
		if err != nil {
			return 0, true, wrapErr(err, op.NodeID)
		}
		return w, true, nil
	case "max":
		w, err := rt.RtMax(args...)
		if err != nil {
			return 0, true, wrapErr(err, op.NodeID)
		}
		return w, true, nil
	case "min":
		w, err := rt.RtMin(args...)
		if err != nil {
			return 0, true, wrapErr(err, op.NodeID)
		}
		return w, true, nil
	case "optional.of":
		if len(args) != 1 {
			return 0, true, celerrors.NoSuchOverload("optional.of").WithNode(op.NodeID)
		}
		return rt.RtOptionalOf(args[0]), true, nil
	case "optional.none":
		return rt.RtOptionalNone(), true, nil
	case "optional.ofNonZeroValue":
		if len(args) != 1 {
			return 0, true, celerrors.NoSuchOverload("optional.ofNonZeroValue").WithNode(op.NodeID)
		}
		return rt.RtOptionalOfNonZeroValue(args[0]), true, nil
	}
	return 0, false, nil
}

func coerce1(op *lower.Op, args []tagword.Word, fn func(tagword.Word) (tagword.Word, error)) (tagword.Word, bool, error) {
	if len(args) != 1 {
		return 0, true, celerrors.NoSuchOverload(op.Name).WithNode(op.NodeID)
	}
	w, err := fn(args[0])
	if err != nil {
		return 0, true, wrapErr(err, op.NodeID)
	}
	return w, true, nil
}

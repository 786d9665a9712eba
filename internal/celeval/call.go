package celeval

import (
	"regexp"
	"strings"

	"cel/internal/celast"
	"cel/internal/celcontext"
	"cel/internal/celerrors"
	"cel/internal/celvalue"
)

// Call.Function names for operators produced by the (external) parser.
// There is no textual grammar here, so these are the fixed vocabulary the
// evaluator recognizes before falling back to the context's function
// tables; anything outside this set is a regular named function or method.
const (
	opAnd       = "&&"
	opOr        = "||"
	opNot       = "!"
	opNeg       = "neg"
	opCond      = "?:"
	opIn        = "in"
	opIndex     = "index"
	opOptIndex  = "optindex"
	opEq        = "=="
	opNe        = "!="
	opLt        = "<"
	opLe        = "<="
	opGt        = ">"
	opGe        = ">="
	opAdd       = "+"
	opSub       = "-"
	opMul       = "*"
	opDiv       = "/"
	opRem       = "%"
)

func evalCall(node *celast.Call, s *scope) (celvalue.Value, error) {
	switch node.Function {
	case opAnd:
		return evalAnd(node, s)
	case opOr:
		return evalOr(node, s)
	case opCond:
		return evalCond(node, s)
	case opNot:
		return evalUnary(node, s, celvalue.Not)
	case opNeg:
		return evalUnary(node, s, celvalue.Negate)
	case opIn:
		return evalBinary(node, s, celvalue.In)
	case opIndex:
		return evalBinary(node, s, celvalue.Index)
	case opOptIndex:
		return evalOptIndex(node, s)
	case opEq:
		return evalEquality(node, s, true)
	case opNe:
		return evalEquality(node, s, false)
	case opLt:
		return evalOrdered(node, s, func(c int) bool { return c < 0 })
	case opLe:
		return evalOrdered(node, s, func(c int) bool { return c <= 0 })
	case opGt:
		return evalOrdered(node, s, func(c int) bool { return c > 0 })
	case opGe:
		return evalOrdered(node, s, func(c int) bool { return c >= 0 })
	case opAdd:
		return evalBinary(node, s, celvalue.Add)
	case opSub:
		return evalBinary(node, s, celvalue.Sub)
	case opMul:
		return evalBinary(node, s, celvalue.Mul)
	case opDiv:
		return evalBinary(node, s, celvalue.Div)
	case opRem:
		return evalBinary(node, s, celvalue.Rem)
	}

	if node.Receiver != nil {
		return evalMethodCall(node, s)
	}
	return evalFreeCall(node, s)
}

// evalAnd implements the commutative short-circuit `&&` (§4.3): a false
// operand wins even if evaluating the other operand would have errored.
func evalAnd(node *celast.Call, s *scope) (celvalue.Value, error) {
	lv, lerr := evalNode(node.Args[0], s)
	if lerr == nil && lv.Kind() == celvalue.KindBool && !lv.BoolValue() {
		return celvalue.Bool(false), nil
	}
	rv, rerr := evalNode(node.Args[1], s)
	if rerr == nil && rv.Kind() == celvalue.KindBool && !rv.BoolValue() {
		return celvalue.Bool(false), nil
	}
	if lerr != nil {
		return celvalue.Value{}, lerr
	}
	if rerr != nil {
		return celvalue.Value{}, rerr
	}
	if lv.Kind() != celvalue.KindBool {
		return celvalue.Value{}, celerrors.UnexpectedType(lv.TypeName(), "bool").WithNode(node.ID())
	}
	if rv.Kind() != celvalue.KindBool {
		return celvalue.Value{}, celerrors.UnexpectedType(rv.TypeName(), "bool").WithNode(node.ID())
	}
	return celvalue.Bool(lv.BoolValue() && rv.BoolValue()), nil
}

func evalOr(node *celast.Call, s *scope) (celvalue.Value, error) {
	lv, lerr := evalNode(node.Args[0], s)
	if lerr == nil && lv.Kind() == celvalue.KindBool && lv.BoolValue() {
		return celvalue.Bool(true), nil
	}
	rv, rerr := evalNode(node.Args[1], s)
	if rerr == nil && rv.Kind() == celvalue.KindBool && rv.BoolValue() {
		return celvalue.Bool(true), nil
	}
	if lerr != nil {
		return celvalue.Value{}, lerr
	}
	if rerr != nil {
		return celvalue.Value{}, rerr
	}
	if lv.Kind() != celvalue.KindBool {
		return celvalue.Value{}, celerrors.UnexpectedType(lv.TypeName(), "bool").WithNode(node.ID())
	}
	if rv.Kind() != celvalue.KindBool {
		return celvalue.Value{}, celerrors.UnexpectedType(rv.TypeName(), "bool").WithNode(node.ID())
	}
	return celvalue.Bool(lv.BoolValue() || rv.BoolValue()), nil
}

func evalCond(node *celast.Call, s *scope) (celvalue.Value, error) {
	cond, err := evalNode(node.Args[0], s)
	if err != nil {
		return celvalue.Value{}, err
	}
	if cond.Kind() != celvalue.KindBool {
		return celvalue.Value{}, celerrors.UnexpectedType(cond.TypeName(), "bool").WithNode(node.ID())
	}
	if cond.BoolValue() {
		return evalNode(node.Args[1], s)
	}
	return evalNode(node.Args[2], s)
}

func evalUnary(node *celast.Call, s *scope, op func(celvalue.Value) (celvalue.Value, error)) (celvalue.Value, error) {
	v, err := evalNode(node.Args[0], s)
	if err != nil {
		return celvalue.Value{}, err
	}
	out, err := op(v)
	if err != nil {
		return celvalue.Value{}, wrapNode(err, node.ID())
	}
	return out, nil
}

func evalBinary(node *celast.Call, s *scope, op func(l, r celvalue.Value) (celvalue.Value, error)) (celvalue.Value, error) {
	l, err := evalNode(node.Args[0], s)
	if err != nil {
		return celvalue.Value{}, err
	}
	r, err := evalNode(node.Args[1], s)
	if err != nil {
		return celvalue.Value{}, err
	}
	out, err := op(l, r)
	if err != nil {
		return celvalue.Value{}, wrapNode(err, node.ID())
	}
	return out, nil
}

func evalEquality(node *celast.Call, s *scope, want bool) (celvalue.Value, error) {
	l, err := evalNode(node.Args[0], s)
	if err != nil {
		return celvalue.Value{}, err
	}
	r, err := evalNode(node.Args[1], s)
	if err != nil {
		return celvalue.Value{}, err
	}
	return celvalue.Bool(celvalue.Equal(l, r) == want), nil
}

func evalOrdered(node *celast.Call, s *scope, ok func(int) bool) (celvalue.Value, error) {
	l, err := evalNode(node.Args[0], s)
	if err != nil {
		return celvalue.Value{}, err
	}
	r, err := evalNode(node.Args[1], s)
	if err != nil {
		return celvalue.Value{}, err
	}
	c, err := celvalue.Compare(l, r)
	if err != nil {
		return celvalue.Value{}, wrapNode(err, node.ID())
	}
	return celvalue.Bool(ok(c)), nil
}

func evalOptIndex(node *celast.Call, s *scope) (celvalue.Value, error) {
	target, err := evalNode(node.Args[0], s)
	if err != nil {
		return celvalue.Value{}, err
	}
	index, err := evalNode(node.Args[1], s)
	if err != nil {
		return celvalue.Value{}, err
	}
	v, err := celvalue.Index(target, index)
	if err != nil {
		return celvalue.ObjectValue(celvalue.OptionalNone()), nil
	}
	return celvalue.ObjectValue(celvalue.OptionalOf(v)), nil
}

func wrapNode(err error, id int64) error {
	if ce, ok := err.(*celerrors.Error); ok {
		return ce.WithNode(id)
	}
	return err
}

// evalArgs evaluates a Call's argument list in order, stopping at the
// first error (§7 source-order error reporting).
func evalArgs(args []celast.Node, s *scope) ([]celvalue.Value, error) {
	out := make([]celvalue.Value, len(args))
	for i, a := range args {
		v, err := evalNode(a, s)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func evalMethodCall(node *celast.Call, s *scope) (celvalue.Value, error) {
	recv, err := evalNode(node.Receiver, s)
	if err != nil {
		return celvalue.Value{}, err
	}
	args, err := evalArgs(node.Args, s)
	if err != nil {
		return celvalue.Value{}, err
	}

	if v, ok, err := builtinMethod(node, recv, args); ok {
		return v, err
	}

	if recv.Kind() == celvalue.KindObject {
		if fn, ok := recv.ObjectValueOf().Method(node.Function); ok {
			v, err := fn(args)
			if err != nil {
				return celvalue.Value{}, celerrors.FunctionError(node.Function, err).WithNode(node.ID())
			}
			return v, nil
		}
	}

	if fn, ok := s.ctx.LookupMethod(recv.TypeName(), node.Function); ok {
		return callHostFunction(node, fn, &recv, args)
	}
	if fn, ok := s.ctx.LookupFunction(node.Function); ok {
		return callHostFunction(node, fn, &recv, args)
	}
	return celvalue.Value{}, celerrors.NoSuchOverload(node.Function).WithNode(node.ID())
}

func evalFreeCall(node *celast.Call, s *scope) (celvalue.Value, error) {
	args, err := evalArgs(node.Args, s)
	if err != nil {
		return celvalue.Value{}, err
	}

	if v, ok, err := builtinFunction(node, args); ok {
		return v, err
	}

	if fn, ok := s.ctx.LookupFunction(node.Function); ok {
		return callHostFunction(node, fn, nil, args)
	}
	return celvalue.Value{}, celerrors.UndeclaredReference(node.Function).WithNode(node.ID())
}

func callHostFunction(node *celast.Call, fn celcontext.Function, recv *celvalue.Value, args []celvalue.Value) (celvalue.Value, error) {
	v, err := fn(recv, args)
	if err != nil {
		return celvalue.Value{}, celerrors.FunctionError(node.Function, err).WithNode(node.ID())
	}
	return v, nil
}

// builtinMethod implements the fixed receiver-style builtins supplemented
// in SPEC_FULL.md: string.contains/startsWith/endsWith/matches, and the
// universal size() entry point usable either free or as a receiver call.
func builtinMethod(node *celast.Call, recv celvalue.Value, args []celvalue.Value) (celvalue.Value, bool, error) {
	switch node.Function {
	case "contains":
		if recv.Kind() != celvalue.KindString || len(args) != 1 || args[0].Kind() != celvalue.KindString {
			return celvalue.Value{}, false, nil
		}
		return celvalue.Bool(strings.Contains(recv.StringValue(), args[0].StringValue())), true, nil
	case "startsWith":
		if recv.Kind() != celvalue.KindString || len(args) != 1 || args[0].Kind() != celvalue.KindString {
			return celvalue.Value{}, false, nil
		}
		return celvalue.Bool(strings.HasPrefix(recv.StringValue(), args[0].StringValue())), true, nil
	case "endsWith":
		if recv.Kind() != celvalue.KindString || len(args) != 1 || args[0].Kind() != celvalue.KindString {
			return celvalue.Value{}, false, nil
		}
		return celvalue.Bool(strings.HasSuffix(recv.StringValue(), args[0].StringValue())), true, nil
	case "matches":
		if recv.Kind() != celvalue.KindString || len(args) != 1 || args[0].Kind() != celvalue.KindString {
			return celvalue.Value{}, false, nil
		}
		ok, err := regexp.MatchString(args[0].StringValue(), recv.StringValue())
		if err != nil {
			return celvalue.Value{}, true, celerrors.FunctionError("matches", err).WithNode(node.ID())
		}
		return celvalue.Bool(ok), true, nil
	case "size":
		return celvalue.Int(int64(recv.Len())), true, nil
	case "getFullYear", "getMonth", "getDayOfMonth", "getDate", "getDayOfWeek", "getHours", "getMinutes", "getSeconds", "getMilliseconds":
		return timeAccessor(node, recv)
	}
	return celvalue.Value{}, false, nil
}

func timeAccessor(node *celast.Call, recv celvalue.Value) (celvalue.Value, bool, error) {
	switch recv.Kind() {
	case celvalue.KindTimestamp:
		ts := recv.TimestampValueOf()
		switch node.Function {
		case "getFullYear":
			return celvalue.Int(ts.GetFullYear()), true, nil
		case "getMonth":
			return celvalue.Int(ts.GetMonth()), true, nil
		case "getDayOfMonth":
			return celvalue.Int(ts.GetDayOfMonth()), true, nil
		case "getDate":
			return celvalue.Int(ts.GetDate()), true, nil
		case "getDayOfWeek":
			return celvalue.Int(ts.GetDayOfWeek()), true, nil
		case "getHours":
			return celvalue.Int(ts.GetHours()), true, nil
		case "getMinutes":
			return celvalue.Int(ts.GetMinutes()), true, nil
		case "getSeconds":
			return celvalue.Int(ts.GetSeconds()), true, nil
		case "getMilliseconds":
			return celvalue.Int(ts.GetMilliseconds()), true, nil
		}
	case celvalue.KindDuration:
		d := recv.DurationValueOf()
		switch node.Function {
		case "getHours":
			return celvalue.Int(d.GetHours()), true, nil
		case "getMinutes":
			return celvalue.Int(d.GetMinutes()), true, nil
		case "getSeconds":
			return celvalue.Int(d.GetSeconds()), true, nil
		case "getMilliseconds":
			return celvalue.Int(d.GetMilliseconds()), true, nil
		}
	}
	return celvalue.Value{}, false, nil
}

// builtinFunction implements the fixed free-function builtins: numeric/
// string/bytes coercions, dyn(), type(), size(), and variadic max/min
// (SPEC_FULL.md supplements).
func builtinFunction(node *celast.Call, args []celvalue.Value) (celvalue.Value, bool, error) {
	switch node.Function {
	case "int":
		return coerce1(node, args, celvalue.ToInt)
	case "uint":
		return coerce1(node, args, celvalue.ToUint)
	case "double":
		return coerce1(node, args, celvalue.ToDouble)
	case "string":
		return coerce1(node, args, celvalue.ToString)
	case "bytes":
		return coerce1(node, args, celvalue.ToBytes)
	case "type":
		if len(args) != 1 {
			return celvalue.Value{}, true, celerrors.NoSuchOverload("type").WithNode(node.ID())
		}
		return celvalue.ToType(args[0]), true, nil
	case "dyn":
		if len(args) != 1 {
			return celvalue.Value{}, true, celerrors.NoSuchOverload("dyn").WithNode(node.ID())
		}
		return celvalue.Dyn(args[0]), true, nil
	case "size":
		if len(args) != 1 {
			return celvalue.Value{}, true, celerrors.NoSuchOverload("size").WithNode(node.ID())
		}
		return celvalue.Int(int64(args[0].Len())), true, nil
	case "timestamp":
		if len(args) != 1 || args[0].Kind() != celvalue.KindString {
			return celvalue.Value{}, true, celerrors.NoSuchOverload("timestamp").WithNode(node.ID())
		}
		ts, err := celvalue.ParseTimestamp(args[0].StringValue())
		if err != nil {
			return celvalue.Value{}, true, wrapNode(err, node.ID())
		}
		return celvalue.TimestampValue(ts), true, nil
	case "duration":
		if len(args) != 1 || args[0].Kind() != celvalue.KindString {
			return celvalue.Value{}, true, celerrors.NoSuchOverload("duration").WithNode(node.ID())
		}
		d, err := celvalue.ParseDuration(args[0].StringValue())
		if err != nil {
			return celvalue.Value{}, true, wrapNode(err, node.ID())
		}
		return celvalue.DurationValue(d), true, nil
	case "max":
		return variadicExtreme(node, args, false)
	case "min":
		return variadicExtreme(node, args, true)
	case "optional.of":
		if len(args) != 1 {
			return celvalue.Value{}, true, celerrors.NoSuchOverload("optional.of").WithNode(node.ID())
		}
		return celvalue.ObjectValue(celvalue.OptionalOf(args[0])), true, nil
	case "optional.none":
		return celvalue.ObjectValue(celvalue.OptionalNone()), true, nil
	case "optional.ofNonZeroValue":
		if len(args) != 1 {
			return celvalue.Value{}, true, celerrors.NoSuchOverload("optional.ofNonZeroValue").WithNode(node.ID())
		}
		return celvalue.ObjectValue(celvalue.OptionalOfNonZeroValue(args[0])), true, nil
	}
	return celvalue.Value{}, false, nil
}

func coerce1(node *celast.Call, args []celvalue.Value, fn func(celvalue.Value) (celvalue.Value, error)) (celvalue.Value, bool, error) {
	if len(args) != 1 {
		return celvalue.Value{}, true, celerrors.NoSuchOverload(node.Function).WithNode(node.ID())
	}
	v, err := fn(args[0])
	if err != nil {
		return celvalue.Value{}, true, wrapNode(err, node.ID())
	}
	return v, true, nil
}

func variadicExtreme(node *celast.Call, args []celvalue.Value, wantMin bool) (celvalue.Value, bool, error) {
	args = unwrapLoneList(args)
	if len(args) == 0 {
		return celvalue.Value{}, true, celerrors.NoSuchOverload(node.Function).WithNode(node.ID())
	}
	best := args[0]
	for _, v := range args[1:] {
		c, err := celvalue.Compare(v, best)
		if err != nil {
			return celvalue.Value{}, true, wrapNode(err, node.ID())
		}
		if (wantMin && c < 0) || (!wantMin && c > 0) {
			best = v
		}
	}
	return best, true, nil
}

// unwrapLoneList implements max()/min()'s single-list-argument form
// (SPEC_FULL.md): max([1,2,3]) folds over the list's elements rather than
// treating the list itself as the sole scalar operand.
func unwrapLoneList(args []celvalue.Value) []celvalue.Value {
	if len(args) == 1 && args[0].Kind() == celvalue.KindList {
		return args[0].ListValue()
	}
	return args
}


package celeval

import (
	"math"
	"testing"

	"cel/internal/celast"
	"cel/internal/celcontext"
	"cel/internal/celvalue"
)

func lit(id int64, v celvalue.Value) *celast.InlineValue { return celast.NewInlineValue(id, v) }
func intLit(id int64, i int64) *celast.InlineValue        { return lit(id, celvalue.Int(i)) }

func call(id int64, fn string, args ...celast.Node) *celast.Call {
	return celast.NewCall(id, nil, fn, args...)
}

// TestArithmeticPrecedence exercises `1 + 2 * 3` built directly as an AST,
// spec §8's first worked scenario.
func TestArithmeticPrecedence(t *testing.T) {
	n := call(1, opAdd, intLit(2, 1), call(3, opMul, intLit(4, 2), intLit(5, 3)))
	v, err := Eval(n, celcontext.NewContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.IntValue() != 7 {
		t.Fatalf("got %d, want 7", v.IntValue())
	}
}

// TestFilterMapChain builds the comprehension pair that implements
// `[1,2,3,4].filter(x, x % 2 == 0).map(x, x * 10)` directly as nested
// Comprehension nodes, yielding [20, 40].
func TestFilterMapChain(t *testing.T) {
	listLit := celast.NewList(1,
		celast.Arg{Value: intLit(2, 1)}, celast.Arg{Value: intLit(3, 2)},
		celast.Arg{Value: intLit(4, 3)}, celast.Arg{Value: intLit(5, 4)},
	)

	filtered := celast.NewComprehension(10, listLit, "x", "__result__",
		celast.NewInlineValue(11, celvalue.List()),
		lit(12, celvalue.Bool(true)),
		call(13, opCond,
			call(14, opEq, call(15, opRem, celast.NewIdent(16, "x"), intLit(17, 2)), intLit(18, 0)),
			call(19, "appendx", celast.NewIdent(20, "__result__"), celast.NewIdent(21, "x")),
			celast.NewIdent(22, "__result__"),
		),
		celast.NewIdent(23, "__result__"),
	)

	mapped := celast.NewComprehension(30, filtered, "x", "__result__",
		celast.NewInlineValue(31, celvalue.List()),
		lit(32, celvalue.Bool(true)),
		call(33, "appendx", celast.NewIdent(34, "__result__"),
			call(35, opMul, celast.NewIdent(36, "x"), intLit(37, 10))),
		celast.NewIdent(38, "__result__"),
	)

	ctx := celcontext.NewContext()
	ctx.DefineFunction("appendx", func(recv *celvalue.Value, args []celvalue.Value) (celvalue.Value, error) {
		return args[0].Append(args[1]), nil
	})

	v, err := Eval(mapped, ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := v.ListValue()
	if len(got) != 2 || got[0].IntValue() != 20 || got[1].IntValue() != 40 {
		t.Fatalf("got %v, want [20, 40]", v.GoString())
	}
}

// TestHasMacro exercises `has(m.field)` over a map operand.
func TestHasMacro(t *testing.T) {
	m := celast.NewMap(1, celast.MapEntryNode{
		Key:   lit(2, celvalue.String("name")),
		Value: lit(3, celvalue.String("ok")),
	})
	sel := celast.NewSelect(4, m, "name", true)
	v, err := Eval(sel, celcontext.NewContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.BoolValue() {
		t.Fatalf("expected has(m.name) to be true")
	}

	selMissing := celast.NewSelect(5, m, "missing", true)
	v, err = Eval(selMissing, celcontext.NewContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.BoolValue() {
		t.Fatalf("expected has(m.missing) to be false")
	}
}

// TestTernary exercises `cond ? a : b` with both branches.
func TestTernary(t *testing.T) {
	n := call(1, opCond, lit(2, celvalue.Bool(true)), intLit(3, 1), intLit(4, 2))
	v, err := Eval(n, celcontext.NewContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.IntValue() != 1 {
		t.Fatalf("got %d, want 1", v.IntValue())
	}
}

// TestExistsOneOverLargeRange exercises the `all`/`exists_one`-shaped
// comprehension over 10000 elements (spec §8's scale scenario), counting
// how many elements equal a target and checking the count is exactly one.
func TestExistsOneOverLargeRange(t *testing.T) {
	const n = 10000
	elems := make([]celast.Arg, n)
	for i := 0; i < n; i++ {
		v := int64(0)
		if i == 42 {
			v = 1
		}
		elems[i] = celast.Arg{Value: intLit(int64(100+i), v)}
	}
	listLit := celast.NewList(1, elems...)

	comp := celast.NewComprehension(2, listLit, "x", "__count__",
		intLit(3, 0),
		lit(4, celvalue.Bool(true)),
		call(5, opAdd, celast.NewIdent(6, "__count__"),
			call(7, opCond, call(8, opEq, celast.NewIdent(9, "x"), intLit(10, 1)), intLit(11, 1), intLit(12, 0))),
		celast.NewIdent(13, "__count__"),
	)

	v, err := Eval(comp, celcontext.NewContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.IntValue() != 1 {
		t.Fatalf("got count %d, want exactly 1", v.IntValue())
	}
}

// TestTimestampOverflow exercises adding a duration that pushes a
// timestamp past the spec's upper bound.
func TestTimestampOverflow(t *testing.T) {
	ts, err := celvalue.ParseTimestamp("9999-12-31T23:59:59.999999999Z")
	if err != nil {
		t.Fatalf("parsing timestamp: %v", err)
	}
	n := call(1, opAdd, lit(2, celvalue.TimestampValue(ts)), lit(3, celvalue.DurationValue(celvalue.Duration(1))))
	_, err = Eval(n, celcontext.NewContext())
	if err == nil {
		t.Fatalf("expected overflow error")
	}
}

// TestDivisionAndNegationOverflow exercises MinInt64 negation and integer
// division by zero, both reported as errors rather than panics.
func TestDivisionAndNegationOverflow(t *testing.T) {
	neg := call(1, opNeg, lit(2, celvalue.Int(math.MinInt64)))
	if _, err := Eval(neg, celcontext.NewContext()); err == nil {
		t.Fatalf("expected overflow negating MinInt64")
	}

	div := call(3, opDiv, intLit(4, 1), intLit(5, 0))
	if _, err := Eval(div, celcontext.NewContext()); err == nil {
		t.Fatalf("expected division by zero")
	}
}

// TestOptionalChainingOrValue exercises `m.?missing.orValue(default)`.
func TestOptionalChainingOrValue(t *testing.T) {
	m := celast.NewMap(1, celast.MapEntryNode{
		Key:   lit(2, celvalue.String("present")),
		Value: lit(3, celvalue.Int(7)),
	})
	missing := celast.NewOptionalSelect(4, m, "missing", false, true)
	n := celast.NewCall(5, missing, "orValue", intLit(6, 99))

	v, err := Eval(n, celcontext.NewContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.IntValue() != 99 {
		t.Fatalf("got %d, want 99", v.IntValue())
	}

	present := celast.NewOptionalSelect(7, m, "present", false, true)
	n2 := celast.NewCall(8, present, "orValue", intLit(9, 99))
	v2, err := Eval(n2, celcontext.NewContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v2.IntValue() != 7 {
		t.Fatalf("got %d, want 7", v2.IntValue())
	}
}

// TestContainerFallbackResolution exercises scenario 9 end-to-end through
// the evaluator rather than celcontext directly: a bare identifier resolves
// via container-qualified fallback.
func TestContainerFallbackResolution(t *testing.T) {
	ctx := celcontext.NewContext()
	ctx.SetContainer("a.b.c")
	ctx.Define("a.b.X.Y", celvalue.Int(888))

	n := celast.NewIdent(1, "X.Y")
	v, err := Eval(n, ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.IntValue() != 888 {
		t.Fatalf("got %d, want 888", v.IntValue())
	}
}

// TestNaNComparisonInExpression exercises `1.0 < (0.0/0.0)` producing an
// error rather than a silent false.
func TestNaNComparisonInExpression(t *testing.T) {
	nan := call(1, opDiv, lit(2, celvalue.Double(0)), lit(3, celvalue.Double(0)))
	n := call(4, opLt, lit(5, celvalue.Double(1.0)), nan)
	if _, err := Eval(n, celcontext.NewContext()); err == nil {
		t.Fatalf("expected ValuesNotComparable against NaN")
	}
}

// TestUndeclaredReference exercises the UndeclaredReference error for a
// variable never defined in the context.
func TestUndeclaredReference(t *testing.T) {
	n := celast.NewIdent(1, "nope")
	if _, err := Eval(n, celcontext.NewContext()); err == nil {
		t.Fatalf("expected UndeclaredReference")
	}
}

package driver

import (
	"testing"

	"cel/internal/celast"
	"cel/internal/celcontext"
	"cel/internal/celvalue"
)

func run(t *testing.T, n celast.Node, ctx *celcontext.Context) celvalue.Value {
	t.Helper()
	p, err := Compile(n)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	v, err := p.Execute(ctx)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	return v
}

func TestExecuteLiteral(t *testing.T) {
	v := run(t, celast.NewInlineValue(1, celvalue.Int(42)), celcontext.NewContext())
	if v.IntValue() != 42 {
		t.Fatalf("got %v, want 42", v.GoString())
	}
}

func TestExecuteArithmetic(t *testing.T) {
	n := celast.NewCall(3, nil, "+", celast.NewInlineValue(1, celvalue.Int(2)), celast.NewInlineValue(2, celvalue.Int(3)))
	v := run(t, n, celcontext.NewContext())
	if v.IntValue() != 5 {
		t.Fatalf("got %v, want 5", v.GoString())
	}
}

func TestExecuteVariableLookup(t *testing.T) {
	ctx := celcontext.NewContext()
	ctx.Define("x", celvalue.Int(10))
	v := run(t, celast.NewIdent(1, "x"), ctx)
	if v.IntValue() != 10 {
		t.Fatalf("got %v, want 10", v.GoString())
	}
}

func TestExecuteAndShortCircuitsOnFalseDespiteOtherSideError(t *testing.T) {
	ctx := celcontext.NewContext()
	n := celast.NewCall(3, nil, "&&",
		celast.NewInlineValue(1, celvalue.Bool(false)),
		celast.NewIdent(2, "undeclared"),
	)
	v := run(t, n, ctx)
	if v.Kind() != celvalue.KindBool || v.BoolValue() {
		t.Fatalf("expected false, got %v", v.GoString())
	}
}

func TestExecuteAndPropagatesErrorWhenNeitherSideShortCircuits(t *testing.T) {
	ctx := celcontext.NewContext()
	n := celast.NewCall(3, nil, "&&",
		celast.NewInlineValue(1, celvalue.Bool(true)),
		celast.NewIdent(2, "undeclared"),
	)
	p, err := Compile(n)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if _, err := p.Execute(ctx); err == nil {
		t.Fatalf("expected an UndeclaredReference error")
	}
}

func TestExecuteTernary(t *testing.T) {
	n := celast.NewCall(4, nil, "?:",
		celast.NewInlineValue(1, celvalue.Bool(true)),
		celast.NewInlineValue(2, celvalue.String("yes")),
		celast.NewInlineValue(3, celvalue.String("no")),
	)
	v := run(t, n, celcontext.NewContext())
	if v.StringValue() != "yes" {
		t.Fatalf("got %q, want yes", v.StringValue())
	}
}

func TestExecuteListLiteral(t *testing.T) {
	n := celast.NewList(4,
		celast.Arg{Value: celast.NewInlineValue(1, celvalue.Int(1))},
		celast.Arg{Value: celast.NewInlineValue(2, celvalue.Int(2))},
		celast.Arg{Value: celast.NewInlineValue(3, celvalue.Int(3))},
	)
	v := run(t, n, celcontext.NewContext())
	if v.Len() != 3 {
		t.Fatalf("got len %d, want 3", v.Len())
	}
}

func TestExecuteComprehensionSum(t *testing.T) {
	items := celast.NewList(10,
		celast.Arg{Value: celast.NewInlineValue(1, celvalue.Int(1))},
		celast.Arg{Value: celast.NewInlineValue(2, celvalue.Int(2))},
		celast.Arg{Value: celast.NewInlineValue(3, celvalue.Int(3))},
	)
	n := celast.NewComprehension(11,
		items,
		"x",
		"out",
		celast.NewInlineValue(4, celvalue.Int(0)),
		celast.NewInlineValue(5, celvalue.Bool(true)),
		celast.NewCall(6, nil, "+", celast.NewIdent(7, "out"), celast.NewIdent(8, "x")),
		celast.NewIdent(9, "out"),
	)
	v := run(t, n, celcontext.NewContext())
	if v.IntValue() != 6 {
		t.Fatalf("got %v, want 6", v.GoString())
	}
}

func TestExecuteGenericCallHostFunction(t *testing.T) {
	ctx := celcontext.NewContext()
	ctx.DefineFunction("double", func(_ *celvalue.Value, args []celvalue.Value) (celvalue.Value, error) {
		return celvalue.Int(args[0].IntValue() * 2), nil
	})
	n := celast.NewCall(2, nil, "double", celast.NewInlineValue(1, celvalue.Int(21)))
	v := run(t, n, ctx)
	if v.IntValue() != 42 {
		t.Fatalf("got %v, want 42", v.GoString())
	}
}

func TestExecuteBuiltinMethodContains(t *testing.T) {
	n := celast.NewCall(2, celast.NewInlineValue(1, celvalue.String("hello world")), "contains", celast.NewInlineValue(3, celvalue.String("world")))
	v := run(t, n, celcontext.NewContext())
	if !v.BoolValue() {
		t.Fatalf("expected contains to report true")
	}
}

func TestExecuteSelectField(t *testing.T) {
	m := celvalue.Map(celvalue.MapEntry{Key: mustKey(t, celvalue.String("name")), Value: celvalue.String("cel")})
	n := celast.NewSelect(2, celast.NewInlineValue(1, m), "name", false)
	v := run(t, n, celcontext.NewContext())
	if v.StringValue() != "cel" {
		t.Fatalf("got %q, want cel", v.StringValue())
	}
}

func mustKey(t *testing.T, v celvalue.Value) celvalue.Key {
	t.Helper()
	k, err := celvalue.ToKey(v)
	if err != nil {
		t.Fatalf("ToKey: %v", err)
	}
	return k
}

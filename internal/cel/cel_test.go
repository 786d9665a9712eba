package cel

import (
	"reflect"
	"testing"

	"cel/internal/celast"
	"cel/internal/celvalue"
)

func lit(id int64, v celvalue.Value) *celast.InlineValue { return celast.NewInlineValue(id, v) }
func intLit(id int64, i int64) *celast.InlineValue        { return lit(id, celvalue.Int(i)) }

func call(id int64, fn string, args ...celast.Node) *celast.Call {
	return celast.NewCall(id, nil, fn, args...)
}

// TestCompileExecute exercises spec §8 scenario 1, `1 + 2 * 3`, through the
// public Env/Program surface rather than calling celeval directly.
func TestCompileExecute(t *testing.T) {
	env := NewEnv()
	n := call(1, "+", intLit(2, 1), call(3, "*", intLit(4, 2), intLit(5, 3)))

	prog, err := env.Compile(n)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	v, err := prog.Execute(env.Activation())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if v.IntValue() != 7 {
		t.Fatalf("got %d, want 7", v.IntValue())
	}
}

// TestExecuteJITParity checks that the JIT backend agrees with the
// interpreter on the same compiled Program (§8 "interpreted and JIT
// execution yield the same result").
func TestExecuteJITParity(t *testing.T) {
	env := NewEnv()
	env.Define("x", celvalue.Int(15))
	n := call(1, "?:",
		call(2, ">", celast.NewIdent(3, "x"), intLit(4, 10)),
		call(5, "*", celast.NewIdent(6, "x"), intLit(7, 2)),
		call(8, "+", celast.NewIdent(9, "x"), intLit(10, 5)),
	)

	prog, err := env.Compile(n)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	interpreted, err := prog.Execute(env.Activation())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	jitted, err := prog.ExecuteJIT(env.Activation())
	if err != nil {
		t.Fatalf("ExecuteJIT: %v", err)
	}
	if interpreted.IntValue() != 30 || jitted.IntValue() != 30 {
		t.Fatalf("Execute=%v ExecuteJIT=%v, want 30", interpreted.GoString(), jitted.GoString())
	}
}

// TestCompileCachedRepeatedKey exercises Env.CompileCached with two
// sequential compiles under the same cache key. singleflight only shares
// calls that are in flight together, so each call here compiles; both
// resulting programs must evaluate to 42.
func TestCompileCachedRepeatedKey(t *testing.T) {
	env := NewEnv()
	n := intLit(1, 42)

	p1, err := env.CompileCached("the-answer", n)
	if err != nil {
		t.Fatalf("CompileCached: %v", err)
	}
	p2, err := env.CompileCached("the-answer", n)
	if err != nil {
		t.Fatalf("CompileCached: %v", err)
	}
	v1, err := p1.Execute(env.Activation())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	v2, err := p2.Execute(env.Activation())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if v1.IntValue() != 42 || v2.IntValue() != 42 {
		t.Fatalf("got %v / %v, want 42 / 42", v1.GoString(), v2.GoString())
	}
}

// TestVariableNamesSorted exercises the Env.VariableNames diagnostic,
// registered independently of insertion order.
func TestVariableNamesSorted(t *testing.T) {
	env := NewEnv()
	env.Define("zeta", celvalue.Int(1))
	env.Define("alpha", celvalue.Int(2))
	env.Define("mu", celvalue.Int(3))

	got := env.VariableNames()
	want := []string{"alpha", "mu", "zeta"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("VariableNames() = %v, want %v", got, want)
	}
}

// TestUndeclaredReferenceError exercises the public AsError helper against
// a structured error surfaced through the façade.
func TestUndeclaredReferenceError(t *testing.T) {
	env := NewEnv()
	prog, err := env.Compile(celast.NewIdent(1, "missing"))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	_, err = prog.Execute(env.Activation())
	if err == nil {
		t.Fatalf("expected an error for an undeclared identifier")
	}
	ce, ok := AsError(err)
	if !ok {
		t.Fatalf("expected a *celerrors.Error, got %T", err)
	}
	if ce.Kind != "UndeclaredReference" {
		t.Fatalf("got kind %s, want UndeclaredReference", ce.Kind)
	}
}

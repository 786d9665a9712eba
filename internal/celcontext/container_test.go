package celcontext

import (
	"reflect"
	"testing"

	"cel/internal/celvalue"
)

func TestCandidatesOrder(t *testing.T) {
	got := Candidates("a.b.c", "R.s")
	want := []string{"a.b.c.R.s", "a.b.R.s", "a.R.s", "R.s"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Candidates() = %v, want %v", got, want)
	}
}

func TestCandidatesAbsolute(t *testing.T) {
	got := Candidates("a.b.c", ".R.s")
	want := []string{"R.s"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Candidates() = %v, want %v", got, want)
	}
}

func TestCandidatesEmptyContainer(t *testing.T) {
	got := Candidates("", "R.s")
	want := []string{"R.s"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Candidates() = %v, want %v", got, want)
	}
}

// TestFallbackResolutionWins exercises spec §8 scenario 9: container a.b.c
// with only a.b.X.Y registered resolves X.Y to it, even though a.b.c.X.Y is
// tried first and doesn't exist.
func TestFallbackResolutionWins(t *testing.T) {
	ctx := NewContext()
	ctx.SetContainer("a.b.c")
	ctx.Define("a.b.X.Y", celvalue.Int(888))

	v, ok := ctx.ResolveVariable("X.Y")
	if !ok {
		t.Fatalf("expected X.Y to resolve via container fallback")
	}
	if v.IntValue() != 888 {
		t.Fatalf("X.Y = %d, want 888", v.IntValue())
	}
}

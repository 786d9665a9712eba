package celvalue

import (
	"math"
	"testing"

	"github.com/kr/pretty"
)

func TestAddOverflow(t *testing.T) {
	_, err := Add(Int(math.MaxInt64), Int(1))
	if err == nil {
		t.Fatalf("expected overflow, got nil error")
	}
}

func TestNegateMinIntOverflows(t *testing.T) {
	_, err := Negate(Int(math.MinInt64))
	if err == nil {
		t.Fatalf("expected overflow negating MinInt64")
	}
}

func TestDivisionByZero(t *testing.T) {
	_, err := Div(Int(1), Int(0))
	if err == nil {
		t.Fatalf("expected division by zero error")
	}
	if _, ferr := Div(Double(1), Double(0)); ferr != nil {
		t.Fatalf("float division by zero should not error: %v", ferr)
	}
}

func TestNaNEquality(t *testing.T) {
	nan := Double(math.NaN())
	if Equal(nan, nan) {
		t.Fatalf("NaN == NaN must be false")
	}
	if _, err := Compare(Double(1.0), nan); err == nil {
		t.Fatalf("expected ValuesNotComparable against NaN")
	}
}

func TestCrossNumericOrdering(t *testing.T) {
	cases := []struct {
		l, r Value
		want int
	}{
		{Int(-1), Uint(0), -1},
		{Uint(5), Int(-1), 1},
		{Int(2), Double(2.5), -1},
		{Uint(3), Double(3.0), 0},
	}
	for _, c := range cases {
		got, err := Compare(c.l, c.r)
		if err != nil {
			t.Fatalf("Compare(%# v, %# v): %v", pretty.Formatter(c.l), pretty.Formatter(c.r), err)
		}
		if got != c.want {
			t.Errorf("Compare(%s, %s) = %d, want %d", c.l.GoString(), c.r.GoString(), got, c.want)
		}
	}
}

func TestListAppendCOW(t *testing.T) {
	base := List(Int(1), Int(2))
	a := base.Append(Int(3))
	b := base.Append(Int(4))
	if got := a.ListValue(); len(got) != 3 || got[2].IntValue() != 3 {
		t.Fatalf("a = %v", pretty.Sprint(a.ListValue()))
	}
	if got := b.ListValue(); len(got) != 3 || got[2].IntValue() != 4 {
		t.Fatalf("b = %v", pretty.Sprint(b.ListValue()))
	}
	if len(base.ListValue()) != 2 {
		t.Fatalf("base mutated by Append: %v", pretty.Sprint(base.ListValue()))
	}
}

func TestMapLiteralLaterKeyWins(t *testing.T) {
	m := Map(
		MapEntry{Key: StringKey("a"), Value: Int(1)},
		MapEntry{Key: StringKey("a"), Value: Int(2)},
	)
	v, ok := m.Get(StringKey("a"))
	if !ok || v.IntValue() != 2 {
		t.Fatalf("expected later key to win, got %# v", pretty.Formatter(v))
	}
}

func TestUnsupportedKeyType(t *testing.T) {
	_, err := ToKey(Double(1.5))
	if err == nil {
		t.Fatalf("expected UnsupportedKeyType for a double key")
	}
}

func TestTimestampBounds(t *testing.T) {
	max, err := ParseTimestamp("9999-12-31T23:59:59.999999999Z")
	if err != nil {
		t.Fatalf("parsing max timestamp: %v", err)
	}
	if _, err := TimestampValue(max).ts.AddDuration(1); err == nil {
		t.Fatalf("expected overflow adding 1ns past max timestamp")
	}
}

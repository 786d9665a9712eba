package rt

import (
	"testing"

	"cel/internal/celvalue"
	"cel/internal/jit/tagword"
)

func TestBoxUnboxInlineKinds(t *testing.T) {
	for _, v := range []celvalue.Value{celvalue.Int(7), celvalue.Bool(true), celvalue.Null} {
		w := Box(v)
		if got := Unbox(w); !celvalue.Equal(got, v) {
			t.Fatalf("Box/Unbox round trip for %s: got %s", v.GoString(), got.GoString())
		}
	}
}

func TestBoxHeapFallback(t *testing.T) {
	v := celvalue.String("hello")
	w := Box(v)
	if w.Tag() != tagword.TagHeapPtr {
		t.Fatalf("string should heap-box, got tag %v", w.Tag())
	}
	if got := Unbox(w); got.StringValue() != "hello" {
		t.Fatalf("Unbox = %q, want hello", got.StringValue())
	}
}

func TestArithmeticOpcodes(t *testing.T) {
	sum, err := RtAdd(Box(celvalue.Int(2)), Box(celvalue.Int(3)))
	if err != nil {
		t.Fatalf("RtAdd: %v", err)
	}
	if Unbox(sum).IntValue() != 5 {
		t.Fatalf("RtAdd = %d, want 5", Unbox(sum).IntValue())
	}

	if _, err := RtDiv(Box(celvalue.Int(1)), Box(celvalue.Int(0))); err == nil {
		t.Fatalf("expected division by zero")
	}
}

func TestComparisonOpcodes(t *testing.T) {
	if !Unbox(RtEq(Box(celvalue.Int(1)), Box(celvalue.Int(1)))).BoolValue() {
		t.Fatalf("RtEq(1, 1) should be true")
	}
	lt, err := RtLt(Box(celvalue.Int(1)), Box(celvalue.Int(2)))
	if err != nil || !Unbox(lt).BoolValue() {
		t.Fatalf("RtLt(1, 2) should be true, err=%v", err)
	}
}

func TestToBoolRejectsNonBool(t *testing.T) {
	if _, err := RtToBool(Box(celvalue.Int(1))); err == nil {
		t.Fatalf("expected UnexpectedType coercing int to bool")
	}
}

func TestListFastPath(t *testing.T) {
	list := RtMakeList(Box(celvalue.Int(1)), Box(celvalue.Int(2)), Box(celvalue.Int(3)))
	if RtListLen(list) != 3 {
		t.Fatalf("RtListLen = %d, want 3", RtListLen(list))
	}
	appended := RtListAppend(list, Box(celvalue.Int(4)))
	if RtListLen(appended) != 4 {
		t.Fatalf("RtListLen after append = %d, want 4", RtListLen(appended))
	}
	if RtListLen(list) != 3 {
		t.Fatalf("RtListAppend mutated the original list")
	}
}

func TestMapFastPath(t *testing.T) {
	m, err := RtMakeMap(Box(celvalue.String("a")), Box(celvalue.Int(1)), Box(celvalue.String("a")), Box(celvalue.Int(2)))
	if err != nil {
		t.Fatalf("RtMakeMap: %v", err)
	}
	v, err := RtMember(m, "a")
	if err != nil {
		t.Fatalf("RtMember: %v", err)
	}
	if Unbox(v).IntValue() != 2 {
		t.Fatalf("later key should win, got %d", Unbox(v).IntValue())
	}
}

func TestFrameSlots(t *testing.T) {
	f := NewFrame(2) // below minimum, should grow to 4
	f.RtSetSlot(0, Box(celvalue.Int(10)))
	if Unbox(f.RtGetSlot(0)).IntValue() != 10 {
		t.Fatalf("slot 0 round trip failed")
	}
	cloned := f.RtGetSlotCloned(0)
	if Unbox(cloned).IntValue() != 10 {
		t.Fatalf("cloned slot value mismatch")
	}
}

func TestStringHelpers(t *testing.T) {
	s := Box(celvalue.String("hello world"))
	if !RtContains(s, Box(celvalue.String("world"))) {
		t.Fatalf("expected contains to be true")
	}
	if !RtStartsWith(s, Box(celvalue.String("hello"))) {
		t.Fatalf("expected startsWith to be true")
	}
	if !RtEndsWith(s, Box(celvalue.String("world"))) {
		t.Fatalf("expected endsWith to be true")
	}
}

func TestMaxMin(t *testing.T) {
	max, err := RtMax(Box(celvalue.Int(3)), Box(celvalue.Int(7)), Box(celvalue.Int(1)))
	if err != nil || Unbox(max).IntValue() != 7 {
		t.Fatalf("RtMax = %v, err=%v", Unbox(max).GoString(), err)
	}
	min, err := RtMin(Box(celvalue.Int(3)), Box(celvalue.Int(7)), Box(celvalue.Int(1)))
	if err != nil || Unbox(min).IntValue() != 1 {
		t.Fatalf("RtMin = %v, err=%v", Unbox(min).GoString(), err)
	}
}

func TestCallFunction(t *testing.T) {
	fn := func(recv *celvalue.Value, args []celvalue.Value) (celvalue.Value, error) {
		return args[0].Append(args[1]), nil
	}
	out, err := RtCallFunction(fn, nil, []tagword.Word{
		Box(celvalue.List(celvalue.Int(1))),
		Box(celvalue.Int(2)),
	})
	if err != nil {
		t.Fatalf("RtCallFunction: %v", err)
	}
	got := Unbox(out).ListValue()
	if len(got) != 2 || got[1].IntValue() != 2 {
		t.Fatalf("unexpected result: %v", Unbox(out).GoString())
	}
}

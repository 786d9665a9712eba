package tagword

import (
	"testing"
	"unsafe"

	"cel/internal/celvalue"
)

func TestIntRoundTrip(t *testing.T) {
	for _, i := range []int64{0, 1, -1, minInline, maxInline, 12345, -54321} {
		w := FromInt(i)
		if w.Tag() != TagInt {
			t.Fatalf("FromInt(%d).Tag() = %v, want TagInt", i, w.Tag())
		}
		if got := w.Int(); got != i {
			t.Fatalf("FromInt(%d).Int() = %d", i, got)
		}
	}
}

func TestIntOutOfRangePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for out-of-range inline integer")
		}
	}()
	FromInt(maxInline + 1)
}

func TestInRange(t *testing.T) {
	if !InRange(maxInline) || !InRange(minInline) {
		t.Fatalf("bounds should be in range")
	}
	if InRange(maxInline+1) || InRange(minInline-1) {
		t.Fatalf("one past the bounds should be out of range")
	}
}

func TestBoolRoundTrip(t *testing.T) {
	for _, b := range []bool{true, false} {
		w := FromBool(b)
		if w.Tag() != TagBool {
			t.Fatalf("FromBool(%v).Tag() = %v, want TagBool", b, w.Tag())
		}
		if got := w.Bool(); got != b {
			t.Fatalf("FromBool(%v).Bool() = %v", b, got)
		}
	}
}

func TestNull(t *testing.T) {
	if !Null.IsNull() {
		t.Fatalf("Null.IsNull() = false")
	}
	if FromInt(0).IsNull() {
		t.Fatalf("FromInt(0) must not read as null")
	}
}

func TestPtrRoundTrip(t *testing.T) {
	v := celvalue.Int(42)
	p := unsafe.Pointer(&v)
	w := FromPtr(p)
	if w.Tag() != TagHeapPtr {
		t.Fatalf("FromPtr(...).Tag() = %v, want TagHeapPtr", w.Tag())
	}
	if w.Ptr() != p {
		t.Fatalf("Ptr() round-trip mismatch")
	}
}

func TestUnalignedPointerPanics(t *testing.T) {
	var b [16]byte
	unaligned := unsafe.Pointer(&b[1])
	if uintptr(unaligned)%8 == 0 {
		t.Skip("allocator happened to align this buffer; nothing to test")
	}
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for unaligned pointer")
		}
	}()
	FromPtr(unaligned)
}

func TestValueAlignmentAssumption(t *testing.T) {
	var v celvalue.Value
	if unsafe.Alignof(v) < alignmentOf8 {
		t.Fatalf("celvalue.Value alignment %d is below the tag scheme's assumption of %d", unsafe.Alignof(v), alignmentOf8)
	}
}

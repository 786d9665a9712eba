package celvalue

import "cel/internal/celerrors"

// Equal implements `==` (§3, §4.1): reflexive except NaN, with cross-numeric
// equality between int/uint/float, and false (never an error) across
// unrelated broad kinds.
func Equal(l, r Value) bool {
	switch {
	case l.kind == KindInt && r.kind == KindInt:
		return l.i == r.i
	case l.kind == KindUint && r.kind == KindUint:
		return l.u == r.u
	case l.kind == KindDouble && r.kind == KindDouble:
		return l.f == r.f // NaN != NaN falls out of IEEE-754 comparison
	case isNumeric(l.kind) && isNumeric(r.kind):
		cmp, ok := compareCrossNumeric(l, r)
		return ok && cmp == 0
	case l.kind != r.kind:
		return equalAcrossOtherKinds(l, r)
	case l.kind == KindNull:
		return true
	case l.kind == KindBool:
		return l.b == r.b
	case l.kind == KindString:
		return l.s == r.s
	case l.kind == KindBytes:
		return l.s == r.s
	case l.kind == KindDuration:
		return l.dur == r.dur
	case l.kind == KindTimestamp:
		return l.ts.Equal(r.ts)
	case l.kind == KindList:
		return equalLists(l, r)
	case l.kind == KindMap:
		return equalMaps(l, r)
	case l.kind == KindObject:
		return equalObjects(l, r)
	default:
		return false
	}
}

func equalAcrossOtherKinds(l, r Value) bool {
	// Two distinct object type names are simply unequal, never an error (§3).
	return false
}

func equalObjects(l, r Value) bool {
	if l.obj == nil || r.obj == nil {
		return l.obj == nil && r.obj == nil
	}
	if l.obj.TypeName() != r.obj.TypeName() {
		return false
	}
	return l.obj.Equal(r.obj)
}

func equalLists(l, r Value) bool {
	a, b := l.list.elems, r.list.elems
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func equalMaps(l, r Value) bool {
	if l.mp.len() != r.mp.len() {
		return false
	}
	for _, e := range l.mp.entries() {
		rv, ok := r.mp.get(e.Key)
		if !ok || !Equal(e.Value, rv) {
			return false
		}
	}
	return true
}

func isNumeric(k Kind) bool {
	return k == KindInt || k == KindUint || k == KindDouble
}

// compareCrossNumeric compares int/uint/float operands per §3: mixed
// int/uint compares as the mathematical integer (a negative int is always
// less than any uint); mixed int/float or uint/float promotes the integer
// to float. ok is false when either operand is a NaN float, signalling
// "no ordering" rather than a -1/0/1 result.
func compareCrossNumeric(l, r Value) (int, bool) {
	if l.kind == KindDouble && isNaN(l.f) {
		return 0, false
	}
	if r.kind == KindDouble && isNaN(r.f) {
		return 0, false
	}
	switch {
	case l.kind == KindInt && r.kind == KindUint:
		if l.i < 0 {
			return -1, true
		}
		return cmpUint(uint64(l.i), r.u), true
	case l.kind == KindUint && r.kind == KindInt:
		if r.i < 0 {
			return 1, true
		}
		return cmpUint(l.u, uint64(r.i)), true
	case l.kind == KindInt && r.kind == KindDouble:
		return cmpFloat(float64(l.i), r.f), true
	case l.kind == KindDouble && r.kind == KindInt:
		return cmpFloat(l.f, float64(r.i)), true
	case l.kind == KindUint && r.kind == KindDouble:
		return cmpFloat(float64(l.u), r.f), true
	case l.kind == KindDouble && r.kind == KindUint:
		return cmpFloat(l.f, float64(r.u)), true
	case l.kind == KindInt && r.kind == KindInt:
		return cmpInt(l.i, r.i), true
	case l.kind == KindUint && r.kind == KindUint:
		return cmpUint(l.u, r.u), true
	case l.kind == KindDouble && r.kind == KindDouble:
		return cmpFloat(l.f, r.f), true
	default:
		return 0, false
	}
}

func isNaN(f float64) bool { return f != f }

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Compare implements the ordering operators `<`, `<=`, `>`, `>=` (§4.1).
// It returns ValuesNotComparable when no ordering is defined for the
// operand kinds, or when either numeric operand is NaN (§3).
func Compare(l, r Value) (int, error) {
	switch {
	case isNumeric(l.kind) && isNumeric(r.kind):
		cmp, ok := compareCrossNumeric(l, r)
		if !ok {
			return 0, notComparableErr(l, r)
		}
		return cmp, nil
	case l.kind == KindString && r.kind == KindString:
		switch {
		case l.s < r.s:
			return -1, nil
		case l.s > r.s:
			return 1, nil
		default:
			return 0, nil
		}
	case l.kind == KindBool && r.kind == KindBool:
		if l.b == r.b {
			return 0, nil
		}
		if !l.b && r.b {
			return -1, nil
		}
		return 1, nil
	case l.kind == KindTimestamp && r.kind == KindTimestamp:
		return l.ts.Compare(r.ts), nil
	case l.kind == KindDuration && r.kind == KindDuration:
		return cmpInt(int64(l.dur), int64(r.dur)), nil
	default:
		return 0, notComparableErr(l, r)
	}
}

func notComparableErr(l, r Value) error {
	return celerrors.ValuesNotComparable(l.TypeName(), r.TypeName())
}

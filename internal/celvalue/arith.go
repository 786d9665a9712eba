package celvalue

import (
	"cel/internal/celerrors"
	"math"
)

// Add implements the `+` operator (§4.1): int+int, uint+uint, float+float,
// string and bytes concatenation, list concatenation, duration+duration,
// and timestamp+duration in either operand order.
func Add(l, r Value) (Value, error) {
	switch {
	case l.kind == KindInt && r.kind == KindInt:
		sum := l.i + r.i
		if (r.i > 0 && sum < l.i) || (r.i < 0 && sum > l.i) {
			return Value{}, overflowErr("+", l, r)
		}
		return Int(sum), nil
	case l.kind == KindUint && r.kind == KindUint:
		sum := l.u + r.u
		if sum < l.u {
			return Value{}, overflowErr("+", l, r)
		}
		return Uint(sum), nil
	case l.kind == KindDouble && r.kind == KindDouble:
		return Double(l.f + r.f), nil
	case l.kind == KindString && r.kind == KindString:
		return String(l.s + r.s), nil
	case l.kind == KindBytes && r.kind == KindBytes:
		return Bytes([]byte(l.s + r.s)), nil
	case l.kind == KindList && r.kind == KindList:
		elems := append(append([]Value{}, l.list.elems...), r.list.elems...)
		return List(elems...), nil
	case l.kind == KindDuration && r.kind == KindDuration:
		return DurationValue(l.dur + r.dur), nil
	case l.kind == KindTimestamp && r.kind == KindDuration:
		ts, err := l.ts.AddDuration(r.dur)
		if err != nil {
			return Value{}, err
		}
		return TimestampValue(ts), nil
	case l.kind == KindDuration && r.kind == KindTimestamp:
		ts, err := r.ts.AddDuration(l.dur)
		if err != nil {
			return Value{}, err
		}
		return TimestampValue(ts), nil
	default:
		return Value{}, unsupportedBinaryErr("+", l, r)
	}
}

// Sub implements the `-` operator (§4.1).
func Sub(l, r Value) (Value, error) {
	switch {
	case l.kind == KindInt && r.kind == KindInt:
		diff := l.i - r.i
		if (r.i < 0 && diff < l.i) || (r.i > 0 && diff > l.i) {
			return Value{}, overflowErr("-", l, r)
		}
		return Int(diff), nil
	case l.kind == KindUint && r.kind == KindUint:
		if r.u > l.u {
			return Value{}, overflowErr("-", l, r)
		}
		return Uint(l.u - r.u), nil
	case l.kind == KindDouble && r.kind == KindDouble:
		return Double(l.f - r.f), nil
	case l.kind == KindDuration && r.kind == KindDuration:
		return DurationValue(l.dur - r.dur), nil
	case l.kind == KindTimestamp && r.kind == KindDuration:
		ts, err := l.ts.SubDuration(r.dur)
		if err != nil {
			return Value{}, err
		}
		return TimestampValue(ts), nil
	case l.kind == KindTimestamp && r.kind == KindTimestamp:
		d, err := l.ts.SubTimestamp(r.ts)
		if err != nil {
			return Value{}, err
		}
		return DurationValue(d), nil
	default:
		return Value{}, unsupportedBinaryErr("-", l, r)
	}
}

// Mul implements the `*` operator.
func Mul(l, r Value) (Value, error) {
	switch {
	case l.kind == KindInt && r.kind == KindInt:
		if l.i == 0 || r.i == 0 {
			return Int(0), nil
		}
		prod := l.i * r.i
		if prod/r.i != l.i {
			return Value{}, overflowErr("*", l, r)
		}
		return Int(prod), nil
	case l.kind == KindUint && r.kind == KindUint:
		if l.u == 0 || r.u == 0 {
			return Uint(0), nil
		}
		prod := l.u * r.u
		if prod/r.u != l.u {
			return Value{}, overflowErr("*", l, r)
		}
		return Uint(prod), nil
	case l.kind == KindDouble && r.kind == KindDouble:
		return Double(l.f * r.f), nil
	default:
		return Value{}, unsupportedBinaryErr("*", l, r)
	}
}

// Div implements the `/` operator. Integer division by zero fails with
// DivisionByZero; float division by zero follows IEEE-754 (±Inf or NaN).
func Div(l, r Value) (Value, error) {
	switch {
	case l.kind == KindInt && r.kind == KindInt:
		if r.i == 0 {
			return Value{}, celerrors.DivisionByZero(l.GoString())
		}
		if l.i == math.MinInt64 && r.i == -1 {
			return Value{}, overflowErr("/", l, r)
		}
		return Int(l.i / r.i), nil
	case l.kind == KindUint && r.kind == KindUint:
		if r.u == 0 {
			return Value{}, celerrors.DivisionByZero(l.GoString())
		}
		return Uint(l.u / r.u), nil
	case l.kind == KindDouble && r.kind == KindDouble:
		return Double(l.f / r.f), nil
	default:
		return Value{}, unsupportedBinaryErr("/", l, r)
	}
}

// Rem implements the `%` operator, integer-only per §4.1.
func Rem(l, r Value) (Value, error) {
	switch {
	case l.kind == KindInt && r.kind == KindInt:
		if r.i == 0 {
			return Value{}, celerrors.RemainderByZero(l.GoString())
		}
		if l.i == math.MinInt64 && r.i == -1 {
			return Value{}, overflowErr("%", l, r)
		}
		return Int(l.i % r.i), nil
	case l.kind == KindUint && r.kind == KindUint:
		if r.u == 0 {
			return Value{}, celerrors.RemainderByZero(l.GoString())
		}
		return Uint(l.u % r.u), nil
	default:
		return Value{}, unsupportedBinaryErr("%", l, r)
	}
}

// Negate implements unary `-_`: checked int negation, float negation.
func Negate(v Value) (Value, error) {
	switch v.kind {
	case KindInt:
		if v.i == math.MinInt64 {
			return Value{}, celerrors.Overflow("-", v.GoString(), "")
		}
		return Int(-v.i), nil
	case KindDouble:
		return Double(-v.f), nil
	default:
		return Value{}, unsupportedUnaryErr("-", v)
	}
}

// Not implements unary `!_`, bool-only.
func Not(v Value) (Value, error) {
	if v.kind != KindBool {
		return Value{}, unsupportedUnaryErr("!", v)
	}
	return Bool(!v.b), nil
}

func overflowErr(op string, l, r Value) error {
	return celerrors.Overflow(op, l.GoString(), r.GoString())
}

func unsupportedBinaryErr(op string, l, r Value) error {
	return celerrors.UnsupportedBinaryOperator(op, l.TypeName(), r.TypeName())
}

func unsupportedUnaryErr(op string, v Value) error {
	return celerrors.UnsupportedUnaryOperator(op, v.TypeName())
}

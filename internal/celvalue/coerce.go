package celvalue

import (
	"cel/internal/celerrors"
	"math"
	"strconv"
)

// ToInt implements the `int(x)` coercion (§4.1): numerics, bool-free;
// strings parse as base-10 integers; timestamps convert to Unix seconds.
// An out-of-range uint or double fails with Overflow; a string that does
// not parse (or does not fit int64) fails with Conversion.
func ToInt(v Value) (Value, error) {
	switch v.kind {
	case KindInt:
		return v, nil
	case KindUint:
		if v.u > math.MaxInt64 {
			return Value{}, celerrors.Overflow("int", v.GoString(), "")
		}
		return Int(int64(v.u)), nil
	case KindDouble:
		if v.f < math.MinInt64 || v.f >= math.MaxInt64 {
			return Value{}, celerrors.Overflow("int", v.GoString(), "")
		}
		return Int(int64(v.f)), nil
	case KindString:
		i, err := strconv.ParseInt(v.s, 10, 64)
		if err != nil {
			return Value{}, celerrors.Conversion("int", v.s)
		}
		return Int(i), nil
	case KindTimestamp:
		return Int(v.ts.Time().Unix()), nil
	default:
		return Value{}, celerrors.Conversion("int", v.TypeName())
	}
}

// ToUint implements `uint(x)`: rejects negative inputs per §4.1.
func ToUint(v Value) (Value, error) {
	switch v.kind {
	case KindUint:
		return v, nil
	case KindInt:
		if v.i < 0 {
			return Value{}, celerrors.Conversion("uint", v.GoString())
		}
		return Uint(uint64(v.i)), nil
	case KindDouble:
		if v.f < 0 || v.f >= math.MaxUint64 {
			return Value{}, celerrors.Overflow("uint", v.GoString(), "")
		}
		return Uint(uint64(v.f)), nil
	case KindString:
		u, err := strconv.ParseUint(v.s, 10, 64)
		if err != nil {
			return Value{}, celerrors.Conversion("uint", v.s)
		}
		return Uint(u), nil
	default:
		return Value{}, celerrors.Conversion("uint", v.TypeName())
	}
}

// ToDouble implements `double(x)`.
func ToDouble(v Value) (Value, error) {
	switch v.kind {
	case KindDouble:
		return v, nil
	case KindInt:
		return Double(float64(v.i)), nil
	case KindUint:
		return Double(float64(v.u)), nil
	case KindString:
		f, err := strconv.ParseFloat(v.s, 64)
		if err != nil {
			return Value{}, celerrors.Conversion("double", v.s)
		}
		return Double(f), nil
	default:
		return Value{}, celerrors.Conversion("double", v.TypeName())
	}
}

// ToString implements `string(x)` (§4.1): formats numerics, booleans,
// timestamps (RFC3339), durations (Go-style), and bytes (lossy UTF-8).
func ToString(v Value) (Value, error) {
	switch v.kind {
	case KindString:
		return v, nil
	case KindBytes:
		return String(v.s), nil
	case KindBool, KindInt, KindUint, KindDouble:
		s, err := FormatNumeric(v)
		if err != nil {
			return Value{}, err
		}
		return String(s), nil
	case KindTimestamp:
		return String(v.ts.String()), nil
	case KindDuration:
		return String(v.dur.String()), nil
	default:
		return Value{}, celerrors.Conversion("string", v.TypeName())
	}
}

// ToBytes implements `bytes(x)`.
func ToBytes(v Value) (Value, error) {
	switch v.kind {
	case KindBytes:
		return v, nil
	case KindString:
		return Bytes([]byte(v.s)), nil
	default:
		return Value{}, celerrors.Conversion("bytes", v.TypeName())
	}
}

// ToType implements `type(x)`, returning the type name as a string value.
// Real CEL returns a first-class `type` value; since type-checking is
// explicitly out of scope (§1 Non-goals), this system represents it as its
// printable name, sufficient for `string(type(x)) == "int"`-style checks.
func ToType(v Value) Value {
	return String(v.TypeName())
}

// Dyn implements the supplemented `dyn(x)` identity coercion (SPEC_FULL.md):
// since this evaluator performs no type checking, dyn is a no-op.
func Dyn(v Value) Value { return v }

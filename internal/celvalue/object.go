package celvalue

import "cel/internal/celerrors"

// Object is the capability bundle a host type implements to appear as a CEL
// `object` value (§6 "User value types" / §9 "Polymorphism and dynamic
// dispatch"): a stable type name, an optional field accessor, and an
// optional per-type method table. Equality between two objects dispatches
// by type-name match and then by Equal.
type Object interface {
	// TypeName is a stable identifier used for equality dispatch and
	// diagnostics; it must never change for a given Go type.
	TypeName() string
	// Field looks up a member by name. ok is false when no such field
	// exists, which the evaluator surfaces as NoSuchKey.
	Field(name string) (Value, bool)
	// Method looks up a receiver-call by name, returning a callable that
	// accepts the already-evaluated argument list.
	Method(name string) (func(args []Value) (Value, error), bool)
	// Equal reports whether other (known to share TypeName()) is equal to
	// the receiver.
	Equal(other Object) bool
}

// Optional is the glossary's "special object type with exactly two shapes":
// of(v) and none(). It implements Object so it participates in the same
// selection/equality machinery as any other user type.
type Optional struct {
	present bool
	value   Value
}

// OptionalOf constructs a present optional wrapping v.
func OptionalOf(v Value) Optional { return Optional{present: true, value: v} }

// OptionalNone constructs an absent optional.
func OptionalNone() Optional { return Optional{} }

// OptionalOfNonZeroValue returns None() when v.IsZero(), else Of(v), per
// SPEC_FULL.md's supplemented ofNonZeroValue semantics.
func OptionalOfNonZeroValue(v Value) Optional {
	if v.IsZero() {
		return OptionalNone()
	}
	return OptionalOf(v)
}

// HasValue reports whether o holds a value.
func (o Optional) HasValue() bool { return o.present }

// Value returns the wrapped value; callers must check HasValue first.
func (o Optional) Value() Value { return o.value }

// OrValue returns the wrapped value if present, else fallback.
func (o Optional) OrValue(fallback Value) Value {
	if o.present {
		return o.value
	}
	return fallback
}

func (o Optional) TypeName() string { return "optional" }

func (o Optional) Field(name string) (Value, bool) {
	return Value{}, false
}

func (o Optional) Method(name string) (func(args []Value) (Value, error), bool) {
	switch name {
	case "hasValue":
		return func(args []Value) (Value, error) {
			return Bool(o.present), nil
		}, true
	case "orValue":
		return func(args []Value) (Value, error) {
			if len(args) != 1 {
				return Value{}, optionalArityErr("orValue")
			}
			return o.OrValue(args[0]), nil
		}, true
	case "value":
		return func(args []Value) (Value, error) {
			if !o.present {
				return Value{}, optionalEmptyErr()
			}
			return o.value, nil
		}, true
	default:
		return nil, false
	}
}

func (o Optional) Equal(other Object) bool {
	oo, ok := other.(Optional)
	if !ok {
		return false
	}
	if o.present != oo.present {
		return false
	}
	if !o.present {
		return true
	}
	return Equal(o.value, oo.value)
}

func optionalArityErr(method string) error {
	return celerrors.NoSuchOverload("optional." + method)
}

func optionalEmptyErr() error {
	return celerrors.NoSuchKey("optional.none().value()")
}

// AsOptional reports whether v is an Optional object, returning it if so.
func AsOptional(v Value) (Optional, bool) {
	if v.kind != KindObject {
		return Optional{}, false
	}
	opt, ok := v.obj.(Optional)
	return opt, ok
}

// Package rt is the runtime opcode library the JIT-lowered basic blocks
// call into (spec §4.7): a fixed table of Go functions operating on
// tagword.Word, each one unboxing its operands, delegating to
// internal/celvalue for the actual semantics, and reboxing the result.
// Every celvalue-level error is returned rather than panicking, matching
// the tree-walking evaluator's "first error wins" contract (§7) so the two
// execution strategies agree on outcome for the same program.
package rt

import (
	"regexp"
	"strings"
	"unsafe"

	"cel/internal/celerrors"
	"cel/internal/celvalue"
	"cel/internal/jit/tagword"
)

// Box converts a celvalue.Value into a tagged Word, inlining ints, bools,
// and null, and heap-boxing everything else (§4.5).
func Box(v celvalue.Value) tagword.Word {
	switch v.Kind() {
	case celvalue.KindInt:
		if tagword.InRange(v.IntValue()) {
			return tagword.FromInt(v.IntValue())
		}
	case celvalue.KindBool:
		return tagword.FromBool(v.BoolValue())
	case celvalue.KindNull:
		return tagword.Null
	}
	boxed := v
	return tagword.FromPtr(unsafe.Pointer(&boxed))
}

// Unbox recovers the celvalue.Value a Word was constructed from.
func Unbox(w tagword.Word) celvalue.Value {
	switch w.Tag() {
	case tagword.TagInt:
		return celvalue.Int(w.Int())
	case tagword.TagBool:
		return celvalue.Bool(w.Bool())
	case tagword.TagNull:
		return celvalue.Null
	default:
		return *(*celvalue.Value)(w.Ptr())
	}
}

// Frame is the fast-slot array backing one comprehension loop or function
// activation (§4.6: "at least 4 slots; slot 0 is the accumulator, slot 1
// is the iteration variable").
type Frame struct {
	slots []tagword.Word
}

// NewFrame allocates a frame with n slots, raising n to 4 when smaller.
// The driver allocates one such frame per comprehension activation and
// chains nested comprehensions through separate frames.
func NewFrame(n int) *Frame {
	if n < 4 {
		n = 4
	}
	return &Frame{slots: make([]tagword.Word, n)}
}

// RtSetSlot stores w at index i.
func (f *Frame) RtSetSlot(i int, w tagword.Word) { f.slots[i] = w }

// RtGetSlot loads the Word at index i.
func (f *Frame) RtGetSlot(i int) tagword.Word { return f.slots[i] }

// RtGetSlotCloned loads slot i as an independent celvalue.Value. celvalue's
// own copy-on-write discipline (internal/celvalue/collections.go) already
// makes this safe to hand to a nested comprehension without the caller
// observing outer-loop mutation, so cloning is just Unbox+Box through the
// value layer rather than a deep structural copy.
func (f *Frame) RtGetSlotCloned(i int) tagword.Word {
	return Box(Unbox(f.slots[i]))
}

// RtFreeValue is a documented no-op: heap-boxed Words are ordinary Go
// pointers, reclaimed by the garbage collector once the frame holding them
// is unreferenced. The opcode exists so lowered IR has an explicit release
// point symmetric with a native allocator-backed backend, in case
// internal/jit/driver is later swapped for one (see DESIGN.md's JIT backend
// Open Question resolution).
func RtFreeValue(tagword.Word) {}

func binOp(op func(l, r celvalue.Value) (celvalue.Value, error)) func(l, r tagword.Word) (tagword.Word, error) {
	return func(l, r tagword.Word) (tagword.Word, error) {
		out, err := op(Unbox(l), Unbox(r))
		if err != nil {
			return 0, err
		}
		return Box(out), nil
	}
}

var (
	// RtAdd, RtSub, ... are the binary arithmetic opcodes (§4.1, §4.7).
	RtAdd = binOp(celvalue.Add)
	RtSub = binOp(celvalue.Sub)
	RtMul = binOp(celvalue.Mul)
	RtDiv = binOp(celvalue.Div)
	RtRem = binOp(celvalue.Rem)
	RtIn  = binOp(celvalue.In)
)

// RtEq, RtNe implement `==`/`!=`; they never error (§3).
func RtEq(l, r tagword.Word) tagword.Word {
	return tagword.FromBool(celvalue.Equal(Unbox(l), Unbox(r)))
}

func RtNe(l, r tagword.Word) tagword.Word {
	return tagword.FromBool(!celvalue.Equal(Unbox(l), Unbox(r)))
}

func ordered(ok func(int) bool) func(l, r tagword.Word) (tagword.Word, error) {
	return func(l, r tagword.Word) (tagword.Word, error) {
		c, err := celvalue.Compare(Unbox(l), Unbox(r))
		if err != nil {
			return 0, err
		}
		return tagword.FromBool(ok(c)), nil
	}
}

var (
	RtLt = ordered(func(c int) bool { return c < 0 })
	RtLe = ordered(func(c int) bool { return c <= 0 })
	RtGt = ordered(func(c int) bool { return c > 0 })
	RtGe = ordered(func(c int) bool { return c >= 0 })
)

// RtNot implements `!_`.
func RtNot(w tagword.Word) (tagword.Word, error) {
	out, err := celvalue.Not(Unbox(w))
	if err != nil {
		return 0, err
	}
	return Box(out), nil
}

// RtNeg implements unary `-_`.
func RtNeg(w tagword.Word) (tagword.Word, error) {
	out, err := celvalue.Negate(Unbox(w))
	if err != nil {
		return 0, err
	}
	return Box(out), nil
}

// RtToBool coerces w's truthiness for a conditional branch; only a bool
// Word is truthy/falsy, anything else is a type error (§4.1's ternary and
// `&&`/`||` require bool operands).
func RtToBool(w tagword.Word) (bool, error) {
	v := Unbox(w)
	if v.Kind() != celvalue.KindBool {
		return false, celerrors.UnexpectedType(v.TypeName(), "bool")
	}
	return v.BoolValue(), nil
}

// RtIndex implements `[]`.
func RtIndex(target, index tagword.Word) (tagword.Word, error) {
	out, err := celvalue.Index(Unbox(target), Unbox(index))
	if err != nil {
		return 0, err
	}
	return Box(out), nil
}

// RtHas implements the `has()` macro test against a map field name.
func RtHas(target tagword.Word, field string) tagword.Word {
	v := Unbox(target)
	switch v.Kind() {
	case celvalue.KindMap:
		key, err := celvalue.ToKey(celvalue.String(field))
		if err != nil {
			return tagword.FromBool(false)
		}
		_, ok := v.Get(key)
		return tagword.FromBool(ok)
	case celvalue.KindObject:
		_, ok := v.ObjectValueOf().Field(field)
		return tagword.FromBool(ok)
	default:
		return tagword.FromBool(false)
	}
}

// RtMember implements `.field` select against a map or object.
func RtMember(target tagword.Word, field string) (tagword.Word, error) {
	v := Unbox(target)
	switch v.Kind() {
	case celvalue.KindMap:
		key, err := celvalue.ToKey(celvalue.String(field))
		if err != nil {
			return 0, celerrors.NoSuchKey(field)
		}
		fv, ok := v.Get(key)
		if !ok {
			return 0, celerrors.NoSuchKey(field)
		}
		return Box(fv), nil
	case celvalue.KindObject:
		fv, ok := v.ObjectValueOf().Field(field)
		if !ok {
			return 0, celerrors.NoSuchKey(field)
		}
		return Box(fv), nil
	default:
		return 0, celerrors.NoSuchKey(field)
	}
}

// RtMakeList builds a list Word from already-boxed element Words.
func RtMakeList(elems ...tagword.Word) tagword.Word {
	vals := make([]celvalue.Value, len(elems))
	for i, e := range elems {
		vals[i] = Unbox(e)
	}
	return Box(celvalue.List(vals...))
}

// RtMakeMap builds a map Word from alternating already-boxed key/value
// Words, later keys overwriting earlier ones (§4.3's map-literal rule).
func RtMakeMap(keysAndValues ...tagword.Word) (tagword.Word, error) {
	if len(keysAndValues)%2 != 0 {
		panic("rt: RtMakeMap requires an even number of key/value Words")
	}
	entries := make([]celvalue.MapEntry, 0, len(keysAndValues)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		kv := Unbox(keysAndValues[i])
		key, err := celvalue.ToKey(kv)
		if err != nil {
			return 0, err
		}
		entries = append(entries, celvalue.MapEntry{Key: key, Value: Unbox(keysAndValues[i+1])})
	}
	return Box(celvalue.Map(entries...)), nil
}

// RtListLen and RtListGet walk list-typed comprehension ranges (§4.6);
// RtListAppend returns a new list Word without changing its list argument.
func RtListLen(w tagword.Word) int64 { return int64(Unbox(w).Len()) }

func RtListGet(w tagword.Word, i int64) (tagword.Word, error) {
	out, err := celvalue.Index(Unbox(w), celvalue.Int(i))
	if err != nil {
		return 0, err
	}
	return Box(out), nil
}

func RtListAppend(list, elem tagword.Word) tagword.Word {
	return Box(Unbox(list).Append(Unbox(elem)))
}

// RtSize implements the universal size() builtin (SPEC_FULL.md: size() may
// be called free or as a receiver method).
func RtSize(w tagword.Word) int64 { return int64(Unbox(w).Len()) }

// RtMapLen, RtMapKeyAt, RtMapValueAt back map-typed comprehension ranges
// (§4.6): the driver indexes a map's stable-per-evaluation entry order by
// position rather than walking a Go map directly from JIT-compiled code.
func RtMapLen(w tagword.Word) int64 { return int64(len(Unbox(w).MapValue())) }

func RtMapKeyAt(w tagword.Word, i int64) tagword.Word {
	return Box(Unbox(w).MapValue()[i].Key.ToValue())
}

func RtMapValueAt(w tagword.Word, i int64) tagword.Word {
	return Box(Unbox(w).MapValue()[i].Value)
}

// RtOptSelect implements the `.?field` optional-chaining select: it never
// raises NoSuchKey, instead wrapping the outcome in optional.of/none (§4.3).
func RtOptSelect(target tagword.Word, field string) tagword.Word {
	v, err := RtMember(target, field)
	if err != nil {
		return Box(celvalue.ObjectValue(celvalue.OptionalNone()))
	}
	return Box(celvalue.ObjectValue(celvalue.OptionalOf(Unbox(v))))
}

// RtOptIndex implements the `coll[?k]` optional index: a failed lookup
// yields optional.none() rather than propagating the index error (§4.3).
func RtOptIndex(target, index tagword.Word) tagword.Word {
	out, err := celvalue.Index(Unbox(target), Unbox(index))
	if err != nil {
		return Box(celvalue.ObjectValue(celvalue.OptionalNone()))
	}
	return Box(celvalue.ObjectValue(celvalue.OptionalOf(out)))
}

// RtParseTimestamp, RtParseDuration back the timestamp()/duration() free
// functions (SPEC_FULL.md).
func RtParseTimestamp(s tagword.Word) (tagword.Word, error) {
	ts, err := celvalue.ParseTimestamp(Unbox(s).StringValue())
	if err != nil {
		return 0, err
	}
	return Box(celvalue.TimestampValue(ts)), nil
}

func RtParseDuration(s tagword.Word) (tagword.Word, error) {
	d, err := celvalue.ParseDuration(Unbox(s).StringValue())
	if err != nil {
		return 0, err
	}
	return Box(celvalue.DurationValue(d)), nil
}

// RtTimeAccessor dispatches one of the getFullYear/getMonth/... receiver
// methods against a Timestamp or Duration Word, mirroring celeval's
// timeAccessor (internal/celeval/call.go).
func RtTimeAccessor(name string, w tagword.Word) (tagword.Word, error) {
	v := Unbox(w)
	switch v.Kind() {
	case celvalue.KindTimestamp:
		ts := v.TimestampValueOf()
		switch name {
		case "getFullYear":
			return Box(celvalue.Int(ts.GetFullYear())), nil
		case "getMonth":
			return Box(celvalue.Int(ts.GetMonth())), nil
		case "getDayOfMonth":
			return Box(celvalue.Int(ts.GetDayOfMonth())), nil
		case "getDate":
			return Box(celvalue.Int(ts.GetDate())), nil
		case "getDayOfWeek":
			return Box(celvalue.Int(ts.GetDayOfWeek())), nil
		case "getHours":
			return Box(celvalue.Int(ts.GetHours())), nil
		case "getMinutes":
			return Box(celvalue.Int(ts.GetMinutes())), nil
		case "getSeconds":
			return Box(celvalue.Int(ts.GetSeconds())), nil
		case "getMilliseconds":
			return Box(celvalue.Int(ts.GetMilliseconds())), nil
		}
	case celvalue.KindDuration:
		d := v.DurationValueOf()
		switch name {
		case "getHours":
			return Box(celvalue.Int(d.GetHours())), nil
		case "getMinutes":
			return Box(celvalue.Int(d.GetMinutes())), nil
		case "getSeconds":
			return Box(celvalue.Int(d.GetSeconds())), nil
		case "getMilliseconds":
			return Box(celvalue.Int(d.GetMilliseconds())), nil
		}
	}
	return 0, celerrors.NoSuchOverload(name)
}

// RtDyn, RtOptionalOf, RtOptionalNone, RtOptionalOfNonZeroValue back the
// remaining free-function builtins not already covered above.
func RtDyn(w tagword.Word) tagword.Word { return Box(celvalue.Dyn(Unbox(w))) }

func RtOptionalOf(w tagword.Word) tagword.Word {
	return Box(celvalue.ObjectValue(celvalue.OptionalOf(Unbox(w))))
}

func RtOptionalNone() tagword.Word {
	return Box(celvalue.ObjectValue(celvalue.OptionalNone()))
}

func RtOptionalOfNonZeroValue(w tagword.Word) tagword.Word {
	return Box(celvalue.ObjectValue(celvalue.OptionalOfNonZeroValue(Unbox(w))))
}

// RtContains, RtStartsWith, RtEndsWith back the supplemented string helper
// methods (SPEC_FULL.md, grounded on cel-rust's `functions/string.rs`).
func RtContains(s, sub tagword.Word) bool {
	return strings.Contains(Unbox(s).StringValue(), Unbox(sub).StringValue())
}

func RtStartsWith(s, prefix tagword.Word) bool {
	return strings.HasPrefix(Unbox(s).StringValue(), Unbox(prefix).StringValue())
}

func RtEndsWith(s, suffix tagword.Word) bool {
	return strings.HasSuffix(Unbox(s).StringValue(), Unbox(suffix).StringValue())
}

func RtMatches(s, pattern tagword.Word) (bool, error) {
	return regexp.MatchString(Unbox(pattern).StringValue(), Unbox(s).StringValue())
}

func unaryCoerce(fn func(celvalue.Value) (celvalue.Value, error)) func(tagword.Word) (tagword.Word, error) {
	return func(w tagword.Word) (tagword.Word, error) {
		out, err := fn(Unbox(w))
		if err != nil {
			return 0, err
		}
		return Box(out), nil
	}
}

var (
	// RtString, RtInt, RtUint, RtDouble, RtBytes back the numeric/string
	// coercion builtins (§4.1).
	RtString = unaryCoerce(celvalue.ToString)
	RtInt    = unaryCoerce(celvalue.ToInt)
	RtUint   = unaryCoerce(celvalue.ToUint)
	RtDouble = unaryCoerce(celvalue.ToDouble)
	RtBytes  = unaryCoerce(celvalue.ToBytes)
)

// RtType implements type().
func RtType(w tagword.Word) tagword.Word { return Box(celvalue.ToType(Unbox(w))) }

// RtMax, RtMin implement the supplemented variadic max()/min() (SPEC_FULL.md).
func RtMax(args ...tagword.Word) (tagword.Word, error) { return extreme(args, false) }
func RtMin(args ...tagword.Word) (tagword.Word, error) { return extreme(args, true) }

func extreme(args []tagword.Word, wantMin bool) (tagword.Word, error) {
	args = unwrapLoneList(args)
	if len(args) == 0 {
		return 0, celerrors.NoSuchOverload("max/min")
	}
	best := Unbox(args[0])
	for _, a := range args[1:] {
		v := Unbox(a)
		c, err := celvalue.Compare(v, best)
		if err != nil {
			return 0, err
		}
		if (wantMin && c < 0) || (!wantMin && c > 0) {
			best = v
		}
	}
	return Box(best), nil
}

// unwrapLoneList mirrors celeval's unwrapLoneList: a single list-typed
// argument to max()/min() is folded over its elements instead of being
// treated as the sole scalar operand (SPEC_FULL.md).
func unwrapLoneList(args []tagword.Word) []tagword.Word {
	if len(args) != 1 {
		return args
	}
	v := Unbox(args[0])
	if v.Kind() != celvalue.KindList {
		return args
	}
	elems := v.ListValue()
	words := make([]tagword.Word, len(elems))
	for i, e := range elems {
		words[i] = Box(e)
	}
	return words
}

// RtCallFunction is the generic dispatch opcode lowered for any call the
// fast paths above don't cover: it hands the already-boxed receiver (if
// any) and argument Words to a host-registered celcontext.Function,
// unboxing/reboxing at the call boundary.
func RtCallFunction(fn func(recv *celvalue.Value, args []celvalue.Value) (celvalue.Value, error), recv *tagword.Word, args []tagword.Word) (tagword.Word, error) {
	var recvVal *celvalue.Value
	if recv != nil {
		v := Unbox(*recv)
		recvVal = &v
	}
	argVals := make([]celvalue.Value, len(args))
	for i, a := range args {
		argVals[i] = Unbox(a)
	}
	out, err := fn(recvVal, argVals)
	if err != nil {
		return 0, err
	}
	return Box(out), nil
}

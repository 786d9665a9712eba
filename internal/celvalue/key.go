package celvalue

import "cel/internal/celerrors"

// KeyKind identifies which of the four permitted map-key variants a Key holds.
type KeyKind uint8

const (
	KeyInt KeyKind = iota
	KeyUint
	KeyBool
	KeyString
)

// Key is a map key, restricted to int, uint, bool, or string per §3. It is
// a plain comparable struct so it can be used directly as a Go map key.
type Key struct {
	kind KeyKind
	i    int64
	u    uint64
	b    bool
	s    string
}

func IntKey(i int64) Key     { return Key{kind: KeyInt, i: i} }
func UintKey(u uint64) Key   { return Key{kind: KeyUint, u: u} }
func BoolKey(b bool) Key     { return Key{kind: KeyBool, b: b} }
func StringKey(s string) Key { return Key{kind: KeyString, s: s} }

func (k Key) Kind() KeyKind { return k.kind }

// ToValue converts a Key back to the Value it was constructed from.
func (k Key) ToValue() Value {
	switch k.kind {
	case KeyInt:
		return Int(k.i)
	case KeyUint:
		return Uint(k.u)
	case KeyBool:
		return Bool(k.b)
	default:
		return String(k.s)
	}
}

// GoString renders k for debugging.
func (k Key) GoString() string {
	return k.ToValue().GoString()
}

// ToKey attempts to convert v into a map Key. Any variant outside
// {int, uint, bool, string} fails with UnsupportedKeyType (§3).
func ToKey(v Value) (Key, error) {
	switch v.kind {
	case KindInt:
		return IntKey(v.i), nil
	case KindUint:
		return UintKey(v.u), nil
	case KindBool:
		return BoolKey(v.b), nil
	case KindString:
		return StringKey(v.s), nil
	default:
		return Key{}, celerrors.UnsupportedKeyType(v.TypeName())
	}
}

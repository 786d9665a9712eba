package celvalue

import (
	"cel/internal/celerrors"
	"strings"
)

// In implements the `in` operator (§4.1): substring test for string-in-string,
// element equality for any-in-list, key membership for any-in-map (the
// map's values are ignored).
func In(elem, coll Value) (Value, error) {
	switch coll.kind {
	case KindString:
		if elem.kind != KindString {
			return Value{}, unsupportedBinaryErr("in", elem, coll)
		}
		return Bool(strings.Contains(coll.s, elem.s)), nil
	case KindList:
		for _, e := range coll.list.elems {
			if Equal(elem, e) {
				return Bool(true), nil
			}
		}
		return Bool(false), nil
	case KindMap:
		key, err := ToKey(elem)
		if err != nil {
			return Bool(false), nil // unconvertible key simply isn't present
		}
		_, ok := coll.mp.get(key)
		return Bool(ok), nil
	default:
		return Value{}, unsupportedBinaryErr("in", elem, coll)
	}
}

// Index implements `[]` (§4.1): list indexed by non-negative int/uint within
// bounds; map indexed by any Key-convertible value; string is explicitly
// not integer-indexable in this system and yields NoSuchKey.
func Index(target, index Value) (Value, error) {
	switch target.kind {
	case KindList:
		i, err := listIndex(index, len(target.list.elems))
		if err != nil {
			return Value{}, err
		}
		return target.list.elems[i], nil
	case KindMap:
		key, err := ToKey(index)
		if err != nil {
			return Value{}, unsupportedMapIndexErr(index)
		}
		v, ok := target.mp.get(key)
		if !ok {
			return Value{}, noSuchKeyErr(key)
		}
		return v, nil
	case KindString:
		return Value{}, noSuchKeyErr(indexKeyForErr(index))
	default:
		return Value{}, unsupportedIndexErr(target, index)
	}
}

func listIndex(index Value, length int) (int, error) {
	var i int64
	switch index.kind {
	case KindInt:
		i = index.i
	case KindUint:
		if index.u > uint64(length) {
			return 0, celerrors.IndexOutOfBounds(index.GoString())
		}
		i = int64(index.u)
	default:
		return 0, celerrors.UnsupportedListIndex(index.TypeName())
	}
	if i < 0 || i >= int64(length) {
		return 0, celerrors.IndexOutOfBounds(index.GoString())
	}
	return int(i), nil
}

func indexKeyForErr(index Value) Key {
	k, err := ToKey(index)
	if err != nil {
		return StringKey(index.GoString())
	}
	return k
}

func unsupportedMapIndexErr(index Value) error {
	return celerrors.UnsupportedMapIndex(index.TypeName())
}

func noSuchKeyErr(k Key) error {
	return celerrors.NoSuchKey(k.GoString())
}

func unsupportedIndexErr(target, index Value) error {
	return celerrors.UnsupportedIndex(target.TypeName(), index.TypeName())
}

package celvalue

import "golang.org/x/exp/slices"

// listData is the shared, reference-counted backing store for a list Value.
// Clones share the same *listData (O(1)); Append copies only when the
// backing array is shared with another live Value (copy-on-write), matching
// §3's "collection clones are O(1) by default and copy-on-write for append
// operations when uniquely held."
type listData struct {
	elems []Value
	// refs is an approximation of "uniquely held": it is bumped when an
	// in-place Append hands the spare capacity of elems to a new list, so a
	// later Append from this listData copies instead of writing over the
	// slot that list now owns.
	refs int32
}

func newListData(elems []Value) *listData {
	cp := slices.Clone(elems)
	return &listData{elems: cp, refs: 1}
}

// Append returns a new Value whose list is elems+v. If this listData is
// uniquely held and the backing array has spare capacity, the append
// extends the backing array in place under a new listData, leaving the
// receiver's length unchanged; otherwise it allocates a fresh backing array.
func (v Value) Append(elem Value) Value {
	ld := v.list
	if ld.refs == 1 && cap(ld.elems) > len(ld.elems) {
		ld.refs++
		return Value{kind: KindList, list: &listData{elems: append(ld.elems, elem), refs: 1}}
	}
	next := make([]Value, len(ld.elems), len(ld.elems)+1)
	copy(next, ld.elems)
	next = append(next, elem)
	return Value{kind: KindList, list: &listData{elems: next, refs: 1}}
}

// Len reports the number of elements in a list, entries in a map, Unicode
// code points in a string, or bytes in a bytes Value; other kinds report 0.
func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.list.elems)
	case KindMap:
		return v.mp.len()
	case KindString:
		return len([]rune(v.s))
	case KindBytes:
		return len(v.s)
	default:
		return 0
	}
}

// mapData is the shared, unordered association from Key to Value backing a
// map Value. Iteration order is not guaranteed across evaluations but is
// fixed for the lifetime of one mapData (§3), achieved by tracking
// insertion order alongside the lookup table.
type mapData struct {
	order []Key
	items map[Key]Value
}

func newMapData() *mapData {
	return &mapData{items: make(map[Key]Value)}
}

func (m *mapData) set(k Key, v Value) {
	if _, exists := m.items[k]; !exists {
		m.order = append(m.order, k)
	}
	m.items[k] = v
}

func (m *mapData) get(k Key) (Value, bool) {
	v, ok := m.items[k]
	return v, ok
}

func (m *mapData) len() int { return len(m.order) }

func (m *mapData) entries() []MapEntry {
	out := make([]MapEntry, len(m.order))
	for i, k := range m.order {
		out[i] = MapEntry{Key: k, Value: m.items[k]}
	}
	return out
}

func (m *mapData) clone() *mapData {
	n := &mapData{
		order: slices.Clone(m.order),
		items: make(map[Key]Value, len(m.items)),
	}
	for k, v := range m.items {
		n.items[k] = v
	}
	return n
}

// WithEntry returns a new map Value with key set to val, copy-on-write over
// the receiver's entries.
func (v Value) WithEntry(key Key, val Value) Value {
	nd := v.mp.clone()
	nd.set(key, val)
	return Value{kind: KindMap, mp: nd}
}

// Get looks up key in a map Value.
func (v Value) Get(key Key) (Value, bool) {
	return v.mp.get(key)
}

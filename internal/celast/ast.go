// Package celast defines the AST node types the evaluator, optimizer, and
// JIT lowerer operate over (spec §6 "AST input"). The textual parser that
// produces these trees is an external collaborator and is not implemented
// here.
package celast

import "cel/internal/celvalue"

// Node is implemented by every AST variant. Every node carries a stable id,
// assigned by the (external) parser, used for error attribution.
type Node interface {
	ID() int64
}

// base is embedded by every concrete node to supply ID().
type base struct {
	NodeID int64
}

func (b base) ID() int64 { return b.NodeID }

// InlineValue is a literal already reduced to a runtime Value, either
// because the parser produced one directly or because the constant-folding
// optimizer (celoptimize) replaced a pure sub-expression with its result.
type InlineValue struct {
	base
	Value celvalue.Value
}

// NewInlineValue constructs an InlineValue node.
func NewInlineValue(id int64, v celvalue.Value) *InlineValue {
	return &InlineValue{base: base{id}, Value: v}
}

// Ident is a bare identifier, resolved against the evaluation context or
// comprehension scope (§4.2, §4.3).
type Ident struct {
	base
	Name string
}

func NewIdent(id int64, name string) *Ident {
	return &Ident{base: base{id}, Name: name}
}

// Select is member access, `operand.field`, or (when Test is true) the
// `has(operand.field)` macro (§4.3).
type Select struct {
	base
	Operand Node
	Field   string
	Test    bool
	// Optional marks `operand.?field`, optional-chaining select (§4.3).
	Optional bool
}

func NewSelect(id int64, operand Node, field string, test bool) *Select {
	return &Select{base: base{id}, Operand: operand, Field: field, Test: test}
}

// NewOptionalSelect constructs a Select node with every field explicit,
// used by celoptimize when rebuilding a folded Select with its Optional
// flag preserved.
func NewOptionalSelect(id int64, operand Node, field string, test, optional bool) *Select {
	return &Select{base: base{id}, Operand: operand, Field: field, Test: test, Optional: optional}
}

// Arg is a call argument; Optional marks it as having been written with the
// `?` index/element marker used by list/map optional entries — calls reuse
// the same Arg shape as list elements for uniformity, though only List/Map
// nodes currently interpret Optional.
type Arg struct {
	Value    Node
	Optional bool
}

// Call is a function invocation, optionally with a receiver (`recv.fn(args)`)
// (§4.2, §4.3). Function is the builtin or registered name; the evaluator
// recognizes a fixed set of builtin Function values for operators, and
// dispatches everything else through the context/object function tables.
type Call struct {
	base
	Receiver  Node // nil for unqualified calls
	Function  string
	Args      []Node
}

func NewCall(id int64, receiver Node, function string, args ...Node) *Call {
	return &Call{base: base{id}, Receiver: receiver, Function: function, Args: args}
}

// List is a list literal; an element whose Optional flag is set is wrapped
// in an optional.of/.none producing expression and unwrapped, with absent
// entries skipped (§4.3).
type List struct {
	base
	Elements []Arg
}

func NewList(id int64, elements ...Arg) *List {
	return &List{base: base{id}, Elements: elements}
}

// MapEntryNode is one key/value pair of a Map literal AST node.
type MapEntryNode struct {
	Key      Node
	Value    Node
	Optional bool
}

// Map is a map literal; entries are evaluated in source order, later keys
// overwrite earlier ones, and Optional entries are skipped when absent
// (§4.3).
type Map struct {
	base
	Entries []MapEntryNode
}

func NewMap(id int64, entries ...MapEntryNode) *Map {
	return &Map{base: base{id}, Entries: entries}
}

// Comprehension is the bounded fold over a list or map described in §4.3.
// IterVar2 is the supplemented second iteration variable (SPEC_FULL.md /
// spec §9's Ambiguous source behavior note): for a map IterRange, IterVar
// binds the key and IterVar2 (when non-empty) binds the corresponding
// value.
type Comprehension struct {
	base
	IterRange Node
	IterVar   string
	IterVar2  string
	AccuVar   string
	AccuInit  Node
	LoopCond  Node
	LoopStep  Node
	Result    Node
}

func NewComprehension(id int64, iterRange Node, iterVar string, accuVar string, accuInit, loopCond, loopStep, result Node) *Comprehension {
	return &Comprehension{
		base:      base{id},
		IterRange: iterRange,
		IterVar:   iterVar,
		AccuVar:   accuVar,
		AccuInit:  accuInit,
		LoopCond:  loopCond,
		LoopStep:  loopStep,
		Result:    result,
	}
}

// NewComprehensionWithIterVar2 additionally sets the supplemented second
// iteration variable used for (key, value) map comprehensions.
func NewComprehensionWithIterVar2(id int64, iterRange Node, iterVar, iterVar2, accuVar string, accuInit, loopCond, loopStep, result Node) *Comprehension {
	c := NewComprehension(id, iterRange, iterVar, accuVar, accuInit, loopCond, loopStep, result)
	c.IterVar2 = iterVar2
	return c
}

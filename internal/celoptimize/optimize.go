// Package celoptimize implements the constant-folding optimizer (spec
// §4.4): a pure AST-to-AST rewrite that collapses fully-literal
// sub-expressions into InlineValue nodes, with a pluggable hook for
// domain-specific rewrites (e.g. pre-compiling a regex literal).
package celoptimize

import (
	"cel/internal/celast"
	"cel/internal/celvalue"
)

// Hook is invoked on every node produced by Fold, after its children have
// been folded. Returning a non-nil Node substitutes it in the tree; the
// hook must be pure and local — it is not given surrounding context and
// must not rely on or break reference identity of sibling nodes (§4.4).
type Hook func(n celast.Node) celast.Node

// Fold rewrites n bottom-up: literal leaves become InlineValue nodes;
// list/map nodes whose children are all inline fold into a single inline
// list/map value; every other node is recursed into structurally. hook, if
// non-nil, is invoked on every node Fold produces, leaves first, as each is
// rebuilt on the way back up (§4.4). Fold is idempotent: Fold(Fold(n), hook)
// == Fold(n, hook).
func Fold(n celast.Node, hook Hook) celast.Node {
	return foldNode(n, hook)
}

func applyHook(n celast.Node, hook Hook) celast.Node {
	if hook == nil {
		return n
	}
	if replaced := hook(n); replaced != nil {
		return replaced
	}
	return n
}

func foldNode(n celast.Node, hook Hook) celast.Node {
	switch node := n.(type) {
	case *celast.InlineValue:
		return applyHook(node, hook)

	case *celast.Ident:
		return applyHook(node, hook)

	case *celast.Select:
		operand := foldNode(node.Operand, hook)
		return applyHook(celast.NewOptionalSelect(node.ID(), operand, node.Field, node.Test, node.Optional), hook)

	case *celast.Call:
		// Calls are recursed into structurally but never reduced to a
		// value here: the base optimizer only knows pure syntax (literals,
		// lists, maps), not which names are side-effect-free functions.
		// A Hook is the documented extension point for folding specific
		// calls (e.g. pre-compiling a regex literal) once the embedder
		// knows the call is safe to evaluate ahead of time (§4.4).
		var receiver celast.Node
		if node.Receiver != nil {
			receiver = foldNode(node.Receiver, hook)
		}
		args := make([]celast.Node, len(node.Args))
		for i, a := range node.Args {
			args[i] = foldNode(a, hook)
		}
		return applyHook(celast.NewCall(node.ID(), receiver, node.Function, args...), hook)

	case *celast.List:
		elems := make([]celast.Arg, len(node.Elements))
		allInline := true
		for i, e := range node.Elements {
			elems[i] = celast.Arg{Value: foldNode(e.Value, hook), Optional: e.Optional}
			if e.Optional || !isInline(elems[i].Value) {
				allInline = false
			}
		}
		if allInline {
			vals := make([]celvalue.Value, len(elems))
			for i, e := range elems {
				vals[i] = e.Value.(*celast.InlineValue).Value
			}
			return applyHook(celast.NewInlineValue(node.ID(), celvalue.List(vals...)), hook)
		}
		return applyHook(celast.NewList(node.ID(), elems...), hook)

	case *celast.Map:
		entries := make([]celast.MapEntryNode, len(node.Entries))
		allInline := true
		for i, e := range node.Entries {
			entries[i] = celast.MapEntryNode{
				Key:      foldNode(e.Key, hook),
				Value:    foldNode(e.Value, hook),
				Optional: e.Optional,
			}
			if e.Optional || !isInline(entries[i].Key) || !isInline(entries[i].Value) {
				allInline = false
			}
		}
		if allInline {
			if mapEntries, ok := tryFoldMapEntries(entries); ok {
				return applyHook(celast.NewInlineValue(node.ID(), celvalue.Map(mapEntries...)), hook)
			}
			// A key failed Key-conversion: the node reverts to a runtime
			// map expression (§4.4), still structurally folded.
		}
		return applyHook(celast.NewMap(node.ID(), entries...), hook)

	case *celast.Comprehension:
		rebuilt := celast.NewComprehensionWithIterVar2(
			node.ID(), foldNode(node.IterRange, hook), node.IterVar, node.IterVar2, node.AccuVar,
			foldNode(node.AccuInit, hook), foldNode(node.LoopCond, hook), foldNode(node.LoopStep, hook), foldNode(node.Result, hook),
		)
		return applyHook(rebuilt, hook)

	default:
		return applyHook(n, hook)
	}
}

func tryFoldMapEntries(entries []celast.MapEntryNode) ([]celvalue.MapEntry, bool) {
	out := make([]celvalue.MapEntry, 0, len(entries))
	for _, e := range entries {
		kv := e.Key.(*celast.InlineValue).Value
		key, err := celvalue.ToKey(kv)
		if err != nil {
			return nil, false
		}
		out = append(out, celvalue.MapEntry{Key: key, Value: e.Value.(*celast.InlineValue).Value})
	}
	return out, true
}

func isInline(n celast.Node) bool {
	_, ok := n.(*celast.InlineValue)
	return ok
}


// Package celeval implements the recursive tree-walking evaluator (spec
// §4.3): a single-threaded, eager evaluator over the celast node types that
// resolves identifiers through celcontext, short-circuits `&&`/`||`/`?:`,
// and folds comprehensions.
package celeval

import (
	"cel/internal/celast"
	"cel/internal/celcontext"
	"cel/internal/celerrors"
	"cel/internal/celvalue"
)

// scope layers a comprehension-local binding set on top of a Context,
// consulted before the user context per §4.2 ("a comprehension-local scope
// ..., then the user context").
type scope struct {
	parent *scope
	names  map[string]celvalue.Value
	ctx    *celcontext.Context
}

func rootScope(ctx *celcontext.Context) *scope {
	return &scope{ctx: ctx}
}

func (s *scope) child() *scope {
	return &scope{parent: s, names: make(map[string]celvalue.Value), ctx: s.ctx}
}

func (s *scope) bind(name string, v celvalue.Value) {
	if s.names == nil {
		s.names = make(map[string]celvalue.Value)
	}
	s.names[name] = v
}

func (s *scope) lookup(name string) (celvalue.Value, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.names != nil {
			if v, ok := cur.names[name]; ok {
				return v, true
			}
		}
	}
	return s.ctx.ResolveVariable(name)
}

// Eval evaluates n against ctx, returning the resulting Value or the first
// error encountered in source order (§7).
func Eval(n celast.Node, ctx *celcontext.Context) (celvalue.Value, error) {
	return evalNode(n, rootScope(ctx))
}

func evalNode(n celast.Node, s *scope) (celvalue.Value, error) {
	switch node := n.(type) {
	case *celast.InlineValue:
		return node.Value, nil

	case *celast.Ident:
		v, ok := s.lookup(node.Name)
		if !ok {
			return celvalue.Value{}, celerrors.UndeclaredReference(node.Name).WithNode(node.ID())
		}
		return v, nil

	case *celast.Select:
		return evalSelect(node, s)

	case *celast.Call:
		return evalCall(node, s)

	case *celast.List:
		return evalList(node, s)

	case *celast.Map:
		return evalMap(node, s)

	case *celast.Comprehension:
		return evalComprehension(node, s)

	default:
		return celvalue.Value{}, celerrors.UnexpectedType("unknown-node", "celast.Node")
	}
}

func evalSelect(node *celast.Select, s *scope) (celvalue.Value, error) {
	operand, err := evalNode(node.Operand, s)
	if err != nil {
		return celvalue.Value{}, err
	}

	if node.Optional {
		return evalOptionalSelect(node, operand)
	}

	if opt, ok := celvalue.AsOptional(operand); ok {
		// §4.3: "If operand is an optional, select dereferences through it."
		if !opt.HasValue() {
			return celvalue.ObjectValue(celvalue.OptionalNone()), nil
		}
		operand = opt.Value()
	}

	if node.Test {
		return evalHas(node, operand)
	}

	return selectField(node, operand)
}

func evalHas(node *celast.Select, operand celvalue.Value) (celvalue.Value, error) {
	switch operand.Kind() {
	case celvalue.KindMap:
		key, err := celvalue.ToKey(celvalue.String(node.Field))
		if err != nil {
			return celvalue.Bool(false), nil
		}
		_, ok := operand.Get(key)
		return celvalue.Bool(ok), nil
	case celvalue.KindObject:
		_, ok := operand.ObjectValueOf().Field(node.Field)
		return celvalue.Bool(ok), nil
	default:
		return celvalue.Bool(false), nil
	}
}

func selectField(node *celast.Select, operand celvalue.Value) (celvalue.Value, error) {
	switch operand.Kind() {
	case celvalue.KindMap:
		key, err := celvalue.ToKey(celvalue.String(node.Field))
		if err != nil {
			return celvalue.Value{}, celerrors.NoSuchKey(node.Field).WithNode(node.ID())
		}
		v, ok := operand.Get(key)
		if !ok {
			return celvalue.Value{}, celerrors.NoSuchKey(node.Field).WithNode(node.ID())
		}
		return v, nil
	case celvalue.KindObject:
		v, ok := operand.ObjectValueOf().Field(node.Field)
		if !ok {
			return celvalue.Value{}, celerrors.NoSuchKey(node.Field).WithNode(node.ID())
		}
		return v, nil
	default:
		return celvalue.Value{}, celerrors.NoSuchKey(node.Field).WithNode(node.ID())
	}
}

func evalOptionalSelect(node *celast.Select, operand celvalue.Value) (celvalue.Value, error) {
	// `v.?field`: a none propagates unchanged; a value's field is projected
	// inside an of(), never raising NoSuchKey (§4.3 optional chaining).
	if opt, ok := celvalue.AsOptional(operand); ok {
		if !opt.HasValue() {
			return celvalue.ObjectValue(celvalue.OptionalNone()), nil
		}
		operand = opt.Value()
	}
	v, err := selectField(node, operand)
	if err != nil {
		return celvalue.ObjectValue(celvalue.OptionalNone()), nil
	}
	return celvalue.ObjectValue(celvalue.OptionalOf(v)), nil
}

func evalList(node *celast.List, s *scope) (celvalue.Value, error) {
	elems := make([]celvalue.Value, 0, len(node.Elements))
	for _, e := range node.Elements {
		v, err := evalNode(e.Value, s)
		if err != nil {
			return celvalue.Value{}, err
		}
		if e.Optional {
			opt, ok := celvalue.AsOptional(v)
			if !ok {
				return celvalue.Value{}, celerrors.UnexpectedType(v.TypeName(), "optional").WithNode(node.ID())
			}
			if !opt.HasValue() {
				continue
			}
			v = opt.Value()
		}
		elems = append(elems, v)
	}
	return celvalue.List(elems...), nil
}

func evalMap(node *celast.Map, s *scope) (celvalue.Value, error) {
	entries := make([]celvalue.MapEntry, 0, len(node.Entries))
	for _, e := range node.Entries {
		kv, err := evalNode(e.Key, s)
		if err != nil {
			return celvalue.Value{}, err
		}
		vv, err := evalNode(e.Value, s)
		if err != nil {
			return celvalue.Value{}, err
		}
		if e.Optional {
			opt, ok := celvalue.AsOptional(vv)
			if !ok {
				return celvalue.Value{}, celerrors.UnexpectedType(vv.TypeName(), "optional").WithNode(node.ID())
			}
			if !opt.HasValue() {
				continue
			}
			vv = opt.Value()
		}
		key, err := celvalue.ToKey(kv)
		if err != nil {
			return celvalue.Value{}, err
		}
		entries = append(entries, celvalue.MapEntry{Key: key, Value: vv})
	}
	return celvalue.Map(entries...), nil
}

package celeval

import (
	"cel/internal/celast"
	"cel/internal/celerrors"
	"cel/internal/celvalue"
)

// evalComprehension implements the bounded fold described in §4.3: range
// over a list's elements or a map's (key, value) pairs, threading an
// accumulator through LoopStep while LoopCond holds, then evaluating
// Result against the final accumulator. This single primitive backs the
// map/filter/all/exists/exists_one macros, which the producer of the AST
// desugars into the appropriate IterRange/AccuInit/LoopCond/LoopStep/Result
// shape before it reaches the evaluator.
func evalComprehension(node *celast.Comprehension, s *scope) (celvalue.Value, error) {
	rangeVal, err := evalNode(node.IterRange, s)
	if err != nil {
		return celvalue.Value{}, err
	}

	loop := s.child()
	accu, err := evalNode(node.AccuInit, loop)
	if err != nil {
		return celvalue.Value{}, err
	}

	step := func(iterVar, iterVar2 celvalue.Value, haveVar2 bool) (bool, error) {
		loop.bind(node.AccuVar, accu)
		loop.bind(node.IterVar, iterVar)
		if haveVar2 && node.IterVar2 != "" {
			loop.bind(node.IterVar2, iterVar2)
		}
		cond, err := evalNode(node.LoopCond, loop)
		if err != nil {
			return false, err
		}
		if cond.Kind() != celvalue.KindBool {
			return false, celerrors.UnexpectedType(cond.TypeName(), "bool").WithNode(node.ID())
		}
		if !cond.BoolValue() {
			return false, nil
		}
		accu, err = evalNode(node.LoopStep, loop)
		if err != nil {
			return false, err
		}
		return true, nil
	}

	switch rangeVal.Kind() {
	case celvalue.KindList:
		for _, elem := range rangeVal.ListValue() {
			cont, err := step(elem, celvalue.Value{}, false)
			if err != nil {
				return celvalue.Value{}, err
			}
			if !cont {
				break
			}
		}
	case celvalue.KindMap:
		for _, entry := range rangeVal.MapValue() {
			cont, err := step(entry.Key.ToValue(), entry.Value, true)
			if err != nil {
				return celvalue.Value{}, err
			}
			if !cont {
				break
			}
		}
	default:
		return celvalue.Value{}, celerrors.UnexpectedType(rangeVal.TypeName(), "list or map").WithNode(node.ID())
	}

	result := s.child()
	result.bind(node.AccuVar, accu)
	return evalNode(node.Result, result)
}

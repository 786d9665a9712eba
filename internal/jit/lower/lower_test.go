package lower

import (
	"testing"

	"cel/internal/celast"
	"cel/internal/celvalue"
)

func TestLowerLiteralReturnsConstant(t *testing.T) {
	n := celast.NewInlineValue(1, celvalue.Int(42))
	res, err := Lower(n)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	if len(res.Entry.Blocks) != 1 {
		t.Fatalf("literal should lower to a single block, got %d", len(res.Entry.Blocks))
	}
	if len(res.Ops) != 0 {
		t.Fatalf("a literal needs no site ops, got %d", len(res.Ops))
	}
}

func TestLowerIdentRegistersVarOp(t *testing.T) {
	n := celast.NewIdent(1, "x")
	res, err := Lower(n)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	var found *Op
	for _, op := range res.Ops {
		found = op
	}
	if found == nil || found.Kind != OpVar || found.Name != "x" {
		t.Fatalf("expected one OpVar(x), got %+v", found)
	}
}

func TestLowerAndRecordsBothOperands(t *testing.T) {
	n := celast.NewCall(3, nil, "&&", celast.NewIdent(1, "a"), celast.NewIdent(2, "b"))
	res, err := Lower(n)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	var andOp *Op
	for _, op := range res.Ops {
		if op.Kind == OpAnd {
			andOp = op
		}
	}
	if andOp == nil {
		t.Fatalf("expected an OpAnd site")
	}
	if andOp.Left == nil || andOp.Right == nil {
		t.Fatalf("OpAnd must carry both operand functions")
	}
}

func TestLowerCondBuildsThreeExtraBlocks(t *testing.T) {
	n := celast.NewCall(4, nil, "?:", celast.NewIdent(1, "cond"), celast.NewIdent(2, "then"), celast.NewIdent(3, "otherwise"))
	res, err := Lower(n)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	if len(res.Entry.Blocks) != 4 {
		t.Fatalf("ternary should have entry+then+else+merge = 4 blocks, got %d", len(res.Entry.Blocks))
	}
}

func TestLowerComprehensionCarriesFiveSubFunctions(t *testing.T) {
	n := celast.NewComprehension(7,
		celast.NewIdent(1, "items"),
		"x",
		"out",
		celast.NewInlineValue(2, celvalue.List()),
		celast.NewInlineValue(3, celvalue.Bool(true)),
		celast.NewCall(4, nil, "+", celast.NewIdent(5, "out"), celast.NewIdent(6, "x")),
		celast.NewIdent(8, "out"),
	)
	res, err := Lower(n)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	var op *Op
	for _, o := range res.Ops {
		if o.Kind == OpComprehension {
			op = o
		}
	}
	if op == nil {
		t.Fatalf("expected an OpComprehension site")
	}
	if op.RangeFn == nil || op.AccuInitFn == nil || op.LoopCondFn == nil || op.LoopStepFn == nil || op.ResultFn == nil {
		t.Fatalf("comprehension op missing a sub-function: %+v", op)
	}
	if op.IterVar != "x" || op.AccuVar != "out" {
		t.Fatalf("unexpected variable bindings: iterVar=%q accuVar=%q", op.IterVar, op.AccuVar)
	}
}

func TestLowerGenericCallRecordsReceiver(t *testing.T) {
	n := celast.NewCall(3, celast.NewIdent(1, "s"), "size")
	res, err := Lower(n)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	var op *Op
	for _, o := range res.Ops {
		if o.Kind == OpCall {
			op = o
		}
	}
	if op == nil || op.Name != "size" || op.Receiver == nil {
		t.Fatalf("expected OpCall(size) with a receiver, got %+v", op)
	}
}

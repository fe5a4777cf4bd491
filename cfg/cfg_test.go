package cfg

import (
	"testing"

	"github.com/gogpu/pipeline/ir"
	"github.com/gogpu/pipeline/lower"
	"github.com/gogpu/pipeline/parser"
)

func lowerSource(t *testing.T, source string) *ir.PipelineIR {
	t.Helper()
	p, err := parser.Parse(source)
	if err != nil {
		t.Fatalf("parser.Parse: %v", err)
	}
	module, err := lower.Lower(*p)
	if err != nil {
		t.Fatalf("lower.Lower: %v", err)
	}
	return module
}

func indexOf[T ir.Operation](code []ir.Op) int {
	for i, op := range code {
		if _, ok := op.Op.(T); ok {
			return i
		}
	}
	return -1
}

func TestFindIfElseRecognisesBothBranches(t *testing.T) {
	module := lowerSource(t, `
pipeline clamp_positive(x: float) -> float {
	if (x < 0.0) {
		x = 0.0;
	} else {
		x = x;
	}
	return x;
}`)
	idx := indexOf[ir.JumpIfElse](module.Code)
	if idx < 0 {
		t.Fatal("expected a JumpIfElse op in lowered code")
	}

	region, err := FindIfElse(module.Code, idx)
	if err != nil {
		t.Fatalf("FindIfElse: %v", err)
	}
	if !region.HasElse {
		t.Error("expected HasElse=true")
	}
	if len(region.TrueBlock) == 0 {
		t.Error("expected a non-empty true block")
	}
	if len(region.FalseBlock) == 0 {
		t.Error("expected a non-empty false block")
	}
	if len(region.PhiNodes) != 1 {
		t.Errorf("expected 1 phi node at the merge, got %d", len(region.PhiNodes))
	}
	if region.NextIndex <= idx {
		t.Errorf("expected NextIndex to advance past the region, got %d (region started at %d)", region.NextIndex, idx)
	}
}

func TestFindIfElseWithoutElseBranch(t *testing.T) {
	module := lowerSource(t, `
pipeline maybe_double(x: float, flag: bool) -> float {
	if (flag) {
		x = x * 2.0;
	}
	return x;
}`)
	idx := indexOf[ir.JumpIfElse](module.Code)
	if idx < 0 {
		t.Fatal("expected a JumpIfElse op in lowered code")
	}

	region, err := FindIfElse(module.Code, idx)
	if err != nil {
		t.Fatalf("FindIfElse: %v", err)
	}
	if region.HasElse {
		t.Error("expected HasElse=false for an if with no else")
	}
	if len(region.FalseBlock) != 0 {
		t.Errorf("expected an empty false block, got %d ops", len(region.FalseBlock))
	}
}

func TestFindIfElseRejectsNonJumpIfElseOp(t *testing.T) {
	code := []ir.Op{{Addr: 0, Op: ir.Label{}}}
	if _, err := FindIfElse(code, 0); err == nil {
		t.Error("expected an error when code[index] is not a JumpIfElse")
	}
}

func TestFindLoopRecognisesBackEdge(t *testing.T) {
	module := lowerSource(t, `
pipeline sum_to_n(n: int) -> int {
	total := 0;
	for (i := 0; i < n; i = i + 1) {
		total = total + i;
	}
	return total;
}`)
	idx := indexOf[ir.LoopMerge](module.Code)
	if idx < 0 {
		t.Fatal("expected a LoopMerge op in lowered code")
	}

	region, err := FindLoop(module.Code, idx, module.Code[0].Addr)
	if err != nil {
		t.Fatalf("FindLoop: %v", err)
	}
	if len(region.Body) == 0 {
		t.Error("expected a non-empty loop body")
	}
	if region.ConditionValue == 0 {
		t.Error("expected a nonzero loop condition value address")
	}
	if region.NextIndex <= idx {
		t.Errorf("expected NextIndex to advance past the region, got %d (region started at %d)", region.NextIndex, idx)
	}
}

func TestFindLoopRejectsNonLoopMergeOp(t *testing.T) {
	code := []ir.Op{{Addr: 0, Op: ir.Label{}}}
	if _, err := FindLoop(code, 0, 0); err == nil {
		t.Error("expected an error when code[index] is not a LoopMerge")
	}
}

func TestFindLoopRejectsMismatchedContinueTarget(t *testing.T) {
	// Hand-crafted: LoopMerge names continue=99, but the condition block's
	// JumpIfElse branches its "then" to 5, which never matches 99.
	code := []ir.Op{
		{Addr: 0, Op: ir.Label{}},
		{Addr: 1, Op: ir.LoopMerge{MergeLabel: 6, ContinueLabel: 99}},
		{Addr: 2, Op: ir.Jump{Target: 3}},
		{Addr: 3, Op: ir.Label{}},
		{Addr: 4, Op: ir.JumpIfElse{Cond: 0, Then: 5, Else: 6}},
		{Addr: 5, Op: ir.Label{}},
		{Addr: 6, Op: ir.Label{}},
	}
	if _, err := FindLoop(code, 1, 0); err == nil {
		t.Error("expected an error for a continue-label mismatch")
	}
}

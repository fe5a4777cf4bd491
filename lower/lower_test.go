package lower

import (
	"testing"

	"github.com/gogpu/pipeline/ast"
	"github.com/gogpu/pipeline/ir"
	"github.com/gogpu/pipeline/parser"
)

func lowerSource(t *testing.T, source string) *ir.PipelineIR {
	t.Helper()
	p, err := parser.Parse(source)
	if err != nil {
		t.Fatalf("parser.Parse: %v", err)
	}
	module, err := Lower(*p)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	if errs := ir.Validate(module); len(errs) > 0 {
		t.Fatalf("Validate: %v", errs)
	}
	return module
}

func countOps[T ir.Operation](module *ir.PipelineIR) int {
	n := 0
	for _, op := range module.Code {
		if _, ok := op.Op.(T); ok {
			n++
		}
	}
	return n
}

func TestLowerArgumentsBecomeInputParams(t *testing.T) {
	module := lowerSource(t, `pipeline f(x: float, y: int) -> float { return x; }`)
	if len(module.Inputs) != 2 {
		t.Fatalf("expected 2 inputs, got %d", len(module.Inputs))
	}
	if module.Inputs[0].Name != "x" || module.Inputs[0].Type != ir.Float {
		t.Errorf("input 0 = %#v, want {x, Float}", module.Inputs[0])
	}
	if module.Inputs[1].Name != "y" || module.Inputs[1].Type != ir.Int {
		t.Errorf("input 1 = %#v, want {y, Int}", module.Inputs[1])
	}
	if countOps[ir.Arg](module) != 2 {
		t.Errorf("expected 2 Arg ops, got %d", countOps[ir.Arg](module))
	}
}

// TestLowerReversesGreaterThan is the single place this invariant (spec
// §4.C) can be tested end to end: the parser keeps '>'/'>=' unreversed, so
// only lowering's own output proves the swap happened.
func TestLowerReversesGreaterThan(t *testing.T) {
	module := lowerSource(t, `pipeline f(a: float, b: float) -> bool { return a > b; }`)
	var found bool
	for _, op := range module.Code {
		less, ok := op.Op.(ir.Less)
		if !ok {
			continue
		}
		found = true
		// a > b must lower to Less(b, a), i.e. operands swapped.
		argOf := func(addr ir.Address) int {
			for _, o := range module.Code {
				if arg, ok := o.Op.(ir.Arg); ok && o.Addr == addr {
					return arg.Index
				}
			}
			return -1
		}
		if argOf(less.Left) != 1 || argOf(less.Right) != 0 {
			t.Errorf("Less{Left, Right} = {arg%d, arg%d}, want {arg1, arg0} (b, a)", argOf(less.Left), argOf(less.Right))
		}
	}
	if !found {
		t.Fatal("expected an ir.Less op (the reversed form of '>'), found none")
	}
}

func TestLowerReversesGreaterOrEqual(t *testing.T) {
	module := lowerSource(t, `pipeline f(a: float, b: float) -> bool { return a >= b; }`)
	if countOps[ir.LessEq](module) != 1 {
		t.Fatalf("expected exactly 1 ir.LessEq op, got %d", countOps[ir.LessEq](module))
	}
}

func TestLowerRejectsScaleExpression(t *testing.T) {
	p, err := parser.Parse(`pipeline f(x: vec2, s: vec2) -> vec2 { return x ~ s; }`)
	if err != nil {
		t.Fatalf("parser.Parse: %v", err)
	}
	_, err = Lower(*p)
	if err != ErrScaleNotImplemented {
		t.Errorf("expected ErrScaleNotImplemented, got %v", err)
	}
}

func TestLowerShiftExpressionSynchronizesOnce(t *testing.T) {
	module := lowerSource(t, `
pipeline f(coord: vec2, a: vec2, b: vec2) -> vec2 {
	x := coord << a;
	y := coord << b;
	return y;
}`)
	if n := countOps[ir.Sync](module); n != 1 {
		t.Errorf("expected exactly 1 Sync op (shared coord synchronized once), got %d", n)
	}
	if n := countOps[ir.Shift](module); n != 2 {
		t.Errorf("expected 2 Shift ops, got %d", n)
	}
}

func TestLowerIfElseProducesJumpIfElseWithPhi(t *testing.T) {
	module := lowerSource(t, `
pipeline clamp_positive(x: float) -> float {
	if (x < 0.0) {
		x = 0.0;
	} else {
		x = x;
	}
	return x;
}`)
	if n := countOps[ir.JumpIfElse](module); n != 1 {
		t.Errorf("expected 1 JumpIfElse, got %d", n)
	}
	if n := countOps[ir.Phi](module); n != 1 {
		t.Errorf("expected 1 Phi (for x), got %d", n)
	}
}

func TestLowerIfWithoutElseStillProducesPhi(t *testing.T) {
	module := lowerSource(t, `
pipeline maybe_double(x: float, flag: bool) -> float {
	if (flag) {
		x = x * 2.0;
	}
	return x;
}`)
	if n := countOps[ir.Phi](module); n != 1 {
		t.Errorf("expected 1 Phi for the single-branch if, got %d", n)
	}
}

func TestLowerForLoopProducesLoopMergeAndLoopCarriedPhis(t *testing.T) {
	module := lowerSource(t, `
pipeline sum_to_n(n: int) -> int {
	total := 0;
	for (i := 0; i < n; i = i + 1) {
		total = total + i;
	}
	return total;
}`)
	if n := countOps[ir.LoopMerge](module); n != 1 {
		t.Errorf("expected 1 LoopMerge, got %d", n)
	}
	// total and i both get loop-carried phi nodes.
	if n := countOps[ir.Phi](module); n != 2 {
		t.Errorf("expected 2 Phi ops (total, i), got %d", n)
	}
}

func TestSelectPhiOperationsChainsOldValueThroughTrueBranch(t *testing.T) {
	truePhi := map[string]ir.PhiRecord{
		"x": {New: 10, Label: 1, Old: 1, OldLabel: 0},
	}
	falsePhi := map[string]ir.PhiRecord{
		"x": {New: 20, Label: 2, Old: 1, OldLabel: 0},
	}
	merged := selectPhiOperations(truePhi, falsePhi)
	got := merged["x"]
	if got.Old != 10 || got.OldLabel != 1 {
		t.Errorf("merged phi for x = %#v, want Old=10 (true branch's New), OldLabel=1", got)
	}
}

func TestToValueTypeMapsEveryConcreteType(t *testing.T) {
	cases := map[ast.Type]ir.ValueType{
		ast.TypeFloat: ir.Float,
		ast.TypeInt:   ir.Int,
		ast.TypeBool:  ir.Bool,
		ast.TypeVec2:  ir.Vec2,
		ast.TypeVec3:  ir.Vec3,
		ast.TypeVec4:  ir.Vec4,
	}
	for in, want := range cases {
		if got := toValueType(in); got != want {
			t.Errorf("toValueType(%v) = %v, want %v", in, got, want)
		}
	}
}

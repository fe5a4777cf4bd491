package parser

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/gogpu/pipeline/ast"
)

// astOpts strips source spans before comparison: tests assert tree shape,
// not byte offsets.
var astOpts = cmp.Options{
	cmpopts.IgnoreFields(ast.Span{}, "Start", "End"),
	cmpopts.IgnoreFields(ast.Spanned[string]{}, "Span"),
	cmpopts.IgnoreFields(ast.IntLiteral{}, "Span"),
	cmpopts.IgnoreFields(ast.FloatLiteral{}, "Span"),
}

func ident(name string) ast.Spanned[string] {
	return ast.Spanned[string]{Val: name}
}

func variable(name string, typ ast.Type) ast.Variable {
	return ast.Variable{Identifier: ident(name), Type: typ}
}

func TestParsePipelineSignature(t *testing.T) {
	const source = `pipeline scale(x: float, y: float) -> float {
	return x * y;
}`
	p, err := Parse(source)
	if err != nil {
		t.Fatalf("Parse: unexpected error: %v", err)
	}

	want := ast.Pipeline{
		Name:      ident("scale"),
		Arguments: []ast.Variable{variable("x", ast.TypeFloat), variable("y", ast.TypeFloat)},
		Results:   []ast.Variable{variable("result0", ast.TypeFloat)},
		Block: ast.Block{Statements: []ast.Statement{
			ast.ReturnStatement{Expr: ast.BinaryExpr{
				Op:    ast.OpMul,
				Left:  ast.VariableExpr{Identifier: ident("x")},
				Right: ast.VariableExpr{Identifier: ident("y")},
			}},
		}},
	}

	if diff := cmp.Diff(want, *p, astOpts); diff != "" {
		t.Errorf("Parse(%q) mismatch (-want +got):\n%s", source, diff)
	}
}

func TestParseNoArgsMultipleResults(t *testing.T) {
	const source = `pipeline origin() -> (float, float) {
	return 0.0;
}`
	p, err := Parse(source)
	if err != nil {
		t.Fatalf("Parse: unexpected error: %v", err)
	}
	if len(p.Arguments) != 0 {
		t.Errorf("expected 0 arguments, got %d", len(p.Arguments))
	}
	want := []ast.Variable{variable("result0", ast.TypeFloat), variable("result1", ast.TypeFloat)}
	if diff := cmp.Diff(want, p.Results, astOpts); diff != "" {
		t.Errorf("Results mismatch (-want +got):\n%s", diff)
	}
}

func TestParseAssignCreateVsUpdate(t *testing.T) {
	const source = `pipeline f(x: float) -> float {
	total := x;
	total = total + 1.0;
	return total;
}`
	p, err := Parse(source)
	if err != nil {
		t.Fatalf("Parse: unexpected error: %v", err)
	}
	if len(p.Block.Statements) != 3 {
		t.Fatalf("expected 3 statements, got %d", len(p.Block.Statements))
	}
	create, ok := p.Block.Statements[0].(ast.AssignStatement)
	if !ok || !create.Create {
		t.Errorf("statement 0: expected a creating AssignStatement, got %#v", p.Block.Statements[0])
	}
	update, ok := p.Block.Statements[1].(ast.AssignStatement)
	if !ok || update.Create {
		t.Errorf("statement 1: expected a non-creating AssignStatement, got %#v", p.Block.Statements[1])
	}
}

func TestParseIfElseIfChain(t *testing.T) {
	const source = `pipeline sign(x: float) -> float {
	if (x < 0.0) {
		x = -1.0;
	} else if (x > 0.0) {
		x = 1.0;
	} else {
		x = 0.0;
	}
	return x;
}`
	p, err := Parse(source)
	if err != nil {
		t.Fatalf("Parse: unexpected error: %v", err)
	}
	outer, ok := p.Block.Statements[0].(ast.IfElseStatement)
	if !ok {
		t.Fatalf("statement 0: expected IfElseStatement, got %#v", p.Block.Statements[0])
	}
	if outer.Else == nil {
		t.Fatal("expected outer else branch to be present")
	}
	if len(outer.Else.Statements) != 1 {
		t.Fatalf("expected the else branch to desugar to a single else-if statement, got %d", len(outer.Else.Statements))
	}
	inner, ok := outer.Else.Statements[0].(ast.IfElseStatement)
	if !ok {
		t.Fatalf("expected nested IfElseStatement for 'else if', got %#v", outer.Else.Statements[0])
	}
	if inner.Else == nil {
		t.Error("expected the innermost else branch to be present")
	}
}

func TestParseForLoop(t *testing.T) {
	const source = `pipeline sum(n: int) -> int {
	total := 0;
	for (i := 0; i < n; i = i + 1) {
		total = total + i;
	}
	return total;
}`
	p, err := Parse(source)
	if err != nil {
		t.Fatalf("Parse: unexpected error: %v", err)
	}
	loop, ok := p.Block.Statements[1].(ast.ForStatement)
	if !ok {
		t.Fatalf("statement 1: expected ForStatement, got %#v", p.Block.Statements[1])
	}
	if init, ok := loop.Init.(ast.AssignStatement); !ok || !init.Create {
		t.Errorf("expected loop init to be a creating AssignStatement, got %#v", loop.Init)
	}
	if _, ok := loop.Cond.(ast.BinaryExpr); !ok {
		t.Errorf("expected loop condition to be a BinaryExpr, got %#v", loop.Cond)
	}
	if step, ok := loop.Step.(ast.AssignStatement); !ok || step.Create {
		t.Errorf("expected loop step to be a non-creating AssignStatement, got %#v", loop.Step)
	}
}

// TestParseComparisonOperatorsAreNotReversed confirms the parser leaves
// '>' and '>=' exactly as written; lower.emitBinary performs the swap to
// Less/LessEq, not the parser (spec §4.C).
func TestParseComparisonOperatorsAreNotReversed(t *testing.T) {
	tests := []struct {
		source string
		op     ast.BinaryOp
	}{
		{"pipeline f(a: float, b: float) -> bool { return a < b; }", ast.OpLess},
		{"pipeline f(a: float, b: float) -> bool { return a <= b; }", ast.OpLessEqual},
		{"pipeline f(a: float, b: float) -> bool { return a > b; }", ast.OpMore},
		{"pipeline f(a: float, b: float) -> bool { return a >= b; }", ast.OpMoreEqual},
	}
	for _, tt := range tests {
		p, err := Parse(tt.source)
		if err != nil {
			t.Fatalf("Parse(%q): unexpected error: %v", tt.source, err)
		}
		ret, ok := p.Block.Statements[0].(ast.ReturnStatement)
		if !ok {
			t.Fatalf("Parse(%q): expected ReturnStatement, got %#v", tt.source, p.Block.Statements[0])
		}
		bin, ok := ret.Expr.(ast.BinaryExpr)
		if !ok {
			t.Fatalf("Parse(%q): expected BinaryExpr, got %#v", tt.source, ret.Expr)
		}
		if bin.Op != tt.op {
			t.Errorf("Parse(%q): op = %v, want %v (parser must not reverse operands)", tt.source, bin.Op, tt.op)
		}
		left, ok := bin.Left.(ast.VariableExpr)
		if !ok || left.Identifier.Val != "a" {
			t.Errorf("Parse(%q): left operand = %#v, want variable 'a'", tt.source, bin.Left)
		}
		right, ok := bin.Right.(ast.VariableExpr)
		if !ok || right.Identifier.Val != "b" {
			t.Errorf("Parse(%q): right operand = %#v, want variable 'b'", tt.source, bin.Right)
		}
	}
}

func TestParseExpressionPrecedence(t *testing.T) {
	const source = `pipeline f(a: float, b: float, c: float) -> bool {
	return a + b * c > a - b;
}`
	p, err := Parse(source)
	if err != nil {
		t.Fatalf("Parse: unexpected error: %v", err)
	}
	ret := p.Block.Statements[0].(ast.ReturnStatement)
	// Top level is '>' (comparison binds loosest of these).
	cmpExpr, ok := ret.Expr.(ast.BinaryExpr)
	if !ok || cmpExpr.Op != ast.OpMore {
		t.Fatalf("expected top-level OpMore, got %#v", ret.Expr)
	}
	addExpr, ok := cmpExpr.Left.(ast.BinaryExpr)
	if !ok || addExpr.Op != ast.OpAdd {
		t.Fatalf("expected OpAdd (a + b*c), got %#v", cmpExpr.Left)
	}
	mulExpr, ok := addExpr.Right.(ast.BinaryExpr)
	if !ok || mulExpr.Op != ast.OpMul {
		t.Errorf("expected b*c to bind tighter than +, got %#v", addExpr.Right)
	}
}

func TestParseShiftExpression(t *testing.T) {
	const source = `pipeline f(x: vec2, d: vec2) -> vec2 {
	return x << d;
}`
	p, err := Parse(source)
	if err != nil {
		t.Fatalf("Parse: unexpected error: %v", err)
	}
	ret := p.Block.Statements[0].(ast.ReturnStatement)
	if _, ok := ret.Expr.(ast.ShiftExpr); !ok {
		t.Errorf("expected ShiftExpr, got %#v", ret.Expr)
	}
}

func TestParseErrorsOnMissingSemicolon(t *testing.T) {
	const source = `pipeline f(x: float) -> float {
	return x
}`
	if _, err := Parse(source); err == nil {
		t.Error("expected a parse error for the missing semicolon, got none")
	}
}

func TestParseErrorsOnMalformedSignature(t *testing.T) {
	const source = `pipeline f(x float) -> float { return x; }`
	if _, err := Parse(source); err == nil {
		t.Error("expected a parse error for the missing ':' in the parameter, got none")
	}
}

func TestParseErrorsOnUnexpectedTokenInExpression(t *testing.T) {
	const source = `pipeline f() -> float { return ; }`
	if _, err := Parse(source); err == nil {
		t.Error("expected a parse error for an empty expression, got none")
	}
}

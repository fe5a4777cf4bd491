// Package ast defines the external AST contract the core compiler consumes.
//
// The lexer and grammar that produce this tree are treated as an external
// collaborator (see spec §1/§6): only the shape given here matters to the
// lowering pass in package lower. The tree mirrors the Pipeline/Statement/
// Expression shape of the original octo parser (parser/src/ast.rs), adapted
// to Go's tagged-interface idiom.
package ast

// Position is a single point in source text.
type Position struct {
	Line   int
	Column int
	Offset int
}

// Span covers a range of source text, used for diagnostics.
type Span struct {
	Start Position
	End   Position
}

// Spanned pairs a value with the source span it was parsed from.
type Spanned[T any] struct {
	Val  T
	Span Span
}

// Type is the closed set of surface types. The parser accepts only Float,
// Int, Bool, Vec2, Vec3 and Vec4 as argument and result types, so only these
// reach the IR; String, Void and UserDefined have no syntax it accepts.
// Assignment targets carry TypeUnknown, which scope records unchecked.
type Type int

const (
	TypeUnknown Type = iota
	TypeFloat
	TypeInt
	TypeBool
	TypeVec2
	TypeVec3
	TypeVec4
	TypeString
	TypeVoid
	TypeUserDefined
)

func (t Type) String() string {
	switch t {
	case TypeFloat:
		return "float"
	case TypeInt:
		return "int"
	case TypeBool:
		return "bool"
	case TypeVec2:
		return "vec2"
	case TypeVec3:
		return "vec3"
	case TypeVec4:
		return "vec4"
	case TypeString:
		return "string"
	case TypeVoid:
		return "void"
	case TypeUserDefined:
		return "user-defined"
	default:
		return "unknown"
	}
}

// NewType resolves a type keyword to its Type, or TypeUserDefined if it
// names none of the built-ins.
func NewType(src string) Type {
	switch src {
	case "float":
		return TypeFloat
	case "int":
		return TypeInt
	case "bool":
		return TypeBool
	case "vec2":
		return TypeVec2
	case "vec3":
		return TypeVec3
	case "vec4":
		return TypeVec4
	case "string":
		return TypeString
	case "void":
		return TypeVoid
	default:
		return TypeUserDefined
	}
}

// Variable is a named, typed parameter, result, or local.
type Variable struct {
	Identifier Spanned[string]
	Type       Type
	// UserTypeName holds the source name when Type == TypeUserDefined.
	UserTypeName string
}

// Pipeline is one compilation unit: a function with typed inputs and
// outputs, intended to become a single SPIR-V entry point.
type Pipeline struct {
	Name      Spanned[string]
	Arguments []Variable
	Results   []Variable
	Block     Block
}

// Block is an ordered list of statements.
type Block struct {
	Statements []Statement
}

// Statement is the closed set of statement kinds.
type Statement interface {
	stmtNode()
}

// ExpressionStatement evaluates an expression and discards its value.
type ExpressionStatement struct {
	Expr Expression
}

func (ExpressionStatement) stmtNode() {}

// ReturnStatement returns a value from the pipeline.
type ReturnStatement struct {
	Expr Expression
}

func (ReturnStatement) stmtNode() {}

// AssignStatement binds Expr's value to Target. Create distinguishes a new
// binding (":=") from an update to an existing one ("="); lowering uses this
// to decide whether the assignment participates in phi construction.
type AssignStatement struct {
	Target Variable
	Expr   Expression
	Create bool
}

func (AssignStatement) stmtNode() {}

// ForStatement is a C-style three-clause loop.
type ForStatement struct {
	Init Statement
	Cond Expression
	Step Statement
	Body Block
}

func (ForStatement) stmtNode() {}

// IfElseStatement is a conditional with an optional else branch.
type IfElseStatement struct {
	Cond Expression
	Then Block
	Else *Block
}

func (IfElseStatement) stmtNode() {}

// Expression is the closed set of expression kinds.
type Expression interface {
	exprNode()
}

// VariableExpr reads the current value bound to a name.
type VariableExpr struct {
	Identifier Spanned[string]
}

func (VariableExpr) exprNode() {}

// IntLiteral is an integer constant.
type IntLiteral struct {
	Val  int64
	Span Span
}

func (IntLiteral) exprNode() {}

// FloatLiteral is a floating-point constant.
type FloatLiteral struct {
	Val  float64
	Span Span
}

func (FloatLiteral) exprNode() {}

// NegationExpr is unary negation.
type NegationExpr struct {
	Expr Expression
}

func (NegationExpr) exprNode() {}

// BinaryOp is the closed set of binary operators.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpLess
	OpLessEqual
	OpMore
	OpMoreEqual
	OpEquals
	OpNotEquals
	OpAnd
	OpOr
)

// BinaryExpr is a two-operand arithmetic, comparison, or logical expression.
type BinaryExpr struct {
	Op    BinaryOp
	Left  Expression
	Right Expression
}

func (BinaryExpr) exprNode() {}

// ShiftExpr shifts a texture coordinate by an offset; the shifted operand
// must be synchronized before indexing (see builder.Code.Synchronize).
type ShiftExpr struct {
	Shifted Expression
	ShiftBy Expression
}

func (ShiftExpr) exprNode() {}

// ScaleExpr is not yet implemented; lowering rejects it explicitly
// (see lower.ErrScaleNotImplemented).
type ScaleExpr struct {
	Scaled  Expression
	ScaleBy Expression
}

func (ScaleExpr) exprNode() {}

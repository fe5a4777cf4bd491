// Package lexer tokenizes the pipeline source language (spec §6's "external
// collaborator" front end, supplied here so the module has a runnable
// path from source text to ast.Pipeline).
package lexer

// Kind names one kind of lexical token.
type Kind uint8

const (
	EOF Kind = iota
	Error

	Ident
	IntLiteral
	FloatLiteral
	BoolLiteral

	Plus  // +
	Minus // -
	Star  // *
	Slash // /
	Tilde // ~ (Scale)

	Less         // <
	LessEqual    // <=
	LessLess     // << (Shift)
	Greater      // >
	GreaterEqual // >=
	EqualEqual   // ==
	BangEqual    // !=
	AmpAmp       // &&
	PipePipe     // ||

	Equal      // =
	ColonEqual // :=

	Colon     // :
	Comma     // ,
	Semicolon // ;
	Arrow     // ->

	LeftParen
	RightParen
	LeftBrace
	RightBrace

	KeywordPipeline
	KeywordIf
	KeywordElse
	KeywordFor
	KeywordReturn
	KeywordTrue
	KeywordFalse

	TypeFloat
	TypeInt
	TypeBool
	TypeVec2
	TypeVec3
	TypeVec4
)

func (k Kind) String() string {
	switch k {
	case EOF:
		return "EOF"
	case Error:
		return "Error"
	case Ident:
		return "Ident"
	case IntLiteral:
		return "IntLiteral"
	case FloatLiteral:
		return "FloatLiteral"
	case BoolLiteral:
		return "BoolLiteral"
	case Plus:
		return "+"
	case Minus:
		return "-"
	case Star:
		return "*"
	case Slash:
		return "/"
	case Tilde:
		return "~"
	case Less:
		return "<"
	case LessEqual:
		return "<="
	case LessLess:
		return "<<"
	case Greater:
		return ">"
	case GreaterEqual:
		return ">="
	case EqualEqual:
		return "=="
	case BangEqual:
		return "!="
	case AmpAmp:
		return "&&"
	case PipePipe:
		return "||"
	case Equal:
		return "="
	case ColonEqual:
		return ":="
	case Colon:
		return ":"
	case Comma:
		return ","
	case Semicolon:
		return ";"
	case Arrow:
		return "->"
	case LeftParen:
		return "("
	case RightParen:
		return ")"
	case LeftBrace:
		return "{"
	case RightBrace:
		return "}"
	case KeywordPipeline:
		return "pipeline"
	case KeywordIf:
		return "if"
	case KeywordElse:
		return "else"
	case KeywordFor:
		return "for"
	case KeywordReturn:
		return "return"
	case KeywordTrue:
		return "true"
	case KeywordFalse:
		return "false"
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
	default:
		return "Unknown"
	}
}

// Token is a single lexical token with its source position.
type Token struct {
	Kind   Kind
	Lexeme string
	Line   int
	Column int
	Offset int
}

var keywords = map[string]Kind{
	"pipeline": KeywordPipeline,
	"if":       KeywordIf,
	"else":     KeywordElse,
	"for":      KeywordFor,
	"return":   KeywordReturn,
	"true":     KeywordTrue,
	"false":    KeywordFalse,
	"float":    TypeFloat,
	"int":      TypeInt,
	"bool":     TypeBool,
	"vec2":     TypeVec2,
	"vec3":     TypeVec3,
	"vec4":     TypeVec4,
}

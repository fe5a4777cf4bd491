// Package parser implements a recursive-descent front end over lexer
// tokens, producing an ast.Pipeline. The lexer/grammar pairing is an
// "external collaborator" per spec §1/§6 — the core only depends on the
// ast.Pipeline shape this package produces, not on how it got there.
package parser

import (
	"strconv"

	"github.com/gogpu/pipeline/ast"
	"github.com/gogpu/pipeline/internal/diagnostic"
	"github.com/gogpu/pipeline/lexer"
)

// Parser turns a token stream into an ast.Pipeline.
type Parser struct {
	source  string
	tokens  []lexer.Token
	current int
}

// New creates a Parser over tokens lexed from source (source is kept only
// for diagnostic context lines).
func New(source string, tokens []lexer.Token) *Parser {
	return &Parser{source: source, tokens: tokens}
}

// Parse parses source text end to end: lex then parse a single pipeline
// declaration, the only top-level construct this language has (spec §3:
// "one pipeline = one module").
func Parse(source string) (*ast.Pipeline, error) {
	tokens, err := lexer.New(source).Tokenize()
	if err != nil {
		return nil, err
	}
	return New(source, tokens).ParsePipeline()
}

// ParsePipeline parses `pipeline name(arg: type, ...) -> type|( type, ... ) { ... }`.
func (p *Parser) ParsePipeline() (*ast.Pipeline, error) {
	start := p.peek()
	if !p.match(lexer.KeywordPipeline) {
		return nil, p.errorf("expected 'pipeline'")
	}

	if !p.check(lexer.Ident) {
		return nil, p.errorf("expected pipeline name")
	}
	name := p.advance()

	if err := p.expect(lexer.LeftParen); err != nil {
		return nil, err
	}
	var args []ast.Variable
	for !p.check(lexer.RightParen) && !p.isAtEnd() {
		arg, err := p.parameter()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if !p.match(lexer.Comma) {
			break
		}
	}
	if err := p.expect(lexer.RightParen); err != nil {
		return nil, err
	}

	var results []ast.Variable
	if p.match(lexer.Arrow) {
		rs, err := p.results()
		if err != nil {
			return nil, err
		}
		results = rs
	}

	block, err := p.block()
	if err != nil {
		return nil, err
	}

	return &ast.Pipeline{
		Name:      ast.Spanned[string]{Val: name.Lexeme, Span: p.spanAt(start)},
		Arguments: args,
		Results:   results,
		Block:     *block,
	}, nil
}

func (p *Parser) parameter() (ast.Variable, error) {
	if !p.check(lexer.Ident) {
		return ast.Variable{}, p.errorf("expected parameter name")
	}
	name := p.advance()
	if err := p.expect(lexer.Colon); err != nil {
		return ast.Variable{}, err
	}
	typ, err := p.typeSpec()
	if err != nil {
		return ast.Variable{}, err
	}
	return ast.Variable{
		Identifier: ast.Spanned[string]{Val: name.Lexeme, Span: p.spanAt(name)},
		Type:       typ,
	}, nil
}

// results parses the return-type clause: either a single type or a
// parenthesized, comma-separated list. Results carry synthetic names
// ("result0", "result1", ...) since the surface syntax does not name
// outputs and lowering only consumes their Type.
func (p *Parser) results() ([]ast.Variable, error) {
	if !p.match(lexer.LeftParen) {
		typ, err := p.typeSpec()
		if err != nil {
			return nil, err
		}
		return []ast.Variable{p.namedResult(0, typ)}, nil
	}

	var results []ast.Variable
	for !p.check(lexer.RightParen) && !p.isAtEnd() {
		typ, err := p.typeSpec()
		if err != nil {
			return nil, err
		}
		results = append(results, p.namedResult(len(results), typ))
		if !p.match(lexer.Comma) {
			break
		}
	}
	if err := p.expect(lexer.RightParen); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *Parser) namedResult(index int, typ ast.Type) ast.Variable {
	name := "result0"
	if index > 0 {
		name = "result" + strconv.Itoa(index)
	}
	return ast.Variable{Identifier: ast.Spanned[string]{Val: name}, Type: typ}
}

func (p *Parser) typeSpec() (ast.Type, error) {
	tok := p.peek()
	switch tok.Kind {
	case lexer.TypeFloat, lexer.TypeInt, lexer.TypeBool, lexer.TypeVec2, lexer.TypeVec3, lexer.TypeVec4:
		p.advance()
		return ast.NewType(tok.Lexeme), nil
	default:
		return ast.TypeUnknown, p.errorf("expected type, got %s", tok.Kind)
	}
}

func (p *Parser) block() (*ast.Block, error) {
	if err := p.expect(lexer.LeftBrace); err != nil {
		return nil, err
	}
	var stmts []ast.Statement
	for !p.check(lexer.RightBrace) && !p.isAtEnd() {
		stmt, err := p.statement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	if err := p.expect(lexer.RightBrace); err != nil {
		return nil, err
	}
	return &ast.Block{Statements: stmts}, nil
}

func (p *Parser) statement() (ast.Statement, error) {
	switch {
	case p.check(lexer.KeywordReturn):
		return p.returnStatement()
	case p.check(lexer.KeywordIf):
		return p.ifStatement()
	case p.check(lexer.KeywordFor):
		return p.forStatement()
	default:
		return p.exprOrAssignStatement(true)
	}
}

func (p *Parser) returnStatement() (ast.Statement, error) {
	p.advance() // 'return'
	expr, err := p.expression()
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.Semicolon); err != nil {
		return nil, err
	}
	return ast.ReturnStatement{Expr: expr}, nil
}

func (p *Parser) ifStatement() (ast.Statement, error) {
	p.advance() // 'if'
	if err := p.expect(lexer.LeftParen); err != nil {
		return nil, err
	}
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.RightParen); err != nil {
		return nil, err
	}
	thenBlock, err := p.block()
	if err != nil {
		return nil, err
	}

	var elseBlock *ast.Block
	if p.match(lexer.KeywordElse) {
		if p.check(lexer.KeywordIf) {
			inner, err := p.ifStatement()
			if err != nil {
				return nil, err
			}
			elseBlock = &ast.Block{Statements: []ast.Statement{inner}}
		} else {
			b, err := p.block()
			if err != nil {
				return nil, err
			}
			elseBlock = b
		}
	}

	return ast.IfElseStatement{Cond: cond, Then: *thenBlock, Else: elseBlock}, nil
}

func (p *Parser) forStatement() (ast.Statement, error) {
	p.advance() // 'for'
	if err := p.expect(lexer.LeftParen); err != nil {
		return nil, err
	}

	init, err := p.exprOrAssignStatement(true)
	if err != nil {
		return nil, err
	}

	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.Semicolon); err != nil {
		return nil, err
	}

	step, err := p.exprOrAssignStatement(false)
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.RightParen); err != nil {
		return nil, err
	}

	body, err := p.block()
	if err != nil {
		return nil, err
	}

	return ast.ForStatement{Init: init, Cond: cond, Step: step, Body: *body}, nil
}

// exprOrAssignStatement parses `name := expr`, `name = expr`, or a bare
// expression statement. consumeSemicolon is false for a for-loop's step
// clause, which is terminated by ')' instead of ';'.
func (p *Parser) exprOrAssignStatement(consumeSemicolon bool) (ast.Statement, error) {
	start := p.peek()

	if p.check(lexer.Ident) && (p.peekKind(1) == lexer.ColonEqual || p.peekKind(1) == lexer.Equal) {
		name := p.advance()
		create := p.peek().Kind == lexer.ColonEqual
		p.advance() // ':=' or '='
		expr, err := p.expression()
		if err != nil {
			return nil, err
		}
		if consumeSemicolon {
			if err := p.expect(lexer.Semicolon); err != nil {
				return nil, err
			}
		}
		return ast.AssignStatement{
			Target: ast.Variable{Identifier: ast.Spanned[string]{Val: name.Lexeme, Span: p.spanAt(name)}, Type: ast.TypeUnknown},
			Expr:   expr,
			Create: create,
		}, nil
	}

	expr, err := p.expression()
	if err != nil {
		return nil, err
	}
	if consumeSemicolon {
		if err := p.expect(lexer.Semicolon); err != nil {
			return nil, err
		}
	}
	_ = start
	return ast.ExpressionStatement{Expr: expr}, nil
}

// Expression grammar, lowest to highest precedence:
// logicalOr -> logicalAnd -> equality -> comparison -> shiftScale -> additive -> multiplicative -> unary -> primary

func (p *Parser) expression() (ast.Expression, error) {
	return p.logicalOr()
}

func (p *Parser) logicalOr() (ast.Expression, error) {
	left, err := p.logicalAnd()
	if err != nil {
		return nil, err
	}
	for p.match(lexer.PipePipe) {
		right, err := p.logicalAnd()
		if err != nil {
			return nil, err
		}
		left = ast.BinaryExpr{Op: ast.OpOr, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) logicalAnd() (ast.Expression, error) {
	left, err := p.equality()
	if err != nil {
		return nil, err
	}
	for p.match(lexer.AmpAmp) {
		right, err := p.equality()
		if err != nil {
			return nil, err
		}
		left = ast.BinaryExpr{Op: ast.OpAnd, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) equality() (ast.Expression, error) {
	left, err := p.comparison()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().Kind {
		case lexer.EqualEqual:
			p.advance()
			right, err := p.comparison()
			if err != nil {
				return nil, err
			}
			left = ast.BinaryExpr{Op: ast.OpEquals, Left: left, Right: right}
		case lexer.BangEqual:
			p.advance()
			right, err := p.comparison()
			if err != nil {
				return nil, err
			}
			left = ast.BinaryExpr{Op: ast.OpNotEquals, Left: left, Right: right}
		default:
			return left, nil
		}
	}
}

func (p *Parser) comparison() (ast.Expression, error) {
	left, err := p.shiftScale()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().Kind {
		case lexer.Less:
			p.advance()
			right, err := p.shiftScale()
			if err != nil {
				return nil, err
			}
			left = ast.BinaryExpr{Op: ast.OpLess, Left: left, Right: right}
		case lexer.LessEqual:
			p.advance()
			right, err := p.shiftScale()
			if err != nil {
				return nil, err
			}
			left = ast.BinaryExpr{Op: ast.OpLessEqual, Left: left, Right: right}
		case lexer.Greater:
			// Reversal to Less(r, l) happens during lowering (spec §4.C),
			// not here; the AST keeps the operator as written.
			p.advance()
			right, err := p.shiftScale()
			if err != nil {
				return nil, err
			}
			left = ast.BinaryExpr{Op: ast.OpMore, Left: left, Right: right}
		case lexer.GreaterEqual:
			p.advance()
			right, err := p.shiftScale()
			if err != nil {
				return nil, err
			}
			left = ast.BinaryExpr{Op: ast.OpMoreEqual, Left: left, Right: right}
		default:
			return left, nil
		}
	}
}

func (p *Parser) shiftScale() (ast.Expression, error) {
	left, err := p.additive()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().Kind {
		case lexer.LessLess:
			p.advance()
			right, err := p.additive()
			if err != nil {
				return nil, err
			}
			left = ast.ShiftExpr{Shifted: left, ShiftBy: right}
		case lexer.Tilde:
			p.advance()
			right, err := p.additive()
			if err != nil {
				return nil, err
			}
			left = ast.ScaleExpr{Scaled: left, ScaleBy: right}
		default:
			return left, nil
		}
	}
}

func (p *Parser) additive() (ast.Expression, error) {
	left, err := p.multiplicative()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().Kind {
		case lexer.Plus:
			p.advance()
			right, err := p.multiplicative()
			if err != nil {
				return nil, err
			}
			left = ast.BinaryExpr{Op: ast.OpAdd, Left: left, Right: right}
		case lexer.Minus:
			p.advance()
			right, err := p.multiplicative()
			if err != nil {
				return nil, err
			}
			left = ast.BinaryExpr{Op: ast.OpSub, Left: left, Right: right}
		default:
			return left, nil
		}
	}
}

func (p *Parser) multiplicative() (ast.Expression, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().Kind {
		case lexer.Star:
			p.advance()
			right, err := p.unary()
			if err != nil {
				return nil, err
			}
			left = ast.BinaryExpr{Op: ast.OpMul, Left: left, Right: right}
		case lexer.Slash:
			p.advance()
			right, err := p.unary()
			if err != nil {
				return nil, err
			}
			left = ast.BinaryExpr{Op: ast.OpDiv, Left: left, Right: right}
		default:
			return left, nil
		}
	}
}

func (p *Parser) unary() (ast.Expression, error) {
	if p.match(lexer.Minus) {
		operand, err := p.unary()
		if err != nil {
			return nil, err
		}
		return ast.NegationExpr{Expr: operand}, nil
	}
	return p.primary()
}

func (p *Parser) primary() (ast.Expression, error) {
	tok := p.peek()
	switch tok.Kind {
	case lexer.IntLiteral:
		p.advance()
		v, err := strconv.ParseInt(tok.Lexeme, 10, 64)
		if err != nil {
			return nil, p.errorf("invalid integer literal %q", tok.Lexeme)
		}
		return ast.IntLiteral{Val: v, Span: p.spanAt(tok)}, nil
	case lexer.FloatLiteral:
		p.advance()
		v, err := strconv.ParseFloat(tok.Lexeme, 64)
		if err != nil {
			return nil, p.errorf("invalid float literal %q", tok.Lexeme)
		}
		return ast.FloatLiteral{Val: v, Span: p.spanAt(tok)}, nil
	case lexer.Ident:
		p.advance()
		return ast.VariableExpr{Identifier: ast.Spanned[string]{Val: tok.Lexeme, Span: p.spanAt(tok)}}, nil
	case lexer.LeftParen:
		p.advance()
		expr, err := p.expression()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.RightParen); err != nil {
			return nil, err
		}
		return expr, nil
	default:
		return nil, p.errorf("unexpected token %s in expression", tok.Kind)
	}
}

// Helper methods.

func (p *Parser) advance() lexer.Token {
	if !p.isAtEnd() {
		p.current++
	}
	return p.tokens[p.current-1]
}

func (p *Parser) peek() lexer.Token {
	return p.tokens[p.current]
}

func (p *Parser) peekKind(ahead int) lexer.Kind {
	idx := p.current + ahead
	if idx >= len(p.tokens) {
		return lexer.EOF
	}
	return p.tokens[idx].Kind
}

func (p *Parser) isAtEnd() bool {
	return p.peek().Kind == lexer.EOF
}

func (p *Parser) check(kind lexer.Kind) bool {
	return !p.isAtEnd() && p.peek().Kind == kind
}

func (p *Parser) match(kind lexer.Kind) bool {
	if p.check(kind) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expect(kind lexer.Kind) error {
	if p.check(kind) {
		p.advance()
		return nil
	}
	return p.errorf("expected %s, got %s", kind, p.peek().Kind)
}

func (p *Parser) errorf(format string, args ...interface{}) error {
	return diagnostic.Newf(p.spanAt(p.peek()), p.source, format, args...)
}

func (p *Parser) spanAt(tok lexer.Token) ast.Span {
	start := ast.Position{Line: tok.Line, Column: tok.Column, Offset: tok.Offset}
	end := ast.Position{Line: tok.Line, Column: tok.Column + len(tok.Lexeme), Offset: tok.Offset + len(tok.Lexeme)}
	return ast.Span{Start: start, End: end}
}

package lexer

import "testing"

func kinds(tokens []Token) []Kind {
	ks := make([]Kind, len(tokens))
	for i, tok := range tokens {
		ks[i] = tok.Kind
	}
	return ks
}

func assertKinds(t *testing.T, input string, expected []Kind) {
	t.Helper()
	tokens, err := New(input).Tokenize()
	if err != nil {
		t.Fatalf("Tokenize(%q): unexpected error: %v", input, err)
	}
	got := kinds(tokens)
	if len(got) != len(expected) {
		t.Fatalf("Tokenize(%q): expected %d tokens, got %d (%v)", input, len(expected), len(got), got)
	}
	for i := range got {
		if got[i] != expected[i] {
			t.Errorf("Tokenize(%q): token %d: expected %v, got %v", input, i, expected[i], got[i])
		}
	}
}

func TestLexerPunctuation(t *testing.T) {
	assertKinds(t, "( ) { } , ;", []Kind{LeftParen, RightParen, LeftBrace, RightBrace, Comma, Semicolon, EOF})
}

func TestLexerOperators(t *testing.T) {
	assertKinds(t, "+ - * / ~",
		[]Kind{Plus, Minus, Star, Slash, Tilde, EOF})
	assertKinds(t, "< <= << > >= == != && ||",
		[]Kind{Less, LessEqual, LessLess, Greater, GreaterEqual, EqualEqual, BangEqual, AmpAmp, PipePipe, EOF})
	assertKinds(t, ": := -> =",
		[]Kind{Colon, ColonEqual, Arrow, Equal, EOF})
}

func TestLexerKeywordsAndTypes(t *testing.T) {
	assertKinds(t, "pipeline if else for return true false",
		[]Kind{KeywordPipeline, KeywordIf, KeywordElse, KeywordFor, KeywordReturn, KeywordTrue, KeywordFalse, EOF})
	assertKinds(t, "float int bool vec2 vec3 vec4",
		[]Kind{TypeFloat, TypeInt, TypeBool, TypeVec2, TypeVec3, TypeVec4, EOF})
}

func TestLexerNumbers(t *testing.T) {
	tests := []struct {
		input string
		kind  Kind
	}{
		{"123", IntLiteral},
		{"0", IntLiteral},
		{"1.5", FloatLiteral},
		{"1e10", FloatLiteral},
		{"1.5e-3", FloatLiteral},
		{"2E+5", FloatLiteral},
	}
	for _, tt := range tests {
		tokens, err := New(tt.input).Tokenize()
		if err != nil {
			t.Fatalf("Tokenize(%q): unexpected error: %v", tt.input, err)
		}
		if len(tokens) != 2 {
			t.Fatalf("Tokenize(%q): expected 2 tokens (literal, EOF), got %d", tt.input, len(tokens))
		}
		if tokens[0].Kind != tt.kind {
			t.Errorf("Tokenize(%q): expected %v, got %v", tt.input, tt.kind, tokens[0].Kind)
		}
		if tokens[0].Lexeme != tt.input {
			t.Errorf("Tokenize(%q): lexeme = %q, want %q", tt.input, tokens[0].Lexeme, tt.input)
		}
	}
}

func TestLexerIdentifiers(t *testing.T) {
	assertKinds(t, "x foo bar_baz _leading x2", []Kind{Ident, Ident, Ident, Ident, Ident, EOF})
}

func TestLexerComments(t *testing.T) {
	assertKinds(t, "1 // this is ignored\n2", []Kind{IntLiteral, IntLiteral, EOF})
}

func TestLexerPipelineDeclaration(t *testing.T) {
	const src = `pipeline scale(x: float, y: float) -> float {
	return x * y;
}`
	assertKinds(t, src, []Kind{
		KeywordPipeline, Ident, LeftParen,
		Ident, Colon, TypeFloat, Comma,
		Ident, Colon, TypeFloat,
		RightParen, Arrow, TypeFloat, LeftBrace,
		KeywordReturn, Ident, Star, Ident, Semicolon,
		RightBrace, EOF,
	})
}

func TestLexerTracksLineAndColumn(t *testing.T) {
	tokens, err := New("x\ny").Tokenize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tokens[0].Line != 1 || tokens[0].Column != 1 {
		t.Errorf("token 0: got line=%d column=%d, want line=1 column=1", tokens[0].Line, tokens[0].Column)
	}
	if tokens[1].Line != 2 {
		t.Errorf("token 1: got line=%d, want line=2", tokens[1].Line)
	}
}

func TestLexerRejectsUnknownOperators(t *testing.T) {
	for _, input := range []string{"!", "&", "|", "#", "?"} {
		if _, err := New(input).Tokenize(); err == nil {
			t.Errorf("Tokenize(%q): expected error, got none", input)
		}
	}
}

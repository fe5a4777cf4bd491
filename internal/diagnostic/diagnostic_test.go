package diagnostic

import (
	"strings"
	"testing"

	"github.com/gogpu/pipeline/ast"
)

func span(line, col int) ast.Span {
	return ast.Span{Start: ast.Position{Line: line, Column: col}}
}

func TestErrorFormatsLineAndColumn(t *testing.T) {
	err := New("unexpected token", span(3, 7), "")
	if got, want := err.Error(), "3:7: unexpected token"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestErrorWithoutSpanOmitsLocation(t *testing.T) {
	err := New("internal failure", ast.Span{}, "")
	if got, want := err.Error(), "internal failure"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestNewfFormatsMessage(t *testing.T) {
	err := Newf(span(1, 1), "", "expected %s, got %s", "Colon", "TypeFloat")
	if got, want := err.Message, "expected Colon, got TypeFloat"; got != want {
		t.Errorf("Message = %q, want %q", got, want)
	}
}

func TestFormatWithContextShowsOffendingLine(t *testing.T) {
	source := "pipeline f(x float) -> float {\n\treturn x;\n}"
	err := Newf(span(1, 12), source, "expected ':'")
	got := err.FormatWithContext()
	if !strings.Contains(got, "pipeline f(x float) -> float {") {
		t.Errorf("FormatWithContext() missing offending source line, got:\n%s", got)
	}
	if !strings.Contains(got, "line 1:12") {
		t.Errorf("FormatWithContext() missing location, got:\n%s", got)
	}
	if !strings.Contains(got, "^") {
		t.Errorf("FormatWithContext() missing caret, got:\n%s", got)
	}
}

func TestFormatWithContextFallsBackWithoutSource(t *testing.T) {
	err := Newf(span(1, 1), "", "bad token")
	if got, want := err.FormatWithContext(), err.Error(); got != want {
		t.Errorf("FormatWithContext() = %q, want fallback %q", got, want)
	}
}

func TestFormatWithContextFallsBackOnOutOfRangeLine(t *testing.T) {
	err := Newf(span(99, 1), "one line only", "oops")
	if got, want := err.FormatWithContext(), err.Error(); got != want {
		t.Errorf("FormatWithContext() with an out-of-range line = %q, want fallback %q", got, want)
	}
}

func TestListErrorSummarizesCount(t *testing.T) {
	var l List
	if got, want := l.Error(), "no errors"; got != want {
		t.Errorf("empty List.Error() = %q, want %q", got, want)
	}

	l.Addf(span(1, 1), "", "first problem")
	if got, want := l.Error(), "1:1: first problem"; got != want {
		t.Errorf("single-item List.Error() = %q, want %q", got, want)
	}

	l.Addf(span(2, 1), "", "second problem")
	if got, want := l.Error(), "1:1: first problem (and 1 more errors)"; got != want {
		t.Errorf("two-item List.Error() = %q, want %q", got, want)
	}
}

func TestListHasErrors(t *testing.T) {
	var l List
	if l.HasErrors() {
		t.Error("expected HasErrors()=false for an empty list")
	}
	l.Add(New("x", ast.Span{}, ""))
	if !l.HasErrors() {
		t.Error("expected HasErrors()=true after Add")
	}
}

func TestListFormatAllJoinsEachDiagnostic(t *testing.T) {
	var l List
	l.Addf(span(1, 1), "", "first")
	l.Addf(span(2, 1), "", "second")
	got := l.FormatAll()
	if !strings.Contains(got, "first") || !strings.Contains(got, "second") {
		t.Errorf("FormatAll() missing an entry, got:\n%s", got)
	}
}

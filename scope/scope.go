// Package scope implements the semantic name-resolution contract the core
// IR pipeline sits downstream of: nested variable scopes with shadowing
// detection, as an owned arena instead of parent-linked borrows.
package scope

import (
	"fmt"

	"github.com/gogpu/pipeline/ast"
	"github.com/gogpu/pipeline/internal/diagnostic"
)

// ID names one scope within a Table by its index in the arena; obtain one
// from Global or Child. The first scope a Table allocates has ID 0.
type ID int

// Entry is one declared variable.
type Entry struct {
	Name string
	Type ast.Type
	Span ast.Span
	Used bool
}

type scope struct {
	parent    ID
	hasParent bool
	entries   []Entry
}

// Table is an arena of scopes, addressed by ID instead of by pointer.
type Table struct {
	scopes []scope
}

// NewTable returns an empty arena with no scopes yet allocated.
func NewTable() *Table {
	return &Table{}
}

func (t *Table) alloc(s scope) ID {
	t.scopes = append(t.scopes, s)
	return ID(len(t.scopes) - 1)
}

// Global allocates a new scope with no parent.
func (t *Table) Global() ID {
	return t.alloc(scope{})
}

// Child allocates a new scope nested under parent.
func (t *Table) Child(parent ID) ID {
	return t.alloc(scope{parent: parent, hasParent: true})
}

// VariableExists reports whether name is declared in id or any ancestor
// scope, returning the span of its declaration.
func (t *Table) VariableExists(id ID, name string) (ast.Span, bool) {
	for {
		s := &t.scopes[id]
		for _, e := range s.entries {
			if e.Name == name {
				return e.Span, true
			}
		}
		if !s.hasParent {
			return ast.Span{}, false
		}
		id = s.parent
	}
}

// DuplicateVariableError reports an attempt to redeclare a name already
// visible in the current scope chain. It wraps a *diagnostic.Error so
// callers that only need a message can use Error() directly, while callers
// that want the original declaration's span can use the exported
// ExistingAt field (the redeclaration site is held only by the wrapped
// diagnostic); Source is left blank here since Table never sees
// the original source text, only spans — FormatWithContext degrades to
// Error() in that case (see diagnostic.Error.FormatWithContext).
type DuplicateVariableError struct {
	Name       string
	ExistingAt ast.Span
	diag       *diagnostic.Error
}

func (e *DuplicateVariableError) Error() string {
	return e.diag.Error()
}

// FormatWithContext delegates to the wrapped diagnostic.Error.
func (e *DuplicateVariableError) FormatWithContext() string {
	return e.diag.FormatWithContext()
}

// CreateVariable declares name in scope id. It fails if name is already
// visible from id, mirroring variable_exists guarding create_variable.
func (t *Table) CreateVariable(id ID, name string, typ ast.Type, span ast.Span) error {
	if existing, ok := t.VariableExists(id, name); ok {
		msg := fmt.Sprintf("variable %q already declared at %d:%d", name, existing.Start.Line, existing.Start.Column)
		return &DuplicateVariableError{
			Name:       name,
			ExistingAt: existing,
			diag:       diagnostic.New(msg, span, ""),
		}
	}
	s := &t.scopes[id]
	s.entries = append(s.entries, Entry{Name: name, Type: typ, Span: span})
	return nil
}

// UseVariable looks up name starting at scope id, marking the declaration
// used, and returns its declared type.
func (t *Table) UseVariable(id ID, name string) (ast.Type, bool) {
	for {
		s := &t.scopes[id]
		for i := range s.entries {
			if s.entries[i].Name == name {
				s.entries[i].Used = true
				return s.entries[i].Type, true
			}
		}
		if !s.hasParent {
			return 0, false
		}
		id = s.parent
	}
}

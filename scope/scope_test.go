package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/pipeline/ast"
)

func TestCreateAndUseVariable(t *testing.T) {
	table := NewTable()
	g := table.Global()

	require.NoError(t, table.CreateVariable(g, "x", ast.TypeFloat, ast.Span{}))

	typ, ok := table.UseVariable(g, "x")
	require.True(t, ok, "expected x to resolve")
	assert.Equal(t, ast.TypeFloat, typ)
}

func TestCreateVariableDetectsDuplicateInSameScope(t *testing.T) {
	table := NewTable()
	g := table.Global()

	require.NoError(t, table.CreateVariable(g, "x", ast.TypeFloat, ast.Span{}))

	err := table.CreateVariable(g, "x", ast.TypeInt, ast.Span{})
	require.Error(t, err)

	var dupErr *DuplicateVariableError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, "x", dupErr.Name)
}

func TestChildScopeSeesParentVariables(t *testing.T) {
	table := NewTable()
	g := table.Global()
	require.NoError(t, table.CreateVariable(g, "x", ast.TypeFloat, ast.Span{}))

	child := table.Child(g)
	typ, ok := table.UseVariable(child, "x")
	require.True(t, ok, "expected child scope to see parent's x")
	assert.Equal(t, ast.TypeFloat, typ)
}

func TestChildScopeShadowingIsRejectedAsDuplicate(t *testing.T) {
	table := NewTable()
	g := table.Global()
	require.NoError(t, table.CreateVariable(g, "x", ast.TypeFloat, ast.Span{}))

	child := table.Child(g)
	// VariableExists walks ancestors, so declaring x again in the child
	// also counts as a duplicate: this language has no shadowing.
	err := table.CreateVariable(child, "x", ast.TypeInt, ast.Span{})
	assert.Error(t, err)
}

func TestUseVariableUnknownNameFails(t *testing.T) {
	table := NewTable()
	g := table.Global()

	_, ok := table.UseVariable(g, "nope")
	assert.False(t, ok)
}

func TestVariableExistsReturnsDeclarationSpan(t *testing.T) {
	table := NewTable()
	g := table.Global()
	span := ast.Span{Start: ast.Position{Line: 3, Column: 5}}
	require.NoError(t, table.CreateVariable(g, "y", ast.TypeBool, span))

	got, ok := table.VariableExists(g, "y")
	require.True(t, ok)
	assert.Equal(t, span, got)
}

func TestSiblingScopesDoNotSeeEachOther(t *testing.T) {
	table := NewTable()
	g := table.Global()
	a := table.Child(g)
	b := table.Child(g)

	require.NoError(t, table.CreateVariable(a, "x", ast.TypeFloat, ast.Span{}))

	_, ok := table.UseVariable(b, "x")
	assert.False(t, ok, "scope b should not see a's locals")
}

package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/m2t/internal/ast"
	"github.com/vk/m2t/internal/exprlang"
	"github.com/vk/m2t/internal/parser"
)

func TestParseMinimalModule(t *testing.T) {
	mod, err := parser.Parse("[module gen('http://example/meta')][template main t()]hi[/template]")
	require.NoError(t, err)
	assert.Equal(t, "gen", mod.Name)
	assert.True(t, mod.Templates.Has("t"))
	tpl, _ := mod.MainTemplate()
	require.NotNil(t, tpl)
	assert.True(t, tpl.IsMain)
	require.Len(t, tpl.Body.Statements, 1)
	text, ok := tpl.Body.Statements[0].(ast.TextStmt)
	require.True(t, ok)
	assert.Equal(t, "hi", text.Value)
}

func TestParseTemplateWithGuardAndParams(t *testing.T) {
	src := "[module gen('u')][template t(x : Integer) guard(x > 0)]body[/template]"
	mod, err := parser.Parse(src)
	require.NoError(t, err)
	tpl, ok := mod.Templates.Get("t")
	require.True(t, ok)
	require.Len(t, tpl.Parameters, 1)
	assert.Equal(t, "x", tpl.Parameters[0].Name)
	assert.Equal(t, "Integer", tpl.Parameters[0].Type)
	require.NotNil(t, tpl.Guard)
}

func TestParseIfElseifElse(t *testing.T) {
	src := "[module gen('u')][template t()][if (x)]a[elseif (y)]b[else]c[/if][/template]"
	mod, err := parser.Parse(src)
	require.NoError(t, err)
	tpl, _ := mod.Templates.Get("t")
	ifStmt, ok := tpl.Body.Statements[0].(ast.IfStmt)
	require.True(t, ok)
	require.Len(t, ifStmt.ElseIfs, 1)
	require.NotNil(t, ifStmt.Else)
}

func TestParseForWithSeparator(t *testing.T) {
	src := "[module gen('u')][template t()][for (x in xs) separator(', ')][x/][/for][/template]"
	mod, err := parser.Parse(src)
	require.NoError(t, err)
	tpl, _ := mod.Templates.Get("t")
	forStmt, ok := tpl.Body.Statements[0].(ast.ForStmt)
	require.True(t, ok)
	assert.Equal(t, "x", forStmt.Variable.Name)
	require.NotNil(t, forStmt.Separator)
}

func TestParseQuery(t *testing.T) {
	src := "[module gen('u')][query isPositive(x : Integer) : Boolean = x > 0/]"
	mod, err := parser.Parse(src)
	require.NoError(t, err)
	q, ok := mod.Queries.Get("isPositive")
	require.True(t, ok)
	assert.Equal(t, "Boolean", q.ReturnType)
}

func TestParseMacroWithBodyParameter(t *testing.T) {
	src := "[module gen('u')][macro wrap(content : Block)]pre[/macro]"
	mod, err := parser.Parse(src)
	require.NoError(t, err)
	m, ok := mod.Macros.Get("wrap")
	require.True(t, ok)
	assert.Equal(t, "content", m.BodyParameter)
	assert.Empty(t, m.Parameters)
}

func TestParseDuplicateTemplateNameIsError(t *testing.T) {
	src := "[module gen('u')][template t()]a[/template][template t()]b[/template]"
	_, err := parser.Parse(src)
	assert.Error(t, err)
}

func TestParseCollectionSelectWithIterator(t *testing.T) {
	src := "[module gen('u')][query q() : Sequence = xs->select(e | e > 1)/]"
	mod, err := parser.Parse(src)
	require.NoError(t, err)
	q, _ := mod.Queries.Get("q")
	op, ok := q.Body.Node.(exprlang.CollectionOp)
	require.True(t, ok)
	assert.Equal(t, "select", op.Op)
	assert.Equal(t, "e", op.Iterator)
}

func TestParseFileStatementWithModeAndCharset(t *testing.T) {
	src := "[module gen('u')][template t()][file ('out.txt', 'append', 'UTF-8')]hi[/file][/template]"
	mod, err := parser.Parse(src)
	require.NoError(t, err)
	tpl, _ := mod.Templates.Get("t")
	fileStmt, ok := tpl.Body.Statements[0].(ast.FileStmt)
	require.True(t, ok)
	require.NotNil(t, fileStmt.Charset)
}

func TestParseProtectedAreaStatement(t *testing.T) {
	src := "[module gen('u')][template t()][protected ('id1')]default[/protected][/template]"
	mod, err := parser.Parse(src)
	require.NoError(t, err)
	tpl, _ := mod.Templates.Get("t")
	_, ok := tpl.Body.Statements[0].(ast.ProtectedAreaStmt)
	assert.True(t, ok)
}

func TestParseMacroInvocationWithInlineBlock(t *testing.T) {
	src := "[module gen('u')][macro wrap(content : Block)][content][/macro][template t()][wrap()]inner[/wrap][/template]"
	mod, err := parser.Parse(src)
	require.NoError(t, err)
	tpl, _ := mod.Templates.Get("t")
	inv, ok := tpl.Body.Statements[0].(ast.MacroInvocationStmt)
	require.True(t, ok)
	assert.Equal(t, "wrap", inv.Name)
	require.NotNil(t, inv.BodyContent)
}

func TestParseKeywordSpelledIdentifier(t *testing.T) {
	src := "[module gen('u')][template t()][let size = 5][size/][/let][/template]"
	_, err := parser.Parse(src)
	require.NoError(t, err)
}

package interp_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/m2t/internal/ast"
	"github.com/vk/m2t/internal/indent"
	"github.com/vk/m2t/internal/interp"
	"github.com/vk/m2t/internal/parser"
	"github.com/vk/m2t/internal/protectedarea"
	"github.com/vk/m2t/internal/writer"
)

// fakeStrategy is a minimal in-memory OutputStrategy double for these tests.
type fakeStrategy struct {
	files map[string]string
}

func newFakeStrategy() *fakeStrategy { return &fakeStrategy{files: map[string]string{}} }

func (s *fakeStrategy) CreateWriter(url string, mode ast.FileMode, charset string, ind indent.Indentation) (*writer.Writer, error) {
	w := writer.New(ind)
	if mode == ast.FileAppend {
		w.Write(s.files[url], false)
	}
	return w, nil
}

func (s *fakeStrategy) FinalizeWriter(url string, w *writer.Writer) error {
	s.files[url] = w.Content()
	return nil
}

func run(t *testing.T, src string, args ...cty.Value) (string, error) {
	t.Helper()
	mod, err := parser.Parse(src)
	require.NoError(t, err)
	strategy := newFakeStrategy()
	ctx := interp.NewContext(mod, strategy, protectedarea.New(), "  ")
	in := interp.New(mod, ctx)
	return in.Generate(nil, args)
}

func TestGenerateTextTemplate(t *testing.T) {
	out, err := run(t, "[module gen('u')][template main t()]hello[/template]")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestGenerateExpressionStatement(t *testing.T) {
	out, err := run(t, "[module gen('u')][template main t()][1 + 2/][/template]")
	require.NoError(t, err)
	assert.Equal(t, "3", out)
}

func TestGenerateIfElse(t *testing.T) {
	out, err := run(t, "[module gen('u')][template main t()][if (1 > 2)]yes[else]no[/if][/template]")
	require.NoError(t, err)
	assert.Equal(t, "no", out)
}

func TestGenerateForWithSeparator(t *testing.T) {
	src := "[module gen('u')][template main t()][let xs = ('A' + 'B')][for (x in xs) separator(', ')][x/][/for][/let][/template]"
	// A single non-collection value is treated as a one-element sequence,
	// so this exercises the coercion rule rather than a real list literal
	// (the language has no list literal syntax).
	out, err := run(t, src)
	require.NoError(t, err)
	assert.Equal(t, "AB", out)
}

func TestGenerateGuardSkipsSilently(t *testing.T) {
	out, err := run(t, "[module gen('u')][template main t()]before[t2()]after[/template][template t2() guard(1 > 2)]never[/template]")
	require.NoError(t, err)
	assert.NotContains(t, out, "never")
	assert.Contains(t, out, "before")
	assert.Contains(t, out, "after")
}

func TestGeneratePostConditionFailureErrors(t *testing.T) {
	_, err := run(t, "[module gen('u')][template main t()]x[/template]") // baseline sanity
	require.NoError(t, err)

	_, err = run(t, "[module gen('u')][template main t() post(1 > 2)]x[/template]")
	require.Error(t, err)
}

func TestGenerateMacroInvocationWithInlineBlock(t *testing.T) {
	src := "[module gen('u')]" +
		"[macro wrap(content : Block)]<[content]>[/macro]" +
		"[template main t()][wrap()]mid[/wrap][/template]"
	out, err := run(t, src)
	require.NoError(t, err)
	assert.Equal(t, "<mid>", out)
}

func TestGenerateProtectedAreaDefaultThenPreserved(t *testing.T) {
	src := "[module gen('u')][template main t()][protected ('id1')]default[/protected][/template]"
	mod, err := parser.Parse(src)
	require.NoError(t, err)

	strategy := newFakeStrategy()
	pm := protectedarea.New()
	ctx := interp.NewContext(mod, strategy, pm, "  ")
	in := interp.New(mod, ctx)
	out, err := in.Generate(nil, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "default")
	assert.Contains(t, out, "START PROTECTED REGION id1")

	pm.Set("id1", "kept content", "", "")
	ctx2 := interp.NewContext(mod, strategy, pm, "  ")
	in2 := interp.New(mod, ctx2)
	out2, err := in2.Generate(nil, nil)
	require.NoError(t, err)
	assert.Contains(t, out2, "kept content")
	assert.NotContains(t, out2, "default")
}

func TestGenerateTemplateOverridesAutoDetect(t *testing.T) {
	src := "[module gen('u')][template main t()]main[/template][template t2()]other[/template]"
	mod, err := parser.Parse(src)
	require.NoError(t, err)
	ctx := interp.NewContext(mod, newFakeStrategy(), protectedarea.New(), "  ")
	in := interp.New(mod, ctx)

	out, err := in.GenerateTemplate("t2", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "other", out)
}

func TestGenerateTemplateUnknownNameErrors(t *testing.T) {
	mod, err := parser.Parse("[module gen('u')][template main t()]main[/template]")
	require.NoError(t, err)
	ctx := interp.NewContext(mod, newFakeStrategy(), protectedarea.New(), "  ")
	in := interp.New(mod, ctx)

	_, err = in.GenerateTemplate("missing", nil, nil)
	assert.Error(t, err)
}

func TestGenerateNoTemplatesErrors(t *testing.T) {
	mod, err := parser.Parse("[module gen('u')]")
	require.NoError(t, err)
	ctx := interp.NewContext(mod, newFakeStrategy(), protectedarea.New(), "  ")
	in := interp.New(mod, ctx)
	_, err = in.Generate(nil, nil)
	assert.Error(t, err)
}

func TestGenerateFileStatementRedirectsOutput(t *testing.T) {
	src := "[module gen('u')][template main t()]outer[file ('out.txt')]inner[/file]after[/template]"
	mod, err := parser.Parse(src)
	require.NoError(t, err)
	strategy := newFakeStrategy()
	ctx := interp.NewContext(mod, strategy, protectedarea.New(), "  ")
	in := interp.New(mod, ctx)
	out, err := in.Generate(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "outerafter", out)
	assert.Equal(t, "inner", strategy.files["out.txt"])
}

func TestGenerateFileStatementDiscardedOnBodyError(t *testing.T) {
	src := "[module gen('u')][template main t()][file ('out.txt')]inner[1 / 0/][/file][/template]"
	mod, err := parser.Parse(src)
	require.NoError(t, err)
	strategy := newFakeStrategy()
	ctx := interp.NewContext(mod, strategy, protectedarea.New(), "  ")
	in := interp.New(mod, ctx)
	_, err = in.Generate(nil, nil)
	require.Error(t, err)
	_, committed := strategy.files["out.txt"]
	assert.False(t, committed, "a file writer left open by a failing statement must not be committed")
}

func TestGenerateFileStatementCommittedBeforeLaterFailure(t *testing.T) {
	src := "[module gen('u')][template main t() post(1 > 2)][file ('out.txt')]inner[/file][/template]"
	mod, err := parser.Parse(src)
	require.NoError(t, err)
	strategy := newFakeStrategy()
	ctx := interp.NewContext(mod, strategy, protectedarea.New(), "  ")
	in := interp.New(mod, ctx)
	_, err = in.Generate(nil, nil)
	require.Error(t, err)
	assert.Equal(t, "inner", strategy.files["out.txt"], "a file already closed before the later failure stays committed")
}

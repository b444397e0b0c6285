// Package interp implements the execution context (C7) and the
// tree-walking interpreter (C8): the runtime that drives a parsed
// internal/ast.Module to produce text output.
package interp

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/m2t/internal/ast"
	"github.com/vk/m2t/internal/errs"
	"github.com/vk/m2t/internal/indent"
	"github.com/vk/m2t/internal/protectedarea"
	"github.com/vk/m2t/internal/writer"
)

// TraceLink records a source->target pair added by a Trace statement.
type TraceLink struct {
	Source any
	Target string
}

// openWriter pairs a pushed Writer with the url it will be finalised
// against (empty for the base stdout-like writer, which is never
// finalised by the strategy — see Finalize).
type openWriter struct {
	url string
	w   *writer.Writer
}

// Context is the execution context of §4.7: one per top-level Generate
// call, discarded on completion.
type Context struct {
	module *ast.Module

	current    map[string]cty.Value
	scopeStack []map[string]cty.Value

	indentStack []indent.Indentation
	writers     []openWriter

	protected *protectedarea.Manager
	strategy  OutputStrategy
	models    map[string]any
	trace     []TraceLink

	traceTargetPolicy TraceTargetPolicy
}

// TraceTargetPolicy resolves Open Question (a): how a Trace statement's
// target identifier is produced.
type TraceTargetPolicy string

const (
	// TracePlaceholder preserves the literal "generated-output" placeholder.
	TracePlaceholder TraceTargetPolicy = "placeholder"
	// TraceUUID assigns a fresh google/uuid per trace link.
	TraceUUID TraceTargetPolicy = "uuid"
)

// SetTraceTargetPolicy overrides the default (TracePlaceholder) policy.
func (c *Context) SetTraceTargetPolicy(p TraceTargetPolicy) {
	c.traceTargetPolicy = p
}

// NewContext builds a fresh execution context for module, writing through
// strategy and sharing protected (which may be reused across generation
// runs, per §5's "the protected-area manager... may be shared" rule).
func NewContext(module *ast.Module, strategy OutputStrategy, protected *protectedarea.Manager, indentUnit string) *Context {
	base := indent.New(indentUnit)
	return &Context{
		module:      module,
		current:     map[string]cty.Value{},
		indentStack: []indent.Indentation{base},
		writers:     []openWriter{{url: "", w: writer.New(base)}},
		protected:   protected,
		strategy:    strategy,
		models:      map[string]any{},
	}
}

// --- Variable scoping (exprlang.EvalContext) ---

func (c *Context) GetVariable(name string) (cty.Value, bool) {
	if v, ok := c.current[name]; ok {
		return v, true
	}
	for i := len(c.scopeStack) - 1; i >= 0; i-- {
		if v, ok := c.scopeStack[i][name]; ok {
			return v, true
		}
	}
	return cty.NilVal, false
}

func (c *Context) SetVariable(name string, v cty.Value) {
	c.current[name] = v
}

func (c *Context) PushScope() {
	c.scopeStack = append(c.scopeStack, c.current)
	c.current = map[string]cty.Value{}
}

func (c *Context) PopScope() {
	if len(c.scopeStack) == 0 {
		c.current = map[string]cty.Value{}
		return
	}
	last := len(c.scopeStack) - 1
	c.current = c.scopeStack[last]
	c.scopeStack = c.scopeStack[:last]
}

// CallQuery implements exprlang.EvalContext for the query-invocation Call
// node: look up a query by name in the owning module, verify arity, bind
// parameters in a fresh scope, evaluate its body, and restore the caller's
// scope without leaking any binding (§3's "query execution must not
// modify any... scope visible to callers").
func (c *Context) CallQuery(name string, args []cty.Value) (cty.Value, error) {
	q, ok := c.module.Queries.Get(name)
	if !ok {
		return cty.NilVal, errs.NewLookupError(errs.QueryNotFound, name, c.module.Queries.Keys())
	}
	if len(args) != len(q.Parameters) {
		return cty.NilVal, errs.NewExecError(errs.TypeError, name, "expected %d argument(s), got %d", len(q.Parameters), len(args))
	}
	c.PushScope()
	for i, param := range q.Parameters {
		c.SetVariable(param.Name, args[i])
	}
	result, err := Evaluate(q.Body, c)
	c.PopScope()
	return result, err
}

// --- Indentation stack ---

func (c *Context) PushIndentation() {
	top := c.indentStack[len(c.indentStack)-1]
	c.indentStack = append(c.indentStack, top.Increment())
	c.syncIndentation()
}

func (c *Context) PopIndentation() {
	if len(c.indentStack) <= 1 {
		return
	}
	c.indentStack = c.indentStack[:len(c.indentStack)-1]
	c.syncIndentation()
}

func (c *Context) syncIndentation() {
	if w := c.topWriter(); w != nil {
		w.SetIndentation(c.indentStack[len(c.indentStack)-1])
	}
}

// --- Writer stack ---

func (c *Context) topWriter() *writer.Writer {
	if len(c.writers) == 0 {
		return nil
	}
	return c.writers[len(c.writers)-1].w
}

// OpenFile requests a new writer from the output strategy for url and
// pushes it, so that subsequent writes are redirected there.
func (c *Context) OpenFile(url string, mode ast.FileMode, charset string) error {
	w, err := c.strategy.CreateWriter(url, mode, charset, c.indentStack[len(c.indentStack)-1])
	if err != nil {
		return err
	}
	c.writers = append(c.writers, openWriter{url: url, w: w})
	return nil
}

// CloseFile pops the top writer and asks the strategy to finalise it. It is
// an error to call this with only the base writer remaining.
func (c *Context) CloseFile() error {
	if len(c.writers) <= 1 {
		return errs.NewExecError(errs.FileError, "", "close_file called with no open file writer")
	}
	top := c.writers[len(c.writers)-1]
	c.writers = c.writers[:len(c.writers)-1]
	return c.strategy.FinalizeWriter(top.url, top.w)
}

// DiscardFile pops the top writer without asking the strategy to finalise
// it, per §7's "open file writers are discarded (not finalised) on error
// unless the strategy documents otherwise." It is an error to call this
// with only the base writer remaining.
func (c *Context) DiscardFile() error {
	if len(c.writers) <= 1 {
		return errs.NewExecError(errs.FileError, "", "discard_file called with no open file writer")
	}
	top := c.writers[len(c.writers)-1]
	c.writers = c.writers[:len(c.writers)-1]
	slog.Warn("interp: discarding unfinished file writer after error", "url", top.url)
	return nil
}

// Write and WriteLine route to the current top-of-stack writer. Writes on
// an empty stack are silently discarded (should not occur in practice: the
// base writer is never popped).
func (c *Context) Write(text string, applyIndent bool) {
	if w := c.topWriter(); w != nil {
		w.Write(text, applyIndent)
	}
}

func (c *Context) WriteLine(text string, applyIndent bool) {
	if w := c.topWriter(); w != nil {
		w.WriteLine(text, applyIndent)
	}
}

func (c *Context) NewLine(applyIndentNext bool) {
	if w := c.topWriter(); w != nil {
		w.NewLine(applyIndentNext)
	}
}

// --- Protected areas ---

func (c *Context) GetProtected(id string) (protectedarea.Record, bool) {
	return c.protected.Get(id)
}

func (c *Context) SetProtected(id, content, startLine, endLine string) {
	c.protected.Set(id, content, startLine, endLine)
}

func (c *Context) ScanProtected(path string) error {
	return c.protected.ScanFile(path)
}

// --- Trace ---

func (c *Context) AddTrace(source any, target string) {
	c.trace = append(c.trace, TraceLink{Source: source, Target: target})
}

// traceTarget produces the target identifier for a new trace link per the
// configured TraceTargetPolicy.
func (c *Context) traceTarget() string {
	if c.traceTargetPolicy == TraceUUID {
		return uuid.NewString()
	}
	return "generated-output"
}

// Trace returns the recorded trace links in insertion order.
func (c *Context) Trace() []TraceLink {
	out := make([]TraceLink, len(c.trace))
	copy(out, c.trace)
	return out
}

// --- Models ---

func (c *Context) RegisterModel(alias string, resource any) {
	c.models[alias] = resource
}

func (c *Context) GetModel(alias string) (any, bool) {
	r, ok := c.models[alias]
	return r, ok
}

// --- Evaluation ---

// Evaluate delegates to the expression evaluator, propagating errors.
func (c *Context) Evaluate(expr ast.Expression) (cty.Value, error) {
	return Evaluate(expr, c)
}

// --- Finalisation ---

// Finalize pops any still-open file writers and returns the base writer's
// content without persisting it — the caller (CLI / strategy) decides
// whether that pseudo-file is written out. When commit is true (the
// generation completed without error) each open writer is finalised
// through the strategy; when false, per §7's error-propagation rule, they
// are discarded instead so a failed generation never commits partial file
// output.
func (c *Context) Finalize(commit bool) (string, error) {
	var firstErr error
	for len(c.writers) > 1 {
		var err error
		if commit {
			err = c.CloseFile()
		} else {
			err = c.DiscardFile()
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return c.writers[0].w.Content(), firstErr
}

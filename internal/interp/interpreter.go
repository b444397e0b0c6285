package interp

import (
	"log/slog"
	"time"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/m2t/internal/ast"
	"github.com/vk/m2t/internal/errs"
	"github.com/vk/m2t/internal/exprlang"
	"github.com/vk/m2t/internal/value"
)

// Evaluate unwraps an ast.Expression and delegates to the expression
// sublanguage's evaluator.
func Evaluate(expr ast.Expression, ctx *Context) (cty.Value, error) {
	return exprlang.Evaluate(expr.Node, ctx)
}

// Stats tracks the outcome of a Generate call, per §4.8.
type Stats struct {
	TemplatesExecuted int
	Successful        bool
	LastError         error
	Elapsed           time.Duration
}

// Interpreter drives a Module's templates/queries/macros against a Context.
// It is single-threaded and cooperative: statements execute strictly in
// sequence (§4.8).
type Interpreter struct {
	module *ast.Module
	ctx    *Context
	stats  Stats
}

// New returns an Interpreter that runs module's templates, queries and
// macros against ctx.
func New(module *ast.Module, ctx *Context) *Interpreter {
	return &Interpreter{module: module, ctx: ctx}
}

// Stats returns a snapshot of the last Generate call's statistics.
func (in *Interpreter) Stats() Stats { return in.stats }

// Generate resets statistics, registers models, locates the main template
// per the auto-detect policy, and executes it with args. Once a main
// template is found, it finalises the context whether or not execution
// succeeded, and re-raises any execution error.
func (in *Interpreter) Generate(models map[string]any, args []cty.Value) (string, error) {
	return in.generate("", models, args)
}

// GenerateTemplate is Generate with the main-template auto-detect policy
// overridden by name (§6.6's "main-template" option): mainTemplate must
// name an existing template, or TemplateNotFound is raised.
func (in *Interpreter) GenerateTemplate(mainTemplate string, models map[string]any, args []cty.Value) (string, error) {
	return in.generate(mainTemplate, models, args)
}

func (in *Interpreter) generate(mainTemplate string, models map[string]any, args []cty.Value) (string, error) {
	start := time.Now()
	in.stats = Stats{}
	for alias, resource := range models {
		in.ctx.RegisterModel(alias, resource)
		in.ctx.SetVariable(alias, value.ModelObject(resource))
	}

	tpl, err := in.resolveMainTemplate(mainTemplate)
	if err != nil {
		slog.Error("interp: main template resolution failed", "error", err)
		in.stats.LastError = err
		in.stats.Elapsed = time.Since(start)
		return "", err
	}
	slog.Debug("interp: generation starting", "template", tpl.Name)

	err = in.executeTemplate(tpl, args)
	out, finalizeErr := in.ctx.Finalize(err == nil)
	if err == nil {
		err = finalizeErr
	}

	in.stats.Elapsed = time.Since(start)
	in.stats.Successful = err == nil
	if err != nil {
		slog.Error("interp: generation failed", "template", tpl.Name, "error", err)
		in.stats.LastError = err
		return out, err
	}
	slog.Debug("interp: generation complete", "template", tpl.Name, "templates_executed", in.stats.TemplatesExecuted)
	return out, nil
}

// resolveMainTemplate implements the auto-detect policy of §6.5, with the
// §6.6 "main-template" configuration option overriding it when non-empty.
func (in *Interpreter) resolveMainTemplate(mainTemplate string) (*ast.Template, error) {
	if mainTemplate != "" {
		tpl, ok := in.module.Templates.Get(mainTemplate)
		if !ok {
			return nil, errs.NewLookupError(errs.TemplateNotFound, mainTemplate, in.module.Templates.Keys())
		}
		return tpl, nil
	}
	tpl, ok := in.module.MainTemplate()
	if !ok {
		return nil, errs.NewExecError(errs.NoTemplates, "", "module %q declares no templates", in.module.Name)
	}
	return tpl, nil
}

// executeTemplate implements §4.8's template execution semantics.
func (in *Interpreter) executeTemplate(tpl *ast.Template, args []cty.Value) error {
	if len(args) != len(tpl.Parameters) {
		return errs.NewExecError(errs.TypeError, tpl.Name, "expected %d argument(s), got %d", len(tpl.Parameters), len(args))
	}
	slog.Debug("interp: entering template", "template", tpl.Name)
	defer slog.Debug("interp: leaving template", "template", tpl.Name)
	in.ctx.PushScope()
	defer in.ctx.PopScope()

	for i, param := range tpl.Parameters {
		in.ctx.SetVariable(param.Name, args[i])
	}

	if tpl.Guard != nil {
		v, err := in.ctx.Evaluate(*tpl.Guard)
		if err != nil {
			return err
		}
		ok, isBool := value.Truthy(v)
		if !isBool || !ok {
			return nil // guard silence (§8, Property 7)
		}
	}

	if err := in.executeBlock(tpl.Body); err != nil {
		return err
	}

	if tpl.Post != nil {
		v, err := in.ctx.Evaluate(*tpl.Post)
		if err != nil {
			return err
		}
		ok, isBool := value.Truthy(v)
		if !isBool || !ok {
			return errs.NewExecError(errs.PostConditionFailed, tpl.Name, "post-condition not satisfied")
		}
	}

	in.stats.TemplatesExecuted++
	return nil
}

// executeMacro implements §4.8's MacroInvocation semantics for the macro
// call itself (arity/body-parameter checks, scope, body execution).
func (in *Interpreter) executeMacro(m *ast.Macro, args []cty.Value, body *ast.Block) error {
	if len(args) != len(m.Parameters) {
		return errs.NewExecError(errs.TypeError, m.Name, "expected %d argument(s), got %d", len(m.Parameters), len(args))
	}
	if m.BodyParameter != "" && body == nil {
		return errs.NewExecError(errs.InvalidOperation, m.Name, "macro requires an inline block argument")
	}
	if m.BodyParameter == "" && body != nil {
		return errs.NewExecError(errs.InvalidOperation, m.Name, "macro takes no inline block argument")
	}

	slog.Debug("interp: entering macro", "macro", m.Name)
	defer slog.Debug("interp: leaving macro", "macro", m.Name)
	in.ctx.PushScope()
	defer in.ctx.PopScope()

	for i, param := range m.Parameters {
		in.ctx.SetVariable(param.Name, args[i])
	}
	if m.BodyParameter != "" {
		in.ctx.SetVariable(m.BodyParameter, BlockVal(body))
	}

	return in.executeBlock(m.Body)
}

// executeBlock implements the Block statement semantics: a non-inlined
// block pushes an indentation level on entry and pops it on every exit
// path.
func (in *Interpreter) executeBlock(b ast.Block) error {
	if !b.Inlined {
		in.ctx.PushIndentation()
		defer in.ctx.PopIndentation()
	}
	for _, stmt := range b.Statements {
		if err := in.executeStmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (in *Interpreter) executeStmt(stmt ast.Statement) error {
	switch s := stmt.(type) {
	case ast.TextStmt:
		in.ctx.Write(s.Value, true)
		if s.NewLineNeeded {
			in.ctx.WriteLine("", true)
		}
		return nil

	case ast.ExpressionStmt:
		v, err := in.ctx.Evaluate(s.Expr)
		if err != nil {
			return err
		}
		if blk, ok := AsBlock(v); ok {
			if err := in.executeBlock(*blk); err != nil {
				return err
			}
		} else if !value.IsNull(v) {
			str, err := value.CanonicalString(v)
			if err != nil {
				return err
			}
			in.ctx.Write(str, true)
		}
		if s.NewLineNeeded {
			in.ctx.WriteLine("", true)
		}
		return nil

	case ast.NewLineStmt:
		in.ctx.WriteLine("", s.IndentationNeeded)
		return nil

	case ast.CommentStmt:
		return nil

	case ast.IfStmt:
		return in.executeIf(s)

	case ast.ForStmt:
		return in.executeFor(s)

	case ast.LetStmt:
		return in.executeLet(s)

	case ast.FileStmt:
		return in.executeFile(s)

	case ast.ProtectedAreaStmt:
		return in.executeProtectedArea(s)

	case ast.TraceStmt:
		return in.executeTrace(s)

	case ast.MacroInvocationStmt:
		return in.executeMacroInvocation(s)

	default:
		return errs.NewExecError(errs.InvalidOperation, "", "unknown statement type %T", stmt)
	}
}

func (in *Interpreter) executeIf(s ast.IfStmt) error {
	matched, err := in.tryBranch(s.Condition, s.Then)
	if err != nil || matched {
		return err
	}
	for _, ei := range s.ElseIfs {
		matched, err := in.tryBranch(ei.Condition, ei.Block)
		if err != nil || matched {
			return err
		}
	}
	if s.Else != nil {
		return in.executeBlock(*s.Else)
	}
	return nil
}

// tryBranch evaluates cond; if it is boolean true, it executes block and
// reports matched=true. A non-boolean or null condition does not match.
func (in *Interpreter) tryBranch(cond ast.Expression, block ast.Block) (matched bool, err error) {
	v, err := in.ctx.Evaluate(cond)
	if err != nil {
		return false, err
	}
	b, ok := value.Truthy(v)
	if !ok || !b {
		return false, nil
	}
	return true, in.executeBlock(block)
}

func (in *Interpreter) executeFor(s ast.ForStmt) error {
	collVal, err := in.ctx.Evaluate(s.Collection)
	if err != nil {
		return err
	}
	elements, err := value.Elements(collVal)
	if err != nil {
		return err
	}

	for i, el := range elements {
		in.ctx.PushScope()
		in.ctx.SetVariable(s.Variable.Name, el)
		err := in.executeBlock(s.Body)
		in.ctx.PopScope()
		if err != nil {
			return err
		}

		if i < len(elements)-1 && s.Separator != nil {
			sepVal, err := in.ctx.Evaluate(*s.Separator)
			if err != nil {
				return err
			}
			if !value.IsNull(sepVal) {
				str, err := value.CanonicalString(sepVal)
				if err != nil {
					return err
				}
				in.ctx.Write(str, true)
			}
		}
	}
	return nil
}

func (in *Interpreter) executeLet(s ast.LetStmt) error {
	in.ctx.PushScope()
	defer in.ctx.PopScope()

	for _, b := range s.Bindings {
		v, err := in.ctx.Evaluate(b.Init)
		if err != nil {
			return err
		}
		in.ctx.SetVariable(b.Var.Name, v)
	}
	return in.executeBlock(s.Body)
}

func (in *Interpreter) executeFile(s ast.FileStmt) error {
	urlVal, err := in.ctx.Evaluate(s.URL)
	if err != nil {
		return err
	}
	if urlVal.Type() != cty.String {
		return errs.NewExecError(errs.TypeError, "", "file url must evaluate to a string")
	}
	url := urlVal.AsString()

	modeVal, err := in.ctx.Evaluate(s.ModeExpr)
	if err != nil {
		return err
	}
	modeStr := "overwrite"
	if !value.IsNull(modeVal) {
		if modeVal.Type() != cty.String {
			return errs.NewExecError(errs.TypeError, "", "file mode must evaluate to a string")
		}
		modeStr = modeVal.AsString()
	}
	mode, ok := ast.ParseFileMode(modeStr)
	if !ok {
		return errs.NewExecError(errs.TypeError, "", "unknown file mode %q", modeStr)
	}

	charset := "UTF-8"
	if s.Charset != nil {
		cv, err := in.ctx.Evaluate(*s.Charset)
		if err != nil {
			return err
		}
		if !value.IsNull(cv) {
			if cv.Type() != cty.String {
				return errs.NewExecError(errs.TypeError, "", "file charset must evaluate to a string")
			}
			charset = cv.AsString()
		}
	}

	if err := in.ctx.OpenFile(url, mode, charset); err != nil {
		return err
	}
	bodyErr := in.executeBlock(s.Body)
	if bodyErr != nil {
		// §7: an open file writer is discarded, not finalised, when the
		// statement that opened it fails.
		in.ctx.DiscardFile()
		return bodyErr
	}
	return in.ctx.CloseFile()
}

func (in *Interpreter) executeProtectedArea(s ast.ProtectedAreaStmt) error {
	idVal, err := in.ctx.Evaluate(s.ID)
	if err != nil {
		return err
	}
	if idVal.Type() != cty.String {
		return errs.NewExecError(errs.TypeError, "", "protected area id must evaluate to a string")
	}
	id := idVal.AsString()

	startPrefix, err := in.evalOptionalStringPrefix(s.StartPrefix)
	if err != nil {
		return err
	}
	endPrefix, err := in.evalOptionalStringPrefix(s.EndPrefix)
	if err != nil {
		return err
	}

	startMarker, endMarker := startPrefixedMarkers(id, startPrefix, endPrefix)
	in.ctx.WriteLine(startMarker, true)

	if content, ok := in.ctx.GetProtected(id); ok {
		in.ctx.Write(content.Content, false)
		in.ctx.WriteLine("", false)
	} else if err := in.executeBlock(s.Body); err != nil {
		return err
	}

	in.ctx.WriteLine(endMarker, true)
	return nil
}

func (in *Interpreter) evalOptionalStringPrefix(expr *ast.Expression) (string, error) {
	if expr == nil {
		return "", nil
	}
	v, err := in.ctx.Evaluate(*expr)
	if err != nil {
		return "", err
	}
	if value.IsNull(v) {
		return "", nil
	}
	if v.Type() != cty.String {
		return "", errs.NewExecError(errs.TypeError, "", "protected area marker prefix must evaluate to a string")
	}
	return v.AsString(), nil
}

// startPrefixedMarkers mirrors protectedarea.GenerateMarkers, but allows
// distinct start/end prefixes as the statement-level directive permits.
func startPrefixedMarkers(id, startPrefix, endPrefix string) (string, string) {
	sp := func(prefix string) string {
		if prefix == "" {
			return ""
		}
		return " "
	}
	const (
		startTag = "START PROTECTED REGION "
		endTag   = "END PROTECTED REGION "
	)
	return startPrefix + sp(startPrefix) + startTag + id, endPrefix + sp(endPrefix) + endTag + id
}

func (in *Interpreter) executeTrace(s ast.TraceStmt) error {
	srcVal, err := in.ctx.Evaluate(s.Source)
	if err != nil {
		return err
	}
	if obj, ok := value.AsModelObject(srcVal); ok {
		in.ctx.AddTrace(obj, in.ctx.traceTarget())
	}
	return in.executeBlock(s.Body)
}

// executeMacroInvocation resolves the invocation's callee against macros
// first, then templates: the grammar has no separate syntax for "call
// another template from within a body", so `[name(args)]` also serves as a
// template invocation when name is not a macro (a supplemented resolution
// rule; the design-level grammar in §4.5 names only MacroInvocation).
func (in *Interpreter) executeMacroInvocation(s ast.MacroInvocationStmt) error {
	args := make([]cty.Value, len(s.Arguments))
	for i, a := range s.Arguments {
		v, err := in.ctx.Evaluate(a)
		if err != nil {
			return err
		}
		args[i] = v
	}

	if m, ok := in.module.Macros.Get(s.Name); ok {
		return in.executeMacro(m, args, s.BodyContent)
	}
	if tpl, ok := in.module.Templates.Get(s.Name); ok {
		if s.BodyContent != nil {
			return errs.NewExecError(errs.InvalidOperation, s.Name, "template invocation takes no inline block argument")
		}
		return in.executeTemplate(tpl, args)
	}
	return errs.NewLookupError(errs.MacroNotFound, s.Name, in.module.Macros.Keys())
}

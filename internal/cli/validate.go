package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/gookit/color"
	"github.com/mitchellh/go-wordwrap"
	"github.com/spf13/cobra"

	"github.com/vk/m2t/internal/ast"
	"github.com/vk/m2t/internal/parser"
)

func newValidateCmd(outW, errW io.Writer) *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "validate SOURCE",
		Short: "Parse a template and run static checks beyond syntax",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := args[0]
			src, err := os.ReadFile(source)
			if err != nil {
				return &ExitError{Code: 2, Message: err.Error()}
			}
			module, err := parser.Parse(string(src))
			if err != nil {
				return &ExitError{Code: 1, Message: err.Error()}
			}

			for _, note := range moduleLinkageNotes(module) {
				fmt.Fprintln(outW, color.Cyan.Sprintf("note: %s", note))
			}
			for _, warning := range unreachableTemplates(module) {
				fmt.Fprintln(outW, color.Yellow.Sprintf("warning: template %q is never invoked", warning))
			}

			if list {
				printDocumentation(outW, module)
			}

			fmt.Fprintln(outW, color.Green.Sprint("validation complete"))
			return nil
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "print a documentation listing of every template, query, and macro")
	return cmd
}

// moduleLinkageNotes reports Module.Extends/Imports as informational notes
// (Supplemented Feature 3): these are recorded as unresolved metadata and
// never auto-resolved, so validate surfaces them rather than silently
// ignoring or erroring on them.
func moduleLinkageNotes(module *ast.Module) []string {
	var notes []string
	if module.Extends != "" {
		notes = append(notes, fmt.Sprintf("module extends %q (not resolved)", module.Extends))
	}
	for _, imp := range module.Imports {
		notes = append(notes, fmt.Sprintf("module imports %q (not resolved)", imp))
	}
	return notes
}

// unreachableTemplates is a best-effort call-graph scan (Supplemented
// Feature 2): a non-public, non-main template that no
// MacroInvocationStmt/template-call anywhere in the module names is
// flagged. It is best-effort because dynamic dispatch is not a feature of
// this language, so the scan is exact for the concrete grammar's static
// invocation syntax.
func unreachableTemplates(module *ast.Module) []string {
	called := map[string]bool{}
	for _, tpl := range module.Templates.Values() {
		collectInvocations(tpl.Body, called)
	}
	// Queries carry a single Expression body and cannot invoke templates or
	// macros in this grammar, so there is nothing to scan there.
	for _, m := range module.Macros.Values() {
		collectInvocations(m.Body, called)
	}

	var unreachable []string
	for _, tpl := range module.Templates.Values() {
		if tpl.IsMain || tpl.Visibility == ast.Public {
			continue
		}
		if !called[tpl.Name] {
			unreachable = append(unreachable, tpl.Name)
		}
	}
	return unreachable
}

func collectInvocations(b ast.Block, called map[string]bool) {
	for _, stmt := range b.Statements {
		switch s := stmt.(type) {
		case ast.MacroInvocationStmt:
			called[s.Name] = true
			if s.BodyContent != nil {
				collectInvocations(*s.BodyContent, called)
			}
		case ast.IfStmt:
			collectInvocations(s.Then, called)
			for _, ei := range s.ElseIfs {
				collectInvocations(ei.Block, called)
			}
			if s.Else != nil {
				collectInvocations(*s.Else, called)
			}
		case ast.ForStmt:
			collectInvocations(s.Body, called)
		case ast.LetStmt:
			collectInvocations(s.Body, called)
		case ast.FileStmt:
			collectInvocations(s.Body, called)
		case ast.ProtectedAreaStmt:
			collectInvocations(s.Body, called)
		case ast.TraceStmt:
			collectInvocations(s.Body, called)
		}
	}
}

// printDocumentation prints name, visibility, parameters, and doc comment
// for every template, query, and macro, reflowing the doc comment with
// go-wordwrap (Supplemented Feature 2's "--list").
func printDocumentation(outW io.Writer, module *ast.Module) {
	for _, tpl := range module.Templates.Values() {
		fmt.Fprintln(outW, color.Cyan.Sprintf("template %s(%s) [%s]", tpl.Name, paramList(tpl.Parameters), tpl.Visibility))
		printDoc(outW, tpl.Doc)
	}
	for _, q := range module.Queries.Values() {
		fmt.Fprintln(outW, color.Cyan.Sprintf("query %s(%s) [%s]", q.Name, paramList(q.Parameters), q.Visibility))
		printDoc(outW, q.Doc)
	}
	for _, m := range module.Macros.Values() {
		fmt.Fprintln(outW, color.Cyan.Sprintf("macro %s(%s)", m.Name, paramList(m.Parameters)))
		printDoc(outW, m.Doc)
	}
}

func paramList(params []ast.Variable) string {
	s := ""
	for i, p := range params {
		if i > 0 {
			s += ", "
		}
		s += p.Name + " : " + p.Type
	}
	return s
}

func printDoc(outW io.Writer, doc string) {
	if doc == "" {
		return
	}
	fmt.Fprintln(outW, wordwrap.WrapString(doc, 76))
}

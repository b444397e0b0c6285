// Package errs implements the two-category, fixed-kind error taxonomy of
// §7: parse-time errors and run-time execution errors. Both are plain Go
// errors supporting errors.Is/errors.As via a Kind field, in the spirit of
// the teacher's closed hcl.Diagnostics severity/summary pairing but
// adapted to the core's dependency-free error model.
package errs

import (
	"fmt"

	"github.com/agext/levenshtein"
)

// ParseKind enumerates the parse-time error kinds of §7.
type ParseKind int

const (
	InvalidSyntax ParseKind = iota
	UnknownStatementType
	MalformedExpression
	MissingAttribute
	DuplicateName
)

func (k ParseKind) String() string {
	switch k {
	case InvalidSyntax:
		return "InvalidSyntax"
	case UnknownStatementType:
		return "UnknownStatementType"
	case MalformedExpression:
		return "MalformedExpression"
	case MissingAttribute:
		return "MissingAttribute"
	case DuplicateName:
		return "DuplicateName"
	default:
		return "ParseError"
	}
}

// ParseError is a parse-time failure carrying a source position.
type ParseError struct {
	Kind    ParseKind
	Line    int
	Column  int
	Message string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s at %d:%d: %s", e.Kind, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewSyntaxError builds an InvalidSyntax error at a source position.
func NewSyntaxError(line, col int, format string, args ...any) *ParseError {
	return &ParseError{Kind: InvalidSyntax, Line: line, Column: col, Message: fmt.Sprintf(format, args...)}
}

// NewDuplicateNameError builds a DuplicateName error for a module dictionary
// collision (§4.5's "Duplicates" rule).
func NewDuplicateNameError(kind, name string, line, col int) *ParseError {
	return &ParseError{Kind: DuplicateName, Line: line, Column: col, Message: fmt.Sprintf("%s %q already declared", kind, name)}
}

// ExecKind enumerates the run-time execution error kinds of §7.
type ExecKind int

const (
	TemplateNotFound ExecKind = iota
	QueryNotFound
	MacroNotFound
	ModuleNotFound
	VariableNotFound
	TypeError
	InvalidOperation
	FileError
	PostConditionFailed
	ProtectedAreaConflict
	Cancelled
	NoTemplates
)

func (k ExecKind) String() string {
	switch k {
	case TemplateNotFound:
		return "TemplateNotFound"
	case QueryNotFound:
		return "QueryNotFound"
	case MacroNotFound:
		return "MacroNotFound"
	case ModuleNotFound:
		return "ModuleNotFound"
	case VariableNotFound:
		return "VariableNotFound"
	case TypeError:
		return "TypeError"
	case InvalidOperation:
		return "InvalidOperation"
	case FileError:
		return "FileError"
	case PostConditionFailed:
		return "PostConditionFailed"
	case ProtectedAreaConflict:
		return "ProtectedAreaConflict"
	case Cancelled:
		return "Cancelled"
	case NoTemplates:
		return "NoTemplates"
	default:
		return "ExecError"
	}
}

// ExecError is a run-time execution failure.
type ExecError struct {
	Kind    ExecKind
	Name    string
	Message string
	Err     error
}

func (e *ExecError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s(%q): %s", e.Kind, e.Name, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ExecError) Unwrap() error { return e.Err }

// NewExecError builds a plain execution error of the given kind.
func NewExecError(kind ExecKind, name, format string, args ...any) *ExecError {
	return &ExecError{Kind: kind, Name: name, Message: fmt.Sprintf(format, args...)}
}

// NewLookupError builds a not-found error for the given kind and name, and
// appends a "did you mean" suggestion when a candidate is close enough by
// Levenshtein distance. The interpreter uses it for TemplateNotFound/
// QueryNotFound/MacroNotFound; VariableNotFound errors are built with
// NewExecError and carry no suggestion.
func NewLookupError(kind ExecKind, name string, candidates []string) *ExecError {
	msg := "not found"
	if best, ok := closestMatch(name, candidates); ok {
		msg = fmt.Sprintf("not found (did you mean %q?)", best)
	}
	return &ExecError{Kind: kind, Name: name, Message: msg}
}

// closestMatch returns the candidate with the smallest normalised
// Levenshtein distance to name, if any candidate is similar enough
// (distance ratio below 0.5).
func closestMatch(name string, candidates []string) (string, bool) {
	best := ""
	bestScore := 0.0
	found := false
	for _, c := range candidates {
		score := levenshtein.Match(name, c, nil)
		if score > bestScore {
			bestScore = score
			best = c
			found = true
		}
	}
	if !found || bestScore < 0.5 {
		return "", false
	}
	return best, true
}

// Package lexer implements the dual-mode tokeniser (C4): it alternates
// between a text-accumulation mode and a directive-tokenising mode as it
// crosses `[`/`]` boundaries (§4.4).
package lexer

import "fmt"

// TokenType enumerates the lexical token kinds produced by the lexer.
type TokenType int

const (
	EOF TokenType = iota
	Illegal

	Text // literal text accumulated outside `[ ... ]`

	LeftBracket  // [
	RightBracket // ]

	Comment // [-- ... up to ] or newline

	String     // 'single quoted'
	Integer    // 123
	Real       // 1.5
	Boolean    // true / false
	Identifier // foo
	Keyword    // a reserved word (§4.4)

	Arrow      // ->
	NotEquals  // <>
	LessEq     // <=
	GreaterEq  // >=
	Slash      // /
	LParen     // (
	RParen     // )
	Comma      // ,
	Colon      // :
	Dot        // .
	Pipe       // |
	Question   // ?
	Plus       // +
	Minus      // -
	Star       // *
	Equals     // =
	Less       // <
	Greater    // >
)

// Token is a single lexical token with its source position.
type Token struct {
	Type   TokenType
	Lexeme string
	Line   int
	Column int
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%d:%d", t.Type, t.Lexeme, t.Line, t.Column)
}

func (tt TokenType) String() string {
	switch tt {
	case EOF:
		return "EOF"
	case Illegal:
		return "Illegal"
	case Text:
		return "Text"
	case LeftBracket:
		return "LeftBracket"
	case RightBracket:
		return "RightBracket"
	case Comment:
		return "Comment"
	case String:
		return "String"
	case Integer:
		return "Integer"
	case Real:
		return "Real"
	case Boolean:
		return "Boolean"
	case Identifier:
		return "Identifier"
	case Keyword:
		return "Keyword"
	case Arrow:
		return "Arrow"
	case NotEquals:
		return "NotEquals"
	case LessEq:
		return "LessEq"
	case GreaterEq:
		return "GreaterEq"
	case Slash:
		return "Slash"
	case LParen:
		return "LParen"
	case RParen:
		return "RParen"
	case Comma:
		return "Comma"
	case Colon:
		return "Colon"
	case Dot:
		return "Dot"
	case Pipe:
		return "Pipe"
	case Question:
		return "Question"
	case Plus:
		return "Plus"
	case Minus:
		return "Minus"
	case Star:
		return "Star"
	case Equals:
		return "Equals"
	case Less:
		return "Less"
	case Greater:
		return "Greater"
	default:
		return "Unknown"
	}
}

// Keywords is the reserved-word set of §4.4. An identifier that matches one
// of these becomes a Keyword token — except that the parser (§4.5) still
// accepts keyword spellings in identifier *positions*, so this set governs
// lexing only, not where a name may subsequently be used.
var Keywords = map[string]bool{
	"module": true, "template": true, "query": true, "macro": true,
	"public": true, "private": true, "protected": true,
	"if": true, "elseif": true, "else": true,
	"for": true, "let": true, "file": true,
	"main": true, "post": true, "guard": true, "overrides": true,
	"separator": true, "overwrite": true, "append": true, "create": true,
	"true": true, "false": true,
	"in": true, "and": true, "or": true, "not": true, "xor": true, "implies": true,
	"select": true, "reject": true, "collect": true, "forAll": true,
	"exists": true, "any": true, "size": true, "isEmpty": true, "notEmpty": true,
	"first": true, "last": true,
	"oclIsKindOf": true, "oclIsTypeOf": true, "oclAsType": true,
	"import": true, "extends": true, "trace": true,
}

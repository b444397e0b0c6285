package lexer

import (
	"strings"
	"unicode"

	"github.com/vk/m2t/internal/errs"
)

type mode int

const (
	textMode mode = iota
	directiveMode
)

// Lexer tokenises template source text (§4.4).
type Lexer struct {
	src  []rune
	pos  int
	line int
	col  int
	mode mode
}

// New returns a Lexer positioned at the start of src, in text mode.
func New(src string) *Lexer {
	return &Lexer{src: []rune(src), line: 1, col: 1, mode: textMode}
}

// Tokenize consumes the entire source and returns its token stream,
// terminated by a trailing EOF token. Whitespace/newline tokens are never
// produced: they are skipped inline while tokenising directives, and are
// part of the literal text buffer while in text mode.
func (l *Lexer) Tokenize() ([]Token, error) {
	var tokens []Token
	for {
		if l.mode == textMode {
			tok, done := l.lexText()
			if tok.Type != 0 || tok.Lexeme != "" {
				tokens = append(tokens, tok)
			}
			if done {
				tokens = append(tokens, Token{Type: EOF, Line: l.line, Column: l.col})
				return tokens, nil
			}
			continue
		}

		l.skipDirectiveWhitespace()
		if l.atEOF() {
			tokens = append(tokens, Token{Type: EOF, Line: l.line, Column: l.col})
			return tokens, nil
		}

		tok, err := l.lexDirectiveToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
	}
}

func (l *Lexer) atEOF() bool { return l.pos >= len(l.src) }

func (l *Lexer) peek() rune {
	if l.atEOF() {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peekAt(offset int) rune {
	if l.pos+offset >= len(l.src) {
		return 0
	}
	return l.src[l.pos+offset]
}

func (l *Lexer) advance() rune {
	r := l.src[l.pos]
	l.pos++
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

// lexText accumulates literal text until `[` or EOF, flushing a Text token
// (possibly empty-less — an empty buffer is never emitted) and, on `[`,
// switching to directive mode and emitting LeftBracket next iteration.
func (l *Lexer) lexText() (Token, bool) {
	startLine, startCol := l.line, l.col
	var buf strings.Builder
	for !l.atEOF() && l.peek() != '[' {
		buf.WriteRune(l.advance())
	}
	if l.atEOF() {
		if buf.Len() == 0 {
			return Token{}, true
		}
		return Token{Type: Text, Lexeme: buf.String(), Line: startLine, Column: startCol}, true
	}

	// At '[': emit buffered text (if any) now; the LeftBracket itself is
	// consumed and returned on the *next* call once we flip modes.
	if buf.Len() > 0 {
		l.mode = directiveMode
		return Token{Type: Text, Lexeme: buf.String(), Line: startLine, Column: startCol}, false
	}
	lb := Token{Type: LeftBracket, Lexeme: "[", Line: l.line, Column: l.col}
	l.advance()
	l.mode = directiveMode
	return lb, false
}

func (l *Lexer) skipDirectiveWhitespace() {
	for !l.atEOF() && isSpace(l.peek()) {
		l.advance()
	}
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

func (l *Lexer) lexDirectiveToken() (Token, error) {
	startLine, startCol := l.line, l.col
	r := l.peek()

	switch {
	case r == ']':
		l.advance()
		l.mode = textMode
		return Token{Type: RightBracket, Lexeme: "]", Line: startLine, Column: startCol}, nil

	case r == '[':
		// A literal `[` appearing where we still expect the opening
		// bracket of this very directive (we only ever get here once the
		// opening bracket has already been consumed by lexText), so a
		// bare `[` inside a directive is not part of the grammar.
		l.advance()
		return Token{Type: LeftBracket, Lexeme: "[", Line: startLine, Column: startCol}, nil

	case r == '-' && l.peekAt(1) == '-':
		l.advance()
		l.advance()
		var buf strings.Builder
		for !l.atEOF() && l.peek() != ']' && l.peek() != '\n' {
			buf.WriteRune(l.advance())
		}
		return Token{Type: Comment, Lexeme: strings.TrimSpace(buf.String()), Line: startLine, Column: startCol}, nil

	case r == '\'':
		return l.lexString(startLine, startCol)

	case unicode.IsDigit(r):
		return l.lexNumber(startLine, startCol)

	case isIdentStart(r):
		return l.lexIdentifier(startLine, startCol)

	case r == '-' && l.peekAt(1) == '>':
		l.advance()
		l.advance()
		return Token{Type: Arrow, Lexeme: "->", Line: startLine, Column: startCol}, nil

	case r == '<' && l.peekAt(1) == '>':
		l.advance()
		l.advance()
		return Token{Type: NotEquals, Lexeme: "<>", Line: startLine, Column: startCol}, nil

	case r == '<' && l.peekAt(1) == '=':
		l.advance()
		l.advance()
		return Token{Type: LessEq, Lexeme: "<=", Line: startLine, Column: startCol}, nil

	case r == '>' && l.peekAt(1) == '=':
		l.advance()
		l.advance()
		return Token{Type: GreaterEq, Lexeme: ">=", Line: startLine, Column: startCol}, nil

	default:
		if tt, ok := singleCharToken(r); ok {
			l.advance()
			return Token{Type: tt, Lexeme: string(r), Line: startLine, Column: startCol}, nil
		}
		return Token{}, errs.NewSyntaxError(startLine, startCol, "unexpected character %q", r)
	}
}

func singleCharToken(r rune) (TokenType, bool) {
	switch r {
	case '/':
		return Slash, true
	case '(':
		return LParen, true
	case ')':
		return RParen, true
	case ',':
		return Comma, true
	case ':':
		return Colon, true
	case '.':
		return Dot, true
	case '|':
		return Pipe, true
	case '?':
		return Question, true
	case '+':
		return Plus, true
	case '-':
		return Minus, true
	case '*':
		return Star, true
	case '=':
		return Equals, true
	case '<':
		return Less, true
	case '>':
		return Greater, true
	}
	return 0, false
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func isIdentPart(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func (l *Lexer) lexIdentifier(startLine, startCol int) (Token, error) {
	var buf strings.Builder
	for !l.atEOF() && isIdentPart(l.peek()) {
		buf.WriteRune(l.advance())
	}
	name := buf.String()
	switch name {
	case "true", "false":
		return Token{Type: Boolean, Lexeme: name, Line: startLine, Column: startCol}, nil
	default:
		if Keywords[name] {
			return Token{Type: Keyword, Lexeme: name, Line: startLine, Column: startCol}, nil
		}
		return Token{Type: Identifier, Lexeme: name, Line: startLine, Column: startCol}, nil
	}
}

func (l *Lexer) lexNumber(startLine, startCol int) (Token, error) {
	var buf strings.Builder
	for !l.atEOF() && unicode.IsDigit(l.peek()) {
		buf.WriteRune(l.advance())
	}
	isReal := false
	if l.peek() == '.' && unicode.IsDigit(l.peekAt(1)) {
		isReal = true
		buf.WriteRune(l.advance()) // '.'
		for !l.atEOF() && unicode.IsDigit(l.peek()) {
			buf.WriteRune(l.advance())
		}
	}
	tt := Integer
	if isReal {
		tt = Real
	}
	return Token{Type: tt, Lexeme: buf.String(), Line: startLine, Column: startCol}, nil
}

func (l *Lexer) lexString(startLine, startCol int) (Token, error) {
	l.advance() // opening quote
	var buf strings.Builder
	for {
		if l.atEOF() {
			return Token{}, errs.NewSyntaxError(startLine, startCol, "unterminated string literal")
		}
		r := l.advance()
		if r == '\'' {
			if l.peek() == '\'' {
				l.advance()
				buf.WriteRune('\'')
				continue
			}
			return Token{Type: String, Lexeme: buf.String(), Line: startLine, Column: startCol}, nil
		}
		if r == '\\' {
			if l.atEOF() {
				return Token{}, errs.NewSyntaxError(startLine, startCol, "unterminated string literal")
			}
			esc := l.advance()
			switch esc {
			case 'n':
				buf.WriteRune('\n')
			case 't':
				buf.WriteRune('\t')
			case 'r':
				buf.WriteRune('\r')
			case '\\':
				buf.WriteRune('\\')
			case '\'':
				buf.WriteRune('\'')
			default:
				buf.WriteRune(esc)
			}
			continue
		}
		buf.WriteRune(r)
	}
}

package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/m2t/internal/lexer"
)

func typesOf(tokens []lexer.Token) []lexer.TokenType {
	types := make([]lexer.TokenType, len(tokens))
	for i, tok := range tokens {
		types[i] = tok.Type
	}
	return types
}

func TestTokenizePlainText(t *testing.T) {
	tokens, err := lexer.New("hello world").Tokenize()
	require.NoError(t, err)
	assert.Equal(t, []lexer.TokenType{lexer.Text, lexer.EOF}, typesOf(tokens))
	assert.Equal(t, "hello world", tokens[0].Lexeme)
}

func TestTokenizeDirectiveBoundaries(t *testing.T) {
	tokens, err := lexer.New("before[x]after").Tokenize()
	require.NoError(t, err)
	assert.Equal(t, []lexer.TokenType{
		lexer.Text, lexer.LeftBracket, lexer.Identifier, lexer.RightBracket, lexer.Text, lexer.EOF,
	}, typesOf(tokens))
}

func TestTokenizeKeywordVersusIdentifier(t *testing.T) {
	tokens, err := lexer.New("[template foo]").Tokenize()
	require.NoError(t, err)
	assert.Equal(t, lexer.Keyword, tokens[1].Type)
	assert.Equal(t, "template", tokens[1].Lexeme)
	assert.Equal(t, lexer.Identifier, tokens[2].Type)
	assert.Equal(t, "foo", tokens[2].Lexeme)
}

func TestTokenizeBooleanLiterals(t *testing.T) {
	tokens, err := lexer.New("[true false]").Tokenize()
	require.NoError(t, err)
	assert.Equal(t, lexer.Boolean, tokens[1].Type)
	assert.Equal(t, lexer.Boolean, tokens[2].Type)
}

func TestTokenizeNumericLiterals(t *testing.T) {
	tokens, err := lexer.New("[42 3.14]").Tokenize()
	require.NoError(t, err)
	assert.Equal(t, lexer.Integer, tokens[1].Type)
	assert.Equal(t, "42", tokens[1].Lexeme)
	assert.Equal(t, lexer.Real, tokens[2].Type)
	assert.Equal(t, "3.14", tokens[2].Lexeme)
}

func TestTokenizeStringLiteralWithEscapedQuote(t *testing.T) {
	tokens, err := lexer.New("['it''s here']").Tokenize()
	require.NoError(t, err)
	require.Equal(t, lexer.String, tokens[1].Type)
	assert.Equal(t, "it's here", tokens[1].Lexeme)
}

func TestTokenizeStringLiteralWithBackslashEscape(t *testing.T) {
	tokens, err := lexer.New(`['a\nb']`).Tokenize()
	require.NoError(t, err)
	require.Equal(t, lexer.String, tokens[1].Type)
	assert.Equal(t, "a\nb", tokens[1].Lexeme)
}

func TestTokenizeUnterminatedStringIsError(t *testing.T) {
	_, err := lexer.New("['unterminated").Tokenize()
	assert.Error(t, err)
}

func TestTokenizeComment(t *testing.T) {
	tokens, err := lexer.New("[-- a note\n]").Tokenize()
	require.NoError(t, err)
	require.Equal(t, lexer.Comment, tokens[1].Type)
	assert.Equal(t, "a note", tokens[1].Lexeme)
}

func TestTokenizeMultiCharOperators(t *testing.T) {
	tokens, err := lexer.New("[a->b<>c<=d>=e]").Tokenize()
	require.NoError(t, err)
	got := typesOf(tokens)
	assert.Contains(t, got, lexer.Arrow)
	assert.Contains(t, got, lexer.NotEquals)
	assert.Contains(t, got, lexer.LessEq)
	assert.Contains(t, got, lexer.GreaterEq)
}

func TestTokenizeSingleCharOperators(t *testing.T) {
	tokens, err := lexer.New("[+-*/(),:.|?=< >]").Tokenize()
	require.NoError(t, err)
	want := []lexer.TokenType{
		lexer.LeftBracket, lexer.Plus, lexer.Minus, lexer.Star, lexer.Slash,
		lexer.LParen, lexer.RParen, lexer.Comma, lexer.Colon, lexer.Dot,
		lexer.Pipe, lexer.Question, lexer.Equals, lexer.Less, lexer.Greater,
		lexer.RightBracket, lexer.EOF,
	}
	assert.Equal(t, want, typesOf(tokens))
}

func TestTokenizeIllegalCharacterReportsPosition(t *testing.T) {
	_, err := lexer.New("[a $ b]").Tokenize()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1:4")
}

func TestTokenizeTracksLineNumbersAcrossText(t *testing.T) {
	tokens, err := lexer.New("line one\nline two[x]").Tokenize()
	require.NoError(t, err)
	// the identifier `x` starts on line 2
	var idTok lexer.Token
	for _, tok := range tokens {
		if tok.Type == lexer.Identifier {
			idTok = tok
		}
	}
	assert.Equal(t, 2, idTok.Line)
}

func TestTokenizeEmptySourceYieldsOnlyEOF(t *testing.T) {
	tokens, err := lexer.New("").Tokenize()
	require.NoError(t, err)
	assert.Equal(t, []lexer.TokenType{lexer.EOF}, typesOf(tokens))
}

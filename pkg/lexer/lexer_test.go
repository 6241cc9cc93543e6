package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kristofer/smog/pkg/lexer"
	"github.com/kristofer/smog/pkg/token"
)

func scanAll(t *testing.T, src string) []token.Token {
	t.Helper()
	s := lexer.New(src)
	var toks []token.Token
	for {
		tok := s.Scan()
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks
		}
	}
}

func TestScanPunctuationAndOperators(t *testing.T) {
	toks := scanAll(t, "(){},.-+;*/:?! != = == < <= > >=")
	want := []token.Kind{
		token.LeftParen, token.RightParen, token.LeftBrace, token.RightBrace,
		token.Comma, token.Dot, token.Minus, token.Plus, token.Semicolon,
		token.Star, token.Slash, token.Colon, token.Question,
		token.Bang, token.BangEqual, token.Equal, token.EqualEqual,
		token.Less, token.LessEqual, token.Greater, token.GreaterEqual,
		token.EOF,
	}
	require_Len(t, toks, len(want))
	for i, k := range want {
		assert.Equalf(t, k, toks[i].Kind, "token %d", i)
	}
}

func require_Len(t *testing.T, toks []token.Token, n int) {
	t.Helper()
	assert.Len(t, toks, n)
}

func TestScanNumberLiterals(t *testing.T) {
	toks := scanAll(t, "123 4.5 0 0.1")
	assert.Equal(t, "123", toks[0].Lexeme)
	assert.Equal(t, "4.5", toks[1].Lexeme)
	assert.Equal(t, "0", toks[2].Lexeme)
	assert.Equal(t, "0.1", toks[3].Lexeme)
	for _, tk := range toks[:4] {
		assert.Equal(t, token.Number, tk.Kind)
	}
}

func TestScanStringLiteralSpansLines(t *testing.T) {
	toks := scanAll(t, "\"hello\nworld\" print;")
	assert.Equal(t, token.String, toks[0].Kind)
	assert.Equal(t, "\"hello\nworld\"", toks[0].Lexeme)
	assert.Equal(t, token.Print, toks[1].Kind)
	assert.Equal(t, 2, toks[1].Line)
}

func TestScanUnterminatedString(t *testing.T) {
	toks := scanAll(t, "\"never closed")
	assert.Equal(t, token.Error, toks[0].Kind)
	assert.Equal(t, "Unterminated string.", toks[0].Lexeme)
}

func TestScanKeywordsAndIdentifiers(t *testing.T) {
	toks := scanAll(t, "and or if else while for var fun return class this super true false nil print break continue foo")
	want := []token.Kind{
		token.And, token.Or, token.If, token.Else, token.While, token.For,
		token.Var, token.Fun, token.Return, token.Class, token.This,
		token.Super, token.True, token.False, token.Nil, token.Print,
		token.Break, token.Continue, token.Identifier, token.EOF,
	}
	for i, k := range want {
		assert.Equalf(t, k, toks[i].Kind, "token %d (%q)", i, toks[i].Lexeme)
	}
}

func TestScanLineCommentsAreSkipped(t *testing.T) {
	toks := scanAll(t, "1 // a comment\n2")
	assert.Equal(t, token.Number, toks[0].Kind)
	assert.Equal(t, 1, toks[0].Line)
	assert.Equal(t, token.Number, toks[1].Kind)
	assert.Equal(t, 2, toks[1].Line)
}

func TestScanUnexpectedCharacter(t *testing.T) {
	toks := scanAll(t, "@")
	assert.Equal(t, token.Error, toks[0].Kind)
}

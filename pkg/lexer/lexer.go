// Package lexer implements the scanner for smog: a character cursor over a
// read-only source buffer that produces tokens on demand.
//
// Scanning Architecture:
//
// The scanner holds three cursors into the source buffer:
//   - start: the byte offset where the current token begins
//   - current: the byte offset of the next unread byte
//   - line: the 1-based source line of the cursor (a token that spans
//     lines, such as a multi-line string, records the line it ends on)
//
// Scan() advances current past exactly one token's worth of input and
// returns it; it never looks behind start and never allocates — a Token's
// Lexeme is a substring of the original buffer.
//
// Keyword Recognition:
//
// Identifiers are scanned greedily (letter/underscore followed by
// letters/digits/underscores) and then classified against the keyword
// table in pkg/token with a single map lookup, rather than clox's
// character-by-character trie matcher.
package lexer

import (
	"github.com/kristofer/smog/pkg/token"
)

// Scanner tokenizes smog source text. It is stateless between calls to Scan
// except for its cursor and current line, so scanning is always
// single-pass and forward-only.
type Scanner struct {
	source  string
	start   int
	current int
	line    int
}

// New creates a Scanner positioned at the start of source.
func New(source string) *Scanner {
	return &Scanner{source: source, line: 1}
}

// Scan returns the next token in the source, advancing the cursor past it.
// Scanning past the end of the source returns an EOF token forever.
func (s *Scanner) Scan() token.Token {
	s.skipWhitespace()
	s.start = s.current

	if s.atEnd() {
		return s.make(token.EOF)
	}

	c := s.advance()
	if isAlpha(c) {
		return s.identifier()
	}
	if isDigit(c) {
		return s.number()
	}

	switch c {
	case '(':
		return s.make(token.LeftParen)
	case ')':
		return s.make(token.RightParen)
	case '{':
		return s.make(token.LeftBrace)
	case '}':
		return s.make(token.RightBrace)
	case ';':
		return s.make(token.Semicolon)
	case ':':
		return s.make(token.Colon)
	case '?':
		return s.make(token.Question)
	case ',':
		return s.make(token.Comma)
	case '.':
		return s.make(token.Dot)
	case '-':
		return s.make(token.Minus)
	case '+':
		return s.make(token.Plus)
	case '/':
		return s.make(token.Slash)
	case '*':
		return s.make(token.Star)
	case '!':
		return s.makeIf(s.matchByte('='), token.BangEqual, token.Bang)
	case '=':
		return s.makeIf(s.matchByte('='), token.EqualEqual, token.Equal)
	case '<':
		return s.makeIf(s.matchByte('='), token.LessEqual, token.Less)
	case '>':
		return s.makeIf(s.matchByte('='), token.GreaterEqual, token.Greater)
	case '"':
		return s.string()
	}

	return s.errorToken("Unexpected character.")
}

func (s *Scanner) atEnd() bool { return s.current >= len(s.source) }

func (s *Scanner) advance() byte {
	c := s.source[s.current]
	s.current++
	return c
}

func (s *Scanner) peek() byte {
	if s.atEnd() {
		return 0
	}
	return s.source[s.current]
}

func (s *Scanner) peekNext() byte {
	if s.current+1 >= len(s.source) {
		return 0
	}
	return s.source[s.current+1]
}

func (s *Scanner) matchByte(expected byte) bool {
	if s.atEnd() || s.source[s.current] != expected {
		return false
	}
	s.current++
	return true
}

// skipWhitespace consumes spaces, tabs, CR, newlines (bumping line on LF),
// and line comments introduced by "//".
func (s *Scanner) skipWhitespace() {
	for {
		switch s.peek() {
		case ' ', '\t', '\r':
			s.advance()
		case '\n':
			s.line++
			s.advance()
		case '/':
			if s.peekNext() == '/' {
				for s.peek() != '\n' && !s.atEnd() {
					s.advance()
				}
			} else {
				return
			}
		default:
			return
		}
	}
}

// string scans a double-quoted string literal. Newlines are permitted
// inside; there are no escape sequences, so the raw bytes between the
// quotes are taken as-is. The compiler strips the surrounding quotes.
func (s *Scanner) string() token.Token {
	for s.peek() != '"' && !s.atEnd() {
		if s.peek() == '\n' {
			s.line++
		}
		s.advance()
	}
	if s.atEnd() {
		return s.errorToken("Unterminated string.")
	}
	s.advance() // closing quote
	return s.make(token.String)
}

// number scans an integer or float literal: one or more digits, optionally
// followed by a '.' and at least one more digit.
func (s *Scanner) number() token.Token {
	for isDigit(s.peek()) {
		s.advance()
	}
	if s.peek() == '.' && isDigit(s.peekNext()) {
		s.advance()
		for isDigit(s.peek()) {
			s.advance()
		}
	}
	return s.make(token.Number)
}

func (s *Scanner) identifier() token.Token {
	for isAlpha(s.peek()) || isDigit(s.peek()) {
		s.advance()
	}
	lexeme := s.source[s.start:s.current]
	if kind, ok := token.KeywordKind(lexeme); ok {
		return s.make(kind)
	}
	return s.make(token.Identifier)
}

func (s *Scanner) make(kind token.Kind) token.Token {
	return token.Token{Kind: kind, Lexeme: s.source[s.start:s.current], Line: s.line}
}

func (s *Scanner) makeIf(cond bool, yes, no token.Kind) token.Token {
	if cond {
		return s.make(yes)
	}
	return s.make(no)
}

func (s *Scanner) errorToken(msg string) token.Token {
	return token.Token{Kind: token.Error, Lexeme: msg, Line: s.line}
}

func isAlpha(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

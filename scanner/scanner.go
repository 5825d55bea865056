// Package scanner provides a lazy scanner that produces one Lox token at a
// time from source text.
package scanner

import (
	"github.com/deepnoodle-ai/lox/token"
)

// Scanner tokenizes Lox source text on demand. Each call to Next returns the
// next token; after the end of input it returns EOF tokens forever.
type Scanner struct {
	source  string
	start   int
	current int
	line    int
}

// New returns a Scanner positioned at the start of the given source text.
func New(source string) *Scanner {
	return &Scanner{source: source, line: 1}
}

// Next scans and returns the next token.
func (s *Scanner) Next() token.Token {
	s.skipWhitespace()
	s.start = s.current
	if s.isAtEnd() {
		return s.make(token.EOF)
	}
	ch := s.advance()
	switch {
	case isAlpha(ch):
		return s.identifier()
	case isDigit(ch):
		return s.number()
	}
	switch ch {
	case '(':
		return s.make(token.LPAREN)
	case ')':
		return s.make(token.RPAREN)
	case '{':
		return s.make(token.LBRACE)
	case '}':
		return s.make(token.RBRACE)
	case ';':
		return s.make(token.SEMICOLON)
	case ',':
		return s.make(token.COMMA)
	case '.':
		return s.make(token.DOT)
	case '-':
		return s.make(token.MINUS)
	case '+':
		return s.make(token.PLUS)
	case '/':
		return s.make(token.SLASH)
	case '*':
		return s.make(token.STAR)
	case '!':
		if s.match('=') {
			return s.make(token.BANG_EQUAL)
		}
		return s.make(token.BANG)
	case '=':
		if s.match('=') {
			return s.make(token.EQUAL_EQUAL)
		}
		return s.make(token.EQUAL)
	case '<':
		if s.match('=') {
			return s.make(token.LESS_EQUAL)
		}
		return s.make(token.LESS)
	case '>':
		if s.match('=') {
			return s.make(token.GREATER_EQUAL)
		}
		return s.make(token.GREATER)
	case '"':
		return s.string()
	}
	return s.errorToken("Unexpected character.")
}

func (s *Scanner) skipWhitespace() {
	for !s.isAtEnd() {
		switch s.peek() {
		case ' ', '\r', '\t':
			s.current++
		case '\n':
			s.line++
			s.current++
		case '/':
			if s.peekNext() == '/' {
				// Line comments run to the end of the line
				for !s.isAtEnd() && s.peek() != '\n' {
					s.current++
				}
			} else {
				return
			}
		default:
			return
		}
	}
}

func (s *Scanner) identifier() token.Token {
	for !s.isAtEnd() && (isAlpha(s.peek()) || isDigit(s.peek())) {
		s.current++
	}
	lexeme := s.source[s.start:s.current]
	return token.Token{
		Type:    token.LookupIdentifier(lexeme),
		Literal: lexeme,
		Line:    s.line,
	}
}

func (s *Scanner) number() token.Token {
	for !s.isAtEnd() && isDigit(s.peek()) {
		s.current++
	}
	// A fractional part requires a digit after the dot
	if s.peek() == '.' && isDigit(s.peekNext()) {
		s.current++
		for !s.isAtEnd() && isDigit(s.peek()) {
			s.current++
		}
	}
	return s.make(token.NUMBER)
}

func (s *Scanner) string() token.Token {
	for !s.isAtEnd() && s.peek() != '"' {
		if s.peek() == '\n' {
			s.line++
		}
		s.current++
	}
	if s.isAtEnd() {
		return s.errorToken("Unterminated string.")
	}
	s.current++ // closing quote
	return s.make(token.STRING)
}

func (s *Scanner) make(t token.Type) token.Token {
	return token.Token{
		Type:    t,
		Literal: s.source[s.start:s.current],
		Line:    s.line,
	}
}

func (s *Scanner) errorToken(message string) token.Token {
	return token.Token{Type: token.ERROR, Literal: message, Line: s.line}
}

func (s *Scanner) advance() byte {
	ch := s.source[s.current]
	s.current++
	return ch
}

func (s *Scanner) match(expected byte) bool {
	if s.isAtEnd() || s.source[s.current] != expected {
		return false
	}
	s.current++
	return true
}

func (s *Scanner) peek() byte {
	if s.isAtEnd() {
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

func (s *Scanner) isAtEnd() bool {
	return s.current >= len(s.source)
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isAlpha(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

package core

import (
	"errors"
	"fmt"
	"io"
	"strconv"
)

// TokenKind classifies a token of PDF syntax
type TokenKind int

const (
	TokenEOF TokenKind = iota
	TokenInt
	TokenReal
	TokenString
	TokenName
	TokenKeyword
	TokenArrayStart
	TokenArrayEnd
	TokenDictStart
	TokenDictEnd
)

var tokenNames = [...]string{"EOF", "int", "real", "string", "name", "keyword", "[", "]", "<<", ">>"}

func (k TokenKind) String() string {
	if int(k) < len(tokenNames) {
		return tokenNames[k]
	}
	return "token(" + strconv.Itoa(int(k)) + ")"
}

// Token is one lexical unit. Text holds the decoded bytes of strings and
// names and the raw bytes of everything else.
type Token struct {
	Kind TokenKind
	Text []byte
	Pos  int
}

// SyntaxError reports malformed input at a byte offset
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("pdf syntax error at offset %d: %s", e.Pos, e.Msg)
}

// Scanner splits an in-memory buffer into tokens. Comments are skipped.
type Scanner struct {
	data []byte
	pos  int
}

// NewScanner returns a scanner positioned at the start of data
func NewScanner(data []byte) *Scanner {
	return &Scanner{data: data}
}

// Pos returns the offset of the next unread byte
func (s *Scanner) Pos() int { return s.pos }

// Seek moves to offset pos, clamped to the buffer
func (s *Scanner) Seek(pos int) {
	s.pos = max(0, min(pos, len(s.data)))
}

// Data returns the whole buffer
func (s *Scanner) Data() []byte { return s.data }

// SkipSpace advances past whitespace and comments
func (s *Scanner) SkipSpace() {
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		switch {
		case isSpace(c):
			s.pos++
		case c == '%':
			for s.pos < len(s.data) && s.data[s.pos] != '\n' && s.data[s.pos] != '\r' {
				s.pos++
			}
		default:
			return
		}
	}
}

// Next returns the next token, or a TokenEOF token with io.EOF at the end
// of the buffer
func (s *Scanner) Next() (Token, error) {
	s.SkipSpace()
	start := s.pos
	if s.pos >= len(s.data) {
		return Token{Kind: TokenEOF, Pos: start}, io.EOF
	}

	c := s.data[s.pos]
	switch {
	case c == '(':
		return s.literal()
	case c == '<':
		if s.peekAt(1) == '<' {
			s.pos += 2
			return Token{Kind: TokenDictStart, Pos: start}, nil
		}
		return s.hex()
	case c == '>':
		if s.peekAt(1) == '>' {
			s.pos += 2
			return Token{Kind: TokenDictEnd, Pos: start}, nil
		}
		return Token{}, s.errorf(start, "unexpected '>'")
	case c == '[':
		s.pos++
		return Token{Kind: TokenArrayStart, Pos: start}, nil
	case c == ']':
		s.pos++
		return Token{Kind: TokenArrayEnd, Pos: start}, nil
	case c == '{' || c == '}':
		s.pos++
		return Token{Kind: TokenKeyword, Text: s.data[start:s.pos], Pos: start}, nil
	case c == '/':
		return s.name()
	case c == ')':
		return Token{}, s.errorf(start, "unbalanced ')'")
	case isNumberStart(c):
		return s.number()
	}

	for s.pos < len(s.data) && isRegular(s.data[s.pos]) {
		s.pos++
	}
	return Token{Kind: TokenKeyword, Text: s.data[start:s.pos], Pos: start}, nil
}

// Read returns the next n raw bytes
func (s *Scanner) Read(n int) ([]byte, error) {
	if n < 0 || s.pos+n > len(s.data) {
		return nil, s.errorf(s.pos, fmt.Sprintf("need %d bytes, %d left", n, len(s.data)-s.pos))
	}
	b := s.data[s.pos : s.pos+n]
	s.pos += n
	return b, nil
}

// SkipEOL consumes one end-of-line marker, CRLF, LF or a lone CR
func (s *Scanner) SkipEOL() {
	if s.peekAt(0) == '\r' {
		s.pos++
	}
	if s.peekAt(0) == '\n' {
		s.pos++
	}
}

func (s *Scanner) peekAt(off int) byte {
	if s.pos+off < len(s.data) {
		return s.data[s.pos+off]
	}
	return 0
}

func (s *Scanner) errorf(pos int, msg string) error {
	return &SyntaxError{Pos: pos, Msg: msg}
}

// number reads a run of digits, signs and dots. Runs that are only signs
// or dots read as zero, as most viewers do.
func (s *Scanner) number() (Token, error) {
	start := s.pos
	dot := false
	for s.pos < len(s.data) && isNumberStart(s.data[s.pos]) {
		if s.data[s.pos] == '.' {
			dot = true
		}
		s.pos++
	}
	text := s.data[start:s.pos]

	if !dot {
		if _, err := strconv.ParseInt(string(text), 10, 64); err == nil {
			return Token{Kind: TokenInt, Text: text, Pos: start}, nil
		} else if errors.Is(err, strconv.ErrRange) {
			return Token{Kind: TokenReal, Text: text, Pos: start}, nil
		}
	} else if _, err := strconv.ParseFloat(string(text), 64); err == nil {
		return Token{Kind: TokenReal, Text: text, Pos: start}, nil
	}

	for _, c := range text {
		if c >= '0' && c <= '9' {
			return Token{}, s.errorf(start, fmt.Sprintf("malformed number %q", text))
		}
	}
	return Token{Kind: TokenInt, Text: []byte("0"), Pos: start}, nil
}

func (s *Scanner) name() (Token, error) {
	start := s.pos
	s.pos++
	var out []byte
	for s.pos < len(s.data) && isRegular(s.data[s.pos]) {
		c := s.data[s.pos]
		if c == '#' && isHex(s.peekAt(1)) && isHex(s.peekAt(2)) {
			out = append(out, unhex(s.peekAt(1))<<4|unhex(s.peekAt(2)))
			s.pos += 3
			continue
		}
		out = append(out, c)
		s.pos++
	}
	return Token{Kind: TokenName, Text: out, Pos: start}, nil
}

func (s *Scanner) hex() (Token, error) {
	start := s.pos
	s.pos++
	var out []byte
	var hi byte
	half := false
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		s.pos++
		switch {
		case c == '>':
			if half {
				out = append(out, hi<<4)
			}
			return Token{Kind: TokenString, Text: out, Pos: start}, nil
		case isSpace(c):
		case isHex(c):
			if half {
				out = append(out, hi<<4|unhex(c))
			} else {
				hi = unhex(c)
			}
			half = !half
		default:
			return Token{}, s.errorf(s.pos-1, fmt.Sprintf("invalid hex digit %q", c))
		}
	}
	return Token{}, s.errorf(start, "unterminated hex string")
}

var escapes = map[byte]byte{
	'n': '\n', 'r': '\r', 't': '\t', 'b': '\b', 'f': '\f',
	'(': '(', ')': ')', '\\': '\\',
}

func (s *Scanner) literal() (Token, error) {
	start := s.pos
	s.pos++
	var out []byte
	depth := 1
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		s.pos++
		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return Token{Kind: TokenString, Text: out, Pos: start}, nil
			}
		case '\\':
			if s.pos >= len(s.data) {
				continue
			}
			e := s.data[s.pos]
			s.pos++
			switch {
			case escapes[e] != 0:
				out = append(out, escapes[e])
			case e == '\r':
				if s.peekAt(0) == '\n' {
					s.pos++
				}
			case e == '\n':
			case e >= '0' && e <= '7':
				v := int(e - '0')
				for i := 0; i < 2 && s.peekAt(0) >= '0' && s.peekAt(0) <= '7'; i++ {
					v = v*8 + int(s.data[s.pos]-'0')
					s.pos++
				}
				out = append(out, byte(v))
			default:
				out = append(out, e)
			}
			continue
		}
		out = append(out, c)
	}
	return Token{}, s.errorf(start, "unterminated string")
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '\f', 0:
		return true
	}
	return false
}

func isDelim(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isRegular(c byte) bool { return !isSpace(c) && !isDelim(c) }

func isNumberStart(c byte) bool {
	return c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.'
}

func isHex(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}

func unhex(c byte) byte {
	switch {
	case c >= 'a':
		return c - 'a' + 10
	case c >= 'A':
		return c - 'A' + 10
	}
	return c - '0'
}

package filterlang

import (
	"fmt"
	"net/netip"
	"regexp"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokLParen
	tokRParen
	tokNot     // ! or not
	tokAnd     // && or and
	tokOr      // || or or
	tokEq      // ==
	tokNe      // !=
	tokGt      // >
	tokGe      // >=
	tokLt      // <
	tokLe      // <=
	tokMatches // ~
)

// token is one lexed unit. lit is the exact source text, off its byte
// offset into the original input; together they form the token's span.
type token struct {
	kind tokenKind
	lit  string
	off  int
}

// scanner is a pull-based lexer. Each call consumes a prefix of the
// remaining input and returns a single token; the full token stream is
// never materialized. pos always indexes into the one original buffer, so
// every span is a byte offset plus length into that buffer.
type scanner struct {
	input string
	pos   int
}

func (s *scanner) errAt(kind ErrorKind, off, length int, format string, args ...interface{}) *ParseError {
	return &ParseError{
		Kind:   kind,
		Msg:    fmt.Sprintf(format, args...),
		Offset: off,
		Length: length,
		Input:  s.input,
	}
}

// errRest reports an error whose span is the whole unconsumed remainder,
// the convention for "expected <literal shape>" failures.
func (s *scanner) errRest(kind ErrorKind, format string, args ...interface{}) *ParseError {
	return s.errAt(kind, s.pos, len(s.input)-s.pos, format, args...)
}

func (s *scanner) skipSpace() {
	for s.pos < len(s.input) {
		switch s.input[s.pos] {
		case ' ', '\t', '\n', '\r':
			s.pos++
		default:
			return
		}
	}
}

// scan returns the next structural token: identifiers, operators,
// connectives, parentheses, or EOF. Literals are not scanned here; the
// parser requests them with the typed scan methods below once the field's
// declared type is known.
func (s *scanner) scan() (token, *ParseError) {
	s.skipSpace()
	if s.pos >= len(s.input) {
		return token{kind: tokEOF, off: s.pos}, nil
	}

	start := s.pos
	ch := s.input[s.pos]

	two := func(kind tokenKind) (token, *ParseError) {
		s.pos += 2
		return token{kind: kind, lit: s.input[start:s.pos], off: start}, nil
	}
	one := func(kind tokenKind) (token, *ParseError) {
		s.pos++
		return token{kind: kind, lit: s.input[start:s.pos], off: start}, nil
	}

	switch {
	case ch == '(':
		return one(tokLParen)
	case ch == ')':
		return one(tokRParen)
	case ch == '~':
		return one(tokMatches)
	case ch == '!':
		if s.peekAt(1) == '=' {
			return two(tokNe)
		}
		return one(tokNot)
	case ch == '=':
		if s.peekAt(1) == '=' {
			return two(tokEq)
		}
		return token{}, s.errAt(ErrUnexpectedChar, start, 1, "unexpected character %q", ch)
	case ch == '>':
		if s.peekAt(1) == '=' {
			return two(tokGe)
		}
		return one(tokGt)
	case ch == '<':
		if s.peekAt(1) == '=' {
			return two(tokLe)
		}
		return one(tokLt)
	case ch == '&':
		if s.peekAt(1) == '&' {
			return two(tokAnd)
		}
		return token{}, s.errAt(ErrUnexpectedChar, start, 1, "unexpected character %q", ch)
	case ch == '|':
		if s.peekAt(1) == '|' {
			return two(tokOr)
		}
		return token{}, s.errAt(ErrUnexpectedChar, start, 1, "unexpected character %q", ch)
	case isIdentStart(ch):
		for s.pos < len(s.input) && isIdentPart(s.input[s.pos]) {
			s.pos++
		}
		tok := token{kind: tokIdent, lit: s.input[start:s.pos], off: start}
		switch tok.lit {
		case "and":
			tok.kind = tokAnd
		case "or":
			tok.kind = tokOr
		case "not":
			tok.kind = tokNot
		}
		return tok, nil
	}
	return token{}, s.errAt(ErrUnexpectedChar, start, 1, "unexpected character %q", ch)
}

// peekAt returns the byte at pos+n, or 0 past the end.
func (s *scanner) peekAt(n int) byte {
	if s.pos+n >= len(s.input) {
		return 0
	}
	return s.input[s.pos+n]
}

// scanUnsigned lexes a decimal unsigned 64-bit literal, validating digit
// by digit.
func (s *scanner) scanUnsigned() (UnsignedValue, *ParseError) {
	s.skipSpace()
	if s.pos >= len(s.input) || !isDigit(s.input[s.pos]) {
		return 0, s.errRest(ErrExpectedDigit, "expected digit")
	}

	start := s.pos
	var v uint64
	for s.pos < len(s.input) && isDigit(s.input[s.pos]) {
		d := uint64(s.input[s.pos] - '0')
		if v > (1<<64-1-d)/10 {
			for s.pos < len(s.input) && isDigit(s.input[s.pos]) {
				s.pos++
			}
			return 0, s.errAt(ErrNumberOutOfRange, start, s.pos-start, "number out of range")
		}
		v = v*10 + d
		s.pos++
	}
	return UnsignedValue(v), nil
}

// scanIP lexes an IPv4 dotted-quad or IPv6 colon-hex literal.
func (s *scanner) scanIP() (IPValue, *ParseError) {
	s.skipSpace()
	start := s.pos
	for s.pos < len(s.input) && isIPPart(s.input[s.pos]) {
		s.pos++
	}
	if s.pos == start {
		return IPValue{}, s.errRest(ErrExpectedIP, "expected IP address")
	}
	addr, err := netip.ParseAddr(s.input[start:s.pos])
	if err != nil {
		return IPValue{}, s.errAt(ErrExpectedIP, start, s.pos-start, "expected IP address")
	}
	return IPValue(addr), nil
}

// scanBytes lexes a quoted string literal. A backslash escapes the byte
// that follows it.
func (s *scanner) scanBytes() (BytesValue, *ParseError) {
	raw, _, err := s.scanQuoted(false)
	if err != nil {
		return nil, err
	}
	return BytesValue(raw), nil
}

// scanPattern lexes a quoted regex literal after `~`. Unlike a plain
// string, backslash sequences pass through to the regex engine untouched;
// only `\"` is unescaped so quotes can appear inside the pattern.
func (s *scanner) scanPattern() (PatternValue, *ParseError) {
	src, span, err := s.scanQuoted(true)
	if err != nil {
		return PatternValue{}, err
	}
	re, compErr := regexp.Compile(string(src))
	if compErr != nil {
		return PatternValue{}, s.errAt(ErrBadPattern, span.off, len(span.lit), "invalid regular expression")
	}
	return PatternValue{src: string(src), re: re}, nil
}

// scanQuoted reads a double-quoted literal and returns its decoded bytes
// plus a token spanning the literal including the quotes. In pattern mode
// escape sequences other than `\"` are kept verbatim.
func (s *scanner) scanQuoted(pattern bool) ([]byte, token, *ParseError) {
	s.skipSpace()
	if s.pos >= len(s.input) || s.input[s.pos] != '"' {
		what := "quoted string"
		if pattern {
			what = "pattern"
		}
		return nil, token{}, s.errRest(ErrExpectedString, "expected %s", what)
	}

	start := s.pos
	s.pos++ // opening quote
	var out []byte
	for s.pos < len(s.input) {
		ch := s.input[s.pos]
		switch {
		case ch == '\\' && s.pos+1 < len(s.input):
			next := s.input[s.pos+1]
			if pattern && next != '"' {
				out = append(out, ch, next)
			} else {
				out = append(out, next)
			}
			s.pos += 2
		case ch == '"':
			s.pos++
			return out, token{lit: s.input[start:s.pos], off: start}, nil
		default:
			out = append(out, ch)
			s.pos++
		}
	}
	return nil, token{}, s.errAt(ErrUnterminatedString, start, len(s.input)-start, "unterminated string")
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIPPart(ch byte) bool {
	return isDigit(ch) || ch == '.' || ch == ':' ||
		(ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch) || ch == '.'
}

package filterlang

import (
	"fmt"
	"strings"
)

// ErrorKind tags the category of a lex or parse failure.
type ErrorKind int

const (
	ErrUnexpectedChar ErrorKind = iota
	ErrUnexpectedEOF
	ErrExpectedDigit
	ErrNumberOutOfRange
	ErrExpectedIP
	ErrExpectedString
	ErrUnterminatedString
	ErrBadPattern
	ErrExpectedFieldName
	ErrExpectedOperator
	ErrUnknownField
	ErrIllegalOperator
	ErrUnmatchedParen
	ErrTrailingInput
)

// ParseError is a positioned lex/parse/type diagnostic. Offset and Length
// locate the offending span as byte positions within Input, which is the
// original, unmodified source the parser was given.
type ParseError struct {
	Kind   ErrorKind
	Msg    string
	Offset int
	Length int
	Input  string
}

// Error renders the diagnostic as a header line, the backquoted input, and
// a caret line aligned under the offending span:
//
//	Filter parsing error:
//	`num1 == "abc"`
//	         ^^^^^ expected digit
//
// A zero-length span still gets one caret.
func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("Filter parsing error:\n")
	fmt.Fprintf(&b, "`%s`\n", e.Input)
	for i := 0; i < 1+e.Offset; i++ {
		b.WriteByte(' ')
	}
	carets := e.Length
	if carets < 1 {
		carets = 1
	}
	for i := 0; i < carets; i++ {
		b.WriteByte('^')
	}
	b.WriteByte(' ')
	b.WriteString(e.Msg)
	b.WriteByte('\n')
	return b.String()
}

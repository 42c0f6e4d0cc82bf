// Package filterlang implements a small typed filter expression language.
//
// A caller declares a Scheme mapping field names to value types, parses
// boolean expressions like `num1 > 3 && str2 == "abc"` against it, and
// evaluates the resulting Filter tree against an ExecutionContext holding
// concrete runtime values. All type checking happens at parse time; a
// successfully parsed Filter can never represent a comparison that is
// illegal for the declared field types.
package filterlang

import (
	"net/netip"
	"regexp"
)

// Type identifies one of the value kinds the language understands.
type Type int

const (
	TypeUnsigned Type = iota // unsigned 64-bit integer
	TypeIP                   // IPv4 or IPv6 address
	TypeBytes                // immutable byte sequence (strings included)
	TypeBool                 // presence/absence; has no literal form
)

func (t Type) String() string {
	switch t {
	case TypeUnsigned:
		return "Unsigned"
	case TypeIP:
		return "Ip"
	case TypeBytes:
		return "Bytes"
	case TypeBool:
		return "Bool"
	}
	return "Unknown"
}

// ComparisonOp is the operator of a single field comparison.
type ComparisonOp int

const (
	OpEq      ComparisonOp = iota // ==
	OpNe                          // !=
	OpGt                          // >
	OpGe                          // >=
	OpLt                          // <
	OpLe                          // <=
	OpMatches                     // ~ (regex match, Bytes only)
)

func (op ComparisonOp) String() string {
	switch op {
	case OpEq:
		return "=="
	case OpNe:
		return "!="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpMatches:
		return "~"
	}
	return "?"
}

// legalFor reports whether the operator may be applied to a field of the
// given type. Unsigned and Ip values are totally ordered; Bytes supports
// equality and regex matching only; Bool admits no literal-bearing
// operator at all.
func (op ComparisonOp) legalFor(t Type) bool {
	switch t {
	case TypeUnsigned, TypeIP:
		return op != OpMatches
	case TypeBytes:
		return op == OpEq || op == OpNe || op == OpMatches
	}
	return false
}

// RhsValue is a literal parsed from the right-hand side of a comparison.
type RhsValue interface {
	Type() Type
	rhsValue()
}

// LhsValue is a concrete runtime value held by an ExecutionContext.
type LhsValue interface {
	Type() Type
	lhsValue()
}

// UnsignedValue is an unsigned 64-bit integer value.
type UnsignedValue uint64

func (UnsignedValue) Type() Type { return TypeUnsigned }
func (UnsignedValue) rhsValue()  {}
func (UnsignedValue) lhsValue()  {}

// IPValue is an IPv4 or IPv6 address value.
type IPValue netip.Addr

func (IPValue) Type() Type { return TypeIP }
func (IPValue) rhsValue()  {}
func (IPValue) lhsValue()  {}

// Addr returns the address as a netip.Addr.
func (v IPValue) Addr() netip.Addr { return netip.Addr(v) }

// BytesValue is an immutable byte sequence value.
type BytesValue []byte

func (BytesValue) Type() Type { return TypeBytes }
func (BytesValue) rhsValue()  {}
func (BytesValue) lhsValue()  {}

// PatternValue is a compiled regular expression literal, produced only on
// the right-hand side of a `~` comparison against a Bytes field.
type PatternValue struct {
	src string
	re  *regexp.Regexp
}

func (PatternValue) Type() Type { return TypeBytes }
func (PatternValue) rhsValue()  {}

// Source returns the pattern text as written in the filter.
func (v PatternValue) Source() string { return v.src }

// Match reports whether the pattern matches b.
func (v PatternValue) Match(b []byte) bool { return v.re.Match(b) }

// BoolValue is a runtime boolean value. It has no literal counterpart:
// Bool-typed fields cannot appear in comparisons, so BoolValue implements
// LhsValue only.
type BoolValue bool

func (BoolValue) Type() Type { return TypeBool }
func (BoolValue) lhsValue()  {}

// UninhabitedBool fills the Bool arm of the literal union. The parser never
// constructs one: no operator is legal for a Bool field, so the literal
// grammar for Bool is unreachable. Code paths that would consume an
// UninhabitedBool assert unreachability instead of comparing.
type UninhabitedBool struct {
	_ [0]func() // not comparable, not constructible outside this package
}

func (UninhabitedBool) Type() Type { return TypeBool }
func (UninhabitedBool) rhsValue()  {}

package filterlang

import (
	"bytes"
	"fmt"
	"net/netip"
)

// Execute evaluates a filter tree against the context and returns the
// match decision. Evaluation is a pure, read-only tree walk; And/Or
// children are evaluated left to right with short-circuiting.
//
// Execute panics if the filter references a field the context never
// received, or if a field's runtime value carries a different type tag
// than the literal it is compared against. Both are caller contract
// violations (see ExecutionContext); they abort the evaluation rather
// than silently miscomparing one type's bytes as another's.
func (c *ExecutionContext) Execute(f Filter) bool {
	switch n := f.(type) {
	case *Op:
		return c.executeOp(n)
	case *Combine:
		switch n.Op {
		case CombineAnd:
			for _, child := range n.Children {
				if !c.Execute(child) {
					return false
				}
			}
			return true
		case CombineOr:
			for _, child := range n.Children {
				if c.Execute(child) {
					return true
				}
			}
			return false
		case CombineNot:
			return !c.Execute(n.Children[0])
		}
	}
	panic(fmt.Sprintf("filterlang: unknown filter node %T", f))
}

func (c *ExecutionContext) executeOp(op *Op) bool {
	lhs := c.field(op.Field)
	if want := op.Value.Type(); lhs.Type() != want {
		panic(fmt.Sprintf("Field %s was previously registered with type %s but now contains %s",
			op.Field, want, lhs.Type()))
	}

	switch rhs := op.Value.(type) {
	case UnsignedValue:
		return ordering(compareUnsigned(uint64(lhs.(UnsignedValue)), uint64(rhs)), op.Operator)
	case IPValue:
		return ordering(netip.Addr(lhs.(IPValue)).Compare(netip.Addr(rhs)), op.Operator)
	case BytesValue:
		eq := bytes.Equal([]byte(lhs.(BytesValue)), []byte(rhs))
		if op.Operator == OpNe {
			return !eq
		}
		return eq
	case PatternValue:
		return rhs.Match([]byte(lhs.(BytesValue)))
	case UninhabitedBool:
		// No UninhabitedBool literal can be constructed, so no Op node can
		// carry one.
		panic("filterlang: unreachable: UninhabitedBool literal")
	}
	panic(fmt.Sprintf("filterlang: unknown literal %T", op.Value))
}

// ordering maps a three-way comparison result through an ordering or
// equality operator.
func ordering(cmp int, op ComparisonOp) bool {
	switch op {
	case OpEq:
		return cmp == 0
	case OpNe:
		return cmp != 0
	case OpGt:
		return cmp > 0
	case OpGe:
		return cmp >= 0
	case OpLt:
		return cmp < 0
	case OpLe:
		return cmp <= 0
	}
	panic(fmt.Sprintf("filterlang: operator %s is not an ordering operator", op))
}

func compareUnsigned(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

package filterlang

// Filter is a node in a parsed, type-checked filter tree. Trees are
// immutable after parsing and carry copied field names and type tags, so a
// Filter may outlive the Scheme it was parsed against.
type Filter interface {
	filter()
}

// Op is a leaf comparing one field's runtime value against a literal.
// The parser guarantees the field existed in the Scheme and that the
// literal's type tag equals the field's declared type.
type Op struct {
	Field    string
	Operator ComparisonOp
	Value    RhsValue
}

func (*Op) filter() {}

// CombineOp is a logical connective.
type CombineOp int

const (
	CombineAnd CombineOp = iota
	CombineOr
	CombineNot
)

func (op CombineOp) String() string {
	switch op {
	case CombineAnd:
		return "&&"
	case CombineOr:
		return "||"
	case CombineNot:
		return "!"
	}
	return "?"
}

// Combine aggregates child results with a logical connective. Runs of the
// same connective are flattened during parsing, so `a && b && c` is one
// Combine with three children, never a nested pair. CombineNot always has
// exactly one child.
type Combine struct {
	Op       CombineOp
	Children []Filter
}

func (*Combine) filter() {}

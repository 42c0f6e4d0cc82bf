package filterlang

// Parse parses a filter expression against the Scheme and returns the
// typed tree, or a *ParseError locating the first lexical, syntactic, or
// type error. The whole input must be consumed; trailing text is an error.
func (s *Scheme) Parse(input string) (Filter, error) {
	p := &parser{scheme: s, scan: &scanner{input: input}}
	if err := p.next(); err != nil {
		return nil, err
	}
	f, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, p.scan.errAt(ErrTrailingInput, p.tok.off, len(input)-p.tok.off,
			"unexpected trailing input")
	}
	return f, nil
}

// The parser holds one structural token of lookahead, Onyx-parser style.
// Literals are never part of the lookahead: at a literal position the
// parser asks the scanner directly for the shape the field's declared type
// requires, so literal lexing is type-directed.
type parser struct {
	scheme *Scheme
	scan   *scanner
	tok    token
}

// next advances the structural lookahead.
func (p *parser) next() *ParseError {
	tok, err := p.scan.scan()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

// parseExpr parses at the lowest precedence level:
// Or < And < Not < comparison < primary.
func (p *parser) parseExpr() (Filter, *ParseError) {
	return p.parseOr()
}

// parseOr folds `a || b || c` into one Combine node with ordered children.
func (p *parser) parseOr() (Filter, *ParseError) {
	first, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokOr {
		return first, nil
	}
	children := []Filter{first}
	for p.tok.kind == tokOr {
		if err := p.next(); err != nil {
			return nil, err
		}
		child, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return &Combine{Op: CombineOr, Children: children}, nil
}

func (p *parser) parseAnd() (Filter, *ParseError) {
	first, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokAnd {
		return first, nil
	}
	children := []Filter{first}
	for p.tok.kind == tokAnd {
		if err := p.next(); err != nil {
			return nil, err
		}
		child, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return &Combine{Op: CombineAnd, Children: children}, nil
}

func (p *parser) parseUnary() (Filter, *ParseError) {
	if p.tok.kind != tokNot {
		return p.parsePrimary()
	}
	if err := p.next(); err != nil {
		return nil, err
	}
	inner, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &Combine{Op: CombineNot, Children: []Filter{inner}}, nil
}

func (p *parser) parsePrimary() (Filter, *ParseError) {
	if p.tok.kind == tokLParen {
		if err := p.next(); err != nil {
			return nil, err
		}
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.tok.kind != tokRParen {
			return nil, p.scan.errAt(ErrUnmatchedParen, p.tok.off, len(p.tok.lit), "expected ')'")
		}
		if err := p.next(); err != nil {
			return nil, err
		}
		return inner, nil
	}
	return p.parseComparison()
}

// parseComparison parses `<field> <operator> <literal>`. The field is
// resolved against the Scheme first; the operator is checked against the
// legality table for the field's type; the literal is then lexed with the
// grammar that type requires, so a wrong-shaped literal fails here with a
// span, never at evaluation time.
func (p *parser) parseComparison() (Filter, *ParseError) {
	if p.tok.kind == tokEOF {
		return nil, p.scan.errAt(ErrUnexpectedEOF, p.tok.off, 0, "unexpected end of input")
	}
	if p.tok.kind != tokIdent {
		return nil, p.scan.errAt(ErrExpectedFieldName, p.tok.off, len(p.tok.lit), "expected field name")
	}
	field := p.tok
	fieldType, ok := p.scheme.FieldType(field.lit)
	if !ok {
		return nil, p.scan.errAt(ErrUnknownField, field.off, len(field.lit),
			"unknown field %q", field.lit)
	}
	if err := p.next(); err != nil {
		return nil, err
	}

	op, ok := comparisonOp(p.tok.kind)
	if !ok {
		return nil, p.scan.errAt(ErrExpectedOperator, p.tok.off, len(p.tok.lit),
			"expected comparison operator")
	}
	if !op.legalFor(fieldType) {
		return nil, p.scan.errAt(ErrIllegalOperator, p.tok.off, len(p.tok.lit),
			"operator %q not allowed for type %s", op.String(), fieldType)
	}
	// The operator token is consumed implicitly: the scanner is positioned
	// just past it, and the literal is pulled from there without refilling
	// the structural lookahead.

	var value RhsValue
	var lexErr *ParseError
	switch fieldType {
	case TypeUnsigned:
		value, lexErr = p.scan.scanUnsigned()
	case TypeIP:
		value, lexErr = p.scan.scanIP()
	case TypeBytes:
		if op == OpMatches {
			value, lexErr = p.scan.scanPattern()
		} else {
			value, lexErr = p.scan.scanBytes()
		}
	default:
		// Bool has no legal operators; legalFor rejected it above.
		panic("filterlang: literal position reached for uninhabited type")
	}
	if lexErr != nil {
		return nil, lexErr
	}

	if err := p.next(); err != nil {
		return nil, err
	}
	return &Op{Field: field.lit, Operator: op, Value: value}, nil
}

func comparisonOp(kind tokenKind) (ComparisonOp, bool) {
	switch kind {
	case tokEq:
		return OpEq, true
	case tokNe:
		return OpNe, true
	case tokGt:
		return OpGt, true
	case tokGe:
		return OpGe, true
	case tokLt:
		return OpLt, true
	case tokLe:
		return OpLe, true
	case tokMatches:
		return OpMatches, true
	}
	return 0, false
}

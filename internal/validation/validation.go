// Package validation checks filter service requests before they reach the
// registry or the parser.
package validation

import (
	"github.com/pkg/errors"

	"github.com/filterlang/filterlang"
)

const (
	MaxFieldsPerScheme  = 128
	MaxNameLength       = 64
	MaxExpressionLength = 4096
)

// ValidateSchemeName checks that a scheme name is non-empty, within
// length, and made of lowercase letters, digits, '_' and '-'.
func ValidateSchemeName(name string) error {
	if name == "" {
		return errors.New("scheme name is required")
	}
	if len(name) > MaxNameLength {
		return errors.Errorf("scheme name exceeds %d characters", MaxNameLength)
	}
	for i := 0; i < len(name); i++ {
		ch := name[i]
		switch {
		case ch >= 'a' && ch <= 'z':
		case ch >= '0' && ch <= '9':
		case ch == '_' || ch == '-':
		default:
			return errors.Errorf("scheme name contains invalid character %q", ch)
		}
	}
	return nil
}

// ValidateFieldName checks that a field name is lexable as an identifier:
// it must start with a letter or '_' and continue with letters, digits,
// '_' or '.'.
func ValidateFieldName(name string) error {
	if name == "" {
		return errors.New("field name is required")
	}
	if len(name) > MaxNameLength {
		return errors.Errorf("field name exceeds %d characters", MaxNameLength)
	}
	for i := 0; i < len(name); i++ {
		ch := name[i]
		ok := ch == '_' || ch == '.' ||
			(ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') ||
			(i > 0 && ch >= '0' && ch <= '9')
		if !ok {
			return errors.Errorf("field name %q is not a valid identifier", name)
		}
	}
	switch name {
	case "and", "or", "not":
		return errors.Errorf("field name %q is a reserved word", name)
	}
	return nil
}

// ParseFieldType maps an external type name to a filterlang.Type. Bool is
// deliberately absent: it is never externally declarable as a field type.
func ParseFieldType(name string) (filterlang.Type, error) {
	switch name {
	case "unsigned":
		return filterlang.TypeUnsigned, nil
	case "ip":
		return filterlang.TypeIP, nil
	case "bytes":
		return filterlang.TypeBytes, nil
	}
	return 0, errors.Errorf("unknown field type %q (want unsigned, ip, or bytes)", name)
}

// TypeName is the inverse of ParseFieldType for response rendering.
func TypeName(t filterlang.Type) string {
	switch t {
	case filterlang.TypeUnsigned:
		return "unsigned"
	case filterlang.TypeIP:
		return "ip"
	case filterlang.TypeBytes:
		return "bytes"
	}
	return "unknown"
}

// ValidateExpression bounds a filter expression before parsing.
func ValidateExpression(expression string) error {
	if expression == "" {
		return errors.New("expression is required")
	}
	if len(expression) > MaxExpressionLength {
		return errors.Errorf("expression exceeds %d bytes", MaxExpressionLength)
	}
	return nil
}

// ValidateFieldCount bounds the number of fields in one scheme.
func ValidateFieldCount(n int) error {
	if n == 0 {
		return errors.New("at least one field is required")
	}
	if n > MaxFieldsPerScheme {
		return errors.Errorf("scheme contains %d fields, maximum is %d", n, MaxFieldsPerScheme)
	}
	return nil
}

package store

import (
	"context"

	"github.com/pkg/errors"

	"github.com/filterlang/filterlang"
)

// ErrNotFound is wrapped by lookups of schemes or filters that do not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyExists is wrapped when creating a scheme under a taken name.
var ErrAlreadyExists = errors.New("already exists")

// Field is one declared field of a registered scheme.
type Field struct {
	Name string
	Type filterlang.Type
}

// SchemeRecord is a registered scheme: its declaration and the built
// filterlang.Scheme ready for parsing.
type SchemeRecord struct {
	Name   string
	Fields []Field
	Scheme *filterlang.Scheme
}

// FilterRecord is a compiled filter bound to the scheme it was parsed
// against. The tree is immutable and safe for concurrent evaluation.
type FilterRecord struct {
	ID         int64
	Scheme     string
	Expression string
	Filter     filterlang.Filter
}

// Store defines the registry interface for the filter service.
type Store interface {
	// Scheme registry
	CreateScheme(ctx context.Context, name string, fields []Field) (*SchemeRecord, error)
	GetScheme(ctx context.Context, name string) (*SchemeRecord, error)
	ListSchemes(ctx context.Context) ([]*SchemeRecord, error)

	// Compiled filters
	CompileFilter(ctx context.Context, scheme, expression string) (*FilterRecord, error)
	GetFilter(ctx context.Context, id int64) (*FilterRecord, error)

	// Admin
	Reset()

	// State returns summary statistics for the admin API.
	State() map[string]interface{}
}

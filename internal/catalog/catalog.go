package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/hanpama/shapeql/internal/shape"
)

// ErrTypeNotFound is returned by Lookup for unknown type names.
var ErrTypeNotFound = errors.New("type not found")

// Catalog supplies selection specs by type name.
type Catalog interface {
	Lookup(ctx context.Context, typeName string) (*shape.Spec, error)
	List(ctx context.Context) ([]string, error)
}

// Map is an in-memory Catalog.
type Map map[string]*shape.Spec

// NewMap indexes specs by their type name.
func NewMap(specs ...*shape.Spec) Map {
	m := make(Map, len(specs))
	for _, s := range specs {
		m[s.TypeName] = s
	}
	return m
}

// Lookup implements Catalog interface
func (m Map) Lookup(ctx context.Context, typeName string) (*shape.Spec, error) {
	s, ok := m[typeName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTypeNotFound, typeName)
	}
	return s, nil
}

// List implements Catalog interface
func (m Map) List(ctx context.Context) ([]string, error) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

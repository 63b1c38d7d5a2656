package reqid

import (
	"context"

	"github.com/google/uuid"
)

// key is the context key for the compile ID.
type key struct{}

// batchKey is the context key for the batch ID.
type batchKey struct{}

// NewContext returns a copy of parent carrying a fresh compile ID. The ID
// correlates start and finish events of one compile.
func NewContext(parent context.Context) (context.Context, string) {
	id := uuid.NewString()
	return context.WithValue(parent, key{}, id), id
}

// FromContext extracts the compile ID from ctx.
// It returns the ID and whether it was present.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(key{}).(string)
	return id, ok
}

// NewBatchContext returns a copy of parent carrying a fresh batch ID. Compiles
// started under it inherit the ID.
func NewBatchContext(parent context.Context) (context.Context, string) {
	id := uuid.NewString()
	return context.WithValue(parent, batchKey{}, id), id
}

// BatchFromContext extracts the batch ID from ctx.
func BatchFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(batchKey{}).(string)
	return id, ok
}

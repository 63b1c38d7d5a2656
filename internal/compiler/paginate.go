package compiler

import (
	"context"

	"github.com/hanpama/shapeql/internal/shape"
)

type pageOptions struct {
	edges    []shape.Field
	pageInfo []shape.Field
}

type PageOption func(*pageOptions)

// WithEdgeFields replaces the whole edges selection, node included. The
// default is cursor followed by node, the list shape of the paginated type.
func WithEdgeFields(fields ...shape.Field) PageOption {
	return func(o *pageOptions) { o.edges = fields }
}

// WithPageInfo replaces the pageInfo selection. The default is endCursor and
// hasNextPage.
func WithPageInfo(fields ...shape.Field) PageOption {
	return func(o *pageOptions) { o.pageInfo = fields }
}

// ConnectionTypeName names the synthetic spec Paginate builds for typeName.
func ConnectionTypeName(typeName string) string {
	return typeName + "Connection"
}

// Paginate wraps spec's list shape in a cursor connection envelope:
//
//	edges { cursor node { ... } }
//	pageInfo { endCursor hasNextPage }
//
// The returned spec declares the envelope as both its list and full
// variants. Fragments of the list shape are defined once on the envelope,
// also when the edges selection is replaced.
func (c *Compiler) Paginate(ctx context.Context, spec *shape.Spec, opts ...PageOption) (*shape.Spec, error) {
	op := pageOptions{
		pageInfo: shape.Leaves("endCursor", "hasNextPage"),
	}
	for _, f := range opts {
		f(&op)
	}

	rel, err := c.Relate(ctx, spec, shape.List)
	if err != nil {
		return nil, err
	}
	node := rel.Node()
	lifted := node.Fragments
	node.Fragments = nil

	edges := op.edges
	if edges == nil {
		edges = []shape.Field{shape.F("cursor", shape.True), shape.F("node", node)}
	}
	envelope := &shape.Object{
		Fields: []shape.Field{
			shape.F("edges", &shape.Object{Fields: edges}),
			shape.F("pageInfo", &shape.Object{Fields: op.pageInfo}),
		},
		Fragments: lifted,
	}

	out := shape.NewSpec(ConnectionTypeName(spec.TypeName))
	out.With(shape.List, envelope)
	out.With(shape.Full, envelope)
	return out, nil
}

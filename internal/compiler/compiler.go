package compiler

import (
	"context"
	"sync"

	"github.com/hanpama/shapeql/internal/catalog"
	"github.com/hanpama/shapeql/internal/shape"
	"go.uber.org/zap"
)

const (
	DefaultMaxDepth = 64
	DefaultIndent   = "  "
)

// Compiler turns selection specs into operation documents. It holds no
// per-compile state and is safe for concurrent use.
type Compiler struct {
	catalog catalog.Catalog
	opt     Options
}

type Options struct {
	// Logger receives degraded-input diagnostics and variant substitution
	// warnings. Defaults to a no-op logger.
	Logger *zap.Logger

	// MaxDepth bounds recursion while normalizing and rendering.
	MaxDepth int

	// Indent is written once per nesting level.
	Indent string
}

type Option func(*Options)

func WithLogger(l *zap.Logger) Option { return func(o *Options) { o.Logger = l } }
func WithMaxDepth(n int) Option       { return func(o *Options) { o.MaxDepth = n } }
func WithIndent(s string) Option      { return func(o *Options) { o.Indent = s } }

// New creates a Compiler resolving shape.Rel references through cat.
// cat may be nil when declarations contain no Rel nodes.
func New(cat catalog.Catalog, opts ...Option) *Compiler {
	op := Options{MaxDepth: DefaultMaxDepth, Indent: DefaultIndent}
	for _, f := range opts {
		f(&op)
	}
	if op.Logger == nil {
		op.Logger = zap.NewNop()
	}
	if op.MaxDepth <= 0 {
		op.MaxDepth = DefaultMaxDepth
	}
	return &Compiler{catalog: cat, opt: op}
}

func (c *Compiler) Logger() *zap.Logger { return c.opt.Logger }

// session is the working state of one compile call. It is never shared
// between calls.
type session struct {
	c   *Compiler
	log *zap.Logger

	mu     sync.Mutex
	thunks map[*shape.Thunk]*thunkResult
	rels   map[string]*Relation

	frags *FragmentSet
}

type thunkResult struct {
	done chan struct{}
	node shape.Node
	err  error
}

func (c *Compiler) newSession() *session {
	return &session{
		c:      c,
		log:    c.opt.Logger,
		thunks: make(map[*shape.Thunk]*thunkResult),
		rels:   make(map[string]*Relation),
		frags:  NewFragmentSet(),
	}
}

func (s *session) lookup(ctx context.Context, typeName string) (*shape.Spec, error) {
	if s.c.catalog == nil {
		return nil, &MissingCatalogError{TypeName: typeName}
	}
	spec, err := s.c.catalog.Lookup(ctx, typeName)
	if err != nil {
		return nil, err
	}
	return spec, nil
}

func (s *session) checkDepth(depth int, path string) error {
	if depth > s.c.opt.MaxDepth {
		return &CycleDepthError{Path: path, Depth: depth}
	}
	return nil
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

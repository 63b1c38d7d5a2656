package shape

import (
	"context"
	"fmt"
)

// Variant names one of the selection variants a type may declare.
type Variant string

const (
	Common Variant = "common"
	Full   Variant = "full"
	List   Variant = "list"
	Nav    Variant = "nav"
)

// Variants lists every known variant in declaration order.
var Variants = []Variant{Common, Full, List, Nav}

func (v Variant) Valid() bool {
	switch v {
	case Common, Full, List, Nav:
		return true
	}
	return false
}

// ParseVariant converts s into a Variant.
func ParseVariant(s string) (Variant, error) {
	v := Variant(s)
	if !v.Valid() {
		return "", fmt.Errorf("unknown variant %q", s)
	}
	return v, nil
}

// Spec is the set of variant trees declared for one remote type.
type Spec struct {
	TypeName string
	Variants map[Variant]Node
}

// NewSpec returns an empty Spec for typeName.
func NewSpec(typeName string) *Spec {
	return &Spec{TypeName: typeName, Variants: make(map[Variant]Node)}
}

// With sets the tree for v and returns s for chaining.
func (s *Spec) With(v Variant, n Node) *Spec {
	if s.Variants == nil {
		s.Variants = make(map[Variant]Node)
	}
	s.Variants[v] = n
	return s
}

func (s *Spec) Has(v Variant) bool {
	if s == nil {
		return false
	}
	n, ok := s.Variants[v]
	return ok && n != nil
}

func (s *Spec) Tree(v Variant) (Node, bool) {
	if !s.Has(v) {
		return nil, false
	}
	return s.Variants[v], true
}

// FragmentName is the global key a fragment of typeName at v is emitted under.
func FragmentName(typeName string, v Variant) string {
	return typeName + "_" + string(v)
}

// Node is one of Leaf, *Object, *Union, *FragmentRef, *Spread, Seq, *Thunk or *Rel.
type Node interface {
	isNode()
}

// Leaf selects a field without a sub-selection.
type Leaf struct{}

// True is the canonical Leaf.
var True = Leaf{}

// Object is a nested selection. TypeName and Variant tag the object when it
// stands for a whole type's shape; they are never emitted as fields.
type Object struct {
	TypeName  string
	Variant   Variant
	Fields    []Field
	Fragments FragmentTable
}

type Field struct {
	Name string
	Node Node
}

// Union selects per concrete type.
type Union struct {
	Branches []Branch
}

// Branch node is a *FragmentRef, a *Spread, an *Object or a lazy node
// resolving to one of those.
type Branch struct {
	TypeName string
	Node     Node
}

// FragmentRef points at a key of the nearest enclosing FragmentTable.
// Extra fields are selected next to the fragment.
type FragmentRef struct {
	Key   string
	Extra []Field
}

// Spread is a normalized fragment reference by unique fragment name.
type Spread struct {
	Name  string
	Extra []Field
}

// Seq describes a sequence. Its element shape is given once.
type Seq []Node

// Thunk defers construction of a node until it is resolved.
type Thunk struct {
	fn func(context.Context) (Node, error)
}

// Lazy wraps fn in a Thunk.
func Lazy(fn func(context.Context) (Node, error)) *Thunk {
	return &Thunk{fn: fn}
}

// LazyNode wraps a plain constructor in a Thunk.
func LazyNode(fn func() Node) *Thunk {
	return &Thunk{fn: func(context.Context) (Node, error) { return fn(), nil }}
}

// Call runs the deferred constructor.
func (t *Thunk) Call(ctx context.Context) (Node, error) {
	if t == nil || t.fn == nil {
		return nil, fmt.Errorf("nil thunk")
	}
	return t.fn(ctx)
}

// Rel refers to another catalog type's shape at a variant. It is resolved
// by name on demand, which is what lets two types reference each other.
type Rel struct {
	TypeName string
	Variant  Variant
	Omit     []string
}

// Ref returns a Rel for typeName at v.
func Ref(typeName string, v Variant, omit ...string) *Rel {
	return &Rel{TypeName: typeName, Variant: v, Omit: omit}
}

func (Leaf) isNode()         {}
func (*Object) isNode()      {}
func (*Union) isNode()       {}
func (*FragmentRef) isNode() {}
func (*Spread) isNode()      {}
func (Seq) isNode()          {}
func (*Thunk) isNode()       {}
func (*Rel) isNode()         {}

// FragmentTable maps local keys to fragment definitions, in declaration order.
type FragmentTable []Definition

type Definition struct {
	Key  string
	Node Node
}

func (t FragmentTable) Lookup(key string) (Node, bool) {
	for _, d := range t {
		if d.Key == key {
			return d.Node, true
		}
	}
	return nil, false
}

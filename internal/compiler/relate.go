package compiler

import (
	"context"
	"strings"

	"github.com/hanpama/shapeql/internal/shape"
)

// Relation is one type's shape at a resolved variant.
type Relation struct {
	TypeName string
	Variant  shape.Variant
	// Fields is normalized and tagged with TypeName and Variant.
	Fields *shape.Object
	// Fragments holds every fragment extracted while shaping the relation.
	Fragments *FragmentSet
}

// Node returns the relation as a tagged object carrying its fragments, so it
// can be embedded in another declaration or defined as a fragment.
func (r *Relation) Node() *shape.Object {
	return &shape.Object{
		TypeName:  r.TypeName,
		Variant:   r.Variant,
		Fields:    r.Fields.Fields,
		Fragments: r.Fragments.Table(),
	}
}

// Relate shapes spec at the requested variant. Omission paths apply to the
// variant tree and, when it is merged in, to the common tree.
func (c *Compiler) Relate(ctx context.Context, spec *shape.Spec, requested shape.Variant, omit ...string) (*Relation, error) {
	if spec == nil {
		return nil, &MissingSelectionError{Requested: requested}
	}
	return c.newSession().relate(ctx, spec, requested, omit, spec.TypeName, 0)
}

func (s *session) relate(ctx context.Context, spec *shape.Spec, requested shape.Variant, omit []string, path string, depth int) (*Relation, error) {
	if err := s.checkDepth(depth, path); err != nil {
		return nil, err
	}
	key := relationKey(spec.TypeName, requested, omit)
	s.mu.Lock()
	r, ok := s.rels[key]
	s.mu.Unlock()
	if ok {
		return r, nil
	}

	v, err := s.c.ResolveVariant(spec, requested)
	if err != nil {
		return nil, err
	}
	tree, _ := spec.Tree(v)
	if tree, err = s.omit(ctx, tree, omit); err != nil {
		return nil, err
	}
	fields, err := s.normalizeRoot(ctx, tree, nil, path, depth+1)
	if err != nil {
		return nil, err
	}

	if (v == shape.Full || v == shape.List) && spec.Has(shape.Common) {
		common, _ := spec.Tree(shape.Common)
		if common, err = s.omit(ctx, common, omit); err != nil {
			return nil, err
		}
		base, err := s.normalizeRoot(ctx, common, nil, path, depth+1)
		if err != nil {
			return nil, err
		}
		fields = mergeObjects(base, fields)
	}
	fields.TypeName = spec.TypeName
	fields.Variant = v

	r = &Relation{TypeName: spec.TypeName, Variant: v, Fields: fields, Fragments: s.frags}
	s.mu.Lock()
	s.rels[key] = r
	s.mu.Unlock()
	return r, nil
}

func relationKey(typeName string, v shape.Variant, omit []string) string {
	return typeName + "@" + string(v) + "-" + strings.Join(omit, ",")
}

// mergeObjects lays over on top of base. Objects present on both sides merge
// field by field; any other collision takes the value from over. Fields keep
// base order, followed by fields only over declares.
func mergeObjects(base, over *shape.Object) *shape.Object {
	out := &shape.Object{
		TypeName: over.TypeName,
		Variant:  over.Variant,
		Fields:   make([]shape.Field, 0, len(base.Fields)+len(over.Fields)),
	}
	for _, f := range base.Fields {
		if n, ok := over.Get(f.Name); ok {
			out.Fields = append(out.Fields, shape.Field{Name: f.Name, Node: mergeNodes(f.Node, n)})
			continue
		}
		out.Fields = append(out.Fields, f)
	}
	for _, f := range over.Fields {
		if base.Index(f.Name) < 0 {
			out.Fields = append(out.Fields, f)
		}
	}
	return out
}

func mergeNodes(base, over shape.Node) shape.Node {
	bo, ok := base.(*shape.Object)
	if !ok {
		return over
	}
	oo, ok := over.(*shape.Object)
	if !ok {
		return over
	}
	return mergeObjects(bo, oo)
}

package compiler

import (
	"context"
	"fmt"

	"github.com/hanpama/shapeql/internal/shape"
	"go.uber.org/zap"
)

// scope maps local fragment keys to unique fragment names. A node without
// its own fragment table sees its ancestors' keys.
type scope struct {
	parent *scope
	names  map[string]string
}

func (sc *scope) lookup(key string) (string, bool) {
	for s := sc; s != nil; s = s.parent {
		if name, ok := s.names[key]; ok {
			return name, true
		}
	}
	return "", false
}

// Normalize resolves n and extracts every fragment definition reachable from
// it. The returned object holds no thunks, rels, fragment tables or local
// fragment references.
func (c *Compiler) Normalize(ctx context.Context, n shape.Node) (*shape.Object, *FragmentSet, error) {
	s := c.newSession()
	obj, err := s.normalizeRoot(ctx, n, nil, "", 0)
	if err != nil {
		return nil, nil, err
	}
	return obj, s.frags, nil
}

func (s *session) normalizeRoot(ctx context.Context, n shape.Node, sc *scope, path string, depth int) (*shape.Object, error) {
	r, err := s.expand(ctx, n, path, depth)
	if err != nil {
		return nil, err
	}
	obj, ok := r.(*shape.Object)
	if !ok {
		return nil, fmt.Errorf("%s: selection must be an object, got %T", path, r)
	}
	return s.normalizeObject(ctx, obj, sc, path, depth)
}

// expand resolves thunks and catalog references. A Rel becomes the tagged,
// already normalized fields of its relation; its fragments land in the
// session's set.
func (s *session) expand(ctx context.Context, n shape.Node, path string, depth int) (shape.Node, error) {
	n, err := s.resolve(ctx, n, path)
	if err != nil {
		return nil, err
	}
	rel, ok := n.(*shape.Rel)
	if !ok {
		return n, nil
	}
	spec, err := s.lookup(ctx, rel.TypeName)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	r, err := s.relate(ctx, spec, rel.Variant, rel.Omit, path, depth+1)
	if err != nil {
		return nil, err
	}
	return r.Fields, nil
}

func (s *session) normalizeObject(ctx context.Context, obj *shape.Object, sc *scope, path string, depth int) (*shape.Object, error) {
	if err := s.checkDepth(depth, path); err != nil {
		return nil, err
	}
	if len(obj.Fragments) > 0 {
		var err error
		if sc, err = s.promote(ctx, obj.Fragments, sc, path, depth); err != nil {
			return nil, err
		}
	}
	fields, err := s.normalizeFields(ctx, obj.Fields, sc, path, depth)
	if err != nil {
		return nil, err
	}
	return &shape.Object{TypeName: obj.TypeName, Variant: obj.Variant, Fields: fields}, nil
}

func (s *session) normalizeFields(ctx context.Context, fields []shape.Field, sc *scope, path string, depth int) ([]shape.Field, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	out := make([]shape.Field, 0, len(fields))
	for _, f := range fields {
		n, ok, err := s.normalizeValue(ctx, f.Node, sc, join(path, f.Name), depth+1)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, shape.Field{Name: f.Name, Node: n})
		}
	}
	return out, nil
}

// normalizeValue reports false when the value is dropped.
func (s *session) normalizeValue(ctx context.Context, n shape.Node, sc *scope, path string, depth int) (shape.Node, bool, error) {
	if err := s.checkDepth(depth, path); err != nil {
		return nil, false, err
	}
	n, err := s.expand(ctx, n, path, depth)
	if err != nil {
		return nil, false, err
	}

	switch v := n.(type) {
	case shape.Leaf:
		return v, true, nil

	case *shape.Object:
		obj, err := s.normalizeObject(ctx, v, sc, path, depth)
		if err != nil {
			return nil, false, err
		}
		return obj, true, nil

	case *shape.Union:
		u, err := s.normalizeUnion(ctx, v, sc, path, depth)
		if err != nil {
			return nil, false, err
		}
		if len(u.Branches) == 0 {
			s.log.Warn("union has no usable branch, field dropped", zap.String("path", path))
			return nil, false, nil
		}
		return u, true, nil

	case *shape.FragmentRef:
		name, ok := sc.lookup(v.Key)
		if !ok {
			s.log.Warn("unknown fragment key, field dropped",
				zap.String("path", path), zap.String("key", v.Key))
			return nil, false, nil
		}
		extra, err := s.normalizeFields(ctx, v.Extra, sc, path, depth)
		if err != nil {
			return nil, false, err
		}
		return &shape.Spread{Name: name, Extra: extra}, true, nil

	case *shape.Spread:
		extra, err := s.normalizeFields(ctx, v.Extra, sc, path, depth)
		if err != nil {
			return nil, false, err
		}
		return &shape.Spread{Name: v.Name, Extra: extra}, true, nil

	case shape.Seq:
		r, err := s.resolveDeep(ctx, v, path, depth)
		if err != nil {
			return nil, false, err
		}
		seq := r.(shape.Seq)
		switch len(seq) {
		case 0:
			s.log.Warn("empty sequence, field dropped", zap.String("path", path))
			return nil, false, nil
		case 1:
			return s.normalizeValue(ctx, seq[0], sc, path, depth+1)
		}
		out := make(shape.Seq, 0, len(seq))
		for i, el := range seq {
			n, ok, err := s.normalizeValue(ctx, el, sc, fmt.Sprintf("%s[%d]", path, i), depth+1)
			if err != nil {
				return nil, false, err
			}
			if ok {
				out = append(out, n)
			}
		}
		return out, true, nil

	case nil:
		s.log.Warn("empty value, field dropped", zap.String("path", path))
		return nil, false, nil
	}

	s.log.Warn("unexpected node, field dropped",
		zap.String("path", path), zap.String("kind", fmt.Sprintf("%T", n)))
	return nil, false, nil
}

func (s *session) normalizeUnion(ctx context.Context, u *shape.Union, sc *scope, path string, depth int) (*shape.Union, error) {
	out := &shape.Union{Branches: make([]shape.Branch, 0, len(u.Branches))}
	for _, b := range u.Branches {
		bp := path + ".on." + b.TypeName
		n, err := s.expand(ctx, b.Node, bp, depth)
		if err != nil {
			return nil, err
		}

		switch v := n.(type) {
		case *shape.FragmentRef:
			name, ok := sc.lookup(v.Key)
			if !ok {
				s.log.Warn("unknown fragment key, union branch dropped",
					zap.String("path", bp), zap.String("key", v.Key))
				continue
			}
			extra, err := s.normalizeFields(ctx, v.Extra, sc, bp, depth)
			if err != nil {
				return nil, err
			}
			out.Branches = append(out.Branches, shape.Branch{TypeName: b.TypeName, Node: &shape.Spread{Name: name, Extra: extra}})

		case *shape.Spread:
			extra, err := s.normalizeFields(ctx, v.Extra, sc, bp, depth)
			if err != nil {
				return nil, err
			}
			out.Branches = append(out.Branches, shape.Branch{TypeName: b.TypeName, Node: &shape.Spread{Name: v.Name, Extra: extra}})

		case *shape.Object:
			obj, err := s.normalizeObject(ctx, v, sc, bp, depth+1)
			if err != nil {
				return nil, err
			}
			out.Branches = append(out.Branches, shape.Branch{TypeName: b.TypeName, Node: obj})

		default:
			s.log.Warn("unexpected union branch, dropped",
				zap.String("path", bp), zap.String("kind", fmt.Sprintf("%T", n)))
		}
	}
	return out, nil
}

type pendingFragment struct {
	name string
	path string

	rel  *shape.Rel
	spec *shape.Spec
	obj  *shape.Object
}

// promote builds a child scope for table and moves every definition into the
// session's fragment set. All keys are bound before any body is built so
// sibling definitions can refer to each other. A name already claimed is
// never built again.
func (s *session) promote(ctx context.Context, table shape.FragmentTable, parent *scope, path string, depth int) (*scope, error) {
	sc := &scope{parent: parent, names: make(map[string]string, len(table))}

	pending := make([]pendingFragment, 0, len(table))
	for _, d := range table {
		dp := path + "#" + d.Key
		n, err := s.resolve(ctx, d.Node, dp)
		if err != nil {
			return nil, err
		}

		switch v := n.(type) {
		case *shape.Rel:
			spec, err := s.lookup(ctx, v.TypeName)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", dp, err)
			}
			variant, err := SelectVariant(spec, v.Variant)
			if err != nil {
				return nil, err
			}
			name := shape.FragmentName(spec.TypeName, variant)
			sc.names[d.Key] = name
			pending = append(pending, pendingFragment{name: name, path: dp, rel: v, spec: spec})

		case *shape.Object:
			if v.TypeName == "" || !v.Variant.Valid() {
				s.log.Warn("fragment definition without type or variant, skipped",
					zap.String("path", dp), zap.String("type", v.TypeName), zap.String("variant", string(v.Variant)))
				continue
			}
			name := shape.FragmentName(v.TypeName, v.Variant)
			sc.names[d.Key] = name
			pending = append(pending, pendingFragment{name: name, path: dp, obj: v})

		default:
			s.log.Warn("fragment definition is not an object, skipped",
				zap.String("path", dp), zap.String("kind", fmt.Sprintf("%T", n)))
		}
	}

	for _, p := range pending {
		if !s.frags.reserve(p.name) {
			continue
		}
		if p.rel != nil {
			r, err := s.relate(ctx, p.spec, p.rel.Variant, p.rel.Omit, p.path, depth+1)
			if err != nil {
				return nil, err
			}
			s.frags.fill(&Fragment{Name: p.name, TypeName: r.TypeName, Variant: r.Variant, Fields: r.Fields})
			continue
		}
		body, err := s.normalizeObject(ctx, p.obj, sc, p.path, depth+1)
		if err != nil {
			return nil, err
		}
		s.frags.fill(&Fragment{Name: p.name, TypeName: p.obj.TypeName, Variant: p.obj.Variant, Fields: body})
	}
	return sc, nil
}

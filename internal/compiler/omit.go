package compiler

import (
	"context"
	"strings"

	"github.com/hanpama/shapeql/internal/shape"
	"go.uber.org/zap"
)

// Omit removes the fields named by dotted paths from n. n itself is not
// modified; objects along each path are copied. Thunks are resolved only on
// the descended path. Paths that do not exist are skipped.
func (c *Compiler) Omit(ctx context.Context, n shape.Node, paths ...string) (shape.Node, error) {
	return c.newSession().omit(ctx, n, paths)
}

func (s *session) omit(ctx context.Context, n shape.Node, paths []string) (shape.Node, error) {
	var err error
	for _, p := range paths {
		if p == "" {
			continue
		}
		if n, err = s.omitPath(ctx, n, strings.Split(p, "."), p); err != nil {
			return nil, err
		}
	}
	return n, nil
}

func (s *session) omitPath(ctx context.Context, n shape.Node, segs []string, full string) (shape.Node, error) {
	r, err := s.resolve(ctx, n, full)
	if err != nil {
		return nil, err
	}
	head, rest := segs[0], segs[1:]

	switch v := r.(type) {
	case *shape.Object:
		i := v.Index(head)
		if i < 0 {
			s.omitMissed(full, head)
			return r, nil
		}
		out := v.Clone()
		if len(rest) == 0 {
			out.Delete(head)
			return out, nil
		}
		if out.Fields[i].Node, err = s.omitPath(ctx, out.Fields[i].Node, rest, full); err != nil {
			return nil, err
		}
		return out, nil

	case shape.Seq:
		out := make(shape.Seq, len(v))
		for i, el := range v {
			if out[i], err = s.omitPath(ctx, el, segs, full); err != nil {
				return nil, err
			}
		}
		return out, nil

	case *shape.Union:
		out := &shape.Union{Branches: make([]shape.Branch, 0, len(v.Branches))}
		found := false
		for _, b := range v.Branches {
			if b.TypeName != head {
				out.Branches = append(out.Branches, b)
				continue
			}
			found = true
			if len(rest) == 0 {
				continue
			}
			node, err := s.omitPath(ctx, b.Node, rest, full)
			if err != nil {
				return nil, err
			}
			out.Branches = append(out.Branches, shape.Branch{TypeName: b.TypeName, Node: node})
		}
		if !found {
			s.omitMissed(full, head)
			return r, nil
		}
		return out, nil

	case *shape.FragmentRef:
		extra, err := s.omitPath(ctx, &shape.Object{Fields: v.Extra}, segs, full)
		if err != nil {
			return nil, err
		}
		return &shape.FragmentRef{Key: v.Key, Extra: extra.(*shape.Object).Fields}, nil

	case *shape.Spread:
		extra, err := s.omitPath(ctx, &shape.Object{Fields: v.Extra}, segs, full)
		if err != nil {
			return nil, err
		}
		return &shape.Spread{Name: v.Name, Extra: extra.(*shape.Object).Fields}, nil

	case *shape.Rel:
		out := *v
		out.Omit = append(append([]string(nil), v.Omit...), strings.Join(segs, "."))
		return &out, nil
	}

	s.omitMissed(full, head)
	return r, nil
}

func (s *session) omitMissed(path, segment string) {
	s.log.Debug("omit path not found", zap.String("path", path), zap.String("segment", segment))
}

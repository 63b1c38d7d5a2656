package compiler

import (
	"context"
	"errors"
	"fmt"

	"github.com/hanpama/shapeql/internal/shape"
	"golang.org/x/sync/errgroup"
)

// Resolve forces n until it is no longer a thunk. Rel nodes are returned as
// they are.
func (c *Compiler) Resolve(ctx context.Context, n shape.Node) (shape.Node, error) {
	return c.newSession().resolve(ctx, n, "")
}

// ResolveDeep resolves every thunk reachable from n. Sequence elements are
// resolved concurrently and keep their order. Rel nodes are left in place.
func (c *Compiler) ResolveDeep(ctx context.Context, n shape.Node) (shape.Node, error) {
	return c.newSession().resolveDeep(ctx, n, "", 0)
}

func (s *session) resolve(ctx context.Context, n shape.Node, path string) (shape.Node, error) {
	for i := 0; ; i++ {
		t, ok := n.(*shape.Thunk)
		if !ok {
			return n, nil
		}
		if err := s.checkDepth(i, path); err != nil {
			return nil, err
		}
		var err error
		if n, err = s.force(ctx, t, path); err != nil {
			return nil, err
		}
	}
}

// force calls t at most once per session. Concurrent callers wait for the
// first one.
func (s *session) force(ctx context.Context, t *shape.Thunk, path string) (shape.Node, error) {
	s.mu.Lock()
	r, ok := s.thunks[t]
	if !ok {
		r = &thunkResult{done: make(chan struct{})}
		s.thunks[t] = r
		s.mu.Unlock()

		r.node, r.err = t.Call(ctx)
		if r.err != nil {
			r.err = &ThunkError{Path: path, Err: r.err}
		}
		close(r.done)
		return r.node, r.err
	}
	s.mu.Unlock()

	select {
	case <-r.done:
		return r.node, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *session) resolveDeep(ctx context.Context, n shape.Node, path string, depth int) (shape.Node, error) {
	if err := s.checkDepth(depth, path); err != nil {
		return nil, err
	}
	n, err := s.resolve(ctx, n, path)
	if err != nil {
		return nil, err
	}

	switch v := n.(type) {
	case *shape.Object:
		out := v.Clone()
		if out.Fields, err = s.resolveFields(ctx, v.Fields, path, depth); err != nil {
			return nil, err
		}
		for i, d := range out.Fragments {
			if out.Fragments[i].Node, err = s.resolveDeep(ctx, d.Node, path+"#"+d.Key, depth+1); err != nil {
				return nil, err
			}
		}
		return out, nil

	case *shape.Union:
		out := &shape.Union{Branches: make([]shape.Branch, len(v.Branches))}
		for i, b := range v.Branches {
			node, err := s.resolveDeep(ctx, b.Node, path+".on."+b.TypeName, depth+1)
			if err != nil {
				return nil, err
			}
			out.Branches[i] = shape.Branch{TypeName: b.TypeName, Node: node}
		}
		return out, nil

	case *shape.FragmentRef:
		extra, err := s.resolveFields(ctx, v.Extra, path, depth)
		if err != nil {
			return nil, err
		}
		return &shape.FragmentRef{Key: v.Key, Extra: extra}, nil

	case *shape.Spread:
		extra, err := s.resolveFields(ctx, v.Extra, path, depth)
		if err != nil {
			return nil, err
		}
		return &shape.Spread{Name: v.Name, Extra: extra}, nil

	case shape.Seq:
		out := make(shape.Seq, len(v))
		g, gctx := errgroup.WithContext(ctx)
		for i, el := range v {
			i, el := i, el
			g.Go(func() error {
				r, err := s.resolveDeep(gctx, el, fmt.Sprintf("%s[%d]", path, i), depth+1)
				if err != nil {
					return err
				}
				out[i] = r
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return out, nil
	}
	return n, nil
}

func (s *session) resolveFields(ctx context.Context, fields []shape.Field, path string, depth int) ([]shape.Field, error) {
	if fields == nil {
		return nil, nil
	}
	out := make([]shape.Field, len(fields))
	for i, f := range fields {
		node, err := s.resolveDeep(ctx, f.Node, join(path, f.Name), depth+1)
		if err != nil {
			return nil, err
		}
		out[i] = shape.Field{Name: f.Name, Node: node}
	}
	return out, nil
}

// IsThunkError reports whether err came from a failing lazy reference.
func IsThunkError(err error) bool {
	var te *ThunkError
	return errors.As(err, &te)
}

package compiler

import (
	"fmt"
	"strings"

	"github.com/hanpama/shapeql/internal/shape"
	"go.uber.org/zap"
)

// renderer writes selection text. Spreads of fragments in dropped are left
// out; their extra fields are still written.
type renderer struct {
	c       *Compiler
	dropped map[string]bool
}

// Render writes the fields of a normalized object as selection text, one
// field per line, indented level steps. Values that cannot be rendered
// (sequences, unresolved nodes, empty objects) are logged and skipped.
func (c *Compiler) Render(obj *shape.Object, level int) (string, error) {
	return (&renderer{c: c}).render(obj, level)
}

func (r *renderer) render(obj *shape.Object, level int) (string, error) {
	if obj == nil {
		return "", nil
	}
	var b strings.Builder
	if err := r.writeFields(&b, obj.Fields, level, obj.TypeName); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (c *Compiler) indent(level int) string {
	return strings.Repeat(c.opt.Indent, level)
}

func (r *renderer) writeFields(b *strings.Builder, fields []shape.Field, level int, path string) error {
	c := r.c
	if level > c.opt.MaxDepth {
		return &CycleDepthError{Path: path, Depth: level}
	}
	ind := c.indent(level)
	for _, f := range fields {
		fp := join(path, f.Name)
		switch v := f.Node.(type) {
		case shape.Leaf:
			b.WriteString(ind)
			b.WriteString(f.Name)
			b.WriteString("\n")

		case *shape.Object:
			if len(v.Fields) == 0 {
				c.opt.Logger.Warn("empty selection skipped", zap.String("path", fp))
				continue
			}
			err := r.writeBlock(b, ind, f.Name, fp, "empty selection skipped", func(inner *strings.Builder) error {
				return r.writeFields(inner, v.Fields, level+1, fp)
			})
			if err != nil {
				return err
			}

		case *shape.Spread:
			err := r.writeBlock(b, ind, f.Name, fp, "empty selection skipped", func(inner *strings.Builder) error {
				return r.writeSpread(inner, v, level+1, fp)
			})
			if err != nil {
				return err
			}

		case *shape.Union:
			if len(v.Branches) == 0 {
				c.opt.Logger.Warn("empty union skipped", zap.String("path", fp))
				continue
			}
			err := r.writeBlock(b, ind, f.Name, fp, "empty union skipped", func(inner *strings.Builder) error {
				return r.writeUnion(inner, v, level+1, fp)
			})
			if err != nil {
				return err
			}

		case shape.Seq:
			c.opt.Logger.Error("sequence reached the emitter, field skipped", zap.String("path", fp))

		default:
			c.opt.Logger.Error("unrenderable node, field skipped",
				zap.String("path", fp), zap.String("kind", fmt.Sprintf("%T", f.Node)))
		}
	}
	return nil
}

func (r *renderer) writeSpread(b *strings.Builder, sp *shape.Spread, level int, path string) error {
	if level > r.c.opt.MaxDepth {
		return &CycleDepthError{Path: path, Depth: level}
	}
	if !r.dropped[sp.Name] {
		b.WriteString(r.c.indent(level))
		b.WriteString("...")
		b.WriteString(sp.Name)
		b.WriteString("\n")
	}
	return r.writeFields(b, sp.Extra, level, path)
}

func (r *renderer) writeUnion(b *strings.Builder, u *shape.Union, level int, path string) error {
	ind := r.c.indent(level)
	for _, br := range u.Branches {
		bp := path + ".on." + br.TypeName
		head := "... on " + br.TypeName
		var err error
		switch v := br.Node.(type) {
		case *shape.Spread:
			err = r.writeBlock(b, ind, head, bp, "empty union branch skipped", func(inner *strings.Builder) error {
				return r.writeSpread(inner, v, level+1, bp)
			})
		case *shape.Object:
			err = r.writeBlock(b, ind, head, bp, "empty union branch skipped", func(inner *strings.Builder) error {
				return r.writeFields(inner, v.Fields, level+1, bp)
			})
		default:
			r.c.opt.Logger.Error("unrenderable union branch skipped",
				zap.String("path", bp), zap.String("kind", fmt.Sprintf("%T", br.Node)))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// writeBlock writes head { ... } around what body produces. Nothing is
// written when body produces no text.
func (r *renderer) writeBlock(b *strings.Builder, ind, head, path, emptyMsg string, body func(*strings.Builder) error) error {
	var inner strings.Builder
	if err := body(&inner); err != nil {
		return err
	}
	if inner.Len() == 0 {
		r.c.opt.Logger.Warn(emptyMsg, zap.String("path", path))
		return nil
	}
	b.WriteString(ind)
	b.WriteString(head)
	b.WriteString(" {\n")
	b.WriteString(inner.String())
	b.WriteString(ind)
	b.WriteString("}\n")
	return nil
}

// RenderFragment renders f as a fragment definition. It returns an empty
// string when f selects nothing.
func (c *Compiler) RenderFragment(f *Fragment) (string, error) {
	return (&renderer{c: c}).fragment(f)
}

func (r *renderer) fragment(f *Fragment) (string, error) {
	body, err := r.render(f.Fields, 1)
	if err != nil || body == "" {
		return "", err
	}
	return "fragment " + f.Name + " on " + f.TypeName + " {\n" + body + "}", nil
}

// renderFragments renders every fragment of all. A fragment whose body is
// empty is dropped together with every spread of it, which can empty other
// fragments in turn; rendering repeats until no more fragments drop.
func (c *Compiler) renderFragments(all []*Fragment) ([]RenderedFragment, map[string]bool, error) {
	r := &renderer{c: c, dropped: make(map[string]bool)}
	for {
		out := make([]RenderedFragment, 0, len(all))
		changed := false
		for _, f := range all {
			if r.dropped[f.Name] {
				continue
			}
			src, err := r.fragment(f)
			if err != nil {
				return nil, nil, err
			}
			if src == "" {
				c.opt.Logger.Warn("empty fragment dropped", zap.String("fragment", f.Name))
				r.dropped[f.Name] = true
				changed = true
				continue
			}
			out = append(out, RenderedFragment{Name: f.Name, Source: src})
		}
		if !changed {
			return out, r.dropped, nil
		}
	}
}

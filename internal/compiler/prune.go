package compiler

import (
	"sort"
	"strings"

	"github.com/hanpama/shapeql/internal/language"
	"go.uber.org/zap"
)

// RenderedFragment is a fragment definition in its final text form.
type RenderedFragment struct {
	Name   string
	Source string
}

// PruneUnused keeps the fragments spread in body, directly or through other
// kept fragments. The result is sorted by name.
func (c *Compiler) PruneUnused(fragments []RenderedFragment, body string) []RenderedFragment {
	byName := make(map[string]RenderedFragment, len(fragments))
	for _, f := range fragments {
		byName[f.Name] = f
	}

	needed := make(map[string]bool, len(fragments))
	queue := c.spreads(body)
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if needed[name] {
			continue
		}
		f, ok := byName[name]
		if !ok {
			continue
		}
		needed[name] = true
		queue = append(queue, c.spreads(f.Source)...)
	}

	out := make([]RenderedFragment, 0, len(needed))
	for _, f := range fragments {
		if needed[f.Name] {
			out = append(out, f)
			delete(needed, f.Name)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (c *Compiler) spreads(text string) []string {
	names, err := language.FragmentSpreads(text)
	if err == nil {
		return names
	}
	c.opt.Logger.Warn("selection text did not parse, scanning spreads literally", zap.Error(err))
	return scanSpreads(text)
}

// scanSpreads finds "...Name" tokens without parsing. Inline fragments
// ("... on T") are not spreads.
func scanSpreads(text string) []string {
	var names []string
	for {
		i := strings.Index(text, "...")
		if i < 0 {
			return names
		}
		text = text[i+3:]
		n := 0
		for n < len(text) && isNameByte(text[n], n == 0) {
			n++
		}
		if n > 0 && text[:n] != "on" {
			names = append(names, text[:n])
		}
		text = text[n:]
	}
}

func isNameByte(b byte, first bool) bool {
	switch {
	case b == '_', b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z':
		return true
	case b >= '0' && b <= '9':
		return !first
	}
	return false
}

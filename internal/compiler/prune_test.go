package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestPruneUnusedFollowsTransitiveSpreads(t *testing.T) {
	frags := []RenderedFragment{
		{Name: "Tag_common", Source: "fragment Tag_common on Tag {\n  id\n}"},
		{Name: "Note_full", Source: "fragment Note_full on Note {\n  tags {\n    ...Tag_common\n  }\n}"},
		{Name: "User_nav", Source: "fragment User_nav on User {\n  id\n}"},
	}
	body := "query note {\n  note {\n    ...Note_full\n  }\n}\n"

	kept := New(nil).PruneUnused(frags, body)
	assert.Equal(t, []RenderedFragment{frags[1], frags[0]}, kept)
}

func TestPruneUnusedFallsBackToLiteralScan(t *testing.T) {
	c, logs := newObserved(t, nil, zap.WarnLevel)
	frags := []RenderedFragment{
		{Name: "A", Source: "fragment A on T {\n  id\n}"},
		{Name: "B", Source: "fragment B on T {\n  id\n}"},
	}
	// a bare selection body is not a document
	kept := c.PruneUnused(frags, "  x {\n    ...A\n  }\n  y {\n    ... on T {\n      id\n    }\n  }\n")
	assert.Equal(t, []RenderedFragment{frags[0]}, kept)
	assert.Equal(t, 1, logs.FilterMessage("selection text did not parse, scanning spreads literally").Len())
}

func TestScanSpreads(t *testing.T) {
	assert.Equal(t, []string{"A", "B_2"}, scanSpreads("...A ... on T { ...B_2 } ... ...1x"))
	assert.Empty(t, scanSpreads("no spreads here"))
}

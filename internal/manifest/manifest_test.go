package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/shapeql/internal/compiler"
	"github.com/hanpama/shapeql/internal/shape"
)

const sample = `
operations:
  - name: note
    type: Note
    input: FindByIdInput
    omit: [tags.label]
  - name: notes
    type: Note
    paginate: true
    edges: [cursor, score, node]
  - name: createNote
    kind: mutation
    type: Note
    variant: common
    input: CreateNoteInput!
  - name: ping
`

func TestParse(t *testing.T) {
	m, err := Parse([]byte(sample))
	require.NoError(t, err)
	require.Len(t, m.Operations, 4)

	note := m.Operations[0]
	assert.Equal(t, "Note", note.Type)
	assert.Equal(t, []string{"tags.label"}, note.Omit)

	op := note.Compile(shape.NewSpec("Note"))
	assert.Equal(t, compiler.KindQuery, op.Kind)
	assert.Equal(t, "FindByIdInput", op.InputType)

	create := m.Operations[2].Compile(nil)
	assert.Equal(t, compiler.KindMutation, create.Kind)
	assert.Equal(t, shape.Common, create.Variant)

	assert.True(t, m.Operations[1].Paginate)
	assert.Len(t, m.Operations[1].PageOptions(), 1)
	assert.Empty(t, m.Operations[0].PageOptions())
	assert.Equal(t, []shape.Field{
		shape.F("cursor", shape.True),
		shape.F("score", shape.True),
		shape.F("node", shape.Ref("Note", shape.List)),
	}, m.Operations[1].edgeFields())
}

func TestValidateCollectsEveryError(t *testing.T) {
	_, err := Parse([]byte(`
operations:
  - name: a
    kind: subscription
  - name: b
    type: Note
    variant: summary
  - name: a
  - type: Note
  - name: c
    omit: [x]
  - name: d
    type: Note
    edges: [cursor]
  - name: e
    type: Note
    paginate: true
    edges: [cursor]
`))
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, `unknown operation kind "subscription"`)
	assert.Contains(t, msg, "operations[1]")
	assert.Contains(t, msg, `name "a" already used by operations[0]`)
	assert.Contains(t, msg, "operations[3]: name is required")
	assert.Contains(t, msg, "variant, omit and paginate need a type")
	assert.Contains(t, msg, "edges and pageInfo need paginate")
	assert.Contains(t, msg, "e: edges must select node")
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("operations:\n  - name: a\n    variants: full\n"))
	require.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "operations.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, m.Path)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

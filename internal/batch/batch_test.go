package batch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hanpama/shapeql/internal/catalog"
	"github.com/hanpama/shapeql/internal/compiler"
	eventbus "github.com/hanpama/shapeql/internal/eventbus"
	events "github.com/hanpama/shapeql/internal/events"
	"github.com/hanpama/shapeql/internal/manifest"
)

var declarations = map[string]string{
	"Tag.yaml": `
common:
  id: true
  label: true
`,
	"Note.yaml": `
common:
  id: true
list:
  title: true
full:
  __define:
    tag: {__rel: Tag, __variant: common}
  tags: {__fragment: tag}
`,
}

const operations = `
operations:
  - name: note
    type: Note
    input: FindByIdInput
  - name: notes
    type: Note
    paginate: true
  - name: broken
    type: Missing
  - name: ping
`

func setup(t *testing.T) (catalog.Catalog, *manifest.Manifest) {
	t.Helper()
	dir := t.TempDir()
	for name, src := range declarations {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644))
	}
	cat, err := catalog.NewFileSystem(dir)
	require.NoError(t, err)
	m, err := manifest.Parse([]byte(operations))
	require.NoError(t, err)
	m.Path = "operations.yaml"
	return cat, m
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestRunWritesDocumentsAndIsolatesFailures(t *testing.T) {
	cat, m := setup(t)
	out := t.TempDir()
	core, logs := observer.New(zap.InfoLevel)

	rep, err := Run(context.Background(), compiler.New(cat), cat, m, out,
		WithLogger(zap.New(core)), WithConcurrency(2), WithCheck())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
	assert.ErrorIs(t, err, catalog.ErrTypeNotFound)
	require.NotNil(t, rep)
	assert.Equal(t, 3, rep.Succeeded)
	assert.Equal(t, 1, rep.Failed)
	assert.Equal(t, []string{
		"note.graphql",
		"notes.graphql",
		"ping.graphql",
		filepath.Join("fragments", "Tag_common.graphql"),
	}, rep.Written)

	assert.Equal(t, `fragment Tag_common on Tag {
  id
  label
}
query note($input: FindByIdInput!) {
  note(input: $input) {
    id
    tags {
      ...Tag_common
    }
  }
}
`, readFile(t, filepath.Join(out, "note.graphql")))

	assert.Equal(t, `query notes {
  notes {
    edges {
      cursor
      node {
        id
        title
      }
    }
    pageInfo {
      endCursor
      hasNextPage
    }
  }
}
`, readFile(t, filepath.Join(out, "notes.graphql")))

	assert.Equal(t, "query ping {\n  ping\n}\n", readFile(t, filepath.Join(out, "ping.graphql")))
	assert.Equal(t, "fragment Tag_common on Tag {\n  id\n  label\n}\n",
		readFile(t, filepath.Join(out, "fragments", "Tag_common.graphql")))

	_, statErr := os.Stat(filepath.Join(out, "broken.graphql"))
	assert.True(t, os.IsNotExist(statErr))

	failed := logs.FilterMessage("compile failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, "broken", failed[0].ContextMap()["operation"])
	assert.NotEmpty(t, failed[0].ContextMap()["compile_id"])
	assert.NotEmpty(t, failed[0].ContextMap()["batch_id"])
	assert.Equal(t, 1, logs.FilterMessage("batch finished").Len())
}

func TestRunPublishesBatchEvents(t *testing.T) {
	cat, m := setup(t)
	m.Operations = m.Operations[:1]

	bus := eventbus.New()
	eventbus.Use(bus)
	defer eventbus.Use(nil)

	var started []events.BatchStart
	var finished []events.BatchFinish
	var compiles int
	eventbus.On(bus, func(_ context.Context, e events.BatchStart) { started = append(started, e) })
	eventbus.On(bus, func(_ context.Context, e events.BatchFinish) { finished = append(finished, e) })
	eventbus.On(bus, func(context.Context, events.CompileFinish) { compiles++ })

	_, err := Run(context.Background(), compiler.New(cat), cat, m, t.TempDir())
	require.NoError(t, err)

	require.Len(t, started, 1)
	assert.Equal(t, events.BatchStart{Manifest: "operations.yaml", Operations: 1}, started[0])
	require.Len(t, finished, 1)
	assert.Equal(t, 1, finished[0].Succeeded)
	assert.Equal(t, 0, finished[0].Failed)
	assert.Equal(t, 1, compiles)
}

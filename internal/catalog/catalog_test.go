package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/shapeql/internal/shape"
)

const noteYAML = `
type: Note
common:
  id: true
  draft: false
full:
  __define:
    tag: {__rel: Tag, __variant: common}
    author:
      __type: User
      __variant: nav
      id: true
      name: true
  tags: {__fragment: tag, count: true}
  author: {__fragment: author}
  subject:
    __union:
      User: author
      Bot:
        handle: true
  history:
    - at: true
  related: {__rel: Note, __variant: list, __omit: [history, tags.count]}
`

func TestDecode(t *testing.T) {
	spec, err := Decode("Note", []byte(noteYAML))
	require.NoError(t, err)
	assert.Equal(t, "Note", spec.TypeName)

	want := shape.NewSpec("Note").
		With(shape.Common, shape.Obj(shape.Leaves("id")...)).
		With(shape.Full, shape.Obj(
			shape.F("tags", shape.Use("tag", shape.Leaves("count")...)),
			shape.F("author", shape.Use("author")),
			shape.F("subject", shape.On(
				shape.Case("User", shape.Use("author")),
				shape.Case("Bot", shape.Obj(shape.Leaves("handle")...)),
			)),
			shape.F("history", shape.Seq{shape.Obj(shape.Leaves("at")...)}),
			shape.F("related", shape.Ref("Note", shape.List, "history", "tags.count")),
		).
			Define("tag", shape.Ref("Tag", shape.Common)).
			Define("author", shape.Tagged("User", shape.Nav, shape.Leaves("id", "name")...)))

	if diff := cmp.Diff(want, spec); diff != "" {
		t.Fatalf("decoded spec mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeRelDefaultsToFull(t *testing.T) {
	spec, err := Decode("Note", []byte("full:\n  tag: {__rel: Tag}\n"))
	require.NoError(t, err)
	tree, _ := spec.Tree(shape.Full)
	n, _ := tree.(*shape.Object).Get("tag")
	assert.Equal(t, &shape.Rel{TypeName: "Tag", Variant: shape.Full}, n)
}

func TestDecodeSelectsTypename(t *testing.T) {
	spec, err := Decode("Note", []byte("full:\n  __typename: true\n  subject:\n    __union:\n      Bot: {__typename: true, handle: true}\n  tags: {__fragment: tag, __typename: true}\n"))
	require.NoError(t, err)
	tree, _ := spec.Tree(shape.Full)
	assert.Equal(t, shape.Obj(
		shape.F("__typename", shape.True),
		shape.F("subject", shape.On(
			shape.Case("Bot", shape.Obj(shape.Leaves("__typename", "handle")...)),
		)),
		shape.F("tags", shape.Use("tag", shape.Leaves("__typename")...)),
	), tree)
}

func TestDecodeErrors(t *testing.T) {
	for name, src := range map[string]string{
		"not a mapping":     "- a\n- b\n",
		"unknown variant":   "summary:\n  id: true\n",
		"variant is a leaf": "full: true\n",
		"type mismatch":     "type: Tag\nfull:\n  id: true\n",
		"unknown control":   "full:\n  __alias: x\n",
		"union siblings":    "full:\n  s:\n    __union: {A: a}\n    id: true\n",
		"bad rel key":       "full:\n  t: {__rel: Tag, id: true}\n",
		"bad variant tag":   "full:\n  t: {__rel: Tag, __variant: summary}\n",
		"bad value":         "full:\n  id: 3\n",
		"invalid yaml":      "full: [\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Decode("Note", []byte(src))
			require.Error(t, err)
		})
	}

	_, err := Decode("", []byte("full:\n  id: true\n"))
	require.Error(t, err)
}

func TestMap(t *testing.T) {
	m := NewMap(shape.NewSpec("Tag"), shape.NewSpec("Note"))
	names, err := m.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Note", "Tag"}, names)

	_, err = m.Lookup(context.Background(), "User")
	require.True(t, errors.Is(err, ErrTypeNotFound))
}

func TestFileSystem(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Note.yaml"), []byte(noteYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "Tag.yml"), []byte("common:\n  id: true\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# catalog\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Broken.yaml"), []byte("full: true\n"), 0o644))

	fsc, err := NewFileSystem(dir)
	require.NoError(t, err)

	names, err := fsc.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Broken", "Note", "Tag"}, names)

	tag, err := fsc.Lookup(context.Background(), "Tag")
	require.NoError(t, err)
	assert.True(t, tag.Has(shape.Common))

	again, err := fsc.Lookup(context.Background(), "Tag")
	require.NoError(t, err)
	assert.Same(t, tag, again)

	_, err = fsc.Lookup(context.Background(), "User")
	assert.True(t, errors.Is(err, ErrTypeNotFound))

	_, err = fsc.Lookup(context.Background(), "Broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Broken.yaml")
}

func TestFileSystemDuplicateType(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Tag.yaml"), []byte("common:\n  id: true\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Tag.yml"), []byte("common:\n  id: true\n"), 0o644))

	_, err := NewFileSystem(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "declared twice")
}

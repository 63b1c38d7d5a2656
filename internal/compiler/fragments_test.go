package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hanpama/shapeql/internal/shape"
)

func frag(typeName string, v shape.Variant, fields ...string) *Fragment {
	return &Fragment{
		Name:     shape.FragmentName(typeName, v),
		TypeName: typeName,
		Variant:  v,
		Fields:   shape.Obj(shape.Leaves(fields...)...),
	}
}

func TestFragmentSet(t *testing.T) {
	s := NewFragmentSet()
	assert.True(t, s.Add(frag("User", shape.Nav, "id")))
	assert.False(t, s.Add(frag("User", shape.Nav, "id", "name")))
	assert.True(t, s.Add(frag("Tag", shape.Common, "id")))

	f, ok := s.Get("User_nav")
	assert.True(t, ok)
	assert.Equal(t, shape.Leaves("id"), f.Fields.Fields)

	assert.Equal(t, []string{"Tag_common", "User_nav"}, s.Names())
	assert.Equal(t, "User_nav", s.All()[0].Name)

	// a reserved name without a body is not reported
	assert.True(t, s.reserve("Note_full"))
	assert.Equal(t, 2, s.Len())
	_, ok = s.Get("Note_full")
	assert.False(t, ok)

	assert.False(t, s.Add(frag("Tag", shape.Common, "label")))
	assert.True(t, s.Add(frag("Note", shape.List, "id")))
	assert.Equal(t, []string{"Note_list", "Tag_common", "User_nav"}, s.Names())
	tag, _ := s.Get("Tag_common")
	assert.Equal(t, shape.Leaves("id"), tag.Fields.Fields)

	table := s.Table()
	assert.Len(t, table, 3)
	n, ok := table.Lookup("Note_list")
	assert.True(t, ok)
	assert.Equal(t, shape.Tagged("Note", shape.List, shape.Leaves("id")...), n)

	var empty *FragmentSet
	assert.Nil(t, empty.All())
	assert.Nil(t, NewFragmentSet().Table())
}

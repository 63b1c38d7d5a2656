package compiler

import (
	"sort"

	"github.com/hanpama/shapeql/internal/shape"
)

// Fragment is a promoted fragment definition with normalized fields.
type Fragment struct {
	Name     string
	TypeName string
	Variant  shape.Variant
	Fields   *shape.Object
}

// Object returns the fragment as a tagged object, ready to be defined again
// in another fragment table.
func (f *Fragment) Object() *shape.Object {
	return &shape.Object{TypeName: f.TypeName, Variant: f.Variant, Fields: f.Fields.Fields}
}

// FragmentSet collects fragments by unique name. The first fragment added
// under a name is kept.
type FragmentSet struct {
	order  []string
	byName map[string]*Fragment
}

func NewFragmentSet() *FragmentSet {
	return &FragmentSet{byName: make(map[string]*Fragment)}
}

// reserve claims name before its body is built. It reports false when the
// name is already claimed.
func (s *FragmentSet) reserve(name string) bool {
	if _, ok := s.byName[name]; ok {
		return false
	}
	s.byName[name] = nil
	s.order = append(s.order, name)
	return true
}

func (s *FragmentSet) fill(f *Fragment) {
	s.byName[f.Name] = f
}

// Add inserts f unless its name is already present.
func (s *FragmentSet) Add(f *Fragment) bool {
	if !s.reserve(f.Name) {
		return false
	}
	s.fill(f)
	return true
}

func (s *FragmentSet) Get(name string) (*Fragment, bool) {
	if s == nil {
		return nil, false
	}
	f := s.byName[name]
	return f, f != nil
}

// All returns the built fragments in the order their names were first seen.
func (s *FragmentSet) All() []*Fragment {
	if s == nil {
		return nil
	}
	out := make([]*Fragment, 0, len(s.order))
	for _, name := range s.order {
		if f := s.byName[name]; f != nil {
			out = append(out, f)
		}
	}
	return out
}

// Names returns the built fragment names sorted.
func (s *FragmentSet) Names() []string {
	all := s.All()
	names := make([]string, len(all))
	for i, f := range all {
		names[i] = f.Name
	}
	sort.Strings(names)
	return names
}

func (s *FragmentSet) Len() int {
	return len(s.All())
}

// Table converts the set into a fragment table keyed by unique name.
func (s *FragmentSet) Table() shape.FragmentTable {
	all := s.All()
	if len(all) == 0 {
		return nil
	}
	t := make(shape.FragmentTable, len(all))
	for i, f := range all {
		t[i] = shape.Definition{Key: f.Name, Node: f.Object()}
	}
	return t
}

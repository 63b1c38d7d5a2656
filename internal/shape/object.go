package shape

// Obj builds an untagged object from fields.
func Obj(fields ...Field) *Object {
	return &Object{Fields: fields}
}

// F is shorthand for a Field.
func F(name string, n Node) Field {
	return Field{Name: name, Node: n}
}

// Leaves returns leaf fields for names.
func Leaves(names ...string) []Field {
	out := make([]Field, len(names))
	for i, name := range names {
		out[i] = Field{Name: name, Node: True}
	}
	return out
}

// Tagged builds an object tagged with its type and variant, usable as a
// fragment definition.
func Tagged(typeName string, v Variant, fields ...Field) *Object {
	return &Object{TypeName: typeName, Variant: v, Fields: fields}
}

// Define appends a fragment definition and returns o for chaining.
func (o *Object) Define(key string, n Node) *Object {
	o.Fragments = append(o.Fragments, Definition{Key: key, Node: n})
	return o
}

func (o *Object) Get(name string) (Node, bool) {
	if o == nil {
		return nil, false
	}
	for _, f := range o.Fields {
		if f.Name == name {
			return f.Node, true
		}
	}
	return nil, false
}

func (o *Object) Index(name string) int {
	for i, f := range o.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Set replaces the field name in place or appends it.
func (o *Object) Set(name string, n Node) {
	if i := o.Index(name); i >= 0 {
		o.Fields[i].Node = n
		return
	}
	o.Fields = append(o.Fields, Field{Name: name, Node: n})
}

// Delete removes the field name and reports whether it existed.
func (o *Object) Delete(name string) bool {
	i := o.Index(name)
	if i < 0 {
		return false
	}
	o.Fields = append(o.Fields[:i:i], o.Fields[i+1:]...)
	return true
}

// Clone copies the object header and its field and fragment slices. Child
// nodes are shared.
func (o *Object) Clone() *Object {
	if o == nil {
		return nil
	}
	c := *o
	c.Fields = append([]Field(nil), o.Fields...)
	c.Fragments = append(FragmentTable(nil), o.Fragments...)
	return &c
}

func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.Fields)
}

// On builds a union from branches.
func On(branches ...Branch) *Union {
	return &Union{Branches: branches}
}

// Case is a union branch for typeName.
func Case(typeName string, n Node) Branch {
	return Branch{TypeName: typeName, Node: n}
}

// Use references the local fragment key.
func Use(key string, extra ...Field) *FragmentRef {
	return &FragmentRef{Key: key, Extra: extra}
}

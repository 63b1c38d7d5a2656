package catalog

import (
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/hanpama/shapeql/internal/shape"
)

// Control keys recognized inside YAML declarations.
const (
	keyType     = "type"
	keyDefine   = "__define"
	keyTypeTag  = "__type"
	keyVariant  = "__variant"
	keyRel      = "__rel"
	keyOmit     = "__omit"
	keyFragment = "__fragment"
	keyUnion    = "__union"
)

// typenameField is the GraphQL meta field. It is selected like any other
// field despite its prefix.
const typenameField = "__typename"

func isControlKey(key string) bool {
	return strings.HasPrefix(key, "__") && key != typenameField
}

// Decode parses one YAML declaration file into a Spec. typeName is used when
// the document carries no explicit type key, and must match it otherwise.
func Decode(typeName string, data []byte) (*shape.Spec, error) {
	var doc any
	if err := yaml.UnmarshalWithOptions(data, &doc, yaml.UseOrderedMap()); err != nil {
		return nil, fmt.Errorf("parse %s: %w", typeName, err)
	}
	root, ok := doc.(yaml.MapSlice)
	if !ok {
		return nil, fmt.Errorf("%s: top level must be a mapping", typeName)
	}

	spec := shape.NewSpec(typeName)
	for _, item := range root {
		key := fmt.Sprint(item.Key)
		if key == keyType {
			declared, ok := item.Value.(string)
			if !ok || declared == "" {
				return nil, fmt.Errorf("%s: %q must be a non-empty string", typeName, keyType)
			}
			if typeName != "" && declared != typeName {
				return nil, fmt.Errorf("%s: declares type %q", typeName, declared)
			}
			spec.TypeName = declared
			continue
		}
		v, err := shape.ParseVariant(key)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", typeName, err)
		}
		n, err := decodeNode(item.Value, key)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", typeName, err)
		}
		if _, ok := n.(*shape.Object); !ok {
			return nil, fmt.Errorf("%s: variant %s must be a mapping", typeName, key)
		}
		spec.With(v, n)
	}
	if spec.TypeName == "" {
		return nil, fmt.Errorf("missing %q key", keyType)
	}
	return spec, nil
}

func decodeNode(v any, path string) (shape.Node, error) {
	switch v := v.(type) {
	case bool:
		if !v {
			return nil, nil
		}
		return shape.True, nil
	case yaml.MapSlice:
		return decodeMapping(v, path)
	case []any:
		seq := make(shape.Seq, 0, len(v))
		for i, el := range v {
			n, err := decodeNode(el, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			if n != nil {
				seq = append(seq, n)
			}
		}
		return seq, nil
	default:
		return nil, fmt.Errorf("%s: unsupported value %v (%T)", path, v, v)
	}
}

func decodeMapping(m yaml.MapSlice, path string) (shape.Node, error) {
	switch {
	case has(m, keyRel):
		return decodeRel(m, path)
	case has(m, keyUnion):
		if len(m) != 1 {
			return nil, fmt.Errorf("%s: %s cannot have sibling keys", path, keyUnion)
		}
		return decodeUnion(m[0].Value, path)
	case has(m, keyFragment):
		return decodeFragmentRef(m, path)
	}

	obj := &shape.Object{}
	for _, item := range m {
		key := fmt.Sprint(item.Key)
		sub := path + "." + key
		switch key {
		case keyTypeTag:
			s, ok := item.Value.(string)
			if !ok {
				return nil, fmt.Errorf("%s: must be a string", sub)
			}
			obj.TypeName = s
		case keyVariant:
			s, _ := item.Value.(string)
			v, err := shape.ParseVariant(s)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", sub, err)
			}
			obj.Variant = v
		case keyDefine:
			defs, ok := item.Value.(yaml.MapSlice)
			if !ok {
				return nil, fmt.Errorf("%s: must be a mapping", sub)
			}
			for _, d := range defs {
				dk := fmt.Sprint(d.Key)
				n, err := decodeNode(d.Value, sub+"."+dk)
				if err != nil {
					return nil, err
				}
				if n == nil {
					continue
				}
				obj.Define(dk, n)
			}
		default:
			if isControlKey(key) {
				return nil, fmt.Errorf("%s: unknown control key", sub)
			}
			n, err := decodeNode(item.Value, sub)
			if err != nil {
				return nil, err
			}
			if n == nil {
				continue
			}
			obj.Fields = append(obj.Fields, shape.Field{Name: key, Node: n})
		}
	}
	return obj, nil
}

func decodeRel(m yaml.MapSlice, path string) (shape.Node, error) {
	rel := &shape.Rel{Variant: shape.Full}
	for _, item := range m {
		key := fmt.Sprint(item.Key)
		switch key {
		case keyRel:
			s, ok := item.Value.(string)
			if !ok || s == "" {
				return nil, fmt.Errorf("%s.%s: must be a type name", path, key)
			}
			rel.TypeName = s
		case keyVariant:
			s, _ := item.Value.(string)
			v, err := shape.ParseVariant(s)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", path, key, err)
			}
			rel.Variant = v
		case keyOmit:
			paths, err := stringList(item.Value)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", path, key, err)
			}
			rel.Omit = paths
		default:
			return nil, fmt.Errorf("%s: unexpected key %q next to %s", path, key, keyRel)
		}
	}
	return rel, nil
}

func decodeFragmentRef(m yaml.MapSlice, path string) (shape.Node, error) {
	ref := &shape.FragmentRef{}
	for _, item := range m {
		key := fmt.Sprint(item.Key)
		if key == keyFragment {
			s, ok := item.Value.(string)
			if !ok || s == "" {
				return nil, fmt.Errorf("%s.%s: must be a fragment key", path, key)
			}
			ref.Key = s
			continue
		}
		if isControlKey(key) {
			return nil, fmt.Errorf("%s.%s: unknown control key", path, key)
		}
		n, err := decodeNode(item.Value, path+"."+key)
		if err != nil {
			return nil, err
		}
		if n != nil {
			ref.Extra = append(ref.Extra, shape.Field{Name: key, Node: n})
		}
	}
	return ref, nil
}

func decodeUnion(v any, path string) (shape.Node, error) {
	branches, ok := v.(yaml.MapSlice)
	if !ok {
		return nil, fmt.Errorf("%s.%s: must be a mapping of type names", path, keyUnion)
	}
	u := &shape.Union{}
	for _, item := range branches {
		typeName := fmt.Sprint(item.Key)
		sub := path + ".on." + typeName
		var n shape.Node
		switch bv := item.Value.(type) {
		case string:
			n = shape.Use(bv)
		default:
			var err error
			n, err = decodeNode(bv, sub)
			if err != nil {
				return nil, err
			}
		}
		if n == nil {
			continue
		}
		u.Branches = append(u.Branches, shape.Branch{TypeName: typeName, Node: n})
	}
	return u, nil
}

func has(m yaml.MapSlice, key string) bool {
	for _, item := range m {
		if fmt.Sprint(item.Key) == key {
			return true
		}
	}
	return false
}

func stringList(v any) ([]string, error) {
	switch v := v.(type) {
	case string:
		return []string{v}, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, el := range v {
			s, ok := el.(string)
			if !ok {
				return nil, fmt.Errorf("expected string, got %T", el)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected string list, got %T", v)
}

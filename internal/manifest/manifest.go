package manifest

import (
	"fmt"
	"os"
	"regexp"
	"slices"

	"github.com/goccy/go-yaml"
	"github.com/hashicorp/go-multierror"

	"github.com/hanpama/shapeql/internal/compiler"
	"github.com/hanpama/shapeql/internal/shape"
)

// Manifest lists the operations a batch run compiles.
type Manifest struct {
	Path       string      `yaml:"-"`
	Operations []Operation `yaml:"operations"`
}

// Operation is one manifest entry. Type may be empty for operations returning
// a scalar.
type Operation struct {
	Name     string   `yaml:"name"`
	Kind     string   `yaml:"kind,omitempty"`
	Type     string   `yaml:"type,omitempty"`
	Variant  string   `yaml:"variant,omitempty"`
	Input    string   `yaml:"input,omitempty"`
	Omit     []string `yaml:"omit,omitempty"`
	Paginate bool     `yaml:"paginate,omitempty"`
	Edges    []string `yaml:"edges,omitempty"`
	PageInfo []string `yaml:"pageInfo,omitempty"`
}

var nameRe = regexp.MustCompile(`^[_A-Za-z][_0-9A-Za-z]*$`)

// Load reads and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.Path = path
	return m, nil
}

// Parse decodes and validates a manifest document.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.UnmarshalWithOptions(data, &m, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate reports every invalid entry at once.
func (m *Manifest) Validate() error {
	var result *multierror.Error
	seen := make(map[string]int, len(m.Operations))
	for i, op := range m.Operations {
		if err := op.validate(); err != nil {
			result = multierror.Append(result, fmt.Errorf("operations[%d]: %w", i, err))
		}
		if op.Name == "" {
			continue
		}
		if prev, ok := seen[op.Name]; ok {
			result = multierror.Append(result, fmt.Errorf("operations[%d]: name %q already used by operations[%d]", i, op.Name, prev))
			continue
		}
		seen[op.Name] = i
	}
	return result.ErrorOrNil()
}

func (op Operation) validate() error {
	if op.Name == "" {
		return fmt.Errorf("name is required")
	}
	if !nameRe.MatchString(op.Name) {
		return fmt.Errorf("name %q is not a GraphQL name", op.Name)
	}
	if _, err := compiler.ParseKind(op.Kind); err != nil {
		return fmt.Errorf("%s: %w", op.Name, err)
	}
	if op.Variant != "" {
		if _, err := shape.ParseVariant(op.Variant); err != nil {
			return fmt.Errorf("%s: %w", op.Name, err)
		}
	}
	if op.Type == "" {
		if op.Variant != "" || len(op.Omit) > 0 || op.Paginate {
			return fmt.Errorf("%s: variant, omit and paginate need a type", op.Name)
		}
	}
	if !op.Paginate && (len(op.Edges) > 0 || len(op.PageInfo) > 0) {
		return fmt.Errorf("%s: edges and pageInfo need paginate", op.Name)
	}
	if len(op.Edges) > 0 && !slices.Contains(op.Edges, "node") {
		return fmt.Errorf("%s: edges must select node", op.Name)
	}
	return nil
}

// Compile converts the entry into a compiler operation. spec is the looked up
// catalog shape for op.Type, or nil for scalar results.
func (op Operation) Compile(spec *shape.Spec) compiler.Operation {
	kind, _ := compiler.ParseKind(op.Kind)
	return compiler.Operation{
		Kind:      kind,
		Name:      op.Name,
		InputType: op.Input,
		Spec:      spec,
		Variant:   shape.Variant(op.Variant),
		Omit:      op.Omit,
	}
}

// edgeFields selects each named edge field as a leaf, except node, which
// selects the list shape of op.Type.
func (op Operation) edgeFields() []shape.Field {
	fields := make([]shape.Field, len(op.Edges))
	for i, name := range op.Edges {
		if name == "node" {
			fields[i] = shape.F(name, shape.Ref(op.Type, shape.List))
			continue
		}
		fields[i] = shape.F(name, shape.True)
	}
	return fields
}

// PageOptions returns the pagination overrides for the entry.
func (op Operation) PageOptions() []compiler.PageOption {
	var opts []compiler.PageOption
	if len(op.Edges) > 0 {
		opts = append(opts, compiler.WithEdgeFields(op.edgeFields()...))
	}
	if len(op.PageInfo) > 0 {
		opts = append(opts, compiler.WithPageInfo(shape.Leaves(op.PageInfo...)...))
	}
	return opts
}

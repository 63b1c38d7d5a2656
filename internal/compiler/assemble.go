package compiler

import (
	"context"
	"fmt"
	"strings"
	"time"

	eventbus "github.com/hanpama/shapeql/internal/eventbus"
	events "github.com/hanpama/shapeql/internal/events"
	reqid "github.com/hanpama/shapeql/internal/reqid"
	"github.com/hanpama/shapeql/internal/shape"
)

// Kind is the operation keyword.
type Kind string

const (
	KindQuery    Kind = "query"
	KindMutation Kind = "mutation"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindQuery, KindMutation:
		return k, nil
	case "":
		return KindQuery, nil
	}
	return "", fmt.Errorf("unknown operation kind %q", s)
}

// Operation describes one document to assemble. Spec may be nil for
// operations returning a scalar. InputType, when set, declares a single
// required $input variable passed as the field's input argument.
type Operation struct {
	Kind      Kind
	Name      string
	InputType string
	Spec      *shape.Spec
	Variant   shape.Variant
	Omit      []string
}

// Result is an assembled document. Document starts with one placeholder line
// per fragment (see Placeholder), followed by the operation.
type Result struct {
	Fragments []RenderedFragment
	Document  string
}

// Placeholder is the token standing for a fragment's source in a Document.
func Placeholder(name string) string {
	return "${" + name + "}"
}

// Source returns the document with every placeholder replaced by its
// fragment definition.
func (r *Result) Source() string {
	pairs := make([]string, 0, 2*len(r.Fragments))
	for _, f := range r.Fragments {
		pairs = append(pairs, Placeholder(f.Name), f.Source)
	}
	return strings.NewReplacer(pairs...).Replace(r.Document)
}

// Query assembles a query document.
func (c *Compiler) Query(ctx context.Context, name, inputType string, spec *shape.Spec, v shape.Variant, omit ...string) (*Result, error) {
	return c.Assemble(ctx, Operation{Kind: KindQuery, Name: name, InputType: inputType, Spec: spec, Variant: v, Omit: omit})
}

// Mutation assembles a mutation document.
func (c *Compiler) Mutation(ctx context.Context, name, inputType string, spec *shape.Spec, v shape.Variant, omit ...string) (*Result, error) {
	return c.Assemble(ctx, Operation{Kind: KindMutation, Name: name, InputType: inputType, Spec: spec, Variant: v, Omit: omit})
}

// Assemble shapes op.Spec, renders the operation and the fragments it uses.
func (c *Compiler) Assemble(ctx context.Context, op Operation) (*Result, error) {
	if op.Name == "" {
		return nil, fmt.Errorf("operation name is required")
	}
	if op.Kind == "" {
		op.Kind = KindQuery
	}
	if _, err := ParseKind(string(op.Kind)); err != nil {
		return nil, err
	}

	if _, ok := reqid.FromContext(ctx); !ok {
		ctx, _ = reqid.NewContext(ctx)
	}
	typeName := ""
	if op.Spec != nil {
		typeName = op.Spec.TypeName
	}
	eventbus.Publish(ctx, events.CompileStart{
		OperationName: op.Name,
		OperationType: string(op.Kind),
		TypeName:      typeName,
		Variant:       string(op.Variant),
	})
	start := time.Now()
	res, err := c.assemble(ctx, op)
	fin := events.CompileFinish{
		OperationName: op.Name,
		OperationType: string(op.Kind),
		TypeName:      typeName,
		Variant:       string(op.Variant),
		Err:           err,
		Duration:      time.Since(start),
	}
	if res != nil {
		fin.Fragments = len(res.Fragments)
	}
	eventbus.Publish(ctx, fin)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", op.Kind, op.Name, err)
	}
	return res, nil
}

func (c *Compiler) assemble(ctx context.Context, op Operation) (*Result, error) {
	s := c.newSession()

	var rel *Relation
	if op.Spec != nil {
		var err error
		if rel, err = s.relate(ctx, op.Spec, op.Variant, op.Omit, op.Spec.TypeName, 0); err != nil {
			return nil, err
		}
	}

	rendered, dropped, err := c.renderFragments(s.frags.All())
	if err != nil {
		return nil, err
	}
	var body string
	if rel != nil {
		r := &renderer{c: c, dropped: dropped}
		if body, err = r.render(rel.Fields, 2); err != nil {
			return nil, err
		}
	}
	sig := c.signature(op, body)
	kept := c.PruneUnused(rendered, sig)

	var b strings.Builder
	for _, f := range kept {
		b.WriteString(Placeholder(f.Name))
		b.WriteString("\n")
	}
	b.WriteString(sig)
	return &Result{Fragments: kept, Document: b.String()}, nil
}

// signature renders the operation header and wraps body in the root field.
func (c *Compiler) signature(op Operation, body string) string {
	input := strings.TrimSuffix(op.InputType, "!")
	ind := c.indent(1)

	var b strings.Builder
	b.WriteString(string(op.Kind))
	b.WriteString(" ")
	b.WriteString(op.Name)
	if input != "" {
		b.WriteString("($input: ")
		b.WriteString(input)
		b.WriteString("!)")
	}
	b.WriteString(" {\n")
	b.WriteString(ind)
	b.WriteString(op.Name)
	if input != "" {
		b.WriteString("(input: $input)")
	}
	if body != "" {
		b.WriteString(" {\n")
		b.WriteString(body)
		b.WriteString(ind)
		b.WriteString("}")
	}
	b.WriteString("\n}\n")
	return b.String()
}

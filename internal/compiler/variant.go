package compiler

import (
	"fmt"

	"github.com/hanpama/shapeql/internal/shape"
	"go.uber.org/zap"
)

var fallbackOrder = map[shape.Variant][]shape.Variant{
	shape.Common: {shape.Common, shape.List, shape.Full, shape.Nav},
	shape.List:   {shape.List, shape.Common, shape.Full, shape.Nav},
	shape.Full:   {shape.Full, shape.List, shape.Common, shape.Nav},
	shape.Nav:    {shape.Nav, shape.Common, shape.List, shape.Full},
}

// FallbackOrder returns the variants tried, in order, when requested is asked for.
func FallbackOrder(requested shape.Variant) []shape.Variant {
	return append([]shape.Variant(nil), fallbackOrder[requested]...)
}

// SelectVariant returns the first variant of requested's fallback order that
// spec declares. An empty request means shape.Full.
func SelectVariant(spec *shape.Spec, requested shape.Variant) (shape.Variant, error) {
	if requested == "" {
		requested = shape.Full
	}
	order, ok := fallbackOrder[requested]
	if !ok {
		return "", fmt.Errorf("unknown variant %q", requested)
	}
	for _, v := range order {
		if spec.Has(v) {
			return v, nil
		}
	}
	typeName := ""
	if spec != nil {
		typeName = spec.TypeName
	}
	return "", &MissingSelectionError{TypeName: typeName, Requested: requested}
}

// ResolveVariant is SelectVariant with a warning when a fallback is used.
func (c *Compiler) ResolveVariant(spec *shape.Spec, requested shape.Variant) (shape.Variant, error) {
	v, err := SelectVariant(spec, requested)
	if err != nil {
		return "", err
	}
	if requested != "" && v != requested {
		c.opt.Logger.Warn("variant substituted",
			zap.String("type", spec.TypeName),
			zap.String("requested", string(requested)),
			zap.String("resolved", string(v)),
		)
	}
	return v, nil
}

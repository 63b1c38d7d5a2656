package compiler

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hanpama/shapeql/internal/catalog"
	"github.com/hanpama/shapeql/internal/shape"
)

func tagSpec() *shape.Spec {
	return shape.NewSpec("Tag").
		With(shape.Common, shape.Obj(shape.Leaves("id", "label")...))
}

func noteSpec() *shape.Spec {
	return shape.NewSpec("Note").
		With(shape.Common, shape.Obj(shape.Leaves("id")...)).
		With(shape.Full, shape.Obj(
			shape.F("id", shape.True),
			shape.F("tags", shape.Use("tag")),
		).Define("tag", shape.Ref("Tag", shape.Common)))
}

func testCatalog(specs ...*shape.Spec) catalog.Map {
	return catalog.NewMap(append([]*shape.Spec{tagSpec(), noteSpec()}, specs...)...)
}

// newObserved returns a compiler whose log entries at level and above are
// recorded.
func newObserved(t *testing.T, cat catalog.Catalog, level zapcore.Level, opts ...Option) (*Compiler, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(level)
	opts = append([]Option{WithLogger(zap.New(core))}, opts...)
	return New(cat, opts...), logs
}

package otel

import (
	"context"
	"sync"

	eventbus "github.com/hanpama/shapeql/internal/eventbus"
	events "github.com/hanpama/shapeql/internal/events"
	reqid "github.com/hanpama/shapeql/internal/reqid"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Setup configures OpenTelemetry and attaches eventbus subscribers.
// If endpoint is empty, no telemetry is configured.
func Setup(endpoint, service string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(context.Background(),
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	)
	otel.SetTracerProvider(tp)

	sub := NewSubscriber(tp.Tracer("shapeql"))
	unsubscribe := sub.Register()

	return func(ctx context.Context) error {
		unsubscribe()
		return tp.Shutdown(ctx)
	}, nil
}

// Subscriber turns batch and compile events into spans. A compile span is a
// child of the span already in its context or, failing that, of the span of
// the batch it runs in.
type Subscriber struct {
	tracer       trace.Tracer
	batchSpans   sync.Map // batch id -> trace.Span
	compileSpans sync.Map // compile id -> trace.Span
}

func NewSubscriber(tracer trace.Tracer) *Subscriber {
	return &Subscriber{tracer: tracer}
}

// Register subscribes s to the global bus.
func (s *Subscriber) Register() (unsubscribe func()) {
	unsubs := []func(){
		eventbus.Subscribe(s.onBatchStart),
		eventbus.Subscribe(s.onBatchFinish),
		eventbus.Subscribe(s.onCompileStart),
		eventbus.Subscribe(s.onCompileFinish),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func (s *Subscriber) onBatchStart(ctx context.Context, e events.BatchStart) {
	_, span := s.tracer.Start(ctx, "shapeql.batch")
	span.SetAttributes(
		attribute.String("shapeql.manifest", e.Manifest),
		attribute.Int("shapeql.operation_count", e.Operations),
	)
	id, _ := reqid.BatchFromContext(ctx)
	s.batchSpans.Store(id, span)
}

func (s *Subscriber) onBatchFinish(ctx context.Context, e events.BatchFinish) {
	id, _ := reqid.BatchFromContext(ctx)
	v, ok := s.batchSpans.LoadAndDelete(id)
	if !ok {
		return
	}
	span := v.(trace.Span)
	span.SetAttributes(
		attribute.Int("shapeql.succeeded", e.Succeeded),
		attribute.Int("shapeql.failed", e.Failed),
	)
	if e.Failed > 0 {
		span.SetStatus(codes.Error, "some operations failed")
	}
	span.End()
}

func (s *Subscriber) onCompileStart(ctx context.Context, e events.CompileStart) {
	id, _ := reqid.FromContext(ctx)
	parent := ctx
	if !trace.SpanFromContext(ctx).SpanContext().IsValid() {
		if batchID, ok := reqid.BatchFromContext(ctx); ok {
			if v, ok := s.batchSpans.Load(batchID); ok {
				parent = trace.ContextWithSpan(ctx, v.(trace.Span))
			}
		}
	}
	_, span := s.tracer.Start(parent, "shapeql.compile")
	span.SetAttributes(
		attribute.String("graphql.operation.name", e.OperationName),
		attribute.String("graphql.operation.type", e.OperationType),
		attribute.String("shapeql.type", e.TypeName),
		attribute.String("shapeql.variant", e.Variant),
	)
	s.compileSpans.Store(id, span)
}

func (s *Subscriber) onCompileFinish(ctx context.Context, e events.CompileFinish) {
	id, _ := reqid.FromContext(ctx)
	v, ok := s.compileSpans.LoadAndDelete(id)
	if !ok {
		return
	}
	span := v.(trace.Span)
	span.SetAttributes(attribute.Int("shapeql.fragment_count", e.Fragments))
	if e.Err != nil {
		span.RecordError(e.Err)
		span.SetStatus(codes.Error, e.Err.Error())
	}
	span.End()
}

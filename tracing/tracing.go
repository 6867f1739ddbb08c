// Package tracing lets applications observe leader lookups by plugging their
// own tracer into the context passed to the client.
package tracing

import "context"

type contextKey string

const (
	traceContextKey contextKey = "trace"
)

// WithTracer returns a context with the tracer embedded in the context
// under the context key.
func WithTracer(ctx context.Context, tracer Tracer) context.Context {
	return context.WithValue(ctx, traceContextKey, tracer)
}

// Start returns a new context with the given trace.
//
// The target names the node or the seed list the operation is about. A
// valid span is always returned, even if the context does not contain a
// tracer. In that case, the span is a noop span.
func Start(ctx context.Context, name, target string) (context.Context, Span) {
	value := ctx.Value(traceContextKey)
	if value == nil {
		return ctx, noopSpan{}
	}
	tracer, ok := value.(Tracer)
	if !ok {
		return ctx, noopSpan{}
	}
	return tracer.Start(ctx, name, target)
}

// Tracer is the interface that all tracers must implement.
type Tracer interface {
	// Start creates a span and a context.Context containing the newly-created
	// span.
	//
	// Any Span that is created MUST also be ended. This is the responsibility
	// of the user.
	Start(ctx context.Context, name, target string) (context.Context, Span)
}

// Span is a single named and timed operation of a lookup, such as asking a
// seed for the leader.
type Span interface {
	// End completes the Span.
	End()
}

type noopSpan struct{}

func (noopSpan) End() {}

package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const (
	headerTraceparent = "traceparent"
	headerTracestate  = "tracestate"
)

// TraceContextStrings renders the span in ctx as W3C header values so it can be stored
// next to a record and resumed later.
func TraceContextStrings(ctx context.Context) (traceparent, tracestate string) {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return carrier[headerTraceparent], carrier[headerTracestate]
}

func ContextWithTraceContext(ctx context.Context, traceparent, tracestate string) context.Context {
	if traceparent == "" && tracestate == "" {
		return ctx
	}
	carrier := propagation.MapCarrier{
		headerTraceparent: traceparent,
		headerTracestate:  tracestate,
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

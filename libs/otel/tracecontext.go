package otelx

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Detached holds W3C trace context captured from a request so work that
// outlives the request (queued events, async sends) can rejoin the trace.
type Detached struct {
	Traceparent string
	Tracestate  string
}

func Detach(ctx context.Context) Detached {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return Detached{Traceparent: carrier["traceparent"], Tracestate: carrier["tracestate"]}
}

// Attach returns ctx carrying the captured span context as its remote parent.
// An empty Detached returns ctx unchanged.
func (d Detached) Attach(ctx context.Context) context.Context {
	if d.Traceparent == "" {
		return ctx
	}
	carrier := propagation.MapCarrier{"traceparent": d.Traceparent}
	if d.Tracestate != "" {
		carrier["tracestate"] = d.Tracestate
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/haosfm/haos/internal/bridge"
)

// MiddlewareConfig configures the tracing middleware.
type MiddlewareConfig struct {
	// Tracer creates the spans. Nil yields a pass-through middleware.
	Tracer trace.Tracer
}

// NewMiddleware returns bridge middleware that wraps each delivery in a span
// named bridge.send.<command>.
func NewMiddleware(cfg MiddlewareConfig) bridge.Middleware {
	if cfg.Tracer == nil {
		return func(next bridge.Transport) bridge.Transport { return next }
	}

	return func(next bridge.Transport) bridge.Transport {
		return bridge.TransportFunc(func(ctx context.Context, cmd bridge.Command) error {
			ctx, span := cfg.Tracer.Start(ctx, SpanPrefixCommand+cmd.Name,
				trace.WithSpanKind(trace.SpanKindProducer),
			)
			defer span.End()

			span.SetAttributes(
				attribute.String(AttrCommandName, cmd.Name),
				attribute.String(AttrCommandID, cmd.ID),
				attribute.Bool(AttrCommandBuffered, cmd.Buffered),
				attribute.Int(AttrCommandParams, len(cmd.Params)),
			)

			err := next.Send(ctx, cmd)
			if err != nil {
				span.RecordError(err)
				span.SetAttributes(attribute.String(AttrErrorMessage, err.Error()))
				span.SetStatus(codes.Error, err.Error())
				return err
			}
			span.SetStatus(codes.Ok, "")
			return nil
		})
	}
}

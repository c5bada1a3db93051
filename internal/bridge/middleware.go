package bridge

import (
	"context"
	"time"

	"github.com/haosfm/haos/internal/log"
)

// Transport delivers an encoded command to the engine peer.
// Implementations must not block indefinitely.
type Transport interface {
	Send(ctx context.Context, cmd Command) error
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, cmd Command) error

// Send calls f(ctx, cmd).
func (f TransportFunc) Send(ctx context.Context, cmd Command) error {
	return f(ctx, cmd)
}

// Middleware wraps a Transport to add behavior around delivery.
type Middleware func(Transport) Transport

// ChainMiddleware applies middlewares so that the first one is outermost:
// ChainMiddleware(t, logging, tracing) delivers through logging(tracing(t)).
func ChainMiddleware(t Transport, middlewares ...Middleware) Transport {
	for i := len(middlewares) - 1; i >= 0; i-- {
		t = middlewares[i](t)
	}
	return t
}

// ===========================================================================
// Logging Middleware
// ===========================================================================

// LoggingMiddlewareConfig configures the logging middleware.
type LoggingMiddlewareConfig struct {
	// SlowThreshold promotes successful deliveries slower than this to Warn.
	// Zero disables the check.
	SlowThreshold time.Duration
}

// NewLoggingMiddleware creates a middleware that logs each delivery.
func NewLoggingMiddleware(cfg LoggingMiddlewareConfig) Middleware {
	return func(next Transport) Transport {
		return TransportFunc(func(ctx context.Context, cmd Command) error {
			start := time.Now()
			err := next.Send(ctx, cmd)
			duration := time.Since(start)

			switch {
			case err != nil:
				log.Warn(log.CatBridge, "command delivery failed",
					"command", cmd.Name,
					"command_id", cmd.ID,
					"buffered", cmd.Buffered,
					"duration", duration,
					"error", err.Error(),
				)
			case cfg.SlowThreshold > 0 && duration > cfg.SlowThreshold:
				log.Warn(log.CatBridge, "slow command delivery",
					"command", cmd.Name,
					"command_id", cmd.ID,
					"duration", duration,
				)
			default:
				log.Debug(log.CatBridge, "command delivered",
					"command", cmd.Name,
					"command_id", cmd.ID,
					"buffered", cmd.Buffered,
					"duration", duration,
				)
			}
			return err
		})
	}
}

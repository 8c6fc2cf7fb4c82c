// Package events provides the observability sink used across the federation
// agent. Every heartbeat receipt, election round, promotion, demotion,
// recovery action and chaos kill passes through an Emitter.
package events

import (
	"context"

	"go.uber.org/zap"
)

// Emitter records a single observability event. Implementations must be safe
// for concurrent use and must never return an error that a caller is obliged
// to act on beyond logging; event emission is best-effort telemetry.
type Emitter interface {
	Emit(ctx context.Context, message string) error
}

// LogEmitter writes events to the agent log.
type LogEmitter struct {
	logger *zap.Logger
}

// NewLogEmitter builds the default log-backed emitter.
func NewLogEmitter(logger *zap.Logger) *LogEmitter {
	return &LogEmitter{logger: logger}
}

// Emit logs the event at info level.
func (e *LogEmitter) Emit(_ context.Context, message string) error {
	if e.logger != nil {
		e.logger.Info("event", zap.String("message", message))
	}
	return nil
}

// Fanout forwards every event to all configured sinks. A failing sink does
// not stop delivery to the others; the first error is returned for logging.
type Fanout struct {
	sinks []Emitter
}

// NewFanout combines emitters into one.
func NewFanout(sinks ...Emitter) *Fanout {
	return &Fanout{sinks: sinks}
}

// Emit delivers the message to every sink.
func (f *Fanout) Emit(ctx context.Context, message string) error {
	var firstErr error
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		if err := sink.Emit(ctx, message); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

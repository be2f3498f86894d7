package logging

import (
	"log/slog"
	"time"
)

// Standardized structured logging keys.
const (
	// FieldComponent names the emitting component.
	FieldComponent = "component"
	// FieldOperation names the engine operation in flight.
	FieldOperation = "operation"
	// FieldRegion is the work-unit region.
	FieldRegion = "region"
	// FieldBatch is the work-unit batch code.
	FieldBatch = "batch"
	// FieldBlock is the work-unit block number.
	FieldBlock = "block"
	// FieldActor is the caller identity performing an operation.
	FieldActor = "actor"
	// FieldState is the resulting work-unit state label.
	FieldState = "state"
	// FieldClaimID correlates the log lines of one claim operation.
	FieldClaimID = "claim_id"
)

type Attr = slog.Attr

func Any(key string, value any) Attr { return slog.Any(key, value) }

func Bool(key string, value bool) Attr { return slog.Bool(key, value) }

func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func Int64(key string, value int64) Attr { return slog.Int64(key, value) }

func String(key string, value string) Attr { return slog.String(key, value) }

func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

// WithComponent tags a logger with a component name.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		return NewNop()
	}
	return logger.With(String(FieldComponent, component))
}

package logger

import (
	"context"
	"time"
)

// Entry is a single log line's measurements: timings, counts, scores.
// Tracing fields come from the context logger at emit time.
type Entry struct {
	fields Fields
}

// With starts an Entry with the given fields.
//
//	logger.With(logger.Fields{logger.FieldConfidence: 0.91}).Since(start).Info(ctx, "Prediction completed")
func With(fields Fields) *Entry {
	e := &Entry{fields: make(Fields, len(fields)+1)}
	for k, v := range fields {
		e.fields[k] = v
	}
	return e
}

// Since records the milliseconds elapsed from start as duration_ms.
func (e *Entry) Since(start time.Time) *Entry {
	e.fields[FieldDurationMs] = time.Since(start).Milliseconds()
	return e
}

func (e *Entry) target(ctx context.Context) *Logger {
	return FromContext(ctx).WithFields(e.fields)
}

func (e *Entry) Debug(ctx context.Context, format string, args ...interface{}) {
	e.target(ctx).Debugf(format, args...)
}

func (e *Entry) Info(ctx context.Context, format string, args ...interface{}) {
	e.target(ctx).Infof(format, args...)
}

func (e *Entry) Warn(ctx context.Context, format string, args ...interface{}) {
	e.target(ctx).Warnf(format, args...)
}

func (e *Entry) Error(ctx context.Context, format string, args ...interface{}) {
	e.target(ctx).Errorf(format, args...)
}

package log

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Gthorpe2274/mocha-emig/pkg/requestid"
)

// StructuredLogger builds per-operation tracers on top of zap. Services and
// handlers create one logger per component and one tracer per operation; the
// tracer carries the operation name, the request id and the accumulated
// fields through every step.
type StructuredLogger struct {
	logger    *zap.SugaredLogger
	requestID string
}

func NewDebugLogger(name string) *StructuredLogger {
	return &StructuredLogger{logger: zap.S().Named(name)}
}

func (l *StructuredLogger) WithContext(ctx context.Context) *StructuredLogger {
	return &StructuredLogger{logger: l.logger, requestID: requestid.FromContext(ctx)}
}

func (l *StructuredLogger) Operation(name string) *OperationBuilder {
	return &OperationBuilder{
		logger:    l.logger,
		requestID: l.requestID,
		operation: name,
	}
}

type OperationBuilder struct {
	logger    *zap.SugaredLogger
	requestID string
	operation string
	fields    []interface{}
}

func (b *OperationBuilder) WithString(key, value string) *OperationBuilder {
	b.fields = append(b.fields, key, value)
	return b
}

func (b *OperationBuilder) WithStringPtr(key string, value *string) *OperationBuilder {
	if value != nil {
		b.fields = append(b.fields, key, *value)
	}
	return b
}

func (b *OperationBuilder) WithInt(key string, value int) *OperationBuilder {
	b.fields = append(b.fields, key, value)
	return b
}

func (b *OperationBuilder) WithBool(key string, value bool) *OperationBuilder {
	b.fields = append(b.fields, key, value)
	return b
}

func (b *OperationBuilder) WithUUID(key string, value uuid.UUID) *OperationBuilder {
	b.fields = append(b.fields, key, value.String())
	return b
}

func (b *OperationBuilder) WithUUIDPtr(key string, value *uuid.UUID) *OperationBuilder {
	if value != nil {
		b.fields = append(b.fields, key, value.String())
	}
	return b
}

func (b *OperationBuilder) Build() *Tracer {
	return &Tracer{
		logger:    b.logger,
		requestID: b.requestID,
		operation: b.operation,
		fields:    b.fields,
		started:   time.Now(),
	}
}

type Tracer struct {
	logger    *zap.SugaredLogger
	requestID string
	operation string
	fields    []interface{}
	started   time.Time
}

func (t *Tracer) Step(name string) *Event {
	return t.event(zap.DebugLevel, "step", name, nil)
}

func (t *Tracer) Success() *Event {
	return t.event(zap.InfoLevel, "outcome", "success", nil)
}

func (t *Tracer) Error(err error) *Event {
	return t.event(zap.ErrorLevel, "outcome", "error", err)
}

func (t *Tracer) event(lvl zapcore.Level, key, value string, err error) *Event {
	fields := make([]interface{}, 0, len(t.fields)+8)
	fields = append(fields, "operation", t.operation, key, value)
	if t.requestID != "" {
		fields = append(fields, "request_id", t.requestID)
	}
	if err != nil {
		fields = append(fields, "error", err.Error())
	}
	fields = append(fields, t.fields...)
	return &Event{logger: t.logger, level: lvl, started: t.started, fields: fields}
}

type Event struct {
	logger  *zap.SugaredLogger
	level   zapcore.Level
	started time.Time
	fields  []interface{}
}

func (e *Event) WithString(key, value string) *Event {
	e.fields = append(e.fields, key, value)
	return e
}

func (e *Event) WithStringPtr(key string, value *string) *Event {
	if value != nil {
		e.fields = append(e.fields, key, *value)
	}
	return e
}

func (e *Event) WithInt(key string, value int) *Event {
	e.fields = append(e.fields, key, value)
	return e
}

func (e *Event) WithBool(key string, value bool) *Event {
	e.fields = append(e.fields, key, value)
	return e
}

func (e *Event) WithUUID(key string, value uuid.UUID) *Event {
	e.fields = append(e.fields, key, value.String())
	return e
}

func (e *Event) Log() {
	fields := append(e.fields, "elapsed_ms", time.Since(e.started).Milliseconds())
	switch e.level {
	case zapcore.ErrorLevel:
		e.logger.Errorw("operation", fields...)
	case zapcore.DebugLevel:
		e.logger.Debugw("operation", fields...)
	default:
		e.logger.Infow("operation", fields...)
	}
}

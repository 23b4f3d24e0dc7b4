// Package instrument carries request ids and timing spans through request
// contexts and writes them to the structured log.
package instrument

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Instrumenter starts spans around units of work.
type Instrumenter interface {
	StartSpan(ctx context.Context, source, component, action string) (context.Context, Span)
}

// Span times one unit of work.
type Span interface {
	End()
	SetStatus(status string)
	SetMetadata(key string, value any)
	SetEntity(entity, recordID string)
	TraceID() string
	SpanID() string
}

type ctxKey int

const (
	instrumenterKey ctxKey = iota
	traceKey
)

// WithInstrumenter stores inst and the request's trace id in ctx.
func WithInstrumenter(ctx context.Context, inst Instrumenter, traceID string) context.Context {
	ctx = context.WithValue(ctx, instrumenterKey, inst)
	return context.WithValue(ctx, traceKey, traceID)
}

// GetInstrumenter returns the instrumenter of ctx, or a no-op one.
func GetInstrumenter(ctx context.Context) Instrumenter {
	if inst, ok := ctx.Value(instrumenterKey).(Instrumenter); ok {
		return inst
	}
	return &NoopInstrumenter{}
}

// TraceID returns the request id carried by ctx.
func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceKey).(string)
	return id
}

// LogInstrumenter logs every finished span at debug level.
type LogInstrumenter struct {
	logger *zap.Logger
}

func NewLogInstrumenter(logger *zap.Logger) *LogInstrumenter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogInstrumenter{logger: logger}
}

func (l *LogInstrumenter) StartSpan(ctx context.Context, source, component, action string) (context.Context, Span) {
	return ctx, &logSpan{
		logger:    l.logger,
		traceID:   TraceID(ctx),
		spanID:    uuid.NewString(),
		source:    source,
		component: component,
		action:    action,
		status:    "ok",
		started:   time.Now(),
	}
}

type logSpan struct {
	logger    *zap.Logger
	traceID   string
	spanID    string
	source    string
	component string
	action    string
	status    string
	entity    string
	recordID  string
	fields    []zap.Field
	started   time.Time
}

func (s *logSpan) End() {
	fields := []zap.Field{
		zap.String("request_id", s.traceID),
		zap.String("span_id", s.spanID),
		zap.String("source", s.source),
		zap.String("component", s.component),
		zap.String("action", s.action),
		zap.String("status", s.status),
		zap.Duration("duration", time.Since(s.started)),
	}
	if s.entity != "" {
		fields = append(fields, zap.String("entity", s.entity))
	}
	if s.recordID != "" {
		fields = append(fields, zap.String("record_id", s.recordID))
	}
	s.logger.Debug("span", append(fields, s.fields...)...)
}

func (s *logSpan) SetStatus(status string)           { s.status = status }
func (s *logSpan) SetMetadata(key string, value any) { s.fields = append(s.fields, zap.Any(key, value)) }
func (s *logSpan) SetEntity(entity, recordID string) { s.entity, s.recordID = entity, recordID }
func (s *logSpan) TraceID() string                   { return s.traceID }
func (s *logSpan) SpanID() string                    { return s.spanID }

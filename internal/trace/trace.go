// Package trace provides scoped observability spans for workflow stages.
//
// A Span is opened before stage work begins and records its input, output,
// and error on every exit path. Tracing is best-effort observational
// plumbing: it writes structured log records and never affects control flow.
package trace

import (
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// TraceInit carries trace-level initialization data for a new root span.
type TraceInit struct {
	Name      string
	SessionID string
	UserID    string
	Tags      []string
	Metadata  map[string]any
}

// SpanContext tells StartSpan where a new span belongs: either under an
// existing parent span, or at the root of a fresh trace. The two fields are
// mutually exclusive; use ChildOf or NewTrace to construct one.
type SpanContext struct {
	parent *Span
	init   *TraceInit
}

// ChildOf returns a SpanContext that attaches new spans under parent.
// A nil parent yields a root context with no trace initialization.
func ChildOf(parent *Span) *SpanContext {
	return &SpanContext{parent: parent}
}

// NewTrace returns a SpanContext that starts a fresh trace.
func NewTrace(init TraceInit) *SpanContext {
	return &SpanContext{init: &init}
}

// NewSpanContext builds a SpanContext from explicit parts, rejecting the
// ambiguous case where both a parent and trace initialization are supplied.
func NewSpanContext(parent *Span, init *TraceInit) (*SpanContext, error) {
	if parent != nil && init != nil {
		return nil, eris.New("trace: span context cannot carry both a parent span and trace init")
	}
	return &SpanContext{parent: parent, init: init}, nil
}

// Span is a scoped observation of one unit of work. Create it with
// StartSpan, defer End, and record values through SetInput/SetOutput/Error.
type Span struct {
	name      string
	traceID   string
	sessionID string
	start     time.Time
	input     any
	output    any
	err       error
	ended     bool
}

// StartSpan opens a span named name. A nil SpanContext starts a root span
// with a generated trace ID and no trace metadata.
func StartSpan(name string, sc *SpanContext) *Span {
	s := &Span{
		name:  name,
		start: time.Now(),
	}

	switch {
	case sc != nil && sc.parent != nil:
		s.traceID = sc.parent.traceID
		s.sessionID = sc.parent.sessionID
	case sc != nil && sc.init != nil:
		s.traceID = uuid.NewString()
		s.sessionID = sc.init.SessionID
		fields := []zap.Field{
			zap.String("trace", sc.init.Name),
			zap.String("trace_id", s.traceID),
		}
		if sc.init.SessionID != "" {
			fields = append(fields, zap.String("session_id", sc.init.SessionID))
		}
		if sc.init.UserID != "" {
			fields = append(fields, zap.String("user_id", sc.init.UserID))
		}
		if len(sc.init.Tags) > 0 {
			fields = append(fields, zap.Strings("tags", sc.init.Tags))
		}
		if sc.init.Metadata != nil {
			fields = append(fields, zap.Any("metadata", sc.init.Metadata))
		}
		zap.L().Info("trace started", fields...)
	default:
		s.traceID = uuid.NewString()
	}

	return s
}

// Name returns the span name.
func (s *Span) Name() string { return s.name }

// TraceID returns the trace this span belongs to.
func (s *Span) TraceID() string { return s.traceID }

// SetInput records the span's input value.
func (s *Span) SetInput(v any) {
	if s == nil {
		return
	}
	s.input = v
}

// SetOutput records the span's output value.
func (s *Span) SetOutput(v any) {
	if s == nil {
		return
	}
	s.output = v
}

// Error records a failure on the span. The span still logs on End, so the
// failure is captured even when the error propagates out of the stage.
func (s *Span) Error(err error) {
	if s == nil {
		return
	}
	s.err = err
}

// End closes the span and emits its record. Safe to call more than once;
// only the first call logs.
func (s *Span) End() {
	if s == nil || s.ended {
		return
	}
	s.ended = true

	fields := []zap.Field{
		zap.String("span", s.name),
		zap.String("trace_id", s.traceID),
		zap.Duration("duration", time.Since(s.start)),
	}
	if s.sessionID != "" {
		fields = append(fields, zap.String("session_id", s.sessionID))
	}
	if s.input != nil {
		fields = append(fields, zap.Any("input", s.input))
	}
	if s.output != nil {
		fields = append(fields, zap.Any("output", s.output))
	}

	if s.err != nil {
		fields = append(fields, zap.Error(s.err))
		zap.L().Warn("span finished with error", fields...)
		return
	}
	zap.L().Info("span finished", fields...)
}

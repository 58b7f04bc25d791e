// Package otel provides OpenTelemetry integration for calculator events.
package otel

import (
	"context"
	"strconv"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/petal-labs/petalcalc/runtime"
)

// TracingHandler translates calculator events into OpenTelemetry spans.
// A session gets a root span; each evaluation gets a child span under the
// session it belongs to, or a root span when no session is active.
type TracingHandler struct {
	tracer trace.Tracer

	mu           sync.RWMutex
	sessionSpans map[string]trace.Span      // sessionID -> span
	sessionCtxs  map[string]context.Context // sessionID -> context (for child spans)
	evalSpans    map[string]trace.Span      // evalID -> span
}

// NewTracingHandler creates a new TracingHandler that uses the given tracer
// to create spans from calculator events.
func NewTracingHandler(tracer trace.Tracer) *TracingHandler {
	return &TracingHandler{
		tracer:       tracer,
		sessionSpans: make(map[string]trace.Span),
		sessionCtxs:  make(map[string]context.Context),
		evalSpans:    make(map[string]trace.Span),
	}
}

// Handle processes an event and creates or ends spans accordingly.
// It implements runtime.EventHandler semantics.
func (h *TracingHandler) Handle(e runtime.Event) {
	switch e.Kind {
	case runtime.EventSessionStarted:
		h.handleSessionStarted(e)
	case runtime.EventEvalStarted:
		h.handleEvalStarted(e)
	case runtime.EventEvalFinished:
		h.handleEvalFinished(e)
	case runtime.EventEvalFailed:
		h.handleEvalFailed(e)
	case runtime.EventSessionFinished:
		h.handleSessionFinished(e)
	}
}

func (h *TracingHandler) handleSessionStarted(e runtime.Event) {
	ctx, span := h.tracer.Start(context.Background(), "session:"+e.SessionID,
		trace.WithAttributes(
			attribute.String("petalcalc.session_id", e.SessionID),
		),
		trace.WithTimestamp(e.Time),
	)

	h.mu.Lock()
	h.sessionSpans[e.SessionID] = span
	h.sessionCtxs[e.SessionID] = ctx
	h.mu.Unlock()
}

func (h *TracingHandler) handleEvalStarted(e runtime.Event) {
	h.mu.RLock()
	parentCtx, ok := h.sessionCtxs[e.SessionID]
	h.mu.RUnlock()

	if !ok {
		parentCtx = context.Background()
	}

	attrs := []attribute.KeyValue{
		attribute.String("petalcalc.eval_id", e.EvalID),
		attribute.String("petalcalc.source", e.PayloadString(runtime.PayloadSource)),
	}
	if e.SessionID != "" {
		attrs = append(attrs, attribute.String("petalcalc.session_id", e.SessionID))
	}

	_, span := h.tracer.Start(parentCtx, "eval",
		trace.WithAttributes(attrs...),
		trace.WithTimestamp(e.Time),
	)

	h.mu.Lock()
	h.evalSpans[e.EvalID] = span
	h.mu.Unlock()
}

func (h *TracingHandler) takeEvalSpan(evalID string) (trace.Span, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	span, ok := h.evalSpans[evalID]
	if ok {
		delete(h.evalSpans, evalID)
	}
	return span, ok
}

// handleEvalFinished ends the evaluation span with success status.
func (h *TracingHandler) handleEvalFinished(e runtime.Event) {
	span, ok := h.takeEvalSpan(e.EvalID)
	if !ok {
		return
	}
	if result, found := e.Payload[runtime.PayloadResult]; found {
		if f, ok := result.(float64); ok {
			span.SetAttributes(attribute.String("petalcalc.result", strconv.FormatFloat(f, 'g', -1, 64)))
		}
	}
	span.SetAttributes(attribute.String("petalcalc.duration", e.Elapsed.String()))
	span.SetStatus(codes.Ok, "")
	span.End(trace.WithTimestamp(e.Time))
}

// handleEvalFailed ends the evaluation span with error status.
func (h *TracingHandler) handleEvalFailed(e runtime.Event) {
	span, ok := h.takeEvalSpan(e.EvalID)
	if !ok {
		return
	}
	errMsg := e.PayloadString(runtime.PayloadError)
	if errMsg == "" {
		errMsg = "unknown error"
	}
	span.SetAttributes(
		attribute.String("petalcalc.stage", e.PayloadString(runtime.PayloadStage)),
		attribute.String("petalcalc.error_kind", e.PayloadString(runtime.PayloadErrorKind)),
		attribute.String("petalcalc.duration", e.Elapsed.String()),
	)
	span.SetStatus(codes.Error, errMsg)
	span.RecordError(spanError(errMsg), trace.WithTimestamp(e.Time))
	span.End(trace.WithTimestamp(e.Time))
}

// handleSessionFinished ends the session root span.
func (h *TracingHandler) handleSessionFinished(e runtime.Event) {
	h.mu.Lock()
	span, ok := h.sessionSpans[e.SessionID]
	if ok {
		delete(h.sessionSpans, e.SessionID)
		delete(h.sessionCtxs, e.SessionID)
	}
	h.mu.Unlock()

	if !ok {
		return
	}
	if count, found := e.Payload[runtime.PayloadCount]; found {
		if n, ok := count.(int); ok {
			span.SetAttributes(attribute.Int("petalcalc.evaluations", n))
		}
	}
	span.SetAttributes(attribute.String("petalcalc.duration", e.Elapsed.String()))
	span.SetStatus(codes.Ok, "")
	span.End(trace.WithTimestamp(e.Time))
}

// ActiveEvalSpanContext returns the SpanContext for the active evaluation
// span. Returns an empty SpanContext if not found.
func (h *TracingHandler) ActiveEvalSpanContext(evalID string) trace.SpanContext {
	h.mu.RLock()
	span, ok := h.evalSpans[evalID]
	h.mu.RUnlock()

	if !ok {
		return trace.SpanContext{}
	}
	return span.SpanContext()
}

// ActiveSessionSpanContext returns the SpanContext for the active session
// span. Returns an empty SpanContext if not found.
func (h *TracingHandler) ActiveSessionSpanContext(sessionID string) trace.SpanContext {
	h.mu.RLock()
	span, ok := h.sessionSpans[sessionID]
	h.mu.RUnlock()

	if !ok {
		return trace.SpanContext{}
	}
	return span.SpanContext()
}

// spanError is a simple error type for recording span errors.
type spanError string

func (e spanError) Error() string { return string(e) }

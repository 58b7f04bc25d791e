// Package runtime defines the events emitted while a calculator session runs.
package runtime

import (
	"time"
)

// EventKind identifies the type of event emitted by the calculator.
type EventKind string

const (
	// EventSessionStarted is emitted when an interactive session begins.
	EventSessionStarted EventKind = "session.started"

	// EventEvalStarted is emitted before an expression is parsed.
	EventEvalStarted EventKind = "eval.started"

	// EventEvalFinished is emitted when an expression produced a result.
	EventEvalFinished EventKind = "eval.finished"

	// EventEvalFailed is emitted when parsing or evaluation failed.
	EventEvalFailed EventKind = "eval.failed"

	// EventSessionFinished is emitted when an interactive session ends.
	EventSessionFinished EventKind = "session.finished"
)

// String returns the string representation of the EventKind.
func (k EventKind) String() string {
	return string(k)
}

// Payload keys used by the calculator.
const (
	PayloadSource    = "source"
	PayloadResult    = "result"
	PayloadError     = "error"
	PayloadStage     = "stage"
	PayloadErrorKind = "error_kind"
	PayloadCount     = "count"
)

// Event is a small record of what happened during a session.
type Event struct {
	// Kind identifies the event type.
	Kind EventKind

	// SessionID identifies the shell session (empty for library calls).
	SessionID string

	// EvalID identifies one evaluation (empty for session-level events).
	EvalID string

	// Time is when the event occurred.
	Time time.Time

	// Elapsed is the duration since the session or evaluation started.
	Elapsed time.Duration

	// Payload contains event-specific data.
	Payload map[string]any

	// Seq is a monotonic sequence number per calculator (1-indexed).
	Seq uint64

	// TraceID is the OpenTelemetry trace ID (hex-encoded, empty when OTel inactive).
	TraceID string

	// SpanID is the OpenTelemetry span ID (hex-encoded, empty when OTel inactive).
	SpanID string
}

// NewEvent creates a new event with the current timestamp.
func NewEvent(kind EventKind, sessionID string) Event {
	return Event{
		Kind:      kind,
		SessionID: sessionID,
		Time:      time.Now(),
		Payload:   make(map[string]any),
	}
}

// WithEval sets the evaluation ID on the event.
func (e Event) WithEval(evalID string) Event {
	e.EvalID = evalID
	return e
}

// WithElapsed sets the elapsed duration on the event.
func (e Event) WithElapsed(elapsed time.Duration) Event {
	e.Elapsed = elapsed
	return e
}

// WithPayload adds a key-value pair to the event payload.
func (e Event) WithPayload(key string, value any) Event {
	if e.Payload == nil {
		e.Payload = make(map[string]any)
	}
	e.Payload[key] = value
	return e
}

// PayloadString returns the payload value for key if it is a string.
func (e Event) PayloadString(key string) string {
	if v, ok := e.Payload[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// EventEmitter is a function type for emitting events.
type EventEmitter func(Event)

// EventEmitterDecorator wraps an emitter to add cross-cutting behavior,
// for example enriching events with trace metadata.
type EventEmitterDecorator func(EventEmitter) EventEmitter

// EventHandler is a function type for handling events.
// Implementations can log, trace, or count events as needed.
type EventHandler func(Event)

// MultiEventHandler combines multiple handlers into one.
func MultiEventHandler(handlers ...EventHandler) EventHandler {
	return func(e Event) {
		for _, h := range handlers {
			if h != nil {
				h(e)
			}
		}
	}
}

// ChannelEventHandler returns a handler that sends events to a channel.
// Events are dropped if the channel is full.
func ChannelEventHandler(ch chan<- Event) EventHandler {
	return func(e Event) {
		select {
		case ch <- e:
		default:
			// Drop event if channel is full
		}
	}
}

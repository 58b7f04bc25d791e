package petalcalc

import "github.com/petal-labs/petalcalc/runtime"

// =============================================================================
// Runtime Package Re-exports
// =============================================================================

// Type aliases from runtime package
type (
	// EventKind identifies the type of event emitted by the calculator.
	EventKind = runtime.EventKind

	// Event is a record of one step of a session.
	Event = runtime.Event

	// EventEmitter is a function type for emitting events.
	EventEmitter = runtime.EventEmitter

	// EventEmitterDecorator wraps an EventEmitter.
	EventEmitterDecorator = runtime.EventEmitterDecorator

	// EventHandler is a function type for handling events.
	EventHandler = runtime.EventHandler
)

// EventKind constants
const (
	EventSessionStarted  = runtime.EventSessionStarted
	EventEvalStarted     = runtime.EventEvalStarted
	EventEvalFinished    = runtime.EventEvalFinished
	EventEvalFailed      = runtime.EventEvalFailed
	EventSessionFinished = runtime.EventSessionFinished
)

// Runtime package constructors
var (
	NewEvent            = runtime.NewEvent
	MultiEventHandler   = runtime.MultiEventHandler
	ChannelEventHandler = runtime.ChannelEventHandler
)

package petalcalc

import (
	"errors"
	"log/slog"
	"time"

	"github.com/petal-labs/petalcalc/expr"
	"github.com/petal-labs/petalcalc/runtime"
)

// Calculator evaluates expressions with a fixed configuration.
// It holds no per-evaluation state and is safe for concurrent use.
type Calculator struct {
	maxDepth  int
	sessionID string
	logger    *slog.Logger
	handler   runtime.EventHandler
	decorator runtime.EventEmitterDecorator

	seq  runtime.SeqGen
	emit runtime.EventEmitter
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithMaxDepth bounds expression nesting. Non-positive values select
// expr.DefaultMaxDepth.
func WithMaxDepth(depth int) Option {
	return func(c *Calculator) {
		c.maxDepth = depth
	}
}

// WithLogger sets the logger used for debug output.
// If nil, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Calculator) {
		c.logger = logger
	}
}

// WithEventHandler receives every event the calculator emits.
func WithEventHandler(h runtime.EventHandler) Option {
	return func(c *Calculator) {
		c.handler = h
	}
}

// WithEmitterDecorator wraps the calculator's emitter, for example to stamp
// trace metadata on events before handlers see them.
func WithEmitterDecorator(d runtime.EventEmitterDecorator) Option {
	return func(c *Calculator) {
		c.decorator = d
	}
}

// WithSessionID tags emitted events with a session identifier.
func WithSessionID(id string) Option {
	return func(c *Calculator) {
		c.sessionID = id
	}
}

// New creates a Calculator.
func New(opts ...Option) *Calculator {
	c := &Calculator{}
	for _, opt := range opts {
		opt(c)
	}
	if c.maxDepth <= 0 {
		c.maxDepth = expr.DefaultMaxDepth
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	var emit runtime.EventEmitter = func(e runtime.Event) {
		if c.handler == nil {
			return
		}
		e.Seq = c.seq.Next()
		c.handler(e)
	}
	if c.decorator != nil {
		emit = c.decorator(emit)
	}
	c.emit = emit
	return c
}

// MaxDepth returns the nesting limit in effect.
func (c *Calculator) MaxDepth() int {
	return c.maxDepth
}

// SessionID returns the session identifier, empty if none was set.
func (c *Calculator) SessionID() string {
	return c.sessionID
}

// Emit forwards a caller-built event (such as session start and end)
// through the calculator's handler chain.
func (c *Calculator) Emit(e runtime.Event) {
	c.emit(e)
}

// Evaluate parses and evaluates source. Failures are *EvaluationError.
func (c *Calculator) Evaluate(source string) (float64, error) {
	evalID := runtime.NewEvalID()
	start := time.Now()

	c.emit(runtime.NewEvent(runtime.EventEvalStarted, c.sessionID).
		WithEval(evalID).
		WithPayload(runtime.PayloadSource, source))

	value, err := evaluate(source, c.maxDepth)
	elapsed := time.Since(start)

	if err != nil {
		stage, kind := StageParse, "syntax"
		var evalErr *EvaluationError
		if errors.As(err, &evalErr) {
			stage, kind = evalErr.Stage, evalErr.Kind()
		}
		c.logger.Debug("evaluation failed",
			"eval_id", evalID,
			"source", source,
			"stage", stage,
			"kind", kind,
			"error", err,
		)
		c.emit(runtime.NewEvent(runtime.EventEvalFailed, c.sessionID).
			WithEval(evalID).
			WithElapsed(elapsed).
			WithPayload(runtime.PayloadSource, source).
			WithPayload(runtime.PayloadStage, string(stage)).
			WithPayload(runtime.PayloadErrorKind, kind).
			WithPayload(runtime.PayloadError, err.Error()))
		return 0, err
	}

	c.logger.Debug("evaluation finished",
		"eval_id", evalID,
		"source", source,
		"result", value,
		"elapsed", elapsed,
	)
	c.emit(runtime.NewEvent(runtime.EventEvalFinished, c.sessionID).
		WithEval(evalID).
		WithElapsed(elapsed).
		WithPayload(runtime.PayloadSource, source).
		WithPayload(runtime.PayloadResult, value))
	return value, nil
}

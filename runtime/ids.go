package runtime

import "github.com/google/uuid"

// NewSessionID returns a unique identifier for a shell session.
func NewSessionID() string {
	return uuid.NewString()
}

// NewEvalID returns a unique identifier for a single evaluation.
func NewEvalID() string {
	return uuid.NewString()
}

package runtime

import (
	"testing"

	"github.com/google/uuid"
)

func TestNewSessionID(t *testing.T) {
	id1 := NewSessionID()
	id2 := NewSessionID()

	if id1 == "" {
		t.Error("NewSessionID() returned empty string")
	}
	if id1 == id2 {
		t.Error("NewSessionID() should return unique IDs")
	}
	if _, err := uuid.Parse(id1); err != nil {
		t.Errorf("NewSessionID() = %q is not a UUID: %v", id1, err)
	}
}

func TestNewEvalID(t *testing.T) {
	if NewEvalID() == NewEvalID() {
		t.Error("NewEvalID() should return unique IDs")
	}
}

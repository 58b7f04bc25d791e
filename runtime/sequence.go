package runtime

import "sync/atomic"

// SeqGen produces monotonically increasing sequence numbers.
// The zero value is ready to use and safe for concurrent use.
type SeqGen struct {
	counter atomic.Uint64
}

// Next returns the next sequence number (1-indexed).
func (s *SeqGen) Next() uint64 {
	return s.counter.Add(1)
}

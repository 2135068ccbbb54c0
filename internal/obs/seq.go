package obs

import "sync/atomic"

// Sequence hands out monotonically increasing event sequence numbers.
type Sequence struct {
	next uint64
}

// NewSequence returns a sequence whose first value is start+1.
func NewSequence(start uint64) *Sequence {
	return &Sequence{next: start}
}

// Next returns the next sequence number.
func (s *Sequence) Next() uint64 {
	if s == nil {
		return 0
	}
	return atomic.AddUint64(&s.next, 1)
}

// Last returns the most recently issued number, or the start value if none was issued.
func (s *Sequence) Last() uint64 {
	if s == nil {
		return 0
	}
	return atomic.LoadUint64(&s.next)
}

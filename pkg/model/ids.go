package model

import (
	"sync"
	"time"
)

// IDSource hands out element ids derived from the wall clock in
// milliseconds. Ids are strictly increasing for the lifetime of the source,
// even when several are requested within the same millisecond.
type IDSource struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

// NewIDSource returns a source using now as its clock. A nil clock falls
// back to time.Now.
func NewIDSource(now func() time.Time) *IDSource {
	if now == nil {
		now = time.Now
	}
	return &IDSource{now: now}
}

// Next returns the next id.
func (s *IDSource) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	candidate := s.now().UnixMilli()
	if candidate <= s.last {
		candidate = s.last + 1
	}
	s.last = candidate
	return candidate
}

// Observe raises the floor so future ids are greater than id.
func (s *IDSource) Observe(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id > s.last {
		s.last = id
	}
}

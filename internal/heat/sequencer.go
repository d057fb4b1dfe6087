package heat

import "sync"

// Sequencer hands out request generations and discards stale responses:
// a response is accepted only if no newer generation has been accepted.
type Sequencer struct {
	mu       sync.Mutex
	issued   uint64
	accepted uint64
}

// Next issues a new generation for an outgoing request
func (s *Sequencer) Next() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	return s.issued
}

// Accept reports whether the response for gen should be rendered and, if
// so, records it as the latest
func (s *Sequencer) Accept(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen == 0 || gen > s.issued || gen <= s.accepted {
		return false
	}
	s.accepted = gen
	return true
}

// Latest returns the newest issued generation
func (s *Sequencer) Latest() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issued
}

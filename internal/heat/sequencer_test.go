package heat

import (
	"sync"
	"testing"
)

func TestSequencerDiscardsStale(t *testing.T) {
	var s Sequencer
	first := s.Next()
	second := s.Next()

	if !s.Accept(second) {
		t.Fatal("newest response should be accepted")
	}
	if s.Accept(first) {
		t.Error("stale response arriving late should be discarded")
	}
	if s.Accept(second) {
		t.Error("the same generation should not be accepted twice")
	}
	if s.Accept(99) {
		t.Error("unissued generation should be rejected")
	}
	if s.Accept(0) {
		t.Error("zero generation should be rejected")
	}
}

func TestSequencerInOrder(t *testing.T) {
	var s Sequencer
	for i := 0; i < 5; i++ {
		if gen := s.Next(); !s.Accept(gen) {
			t.Fatalf("in-order generation %d rejected", gen)
		}
	}
	if s.Latest() != 5 {
		t.Errorf("Latest = %d, want 5", s.Latest())
	}
}

func TestSequencerConcurrent(t *testing.T) {
	var s Sequencer
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Accept(s.Next())
		}()
	}
	wg.Wait()
	if s.Latest() != 50 {
		t.Errorf("Latest = %d, want 50", s.Latest())
	}
}

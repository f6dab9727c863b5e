package progress

import "testing"

func TestStreamPublishAndDrain(t *testing.T) {
	s := New(4)
	for i := 0; i < 3; i++ {
		s.Publish(Event{Type: EventStep, Step: int64(i + 1)})
	}
	s.Publish(Event{Type: EventComplete, Iterations: 3})

	var got []int64
	for ev := range s.Events() {
		if ev.Type == EventStep {
			got = append(got, ev.Step)
		}
	}
	if len(got) != 3 {
		t.Fatalf("got %d step events, want 3", len(got))
	}
	for i, step := range got {
		if step != int64(i+1) {
			t.Fatalf("step %d = %d, want %d", i, step, i+1)
		}
	}
}

func TestStreamDropsOldestWhenFull(t *testing.T) {
	s := New(2)
	for i := 0; i < 5; i++ {
		s.Publish(Event{Type: EventStep, Step: int64(i + 1)})
	}
	if s.Dropped() != 3 {
		t.Fatalf("Dropped() = %d, want 3", s.Dropped())
	}

	s.Close()
	var got []int64
	for ev := range s.Events() {
		got = append(got, ev.Step)
	}
	if len(got) != 2 {
		t.Fatalf("got %d queued events, want 2", len(got))
	}
	if got[0] != 4 || got[1] != 5 {
		t.Fatalf("queued events = %v, want [4 5] (oldest dropped)", got)
	}
}

func TestStreamClosesOnCompleteAndRejectsFurtherPublish(t *testing.T) {
	s := New(4)
	s.Publish(Event{Type: EventStep, Step: 1})
	s.Publish(Event{Type: EventComplete})
	s.Publish(Event{Type: EventStep, Step: 2}) // must be a no-op, stream closed

	var got []Event
	for ev := range s.Events() {
		got = append(got, ev)
	}
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2 (step, complete)", len(got))
	}
	if got[1].Type != EventComplete {
		t.Fatalf("last event type = %v, want complete", got[1].Type)
	}
}

func TestStreamClosesOnError(t *testing.T) {
	s := New(4)
	s.Publish(Event{Type: EventError, Message: "no objective configured"})

	ev, ok := <-s.Events()
	if !ok || ev.Type != EventError {
		t.Fatalf("expected one error event, got ok=%v ev=%v", ok, ev)
	}
	if _, ok := <-s.Events(); ok {
		t.Fatal("expected channel to be closed after error event")
	}
}

func TestStreamCloseIsIdempotent(t *testing.T) {
	s := New(4)
	s.Close()
	s.Close() // must not panic on double close
	s.Publish(Event{Type: EventStep, Step: 1})
	if _, ok := <-s.Events(); ok {
		t.Fatal("expected no events on a pre-closed stream")
	}
}

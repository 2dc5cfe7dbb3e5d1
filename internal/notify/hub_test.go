package notify

import (
	"encoding/json"
	"testing"
)

type testSink struct {
	events []Event
	fail   bool
	closed bool
}

func (s *testSink) Send(ev Event) error {
	if s.fail {
		return errTest
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *testSink) Close() error {
	s.closed = true
	return nil
}

var errTest = &testErr{}

type testErr struct{}

func (*testErr) Error() string { return "test" }

func TestHub_SubscribePublishUnsubscribe(t *testing.T) {
	h := New()
	s1 := &testSink{}

	h.Subscribe(s1)
	h.Publish(Event{Key: "a", Version: 1, Value: json.RawMessage(`1`)})
	if len(s1.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(s1.events))
	}
	if s1.events[0].Key != "a" || s1.events[0].Version != 1 {
		t.Fatalf("unexpected event %+v", s1.events[0])
	}

	h.Unsubscribe(s1)
	h.Publish(Event{Key: "a", Version: 2})
	if len(s1.events) != 1 {
		t.Fatalf("expected no more events, got %d", len(s1.events))
	}
}

func TestHub_PublishOrder(t *testing.T) {
	h := New()
	s1 := &testSink{}
	h.Subscribe(s1)

	for i := int64(1); i <= 3; i++ {
		h.Publish(Event{Key: "a", Version: i})
	}
	if len(s1.events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(s1.events))
	}
	for i, ev := range s1.events {
		if ev.Version != int64(i+1) {
			t.Fatalf("expected version %d at position %d, got %d", i+1, i, ev.Version)
		}
	}
}

func TestHub_EvictsFailedSinks(t *testing.T) {
	h := New()
	bad := &testSink{fail: true}
	good := &testSink{}
	h.Subscribe(bad)
	h.Subscribe(good)

	h.Publish(Event{Key: "a", Version: 1})
	if !bad.closed {
		t.Fatalf("expected failed sink to be closed")
	}
	if len(good.events) != 1 {
		t.Fatalf("expected healthy sink to receive the event, got %d", len(good.events))
	}

	bad.fail = false
	h.Publish(Event{Key: "a", Version: 2})
	if len(bad.events) != 0 {
		t.Fatalf("expected evicted sink to receive nothing, got %d", len(bad.events))
	}
	if len(good.events) != 2 {
		t.Fatalf("expected 2 events on healthy sink, got %d", len(good.events))
	}
}

func TestFunc_AdaptsCallback(t *testing.T) {
	h := New()
	var got []Event
	sink := NewFunc(func(ev Event) { got = append(got, ev) })
	h.Subscribe(sink)

	h.Publish(Event{Key: "a", Version: 1})
	if len(got) != 1 || got[0].Key != "a" {
		t.Fatalf("expected callback to fire, got %v", got)
	}
}

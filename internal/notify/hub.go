package notify

import (
	"encoding/json"
	"sync"
)

// Event describes one committed store write.
type Event struct {
	Key     string          `json:"key"`
	Version int64           `json:"version"`
	Value   json.RawMessage `json:"value"`
}

// Sink receives committed events. A Sink whose Send fails is closed and
// evicted from the hub; a context that attaches later gets nothing
// retroactively and must re-read the store on attach.
type Sink interface {
	Send(Event) error
	Close() error
}

// Hub fans committed writes out to every live sink. Publish must be called
// in commit order by a single owner (the store serializes its writes), so
// sinks observe events in the order the underlying writes committed.
type Hub struct {
	mu    sync.RWMutex
	sinks map[Sink]struct{}
}

func New() *Hub {
	return &Hub{sinks: make(map[Sink]struct{})}
}

func (h *Hub) Subscribe(s Sink) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sinks[s] = struct{}{}
}

func (h *Hub) Unsubscribe(s Sink) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sinks, s)
}

func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	sinks := make([]Sink, 0, len(h.sinks))
	for s := range h.sinks {
		sinks = append(sinks, s)
	}
	h.mu.RUnlock()

	var failed []Sink
	for _, s := range sinks {
		if err := s.Send(ev); err != nil {
			failed = append(failed, s)
		}
	}
	for _, s := range failed {
		_ = s.Close()
		h.Unsubscribe(s)
	}
}

// Func adapts a callback to the Sink interface for in-process watchers.
// Subscribe keys sinks by identity, so the adapter is a pointer.
type Func struct {
	fn func(Event)
}

func NewFunc(fn func(Event)) *Func { return &Func{fn: fn} }

func (f *Func) Send(ev Event) error { f.fn(ev); return nil }
func (f *Func) Close() error        { return nil }

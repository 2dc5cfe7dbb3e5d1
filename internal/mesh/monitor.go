package mesh

import "sync"

// Monitor is the connectivity-mode signal. The app has no real link-state
// probe; the mode is toggled explicitly (airplane-mode switch in the UI)
// and observed by the message append path and the delivery simulator.
type Monitor struct {
	mu     sync.RWMutex
	online bool
	subs   []func(online bool)
}

func NewMonitor(online bool) *Monitor {
	return &Monitor{online: online}
}

func (m *Monitor) Online() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// SetOnline flips the connectivity mode and notifies subscribers when the
// mode actually changed.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	changed := m.online != online
	m.online = online
	subs := make([]func(bool), len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()

	if !changed {
		return
	}
	for _, fn := range subs {
		fn(online)
	}
}

// Notify registers a callback for connectivity changes. Callbacks run on
// the caller of SetOnline.
func (m *Monitor) Notify(fn func(online bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, fn)
}

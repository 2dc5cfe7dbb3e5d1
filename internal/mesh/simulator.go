package mesh

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"hillshield/internal/model"
	"hillshield/internal/store"
)

// Simulator stands in for a real mesh transport. It never moves bytes
// between devices: a mesh-queued message counts as propagated once
// connectivity is regained, or after a bounded propagation window while
// still offline. The window is a placeholder for peer hops, not a
// reliability promise.
type Simulator struct {
	store   *store.Store
	monitor *Monitor
	window  time.Duration
	log     *zap.Logger

	mu        sync.Mutex
	receivers []func(conversationID string, msg model.Message)

	stopOnce sync.Once
	done     chan struct{}
}

func NewSimulator(st *store.Store, monitor *Monitor, window time.Duration, log *zap.Logger) *Simulator {
	s := &Simulator{
		store:   st,
		monitor: monitor,
		window:  window,
		log:     log,
		done:    make(chan struct{}),
	}
	monitor.Notify(func(online bool) {
		if online {
			s.Sweep(time.Now().UnixMilli())
		}
	})
	return s
}

// Send accepts a persisted message for propagation. The simulator keeps no
// queue of its own: the message log is the queue, the sweep drains it.
func (s *Simulator) Send(conversationID string, msg model.Message) error {
	return nil
}

func (s *Simulator) OnReceive(fn func(conversationID string, msg model.Message)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receivers = append(s.receivers, fn)
}

// Start runs the periodic sweep until Stop.
func (s *Simulator) Start(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				s.Sweep(time.Now().UnixMilli())
			}
		}
	}()
}

func (s *Simulator) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

// Sweep marks every mesh-queued message that has propagated as delivered.
// A message has propagated when the device is back online, or when the
// propagation window elapsed since it was queued. Failed status writes are
// logged and left queued; the store only advances a status it persisted.
func (s *Simulator) Sweep(nowMillis int64) {
	conversations, err := s.store.Conversations()
	if err != nil {
		s.log.Warn("mesh sweep: list conversations", zap.Error(err))
		return
	}

	online := s.monitor.Online()
	for _, conv := range conversations {
		queued, err := s.store.MeshQueued(conv)
		if err != nil {
			s.log.Warn("mesh sweep: list queued", zap.String("conversation", conv), zap.Error(err))
			continue
		}
		for _, msg := range queued {
			if !online && nowMillis-msg.Timestamp < s.window.Milliseconds() {
				continue
			}
			delivered, err := s.store.UpdateMessageStatus(conv, msg.ID, model.MessageDelivered, nowMillis)
			if err != nil {
				s.log.Warn("mesh sweep: mark delivered",
					zap.String("conversation", conv), zap.String("id", msg.ID), zap.Error(err))
				continue
			}
			s.dispatch(conv, delivered)
		}
	}
}

func (s *Simulator) dispatch(conversationID string, msg model.Message) {
	s.mu.Lock()
	receivers := make([]func(string, model.Message), len(s.receivers))
	copy(receivers, s.receivers)
	s.mu.Unlock()

	for _, fn := range receivers {
		fn(conversationID, msg)
	}
}

package store

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"hillshield/internal/kvstore"
	"hillshield/internal/model"
)

// newMessageID builds a time-ordered id: creation timestamp first so the
// id itself breaks ordering ties deterministically, a uuid fragment after
// it so two messages in the same millisecond never collide.
func newMessageID(nowMillis int64) string {
	return fmt.Sprintf("%013d-%s", nowMillis, uuid.NewString()[:8])
}

func sortMessages(msgs []model.Message) {
	sort.Slice(msgs, func(i, j int) bool {
		if msgs[i].Timestamp != msgs[j].Timestamp {
			return msgs[i].Timestamp < msgs[j].Timestamp
		}
		return msgs[i].ID < msgs[j].ID
	})
}

// mergeMessages unions two logs by id, keeping creation order. For an id
// present in both, the remote copy wins: a status advanced elsewhere must
// not be rewound by a stale local copy.
func mergeMessages(remote, local []model.Message) []model.Message {
	seen := make(map[string]struct{}, len(remote))
	merged := make([]model.Message, 0, len(remote)+len(local))
	for _, m := range remote {
		seen[m.ID] = struct{}{}
		merged = append(merged, m)
	}
	for _, m := range local {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		merged = append(merged, m)
	}
	sortMessages(merged)
	return merged
}

// AppendMessage adds a message to a conversation log. Its initial status is
// sent when the context is online and mesh-queued when it is not. Appends
// race with other contexts writing the same log: on a version conflict the
// log is re-read, merged by id and retried once; a second conflict discards
// the local write (document-level last-writer-wins, the remote value
// stands) and returns kvstore.ErrConflict.
func (s *Store) AppendMessage(conversationID, senderID, senderName, text string, online bool, nowMillis int64) (model.Message, error) {
	if conversationID == "" || text == "" {
		return model.Message{}, ErrNotFound
	}

	status := model.MessageMeshQueued
	if online {
		status = model.MessageSent
	}
	msg := model.Message{
		ID:         newMessageID(nowMillis),
		SenderID:   senderID,
		SenderName: senderName,
		Text:       text,
		Timestamp:  nowMillis,
		Status:     status,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := messagesKey(conversationID)
	for attempt := 0; attempt < 2; attempt++ {
		var log []model.Message
		version, _, err := s.get(key, &log)
		if err != nil {
			return model.Message{}, err
		}
		merged := mergeMessages(log, []model.Message{msg})
		_, err = s.commitCAS(key, merged, version, nowMillis)
		if err == nil {
			return msg, nil
		}
		if !errors.Is(err, kvstore.ErrConflict) {
			return model.Message{}, err
		}
	}
	return model.Message{}, kvstore.ErrConflict
}

// ListMessages returns the conversation log in creation order, ties broken
// by id.
func (s *Store) ListMessages(conversationID string) ([]model.Message, error) {
	var log []model.Message
	if _, _, err := s.get(messagesKey(conversationID), &log); err != nil {
		return nil, err
	}
	sortMessages(log)
	return log, nil
}

// UpdateMessageStatus advances a message's delivery status. The only real
// transition is mesh-queued to delivered; calling it on a message already
// in a terminal state is a no-op that returns the message unchanged. The
// in-memory view is only updated once the write is durable, so a storage
// failure leaves the prior status in place.
func (s *Store) UpdateMessageStatus(conversationID, id string, status model.MessageStatus, nowMillis int64) (model.Message, error) {
	if status != model.MessageDelivered {
		return model.Message{}, fmt.Errorf("store: invalid status transition to %q", status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := messagesKey(conversationID)
	for attempt := 0; attempt < 2; attempt++ {
		var log []model.Message
		version, found, err := s.get(key, &log)
		if err != nil {
			return model.Message{}, err
		}
		if !found {
			return model.Message{}, ErrNotFound
		}

		idx := -1
		for i := range log {
			if log[i].ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return model.Message{}, ErrNotFound
		}
		if log[idx].Status.Terminal() {
			return log[idx], nil
		}

		log[idx].Status = status
		if _, err := s.commitCAS(key, log, version, nowMillis); err != nil {
			if errors.Is(err, kvstore.ErrConflict) {
				continue
			}
			return model.Message{}, err
		}
		return log[idx], nil
	}
	return model.Message{}, kvstore.ErrConflict
}

// MeshQueued lists every message still awaiting simulated propagation, for
// the delivery sweep.
func (s *Store) MeshQueued(conversationID string) ([]model.Message, error) {
	log, err := s.ListMessages(conversationID)
	if err != nil {
		return nil, err
	}
	queued := make([]model.Message, 0)
	for _, m := range log {
		if m.Status == model.MessageMeshQueued {
			queued = append(queued, m)
		}
	}
	return queued, nil
}

// Conversations lists every conversation id with a stored log.
func (s *Store) Conversations() ([]string, error) {
	keys, err := s.kv.Keys()
	if err != nil {
		return nil, err
	}
	const prefix = "messages:"
	ids := make([]string, 0)
	for _, k := range keys {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			ids = append(ids, k[len(prefix):])
		}
	}
	return ids, nil
}

package store

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"hillshield/internal/kvstore"
	"hillshield/internal/model"
	"hillshield/internal/notify"
)

const (
	keySession  = "session"
	keyAccounts = "accounts"
	keyAlerts   = "alerts"
)

var (
	ErrDuplicateHandle    = errors.New("handle already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoSession          = errors.New("no active session")
	ErrNotFound           = errors.New("not found")
)

// Store is the single owner of the shared persisted state. All writes are
// serialized through its mutex so the notifier observes them in commit
// order; nothing is cached in memory without being persisted first.
type Store struct {
	mu  sync.Mutex
	kv  kvstore.Store
	hub *notify.Hub
	log *zap.Logger
}

func New(kv kvstore.Store, hub *notify.Hub, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{kv: kv, hub: hub, log: log}
}

// Hub exposes the change notifier so gateways can attach sinks.
func (s *Store) Hub() *notify.Hub { return s.hub }

func messagesKey(conversationID string) string {
	return "messages:" + conversationID
}

func (s *Store) get(key string, out any) (int64, bool, error) {
	doc, found, err := s.kv.Get(key)
	if err != nil {
		return 0, false, err
	}
	if !found {
		return 0, false, nil
	}
	if err := json.Unmarshal(doc.Data, out); err != nil {
		return 0, false, fmt.Errorf("store: decode %s: %w", key, err)
	}
	return doc.Version, true, nil
}

// commit persists value under key and publishes the change. Callers must
// hold s.mu so publish order matches commit order.
func (s *Store) commit(key string, value any, nowMillis int64) (int64, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return 0, fmt.Errorf("store: encode %s: %w", key, err)
	}
	doc, err := s.kv.Put(key, data, nowMillis)
	if err != nil {
		return 0, err
	}
	s.publish(key, doc.Version, value)
	return doc.Version, nil
}

func (s *Store) commitCAS(key string, value any, expectedVersion, nowMillis int64) (int64, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return 0, fmt.Errorf("store: encode %s: %w", key, err)
	}
	doc, err := s.kv.CompareAndPut(key, data, expectedVersion, nowMillis)
	if err != nil {
		return 0, err
	}
	s.publish(key, doc.Version, value)
	return doc.Version, nil
}

// publish fans a committed write out to attached contexts. The published
// value is the redacted view, not the persisted bytes: credential material
// in the roster and session documents stays inside the store.
func (s *Store) publish(key string, version int64, value any) {
	data, err := json.Marshal(publishView(key, value))
	if err != nil {
		s.log.Warn("store: encode publish view", zap.String("key", key), zap.Error(err))
		return
	}
	s.hub.Publish(notify.Event{Key: key, Version: version, Value: data})
}

func publishView(key string, value any) any {
	switch key {
	case keyAccounts:
		roster, ok := value.([]model.Account)
		if !ok {
			return value
		}
		out := make([]model.Account, len(roster))
		copy(out, roster)
		for i := range out {
			out[i].SecretHash = ""
		}
		return out
	case keySession:
		sess, ok := value.(model.Session)
		if !ok {
			return value
		}
		sess.Account.SecretHash = ""
		sess.Token = ""
		return sess
	}
	return value
}

func hashSecret(secret string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	sum := sha256.Sum256(append(salt, []byte(secret)...))
	return hex.EncodeToString(salt) + "$" + hex.EncodeToString(sum[:]), nil
}

// verifySecret checks the presented secret against a stored salt$hash pair.
// The comparison is exact: any mismatch, malformed hash included, fails.
func verifySecret(stored, secret string) bool {
	var saltHex, hashHex string
	for i := 0; i < len(stored); i++ {
		if stored[i] == '$' {
			saltHex, hashHex = stored[:i], stored[i+1:]
			break
		}
	}
	if saltHex == "" || hashHex == "" {
		return false
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false
	}
	sum := sha256.Sum256(append(salt, []byte(secret)...))
	return subtle.ConstantTimeCompare([]byte(hex.EncodeToString(sum[:])), []byte(hashHex)) == 1
}

package kvstore

import (
	"encoding/json"
	"errors"
)

var (
	// ErrStorageUnavailable means the backing storage rejected or lost a
	// write. Callers must surface it; a mutation that hit this error was
	// not committed.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrConflict means another writer committed the document between this
	// writer's read and its CompareAndPut.
	ErrConflict = errors.New("concurrent write conflict")
)

// Document is the envelope every persisted value travels in. Version starts
// at 1 on first write and increments on every commit; it doubles as the
// compare-and-put token and as the schema tag for future migration.
type Document struct {
	Version   int64           `json:"version"`
	UpdatedAt int64           `json:"updatedAt"`
	Data      json.RawMessage `json:"data"`
}

// Store persists JSON documents under string keys. Puts are durable before
// they return: a successful Put survives a process restart, a failed Put
// left the previous value in place.
type Store interface {
	// Get returns the current document, or found=false when the key was
	// never written.
	Get(key string) (Document, bool, error)

	// Put overwrites whatever is stored under key and returns the committed
	// envelope.
	Put(key string, data json.RawMessage, nowMillis int64) (Document, error)

	// CompareAndPut commits only if the stored version equals
	// expectedVersion (0 for "key must not exist"). Returns ErrConflict
	// otherwise.
	CompareAndPut(key string, data json.RawMessage, expectedVersion int64, nowMillis int64) (Document, error)

	// Keys lists every key currently stored.
	Keys() ([]string, error)

	Close() error
}

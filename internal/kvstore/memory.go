package kvstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

const snapshotVersion = 1

// Memory keeps documents in process memory and, when a snapshot file is
// configured, rewrites it atomically on every commit so a restart resumes
// from the last successful Put.
type Memory struct {
	mu        sync.RWMutex
	docs      map[string]Document
	snapshot  string
	persistMu sync.Mutex
}

type snapshotFile struct {
	Version   int                 `json:"version"`
	Documents map[string]Document `json:"documents"`
	SavedAt   int64               `json:"savedAt"`
}

func NewMemory(snapshotPath string) (*Memory, error) {
	m := &Memory{
		docs:     make(map[string]Document),
		snapshot: snapshotPath,
	}
	if snapshotPath != "" {
		if err := m.load(snapshotPath); err != nil {
			return nil, fmt.Errorf("kvstore: load snapshot %s: %w", snapshotPath, err)
		}
	}
	return m, nil
}

func (m *Memory) load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if len(data) == 0 {
		return nil
	}

	var file snapshotFile
	if err := json.Unmarshal(data, &file); err != nil {
		return err
	}
	if file.Version != snapshotVersion {
		return fmt.Errorf("unsupported snapshot version %d", file.Version)
	}
	for key, doc := range file.Documents {
		if key == "" {
			continue
		}
		m.docs[key] = doc
	}
	return nil
}

func (m *Memory) Get(key string) (Document, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[key]
	return doc, ok, nil
}

func (m *Memory) Put(key string, data json.RawMessage, nowMillis int64) (Document, error) {
	m.mu.Lock()
	prev, hadPrev := m.docs[key]
	doc := Document{
		Version:   prev.Version + 1,
		UpdatedAt: nowMillis,
		Data:      append(json.RawMessage(nil), data...),
	}
	m.docs[key] = doc
	snap := m.snapshotLocked()
	// persistMu is taken before mu is released so snapshots reach the file
	// in commit order; a concurrent writer's older snapshot can never win
	// the final rename.
	m.persistMu.Lock()
	m.mu.Unlock()

	err := m.persist(snap, nowMillis)
	m.persistMu.Unlock()
	if err != nil {
		m.rollback(key, doc, prev, hadPrev)
		return Document{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return doc, nil
}

func (m *Memory) CompareAndPut(key string, data json.RawMessage, expectedVersion int64, nowMillis int64) (Document, error) {
	m.mu.Lock()
	prev, hadPrev := m.docs[key]
	if prev.Version != expectedVersion {
		m.mu.Unlock()
		return Document{}, ErrConflict
	}
	doc := Document{
		Version:   expectedVersion + 1,
		UpdatedAt: nowMillis,
		Data:      append(json.RawMessage(nil), data...),
	}
	m.docs[key] = doc
	snap := m.snapshotLocked()
	m.persistMu.Lock()
	m.mu.Unlock()

	err := m.persist(snap, nowMillis)
	m.persistMu.Unlock()
	if err != nil {
		m.rollback(key, doc, prev, hadPrev)
		return Document{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return doc, nil
}

// rollback restores the previous value after a failed persist, so memory
// never claims a commit that storage lost. The key is only touched if it
// still holds the failed write; a later writer's committed value stands.
func (m *Memory) rollback(key string, failed, prev Document, hadPrev bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.docs[key]
	if !ok || cur.Version != failed.Version {
		return
	}
	if hadPrev {
		m.docs[key] = prev
	} else {
		delete(m.docs, key)
	}
}

func (m *Memory) Keys() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.docs))
	for key := range m.docs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *Memory) Close() error { return nil }

// SnapshotPath returns the configured snapshot file, empty when the store
// is purely in-memory.
func (m *Memory) SnapshotPath() string { return m.snapshot }

func (m *Memory) snapshotLocked() map[string]Document {
	if m.snapshot == "" {
		return nil
	}
	out := make(map[string]Document, len(m.docs))
	for key, doc := range m.docs {
		out[key] = doc
	}
	return out
}

// persist writes the snapshot file. Callers hold persistMu.
func (m *Memory) persist(docs map[string]Document, nowMillis int64) error {
	if m.snapshot == "" || docs == nil {
		return nil
	}

	dir := filepath.Dir(m.snapshot)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	file := snapshotFile{Version: snapshotVersion, Documents: docs, SavedAt: nowMillis}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(dir, filepath.Base(m.snapshot)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, m.snapshot)
}

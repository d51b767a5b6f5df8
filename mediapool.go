package goslides

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// MediaPool is the content-addressed store of extracted and converted binary
// resources shared across a Presentation. Keys are derived from content, so
// extracting the same bytes twice yields one entry and the second extraction
// performs no disk write. The pool's on-disk form is the run directory's
// images/ subdirectory.
type MediaPool struct {
	dir string

	mu      sync.Mutex
	entries map[string][]byte
}

func newMediaPool(dir string) *MediaPool {
	return &MediaPool{
		dir:     dir,
		entries: make(map[string][]byte),
	}
}

// Dir returns the pool's backing directory.
func (m *MediaPool) Dir() string { return m.dir }

// Key computes the stable content key for the given bytes and extension.
func (m *MediaPool) Key(data []byte, ext string) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:]) + "." + strings.ToLower(strings.TrimPrefix(ext, "."))
}

// Put stores data under its content key and writes the backing file if it
// does not exist yet. Re-putting identical content is a no-op.
func (m *MediaPool) Put(data []byte, ext string) (string, error) {
	key := m.Key(data, ext)

	m.mu.Lock()
	_, known := m.entries[key]
	if !known {
		m.entries[key] = data
	}
	m.mu.Unlock()
	if known {
		return key, nil
	}

	path := filepath.Join(m.dir, key)
	if _, err := os.Stat(path); err == nil {
		return key, nil // already on disk from a previous session
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing media %s: %w", key, err)
	}
	return key, nil
}

// Get returns the bytes stored under key, loading from disk if the entry
// was written by a previous session.
func (m *MediaPool) Get(key string) ([]byte, error) {
	m.mu.Lock()
	data, ok := m.entries[key]
	m.mu.Unlock()
	if ok {
		return data, nil
	}
	data, err := os.ReadFile(filepath.Join(m.dir, key))
	if err != nil {
		return nil, fmt.Errorf("media key %s not in pool: %w", key, err)
	}
	m.mu.Lock()
	m.entries[key] = data
	m.mu.Unlock()
	return data, nil
}

// Has reports whether key resolves, either in memory or on disk.
func (m *MediaPool) Has(key string) bool {
	m.mu.Lock()
	_, ok := m.entries[key]
	m.mu.Unlock()
	if ok {
		return true
	}
	_, err := os.Stat(filepath.Join(m.dir, key))
	return err == nil
}

// Path returns the on-disk path for key.
func (m *MediaPool) Path(key string) string {
	return filepath.Join(m.dir, key)
}

// Ext returns the extension portion of a pool key.
func (m *MediaPool) Ext(key string) string {
	return strings.TrimPrefix(filepath.Ext(key), ".")
}

// Keys returns all in-memory keys in sorted order.
func (m *MediaPool) Keys() []string {
	m.mu.Lock()
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	m.mu.Unlock()
	sort.Strings(keys)
	return keys
}

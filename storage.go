package grimoire

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"sync"
)

type scriptStore struct {
	path  string
	data  map[string]any
	dirty bool
	mu    sync.Mutex
}

// storeSet holds one lazily loaded store per script. Files are named by a
// hash of name:author so renaming a script file keeps its data.
type storeSet struct {
	dir    string
	mu     sync.Mutex
	stores map[string]*scriptStore
}

func newStoreSet(dataDir string) *storeSet {
	return &storeSet{
		dir:    filepath.Join(dataDir, "storage"),
		stores: map[string]*scriptStore{},
	}
}

func (s *storeSet) get(owner, name, author string) *scriptStore {
	s.mu.Lock()
	ps, ok := s.stores[owner]
	if ok {
		s.mu.Unlock()
		return ps
	}
	sum := sha256.Sum256([]byte(name + ":" + author))
	file := hex.EncodeToString(sum[:]) + ".json"
	path := filepath.Join(s.dir, file)
	data := map[string]any{}
	if b, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(b, &data); err != nil {
			log.Printf("load script storage %s: %v", path, err)
		}
	}
	ps = &scriptStore{path: path, data: data}
	s.stores[owner] = ps
	s.mu.Unlock()
	return ps
}

// SaveAll writes every dirty store to disk.
func (s *storeSet) SaveAll() {
	s.mu.Lock()
	stores := make([]*scriptStore, 0, len(s.stores))
	for _, ps := range s.stores {
		stores = append(stores, ps)
	}
	s.mu.Unlock()
	for _, ps := range stores {
		ps.mu.Lock()
		if !ps.dirty {
			ps.mu.Unlock()
			continue
		}
		data, err := json.MarshalIndent(ps.data, "", "  ")
		if err != nil {
			ps.mu.Unlock()
			log.Printf("save script storage %s: %v", ps.path, err)
			continue
		}
		ps.dirty = false
		path := ps.path
		ps.mu.Unlock()
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			log.Printf("save script storage %s: %v", path, err)
			continue
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			log.Printf("save script storage %s: %v", path, err)
		}
	}
}

func (h *Host) storeFor(owner string) *scriptStore {
	h.mu.RLock()
	name := h.displayNames[owner]
	author := h.authors[owner]
	h.mu.RUnlock()
	return h.stores.get(owner, name, author)
}

// StorageGet returns the stored value for key, or nil.
func (h *Host) StorageGet(owner, key string) any {
	ps := h.storeFor(owner)
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.data[key]
}

// StorageSet stores value under key, marking the store dirty only when the
// value actually changed.
func (h *Host) StorageSet(owner, key string, value any) {
	ps := h.storeFor(owner)
	ps.mu.Lock()
	if old, ok := ps.data[key]; !ok || !reflect.DeepEqual(old, value) {
		if ps.data == nil {
			ps.data = make(map[string]any)
		}
		ps.data[key] = value
		ps.dirty = true
	}
	ps.mu.Unlock()
}

// StorageDelete removes key from owner's store.
func (h *Host) StorageDelete(owner, key string) {
	ps := h.storeFor(owner)
	ps.mu.Lock()
	if _, ok := ps.data[key]; ok {
		delete(ps.data, key)
		ps.dirty = true
	}
	ps.mu.Unlock()
}

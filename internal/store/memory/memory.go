// Package memory provides an in-process Tree used by tests and local
// development. It keeps one JSON value per path and counts operations so
// tests can assert that validation failures never reach the store.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"timelog/internal/store"
)

type Store struct {
	mu    sync.RWMutex
	nodes map[string]json.RawMessage

	reads, writes, deletes int64
}

func New() *Store {
	return &Store{nodes: make(map[string]json.RawMessage)}
}

func (s *Store) Read(ctx context.Context, path string) (store.Snapshot, error) {
	if err := store.ValidatePath(path); err != nil {
		return store.Snapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++

	if raw, ok := s.nodes[path]; ok {
		return store.NewSnapshot(raw), nil
	}

	prefix := path + "/"
	children := make(map[string]json.RawMessage)
	for p, raw := range s.nodes {
		if strings.HasPrefix(p, prefix) {
			children[strings.TrimPrefix(p, prefix)] = raw
		}
	}
	raw, err := store.Assemble(children)
	if err != nil {
		return store.Snapshot{}, err
	}
	return store.NewSnapshot(raw), nil
}

func (s *Store) Write(ctx context.Context, path string, value any) error {
	if err := store.ValidatePath(path); err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode value for %s: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++

	// Full-subtree replace: any previously stored descendants go away.
	s.removeSubtreeLocked(path)
	s.nodes[path] = raw
	return nil
}

func (s *Store) Delete(ctx context.Context, path string) error {
	if err := store.ValidatePath(path); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes++
	s.removeSubtreeLocked(path)
	return nil
}

func (s *Store) removeSubtreeLocked(path string) {
	delete(s.nodes, path)
	prefix := path + "/"
	for p := range s.nodes {
		if strings.HasPrefix(p, prefix) {
			delete(s.nodes, p)
		}
	}
}

// Counts reports how many reads, writes and deletes the store has served.
func (s *Store) Counts() (reads, writes, deletes int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reads, s.writes, s.deletes
}

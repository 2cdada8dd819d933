// Package memory provides an in-memory session store for development and
// testing.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/mailsift/bulk-verifier/internal/validation"
)

// Store keeps snapshots and rendered result tables in process memory. A
// single mutex guards the maps; per-session writes never interleave because
// each session has exactly one writer.
type Store struct {
	mu       sync.RWMutex
	progress map[string]validation.Snapshot
	results  map[string]map[validation.ResultKind][]byte
}

// New constructs a Store.
func New() *Store {
	return &Store{
		progress: make(map[string]validation.Snapshot),
		results:  make(map[string]map[validation.ResultKind][]byte),
	}
}

// WriteProgress replaces the snapshot for the session.
func (s *Store) WriteProgress(_ context.Context, snap validation.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress[snap.SessionID] = snap
	return nil
}

// ReadProgress returns the latest snapshot or validation.ErrNotFound.
func (s *Store) ReadProgress(_ context.Context, sessionID string) (validation.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.progress[sessionID]
	if !ok {
		return validation.Snapshot{}, validation.ErrNotFound
	}
	return snap, nil
}

// WriteResults renders and stores both partition tables.
func (s *Store) WriteResults(_ context.Context, sessionID string, valid, invalid []validation.ResultRow) error {
	validCSV, err := validation.EncodeCSV(validation.KindValid, valid)
	if err != nil {
		return err
	}
	invalidCSV, err := validation.EncodeCSV(validation.KindInvalid, invalid)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[sessionID] = map[validation.ResultKind][]byte{
		validation.KindValid:   validCSV,
		validation.KindInvalid: invalidCSV,
	}
	return nil
}

// ReadResultFile returns the rendered CSV for one partition.
func (s *Store) ReadResultFile(_ context.Context, sessionID string, kind validation.ResultKind) ([]byte, error) {
	if kind != validation.KindValid && kind != validation.KindInvalid {
		return nil, fmt.Errorf("%w: %q", validation.ErrInvalidKind, kind)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	tables, ok := s.results[sessionID]
	if !ok {
		return nil, validation.ErrNotFound
	}
	data, ok := tables[kind]
	if !ok {
		return nil, validation.ErrNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

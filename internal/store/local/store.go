// Package local implements a filesystem-backed session store.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mailsift/bulk-verifier/internal/validation"
)

// Config captures the parameters for the filesystem store.
type Config struct {
	// ResultsDir is the directory holding progress snapshots and result tables.
	ResultsDir string `mapstructure:"results_dir" yaml:"results_dir"`
}

// Store persists one progress record and two result tables per session,
// keyed by session id. Files are never cleaned up automatically.
type Store struct {
	dir string
}

// New creates the store, ensuring the results directory exists and is
// writable.
func New(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.ResultsDir) == "" {
		return nil, fmt.Errorf("results directory is required")
	}

	info, err := os.Stat(cfg.ResultsDir)
	switch {
	case err != nil && os.IsNotExist(err):
		if mkErr := os.MkdirAll(cfg.ResultsDir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("create results directory: %w", mkErr)
		}
	case err != nil:
		return nil, fmt.Errorf("stat results directory: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("results path is not a directory")
	}

	probe := filepath.Join(cfg.ResultsDir, ".writable_test")
	if err := os.WriteFile(probe, []byte("test"), 0o600); err != nil {
		return nil, fmt.Errorf("results directory is not writable: %w", err)
	}
	if err := os.Remove(probe); err != nil {
		return nil, fmt.Errorf("clean up probe file: %w", err)
	}

	return &Store{dir: cfg.ResultsDir}, nil
}

// WriteProgress replaces the snapshot file for the session. The write goes
// through a temp file and rename so polling readers never observe a partial
// snapshot.
func (s *Store) WriteProgress(_ context.Context, snap validation.Snapshot) error {
	path, err := s.sessionPath(snap.SessionID, "progress.json")
	if err != nil {
		return err
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}
	return nil
}

// ReadProgress loads the latest snapshot for the session.
func (s *Store) ReadProgress(_ context.Context, sessionID string) (validation.Snapshot, error) {
	path, err := s.sessionPath(sessionID, "progress.json")
	if err != nil {
		return validation.Snapshot{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return validation.Snapshot{}, validation.ErrNotFound
		}
		return validation.Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	var snap validation.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return validation.Snapshot{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return snap, nil
}

// WriteResults renders and persists both partition tables.
func (s *Store) WriteResults(_ context.Context, sessionID string, valid, invalid []validation.ResultRow) error {
	partitions := []struct {
		kind validation.ResultKind
		rows []validation.ResultRow
	}{
		{validation.KindValid, valid},
		{validation.KindInvalid, invalid},
	}
	for _, p := range partitions {
		path, err := s.sessionPath(sessionID, string(p.kind)+"_emails.csv")
		if err != nil {
			return err
		}
		data, err := validation.EncodeCSV(p.kind, p.rows)
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return fmt.Errorf("write %s results: %w", p.kind, err)
		}
	}
	return nil
}

// ReadResultFile returns the rendered CSV for one partition.
func (s *Store) ReadResultFile(_ context.Context, sessionID string, kind validation.ResultKind) ([]byte, error) {
	if kind != validation.KindValid && kind != validation.KindInvalid {
		return nil, fmt.Errorf("%w: %q", validation.ErrInvalidKind, kind)
	}
	path, err := s.sessionPath(sessionID, string(kind)+"_emails.csv")
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, validation.ErrNotFound
		}
		return nil, fmt.Errorf("read %s results: %w", kind, err)
	}
	return data, nil
}

// sessionPath joins the session-scoped filename under the results dir,
// rejecting ids that would escape it.
func (s *Store) sessionPath(sessionID, suffix string) (string, error) {
	if sessionID == "" || strings.ContainsAny(sessionID, `/\`) || strings.Contains(sessionID, "..") {
		return "", validation.ErrNotFound
	}
	full := filepath.Join(s.dir, fmt.Sprintf("%s_%s", sessionID, suffix))
	cleanDir := filepath.Clean(s.dir)
	if !strings.HasPrefix(filepath.Clean(full), cleanDir+string(filepath.Separator)) {
		return "", errors.New("path traversal detected")
	}
	return full, nil
}

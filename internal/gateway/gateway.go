// Package gateway composes extraction, the job runner, and the session store
// behind the operations the HTTP layer exposes.
package gateway

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/mailsift/bulk-verifier/internal/extract"
	"github.com/mailsift/bulk-verifier/internal/runner"
	"github.com/mailsift/bulk-verifier/internal/validation"
)

// Config controls gateway behavior.
type Config struct {
	// MaxEmails caps the number of addresses accepted per submission.
	MaxEmails int
	// UploadsDir, when set, receives an archived copy of each accepted
	// upload named <session>_<filename>.
	UploadsDir string
	// APIKeySet is reported through Limits.
	APIKeySet bool
}

// Receipt is the synchronous response to an accepted submission.
type Receipt struct {
	SessionID    string `json:"session_id"`
	Total        int    `json:"total"`
	ValidCount   int    `json:"valid_count"`
	InvalidCount int    `json:"invalid_count"`
	Limit        int    `json:"limit"`
}

// LimitInfo reports the process-wide submission limits.
type LimitInfo struct {
	MaxEmails int  `json:"max_emails"`
	APIKeySet bool `json:"api_key_set"`
}

// Service implements the job gateway operations.
type Service struct {
	store  validation.SessionStore
	runner *runner.Runner
	idGen  validation.IDGenerator
	clock  validation.Clock
	cfg    Config
	logger *zap.Logger
}

// New constructs a Service.
func New(
	store validation.SessionStore,
	run *runner.Runner,
	idGen validation.IDGenerator,
	clock validation.Clock,
	cfg Config,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:  store,
		runner: run,
		idGen:  idGen,
		clock:  clock,
		cfg:    cfg,
		logger: logger,
	}
}

// Submit validates the upload, extracts its addresses, creates the session,
// and launches background processing. It returns before any address is
// verified. Client input problems come back as validation.Err* values.
func (s *Service) Submit(ctx context.Context, filename string, content []byte) (Receipt, error) {
	if strings.TrimSpace(filename) == "" || len(content) == 0 {
		return Receipt{}, validation.ErrNoInput
	}

	format, err := extract.FormatFromFilename(filename)
	if err != nil {
		return Receipt{}, err
	}
	res, err := extract.Extract(bytes.NewReader(content), format, s.cfg.MaxEmails)
	if err != nil {
		return Receipt{}, err
	}
	if len(res.Addresses) == 0 {
		return Receipt{}, validation.ErrEmptyResult
	}
	// The limit check runs on the pre-truncation count: oversized uploads
	// are rejected outright, never silently trimmed.
	if res.TotalFound > s.cfg.MaxEmails {
		return Receipt{}, validation.TooManyEmails(res.TotalFound, s.cfg.MaxEmails)
	}

	sessionID, err := s.idGen.NewID()
	if err != nil {
		return Receipt{}, err
	}

	s.archiveUpload(sessionID, filename, content)

	snap := validation.Snapshot{
		SessionID: sessionID,
		Total:     len(res.Addresses),
		Processed: 0,
		Status:    validation.StatusProcessing,
		Limit:     s.cfg.MaxEmails,
		CreatedAt: s.clock.Now(),
	}
	if err := s.store.WriteProgress(ctx, snap); err != nil {
		return Receipt{}, err
	}

	// The session outlives the submitting request; the runner owns the
	// snapshot exclusively from here on.
	go s.runner.Run(context.Background(), snap, res.Addresses)

	return Receipt{
		SessionID: sessionID,
		Total:     snap.Total,
		Limit:     s.cfg.MaxEmails,
	}, nil
}

// Limits reports the configured submission ceiling and whether a
// verification credential is present.
func (s *Service) Limits() LimitInfo {
	return LimitInfo{MaxEmails: s.cfg.MaxEmails, APIKeySet: s.cfg.APIKeySet}
}

// Progress returns the latest persisted snapshot for the session.
func (s *Service) Progress(ctx context.Context, sessionID string) (validation.Snapshot, error) {
	return s.store.ReadProgress(ctx, sessionID)
}

// Download returns the rendered CSV for one result partition.
func (s *Service) Download(ctx context.Context, sessionID, kind string) ([]byte, error) {
	parsed, err := validation.ParseKind(kind)
	if err != nil {
		return nil, err
	}
	return s.store.ReadResultFile(ctx, sessionID, parsed)
}

// archiveUpload keeps a copy of the raw upload for auditing. Failures are
// logged and do not block the submission.
func (s *Service) archiveUpload(sessionID, filename string, content []byte) {
	if s.cfg.UploadsDir == "" {
		return
	}
	name := sessionID + "_" + sanitizeFilename(filename)
	path := filepath.Join(s.cfg.UploadsDir, name)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		s.logger.Warn("upload archive failed",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
	}
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func sanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	safe := unsafeFilenameChars.ReplaceAllString(base, "_")
	if safe == "" || safe == "." || safe == ".." {
		return "upload"
	}
	return safe
}

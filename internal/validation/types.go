// Package validation defines the domain types and interfaces shared by the
// extraction, verification, runner, and store components.
package validation

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// SessionStatus tracks the lifecycle of a validation session.
type SessionStatus string

// Supported session statuses. A session moves from processing to complete
// exactly once and is never deleted.
const (
	StatusProcessing SessionStatus = "processing"
	StatusComplete   SessionStatus = "complete"
)

// Sentinel outcome statuses. Remote responses may carry additional
// free-text statuses (e.g. "invalid", "unknown", "accept_all"); only these
// two have semantics in this codebase.
const (
	OutcomeValid = "valid"
	OutcomeError = "error"

	// OutcomeUnknown is substituted when the remote response omits a result.
	OutcomeUnknown = "unknown"
)

// Outcome is the result of verifying a single email address.
type Outcome struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// Snapshot is the complete progress state for a session. Writers always
// supply the full snapshot; stores overwrite, never merge.
type Snapshot struct {
	SessionID    string        `json:"session_id"`
	Total        int           `json:"total"`
	Processed    int           `json:"processed"`
	Percentage   float64       `json:"percentage"`
	Status       SessionStatus `json:"status"`
	Limit        int           `json:"limit"`
	CreatedAt    time.Time     `json:"created_at"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
	ValidCount   *int          `json:"valid_count,omitempty"`
	InvalidCount *int          `json:"invalid_count,omitempty"`
}

// ResultRow is one line of a result partition table.
type ResultRow struct {
	Email  string
	Status string
	Reason string
}

// ResultKind identifies one of the two result partitions.
type ResultKind string

// Recognized partitions.
const (
	KindValid   ResultKind = "valid"
	KindInvalid ResultKind = "invalid"
)

// ParseKind converts a raw string into a ResultKind.
func ParseKind(s string) (ResultKind, error) {
	switch ResultKind(s) {
	case KindValid:
		return KindValid, nil
	case KindInvalid:
		return KindInvalid, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
}

// Errors surfaced to the gateway and its callers.
var (
	ErrNotFound      = errors.New("session not found")
	ErrInvalidKind   = errors.New("invalid result kind")
	ErrNoInput       = errors.New("no file uploaded")
	ErrEmptyResult   = errors.New("no email addresses found in the file")
	ErrTooManyEmails = errors.New("too many emails")
)

// TooManyEmails builds the client-facing over-limit error.
func TooManyEmails(count, limit int) error {
	return fmt.Errorf("%w: file contains %d emails, maximum allowed is %d", ErrTooManyEmails, count, limit)
}

// SessionStore persists progress snapshots and result partitions keyed by
// session id. Implementations must serialize concurrent access internally;
// callers guarantee that only one goroutine writes a given session.
type SessionStore interface {
	// WriteProgress replaces the stored snapshot for snap.SessionID.
	WriteProgress(ctx context.Context, snap Snapshot) error
	// ReadProgress returns the latest snapshot or ErrNotFound.
	ReadProgress(ctx context.Context, sessionID string) (Snapshot, error)
	// WriteResults persists both partition tables for the session.
	WriteResults(ctx context.Context, sessionID string, valid, invalid []ResultRow) error
	// ReadResultFile returns the rendered CSV for one partition, or
	// ErrInvalidKind / ErrNotFound.
	ReadResultFile(ctx context.Context, sessionID string, kind ResultKind) ([]byte, error)
}

// Verifier checks a single address against the remote verification service.
// Verify is total: transport failures are reported through the Outcome, never
// as an error.
type Verifier interface {
	Verify(ctx context.Context, email string) Outcome
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// IDGenerator mints opaque session ids.
type IDGenerator interface {
	NewID() (string, error)
}

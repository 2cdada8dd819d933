package local

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mailsift/bulk-verifier/internal/validation"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Config{ResultsDir: t.TempDir()})
	require.NoError(t, err)
	return s
}

func TestNewRequiresDir(t *testing.T) {
	t.Parallel()

	_, err := New(Config{})
	require.Error(t, err)

	_, err = New(Config{ResultsDir: "   "})
	require.Error(t, err)
}

func TestNewCreatesMissingDir(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "results")
	_, err := New(Config{ResultsDir: dir})
	require.NoError(t, err)
}

func TestProgressRoundTrip(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	snap := validation.Snapshot{
		SessionID:  "sess-1",
		Total:      10,
		Processed:  3,
		Percentage: 30,
		Status:     validation.StatusProcessing,
		Limit:      100,
	}
	require.NoError(t, s.WriteProgress(ctx, snap))

	got, err := s.ReadProgress(ctx, "sess-1")
	require.NoError(t, err)
	require.Equal(t, snap, got)

	// Overwrite replaces the whole snapshot, nothing is merged.
	vc, ic := 7, 3
	snap.Processed = 10
	snap.Percentage = 100
	snap.Status = validation.StatusComplete
	snap.ValidCount = &vc
	snap.InvalidCount = &ic
	require.NoError(t, s.WriteProgress(ctx, snap))

	got, err = s.ReadProgress(ctx, "sess-1")
	require.NoError(t, err)
	require.Equal(t, validation.StatusComplete, got.Status)
	require.NotNil(t, got.ValidCount)
	require.Equal(t, 7, *got.ValidCount)
}

func TestReadProgressNotFound(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	_, err := s.ReadProgress(context.Background(), "missing")
	require.ErrorIs(t, err, validation.ErrNotFound)
}

func TestWriteResultsAndRead(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	valid := []validation.ResultRow{{Email: "a@x.com", Status: "valid"}}
	invalid := []validation.ResultRow{{Email: "b@x.com", Status: "error", Reason: "timeout"}}
	require.NoError(t, s.WriteResults(ctx, "sess-2", valid, invalid))

	data, err := s.ReadResultFile(ctx, "sess-2", validation.KindValid)
	require.NoError(t, err)
	require.Equal(t, "Email,Status\na@x.com,valid\n", string(data))

	data, err = s.ReadResultFile(ctx, "sess-2", validation.KindInvalid)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "Email,Status,Reason\n"))
	require.Contains(t, string(data), "b@x.com,error,timeout")
}

func TestWriteResultsEmptyPartitionsKeepHeaders(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.WriteResults(ctx, "sess-3", nil, nil))

	data, err := s.ReadResultFile(ctx, "sess-3", validation.KindValid)
	require.NoError(t, err)
	require.Equal(t, "Email,Status\n", string(data))
}

func TestReadResultFileErrors(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.ReadResultFile(ctx, "sess-4", validation.ResultKind("bogus"))
	require.ErrorIs(t, err, validation.ErrInvalidKind)

	_, err = s.ReadResultFile(ctx, "sess-4", validation.KindValid)
	require.ErrorIs(t, err, validation.ErrNotFound)
}

func TestSessionIDTraversalRejected(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.ReadProgress(ctx, "../escape")
	require.ErrorIs(t, err, validation.ErrNotFound)

	err = s.WriteProgress(ctx, validation.Snapshot{SessionID: "a/b"})
	require.ErrorIs(t, err, validation.ErrNotFound)
}

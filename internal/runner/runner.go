// Package runner executes the per-session verification loop.
package runner

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mailsift/bulk-verifier/internal/metrics"
	"github.com/mailsift/bulk-verifier/internal/validation"
)

const defaultRatePerSecond = 10

// Config controls Runner behavior.
type Config struct {
	// RatePerSecond caps verification calls per session via a token bucket.
	RatePerSecond float64
}

// Runner drives a session from its first verification to the final snapshot.
// Each session gets exactly one Run invocation on its own goroutine; the
// runner is the sole writer of that session's store state.
type Runner struct {
	store    validation.SessionStore
	verifier validation.Verifier
	clock    validation.Clock
	cfg      Config
	logger   *zap.Logger
}

// New constructs a Runner.
func New(
	store validation.SessionStore,
	verifier validation.Verifier,
	clock validation.Clock,
	cfg Config,
	logger *zap.Logger,
) *Runner {
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = defaultRatePerSecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		store:    store,
		verifier: verifier,
		clock:    clock,
		cfg:      cfg,
		logger:   logger,
	}
}

// Run verifies every address in order, persisting a full snapshot after each
// one, then partitions the outcomes and writes the terminal snapshot. There
// is no job-level failure: per-address errors are recorded as outcomes and
// the loop continues. The caller supplies the initial snapshot it already
// persisted at submission time.
func (r *Runner) Run(ctx context.Context, snap validation.Snapshot, emails []string) {
	metrics.IncActiveJobs()
	defer metrics.DecActiveJobs()

	log := r.logger.With(zap.String("session_id", snap.SessionID))
	log.Info("session started", zap.Int("total", snap.Total))

	// Burst of one: the first call proceeds immediately, subsequent calls
	// are paced at the configured rate.
	limiter := rate.NewLimiter(rate.Limit(r.cfg.RatePerSecond), 1)

	outcomes := make(map[string]validation.Outcome, len(emails))
	for i, email := range emails {
		if err := limiter.Wait(ctx); err != nil {
			log.Warn("pacing wait interrupted", zap.Error(err))
		}

		start := r.clock.Now()
		out := r.verifier.Verify(ctx, email)
		metrics.ObserveVerification(out.Status, r.clock.Now().Sub(start))

		// Last write wins for duplicate addresses; every position still
		// counts toward processed.
		outcomes[email] = out

		snap.Processed = i + 1
		snap.Percentage = float64(snap.Processed) / float64(snap.Total) * 100
		if err := r.store.WriteProgress(ctx, snap); err != nil {
			log.Error("progress write failed", zap.Error(err))
		}
	}

	valid, invalid := validation.Partition(emails, outcomes)
	if err := r.store.WriteResults(ctx, snap.SessionID, valid, invalid); err != nil {
		log.Error("results write failed", zap.Error(err))
	}

	validCount, invalidCount := len(valid), len(invalid)
	completedAt := r.clock.Now()
	snap.Status = validation.StatusComplete
	snap.CompletedAt = &completedAt
	snap.ValidCount = &validCount
	snap.InvalidCount = &invalidCount
	if err := r.store.WriteProgress(ctx, snap); err != nil {
		log.Error("final progress write failed", zap.Error(err))
	}

	metrics.ObserveJob(string(validation.StatusComplete))
	log.Info("session complete",
		zap.Int("valid", validCount),
		zap.Int("invalid", invalidCount),
	)
}

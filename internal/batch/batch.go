// Package batch verifies many documents concurrently from a manifest.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/MeKo-Tech/idcheck/internal/acquire"
	"github.com/MeKo-Tech/idcheck/internal/verify"
)

// Verifier is the part of *verify.Verifier a batch needs.
type Verifier interface {
	Verify(ctx context.Context, req verify.Request) (*verify.Verdict, error)
}

// Runner runs cases through a verifier. Each case gets its own recognizer
// through the verifier's factory, so cases never share OCR state.
type Runner struct {
	verifier Verifier
	loader   *acquire.Loader
	config   Config
	logger   *slog.Logger
}

// NewRunner creates a runner; a nil logger uses slog.Default().
func NewRunner(v Verifier, config Config, logger *slog.Logger) *Runner {
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		verifier: v,
		loader:   acquire.NewLoader(config.MaxImageWidth),
		config:   config,
		logger:   logger,
	}
}

// Run verifies cases with at most Workers in flight. Without
// ContinueOnError the first failing case cancels the rest and its error is
// returned.
func (r *Runner) Run(ctx context.Context, cases []Case) (*Result, error) {
	if len(cases) == 0 {
		return nil, errors.New("no cases to process")
	}

	result := &Result{
		RunID:       uuid.NewString(),
		Results:     make([]CaseResult, len(cases)),
		WorkerCount: r.config.Workers,
	}
	logger := r.logger.With("run_id", result.RunID)
	logger.Info("Batch started", "cases", len(cases), "workers", r.config.Workers)

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.Workers)
	for i, c := range cases {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := r.runCase(gctx, c)
			result.Results[i] = res
			if res.Error == "" {
				logger.Debug("Case verified", "case", c.ID, "status", res.Status(), "duration", res.Duration)
				return nil
			}
			logger.Warn("Case failed", "case", c.ID, "error", res.Error)
			if r.config.ContinueOnError {
				return nil
			}
			return fmt.Errorf("case %s: %s", c.ID, res.Error)
		})
	}
	err := g.Wait()
	result.Duration = time.Since(start)
	if err != nil {
		return nil, err
	}

	s := result.Stats()
	logger.Info("Batch finished",
		"verified", s.Verified,
		"rejected", s.Rejected,
		"expired", s.Expired,
		"failed", s.Failed,
		"duration", result.Duration)
	return result, nil
}

// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultPeriodRefresh runs the period cache refresh daily at 03:00.
const DefaultPeriodRefresh = "0 3 * * *"

// PeriodRefresher recomputes the cached period summaries.
type PeriodRefresher interface {
	RefreshCache(ctx context.Context) error
}

// RuleReloader reloads the categorization rule snapshot.
type RuleReloader interface {
	Invalidate(ctx context.Context) error
}

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron    *cron.Cron
	periods PeriodRefresher
	rules   RuleReloader // optional
	spec    string
	timeout time.Duration
	logger  *slog.Logger
}

// NewScheduler creates a new job scheduler. An empty spec uses
// DefaultPeriodRefresh. Jobs run in loc.
func NewScheduler(periods PeriodRefresher, rules RuleReloader, spec string, loc *time.Location, logger *slog.Logger) *Scheduler {
	if spec == "" {
		spec = DefaultPeriodRefresh
	}
	if loc == nil {
		loc = time.Local
	}
	// Create cron with seconds disabled (standard 5-field format)
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	return &Scheduler{
		cron:    c,
		periods: periods,
		rules:   rules,
		spec:    spec,
		timeout: 5 * time.Minute,
		logger:  logger,
	}
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.refresh); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
		slog.String("period_refresh", s.spec),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs. The returned context is done
// once running jobs have finished.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow triggers the refresh synchronously.
func (s *Scheduler) RunNow() {
	s.refresh()
}

// refresh reloads rules, then recomputes the current and previous periods.
func (s *Scheduler) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	if s.rules != nil {
		if err := s.rules.Invalidate(ctx); err != nil {
			s.logger.Warn("failed to reload categorization rules", slog.Any("error", err))
		}
	}

	if err := s.periods.RefreshCache(ctx); err != nil {
		s.logger.Error("period cache refresh failed", slog.Any("error", err))
		return
	}
	s.logger.Info("scheduled refresh completed", slog.Duration("took", time.Since(start)))
}

// Package jobs runs periodic background work on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"time"

	"karmafeed/internal/models"
	"karmafeed/internal/notifications"
	"karmafeed/internal/observability"

	"github.com/robfig/cron/v3"
)

const leaderboardJob = "leaderboard_broadcast"

// LeaderboardSource computes the current leaderboard.
type LeaderboardSource interface {
	TopKarma(ctx context.Context, window time.Duration, k int) ([]models.LeaderboardEntry, error)
	Defaults() (time.Duration, int)
}

// LeaderboardPublisher delivers a leaderboard to live clients.
type LeaderboardPublisher interface {
	PublishLeaderboard(ctx context.Context, ev notifications.LeaderboardUpdated) error
}

// Scheduler pushes the default leaderboard to live clients on a schedule.
type Scheduler struct {
	cron      *cron.Cron
	spec      string
	source    LeaderboardSource
	publisher LeaderboardPublisher
}

// NewScheduler creates a UTC scheduler; spec is a cron expression such as "@every 1m".
func NewScheduler(spec string, source LeaderboardSource, publisher LeaderboardPublisher) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithLocation(time.UTC)),
		spec:      spec,
		source:    source,
		publisher: publisher,
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() {
		_ = s.BroadcastLeaderboard(ctx)
	}); err != nil {
		return fmt.Errorf("schedule %s %q: %w", leaderboardJob, s.spec, err)
	}

	s.cron.Start()
	observability.GlobalLogger.InfoContext(ctx, "job scheduler started", "job", leaderboardJob, "spec", s.spec)
	return nil
}

// BroadcastLeaderboard computes the default leaderboard and publishes it once.
func (s *Scheduler) BroadcastLeaderboard(ctx context.Context) error {
	window, limit := s.source.Defaults()

	entries, err := s.source.TopKarma(ctx, window, limit)
	if err == nil {
		err = s.publisher.PublishLeaderboard(ctx, notifications.LeaderboardUpdated{
			Window:  window.String(),
			Limit:   limit,
			Entries: entries,
		})
	}

	observability.LogJobRun(ctx, leaderboardJob, err, map[string]interface{}{"entries": len(entries)})
	return err
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	observability.GlobalLogger.Info("job scheduler stopped")
}

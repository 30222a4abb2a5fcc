package service

import (
	"context"
	"time"

	"karmafeed/internal/models"
	"karmafeed/internal/observability"
	"karmafeed/internal/repository"

	"github.com/prometheus/client_golang/prometheus"
)

const MaxLeaderboardLimit = 100

// LeaderboardService ranks actors by karma earned inside a trailing window.
type LeaderboardService struct {
	karmaRepo     repository.KarmaRepository
	userRepo      repository.UserRepository
	defaultWindow time.Duration
	defaultLimit  int
	now           func() time.Time
}

func NewLeaderboardService(
	karmaRepo repository.KarmaRepository,
	userRepo repository.UserRepository,
	defaultWindow time.Duration,
	defaultLimit int,
) *LeaderboardService {
	if defaultWindow <= 0 {
		defaultWindow = 24 * time.Hour
	}
	if defaultLimit <= 0 {
		defaultLimit = 5
	}
	return &LeaderboardService{
		karmaRepo:     karmaRepo,
		userRepo:      userRepo,
		defaultWindow: defaultWindow,
		defaultLimit:  defaultLimit,
		now:           time.Now,
	}
}

// WithClock replaces the time source used to anchor windows.
func (s *LeaderboardService) WithClock(now func() time.Time) *LeaderboardService {
	s.now = now
	return s
}

// Defaults returns the window and limit used when a caller passes zero values.
func (s *LeaderboardService) Defaults() (time.Duration, int) {
	return s.defaultWindow, s.defaultLimit
}

// TopKarma returns at most k actors ranked by net karma from events created
// at or after now-window. Actors whose net is zero are omitted; ties go to
// the lower actor id. Zero values select the defaults.
func (s *LeaderboardService) TopKarma(ctx context.Context, window time.Duration, k int) ([]models.LeaderboardEntry, error) {
	if window == 0 {
		window = s.defaultWindow
	}
	if k == 0 {
		k = s.defaultLimit
	}
	if window < 0 {
		return nil, models.NewValidationError("window must be positive")
	}
	if k < 0 {
		return nil, models.NewValidationError("limit must be positive")
	}
	if k > MaxLeaderboardLimit {
		k = MaxLeaderboardLimit
	}

	timer := prometheus.NewTimer(observability.LeaderboardComputeLatency)
	defer timer.ObserveDuration()

	since := s.now().Add(-window)
	totals, err := s.karmaRepo.TopKarma(ctx, since, k)
	if err != nil {
		return nil, storeError(err)
	}

	entries := make([]models.LeaderboardEntry, 0, len(totals))
	for _, t := range totals {
		entries = append(entries, models.LeaderboardEntry{
			User:  models.UserSummary{ID: t.BeneficiaryID, Username: t.Username},
			Karma: t.Karma,
		})
	}
	return entries, nil
}

// ActorKarma returns an actor's all-time karma and karma inside the window.
func (s *LeaderboardService) ActorKarma(ctx context.Context, actorID uint, window time.Duration) (*models.ActorKarma, error) {
	if window == 0 {
		window = s.defaultWindow
	}
	if window < 0 {
		return nil, models.NewValidationError("window must be positive")
	}

	user, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return nil, lookupError(err, "User", actorID)
	}

	allTime, err := s.karmaRepo.ActorKarma(ctx, actorID, nil)
	if err != nil {
		return nil, storeError(err)
	}
	since := s.now().Add(-window)
	windowed, err := s.karmaRepo.ActorKarma(ctx, actorID, &since)
	if err != nil {
		return nil, storeError(err)
	}

	return &models.ActorKarma{
		User:     user.Summary(),
		AllTime:  allTime,
		Windowed: windowed,
		Window:   window.String(),
	}, nil
}

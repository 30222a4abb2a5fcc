package server

import (
	"context"
	"log"

	"karmafeed/internal/featureflags"
	"karmafeed/internal/notifications"
	"karmafeed/internal/service"
)

// publishLikeOutcome announces a committed like state change. No-op
// transitions publish nothing, nor do actors outside the live_events rollout.
// Delivery is best effort and never fails the request.
func (s *Server) publishLikeOutcome(ctx context.Context, actorID uint, out *service.LikeOutcome) {
	if s.notifier == nil || out == nil || !out.Changed {
		return
	}
	if !s.featureFlags.Enabled(featureflags.LiveEvents, actorID) {
		return
	}
	ctx = context.WithoutCancel(ctx)

	if err := s.notifier.PublishLikeUpdated(ctx, notifications.LikeUpdated{
		Target:    out.Kind,
		TargetID:  out.TargetID,
		ActorID:   actorID,
		Liked:     out.Liked,
		LikeCount: out.LikeCount,
	}); err != nil {
		log.Printf("failed to publish %s event for %s %d: %v",
			notifications.EventLikeUpdated, out.Kind, out.TargetID, err)
	}

	if out.Event == nil {
		return
	}
	if err := s.notifier.PublishKarmaChanged(ctx, notifications.KarmaChanged{
		UserID:    out.BeneficiaryID,
		Delta:     out.Event.Delta,
		EventType: out.Event.EventType,
	}); err != nil {
		log.Printf("failed to publish %s event to user %d: %v",
			notifications.EventKarmaChanged, out.BeneficiaryID, err)
	}
}

package notifications

import (
	"encoding/json"
	"fmt"

	"karmafeed/internal/models"
)

// Event types delivered on the live stream.
const (
	EventLikeUpdated        = "like_updated"
	EventKarmaChanged       = "karma_changed"
	EventLeaderboardUpdated = "leaderboard_updated"
	EventMessagesDropped    = "messages_dropped"
)

// Envelope is the wire shape of every live event.
type Envelope struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// LikeUpdated announces a target's like count after a state change.
type LikeUpdated struct {
	Target    models.TargetKind `json:"target"`
	TargetID  uint              `json:"target_id"`
	ActorID   uint              `json:"actor_id"`
	Liked     bool              `json:"liked"`
	LikeCount int64             `json:"like_count"`
}

// KarmaChanged tells a beneficiary about a new ledger entry.
type KarmaChanged struct {
	UserID    uint                  `json:"user_id"`
	Delta     int                   `json:"delta"`
	EventType models.KarmaEventType `json:"event_type"`
}

// LeaderboardUpdated carries a freshly computed leaderboard.
type LeaderboardUpdated struct {
	Window  string                    `json:"window"`
	Limit   int                       `json:"limit"`
	Entries []models.LeaderboardEntry `json:"entries"`
}

func encode(eventType string, payload interface{}) (string, error) {
	b, err := json.Marshal(Envelope{Type: eventType, Payload: payload})
	if err != nil {
		return "", fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	return string(b), nil
}

package models

import (
	"fmt"
	"time"
)

// KarmaEventType names the action that produced a ledger entry.
type KarmaEventType string

const (
	EventPostLike      KarmaEventType = "post_like"
	EventPostUnlike    KarmaEventType = "post_unlike"
	EventCommentLike   KarmaEventType = "comment_like"
	EventCommentUnlike KarmaEventType = "comment_unlike"
)

// KarmaEvent is one append-only karma ledger entry.
// Exactly one of PostID and CommentID is set.
type KarmaEvent struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	BeneficiaryID uint           `gorm:"not null;index:idx_karma_beneficiary_created,priority:1" json:"beneficiary_id"`
	Beneficiary   *User          `gorm:"foreignKey:BeneficiaryID;constraint:OnDelete:CASCADE" json:"-"`
	ActorID       uint           `gorm:"not null;index" json:"actor_id"`
	Actor         *User          `gorm:"foreignKey:ActorID;constraint:OnDelete:CASCADE" json:"-"`
	EventType     KarmaEventType `gorm:"size:32;not null" json:"event_type"`
	Delta         int            `gorm:"not null" json:"delta"`
	PostID        *uint          `gorm:"index;check:karmaevent_exactly_one_target,(post_id IS NOT NULL AND comment_id IS NULL) OR (post_id IS NULL AND comment_id IS NOT NULL)" json:"post_id,omitempty"`
	CommentID     *uint          `gorm:"index" json:"comment_id,omitempty"`
	CauseLikeID   uint           `gorm:"not null" json:"-"`
	CreatedAt     time.Time      `gorm:"not null;index;index:idx_karma_beneficiary_created,priority:2" json:"created_at"`
}

// NewKarmaEvent builds the ledger entry for a like (liked=true) or its compensation.
func NewKarmaEvent(kind TargetKind, liked bool, beneficiaryID, actorID, targetID, likeID uint) (*KarmaEvent, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown target kind %q", kind)
	}

	ev := &KarmaEvent{
		BeneficiaryID: beneficiaryID,
		ActorID:       actorID,
		Delta:         kind.Reward(),
		CauseLikeID:   likeID,
	}
	if !liked {
		ev.Delta = -ev.Delta
	}

	id := targetID
	switch {
	case kind == TargetPost && liked:
		ev.EventType, ev.PostID = EventPostLike, &id
	case kind == TargetPost:
		ev.EventType, ev.PostID = EventPostUnlike, &id
	case liked:
		ev.EventType, ev.CommentID = EventCommentLike, &id
	default:
		ev.EventType, ev.CommentID = EventCommentUnlike, &id
	}
	return ev, nil
}

// KarmaTotal is one aggregated row of the windowed karma query.
type KarmaTotal struct {
	BeneficiaryID uint
	Username      string
	Karma         int64
}

// LeaderboardEntry is one ranked actor in a leaderboard response.
type LeaderboardEntry struct {
	User  UserSummary `json:"user"`
	Karma int64       `json:"karma"`
}

// ActorKarma is an actor's all-time and windowed karma.
type ActorKarma struct {
	User     UserSummary `json:"user"`
	AllTime  int64       `json:"all_time"`
	Windowed int64       `json:"windowed"`
	Window   string      `json:"window"`
}

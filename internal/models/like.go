package models

import "time"

// TargetKind identifies what a like points at.
type TargetKind string

const (
	TargetPost    TargetKind = "post"
	TargetComment TargetKind = "comment"
)

// Valid reports whether k is a known target kind.
func (k TargetKind) Valid() bool {
	return k == TargetPost || k == TargetComment
}

// Reward is the karma credited to the target's owner for one like.
func (k TargetKind) Reward() int {
	switch k {
	case TargetPost:
		return 5
	case TargetComment:
		return 1
	default:
		return 0
	}
}

// PostLike records that an actor likes a post.
// The combination of PostID and UserID is unique.
type PostLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;uniqueIndex:uniq_post_like,priority:1" json:"post_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:uniq_post_like,priority:2;index" json:"user_id"`
	Post      *Post     `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// CommentLike records that an actor likes a comment.
// The combination of CommentID and UserID is unique.
type CommentLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CommentID uint      `gorm:"not null;uniqueIndex:uniq_comment_like,priority:1" json:"comment_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:uniq_comment_like,priority:2;index" json:"user_id"`
	Comment   *Comment  `gorm:"foreignKey:CommentID;constraint:OnDelete:CASCADE" json:"-"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// LikeState is the post-operation view returned by like and unlike.
type LikeState struct {
	Liked     bool  `json:"liked"`
	LikeCount int64 `json:"like_count"`
}

package models

import "time"

// Post is an immutable authored text item.
type Post struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	Body   string `gorm:"type:text;not null" json:"body"`
	UserID uint   `gorm:"not null;index" json:"-"`
	User   User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"author"`
	// LikeCount is not persisted; computed at query time
	LikeCount int64 `gorm:"->;-:migration" json:"like_count"`
	// CommentCount is not persisted; computed at query time
	CommentCount int64 `gorm:"->;-:migration" json:"comment_count"`
	// LikedByMe indicates whether the requesting actor liked this post (computed)
	LikedByMe bool      `gorm:"->;-:migration" json:"liked_by_me"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// PostDetail is a post together with its materialized comment forest.
type PostDetail struct {
	ID        uint           `json:"id"`
	Body      string         `json:"body"`
	Author    UserSummary    `json:"author"`
	CreatedAt time.Time      `json:"created_at"`
	LikeCount int64          `json:"like_count"`
	LikedByMe bool           `json:"liked_by_me"`
	Comments  []*CommentNode `json:"comments"`
}

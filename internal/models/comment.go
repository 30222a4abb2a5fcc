package models

import "time"

// Comment is a reply to a post, optionally nested under another comment of the same post.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	PostID    uint      `gorm:"not null;index:idx_comments_post_created,priority:1" json:"post_id"`
	Post      *Post     `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	UserID    uint      `gorm:"not null;index" json:"-"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"author"`
	ParentID  *uint     `gorm:"index" json:"parent_id"`
	Parent    *Comment  `gorm:"foreignKey:ParentID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `gorm:"index:idx_comments_post_created,priority:2" json:"created_at"`
}

// CommentRow is one flat row of the single comment-tree query.
type CommentRow struct {
	ID        uint
	PostID    uint
	ParentID  *uint
	Body      string
	UserID    uint
	Username  string
	CreatedAt time.Time
	LikeCount int64
	LikedByMe bool
}

// CommentNode is a comment in a materialized reply forest.
type CommentNode struct {
	ID        uint           `json:"id"`
	Body      string         `json:"body"`
	Author    UserSummary    `json:"author"`
	ParentID  *uint          `json:"parent_id"`
	CreatedAt time.Time      `json:"created_at"`
	LikeCount int64          `json:"like_count"`
	LikedByMe bool           `json:"liked_by_me"`
	Children  []*CommentNode `json:"children"`
}

// NewCommentNode converts a fetched row into a childless node.
func NewCommentNode(r CommentRow) *CommentNode {
	return &CommentNode{
		ID:        r.ID,
		Body:      r.Body,
		Author:    UserSummary{ID: r.UserID, Username: r.Username},
		ParentID:  r.ParentID,
		CreatedAt: r.CreatedAt,
		LikeCount: r.LikeCount,
		LikedByMe: r.LikedByMe,
		Children:  []*CommentNode{},
	}
}

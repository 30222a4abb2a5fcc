// Package models contains data structures for the application's domain models.
package models

import "time"

// User is an actor in the feed. Actors are provisioned on first reference by username.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:150;uniqueIndex;not null" json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// UserSummary is the compact author/beneficiary shape embedded in responses.
type UserSummary struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

// Summary returns the compact form of the user.
func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username}
}

package models

import "time"

// Follow is a directed edge: User receives Author's posts in their feed.
type Follow struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_follow_pair;not null" json:"user_id"`
	AuthorID  uint      `gorm:"uniqueIndex:idx_follow_pair;index;not null" json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
	User      User      `gorm:"foreignKey:UserID" json:"-"`
	Author    User      `gorm:"foreignKey:AuthorID" json:"author"`
}

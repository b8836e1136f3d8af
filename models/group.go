package models

import "regexp"

var slugPattern = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

// Group is a topic posts can optionally belong to. Groups are created by administrators and never edited.
type Group struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Title       string `gorm:"size:200;not null" json:"title"`
	Slug        string `gorm:"size:50;uniqueIndex;not null" json:"slug"`
	Description string `gorm:"type:text" json:"description"`
}

func (g Group) String() string {
	return g.Title
}

// ValidSlug reports whether s can be used as a group slug.
func ValidSlug(s string) bool {
	return len(s) <= 50 && slugPattern.MatchString(s)
}

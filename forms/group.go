package forms

import (
	"strings"

	"github.com/freemirror/yatube/models"
)

// GroupForm creates a group from the admin tooling.
type GroupForm struct {
	Title       string `form:"title" json:"title"`
	Slug        string `form:"slug" json:"slug"`
	Description string `form:"description" json:"description"`
}

func (f *GroupForm) Validate() error {
	verr := &ValidationError{}
	f.Title = strings.TrimSpace(f.Title)
	f.Slug = strings.TrimSpace(f.Slug)
	f.Description = strings.TrimSpace(f.Description)

	if f.Title == "" || len([]rune(f.Title)) > 200 {
		verr.Add("title", "the title must be 1 to 200 characters long")
	}
	if !models.ValidSlug(f.Slug) {
		verr.Add("slug", "enter a valid slug: letters, digits, underscores or hyphens, at most 50 characters")
	}
	return verr.OrNil()
}

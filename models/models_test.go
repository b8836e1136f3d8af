package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	assert.Equal(t, "Кошки и собаки ", Post{Text: "Кошки и собаки во дворе"}.String())
	assert.Equal(t, "short", Post{Text: "short"}.String())
	assert.Equal(t, "exactly fifteen", Comment{Text: "exactly fifteen chars"}.String())
	assert.Equal(t, "Cats", Group{Title: "Cats", Slug: "cats"}.String())
	assert.Equal(t, "leo", User{Username: "leo"}.String())
}

func TestValidSlug(t *testing.T) {
	for _, ok := range []string{"cats", "cats-and_dogs", "A1", strings.Repeat("a", 50)} {
		assert.True(t, ValidSlug(ok), ok)
	}
	for _, bad := range []string{"", "with space", "slash/", "котики", strings.Repeat("a", 51)} {
		assert.False(t, ValidSlug(bad), bad)
	}
}

func TestAllModels(t *testing.T) {
	assert.Len(t, All(), 5)
}

package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/freemirror/yatube/forms"
	"github.com/freemirror/yatube/models"
)

// GroupService creates and removes groups. Groups are never updated.
type GroupService struct {
	db      *gorm.DB
	deleter *Deleter
}

func NewGroupService(db *gorm.DB, deleter *Deleter) *GroupService {
	return &GroupService{db: db, deleter: deleter}
}

// List returns every group ordered by title.
func (s *GroupService) List(ctx context.Context) ([]models.Group, error) {
	groups := []models.Group{}
	err := s.db.WithContext(ctx).Order("title").Find(&groups).Error
	return groups, err
}

// Create validates form and inserts the group.
func (s *GroupService) Create(ctx context.Context, form *forms.GroupForm) (models.Group, error) {
	if err := form.Validate(); err != nil {
		return models.Group{}, err
	}
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Group{}).Where("slug = ?", form.Slug).Count(&n).Error; err != nil {
		return models.Group{}, fmt.Errorf("check slug: %w", err)
	}
	if n > 0 {
		return models.Group{}, fmt.Errorf("group %q: %w", form.Slug, ErrSlugTaken)
	}
	group := models.Group{Title: form.Title, Slug: form.Slug, Description: form.Description}
	if err := s.db.WithContext(ctx).Create(&group).Error; err != nil {
		return models.Group{}, fmt.Errorf("create group: %w", err)
	}
	return group, nil
}

// Delete removes the group by slug. Its posts stay, without a group.
func (s *GroupService) Delete(ctx context.Context, slug string) error {
	var group models.Group
	err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&group).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("group %q: %w", slug, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("load group: %w", err)
	}
	return s.deleter.Delete(ctx, "groups", group.ID)
}

package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/freemirror/yatube/models"
)

// FollowService maintains follow edges and builds the personal feed.
type FollowService struct {
	db      *gorm.DB
	listing *Listing
}

func NewFollowService(db *gorm.DB, listing *Listing) *FollowService {
	return &FollowService{db: db, listing: listing}
}

// Follow makes userID follow authorID. Following twice keeps a single edge.
func (s *FollowService) Follow(ctx context.Context, userID, authorID uint) error {
	edge := models.Follow{UserID: userID, AuthorID: authorID}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}, {Name: "author_id"}}, DoNothing: true}).
		Create(&edge).Error
	if err != nil {
		return fmt.Errorf("follow: %w", err)
	}
	return nil
}

// Unfollow removes the edge. Removing a missing edge is a no-op.
func (s *FollowService) Unfollow(ctx context.Context, userID, authorID uint) error {
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Delete(&models.Follow{}).Error
	if err != nil {
		return fmt.Errorf("unfollow: %w", err)
	}
	return nil
}

func (s *FollowService) IsFollowing(ctx context.Context, userID, authorID uint) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Follow{}).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Count(&n).Error
	return n > 0, err
}

// FollowingIDs returns the authors userID follows.
func (s *FollowService) FollowingIDs(ctx context.Context, userID uint) ([]uint, error) {
	ids := []uint{}
	err := s.db.WithContext(ctx).Model(&models.Follow{}).
		Where("user_id = ?", userID).
		Order("author_id").
		Pluck("author_id", &ids).Error
	return ids, err
}

// FeedFor is the paginated listing of posts by authors userID follows.
func (s *FollowService) FeedFor(ctx context.Context, userID uint, page string) (PostPage, error) {
	return s.listing.Followed(ctx, userID, page)
}

package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/freemirror/yatube/models"
)

// PostPage is one page of a post listing, newest first.
type PostPage struct {
	Items      []models.Post `json:"items"`
	Pagination Pagination    `json:"pagination"`
}

// Profile is an author as shown above their listing.
type Profile struct {
	Author    models.User `json:"author"`
	PostCount int64       `json:"post_count"`
	Followers int64       `json:"followers"`
	Following bool        `json:"following"`
}

// Listing serves paginated post listings.
type Listing struct {
	db *gorm.DB
}

func NewListing(db *gorm.DB) *Listing {
	return &Listing{db: db}
}

type scope func(*gorm.DB) *gorm.DB

// Index lists every post.
func (l *Listing) Index(ctx context.Context, page string) (PostPage, error) {
	return l.list(ctx, nil, page)
}

// ByGroup lists the posts of the group with slug. Posts without a group never appear here.
func (l *Listing) ByGroup(ctx context.Context, slug, page string) (models.Group, PostPage, error) {
	var group models.Group
	if err := l.db.WithContext(ctx).Where("slug = ?", slug).First(&group).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return group, PostPage{}, fmt.Errorf("group %q: %w", slug, ErrNotFound)
		}
		return group, PostPage{}, fmt.Errorf("load group: %w", err)
	}
	result, err := l.list(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("group_id = ?", group.ID)
	}, page)
	return group, result, err
}

// ByAuthor lists the posts of username. viewerID 0 means anonymous.
func (l *Listing) ByAuthor(ctx context.Context, username, page string, viewerID uint) (Profile, PostPage, error) {
	var profile Profile
	db := l.db.WithContext(ctx)
	if err := db.Where("username = ?", username).First(&profile.Author).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return profile, PostPage{}, fmt.Errorf("author %q: %w", username, ErrNotFound)
		}
		return profile, PostPage{}, fmt.Errorf("load author: %w", err)
	}

	authorID := profile.Author.ID
	result, err := l.list(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("author_id = ?", authorID)
	}, page)
	if err != nil {
		return profile, result, err
	}
	profile.PostCount = result.Pagination.Total

	if err := db.Model(&models.Follow{}).Where("author_id = ?", authorID).Count(&profile.Followers).Error; err != nil {
		return profile, result, fmt.Errorf("count followers: %w", err)
	}
	if viewerID != 0 {
		var n int64
		if err := db.Model(&models.Follow{}).Where("user_id = ? AND author_id = ?", viewerID, authorID).Count(&n).Error; err != nil {
			return profile, result, fmt.Errorf("check follow: %w", err)
		}
		profile.Following = n > 0
	}
	return profile, result, nil
}

// Followed lists posts by the authors userID follows.
func (l *Listing) Followed(ctx context.Context, userID uint, page string) (PostPage, error) {
	return l.list(ctx, func(q *gorm.DB) *gorm.DB {
		sub := l.db.WithContext(ctx).Model(&models.Follow{}).Select("author_id").Where("user_id = ?", userID)
		return q.Where("author_id IN (?)", sub)
	}, page)
}

// Post loads one post with its author, group and comments (oldest comment first).
func (l *Listing) Post(ctx context.Context, id uint) (models.Post, error) {
	var post models.Post
	err := l.db.WithContext(ctx).
		Preload("Author").
		Preload("Group").
		Preload("Comments", func(q *gorm.DB) *gorm.DB { return q.Order("created_at ASC").Order("id ASC") }).
		Preload("Comments.Author").
		First(&post, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return post, fmt.Errorf("post %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return post, fmt.Errorf("load post: %w", err)
	}
	return post, nil
}

// AuthorPostCount returns how many posts authorID has published.
func (l *Listing) AuthorPostCount(ctx context.Context, authorID uint) (int64, error) {
	var n int64
	err := l.db.WithContext(ctx).Model(&models.Post{}).Where("author_id = ?", authorID).Count(&n).Error
	return n, err
}

// list applies filter to separate count and page queries so neither leaks clauses into the other.
func (l *Listing) list(ctx context.Context, filter scope, rawPage string) (PostPage, error) {
	base := func() *gorm.DB {
		q := l.db.WithContext(ctx).Model(&models.Post{})
		if filter != nil {
			q = filter(q)
		}
		return q
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return PostPage{}, fmt.Errorf("count posts: %w", err)
	}
	p := NewPagination(rawPage, total, PageSize)

	posts := []models.Post{}
	err := base().
		Preload("Author").
		Preload("Group").
		Order("created_at DESC").
		Order("id DESC").
		Offset(p.Offset()).
		Limit(p.PageSize).
		Find(&posts).Error
	if err != nil {
		return PostPage{}, fmt.Errorf("list posts: %w", err)
	}
	return PostPage{Items: posts, Pagination: p}, nil
}

package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/freemirror/yatube/forms"
	"github.com/freemirror/yatube/models"
	"github.com/freemirror/yatube/storage"
	"github.com/freemirror/yatube/utils"
)

// PostService is the write path for posts and comments. Forms must be validated before they get here.
type PostService struct {
	db      *gorm.DB
	files   storage.Storage
	deleter *Deleter
}

func NewPostService(db *gorm.DB, files storage.Storage, deleter *Deleter) *PostService {
	return &PostService{db: db, files: files, deleter: deleter}
}

// Get loads a post without relations.
func (s *PostService) Get(ctx context.Context, id uint) (models.Post, error) {
	var post models.Post
	err := s.db.WithContext(ctx).First(&post, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return post, fmt.Errorf("post %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return post, fmt.Errorf("load post: %w", err)
	}
	return post, nil
}

// Create publishes a post by authorID. The image, if any, is stored first and removed again if the insert fails.
func (s *PostService) Create(ctx context.Context, authorID uint, form *forms.PostForm) (models.Post, error) {
	image, err := s.saveUpload(ctx, form.Upload())
	if err != nil {
		return models.Post{}, err
	}

	post := models.Post{
		Text:     form.Text,
		AuthorID: authorID,
		GroupID:  form.GroupID(),
		Image:    image,
	}
	if err := s.db.WithContext(ctx).Create(&post).Error; err != nil {
		s.removeImage(ctx, image)
		return models.Post{}, fmt.Errorf("create post: %w", err)
	}
	return post, nil
}

// Update replaces text and group, and the image when a new one was uploaded.
func (s *PostService) Update(ctx context.Context, post *models.Post, form *forms.PostForm) error {
	image, err := s.saveUpload(ctx, form.Upload())
	if err != nil {
		return err
	}

	values := map[string]interface{}{
		"text":     form.Text,
		"group_id": form.GroupID(),
	}
	oldImage := ""
	if image != "" {
		values["image"] = image
		oldImage = post.Image
	}
	if err := s.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", post.ID).Updates(values).Error; err != nil {
		s.removeImage(ctx, image)
		return fmt.Errorf("update post: %w", err)
	}

	post.Text = form.Text
	post.GroupID = form.GroupID()
	if image != "" {
		post.Image = image
		s.removeImage(ctx, oldImage)
	}
	return nil
}

// Delete removes the post, its comments and its image.
func (s *PostService) Delete(ctx context.Context, postID uint) error {
	return s.deleter.Delete(ctx, "posts", postID)
}

// AddComment attaches a comment by authorID to postID.
func (s *PostService) AddComment(ctx context.Context, postID, authorID uint, form *forms.CommentForm) (models.Comment, error) {
	if _, err := s.Get(ctx, postID); err != nil {
		return models.Comment{}, err
	}
	comment := models.Comment{PostID: postID, AuthorID: authorID, Text: form.Text}
	if err := s.db.WithContext(ctx).Create(&comment).Error; err != nil {
		return models.Comment{}, fmt.Errorf("create comment: %w", err)
	}
	return comment, nil
}

func (s *PostService) saveUpload(ctx context.Context, up *forms.Upload) (string, error) {
	if up == nil {
		return "", nil
	}
	if s.files == nil {
		return "", errors.New("image uploads are not configured")
	}
	name, err := s.files.Save(ctx, up.Name, bytes.NewReader(up.Data), int64(len(up.Data)), up.ContentType)
	if err != nil {
		return "", fmt.Errorf("save image: %w", err)
	}
	return name, nil
}

func (s *PostService) removeImage(ctx context.Context, name string) {
	if name == "" || s.files == nil {
		return
	}
	if err := s.files.Delete(ctx, name); err != nil {
		utils.Sugar.Warnf("failed to remove image %s: %v", name, err)
	}
}

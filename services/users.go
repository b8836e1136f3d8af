package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/freemirror/yatube/forms"
	"github.com/freemirror/yatube/models"
	"github.com/freemirror/yatube/utils"
)

// UserService handles local accounts.
type UserService struct {
	db      *gorm.DB
	deleter *Deleter
}

func NewUserService(db *gorm.DB, deleter *Deleter) *UserService {
	return &UserService{db: db, deleter: deleter}
}

// Register creates an account from a validated signup form.
func (s *UserService) Register(ctx context.Context, form *forms.SignupForm) (models.User, error) {
	if _, err := s.ByUsername(ctx, form.Username); err == nil {
		return models.User{}, ErrUsernameTaken
	} else if !errors.Is(err, ErrNotFound) {
		return models.User{}, err
	}

	hash, err := utils.HashPassword(form.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}
	user := models.User{Username: form.Username, Email: form.Email, PasswordHash: hash}
	if err := s.insert(ctx, &user); err != nil {
		return models.User{}, err
	}
	return user, nil
}

// insert creates the row. A concurrent signup that won the unique index gives ErrUsernameTaken.
func (s *UserService) insert(ctx context.Context, user *models.User) error {
	err := s.db.WithContext(ctx).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
		return ErrUsernameTaken
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// isUniqueViolation matches the driver messages for drivers that do not translate errors.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate entry") ||
		strings.Contains(msg, "duplicate key")
}

// Authenticate checks credentials. Unknown users and wrong passwords give the same error.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (models.User, error) {
	user, err := s.ByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		return models.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, err
	}
	if !utils.CheckPassword(user.PasswordHash, password) {
		return models.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// ByID loads a user by primary key.
func (s *UserService) ByID(ctx context.Context, id uint) (models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return user, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return user, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

func (s *UserService) ByUsername(ctx context.Context, username string) (models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return user, fmt.Errorf("user %q: %w", username, ErrNotFound)
	}
	if err != nil {
		return user, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

// Delete removes the user and, through Ownership, their posts, comments and follow edges.
func (s *UserService) Delete(ctx context.Context, username string) error {
	user, err := s.ByUsername(ctx, username)
	if err != nil {
		return err
	}
	return s.deleter.Delete(ctx, "users", user.ID)
}

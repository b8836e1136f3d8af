// Package testutil holds database and fixture helpers shared by package tests.
package testutil

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/freemirror/yatube/config"
	"github.com/freemirror/yatube/models"
	"github.com/freemirror/yatube/utils"
)

// JWTSecret signs tokens in tests.
const JWTSecret = "test-secret"

// SmallGIF is a valid 2x1 gif.
var SmallGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x02, 0x00,
	0x01, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xFF, 0xFF, 0xFF, 0x21, 0xF9, 0x04, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x2C, 0x00, 0x00, 0x00, 0x00,
	0x02, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x0C,
	0x0A, 0x00, 0x3B,
}

// Config returns a complete configuration pointing at dir, and installs it as the global config.
func Config(t testing.TB, dir string) config.AppConfig {
	t.Helper()
	cfg := config.AppConfig{
		JWTSecret:     JWTSecret,
		DBDriver:      "sqlite",
		DatabaseURI:   filepath.Join(dir, "yatube.db"),
		CacheDriver:   "memory",
		StorageDriver: "local",
		MediaRoot:     filepath.Join(dir, "media"),
		LogLevel:      "silent",
		GinMode:       "test",
		GinPath:       filepath.Join(dir, "gin.log"),
	}
	cfg, err := config.WithDefaults(cfg)
	require.NoError(t, err)
	config.Set(cfg)
	return cfg
}

// NewDB opens a migrated SQLite database in a temporary directory.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	return OpenDB(t, Config(t, t.TempDir()))
}

// OpenDB opens and migrates the database cfg points at. It is closed when the test ends.
func OpenDB(t testing.TB, cfg config.AppConfig) *gorm.DB {
	t.Helper()
	db, err := config.OpenDatabase(cfg)
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// CreateUser inserts a user whose password is "password".
func CreateUser(t testing.TB, db *gorm.DB, username string) models.User {
	t.Helper()
	hash, err := utils.HashPassword("password")
	require.NoError(t, err)
	u := models.User{Username: username, Email: username + "@example.com", PasswordHash: hash}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func CreateGroup(t testing.TB, db *gorm.DB, title, slug string) models.Group {
	t.Helper()
	g := models.Group{Title: title, Slug: slug, Description: "Test description"}
	require.NoError(t, db.Create(&g).Error)
	return g
}

// CreatePost inserts a post; group may be nil.
func CreatePost(t testing.TB, db *gorm.DB, author models.User, group *models.Group, text string) models.Post {
	t.Helper()
	p := models.Post{Text: text, AuthorID: author.ID}
	if group != nil {
		p.GroupID = &group.ID
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

// CreatePostAt inserts a post with an explicit publication time.
func CreatePostAt(t testing.TB, db *gorm.DB, author models.User, text string, at time.Time) models.Post {
	t.Helper()
	p := models.Post{Text: text, AuthorID: author.ID, CreatedAt: at}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func CreateComment(t testing.TB, db *gorm.DB, author models.User, post models.Post, text string) models.Comment {
	t.Helper()
	c := models.Comment{Text: text, AuthorID: author.ID, PostID: post.ID}
	require.NoError(t, db.Create(&c).Error)
	return c
}

func CreateFollow(t testing.TB, db *gorm.DB, user, author models.User) models.Follow {
	t.Helper()
	f := models.Follow{UserID: user.ID, AuthorID: author.ID}
	require.NoError(t, db.Create(&f).Error)
	return f
}

// Token issues a session token for u.
func Token(t testing.TB, u models.User) string {
	t.Helper()
	token, err := utils.GenerateToken(u.ID, u.Username, time.Hour)
	require.NoError(t, err)
	return token
}

// Multipart builds a multipart body with the given fields and an optional file field.
func Multipart(t testing.TB, fields map[string]string, fileField, fileName string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileField != "" {
		fw, err := w.CreateFormFile(fileField, fileName)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

// MultipartFile returns a parsed *multipart.FileHeader for use with forms directly.
func MultipartFile(t testing.TB, field, fileName string, data []byte) *multipart.FileHeader {
	t.Helper()
	body, contentType := Multipart(t, nil, field, fileName, data)
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", contentType)
	require.NoError(t, req.ParseMultipartForm(1<<20))
	files := req.MultipartForm.File[field]
	require.Len(t, files, 1)
	return files[0]
}

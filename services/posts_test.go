package services

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freemirror/yatube/forms"
	"github.com/freemirror/yatube/models"
	"github.com/freemirror/yatube/storage"
	"github.com/freemirror/yatube/testutil"
)

func newPostService(t *testing.T) (*PostService, *storage.LocalStorage) {
	t.Helper()
	db := testutil.NewDB(t)
	files, err := storage.NewLocalStorage(t.TempDir(), "/media/")
	require.NoError(t, err)
	return NewPostService(db, files, NewDeleter(db, files)), files
}

func TestPostService_CreateWithGroupAndImage(t *testing.T) {
	s, files := newPostService(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, s.db, "author")
	g := testutil.CreateGroup(t, s.db, "Cats", "cats")

	form := forms.PostForm{
		Text:  "Тестовый пост",
		Group: forms.FlexID(strconv.Itoa(int(g.ID))),
		Image: testutil.MultipartFile(t, "image", "small.gif", testutil.SmallGIF),
	}
	require.NoError(t, form.Validate(ctx, s.db, 1<<20))

	post, err := s.Create(ctx, author.ID, &form)
	require.NoError(t, err)
	assert.NotZero(t, post.ID)
	assert.False(t, post.CreatedAt.IsZero())
	assert.Equal(t, "posts/small.gif", post.Image)
	require.NotNil(t, post.GroupID)
	assert.Equal(t, g.ID, *post.GroupID)

	exists, err := files.Exists(ctx, post.Image)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestPostService_UpdateReplacesImageAndClearsGroup(t *testing.T) {
	s, files := newPostService(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, s.db, "author")
	g := testutil.CreateGroup(t, s.db, "Cats", "cats")

	create := forms.PostForm{Text: "old", Group: forms.FlexID(strconv.Itoa(int(g.ID))),
		Image: testutil.MultipartFile(t, "image", "small.gif", testutil.SmallGIF)}
	require.NoError(t, create.Validate(ctx, s.db, 0))
	post, err := s.Create(ctx, author.ID, &create)
	require.NoError(t, err)
	oldImage := post.Image

	edit := forms.PostForm{Text: "new", Image: testutil.MultipartFile(t, "image", "small.gif", testutil.SmallGIF)}
	require.NoError(t, edit.Validate(ctx, s.db, 0))
	require.NoError(t, s.Update(ctx, &post, &edit))

	var reloaded models.Post
	require.NoError(t, s.db.First(&reloaded, post.ID).Error)
	assert.Equal(t, "new", reloaded.Text)
	assert.Nil(t, reloaded.GroupID)
	assert.NotEqual(t, oldImage, reloaded.Image)
	assert.Equal(t, reloaded.Image, post.Image)

	exists, err := files.Exists(ctx, oldImage)
	require.NoError(t, err)
	assert.False(t, exists, "replaced image must be removed")
}

func TestPostService_UpdateKeepsImageWithoutUpload(t *testing.T) {
	s, _ := newPostService(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, s.db, "author")
	post := models.Post{Text: "old", AuthorID: author.ID, Image: "posts/keep.gif"}
	require.NoError(t, s.db.Create(&post).Error)

	edit := forms.PostForm{Text: "new"}
	require.NoError(t, edit.Validate(ctx, s.db, 0))
	require.NoError(t, s.Update(ctx, &post, &edit))

	var reloaded models.Post
	require.NoError(t, s.db.First(&reloaded, post.ID).Error)
	assert.Equal(t, "posts/keep.gif", reloaded.Image)
}

func TestPostService_AddCommentAndDelete(t *testing.T) {
	s, _ := newPostService(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, s.db, "author")
	post := testutil.CreatePost(t, s.db, author, nil, "post")

	form := forms.CommentForm{Text: "nice"}
	require.NoError(t, form.Validate())
	c, err := s.AddComment(ctx, post.ID, author.ID, &form)
	require.NoError(t, err)
	assert.Equal(t, post.ID, c.PostID)

	_, err = s.AddComment(ctx, post.ID+10, author.ID, &form)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Delete(ctx, post.ID))
	_, err = s.Get(ctx, post.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.EqualValues(t, 0, countRows(t, s.db, &models.Comment{}))
}

package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/freemirror/yatube/forms"
	"github.com/freemirror/yatube/middleware"
	"github.com/freemirror/yatube/models"
	"github.com/freemirror/yatube/services"
	"github.com/freemirror/yatube/utils"
)

// PostController serves the listings, the post page and the post write paths.
type PostController struct {
	db            *gorm.DB
	svc           *services.Services
	mailer        *utils.Mailer
	maxImageBytes int64
}

// NewPostController creates a new PostController instance. mailer may be nil.
func NewPostController(db *gorm.DB, svc *services.Services, mailer *utils.Mailer, maxImageBytes int64) *PostController {
	return &PostController{db: db, svc: svc, mailer: mailer, maxImageBytes: maxImageBytes}
}

// Index lists every post, newest first.
func (p *PostController) Index(ctx *gin.Context) {
	page, err := p.svc.Listing.Index(ctx.Request.Context(), ctx.Query("page"))
	if err != nil {
		fail(ctx, 50100, err)
		return
	}
	render(ctx, http.StatusOK, "posts_list.html", gin.H{"title": "Latest updates", "page": page}, page)
}

// GroupPosts lists the posts of one group.
func (p *PostController) GroupPosts(ctx *gin.Context) {
	group, page, err := p.svc.Listing.ByGroup(ctx.Request.Context(), ctx.Param("slug"), ctx.Query("page"))
	if err != nil {
		fail(ctx, 50101, err)
		return
	}
	render(ctx, http.StatusOK, "posts_list.html",
		gin.H{"title": group.Title, "group": group, "page": page},
		gin.H{"group": group, "items": page.Items, "pagination": page.Pagination})
}

// Profile lists the posts of one author with their follower numbers.
func (p *PostController) Profile(ctx *gin.Context) {
	viewerID, _ := middleware.CurrentUserID(ctx)
	profile, page, err := p.svc.Listing.ByAuthor(ctx.Request.Context(), ctx.Param("username"), ctx.Query("page"), viewerID)
	if err != nil {
		fail(ctx, 50102, err)
		return
	}
	render(ctx, http.StatusOK, "posts_list.html",
		gin.H{
			"title":      profile.Author.Username,
			"profile":    profile,
			"page":       page,
			"can_follow": viewerID != 0 && viewerID != profile.Author.ID,
		},
		gin.H{"profile": profile, "items": page.Items, "pagination": page.Pagination})
}

// Detail shows one post with its comments.
func (p *PostController) Detail(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	rctx := ctx.Request.Context()
	post, err := p.svc.Listing.Post(rctx, id)
	if err != nil {
		fail(ctx, 50103, err)
		return
	}
	count, err := p.svc.Listing.AuthorPostCount(rctx, post.AuthorID)
	if err != nil {
		fail(ctx, 50104, err)
		return
	}
	render(ctx, http.StatusOK, "post_detail.html",
		gin.H{
			"title":             post.String(),
			"post":              post,
			"author_post_count": count,
			"can_edit":          middleware.AccessFor(ctx, post.AuthorID).CanModify(),
		},
		gin.H{"post": post, "author_post_count": count})
}

// CreateForm shows an empty post form.
func (p *PostController) CreateForm(ctx *gin.Context) {
	p.renderForm(ctx, forms.PostForm{}, 0, nil)
}

// Create publishes a post by the caller and sends them to their profile.
func (p *PostController) Create(ctx *gin.Context) {
	userID, _ := middleware.CurrentUserID(ctx)
	var form forms.PostForm
	if !bindForm(ctx, &form) {
		return
	}
	if !p.validate(ctx, &form, 0) {
		return
	}
	if _, err := p.svc.Posts.Create(ctx.Request.Context(), userID, &form); err != nil {
		fail(ctx, 50110, err)
		return
	}
	redirect(ctx, profileURL(middleware.CurrentUsername(ctx)))
}

// EditForm shows the post form prefilled. Only the author may see it.
func (p *PostController) EditForm(ctx *gin.Context) {
	post, ok := p.ownedPost(ctx)
	if !ok {
		return
	}
	p.renderForm(ctx, forms.NewPostFormFrom(post), post.ID, nil)
}

// Edit saves the author's changes.
func (p *PostController) Edit(ctx *gin.Context) {
	post, ok := p.ownedPost(ctx)
	if !ok {
		return
	}
	var form forms.PostForm
	if !bindForm(ctx, &form) {
		return
	}
	if !p.validate(ctx, &form, post.ID) {
		return
	}
	if err := p.svc.Posts.Update(ctx.Request.Context(), &post, &form); err != nil {
		fail(ctx, 50111, err)
		return
	}
	redirect(ctx, postURL(post.ID))
}

// Delete removes the author's post with its comments and image.
func (p *PostController) Delete(ctx *gin.Context) {
	post, ok := p.ownedPost(ctx)
	if !ok {
		return
	}
	if err := p.svc.Posts.Delete(ctx.Request.Context(), post.ID); err != nil {
		fail(ctx, 50112, err)
		return
	}
	redirect(ctx, profileURL(middleware.CurrentUsername(ctx)))
}

// AddComment attaches the caller's comment. An empty comment is dropped and the caller lands on the post again.
func (p *PostController) AddComment(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	userID, _ := middleware.CurrentUserID(ctx)
	rctx := ctx.Request.Context()

	post, err := p.svc.Posts.Get(rctx, id)
	if err != nil {
		fail(ctx, 50120, err)
		return
	}

	var form forms.CommentForm
	if !bindForm(ctx, &form) {
		return
	}
	if err := form.Validate(); err != nil {
		var verr *forms.ValidationError
		if errors.As(err, &verr) && !middleware.WantsHTML(ctx) {
			utils.Invalid(ctx, verr.Fields)
			return
		}
		redirect(ctx, postURL(post.ID))
		return
	}

	comment, err := p.svc.Posts.AddComment(rctx, post.ID, userID, &form)
	if err != nil {
		fail(ctx, 50121, err)
		return
	}
	if post.AuthorID != userID {
		commenter := middleware.CurrentUsername(ctx)
		p.mailer.Go(func() { p.notifyAuthor(post, comment, commenter) })
	}
	redirect(ctx, postURL(post.ID))
}

// ownedPost loads the :id post and lets only its author through. Everybody else is sent to the post page.
func (p *PostController) ownedPost(ctx *gin.Context) (models.Post, bool) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return models.Post{}, false
	}
	post, err := p.svc.Posts.Get(ctx.Request.Context(), id)
	if err != nil {
		fail(ctx, 50113, err)
		return models.Post{}, false
	}
	if !middleware.AccessFor(ctx, post.AuthorID).CanModify() {
		redirect(ctx, postURL(post.ID))
		return models.Post{}, false
	}
	return post, true
}

// validate checks form and re-renders it on rejection. postID is 0 for a new post.
func (p *PostController) validate(ctx *gin.Context, form *forms.PostForm, postID uint) bool {
	err := form.Validate(ctx.Request.Context(), p.db, p.maxImageBytes)
	if err == nil {
		return true
	}
	var verr *forms.ValidationError
	if !errors.As(err, &verr) {
		fail(ctx, 50114, err)
		return false
	}
	p.renderForm(ctx, *form, postID, verr)
	return false
}

func (p *PostController) renderForm(ctx *gin.Context, form forms.PostForm, postID uint, verr *forms.ValidationError) {
	groups, err := p.svc.Groups.List(ctx.Request.Context())
	if err != nil {
		fail(ctx, 50115, err)
		return
	}
	title := "New post"
	if postID != 0 {
		title = "Edit post"
	}
	view := gin.H{
		"title":   title,
		"form":    form,
		"groups":  groups,
		"is_edit": postID != 0,
		"post_id": postID,
	}
	if verr != nil {
		renderInvalid(ctx, "post_form.html", view, verr)
		return
	}
	render(ctx, http.StatusOK, "post_form.html", view, gin.H{"form": form, "groups": groups})
}

func (p *PostController) notifyAuthor(post models.Post, comment models.Comment, commenter string) {
	if p.mailer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	author, err := p.svc.Users.ByID(ctx, post.AuthorID)
	if err != nil || author.Email == "" {
		return
	}
	subject := fmt.Sprintf("New comment on \"%s\"", post.String())
	body := fmt.Sprintf("%s commented on your post:\n\n%s\n\n%s", commenter, comment.Text, postURL(post.ID))
	if err := p.mailer.Send(author.Email, subject, body); err != nil {
		utils.Sugar.Warnf("comment notification failed post=%d err=%v", post.ID, err)
	}
}

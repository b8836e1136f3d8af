package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/freemirror/yatube/middleware"
	"github.com/freemirror/yatube/services"
)

// FollowController serves the personal feed and the follow buttons.
type FollowController struct {
	svc *services.Services
}

func NewFollowController(svc *services.Services) *FollowController {
	return &FollowController{svc: svc}
}

// Index lists posts by the authors the caller follows.
func (f *FollowController) Index(ctx *gin.Context) {
	userID, _ := middleware.CurrentUserID(ctx)
	page, err := f.svc.Follows.FeedFor(ctx.Request.Context(), userID, ctx.Query("page"))
	if err != nil {
		fail(ctx, 50200, err)
		return
	}
	render(ctx, http.StatusOK, "posts_list.html", gin.H{"title": "Following", "page": page}, page)
}

// Follow subscribes the caller to :username.
func (f *FollowController) Follow(ctx *gin.Context) {
	f.change(ctx, f.svc.Follows.Follow)
}

// Unfollow removes the subscription to :username.
func (f *FollowController) Unfollow(ctx *gin.Context) {
	f.change(ctx, f.svc.Follows.Unfollow)
}

func (f *FollowController) change(ctx *gin.Context, apply func(ctx context.Context, userID, authorID uint) error) {
	userID, _ := middleware.CurrentUserID(ctx)
	rctx := ctx.Request.Context()

	author, err := f.svc.Users.ByUsername(rctx, ctx.Param("username"))
	if err != nil {
		fail(ctx, 50201, err)
		return
	}
	if err := apply(rctx, userID, author.ID); err != nil {
		fail(ctx, 50202, err)
		return
	}
	redirect(ctx, profileURL(author.Username))
}

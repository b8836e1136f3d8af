package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/freemirror/yatube/cache"
	"github.com/freemirror/yatube/middleware"
	"github.com/freemirror/yatube/utils"
)

// AdminController exposes maintenance actions to configured admins.
type AdminController struct {
	store cache.Store
}

func NewAdminController(store cache.Store) *AdminController {
	return &AdminController{store: store}
}

// ClearCache drops every cached page. Sessions and revoked tokens in the same store are kept.
func (a *AdminController) ClearCache(ctx *gin.Context) {
	if err := a.store.Clear(ctx.Request.Context(), middleware.PageCachePrefix); err != nil {
		utils.Sugar.Errorw("page cache clear failed", "err", err)
		utils.Error(ctx, http.StatusInternalServerError, utils.CodeCacheClear, "failed to clear cache")
		return
	}
	utils.Sugar.Infow("page cache cleared", "by", middleware.CurrentUsername(ctx))
	utils.Success(ctx, gin.H{"cleared": middleware.PageCachePrefix})
}

package controllers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/freemirror/yatube/forms"
	"github.com/freemirror/yatube/middleware"
	"github.com/freemirror/yatube/services"
	"github.com/freemirror/yatube/utils"
)

// render answers with the named template for browsers and with data in the JSON envelope otherwise.
func render(ctx *gin.Context, status int, name string, view gin.H, data interface{}) {
	if !middleware.WantsHTML(ctx) {
		utils.Respond(ctx, status, utils.CodeOK, "success", data)
		return
	}
	if view == nil {
		view = gin.H{}
	}
	view["viewer"] = middleware.CurrentUsername(ctx)
	if _, ok := view["errors"]; !ok {
		view["errors"] = map[string][]string{}
	}
	ctx.HTML(status, name, view)
}

// renderInvalid re-renders a rejected form with its messages, or answers 400 for JSON clients.
func renderInvalid(ctx *gin.Context, name string, view gin.H, verr *forms.ValidationError) {
	if !middleware.WantsHTML(ctx) {
		utils.Invalid(ctx, verr.Fields)
		return
	}
	view["errors"] = verr.Fields
	render(ctx, http.StatusOK, name, view, nil)
}

// NotFound is the 404 page for missing objects and unknown routes.
func NotFound(ctx *gin.Context) {
	if !middleware.WantsHTML(ctx) {
		utils.Error(ctx, http.StatusNotFound, utils.CodeNotFound, "not found")
		return
	}
	render(ctx, http.StatusNotFound, "not_found.html", gin.H{"title": "Not found", "path": ctx.Request.URL.Path}, nil)
}

// fail maps a service error to a response. Unknown errors are logged and answered with 500.
func fail(ctx *gin.Context, code int, err error) {
	if errors.Is(err, services.ErrNotFound) {
		NotFound(ctx)
		return
	}
	utils.Sugar.Errorw("request failed", "path", ctx.Request.URL.Path, "code", code, "err", err)
	utils.Error(ctx, http.StatusInternalServerError, code, "internal server error")
}

func redirect(ctx *gin.Context, location string) {
	ctx.Redirect(http.StatusFound, location)
}

// parseID reads a positive numeric path parameter. Anything else is a 404.
func parseID(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil || id == 0 {
		NotFound(ctx)
		return 0, false
	}
	return uint(id), true
}

// bindForm binds the request body into form. A malformed body is answered with 400.
func bindForm(ctx *gin.Context, form interface{}) bool {
	if err := ctx.ShouldBind(form); err != nil {
		utils.Sugar.Debugf("bind %s failed: %v", ctx.Request.URL.Path, err)
		utils.Error(ctx, http.StatusBadRequest, utils.CodeInvalidForm, "invalid request payload")
		return false
	}
	return true
}

func postURL(id uint) string {
	return "/posts/" + strconv.FormatUint(uint64(id), 10) + "/"
}

func profileURL(username string) string {
	return "/profile/" + url.PathEscape(username) + "/"
}

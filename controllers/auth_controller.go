package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/freemirror/yatube/forms"
	"github.com/freemirror/yatube/middleware"
	"github.com/freemirror/yatube/models"
	"github.com/freemirror/yatube/services"
	"github.com/freemirror/yatube/utils"
)

// AuthController handles local signup, login and logout. Sessions are JWTs kept in the token cookie.
type AuthController struct {
	svc       *services.Services
	blacklist *utils.TokenBlacklist
	tokenTTL  time.Duration
}

func NewAuthController(svc *services.Services, blacklist *utils.TokenBlacklist, tokenTTL time.Duration) *AuthController {
	return &AuthController{svc: svc, blacklist: blacklist, tokenTTL: tokenTTL}
}

// LoginForm shows the login page. next is carried over from the login redirect.
func (a *AuthController) LoginForm(ctx *gin.Context) {
	render(ctx, http.StatusOK, "login.html",
		gin.H{"title": "Log in", "form": forms.LoginForm{}, "next": safeNext(ctx.Query("next"))},
		gin.H{"next": safeNext(ctx.Query("next"))})
}

// Login checks credentials, sets the session cookie and returns to next.
func (a *AuthController) Login(ctx *gin.Context) {
	var form forms.LoginForm
	if !bindForm(ctx, &form) {
		return
	}
	form.Next = safeNext(form.Next)
	view := gin.H{"title": "Log in", "form": form, "next": form.Next}

	if err := form.Validate(); err != nil {
		var verr *forms.ValidationError
		errors.As(err, &verr)
		renderInvalid(ctx, "login.html", view, verr)
		return
	}

	user, err := a.svc.Users.Authenticate(ctx.Request.Context(), form.Username, form.Password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		if !middleware.WantsHTML(ctx) {
			utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
			return
		}
		verr := &forms.ValidationError{}
		verr.Add(forms.NonField, "please enter a correct username and password")
		renderInvalid(ctx, "login.html", view, verr)
		return
	}
	if err != nil {
		fail(ctx, 50300, err)
		return
	}
	a.startSession(ctx, user, form.Next)
}

// SignupForm shows the registration page.
func (a *AuthController) SignupForm(ctx *gin.Context) {
	render(ctx, http.StatusOK, "signup.html", gin.H{"title": "Sign up", "form": forms.SignupForm{}}, nil)
}

// Signup creates the account and logs the new user in.
func (a *AuthController) Signup(ctx *gin.Context) {
	var form forms.SignupForm
	if !bindForm(ctx, &form) {
		return
	}
	// never echo passwords back into the page
	view := gin.H{"title": "Sign up", "form": forms.SignupForm{Username: form.Username, Email: form.Email}}

	var verr *forms.ValidationError
	if err := form.Validate(); err != nil {
		errors.As(err, &verr)
		renderInvalid(ctx, "signup.html", view, verr)
		return
	}

	user, err := a.svc.Users.Register(ctx.Request.Context(), &form)
	if errors.Is(err, services.ErrUsernameTaken) {
		verr = &forms.ValidationError{}
		verr.Add("username", "a user with that username already exists")
		renderInvalid(ctx, "signup.html", view, verr)
		return
	}
	if err != nil {
		fail(ctx, 50301, err)
		return
	}
	utils.Sugar.Infow("user registered", "user_id", user.ID, "username", user.Username)
	a.startSession(ctx, user, "/")
}

// Logout revokes the current token until it would have expired and clears the cookie.
func (a *AuthController) Logout(ctx *gin.Context) {
	if token := ctx.GetString(middleware.ContextTokenKey); token != "" {
		expiresAt := time.Now().Add(a.tokenTTL)
		if v, ok := ctx.Get(middleware.ContextClaimsKey); ok {
			if claims, ok := v.(*utils.Claims); ok {
				expiresAt = claims.ExpiresAtOr(expiresAt)
			}
		}
		if err := a.blacklist.Revoke(ctx.Request.Context(), token, expiresAt); err != nil {
			utils.Sugar.Warnf("token revoke failed: %v", err)
		}
	}
	setTokenCookie(ctx, "", -1)

	if !middleware.WantsHTML(ctx) {
		utils.Success(ctx, gin.H{"message": "logged out"})
		return
	}
	redirect(ctx, "/")
}

// Me returns the caller's account.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, _ := middleware.CurrentUserID(ctx)
	user, err := a.svc.Users.ByID(ctx.Request.Context(), userID)
	if err != nil {
		fail(ctx, 50302, err)
		return
	}
	utils.Success(ctx, gin.H{"user": user})
}

func (a *AuthController) startSession(ctx *gin.Context, user models.User, next string) {
	token, err := utils.GenerateToken(user.ID, user.Username, a.tokenTTL)
	if err != nil {
		fail(ctx, utils.CodeSessionFailed, err)
		return
	}
	setTokenCookie(ctx, token, int(a.tokenTTL.Seconds()))

	if !middleware.WantsHTML(ctx) {
		utils.Success(ctx, gin.H{"token": token, "user": user, "next": next})
		return
	}
	redirect(ctx, next)
}

func setTokenCookie(ctx *gin.Context, value string, maxAge int) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middleware.TokenCookie, value, maxAge, "/", "", ctx.Request.TLS != nil, true)
}

// safeNext keeps redirects on this site. Anything else falls back to the index.
func safeNext(next string) string {
	next = strings.TrimSpace(next)
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return "/"
	}
	return next
}

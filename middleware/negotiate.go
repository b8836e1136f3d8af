package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// WantsHTML reports whether the client asked for a page rather than JSON.
func WantsHTML(ctx *gin.Context) bool {
	return strings.Contains(strings.ToLower(ctx.GetHeader("Accept")), "text/html")
}

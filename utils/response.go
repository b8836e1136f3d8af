package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error codes shared by handlers. The first three digits follow the HTTP status.
const (
	CodeOK            = 0
	CodeInvalidForm   = 40001
	CodeForbidden     = 40300
	CodeNotFound      = 40400
	CodeTooMany       = 42900
	CodeInternal      = 50000
	CodeCacheClear    = 50010
	CodeSessionFailed = 50020
)

// JSONResponse is the envelope every JSON endpoint answers with.
type JSONResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Respond writes a JSON response with the given status code.
func Respond(ctx *gin.Context, status int, code int, message string, data interface{}) {
	ctx.JSON(status, JSONResponse{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// Success answers 200 with data.
func Success(ctx *gin.Context, data interface{}) {
	Respond(ctx, http.StatusOK, CodeOK, "success", data)
}

// Error answers status with an error code and no data.
func Error(ctx *gin.Context, status int, code int, message string) {
	Respond(ctx, status, code, message, nil)
}

// Invalid answers 400 with the per-field messages of a rejected form.
func Invalid(ctx *gin.Context, fields map[string][]string) {
	Respond(ctx, http.StatusBadRequest, CodeInvalidForm, "invalid form", gin.H{"errors": fields})
}

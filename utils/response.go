package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSONResponse defines the uniform structure for API responses.
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

// Success returns a standard success response.
func Success(ctx *gin.Context, data interface{}) {
	Respond(ctx, http.StatusOK, 0, "success", data)
}

// Created returns a standard 201 response.
func Created(ctx *gin.Context, data interface{}) {
	Respond(ctx, http.StatusCreated, 0, "created", data)
}

// Error returns a standard error response.
func Error(ctx *gin.Context, status int, code int, message string) {
	Respond(ctx, status, code, message, nil)
}

// Fail translates err into the envelope. Errors that are not an *AppError are
// logged and reported as a generic 500.
func Fail(ctx *gin.Context, err error) {
	appErr := AsAppError(err)
	if appErr.Status >= http.StatusInternalServerError {
		Sugar.Errorw("request failed",
			"method", ctx.Request.Method,
			"path", ctx.Request.URL.Path,
			"code", appErr.Code,
			"err", err,
		)
	}
	Error(ctx, appErr.Status, appErr.Code, appErr.Message)
	ctx.Abort()
}

// PanicResponse answers a recovered panic with the generic 500 envelope.
// Used as the gin.RecoveryFunc of the zap recovery middleware.
func PanicResponse(ctx *gin.Context, _ any) {
	Error(ctx, http.StatusInternalServerError, 50000, "internal server error")
	ctx.Abort()
}

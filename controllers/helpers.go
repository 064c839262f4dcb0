package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/wallpress/utils"
	"github.com/cppla/wallpress/views"
)

// WantsHTML reports whether the client negotiated an HTML response: an explicit
// format query parameter wins, otherwise the Accept header decides.
func WantsHTML(ctx *gin.Context) bool {
	switch strings.ToLower(strings.TrimSpace(ctx.Query("format"))) {
	case "html":
		return true
	case "json":
		return false
	}
	return strings.Contains(strings.ToLower(ctx.GetHeader("Accept")), "text/html")
}

// FailNegotiated writes err, rendering 404s as HTML when the client asked for HTML.
func FailNegotiated(ctx *gin.Context, err error) {
	if WantsHTML(ctx) && utils.IsKind(err, utils.KindNotFound) {
		NotFoundHTML(ctx, utils.AsAppError(err).Message)
		return
	}
	utils.Fail(ctx, err)
}

// NotFoundHTML renders the 404 page.
func NotFoundHTML(ctx *gin.Context, message string) {
	ctx.HTML(http.StatusNotFound, views.NotFoundTemplate, views.NotFoundPage{Message: message})
	ctx.Abort()
}

// ParseID reads a positive numeric path parameter.
func ParseID(ctx *gin.Context, name string) (uint, error) {
	raw := strings.TrimSpace(ctx.Param(name))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, utils.ValidationError(40010, "invalid "+name)
	}
	return uint(id), nil
}

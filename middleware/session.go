package middleware

import (
	"context"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/wallpress/models"
	"github.com/cppla/wallpress/utils"
)

// PrincipalResolver resolves the caller of a request. Implemented by session.Resolver.
type PrincipalResolver interface {
	Resolve(ctx context.Context, req *http.Request) (*models.Principal, error)
}

// UserMirror keeps the local users table in step with resolved principals.
type UserMirror interface {
	Upsert(ctx context.Context, p models.Principal) error
}

// SessionResolver resolves the session cookie into a principal and mirrors it
// into the users table. Failures never fail the request; the caller is simply
// treated as anonymous.
func SessionResolver(resolver PrincipalResolver, mirror UserMirror, bypassPrefixes []string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if shouldBypass(ctx.Request.Method, ctx.Request.URL.Path, bypassPrefixes) {
			ctx.Next()
			return
		}

		principal, err := resolver.Resolve(ctx.Request.Context(), ctx.Request)
		if err != nil {
			utils.Sugar.Warnw("session resolution failed", "path", ctx.Request.URL.Path, "err", err)
			principal = nil
		}

		if principal != nil {
			SetPrincipal(ctx, principal)
			if mirror != nil {
				p := *principal
				utils.BestEffort("mirror user", func() error {
					return mirror.Upsert(ctx.Request.Context(), p)
				})
			}
		}
		ctx.Next()
	}
}

// shouldBypass reports whether session resolution is skipped for p: the health
// check, static asset reads (last segment contains a dot) and upstream-authenticated prefixes.
// Writes to dotted paths, such as deleting a media key, still resolve the session.
func shouldBypass(method, p string, prefixes []string) bool {
	if p == "/health" {
		return true
	}
	if (method == http.MethodGet || method == http.MethodHead) && strings.Contains(path.Base(p), ".") {
		return true
	}
	for _, prefix := range prefixes {
		if prefix != "" && strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/wallpress/models"
)

type stubResolver struct {
	calls int
	p     *models.Principal
	err   error
}

func (s *stubResolver) Resolve(ctx context.Context, req *http.Request) (*models.Principal, error) {
	s.calls++
	return s.p, s.err
}

type stubMirror struct {
	upserts []models.Principal
	err     error
	panics  bool
}

func (m *stubMirror) Upsert(ctx context.Context, p models.Principal) error {
	if m.panics {
		panic("mirror exploded")
	}
	m.upserts = append(m.upserts, p)
	return m.err
}

func init() {
	gin.SetMode(gin.TestMode)
}

func runSession(t *testing.T, resolver PrincipalResolver, mirror UserMirror, path string) (*httptest.ResponseRecorder, *models.Principal) {
	t.Helper()
	var seen *models.Principal
	r := gin.New()
	r.Use(SessionResolver(resolver, mirror, []string{"/api/"}))
	r.NoRoute(func(ctx *gin.Context) {
		seen = CurrentPrincipal(ctx)
		ctx.Status(http.StatusNoContent)
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w, seen
}

func TestSessionResolverAttachesPrincipalAndMirrors(t *testing.T) {
	resolver := &stubResolver{p: principal("u1", models.RoleUser)}
	mirror := &stubMirror{}

	w, seen := runSession(t, resolver, mirror, "/posts")
	assert.Equal(t, http.StatusNoContent, w.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "u1", seen.ID)
	require.Len(t, mirror.upserts, 1)
	assert.Equal(t, "u1", mirror.upserts[0].ID)
}

func TestSessionResolverBypass(t *testing.T) {
	for _, path := range []string{"/health", "/static/app.js", "/favicon.ico", "/api/v1/posts"} {
		resolver := &stubResolver{p: principal("u1", models.RoleUser)}
		_, seen := runSession(t, resolver, nil, path)
		assert.Nil(t, seen, path)
		assert.Zero(t, resolver.calls, path)
	}
}

func TestSessionResolverResolvesDottedWrites(t *testing.T) {
	resolver := &stubResolver{p: principal("u1", models.RoleUser)}
	r := gin.New()
	r.Use(SessionResolver(resolver, nil, nil))
	var seen *models.Principal
	r.DELETE("/media/*key", func(ctx *gin.Context) {
		seen = CurrentPrincipal(ctx)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/media/u1/2026/10/a.png", nil))
	require.NotNil(t, seen)
	assert.Equal(t, 1, resolver.calls)
}

func TestSessionResolverDegradesToAnonymous(t *testing.T) {
	resolver := &stubResolver{err: errors.New("redis down")}
	mirror := &stubMirror{}

	w, seen := runSession(t, resolver, mirror, "/posts")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Nil(t, seen)
	assert.Empty(t, mirror.upserts)
}

func TestSessionResolverMirrorFailureIsSwallowed(t *testing.T) {
	for _, mirror := range []*stubMirror{{err: errors.New("insert failed")}, {panics: true}} {
		resolver := &stubResolver{p: principal("u1", models.RoleAdmin)}
		w, seen := runSession(t, resolver, mirror, "/admin/posts")
		assert.Equal(t, http.StatusNoContent, w.Code)
		require.NotNil(t, seen)
		assert.Equal(t, models.RoleAdmin, seen.Role)
	}
}

func TestAuthorizeRunsBeforeHandler(t *testing.T) {
	handled := false
	r := gin.New()
	r.Use(SessionResolver(&stubResolver{p: principal("u1", models.RoleUser)}, nil, nil))
	r.POST("/posts", Authorize(AdminOrOwner), func(ctx *gin.Context) {
		handled = true
		ctx.Status(http.StatusCreated)
	})
	r.POST("/anon", Authorize(Authenticated), func(ctx *gin.Context) {
		handled = true
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/posts", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, handled)

	anon := gin.New()
	anon.POST("/anon", Authorize(Authenticated), func(ctx *gin.Context) { handled = true })
	w = httptest.NewRecorder()
	anon.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/anon", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"code":40100,"message":"authentication required"}`, w.Body.String())
	assert.False(t, handled)
}

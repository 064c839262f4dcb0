package controllers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/wallpress/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testContext(target, accept string) *gin.Context {
	ctx, _ := gin.CreateTestContext(httptest.NewRecorder())
	ctx.Request = httptest.NewRequest(http.MethodGet, target, nil)
	if accept != "" {
		ctx.Request.Header.Set("Accept", accept)
	}
	return ctx
}

func TestWantsHTML(t *testing.T) {
	assert.False(t, WantsHTML(testContext("/posts", "")))
	assert.False(t, WantsHTML(testContext("/posts", "application/json")))
	assert.True(t, WantsHTML(testContext("/posts", "text/html,application/xhtml+xml")))
	assert.True(t, WantsHTML(testContext("/posts?format=html", "application/json")))
	assert.False(t, WantsHTML(testContext("/posts?format=json", "text/html")))
}

func TestParseID(t *testing.T) {
	ctx := testContext("/walls/12", "")
	ctx.Params = gin.Params{{Key: "id", Value: "12"}}
	id, err := ParseID(ctx, "id")
	require.NoError(t, err)
	assert.Equal(t, uint(12), id)

	for _, raw := range []string{"", "0", "-3", "abc"} {
		ctx.Params = gin.Params{{Key: "id", Value: raw}}
		_, err := ParseID(ctx, "id")
		assert.True(t, utils.IsKind(err, utils.KindValidation), raw)
	}
}

func TestMediaKey(t *testing.T) {
	ctx := testContext("/media/u1/2026/10/a.png", "")
	ctx.Params = gin.Params{{Key: "key", Value: "/u1/2026/10/a.png"}}
	key, err := mediaKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1/2026/10/a.png", key)

	for _, raw := range []string{"/", "/u2/../u1/a.png", "/u1/./a.png", "/u1//a.png", "/u1/a.png/", "/../a.png"} {
		ctx.Params = gin.Params{{Key: "key", Value: raw}}
		_, err := mediaKey(ctx)
		assert.True(t, utils.IsKind(err, utils.KindValidation), raw)
	}
}

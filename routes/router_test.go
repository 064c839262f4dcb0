package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cppla/wallpress/config"
	"github.com/cppla/wallpress/models"
	"github.com/cppla/wallpress/repository"
	"github.com/cppla/wallpress/storage"
	"github.com/cppla/wallpress/testutil"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type harness struct {
	router *gin.Engine
	db     *gorm.DB
	mr     *miniredis.Miniredis
	blob   *testutil.MockBlobService
	cfg    config.AppConfig
}

func newHarness(t *testing.T, tweak func(*config.AppConfig)) *harness {
	t.Helper()
	cfg := config.Defaults()
	cfg.GinMode = "test"
	cfg.GinPath = ""
	if tweak != nil {
		tweak(&cfg)
	}
	db := testutil.OpenTestDB(t)
	mr, rc := testutil.NewRedis(t)
	blob := &testutil.MockBlobService{}
	r := SetupRouter(Deps{DB: db, Redis: rc, Blob: blob, Config: cfg})
	return &harness{router: r, db: db, mr: mr, blob: blob, cfg: cfg}
}

// login stores a session record for a principal and returns its cookie.
func (h *harness) login(t *testing.T, id, role string) *http.Cookie {
	t.Helper()
	sid := "sid-" + id
	rec := fmt.Sprintf(`{"userId":%q,"email":"%s@example.com","role":%q,"expires":%q}`,
		id, id, role, time.Now().Add(time.Hour).UTC().Format(time.RFC3339Nano))
	require.NoError(t, h.mr.Set(h.cfg.SessionKeyPrefix+sid, rec))
	return &http.Cookie{Name: h.cfg.SessionCookieName, Value: sid}
}

func (h *harness) do(req *http.Request, cookie *http.Cookie) *httptest.ResponseRecorder {
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func (h *harness) seedPost(t *testing.T, slug, authorID string, status models.PostStatus) *models.Post {
	t.Helper()
	p := &models.Post{Title: "Title " + slug, Slug: slug, Content: "body", AuthorID: authorID, Status: status}
	if status == models.PostStatusPublished {
		now := time.Now()
		p.PublishedAt = &now
	}
	require.NoError(t, repository.NewPostRepository(h.db).Create(context.Background(), p))
	return p
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHealth(t *testing.T) {
	h := newHarness(t, nil)
	w := h.do(httptest.NewRequest(http.MethodGet, "/health", nil), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decode(t, w).Code)
}

func TestUpdatePostAuthorization(t *testing.T) {
	h := newHarness(t, nil)
	post := h.seedPost(t, "hello", "author-1", models.PostStatusDraft)
	path := fmt.Sprintf("/posts/%d", post.ID)
	body := `{"title":"Renamed"}`

	w := h.do(jsonRequest(http.MethodPut, path, body), nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 40100, decode(t, w).Code)

	w = h.do(jsonRequest(http.MethodPut, path, body), h.login(t, "intruder", "user"))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 40302, decode(t, w).Code)

	w = h.do(jsonRequest(http.MethodPut, path, body), h.login(t, "author-1", "user"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "Renamed")

	w = h.do(jsonRequest(http.MethodPut, path, `{"title":"By admin"}`), h.login(t, "boss", "admin"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "By admin")
}

func TestUpdateMissingPostIsNotFound(t *testing.T) {
	h := newHarness(t, nil)
	w := h.do(jsonRequest(http.MethodPut, "/posts/999", `{"title":"x"}`), h.login(t, "u1", "user"))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMissingPostNegotiatesFormat(t *testing.T) {
	h := newHarness(t, nil)

	w := h.do(httptest.NewRequest(http.MethodGet, "/posts/does-not-exist", nil), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 40420, decode(t, w).Code)

	req := httptest.NewRequest(http.MethodGet, "/posts/does-not-exist", nil)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	w = h.do(req, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
}

func TestDraftHiddenFromPublic(t *testing.T) {
	h := newHarness(t, nil)
	h.seedPost(t, "secret", "author-1", models.PostStatusDraft)

	w := h.do(httptest.NewRequest(http.MethodGet, "/posts/secret", nil), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = h.do(httptest.NewRequest(http.MethodGet, "/posts/secret", nil), h.login(t, "author-1", "user"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPublishedPostRendersHTML(t *testing.T) {
	h := newHarness(t, nil)
	h.seedPost(t, "open", "author-1", models.PostStatusPublished)

	req := httptest.NewRequest(http.MethodGet, "/posts/open?format=html", nil)
	w := h.do(req, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Title open")

	w = h.do(httptest.NewRequest(http.MethodGet, "/posts", nil), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"slug":"open"`)
}

func TestAnonymousCommentIsPending(t *testing.T) {
	h := newHarness(t, nil)
	h.seedPost(t, "open", "author-1", models.PostStatusPublished)

	w := h.do(jsonRequest(http.MethodPost, "/posts/open/comments", `{"content":"nice","author_name":"guest"}`), nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"status":"pending"`)

	w = h.do(httptest.NewRequest(http.MethodGet, "/posts/open/comments", nil), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "nice")
}

func TestAdminPolicies(t *testing.T) {
	h := newHarness(t, nil)

	w := h.do(httptest.NewRequest(http.MethodGet, "/admin/comments", nil), h.login(t, "u1", "user"))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 40300, decode(t, w).Code)

	w = h.do(jsonRequest(http.MethodPost, "/admin/walls", `{"title":"Guestbook"}`), h.login(t, "a1", "admin"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = h.do(httptest.NewRequest(http.MethodDelete, "/admin/walls/1", nil), h.login(t, "a1", "admin"))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 40301, decode(t, w).Code)

	w = h.do(httptest.NewRequest(http.MethodDelete, "/admin/walls/1", nil), h.login(t, "o1", "owner"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUnknownRoute(t *testing.T) {
	h := newHarness(t, nil)
	w := h.do(httptest.NewRequest(http.MethodGet, "/nowhere", nil), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 40400, decode(t, w).Code)
}

func multipartUpload(t *testing.T, field, name string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadRequiresSession(t *testing.T) {
	h := newHarness(t, nil)
	w := h.do(multipartUpload(t, "file", "a.png", []byte("abc")), nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	h.blob.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
}

func TestUploadTooLarge(t *testing.T) {
	h := newHarness(t, func(c *config.AppConfig) { c.MaxUploadBytes = 8 })
	w := h.do(multipartUpload(t, "file", "a.png", []byte("0123456789")), h.login(t, "u1", "user"))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	h.blob.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
}

func TestUploadOverQuota(t *testing.T) {
	h := newHarness(t, func(c *config.AppConfig) { c.QuotaGB = 0.000000001 }) // ~1 byte
	w := h.do(multipartUpload(t, "f", "a.png", []byte("0123456789")), h.login(t, "u1", "user"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	h.blob.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
}

func TestUploadStoresAndReportsQuota(t *testing.T) {
	h := newHarness(t, nil)
	h.blob.On("Upload", mock.Anything, mock.Anything).
		Return(&storage.StoredObject{Key: "u1/2026/10/x.png", URL: "https://cdn.example.com/u1/2026/10/x.png"}, nil).Once()
	h.blob.On("Usage", mock.Anything, mock.Anything).Return(&storage.Usage{BytesUsed: 3, Files: 1}, nil)
	cookie := h.login(t, "u1", "user")

	w := h.do(multipartUpload(t, "file", "x.png", []byte("abc")), cookie)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = h.do(httptest.NewRequest(http.MethodGet, "/media/quota", nil), cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_bytes_used":3`)
	assert.Contains(t, w.Body.String(), `"total_files":1`)
}

func TestDeleteMediaOwnership(t *testing.T) {
	h := newHarness(t, nil)
	h.blob.On("Delete", mock.Anything, mock.Anything, "u1/2026/10/x.png").Return(nil).Once()

	w := h.do(httptest.NewRequest(http.MethodDelete, "/media/u1/2026/10/x.png", nil), h.login(t, "u2", "user"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(httptest.NewRequest(http.MethodDelete, "/media/u1/2026/10/x.png", nil), h.login(t, "u1", "user"))
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	h.blob.AssertExpectations(t)
}

func TestDeleteMediaRejectsTraversal(t *testing.T) {
	h := newHarness(t, nil)
	cookie := h.login(t, "u2", "user")

	for _, target := range []string{"/media/u2/%2e%2e/u1/2026/10/x.png", "/media/u2/./x.png"} {
		w := h.do(httptest.NewRequest(http.MethodDelete, target, nil), cookie)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
		assert.Equal(t, 40053, decode(t, w).Code, target)
	}

	w := h.do(httptest.NewRequest(http.MethodDelete, "/media/u2/%2e%2e/u1/2026/10/x.png", nil), h.login(t, "boss", "admin"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	h.blob.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteMediaOwnerComesFromUploader(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, repository.NewMediaRepository(h.db).RecordUpload(context.Background(), &models.Media{
		FileName: "x.png", FileSize: 3, FileType: models.MediaTypeImage, StorageKey: "legacy/x.png", UploadedBy: "u1",
	}))
	h.blob.On("Delete", mock.Anything, mock.Anything, "legacy/x.png").Return(nil).Once()

	w := h.do(httptest.NewRequest(http.MethodDelete, "/media/legacy/x.png", nil), h.login(t, "legacy", "user"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(httptest.NewRequest(http.MethodDelete, "/media/legacy/x.png", nil), h.login(t, "u1", "user"))
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	h.blob.AssertExpectations(t)
}

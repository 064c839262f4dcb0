package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/wallpress/models"
)

type countingStore struct {
	calls  int
	record []byte
	found  bool
	err    error
}

func (s *countingStore) Get(ctx context.Context, id string) ([]byte, bool, error) {
	s.calls++
	return s.record, s.found, s.err
}

func requestWithCookie(name, value string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/posts", nil)
	if name != "" {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	return req
}

func newRedisResolver(t *testing.T) (*Resolver, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })
	return NewResolver(NewRedisStore(rc, "session:"), "session"), mr
}

func TestResolveWithoutCookieSkipsStore(t *testing.T) {
	store := &countingStore{}
	r := NewResolver(store, "session")

	p, err := r.Resolve(context.Background(), requestWithCookie("", ""))
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.Zero(t, store.calls)

	p, err = r.Resolve(context.Background(), requestWithCookie("other", "abc"))
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.Zero(t, store.calls)
}

func TestResolveMissIsAnonymous(t *testing.T) {
	r, _ := newRedisResolver(t)
	p, err := r.Resolve(context.Background(), requestWithCookie("session", "nope"))
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestResolveValidRecord(t *testing.T) {
	r, mr := newRedisResolver(t)
	future := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	mr.Set("session:abc", fmt.Sprintf(`{"userId":42,"email":"ann@example.com","role":"ADMIN","avatar_url":"https://a/x.png","github_id":991,"expires":%q}`, future))

	p, err := r.Resolve(context.Background(), requestWithCookie("session", "abc"))
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "42", p.ID)
	assert.Equal(t, "ann", p.Username)
	assert.Equal(t, models.RoleAdmin, p.Role)
	assert.Equal(t, "991", p.ExternalID)
	assert.True(t, p.IsPrivileged())
}

func TestResolveExpiredRecordIsAnonymousAndKept(t *testing.T) {
	r, mr := newRedisResolver(t)
	past := time.Now().Add(-time.Minute)
	cases := map[string]string{
		"rfc3339": fmt.Sprintf(`{"id":"u1","expires":%q}`, past.UTC().Format(time.RFC3339)),
		"seconds": fmt.Sprintf(`{"id":"u1","expires":%d}`, past.Unix()),
		"millis":  fmt.Sprintf(`{"id":"u1","expires":%d}`, past.UnixMilli()),
	}
	for name, rec := range cases {
		t.Run(name, func(t *testing.T) {
			mr.Set("session:old", rec)
			p, err := r.Resolve(context.Background(), requestWithCookie("session", "old"))
			require.NoError(t, err)
			assert.Nil(t, p)
			assert.True(t, mr.Exists("session:old"))
		})
	}
}

func TestResolveMillisecondExpiryInFuture(t *testing.T) {
	r, mr := newRedisResolver(t)
	mr.Set("session:ms", fmt.Sprintf(`{"id":"u2","username":"bob","expires":%d}`, time.Now().Add(time.Hour).UnixMilli()))

	p, err := r.Resolve(context.Background(), requestWithCookie("session", "ms"))
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "u2", p.ID)
	assert.Equal(t, "bob", p.Username)
	assert.Equal(t, models.RoleUser, p.Role)
}

func TestResolveMalformedRecord(t *testing.T) {
	r, mr := newRedisResolver(t)
	for _, rec := range []string{`not json`, `{"email":"x@y"}`, `{"id":true}`, `{"id":"u","expires":"soon"}`} {
		mr.Set("session:bad", rec)
		p, err := r.Resolve(context.Background(), requestWithCookie("session", "bad"))
		assert.Error(t, err, rec)
		assert.Nil(t, p, rec)
	}
}

func TestResolveStoreError(t *testing.T) {
	store := &countingStore{err: errors.New("connection refused")}
	r := NewResolver(store, "session")

	p, err := r.Resolve(context.Background(), requestWithCookie("session", "abc"))
	assert.Error(t, err)
	assert.Nil(t, p)
	assert.Equal(t, 1, store.calls)
}

func TestParseRecordUnknownRoleNormalises(t *testing.T) {
	p, expires, err := ParseRecord([]byte(`{"userId":"7","username":"eve","role":"superuser"}`))
	require.NoError(t, err)
	assert.True(t, expires.IsZero())
	assert.Equal(t, models.RoleUser, p.Role)
	assert.False(t, p.IsPrivileged())
}

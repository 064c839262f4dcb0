package session

import (
	"context"
	"net/http"
	"time"

	"github.com/cppla/wallpress/models"
)

// Resolver turns a session cookie into a principal.
type Resolver struct {
	store      Store
	cookieName string
	now        func() time.Time
}

// NewResolver creates a Resolver reading the named cookie.
func NewResolver(store Store, cookieName string) *Resolver {
	return &Resolver{store: store, cookieName: cookieName, now: time.Now}
}

// Resolve returns the principal for the request, or nil for an anonymous caller.
// The store is not touched when the cookie is absent. Expired records resolve to
// nil and are left in place. A non-nil error always comes with a nil principal.
func (r *Resolver) Resolve(ctx context.Context, req *http.Request) (*models.Principal, error) {
	cookie, err := req.Cookie(r.cookieName)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}

	raw, found, err := r.store.Get(ctx, cookie.Value)
	if err != nil || !found {
		return nil, err
	}

	principal, expires, err := ParseRecord(raw)
	if err != nil {
		return nil, err
	}
	if !expires.IsZero() && !expires.After(r.now()) {
		return nil, nil
	}
	return principal, nil
}

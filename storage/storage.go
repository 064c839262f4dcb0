// Package storage delegates media bytes to a blob backend: the external
// storage service over HTTP or an S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Identity is the acting user forwarded to the blob backend.
type Identity struct {
	UserID    string
	Role      string
	Email     string
	AccountID string
}

// UploadInput describes one object to store.
type UploadInput struct {
	Owner       Identity
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// StoredObject is what the backend reports after a successful upload.
type StoredObject struct {
	Key  string `json:"key"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// Usage is the backend's own view of a user's consumption.
type Usage struct {
	BytesUsed int64 `json:"bytes_used"`
	Files     int64 `json:"files"`
}

// BlobService stores and removes media objects.
type BlobService interface {
	Upload(ctx context.Context, in UploadInput) (*StoredObject, error)
	Delete(ctx context.Context, owner Identity, key string) error
	Usage(ctx context.Context, owner Identity) (*Usage, error)
}

// APIError represents a non-2xx answer of the storage backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("storage backend returned %d: %s", e.Status, e.Message)
}

// ObjectKey builds the key <userID>/<yyyy>/<mm>/<uuid><ext> for a new object.
func ObjectKey(userID, fileName string, now time.Time) string {
	ext := strings.ToLower(path.Ext(fileName))
	if len(ext) > 10 {
		ext = ""
	}
	return fmt.Sprintf("%s/%04d/%02d/%s%s", userID, now.Year(), int(now.Month()), uuid.NewString(), ext)
}

// ErrInvalidKey is returned for keys that are not in canonical form.
var ErrInvalidKey = errors.New("invalid storage key")

// CleanKey strips one leading slash and rejects keys that are empty, not
// canonical, or carry empty, "." or ".." segments.
func CleanKey(key string) (string, error) {
	key = strings.TrimPrefix(key, "/")
	if key == "" || strings.ContainsAny(key, "\\\x00") || path.Clean(key) != key {
		return "", ErrInvalidKey
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", ErrInvalidKey
		}
	}
	return key, nil
}

// KeyOwner returns the user id a key was issued to, the segment before the
// first slash. Invalid keys have no owner.
func KeyOwner(key string) string {
	key, err := CleanKey(key)
	if err != nil {
		return ""
	}
	owner, _, found := strings.Cut(key, "/")
	if !found {
		return ""
	}
	return owner
}

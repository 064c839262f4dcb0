package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cppla/wallpress/models"
)

// ErrMissingUserID is returned for records that carry neither userId nor id.
var ErrMissingUserID = errors.New("session record has no user id")

// record mirrors the JSON written by the account service.
type record struct {
	UserID    json.RawMessage `json:"userId"`
	ID        json.RawMessage `json:"id"`
	Email     string          `json:"email"`
	Username  string          `json:"username"`
	Role      string          `json:"role"`
	AvatarURL string          `json:"avatar_url"`
	GithubID  json.RawMessage `json:"github_id"`
	Expires   json.RawMessage `json:"expires"`
}

// epoch values above this are milliseconds
const millisThreshold = 1e12

// ParseRecord decodes a session record into a principal and its expiry.
// A zero expiry means the record does not expire.
func ParseRecord(raw []byte) (*models.Principal, time.Time, error) {
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, time.Time{}, fmt.Errorf("decode session record: %w", err)
	}

	id, err := scalarString(rec.UserID)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("userId: %w", err)
	}
	if id == "" {
		if id, err = scalarString(rec.ID); err != nil {
			return nil, time.Time{}, fmt.Errorf("id: %w", err)
		}
	}
	if id == "" {
		return nil, time.Time{}, ErrMissingUserID
	}

	expires, err := parseExpires(rec.Expires)
	if err != nil {
		return nil, time.Time{}, err
	}

	externalID, err := scalarString(rec.GithubID)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("github_id: %w", err)
	}

	username := strings.TrimSpace(rec.Username)
	if username == "" {
		username, _, _ = strings.Cut(rec.Email, "@")
	}
	if username == "" {
		username = "user-" + id
	}

	return &models.Principal{
		ID:         id,
		Username:   username,
		Email:      strings.TrimSpace(rec.Email),
		Role:       models.NormalizeRole(rec.Role),
		AvatarURL:  rec.AvatarURL,
		ExternalID: externalID,
	}, expires, nil
}

// scalarString accepts a JSON string or number. Absent and null yield "".
func scalarString(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("expected string or number, got %s", raw)
	}
	return n.String(), nil
}

func parseExpires(raw json.RawMessage) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "" {
			return time.Time{}, nil
		}
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t, nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return fromEpoch(f), nil
		}
		return time.Time{}, fmt.Errorf("expires: unrecognised timestamp %q", s)
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return time.Time{}, fmt.Errorf("expires: expected timestamp, got %s", raw)
	}
	return fromEpoch(f), nil
}

func fromEpoch(v float64) time.Time {
	if v > millisThreshold {
		return time.UnixMilli(int64(v))
	}
	return time.Unix(int64(v), 0)
}

package models

import "strings"

// Role names recognised by the gateway.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
	RoleOwner = "owner"
)

// Principal is the identity resolved from the session store for one request.
// It is never persisted directly; the users table only mirrors it.
type Principal struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email,omitempty"`
	Role       string `json:"role"`
	AvatarURL  string `json:"avatar_url,omitempty"`
	ExternalID string `json:"external_id,omitempty"`
}

// NormalizeRole lowercases a role and falls back to RoleUser for anything unknown.
func NormalizeRole(role string) string {
	switch r := strings.ToLower(strings.TrimSpace(role)); r {
	case RoleAdmin, RoleOwner:
		return r
	default:
		return RoleUser
	}
}

// IsPrivileged reports whether the principal holds the admin or owner role.
func (p *Principal) IsPrivileged() bool {
	if p == nil {
		return false
	}
	return p.Role == RoleAdmin || p.Role == RoleOwner
}

// IsOwner reports whether the principal holds the owner role.
func (p *Principal) IsOwner() bool {
	return p != nil && p.Role == RoleOwner
}

// Mirror converts the principal into its users-table projection.
func (p Principal) Mirror() User {
	return User{
		ID:         p.ID,
		Username:   p.Username,
		Email:      p.Email,
		Role:       p.Role,
		AvatarURL:  p.AvatarURL,
		ExternalID: p.ExternalID,
	}
}

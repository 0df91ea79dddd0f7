package core

import (
	"errors"
	"strings"
)

var (
	ErrMissingCredentials = errors.New("username and password are required")
	ErrMissingEmail       = errors.New("email is required")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
)

// Identity is the client's in-memory projection of the authenticated user.
// The bearer token is deliberately absent: it only lives in the state store.
type Identity struct {
	UserID        ID     `json:"id"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	Role          Role   `json:"role"`
	IsGroupMember bool   `json:"isGroupMember"`
	Country       string `json:"country"`
}

// NeedsCountry reports whether the one-time country prompt applies.
// Group members inherit the currency of their group.
func (id Identity) NeedsCountry() bool {
	return strings.TrimSpace(id.Country) == "" && !id.IsGroupMember
}

// CanManageGroupFeatures reports whether budgets and recurring transactions
// are directly accessible.
func (id Identity) CanManageGroupFeatures() bool {
	return !id.IsGroupMember || id.Role.AtLeast(RoleAdmin)
}

// DisplayName prefers the full name, then the username.
func (id Identity) DisplayName() string {
	full := strings.TrimSpace(id.FirstName + " " + id.LastName)
	if full != "" {
		return full
	}
	return id.Username
}

// Credentials are either username+password or an external identity
// provider assertion (Google ID token).
type Credentials struct {
	Username    string `json:"username,omitempty"`
	Password    string `json:"password,omitempty"`
	GoogleToken string `json:"googleToken,omitempty"`
}

// IsExternal reports whether the credentials carry a provider assertion.
func (c Credentials) IsExternal() bool {
	return strings.TrimSpace(c.GoogleToken) != ""
}

func (c Credentials) Validate() error {
	if c.IsExternal() {
		return nil
	}
	if strings.TrimSpace(c.Username) == "" || strings.TrimSpace(c.Password) == "" {
		return ErrMissingCredentials
	}
	return nil
}

// Registration is the payload for creating a new account.
type Registration struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Country   string `json:"country,omitempty"`
}

func (r Registration) Validate() error {
	if strings.TrimSpace(r.Username) == "" || strings.TrimSpace(r.Password) == "" {
		return ErrMissingCredentials
	}
	if strings.TrimSpace(r.Email) == "" {
		return ErrMissingEmail
	}
	if len(r.Password) < 6 {
		return ErrWeakPassword
	}
	return nil
}

// AuthResponse is what login, register and Google login return: the token
// plus the identity fields, flattened in one object.
type AuthResponse struct {
	Token string `json:"token"`
	Identity
}

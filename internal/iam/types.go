package iam

import (
	"errors"
	"time"
)

// User represents an account in the identity catalog.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"` // never serialised
	CreatedAt    time.Time `json:"created"`
	Roles        []Role    `json:"roles"`
}

// Role is a named bundle of scopes, assignable to users.
type Role struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Scopes []Scope `json:"scopes,omitempty"`
}

// Scope is a single permission string granted via role membership.
type Scope struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RoleNames returns the user's role names.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}

// ScopeNames returns the union of scope names across the user's roles.
func (u *User) ScopeNames() []string {
	seen := make(map[string]struct{})
	names := []string{}
	for _, r := range u.Roles {
		for _, s := range r.Scopes {
			if _, ok := seen[s.Name]; ok {
				continue
			}
			seen[s.Name] = struct{}{}
			names = append(names, s.Name)
		}
	}
	return names
}

// HasScope reports whether the scope is in the union of the user's
// roles' scopes.
func (u *User) HasScope(scope string) bool {
	for _, r := range u.Roles {
		for _, s := range r.Scopes {
			if s.Name == scope {
				return true
			}
		}
	}
	return false
}

// HasAnyRole reports whether the user holds at least one of the allowed roles.
func (u *User) HasAnyRole(allowed ...string) bool {
	for _, r := range u.Roles {
		for _, name := range allowed {
			if r.Name == name {
				return true
			}
		}
	}
	return false
}

// Sentinel errors for identity operations.
var (
	// ErrUnauthorized covers every authentication failure: bad credentials,
	// malformed or expired tokens, unresolvable subjects. Unknown user and
	// wrong password are deliberately indistinguishable.
	ErrUnauthorized = errors.New("could not validate credentials")

	// ErrForbidden indicates an authenticated user lacks a required role
	// or scope.
	ErrForbidden = errors.New("insufficient permissions")
)

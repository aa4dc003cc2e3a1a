// Package auth verifies identity-provider session tokens and carries the resulting
// session explicitly through handlers and services.
package auth

import (
	"github.com/google/uuid"
	"github.com/sifan077/LinkGate/internal/app/apperr"
)

// Session is the authenticated caller. The zero value is an anonymous visitor.
type Session struct {
	UserID uuid.UUID
	Email  string
}

// Anonymous is the session of an unauthenticated visitor.
var Anonymous = Session{}

// Authenticated reports whether the session belongs to a signed-in user.
func (s Session) Authenticated() bool {
	return s.UserID != uuid.Nil
}

// Require returns apperr.ErrUnauthorized for anonymous sessions.
func (s Session) Require() error {
	if !s.Authenticated() {
		return apperr.ErrUnauthorized
	}
	return nil
}

// Owner returns a pointer to the user id, or nil for anonymous sessions.
func (s Session) Owner() *uuid.UUID {
	if !s.Authenticated() {
		return nil
	}
	id := s.UserID
	return &id
}

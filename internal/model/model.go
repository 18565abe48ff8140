// Package model defines domain entities shared by the session, guard, and api layers.
package model

import (
	"encoding/json"
	"strings"
	"time"
)

// State is the tri-state authentication status tracked client-side.
type State int

const (
	// StateUnknown means no resolution has completed yet.
	StateUnknown State = iota
	// StateAuthenticated means an identity is present.
	StateAuthenticated
	// StateUnauthenticated means the last resolution found no session.
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Identity is the signed-in user's profile as known to the client.
type Identity struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"` // "admin" | "user"
	Phone     *string   `json:"phone"`
	Address   *string   `json:"address"`
	DNI       *string   `json:"dni"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsAdmin reports whether the identity carries the admin role.
func (i Identity) IsAdmin() bool { return i.Role == "admin" }

// Outcome is the structured result of a login or registration attempt.
// Created per call and discarded by the caller after acting on it.
type Outcome struct {
	Success  bool
	Message  string
	Identity *Identity
}

// Envelope is the JSON envelope the API wraps responses in.
// Auth endpoints always use it; data endpoints use it for writes and errors.
type Envelope struct {
	Message    string          `json:"message,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
	Error      string          `json:"error,omitempty"`
	StatusCode int             `json:"statusCode,omitempty"`
	Errors     []string        `json:"errors,omitempty"`
}

// FailureMessage extracts the most specific human-readable failure text,
// preferring message, then error, then the joined errors list.
func (e Envelope) FailureMessage() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Error != "" {
		return e.Error
	}
	if len(e.Errors) > 0 {
		return strings.Join(e.Errors, "; ")
	}
	return ""
}

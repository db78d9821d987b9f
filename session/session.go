// Package session holds the authentication state of one client instance and
// the operations that change it.
package session

import (
	"time"

	"github.com/jrsteele09/sade-booster/identity"
)

// Status tells whether the initial session check has resolved.
type Status int

const (
	StatusProbing Status = iota
	StatusReady
)

func (s Status) String() string {
	if s == StatusReady {
		return "ready"
	}
	return "probing"
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Destination is where the caller should navigate after an operation.
type Destination string

const (
	DestinationNone      Destination = ""
	DestinationDashboard Destination = "/dashboard"
	DestinationSignIn    Destination = "/login"
)

// Messages shown when a failure carries no message of its own
const (
	MsgSignInFailed        = "An error occurred during sign in"
	MsgSignOutFailed       = "An error occurred during sign out"
	MsgUpdateProfileFailed = "An error occurred while updating profile"
)

// Session is a snapshot of the authentication state.
type Session struct {
	Identity   *identity.Identity  `json:"identity,omitempty"`    // nil when signed out
	Profile    identity.Attributes `json:"profile,omitempty"`     // Attributes of Identity, fetched separately
	Status     Status              `json:"status"`                // Probing until the first check resolves
	LastError  string              `json:"last_error,omitempty"`  // Message of the most recent failed operation
	SignedInAt time.Time           `json:"signed_in_at,omitzero"` // When Identity was established
}

// SignedIn reports whether an identity is present.
func (s Session) SignedIn() bool {
	return s.Identity != nil
}

// Ready reports whether the fields can be treated as authoritative.
func (s Session) Ready() bool {
	return s.Status == StatusReady
}

// VisibleProfile returns the profile, or nil when signed out so a cached
// profile never outlives its identity.
func (s Session) VisibleProfile() identity.Attributes {
	if s.Identity == nil {
		return nil
	}
	return s.Profile
}

func (s Session) clone() Session {
	c := s
	if s.Identity != nil {
		id := *s.Identity
		c.Identity = &id
	}
	c.Profile = s.Profile.Clone()
	return c
}

package tokens

import (
	"context"
	"errors"

	"golang.org/x/oauth2"
)

// ErrNotFound is returned when a client has no stored tokens
var ErrNotFound = errors.New("tokens not found")

// Tokens are the provider credentials held for one client instance.
type Tokens struct {
	LoginID string        `json:"login_id"` // Identifier the user signed in with
	Subject string        `json:"subject"`  // Stable user id taken from the ID token
	IDToken string        `json:"id_token"` // Raw OIDC ID token, may be empty
	Token   *oauth2.Token `json:"token"`    // Access/refresh token pair with expiry
}

// AccessToken returns the access token or "" when none is held.
func (t Tokens) AccessToken() string {
	if t.Token == nil {
		return ""
	}
	return t.Token.AccessToken
}

// RefreshToken returns the refresh token or "" when none is held.
func (t Tokens) RefreshToken() string {
	if t.Token == nil {
		return ""
	}
	return t.Token.RefreshToken
}

// Store keeps tokens keyed by client instance ID.
type Store interface {
	Upsert(ctx context.Context, clientID string, t Tokens) error
	Get(ctx context.Context, clientID string) (Tokens, error)
	Delete(ctx context.Context, clientID string) error
}

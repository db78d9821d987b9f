package identity

import "context"

// Well known attribute names stored by the identity provider
const (
	AttrGivenName  = "given_name"
	AttrFamilyName = "family_name"
	AttrEmail      = "email"
	AttrSub        = "sub"
)

// Identity is the signed in principal as reported by the provider.
type Identity struct {
	ID      string `json:"id"`       // Opaque stable user identifier
	LoginID string `json:"login_id"` // Identifier used to sign in (email)
}

// Attributes maps attribute names to values.
type Attributes map[string]string

// Clone returns an independent copy. A nil map stays nil.
func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}
	c := make(Attributes, len(a))
	for k, v := range a {
		c[k] = v
	}
	return c
}

// Get returns the value for name, or "" when unset.
func (a Attributes) Get(name string) string {
	if a == nil {
		return ""
	}
	return a[name]
}

// AuthResult is the outcome of a credential submission.
type AuthResult struct {
	SignedIn bool
	NextStep string // Provider challenge still to be answered when SignedIn is false
}

// Provider is the identity provider capability consumed by the application.
//
// A Provider is bound to the credential slot of a single client instance, in
// the same way a browser SDK keeps the tokens of the current user. Failures
// are reported as *ProviderError values carrying one of the Err* kinds.
type Provider interface {
	Registrar

	// Authenticate submits credentials and, on success, stores the issued
	// tokens in the client's slot.
	Authenticate(ctx context.Context, loginID, secret string) (AuthResult, error)

	// CurrentIdentity returns the identity of the stored tokens, or
	// ErrNoSession when there are none or they were rejected.
	CurrentIdentity(ctx context.Context) (Identity, error)

	// AttributesOf fetches the attributes of the identity.
	AttributesOf(ctx context.Context, id Identity) (Attributes, error)

	// SetAttributes updates the given subset of attributes.
	SetAttributes(ctx context.Context, attrs Attributes) error

	// InvalidateAllSessions signs the identity out everywhere. The locally
	// held tokens are discarded even when the remote call fails.
	InvalidateAllSessions(ctx context.Context) error
}

// Registrar is the account creation part of the provider.
type Registrar interface {
	Register(ctx context.Context, loginID, secret string, attrs Attributes) error
	ConfirmRegistration(ctx context.Context, loginID, code string) error
}

// Connector hands out providers bound to a client instance.
type Connector interface {
	Connect(clientID string) Provider
}

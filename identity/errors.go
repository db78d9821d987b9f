package identity

import (
	"errors"
	"fmt"
)

// Failure kinds reported by providers
var (
	ErrNoSession          = errors.New("no signed in user")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotConfirmed       = errors.New("user not confirmed")
	ErrUsernameExists     = errors.New("username exists")
	ErrWeakPassword       = errors.New("password does not meet policy")
	ErrInvalidCode        = errors.New("invalid confirmation code")
	ErrExpiredCode        = errors.New("confirmation code expired")
	ErrValidation         = errors.New("validation failed")
	ErrUnknown            = errors.New("unknown provider error")
)

var kinds = []error{
	ErrNoSession,
	ErrInvalidCredentials,
	ErrNotConfirmed,
	ErrUsernameExists,
	ErrWeakPassword,
	ErrInvalidCode,
	ErrExpiredCode,
	ErrValidation,
}

// ProviderError is a classified provider failure.
type ProviderError struct {
	Kind    error  // One of the Err* kinds
	Message string // Human readable message from the provider, may be empty
	Err     error  // Underlying cause, may be nil
}

// NewError builds a ProviderError of the given kind.
func NewError(kind error, message string, cause error) *ProviderError {
	return &ProviderError{Kind: kind, Message: message, Err: cause}
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Err)
	}
	return e.Kind.Error()
}

// Is matches the kind so callers can use errors.Is(err, identity.ErrNotConfirmed).
func (e *ProviderError) Is(target error) bool {
	return e.Kind == target
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// KindOf classifies err. Unclassified errors are ErrUnknown.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrUnknown
}

// Message returns the text to show for err. Provider failures show the
// provider's message or fallback when it gave none; other errors show their
// own text.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		if pe.Message != "" {
			return pe.Message
		}
		return fallback
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}

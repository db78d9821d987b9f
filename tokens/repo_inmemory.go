package tokens

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/oauth2"
)

var _ Store = (*InMemoryStore)(nil)

// InMemoryStore is an in-memory implementation of Store
type InMemoryStore struct {
	mu     sync.RWMutex
	tokens map[string]Tokens // clientID -> tokens
}

// NewInMemoryStore creates a new in-memory token store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		tokens: make(map[string]Tokens),
	}
}

// Upsert creates or replaces the tokens of a client
func (s *InMemoryStore) Upsert(_ context.Context, clientID string, t Tokens) error {
	if clientID == "" {
		return fmt.Errorf("clientID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[clientID] = copyTokens(t)
	return nil
}

// Get retrieves the tokens of a client
func (s *InMemoryStore) Get(_ context.Context, clientID string) (Tokens, error) {
	if clientID == "" {
		return Tokens{}, fmt.Errorf("clientID is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tokens[clientID]
	if !ok {
		return Tokens{}, ErrNotFound
	}
	return copyTokens(t), nil
}

// Delete removes the tokens of a client
func (s *InMemoryStore) Delete(_ context.Context, clientID string) error {
	if clientID == "" {
		return fmt.Errorf("clientID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tokens, clientID) // Already gone is not an error
	return nil
}

// copyTokens detaches the oauth2.Token so callers can't mutate stored state
func copyTokens(t Tokens) Tokens {
	if t.Token != nil {
		tok := *t.Token
		t.Token = &oauth2.Token{
			AccessToken:  tok.AccessToken,
			TokenType:    tok.TokenType,
			RefreshToken: tok.RefreshToken,
			Expiry:       tok.Expiry,
		}
	}
	return t
}

// Package memory is an in-process identity directory with the same contract as
// the hosted provider. It backs local development and the test suites.
package memory

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/sade-booster/identity"
	"github.com/jrsteele09/sade-booster/tokens"
	"github.com/jrsteele09/sade-booster/users"
	"github.com/rs/zerolog/log"
)

const (
	defaultIssuer         = "sade-booster-directory"
	defaultAccessTokenTTL = time.Hour
	defaultCodeTTL        = 24 * time.Hour
)

// CodeSender delivers confirmation codes to new users.
type CodeSender interface {
	SendCode(ctx context.Context, loginID, code string) error
}

// CodeSenderFunc adapts a function to CodeSender.
type CodeSenderFunc func(ctx context.Context, loginID, code string) error

func (f CodeSenderFunc) SendCode(ctx context.Context, loginID, code string) error {
	return f(ctx, loginID, code)
}

// logCodeSender writes the code to the log, standing in for email delivery.
var logCodeSender = CodeSenderFunc(func(_ context.Context, loginID, code string) error {
	log.Info().Str("login_id", loginID).Str("code", code).Msg("Confirmation code issued")
	return nil
})

// Directory holds accounts and issues access tokens.
type Directory struct {
	users          users.UserRepo
	tokens         tokens.Store
	signingKey     []byte
	issuer         string
	accessTokenTTL time.Duration
	codeTTL        time.Duration
	sender         CodeSender
	nowTime        func() time.Time

	mu sync.Mutex // serializes read-modify-write of user records
}

var _ identity.Connector = (*Directory)(nil)

// Option configures a Directory.
type Option func(*Directory)

// WithNowTime sets the clock (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(d *Directory) {
		d.nowTime = nowFunc
	}
}

// WithCodeSender replaces the log based code delivery
func WithCodeSender(sender CodeSender) Option {
	return func(d *Directory) {
		d.sender = sender
	}
}

// WithCodeTTL sets how long confirmation codes are accepted
func WithCodeTTL(ttl time.Duration) Option {
	return func(d *Directory) {
		d.codeTTL = ttl
	}
}

// WithAccessTokenTTL sets the lifetime of issued access tokens
func WithAccessTokenTTL(ttl time.Duration) Option {
	return func(d *Directory) {
		d.accessTokenTTL = ttl
	}
}

// WithSigningKey sets the HMAC key used for access tokens
func WithSigningKey(key []byte) Option {
	return func(d *Directory) {
		d.signingKey = key
	}
}

// New creates a directory over the given repositories.
func New(repo users.UserRepo, store tokens.Store, opts ...Option) (*Directory, error) {
	d := &Directory{
		users:          repo,
		tokens:         store,
		issuer:         defaultIssuer,
		accessTokenTTL: defaultAccessTokenTTL,
		codeTTL:        defaultCodeTTL,
		sender:         logCodeSender,
		nowTime:        time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	if len(d.signingKey) == 0 {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("[Memory New] failed to generate signing key: %w", err)
		}
		d.signingKey = key
	}
	return d, nil
}

// Connect returns a provider bound to the client's token slot.
func (d *Directory) Connect(clientID string) identity.Provider {
	return &clientProvider{dir: d, clientID: clientID}
}

// Seed adds a confirmed account, replacing any existing one with the same login.
func (d *Directory) Seed(loginID, password string, attrs identity.Attributes) error {
	hash, err := users.HashPassword(password)
	if err != nil {
		return fmt.Errorf("[Memory Seed] failed to hash password: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	u := &users.User{
		Email:        normalizeLogin(loginID),
		PasswordHash: hash,
		Attributes:   attrs.Clone(),
		DateJoined:   d.nowTime(),
		Confirmed:    true,
	}
	if existing, err := d.users.GetByEmail(u.Email); err == nil {
		u.ID = existing.ID
	}
	if u.Attributes == nil {
		u.Attributes = map[string]string{}
	}
	u.Attributes[identity.AttrEmail] = u.Email
	return d.users.Upsert(u)
}

func normalizeLogin(loginID string) string {
	return strings.ToLower(strings.TrimSpace(loginID))
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

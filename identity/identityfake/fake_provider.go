// Package identityfake provides a scriptable identity provider for tests.
package identityfake

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jrsteele09/sade-booster/identity"
)

// Op names a provider operation for error injection and call counting.
type Op string

const (
	OpAuthenticate          Op = "Authenticate"
	OpCurrentIdentity       Op = "CurrentIdentity"
	OpAttributesOf          Op = "AttributesOf"
	OpSetAttributes         Op = "SetAttributes"
	OpInvalidateAllSessions Op = "InvalidateAllSessions"
	OpRegister              Op = "Register"
	OpConfirmRegistration   Op = "ConfirmRegistration"
)

// DefaultCode is the confirmation code issued by Register unless Code is changed.
const DefaultCode = "123456"

type account struct {
	id        string
	secret    string
	attrs     identity.Attributes
	confirmed bool
	code      string
}

var _ identity.Provider = (*Provider)(nil)

// Provider is an in-memory identity.Provider holding a single client's session.
type Provider struct {
	mu       sync.Mutex
	accounts map[string]*account
	current  *identity.Identity
	errs     map[Op]error
	calls    map[Op]int
	hook     func(ctx context.Context, op Op)
	nextStep string

	// Code is handed out by Register
	Code string
}

func New() *Provider {
	return &Provider{
		accounts: make(map[string]*account),
		errs:     make(map[Op]error),
		calls:    make(map[Op]int),
		Code:     DefaultCode,
	}
}

// AddAccount creates a confirmed account and returns its identity.
func (p *Provider) AddAccount(loginID, secret string, attrs identity.Attributes) identity.Identity {
	p.mu.Lock()
	defer p.mu.Unlock()

	a := &account{id: uuid.NewString(), secret: secret, attrs: attrs.Clone(), confirmed: true}
	if a.attrs == nil {
		a.attrs = identity.Attributes{}
	}
	p.accounts[loginID] = a
	return identity.Identity{ID: a.id, LoginID: loginID}
}

// SignInAs marks loginID as the client's current identity without credentials.
func (p *Provider) SignInAs(loginID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if a, ok := p.accounts[loginID]; ok {
		p.current = &identity.Identity{ID: a.id, LoginID: loginID}
	}
}

// Current returns the identity held by the fake, if any.
func (p *Provider) Current() *identity.Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil
	}
	c := *p.current
	return &c
}

// FailWith makes op fail with err. A nil err restores normal behaviour.
func (p *Provider) FailWith(op Op, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err == nil {
		delete(p.errs, op)
		return
	}
	p.errs[op] = err
}

// RequireStep makes Authenticate answer with a pending challenge.
func (p *Provider) RequireStep(step string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextStep = step
}

// OnCall installs a hook run at the start of every operation, outside the
// fake's lock. Tests use it to hold an operation in flight.
func (p *Provider) OnCall(hook func(ctx context.Context, op Op)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hook = hook
}

// Calls reports how many times op was invoked.
func (p *Provider) Calls(op Op) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[op]
}

// PendingCode returns the unconsumed confirmation code for loginID.
func (p *Provider) PendingCode(loginID string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if a, ok := p.accounts[loginID]; ok {
		return a.code
	}
	return ""
}

// begin counts the call, runs the hook and returns any injected error.
func (p *Provider) begin(ctx context.Context, op Op) error {
	p.mu.Lock()
	p.calls[op]++
	hook := p.hook
	p.mu.Unlock()

	if hook != nil {
		hook(ctx, op)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.errs[op]
}

func (p *Provider) Authenticate(ctx context.Context, loginID, secret string) (identity.AuthResult, error) {
	if err := p.begin(ctx, OpAuthenticate); err != nil {
		return identity.AuthResult{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	a, ok := p.accounts[loginID]
	if !ok || a.secret != secret {
		return identity.AuthResult{}, identity.NewError(identity.ErrInvalidCredentials, "Incorrect username or password.", nil)
	}
	if !a.confirmed {
		return identity.AuthResult{}, identity.NewError(identity.ErrNotConfirmed, "User is not confirmed.", nil)
	}
	if p.nextStep != "" {
		return identity.AuthResult{NextStep: p.nextStep}, nil
	}
	p.current = &identity.Identity{ID: a.id, LoginID: loginID}
	return identity.AuthResult{SignedIn: true}, nil
}

func (p *Provider) CurrentIdentity(ctx context.Context) (identity.Identity, error) {
	if err := p.begin(ctx, OpCurrentIdentity); err != nil {
		return identity.Identity{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return identity.Identity{}, identity.NewError(identity.ErrNoSession, "No current user", nil)
	}
	return *p.current, nil
}

func (p *Provider) AttributesOf(ctx context.Context, id identity.Identity) (identity.Attributes, error) {
	if err := p.begin(ctx, OpAttributesOf); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	a, ok := p.accounts[id.LoginID]
	if !ok || a.id != id.ID {
		return nil, identity.NewError(identity.ErrNoSession, "No current user", nil)
	}
	attrs := a.attrs.Clone()
	attrs[identity.AttrSub] = a.id
	if _, ok := attrs[identity.AttrEmail]; !ok {
		attrs[identity.AttrEmail] = id.LoginID
	}
	return attrs, nil
}

// SetAttributes stores trimmed values, standing in for provider side normalisation.
func (p *Provider) SetAttributes(ctx context.Context, attrs identity.Attributes) error {
	if err := p.begin(ctx, OpSetAttributes); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil {
		return identity.NewError(identity.ErrNoSession, "No current user", nil)
	}
	a := p.accounts[p.current.LoginID]
	for k, v := range attrs {
		a.attrs[k] = strings.TrimSpace(v)
	}
	return nil
}

func (p *Provider) InvalidateAllSessions(ctx context.Context) error {
	err := p.begin(ctx, OpInvalidateAllSessions)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err == nil && p.current == nil {
		err = identity.NewError(identity.ErrNoSession, "No current user", nil)
	}
	p.current = nil
	return err
}

func (p *Provider) Register(ctx context.Context, loginID, secret string, attrs identity.Attributes) error {
	if err := p.begin(ctx, OpRegister); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.accounts[loginID]; ok {
		return identity.NewError(identity.ErrUsernameExists, "An account with the given email already exists.", nil)
	}
	if len(secret) < 8 {
		return identity.NewError(identity.ErrWeakPassword, "Password did not conform with policy: Password not long enough", nil)
	}
	a := &account{id: uuid.NewString(), secret: secret, attrs: attrs.Clone(), code: p.Code}
	if a.attrs == nil {
		a.attrs = identity.Attributes{}
	}
	p.accounts[loginID] = a
	return nil
}

func (p *Provider) ConfirmRegistration(ctx context.Context, loginID, code string) error {
	if err := p.begin(ctx, OpConfirmRegistration); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	a, ok := p.accounts[loginID]
	if !ok || a.code == "" || a.code != code {
		return identity.NewError(identity.ErrInvalidCode, "Invalid verification code provided, please try again.", nil)
	}
	a.confirmed = true
	a.code = ""
	return nil
}

// Connector hands out one fake Provider per client id.
type Connector struct {
	mu        sync.Mutex
	providers map[string]*Provider
	setup     func(*Provider)
}

var _ identity.Connector = (*Connector)(nil)

// NewConnector runs setup on every newly created Provider.
func NewConnector(setup func(*Provider)) *Connector {
	return &Connector{providers: make(map[string]*Provider), setup: setup}
}

func (c *Connector) Connect(clientID string) identity.Provider {
	return c.Provider(clientID)
}

// Provider returns the fake bound to clientID, creating it when needed.
func (c *Connector) Provider(clientID string) *Provider {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.providers[clientID]; ok {
		return p
	}
	p := New()
	if c.setup != nil {
		c.setup(p)
	}
	c.providers[clientID] = p
	return p
}

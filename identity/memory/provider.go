package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jrsteele09/sade-booster/identity"
	"github.com/jrsteele09/sade-booster/tokens"
	"github.com/jrsteele09/sade-booster/users"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Messages mirror the hosted provider so both backends read the same in the UI
const (
	msgIncorrectCredentials = "Incorrect username or password."
	msgNotConfirmed         = "User is not confirmed."
	msgNoCurrentUser        = "No current user"
	msgUsernameExists       = "An account with the given email already exists."
	msgInvalidCode          = "Invalid verification code provided, please try again."
	msgExpiredCode          = "Invalid code provided, please request a code again."
	msgAlreadyConfirmed     = "User cannot be confirmed. Current status is CONFIRMED"
	msgLoginRequired        = "Username cannot be empty"
)

// immutableAttributes can't be changed through SetAttributes
var immutableAttributes = map[string]struct{}{
	identity.AttrSub:   {},
	identity.AttrEmail: {},
}

type clientProvider struct {
	dir      *Directory
	clientID string
}

var _ identity.Provider = (*clientProvider)(nil)

func (p *clientProvider) Authenticate(ctx context.Context, loginID, secret string) (identity.AuthResult, error) {
	d := p.dir
	login := normalizeLogin(loginID)
	if login == "" {
		return identity.AuthResult{}, identity.NewError(identity.ErrValidation, msgLoginRequired, nil)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	u, err := d.users.GetByEmail(login)
	if err != nil || !u.CheckPassword(secret) {
		return identity.AuthResult{}, identity.NewError(identity.ErrInvalidCredentials, msgIncorrectCredentials, nil)
	}
	if !u.Confirmed {
		return identity.AuthResult{}, identity.NewError(identity.ErrNotConfirmed, msgNotConfirmed, nil)
	}

	access, expiry, err := d.issueAccessToken(u)
	if err != nil {
		return identity.AuthResult{}, identity.NewError(identity.ErrUnknown, "", err)
	}

	u.LastLogin = d.nowTime()
	if err := d.users.Upsert(u); err != nil {
		return identity.AuthResult{}, identity.NewError(identity.ErrUnknown, "", err)
	}

	err = d.tokens.Upsert(ctx, p.clientID, tokens.Tokens{
		LoginID: loginID,
		Subject: u.ID,
		Token: &oauth2.Token{
			AccessToken: access,
			TokenType:   "Bearer",
			Expiry:      expiry,
		},
	})
	if err != nil {
		return identity.AuthResult{}, identity.NewError(identity.ErrUnknown, "", err)
	}
	return identity.AuthResult{SignedIn: true}, nil
}

// currentUser resolves the user behind the client's stored token. Rejected
// tokens are dropped from the slot.
func (p *clientProvider) currentUser(ctx context.Context) (*users.User, tokens.Tokens, error) {
	d := p.dir
	t, err := d.tokens.Get(ctx, p.clientID)
	if err != nil {
		if errors.Is(err, tokens.ErrNotFound) {
			return nil, tokens.Tokens{}, identity.NewError(identity.ErrNoSession, msgNoCurrentUser, nil)
		}
		return nil, tokens.Tokens{}, identity.NewError(identity.ErrUnknown, "", err)
	}

	reject := func(cause error) (*users.User, tokens.Tokens, error) {
		if err := d.tokens.Delete(ctx, p.clientID); err != nil {
			log.Err(err).Str("client_id", p.clientID).Msg("Failed to drop rejected tokens")
		}
		return nil, tokens.Tokens{}, identity.NewError(identity.ErrNoSession, msgNoCurrentUser, cause)
	}

	claims, err := d.parseAccessToken(t.AccessToken())
	if err != nil {
		return reject(err)
	}
	u, err := d.users.GetByID(claims.Subject)
	if err != nil {
		return reject(err)
	}
	if u.SessionVersion != claims.SessionVersion {
		return reject(fmt.Errorf("session version %d revoked", claims.SessionVersion))
	}
	return u, t, nil
}

func (p *clientProvider) CurrentIdentity(ctx context.Context) (identity.Identity, error) {
	u, t, err := p.currentUser(ctx)
	if err != nil {
		return identity.Identity{}, err
	}
	loginID := t.LoginID
	if loginID == "" {
		loginID = u.Email
	}
	return identity.Identity{ID: u.ID, LoginID: loginID}, nil
}

func (p *clientProvider) AttributesOf(ctx context.Context, id identity.Identity) (identity.Attributes, error) {
	u, _, err := p.currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if id.ID != "" && id.ID != u.ID {
		return nil, identity.NewError(identity.ErrNoSession, msgNoCurrentUser, nil)
	}

	attrs := identity.Attributes(u.Attributes).Clone()
	if attrs == nil {
		attrs = identity.Attributes{}
	}
	attrs[identity.AttrSub] = u.ID
	attrs[identity.AttrEmail] = u.Email
	return attrs, nil
}

func (p *clientProvider) SetAttributes(ctx context.Context, attrs identity.Attributes) error {
	for name := range attrs {
		if _, ok := immutableAttributes[name]; ok {
			return identity.NewError(identity.ErrValidation, "Cannot modify attribute: "+name, nil)
		}
	}

	d := p.dir
	d.mu.Lock()
	defer d.mu.Unlock()

	u, _, err := p.currentUser(ctx)
	if err != nil {
		return err
	}
	if u.Attributes == nil {
		u.Attributes = map[string]string{}
	}
	for name, value := range attrs {
		u.Attributes[name] = value
	}
	if err := d.users.Upsert(u); err != nil {
		return identity.NewError(identity.ErrUnknown, "", err)
	}
	return nil
}

func (p *clientProvider) InvalidateAllSessions(ctx context.Context) error {
	d := p.dir
	d.mu.Lock()
	defer d.mu.Unlock()

	u, _, err := p.currentUser(ctx)
	if err == nil {
		u.SessionVersion++
		if upsertErr := d.users.Upsert(u); upsertErr != nil {
			err = identity.NewError(identity.ErrUnknown, "", upsertErr)
		}
	}

	if delErr := d.tokens.Delete(ctx, p.clientID); delErr != nil {
		log.Err(delErr).Str("client_id", p.clientID).Msg("Failed to delete local tokens")
	}
	return err
}

func (p *clientProvider) Register(ctx context.Context, loginID, secret string, attrs identity.Attributes) error {
	d := p.dir
	login := normalizeLogin(loginID)
	if login == "" {
		return identity.NewError(identity.ErrValidation, msgLoginRequired, nil)
	}
	if err := users.ValidatePasswordStrength(secret); err != nil {
		return identity.NewError(identity.ErrWeakPassword, "Password did not conform with policy: "+err.Error(), err)
	}

	hash, err := users.HashPassword(secret)
	if err != nil {
		return identity.NewError(identity.ErrUnknown, "", err)
	}
	code, err := generateCode()
	if err != nil {
		return identity.NewError(identity.ErrUnknown, "", err)
	}

	d.mu.Lock()
	if _, err := d.users.GetByEmail(login); err == nil {
		d.mu.Unlock()
		return identity.NewError(identity.ErrUsernameExists, msgUsernameExists, nil)
	}

	stored := attrs.Clone()
	if stored == nil {
		stored = identity.Attributes{}
	}
	delete(stored, identity.AttrSub)
	stored[identity.AttrEmail] = login

	now := d.nowTime()
	u := &users.User{
		Email:            login,
		PasswordHash:     hash,
		Attributes:       stored,
		DateJoined:       now,
		ConfirmationCode: code,
		CodeExpiresAt:    now.Add(d.codeTTL),
	}
	err = d.users.Upsert(u)
	d.mu.Unlock()
	if err != nil {
		return identity.NewError(identity.ErrUnknown, "", err)
	}

	if err := d.sender.SendCode(ctx, login, code); err != nil {
		return identity.NewError(identity.ErrUnknown, "", fmt.Errorf("[Memory Register] code delivery: %w", err))
	}
	return nil
}

func (p *clientProvider) ConfirmRegistration(_ context.Context, loginID, code string) error {
	d := p.dir
	d.mu.Lock()
	defer d.mu.Unlock()

	u, err := d.users.GetByEmail(normalizeLogin(loginID))
	if err != nil {
		return identity.NewError(identity.ErrInvalidCode, msgInvalidCode, err)
	}
	if u.Confirmed {
		return identity.NewError(identity.ErrValidation, msgAlreadyConfirmed, nil)
	}
	if u.ConfirmationCode == "" || code != u.ConfirmationCode {
		return identity.NewError(identity.ErrInvalidCode, msgInvalidCode, nil)
	}
	if !d.nowTime().Before(u.CodeExpiresAt) {
		return identity.NewError(identity.ErrExpiredCode, msgExpiredCode, nil)
	}

	u.Confirmed = true
	u.ConfirmationCode = ""
	if err := d.users.Upsert(u); err != nil {
		return identity.NewError(identity.ErrUnknown, "", err)
	}
	return nil
}

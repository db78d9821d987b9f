package cognito

import (
	"context"
	"errors"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/jrsteele09/sade-booster/identity"
	"github.com/jrsteele09/sade-booster/tokens"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const msgNoCurrentUser = "No current user"

type clientProvider struct {
	svc      *Service
	clientID string
}

var _ identity.Provider = (*clientProvider)(nil)

func (p *clientProvider) Authenticate(ctx context.Context, loginID, secret string) (identity.AuthResult, error) {
	s := p.svc
	params := map[string]string{
		"USERNAME": loginID,
		"PASSWORD": secret,
	}
	if h := s.secretHashFor(loginID); h != "" {
		params["SECRET_HASH"] = h
	}

	out, err := s.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow:       types.AuthFlowTypeUserPasswordAuth,
		ClientId:       aws.String(s.cfg.ClientID),
		AuthParameters: params,
	})
	if err != nil {
		return identity.AuthResult{}, mapError(opSignIn, err)
	}
	if out.AuthenticationResult == nil {
		// MFA, new password and similar challenges are answered elsewhere
		return identity.AuthResult{NextStep: string(out.ChallengeName)}, nil
	}

	idToken := aws.ToString(out.AuthenticationResult.IdToken)
	subject, err := s.subjectOf(ctx, idToken)
	if err != nil {
		return identity.AuthResult{}, identity.NewError(identity.ErrUnknown, "", err)
	}

	err = s.store.Upsert(ctx, p.clientID, tokens.Tokens{
		LoginID: loginID,
		Subject: subject,
		IDToken: idToken,
		Token:   s.oauthToken(out.AuthenticationResult),
	})
	if err != nil {
		return identity.AuthResult{}, identity.NewError(identity.ErrUnknown, "", err)
	}
	return identity.AuthResult{SignedIn: true}, nil
}

// session loads the client's tokens, refreshing the access token when it has
// expired. Tokens the provider rejects are dropped from the slot.
func (p *clientProvider) session(ctx context.Context) (tokens.Tokens, error) {
	s := p.svc
	t, err := s.store.Get(ctx, p.clientID)
	if err != nil {
		if errors.Is(err, tokens.ErrNotFound) {
			return tokens.Tokens{}, identity.NewError(identity.ErrNoSession, msgNoCurrentUser, nil)
		}
		return tokens.Tokens{}, identity.NewError(identity.ErrUnknown, "", err)
	}
	if t.Token == nil {
		return tokens.Tokens{}, p.drop(ctx, identity.NewError(identity.ErrNoSession, msgNoCurrentUser, nil))
	}

	username := t.Subject
	if username == "" {
		username = t.LoginID
	}
	refresher := &refreshSource{ctx: ctx, svc: s, username: username, refreshToken: t.RefreshToken()}
	fresh, err := oauth2.ReuseTokenSource(t.Token, refresher).Token()
	if err != nil {
		return tokens.Tokens{}, p.drop(ctx, err)
	}
	if fresh.AccessToken != t.Token.AccessToken {
		t.Token = fresh
		if refresher.idToken != "" {
			t.IDToken = refresher.idToken
		}
		if err := s.store.Upsert(ctx, p.clientID, t); err != nil {
			log.Err(err).Str("client_id", p.clientID).Msg("Failed to store refreshed tokens")
		}
	}
	return t, nil
}

// drop clears the slot when err means the session is gone and returns err.
func (p *clientProvider) drop(ctx context.Context, err error) error {
	if !errors.Is(err, identity.ErrNoSession) {
		return err
	}
	if delErr := p.svc.store.Delete(ctx, p.clientID); delErr != nil {
		log.Err(delErr).Str("client_id", p.clientID).Msg("Failed to drop rejected tokens")
	}
	return err
}

func (p *clientProvider) getUser(ctx context.Context) (tokens.Tokens, *cip.GetUserOutput, error) {
	t, err := p.session(ctx)
	if err != nil {
		return tokens.Tokens{}, nil, err
	}
	out, err := p.svc.api.GetUser(ctx, &cip.GetUserInput{AccessToken: aws.String(t.AccessToken())})
	if err != nil {
		return tokens.Tokens{}, nil, p.drop(ctx, mapError(opSession, err))
	}
	return t, out, nil
}

func (p *clientProvider) CurrentIdentity(ctx context.Context) (identity.Identity, error) {
	t, out, err := p.getUser(ctx)
	if err != nil {
		return identity.Identity{}, err
	}
	attrs := toAttributes(out.UserAttributes)

	id := identity.Identity{ID: attrs.Get(identity.AttrSub), LoginID: t.LoginID}
	if id.ID == "" {
		id.ID = t.Subject
	}
	if id.ID == "" {
		id.ID = aws.ToString(out.Username)
	}
	if id.LoginID == "" {
		id.LoginID = aws.ToString(out.Username)
	}
	return id, nil
}

func (p *clientProvider) AttributesOf(ctx context.Context, id identity.Identity) (identity.Attributes, error) {
	_, out, err := p.getUser(ctx)
	if err != nil {
		return nil, err
	}
	attrs := toAttributes(out.UserAttributes)
	if sub := attrs.Get(identity.AttrSub); id.ID != "" && sub != "" && sub != id.ID {
		return nil, identity.NewError(identity.ErrNoSession, msgNoCurrentUser, nil)
	}
	return attrs, nil
}

func (p *clientProvider) SetAttributes(ctx context.Context, attrs identity.Attributes) error {
	t, err := p.session(ctx)
	if err != nil {
		return err
	}
	_, err = p.svc.api.UpdateUserAttributes(ctx, &cip.UpdateUserAttributesInput{
		AccessToken:    aws.String(t.AccessToken()),
		UserAttributes: toAttributeTypes(attrs),
	})
	if err != nil {
		return p.drop(ctx, mapError(opSession, err))
	}
	return nil
}

func (p *clientProvider) InvalidateAllSessions(ctx context.Context) error {
	s := p.svc
	t, err := p.session(ctx)
	if err == nil {
		_, signOutErr := s.api.GlobalSignOut(ctx, &cip.GlobalSignOutInput{AccessToken: aws.String(t.AccessToken())})
		err = mapError(opSession, signOutErr)
	}

	if delErr := s.store.Delete(ctx, p.clientID); delErr != nil {
		log.Err(delErr).Str("client_id", p.clientID).Msg("Failed to delete local tokens")
	}
	return err
}

func (p *clientProvider) Register(ctx context.Context, loginID, secret string, attrs identity.Attributes) error {
	s := p.svc
	in := &cip.SignUpInput{
		ClientId:       aws.String(s.cfg.ClientID),
		Username:       aws.String(loginID),
		Password:       aws.String(secret),
		UserAttributes: toAttributeTypes(attrs),
	}
	if h := s.secretHashFor(loginID); h != "" {
		in.SecretHash = aws.String(h)
	}
	_, err := s.api.SignUp(ctx, in)
	return mapError(opRegister, err)
}

func (p *clientProvider) ConfirmRegistration(ctx context.Context, loginID, code string) error {
	s := p.svc
	in := &cip.ConfirmSignUpInput{
		ClientId:         aws.String(s.cfg.ClientID),
		Username:         aws.String(loginID),
		ConfirmationCode: aws.String(code),
	}
	if h := s.secretHashFor(loginID); h != "" {
		in.SecretHash = aws.String(h)
	}
	_, err := s.api.ConfirmSignUp(ctx, in)
	return mapError(opConfirm, err)
}

func toAttributes(in []types.AttributeType) identity.Attributes {
	attrs := make(identity.Attributes, len(in))
	for _, a := range in {
		attrs[aws.ToString(a.Name)] = aws.ToString(a.Value)
	}
	return attrs
}

// toAttributeTypes orders attributes by name so requests are deterministic.
func toAttributeTypes(attrs identity.Attributes) []types.AttributeType {
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]types.AttributeType, 0, len(names))
	for _, name := range names {
		out = append(out, types.AttributeType{Name: aws.String(name), Value: aws.String(attrs[name])})
	}
	return out
}

package cognito_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/sade-booster/identity"
	"github.com/jrsteele09/sade-booster/identity/cognito"
	"github.com/jrsteele09/sade-booster/tokens"
	"github.com/stretchr/testify/require"
)

type poolUser struct {
	sub       string
	password  string
	confirmed bool
	code      string
	attrs     map[string]string
}

// fakePool is a tiny user pool behind the cognito.API surface.
type fakePool struct {
	mu        sync.Mutex
	users     map[string]*poolUser // by username
	access    map[string]string    // access token -> username
	refresh   map[string]string    // refresh token -> username
	issued    int
	expires   int32
	inputs    []*cip.InitiateAuthInput
	signUps   []*cip.SignUpInput
	globalErr error
}

func newFakePool() *fakePool {
	return &fakePool{
		users:   map[string]*poolUser{},
		access:  map[string]string{},
		refresh: map[string]string{},
		expires: 3600,
	}
}

func (f *fakePool) addUser(username, password string, attrs map[string]string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub := fmt.Sprintf("sub-%d", len(f.users)+1)
	if attrs == nil {
		attrs = map[string]string{}
	}
	attrs["sub"] = sub
	attrs["email"] = username
	f.users[username] = &poolUser{sub: sub, password: password, confirmed: true, attrs: attrs}
	return sub
}

func (f *fakePool) idToken(u *poolUser) string {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": u.sub}).SignedString([]byte("pool-key"))
	if err != nil {
		panic(err)
	}
	return signed
}

func (f *fakePool) issue(username string, withRefresh bool) *types.AuthenticationResultType {
	f.issued++
	access := fmt.Sprintf("access-%d", f.issued)
	f.access[access] = username
	res := &types.AuthenticationResultType{
		AccessToken: aws.String(access),
		IdToken:     aws.String(f.idToken(f.users[username])),
		TokenType:   aws.String("Bearer"),
		ExpiresIn:   f.expires,
	}
	if withRefresh {
		rt := "refresh-" + username
		f.refresh[rt] = username
		res.RefreshToken = aws.String(rt)
	}
	return res
}

func (f *fakePool) userFor(token *string) (*poolUser, error) {
	username, ok := f.access[aws.ToString(token)]
	if !ok {
		return nil, &types.NotAuthorizedException{Message: aws.String("Access Token has been revoked")}
	}
	return f.users[username], nil
}

func (f *fakePool) InitiateAuth(_ context.Context, in *cip.InitiateAuthInput, _ ...func(*cip.Options)) (*cip.InitiateAuthOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, in)

	if in.AuthFlow == types.AuthFlowTypeRefreshTokenAuth {
		username, ok := f.refresh[in.AuthParameters["REFRESH_TOKEN"]]
		if !ok {
			return nil, &types.NotAuthorizedException{Message: aws.String("Refresh Token has been revoked")}
		}
		return &cip.InitiateAuthOutput{AuthenticationResult: f.issue(username, false)}, nil
	}

	username := in.AuthParameters["USERNAME"]
	u, ok := f.users[username]
	if !ok || u.password != in.AuthParameters["PASSWORD"] {
		return nil, &types.NotAuthorizedException{Message: aws.String("Incorrect username or password.")}
	}
	if !u.confirmed {
		return nil, &types.UserNotConfirmedException{Message: aws.String("User is not confirmed.")}
	}
	if u.attrs["mfa"] == "on" {
		return &cip.InitiateAuthOutput{ChallengeName: types.ChallengeNameTypeSmsMfa}, nil
	}
	return &cip.InitiateAuthOutput{AuthenticationResult: f.issue(username, true)}, nil
}

func (f *fakePool) GetUser(_ context.Context, in *cip.GetUserInput, _ ...func(*cip.Options)) (*cip.GetUserOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, err := f.userFor(in.AccessToken)
	if err != nil {
		return nil, err
	}
	out := &cip.GetUserOutput{Username: aws.String(u.sub)}
	for k, v := range u.attrs {
		out.UserAttributes = append(out.UserAttributes, types.AttributeType{Name: aws.String(k), Value: aws.String(v)})
	}
	return out, nil
}

func (f *fakePool) UpdateUserAttributes(_ context.Context, in *cip.UpdateUserAttributesInput, _ ...func(*cip.Options)) (*cip.UpdateUserAttributesOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, err := f.userFor(in.AccessToken)
	if err != nil {
		return nil, err
	}
	for _, a := range in.UserAttributes {
		if aws.ToString(a.Name) == "sub" {
			return nil, &types.InvalidParameterException{Message: aws.String("Cannot modify an attribute: sub")}
		}
	}
	for _, a := range in.UserAttributes {
		u.attrs[aws.ToString(a.Name)] = aws.ToString(a.Value)
	}
	return &cip.UpdateUserAttributesOutput{}, nil
}

func (f *fakePool) GlobalSignOut(_ context.Context, in *cip.GlobalSignOutInput, _ ...func(*cip.Options)) (*cip.GlobalSignOutOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.globalErr != nil {
		return nil, f.globalErr
	}
	u, err := f.userFor(in.AccessToken)
	if err != nil {
		return nil, err
	}
	for token, username := range f.access {
		if f.users[username] == u {
			delete(f.access, token)
		}
	}
	for token, username := range f.refresh {
		if f.users[username] == u {
			delete(f.refresh, token)
		}
	}
	return &cip.GlobalSignOutOutput{}, nil
}

func (f *fakePool) SignUp(_ context.Context, in *cip.SignUpInput, _ ...func(*cip.Options)) (*cip.SignUpOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signUps = append(f.signUps, in)
	username := aws.ToString(in.Username)
	if _, ok := f.users[username]; ok {
		return nil, &types.UsernameExistsException{Message: aws.String("An account with the given email already exists.")}
	}
	if len(aws.ToString(in.Password)) < 8 {
		return nil, &types.InvalidPasswordException{Message: aws.String("Password did not conform with policy: Password not long enough")}
	}
	attrs := map[string]string{}
	for _, a := range in.UserAttributes {
		attrs[aws.ToString(a.Name)] = aws.ToString(a.Value)
	}
	sub := fmt.Sprintf("sub-%d", len(f.users)+1)
	attrs["sub"] = sub
	f.users[username] = &poolUser{sub: sub, password: aws.ToString(in.Password), code: "246810", attrs: attrs}
	return &cip.SignUpOutput{UserSub: aws.String(sub)}, nil
}

func (f *fakePool) ConfirmSignUp(_ context.Context, in *cip.ConfirmSignUpInput, _ ...func(*cip.Options)) (*cip.ConfirmSignUpOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[aws.ToString(in.Username)]
	if !ok {
		return nil, &types.UserNotFoundException{Message: aws.String("Username/client id combination not found.")}
	}
	if u.confirmed {
		return nil, &types.NotAuthorizedException{Message: aws.String("User cannot be confirmed. Current status is CONFIRMED")}
	}
	if u.code != aws.ToString(in.ConfirmationCode) {
		return nil, &types.CodeMismatchException{Message: aws.String("Invalid verification code provided, please try again.")}
	}
	u.confirmed = true
	return &cip.ConfirmSignUpOutput{}, nil
}

func (f *fakePool) revokeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.access = map[string]string{}
	f.refresh = map[string]string{}
}

func (f *fakePool) lastInput() *cip.InitiateAuthInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inputs[len(f.inputs)-1]
}

func newService(t *testing.T, pool *fakePool, cfg cognito.Config, opts ...cognito.Option) (*cognito.Service, *tokens.InMemoryStore) {
	t.Helper()
	store := tokens.NewInMemoryStore()
	if cfg.ClientID == "" {
		cfg.ClientID = "app-client"
	}
	if cfg.Region == "" {
		cfg.Region = "eu-west-2"
	}
	svc, err := cognito.NewWithAPI(pool, cfg, store, opts...)
	require.NoError(t, err)
	return svc, store
}

func TestCognito_SignInAndProfile(t *testing.T) {
	pool := newFakePool()
	sub := pool.addUser("a@b.com", "Password123", map[string]string{"given_name": "Ada"})
	svc, store := newService(t, pool, cognito.Config{})
	p := svc.Connect("client-1")
	ctx := context.Background()

	t.Run("bad credentials keep the service message", func(t *testing.T) {
		_, err := p.Authenticate(ctx, "a@b.com", "nope")
		require.ErrorIs(t, err, identity.ErrInvalidCredentials)
		require.Equal(t, "Incorrect username or password.", identity.Message(err, "fallback"))
	})

	_, err := p.CurrentIdentity(ctx)
	require.ErrorIs(t, err, identity.ErrNoSession)

	res, err := p.Authenticate(ctx, "a@b.com", "Password123")
	require.NoError(t, err)
	require.True(t, res.SignedIn)

	stored, err := store.Get(ctx, "client-1")
	require.NoError(t, err)
	require.Equal(t, sub, stored.Subject)
	require.Equal(t, "refresh-a@b.com", stored.RefreshToken())

	id, err := p.CurrentIdentity(ctx)
	require.NoError(t, err)
	require.Equal(t, identity.Identity{ID: sub, LoginID: "a@b.com"}, id)

	attrs, err := p.AttributesOf(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "Ada", attrs.Get(identity.AttrGivenName))

	require.NoError(t, p.SetAttributes(ctx, identity.Attributes{identity.AttrFamilyName: "Lovelace"}))
	attrs, err = p.AttributesOf(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "Lovelace", attrs.Get(identity.AttrFamilyName))

	err = p.SetAttributes(ctx, identity.Attributes{identity.AttrSub: "x"})
	require.ErrorIs(t, err, identity.ErrValidation)
}

func TestCognito_Challenge(t *testing.T) {
	pool := newFakePool()
	pool.addUser("a@b.com", "Password123", map[string]string{"mfa": "on"})
	svc, store := newService(t, pool, cognito.Config{})
	ctx := context.Background()

	res, err := svc.Connect("client-1").Authenticate(ctx, "a@b.com", "Password123")
	require.NoError(t, err)
	require.False(t, res.SignedIn)
	require.Equal(t, string(types.ChallengeNameTypeSmsMfa), res.NextStep)

	_, err = store.Get(ctx, "client-1")
	require.ErrorIs(t, err, tokens.ErrNotFound)
}

func TestCognito_SecretHash(t *testing.T) {
	pool := newFakePool()
	pool.addUser("a@b.com", "Password123", nil)
	svc, _ := newService(t, pool, cognito.Config{ClientSecret: "shh"})

	_, err := svc.Connect("client-1").Authenticate(context.Background(), "a@b.com", "Password123")
	require.NoError(t, err)
	require.NotEmpty(t, pool.lastInput().AuthParameters["SECRET_HASH"])

	svc, _ = newService(t, pool, cognito.Config{})
	_, err = svc.Connect("client-1").Authenticate(context.Background(), "a@b.com", "Password123")
	require.NoError(t, err)
	_, ok := pool.lastInput().AuthParameters["SECRET_HASH"]
	require.False(t, ok)
}

func TestCognito_RefreshesExpiredAccessToken(t *testing.T) {
	pool := newFakePool()
	pool.addUser("a@b.com", "Password123", nil)
	// Tokens issued two hours ago with a one hour lifetime are already expired
	svc, store := newService(t, pool, cognito.Config{}, cognito.WithNowTime(func() time.Time {
		return time.Now().Add(-2 * time.Hour)
	}))
	p := svc.Connect("client-1")
	ctx := context.Background()

	_, err := p.Authenticate(ctx, "a@b.com", "Password123")
	require.NoError(t, err)
	before, err := store.Get(ctx, "client-1")
	require.NoError(t, err)

	_, err = p.CurrentIdentity(ctx)
	require.NoError(t, err)
	require.Equal(t, types.AuthFlowTypeRefreshTokenAuth, pool.lastInput().AuthFlow)

	after, err := store.Get(ctx, "client-1")
	require.NoError(t, err)
	require.NotEqual(t, before.AccessToken(), after.AccessToken())
	require.Equal(t, before.RefreshToken(), after.RefreshToken())
}

func TestCognito_RevokedTokensDropSession(t *testing.T) {
	pool := newFakePool()
	pool.addUser("a@b.com", "Password123", nil)
	svc, store := newService(t, pool, cognito.Config{})
	p := svc.Connect("client-1")
	ctx := context.Background()

	_, err := p.Authenticate(ctx, "a@b.com", "Password123")
	require.NoError(t, err)

	pool.revokeAll()
	_, err = p.CurrentIdentity(ctx)
	require.ErrorIs(t, err, identity.ErrNoSession)

	_, err = store.Get(ctx, "client-1")
	require.ErrorIs(t, err, tokens.ErrNotFound)
}

func TestCognito_GlobalSignOut(t *testing.T) {
	pool := newFakePool()
	pool.addUser("a@b.com", "Password123", nil)
	svc, store := newService(t, pool, cognito.Config{})
	ctx := context.Background()
	laptop := svc.Connect("laptop")
	phone := svc.Connect("phone")

	_, err := laptop.Authenticate(ctx, "a@b.com", "Password123")
	require.NoError(t, err)
	_, err = phone.Authenticate(ctx, "a@b.com", "Password123")
	require.NoError(t, err)

	require.NoError(t, laptop.InvalidateAllSessions(ctx))
	_, err = store.Get(ctx, "laptop")
	require.ErrorIs(t, err, tokens.ErrNotFound)

	_, err = phone.CurrentIdentity(ctx)
	require.ErrorIs(t, err, identity.ErrNoSession)

	t.Run("remote failure still clears local tokens", func(t *testing.T) {
		_, err := laptop.Authenticate(ctx, "a@b.com", "Password123")
		require.NoError(t, err)

		pool.mu.Lock()
		pool.globalErr = &types.TooManyRequestsException{Message: aws.String("Rate exceeded")}
		pool.mu.Unlock()

		err = laptop.InvalidateAllSessions(ctx)
		require.ErrorIs(t, err, identity.ErrUnknown)
		require.Equal(t, "Rate exceeded", identity.Message(err, "fallback"))

		_, err = store.Get(ctx, "laptop")
		require.ErrorIs(t, err, tokens.ErrNotFound)
	})
}

func TestCognito_Registration(t *testing.T) {
	pool := newFakePool()
	svc, _ := newService(t, pool, cognito.Config{})
	p := svc.Connect("client-1")
	ctx := context.Background()

	attrs := identity.Attributes{
		identity.AttrEmail:      "new@b.com",
		identity.AttrGivenName:  "Grace",
		identity.AttrFamilyName: "Hopper",
	}

	err := p.Register(ctx, "new@b.com", "short", attrs)
	require.ErrorIs(t, err, identity.ErrWeakPassword)

	require.NoError(t, p.Register(ctx, "new@b.com", "Password123", attrs))
	require.Len(t, pool.signUps[len(pool.signUps)-1].UserAttributes, 3)

	err = p.Register(ctx, "new@b.com", "Password123", attrs)
	require.ErrorIs(t, err, identity.ErrUsernameExists)

	_, err = p.Authenticate(ctx, "new@b.com", "Password123")
	require.ErrorIs(t, err, identity.ErrNotConfirmed)

	err = p.ConfirmRegistration(ctx, "new@b.com", "000000")
	require.ErrorIs(t, err, identity.ErrInvalidCode)

	require.NoError(t, p.ConfirmRegistration(ctx, "new@b.com", "246810"))

	err = p.ConfirmRegistration(ctx, "new@b.com", "246810")
	require.ErrorIs(t, err, identity.ErrValidation)

	err = p.ConfirmRegistration(ctx, "ghost@b.com", "246810")
	require.ErrorIs(t, err, identity.ErrInvalidCode)
}

func TestConfig_Issuer(t *testing.T) {
	cfg := cognito.Config{Region: "eu-west-2", UserPoolID: "eu-west-2_abc"}
	require.Equal(t, "https://cognito-idp.eu-west-2.amazonaws.com/eu-west-2_abc", cfg.Issuer())
}

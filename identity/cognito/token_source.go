package cognito

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/sade-booster/identity"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// refreshSource exchanges a refresh token for new access and ID tokens.
type refreshSource struct {
	ctx          context.Context
	svc          *Service
	username     string
	refreshToken string

	idToken string // set by a successful refresh
}

var _ oauth2.TokenSource = (*refreshSource)(nil)

func (r *refreshSource) Token() (*oauth2.Token, error) {
	if r.refreshToken == "" {
		return nil, identity.NewError(identity.ErrNoSession, "No current user", nil)
	}

	params := map[string]string{"REFRESH_TOKEN": r.refreshToken}
	if h := r.svc.secretHashFor(r.username); h != "" {
		params["SECRET_HASH"] = h
	}
	out, err := r.svc.api.InitiateAuth(r.ctx, &cip.InitiateAuthInput{
		AuthFlow:       types.AuthFlowTypeRefreshTokenAuth,
		ClientId:       aws.String(r.svc.cfg.ClientID),
		AuthParameters: params,
	})
	if err != nil {
		return nil, mapError(opSession, err)
	}
	if out.AuthenticationResult == nil {
		return nil, identity.NewError(identity.ErrNoSession, "No current user", fmt.Errorf("refresh answered with challenge %q", out.ChallengeName))
	}

	log.Debug().Str("username", r.username).Msg("Refreshed Cognito tokens")
	tok := r.svc.oauthToken(out.AuthenticationResult)
	if tok.RefreshToken == "" {
		tok.RefreshToken = r.refreshToken
	}
	r.idToken = aws.ToString(out.AuthenticationResult.IdToken)
	return tok, nil
}

// oauthToken converts a Cognito authentication result.
func (s *Service) oauthToken(res *types.AuthenticationResultType) *oauth2.Token {
	tokenType := aws.ToString(res.TokenType)
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return &oauth2.Token{
		AccessToken:  aws.ToString(res.AccessToken),
		TokenType:    tokenType,
		RefreshToken: aws.ToString(res.RefreshToken),
		Expiry:       s.nowTime().Add(time.Duration(res.ExpiresIn) * time.Second),
	}
}

// subjectOf returns the sub claim of an ID token, verified when a verifier is set.
func (s *Service) subjectOf(ctx context.Context, rawIDToken string) (string, error) {
	if rawIDToken == "" {
		return "", nil
	}
	if s.verifier != nil {
		idToken, err := s.verifier.Verify(ctx, rawIDToken)
		if err != nil {
			return "", fmt.Errorf("[Cognito subjectOf] ID token verification failed: %w", err)
		}
		return idToken.Subject, nil
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(rawIDToken, claims); err != nil {
		return "", fmt.Errorf("[Cognito subjectOf] malformed ID token: %w", err)
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return "", fmt.Errorf("[Cognito subjectOf] %w", err)
	}
	return sub, nil
}

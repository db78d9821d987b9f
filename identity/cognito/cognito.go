// Package cognito adapts an AWS Cognito user pool to identity.Provider.
package cognito

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/sade-booster/identity"
	apperrors "github.com/jrsteele09/sade-booster/internal/errors"
	"github.com/jrsteele09/sade-booster/tokens"
)

// API is the subset of the Cognito client used by the adapter.
type API interface {
	InitiateAuth(ctx context.Context, params *cip.InitiateAuthInput, optFns ...func(*cip.Options)) (*cip.InitiateAuthOutput, error)
	GetUser(ctx context.Context, params *cip.GetUserInput, optFns ...func(*cip.Options)) (*cip.GetUserOutput, error)
	UpdateUserAttributes(ctx context.Context, params *cip.UpdateUserAttributesInput, optFns ...func(*cip.Options)) (*cip.UpdateUserAttributesOutput, error)
	GlobalSignOut(ctx context.Context, params *cip.GlobalSignOutInput, optFns ...func(*cip.Options)) (*cip.GlobalSignOutOutput, error)
	SignUp(ctx context.Context, params *cip.SignUpInput, optFns ...func(*cip.Options)) (*cip.SignUpOutput, error)
	ConfirmSignUp(ctx context.Context, params *cip.ConfirmSignUpInput, optFns ...func(*cip.Options)) (*cip.ConfirmSignUpOutput, error)
}

var _ API = (*cip.Client)(nil)

// Config holds the user pool settings.
type Config struct {
	Region         string
	UserPoolID     string
	ClientID       string
	ClientSecret   string // Optional, enables SECRET_HASH
	Endpoint       string // Optional custom endpoint (cognito-local, LocalStack)
	VerifyIDTokens bool   // Verify ID token signatures against the pool's JWKS
}

// Issuer is the OIDC issuer URL of the user pool.
func (c Config) Issuer() string {
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", c.Region, c.UserPoolID)
}

func (c Config) validate() error {
	if c.Region == "" {
		return apperrors.Wrapf(apperrors.ErrInvalidConfig, "cognito region is required")
	}
	if c.ClientID == "" {
		return apperrors.Wrapf(apperrors.ErrInvalidConfig, "cognito client id is required")
	}
	if c.VerifyIDTokens && c.UserPoolID == "" {
		return apperrors.Wrapf(apperrors.ErrInvalidConfig, "cognito user pool id is required to verify ID tokens")
	}
	return nil
}

// IDTokenVerifier checks an ID token. *oidc.IDTokenVerifier satisfies it.
type IDTokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*oidc.IDToken, error)
}

// Service talks to one user pool app client and stores tokens per client instance.
type Service struct {
	api      API
	cfg      Config
	store    tokens.Store
	verifier IDTokenVerifier
	nowTime  func() time.Time
}

var _ identity.Connector = (*Service)(nil)

// Option configures a Service.
type Option func(*Service)

// WithNowTime sets the clock used for token expiry (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// WithVerifier sets the ID token verifier
func WithVerifier(v IDTokenVerifier) Option {
	return func(s *Service) {
		s.verifier = v
	}
}

// New creates a Service using the default AWS credential chain.
func New(ctx context.Context, cfg Config, store tokens.Store, opts ...Option) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("[Cognito New] %w", err)
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("[Cognito New] failed to load AWS config: %w", err)
	}

	client := cip.NewFromConfig(awsCfg, func(o *cip.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	if cfg.VerifyIDTokens {
		provider, err := oidc.NewProvider(ctx, cfg.Issuer())
		if err != nil {
			return nil, fmt.Errorf("[Cognito New] failed to create OIDC provider: %w", err)
		}
		opts = append([]Option{WithVerifier(provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}))}, opts...)
	}

	return NewWithAPI(client, cfg, store, opts...)
}

// NewWithAPI creates a Service over an existing client.
func NewWithAPI(api API, cfg Config, store tokens.Store, opts ...Option) (*Service, error) {
	if api == nil || store == nil {
		return nil, fmt.Errorf("[Cognito NewWithAPI] api and token store are required")
	}
	s := &Service{
		api:     api,
		cfg:     cfg,
		store:   store,
		nowTime: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Connect returns a provider bound to the client's token slot.
func (s *Service) Connect(clientID string) identity.Provider {
	return &clientProvider{svc: s, clientID: clientID}
}

// secretHashFor returns the SECRET_HASH for username, or "" without a client secret.
func (s *Service) secretHashFor(username string) string {
	if s.cfg.ClientSecret == "" {
		return ""
	}
	return secretHash(username, s.cfg.ClientID, s.cfg.ClientSecret)
}

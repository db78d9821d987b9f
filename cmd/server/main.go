package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/sade-booster/client"
	"github.com/jrsteele09/sade-booster/identity"
	"github.com/jrsteele09/sade-booster/identity/cognito"
	"github.com/jrsteele09/sade-booster/identity/memory"
	"github.com/jrsteele09/sade-booster/internal/config"
	"github.com/jrsteele09/sade-booster/internal/telemetry"
	"github.com/jrsteele09/sade-booster/server"
	"github.com/jrsteele09/sade-booster/tokens"
	fakeuserrepo "github.com/jrsteele09/sade-booster/users/repofake"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const janitorInterval = time.Minute

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func newRootCmd() *cobra.Command {
	var port, provider string
	cmd := &cobra.Command{
		Use:           "sade-booster",
		Short:         "Account portal: registration, sign in and profile management",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(config.WithPort(port), config.WithIdentityProvider(provider))
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port, overrides PORT")
	cmd.Flags().StringVar(&provider, "provider", "", "identity provider (cognito|memory), overrides IDENTITY_PROVIDER")
	return cmd
}

func run(ctx context.Context, c config.Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	setupLogging(c)
	displayAppname(c.GetAppName())

	shutdownTracing, err := telemetry.Setup(ctx, c.GetAppName(), c.GetOtelEndpoint())
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Err(err).Msg("Failed to flush traces")
		}
	}()

	store, err := newTokenStore(ctx, c)
	if err != nil {
		return err
	}
	connector, err := newConnector(ctx, c, store)
	if err != nil {
		return err
	}

	registry := client.NewRegistry(connector)
	registry.StartJanitor(ctx, janitorInterval, c.GetClientIdleTimeout())
	defer registry.Close()

	handler, err := server.New(c, registry)
	if err != nil {
		return err
	}
	if l := handler.Limiter(); l != nil {
		l.StartJanitor(ctx)
	}

	srv := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		// Request contexts end with ctx so event streams close on shutdown
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	errs := make(chan error, 1)
	go func() { errs <- listenAndServe(srv) }()

	select {
	case err := <-errs:
		return err
	case <-waitForStopSignal():
	}
	cancel()
	return shutdown(srv)
}

func setupLogging(c config.Config) {
	if c.IsDev() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
		return
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func newTokenStore(ctx context.Context, c config.Config) (tokens.Store, error) {
	if c.GetRedisURL() == "" {
		log.Info().Msg("Keeping provider tokens in memory")
		return tokens.NewInMemoryStore(), nil
	}
	store, err := tokens.NewRedisStoreFromURL(ctx, c.GetRedisURL(), c.GetTokenTTL())
	if err != nil {
		return nil, fmt.Errorf("[Main] token store: %w", err)
	}
	log.Info().Msg("Keeping provider tokens in Redis")
	return store, nil
}

func newConnector(ctx context.Context, c config.Config, store tokens.Store) (identity.Connector, error) {
	switch c.GetIdentityProvider() {
	case config.ProviderCognito:
		svc, err := cognito.New(ctx, cognito.Config{
			Region:         c.GetCognitoRegion(),
			UserPoolID:     c.GetCognitoUserPoolID(),
			ClientID:       c.GetCognitoClientID(),
			ClientSecret:   c.GetCognitoClientSecret(),
			Endpoint:       c.GetCognitoEndpoint(),
			VerifyIDTokens: c.GetVerifyIDTokens(),
		}, store)
		if err != nil {
			return nil, fmt.Errorf("[Main] cognito: %w", err)
		}
		log.Info().Str("region", c.GetCognitoRegion()).Str("user_pool", c.GetCognitoUserPoolID()).Msg("Using Cognito user pool")
		return svc, nil

	case config.ProviderMemory:
		dir, err := memory.New(fakeuserrepo.NewFakeUserRepo(), store)
		if err != nil {
			return nil, fmt.Errorf("[Main] memory directory: %w", err)
		}
		if email, password := c.GetDemoUser(); email != "" {
			if err := dir.Seed(email, password, identity.Attributes{identity.AttrGivenName: "Demo"}); err != nil {
				return nil, fmt.Errorf("[Main] seed demo user: %w", err)
			}
			log.Info().Str("email", email).Msg("Seeded demo user")
		}
		log.Warn().Msg("Using the in-process identity directory, accounts are lost on restart")
		return dir, nil
	}
	return nil, errors.New("[Main] unknown identity provider " + c.GetIdentityProvider())
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}

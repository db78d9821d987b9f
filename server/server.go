package server

import (
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/sade-booster/client"
	"github.com/jrsteele09/sade-booster/internal/config"
)

const defaultProbeWait = 2 * time.Second

type Server struct {
	env     string // Environment (e.g., "DEV", "PROD")
	mux     *http.ServeMux
	routes  []string
	config  config.Config
	clients *client.Registry
	limiter *SignInLimiter // nil when rate limiting is disabled
	pages   map[string]*template.Template
	assets  assets

	probeWait time.Duration // how long pages wait for a new client's probe
}

// Option configures a Server.
type Option func(*Server)

// WithProbeWait bounds how long the dashboard waits for a new client's
// session probe before showing the loading page.
func WithProbeWait(d time.Duration) Option {
	return func(s *Server) {
		s.probeWait = d
	}
}

// WithSignInLimiter replaces the limiter built from the configuration.
func WithSignInLimiter(l *SignInLimiter) Option {
	return func(s *Server) {
		s.limiter = l
	}
}

func New(cfg config.Config, clients *client.Registry, opts ...Option) (*Server, error) {
	s := &Server{
		env:     cfg.GetEnv(),
		mux:     http.NewServeMux(),
		config:  cfg,
		clients: clients,
		pages:   make(map[string]*template.Template),

		probeWait: defaultProbeWait,
	}
	if cfg.GetEnableRateLimiting() {
		s.limiter = NewSignInLimiter(cfg.GetSignInRate(), cfg.GetSignInBurst())
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, name := range []string{pageLogin, pageSignup, pageDashboard, pageLoading} {
		tmpl, err := ParseTemplate(name)
		if err != nil {
			return nil, fmt.Errorf("[Server New] failed to parse template %s: %w", name, err)
		}
		s.pages[name] = tmpl
	}

	var err error
	if s.assets, err = loadAssets(); err != nil {
		return nil, fmt.Errorf("[Server New] failed to load static files: %w", err)
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		method, path, found := strings.Cut(route, " ")
		if !found {
			method, path = "", route
		}
		logRoute(method, path)
	}
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}

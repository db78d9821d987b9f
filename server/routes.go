package server

import (
	"net/http"
	"strings"
)

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET /{$}", ChainMiddleware(s.IndexHandler(), s.HTMLMiddleWare()...))

	// LOGIN
	s.RegisterRouteHandler("GET "+RouteLogin, ChainMiddleware(s.LoginPageHandler(), s.HTMLMiddleWare(s.ClientMiddleware)...))
	s.RegisterRouteHandler("POST "+RouteLogin, ChainMiddleware(s.LoginSubmitHandler(), s.HTMLMiddleWare(s.ClientMiddleware, s.RateLimitMiddleware)...))
	s.RegisterRouteHandler("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare(s.ClientMiddleware)...))
	s.RegisterRouteHandler("GET "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare(s.ClientMiddleware)...))

	// SIGNUP
	s.RegisterRouteHandler("GET "+RouteSignup, ChainMiddleware(s.SignupPageHandler(), s.HTMLMiddleWare(s.ClientMiddleware)...))
	s.RegisterRouteHandler("POST "+RouteSignup, ChainMiddleware(s.SignupSubmitHandler(), s.HTMLMiddleWare(s.ClientMiddleware, s.RateLimitMiddleware)...))
	s.RegisterRouteHandler("POST "+RouteSignupConfirm, ChainMiddleware(s.SignupConfirmHandler(), s.HTMLMiddleWare(s.ClientMiddleware, s.RateLimitMiddleware)...))
	s.RegisterRouteHandler("POST "+RouteSignupRestart, ChainMiddleware(s.SignupRestartHandler(), s.HTMLMiddleWare(s.ClientMiddleware)...))

	// DASHBOARD
	s.RegisterRouteHandler("GET "+RouteDashboard, ChainMiddleware(s.DashboardHandler(), s.HTMLMiddleWare(s.ClientMiddleware)...))
	s.RegisterRouteHandler("POST "+RouteProfileEdit, ChainMiddleware(s.ProfileEditHandler(), s.HTMLMiddleWare(s.ClientMiddleware)...))
	s.RegisterRouteHandler("POST "+RouteProfileCancel, ChainMiddleware(s.ProfileCancelHandler(), s.HTMLMiddleWare(s.ClientMiddleware)...))
	s.RegisterRouteHandler("POST "+RouteProfile, ChainMiddleware(s.ProfileSaveHandler(), s.HTMLMiddleWare(s.ClientMiddleware)...))
	s.RegisterRouteHandler("GET "+RouteSessionEvents, ChainMiddleware(s.SessionEventsHandler(), s.HTMLMiddleWare(s.ClientMiddleware)...))

	// API routes
	s.RegisterRouteHandler("GET "+RouteAPISession, ChainMiddleware(s.SessionAPIHandler(), s.APIMiddleware(s.ClientMiddleware)...))
	s.RegisterRouteHandler("OPTIONS "+RouteAPISession, ChainMiddleware(s.SessionAPIHandler(), s.APIMiddleware()...))

	s.RegisterRouteHandler("GET "+RouteStaticCSS, ChainMiddleware(s.serveFileHandler(), s.HTMLMiddleWare(s.CacheMiddleware)...))
	s.RegisterRouteHandler("GET "+RouteStaticJS, ChainMiddleware(s.serveFileHandler(), s.HTMLMiddleWare(s.CacheMiddleware)...))
}

// IndexHandler sends visitors to the dashboard, which decides where they belong.
func (s *Server) IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, RouteDashboard, http.StatusSeeOther)
	}
}

func (s *Server) serveFileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filePath := strings.TrimPrefix(r.URL.Path, "/")
		if filePath == "" {
			http.Error(w, "404 - Page Not Found", http.StatusNotFound)
			return
		}
		if err := s.assets.serve(w, r, filePath); err != nil {
			logError(r.Method, filePath, err.Error())
			http.Error(w, "404 - Page Not Found", http.StatusNotFound)
		}
	}
}

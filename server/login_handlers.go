package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/jrsteele09/sade-booster/identity"
	"github.com/jrsteele09/sade-booster/session"
	"github.com/rs/zerolog/log"
)

const (
	msgClientExpired   = "Your session expired. Please try again."
	noticeConfirmed    = "Account confirmed. Please sign in."
	queryConfirmedFlag = "confirmed"
)

// LoginPageHandler displays the sign in form (GET /login)
func (s *Server) LoginPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inst := instanceFrom(r)
		snap := inst.Session.Snapshot()
		if snap.Ready() && snap.SignedIn() {
			http.Redirect(w, r, RouteDashboard, http.StatusSeeOther)
			return
		}

		data := loginPage{
			pageData: s.page(r.URL.Query().Get("error")),
			Email:    r.URL.Query().Get("email"),
		}
		if r.URL.Query().Has(queryConfirmedFlag) {
			data.Notice = noticeConfirmed
		}
		s.render(w, http.StatusOK, pageLogin, "", data)
	}
}

// LoginSubmitHandler processes the sign in form (POST /login)
func (s *Server) LoginSubmitHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		email := strings.TrimSpace(r.FormValue("email"))
		password := r.FormValue("password")

		inst := instanceFrom(r)
		// Let the startup probe settle first so it cannot clear the sign in error
		s.waitForProbe(r.Context(), inst)
		dest, err := inst.Session.SignIn(r.Context(), email, password)
		if errors.Is(err, session.ErrClosed) {
			redirectWithError(w, r, RouteLogin, msgClientExpired)
			return
		}
		if err != nil {
			msg := inst.Session.Snapshot().LastError
			if msg == "" {
				msg = identity.Message(err, session.MsgSignInFailed)
			}
			data := loginPage{pageData: s.page(msg), Email: email}
			s.render(w, http.StatusUnauthorized, pageLogin, "", data)
			return
		}
		redirectSuccess(w, r, string(dest))
	}
}

// LogoutHandler signs the visitor out everywhere and returns to the sign in page
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inst := instanceFrom(r)
		dest, err := inst.Session.SignOut(r.Context())
		switch {
		case errors.Is(err, session.ErrClosed):
			dest = session.DestinationSignIn
		case err != nil:
			// The local session is already cleared
			log.Err(err).Str("client_id", inst.ID).Msg("Sign out failed at the identity provider")
			redirectWithError(w, r, string(dest), identity.Message(err, session.MsgSignOutFailed))
			return
		}
		redirectSuccess(w, r, string(dest))
	}
}

package server

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/sade-booster/view"
)

// SignupPageHandler renders whichever registration phase the client is in
func (s *Server) SignupPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.renderSignup(w, r, http.StatusOK, r.URL.Query().Get("error"))
	}
}

// SignupSubmitHandler creates the account (phase one)
func (s *Server) SignupSubmitHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		form := view.SignupForm{
			Email:      strings.TrimSpace(r.FormValue("email")),
			Password:   r.FormValue("password"),
			GivenName:  strings.TrimSpace(r.FormValue("given_name")),
			FamilyName: strings.TrimSpace(r.FormValue("family_name")),
		}

		inst := instanceFrom(r)
		if err := inst.Signup.Submit(r.Context(), form); err != nil {
			s.renderSignup(w, r, http.StatusUnprocessableEntity, "")
			return
		}
		redirectSuccess(w, r, RouteSignup)
	}
}

// SignupConfirmHandler submits the emailed code (phase two)
func (s *Server) SignupConfirmHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		inst := instanceFrom(r)
		email := inst.Signup.View().Form.Email
		dest, err := inst.Signup.Confirm(r.Context(), strings.TrimSpace(r.FormValue("code")))
		if errors.Is(err, view.ErrNoPendingRegistration) {
			redirectSuccess(w, r, RouteSignup)
			return
		}
		if err != nil {
			s.renderSignup(w, r, http.StatusUnprocessableEntity, "")
			return
		}

		q := url.Values{}
		q.Set(queryConfirmedFlag, "1")
		q.Set("email", email)
		redirectSuccess(w, r, dest+"?"+q.Encode())
	}
}

// SignupRestartHandler abandons a pending registration
func (s *Server) SignupRestartHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		instanceFrom(r).Signup.Reset()
		redirectSuccess(w, r, RouteSignup)
	}
}

func (s *Server) renderSignup(w http.ResponseWriter, r *http.Request, status int, errorMsg string) {
	v := instanceFrom(r).Signup.View()
	if errorMsg != "" {
		v.Error = errorMsg
	}
	s.render(w, status, pageSignup, "", signupPage{pageData: s.page(v.Error), Signup: v})
}

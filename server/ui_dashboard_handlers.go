package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/jrsteele09/sade-booster/client"
	"github.com/jrsteele09/sade-booster/view"
	"github.com/rs/zerolog/log"
)

const blockProfileCard = "profile-card"

// DashboardHandler shows the profile of the signed in visitor. While the
// startup probe is still running a loading page is returned instead.
func (s *Server) DashboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inst := instanceFrom(r)
		s.waitForProbe(r.Context(), inst)

		v := inst.Dashboard.Render(inst.Session.Snapshot())
		switch {
		case v.Loading:
			s.render(w, http.StatusOK, pageLoading, "", s.page(""))
		case v.Redirect != "":
			redirectSuccess(w, r, v.Redirect)
		default:
			s.render(w, http.StatusOK, pageDashboard, "", dashboardPage{pageData: s.page(v.Error), Dashboard: v})
		}
	}
}

// ProfileEditHandler switches the profile card to edit mode
func (s *Server) ProfileEditHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inst := instanceFrom(r)
		if snap := inst.Session.Snapshot(); snap.SignedIn() {
			inst.Dashboard.BeginEdit(snap)
		}
		s.respondProfileCard(w, r, inst, http.StatusOK)
	}
}

// ProfileCancelHandler leaves edit mode, restoring the saved profile
func (s *Server) ProfileCancelHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inst := instanceFrom(r)
		inst.Dashboard.Cancel(inst.Session.Snapshot())
		s.respondProfileCard(w, r, inst, http.StatusOK)
	}
}

// ProfileSaveHandler submits the edited profile
func (s *Server) ProfileSaveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		inst := instanceFrom(r)
		if !inst.Session.Snapshot().SignedIn() {
			redirectSuccess(w, r, RouteLogin)
			return
		}

		form := view.ProfileForm{
			GivenName:  strings.TrimSpace(r.FormValue("given_name")),
			FamilyName: strings.TrimSpace(r.FormValue("family_name")),
		}
		status := http.StatusOK
		if err := inst.Dashboard.Save(r.Context(), inst.Session, form); err != nil {
			if errors.Is(err, view.ErrSaveInProgress) {
				status = http.StatusConflict
			}
			log.Info().Err(err).Str("client_id", inst.ID).Msg("Profile save failed")
		}
		s.respondProfileCard(w, r, inst, status)
	}
}

// respondProfileCard re-renders the profile card for htmx swaps and falls
// back to a full page redirect otherwise.
func (s *Server) respondProfileCard(w http.ResponseWriter, r *http.Request, inst *client.Instance, status int) {
	v := inst.Dashboard.Render(inst.Session.Snapshot())
	if v.Redirect != "" {
		redirectSuccess(w, r, v.Redirect)
		return
	}
	if !isHTMXRequest(r) || v.Loading {
		redirectSuccess(w, r, RouteDashboard)
		return
	}
	s.render(w, status, pageDashboard, blockProfileCard, dashboardPage{pageData: s.page(v.Error), Dashboard: v})
}

func (s *Server) waitForProbe(ctx context.Context, inst *client.Instance) {
	if s.probeWait <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.probeWait)
	defer cancel()
	_ = inst.WaitReady(ctx)
}

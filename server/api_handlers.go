package server

import (
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/sade-booster/session"
	"github.com/rs/zerolog/log"
)

// sessionResponse is the JSON body of GET /api/session
type sessionResponse struct {
	ClientID string          `json:"client_id"`
	SignedIn bool            `json:"signed_in"`
	Session  session.Session `json:"session"`
}

// SessionAPIHandler returns the client's Session for scripts
func (s *Server) SessionAPIHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inst := instanceFrom(r)
		if inst == nil {
			http.Error(w, "no client", http.StatusBadRequest)
			return
		}
		snap := inst.Session.Snapshot()
		if !snap.SignedIn() {
			snap.Profile = nil
		}

		w.Header().Set("Content-Type", contentTypeJSON)
		w.Header().Set("Cache-Control", "no-store")
		if err := json.NewEncoder(w).Encode(sessionResponse{
			ClientID: inst.ID,
			SignedIn: snap.SignedIn(),
			Session:  snap,
		}); err != nil {
			log.Err(err).Msg("Failed to encode session response")
		}
	}
}

package server

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/jrsteele09/sade-booster/client"
)

// clientCookieName identifies the client instance a browser belongs to
const clientCookieName = "sb_client"

type contextKey int

const instanceKey contextKey = iota

// ClientMiddleware attaches the visitor's client instance to the request,
// opening a new one (and setting the cookie) when the browser has none.
func (s *Server) ClientMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inst, ok := s.lookupInstance(r)
		if !ok {
			var id string
			if cookie, err := r.Cookie(clientCookieName); err == nil && isClientID(cookie.Value) {
				// Reuse the id so tokens kept in a shared store survive a restart
				id = cookie.Value
			}
			inst, _ = s.clients.Open(r.Context(), id)
			s.setClientCookie(w, r, inst.ID)
		}
		next(w, r.WithContext(context.WithValue(r.Context(), instanceKey, inst)))
	}
}

func (s *Server) lookupInstance(r *http.Request) (*client.Instance, bool) {
	cookie, err := r.Cookie(clientCookieName)
	if err != nil || cookie.Value == "" {
		return nil, false
	}
	return s.clients.Get(cookie.Value)
}

func (s *Server) setClientCookie(w http.ResponseWriter, r *http.Request, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     clientCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
	})
}

func isClientID(v string) bool {
	_, err := uuid.Parse(v)
	return err == nil
}

// instanceFrom returns the client instance attached by ClientMiddleware.
func instanceFrom(r *http.Request) *client.Instance {
	inst, _ := r.Context().Value(instanceKey).(*client.Instance)
	return inst
}

// Package view holds the per-client state of the portal's pages and derives
// what each page shows from the Session.
package view

import "github.com/jrsteele09/sade-booster/session"

// Guard decides whether the dashboard must send the visitor to sign in.
// It only redirects once the Session is ready, since a probing Session can't
// tell a signed out visitor from one whose session is still being checked.
func Guard(s session.Session) (string, bool) {
	if s.Ready() && !s.SignedIn() {
		return string(session.DestinationSignIn), true
	}
	return "", false
}

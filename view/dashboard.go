package view

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/sade-booster/identity"
	"github.com/jrsteele09/sade-booster/session"
)

// ErrSaveInProgress is returned when a save is requested while one is running.
var ErrSaveInProgress = errors.New("profile save already in progress")

const (
	notSet     = "Not set"
	authMethod = "Email and Password"
)

// ProfileForm holds the editable profile fields.
type ProfileForm struct {
	GivenName  string
	FamilyName string
}

func formFrom(profile identity.Attributes) ProfileForm {
	return ProfileForm{
		GivenName:  profile.Get(identity.AttrGivenName),
		FamilyName: profile.Get(identity.AttrFamilyName),
	}
}

// ProfileUpdater is the part of the session manager the dashboard saves through.
type ProfileUpdater interface {
	UpdateProfile(ctx context.Context, fields identity.Attributes) error
	Snapshot() session.Session
}

// Dashboard is the local state of the dashboard page. Edit mode and the form
// fields live here, not in the Session.
type Dashboard struct {
	mu      sync.Mutex
	editing bool
	saving  bool
	form    ProfileForm
}

func NewDashboard() *Dashboard {
	return &Dashboard{}
}

// Observe keeps the form in step with the committed profile. Unsaved edits
// are left alone while editing; signing out ends edit mode.
func (d *Dashboard) Observe(s session.Session) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !s.SignedIn() {
		d.editing = false
	}
	if d.editing {
		return
	}
	d.form = formFrom(s.VisibleProfile())
}

// BeginEdit enters edit mode with the form showing the committed profile.
func (d *Dashboard) BeginEdit(s session.Session) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.editing {
		return
	}
	d.editing = true
	d.form = formFrom(s.VisibleProfile())
}

// Cancel leaves edit mode and restores the form to the committed profile.
func (d *Dashboard) Cancel(s session.Session) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.saving {
		return
	}
	d.editing = false
	d.form = formFrom(s.VisibleProfile())
}

// Save submits the form. On failure the dashboard stays in edit mode with the
// submitted values so the visitor can correct them.
func (d *Dashboard) Save(ctx context.Context, m ProfileUpdater, form ProfileForm) error {
	d.mu.Lock()
	if d.saving {
		d.mu.Unlock()
		return ErrSaveInProgress
	}
	d.saving = true
	d.editing = true
	d.form = form
	d.mu.Unlock()

	err := m.UpdateProfile(ctx, identity.Attributes{
		identity.AttrGivenName:  form.GivenName,
		identity.AttrFamilyName: form.FamilyName,
	})

	d.mu.Lock()
	defer d.mu.Unlock()
	d.saving = false
	if err != nil {
		return err
	}
	d.editing = false
	d.form = formFrom(m.Snapshot().VisibleProfile())
	return nil
}

// Editing reports whether the dashboard is in edit mode.
func (d *Dashboard) Editing() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.editing
}

// DashboardView is everything the dashboard template needs.
type DashboardView struct {
	Loading     bool   // Session still probing, show a spinner
	Redirect    string // Non-empty when the page must navigate away
	DisplayName string
	Email       string
	UserID      string
	Editing     bool
	Saving      bool
	Form        ProfileForm
	Error       string
	SignedInAt  time.Time
	AuthMethod  string
}

// Render derives the page from the Session and the local state.
func (d *Dashboard) Render(s session.Session) DashboardView {
	if !s.Ready() {
		return DashboardView{Loading: true}
	}
	if to, ok := Guard(s); ok {
		return DashboardView{Redirect: to}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	profile := s.VisibleProfile()
	email := profile.Get(identity.AttrEmail)
	if email == "" {
		email = s.Identity.LoginID
	}
	return DashboardView{
		DisplayName: displayName(profile),
		Email:       email,
		UserID:      s.Identity.ID,
		Editing:     d.editing,
		Saving:      d.saving,
		Form:        d.form,
		Error:       s.LastError,
		SignedInAt:  s.SignedInAt,
		AuthMethod:  authMethod,
	}
}

func displayName(profile identity.Attributes) string {
	given := profile.Get(identity.AttrGivenName)
	if given == "" {
		given = notSet
	}
	return strings.TrimSpace(given + " " + profile.Get(identity.AttrFamilyName))
}

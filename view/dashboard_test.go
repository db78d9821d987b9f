package view_test

import (
	"context"
	"testing"

	"github.com/jrsteele09/sade-booster/identity"
	"github.com/jrsteele09/sade-booster/identity/identityfake"
	"github.com/jrsteele09/sade-booster/session"
	"github.com/jrsteele09/sade-booster/view"
	"github.com/stretchr/testify/require"
)

const (
	email  = "a@b.com"
	secret = "secret-123"
)

type fixture struct {
	provider  *identityfake.Provider
	manager   *session.Manager
	dashboard *view.Dashboard
	redirects []string
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		provider:  identityfake.New(),
		dashboard: view.NewDashboard(),
	}
	f.provider.AddAccount(email, secret, identity.Attributes{
		identity.AttrGivenName:  "Ada",
		identity.AttrFamilyName: "Lovelace",
	})
	f.manager = session.NewManager(f.provider)
	f.manager.Subscribe(f.dashboard.Observe)
	f.manager.Subscribe(func(s session.Session) {
		if to, ok := view.Guard(s); ok {
			f.redirects = append(f.redirects, to)
		}
	})
	return f
}

// signIn starts the page with an existing provider session
func (f *fixture) signIn(t *testing.T) {
	t.Helper()
	f.provider.SignInAs(email)
	f.manager.Probe(context.Background())
	require.True(t, f.manager.Snapshot().SignedIn())
}

func TestGuard(t *testing.T) {
	id := &identity.Identity{ID: "1", LoginID: email}

	tests := []struct {
		name     string
		session  session.Session
		redirect bool
	}{
		{name: "probing", session: session.Session{Status: session.StatusProbing}},
		{name: "probing with stale identity", session: session.Session{Status: session.StatusProbing, Identity: id}},
		{name: "ready signed out", session: session.Session{Status: session.StatusReady}, redirect: true},
		{name: "ready signed in", session: session.Session{Status: session.StatusReady, Identity: id}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			to, ok := view.Guard(tt.session)
			require.Equal(t, tt.redirect, ok)
			if tt.redirect {
				require.Equal(t, "/login", to)
			}
		})
	}
}

func TestDashboard_RedirectsWhenProbeFindsNoSession(t *testing.T) {
	f := setupFixture(t)
	require.True(t, f.dashboard.Render(f.manager.Snapshot()).Loading)

	f.manager.Probe(context.Background())
	require.Equal(t, []string{"/login"}, f.redirects)
	require.Equal(t, "/login", f.dashboard.Render(f.manager.Snapshot()).Redirect)
}

func TestDashboard_GuardReactsToSignOut(t *testing.T) {
	f := setupFixture(t)
	f.signIn(t)
	require.Empty(t, f.redirects)

	_, err := f.manager.SignOut(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"/login"}, f.redirects)

	v := f.dashboard.Render(f.manager.Snapshot())
	require.Equal(t, "/login", v.Redirect)
	require.Empty(t, v.DisplayName)
	require.Empty(t, v.Form)
}

func TestDashboard_Render(t *testing.T) {
	f := setupFixture(t)
	f.signIn(t)

	v := f.dashboard.Render(f.manager.Snapshot())
	require.False(t, v.Loading)
	require.Empty(t, v.Redirect)
	require.Equal(t, "Ada Lovelace", v.DisplayName)
	require.Equal(t, email, v.Email)
	require.NotEmpty(t, v.UserID)
	require.Equal(t, view.ProfileForm{GivenName: "Ada", FamilyName: "Lovelace"}, v.Form)
	require.Equal(t, "Email and Password", v.AuthMethod)
	require.False(t, v.SignedInAt.IsZero())
}

func TestDashboard_RenderFallbacks(t *testing.T) {
	d := view.NewDashboard()
	s := session.Session{
		Status:   session.StatusReady,
		Identity: &identity.Identity{ID: "user-1", LoginID: "login@b.com"},
		Profile:  identity.Attributes{},
	}

	v := d.Render(s)
	require.Equal(t, "Not set", v.DisplayName)
	require.Equal(t, "login@b.com", v.Email)
}

func TestDashboard_CancelRestoresCommittedProfile(t *testing.T) {
	f := setupFixture(t)
	f.signIn(t)

	f.dashboard.BeginEdit(f.manager.Snapshot())
	err := f.dashboard.Save(context.Background(), f.manager, view.ProfileForm{GivenName: "Augusta", FamilyName: "King"})
	require.NoError(t, err)
	require.False(t, f.dashboard.Editing())

	// Unsaved edit that fails at the provider
	f.provider.FailWith(identityfake.OpSetAttributes, identity.NewError(identity.ErrValidation, "Invalid attribute", nil))
	f.dashboard.BeginEdit(f.manager.Snapshot())
	err = f.dashboard.Save(context.Background(), f.manager, view.ProfileForm{GivenName: "", FamilyName: "Byron"})
	require.Error(t, err)

	v := f.dashboard.Render(f.manager.Snapshot())
	require.True(t, v.Editing)
	require.Equal(t, "Byron", v.Form.FamilyName)
	require.Equal(t, "Invalid attribute", v.Error)

	f.dashboard.Cancel(f.manager.Snapshot())
	v = f.dashboard.Render(f.manager.Snapshot())
	require.False(t, v.Editing)
	require.Equal(t, view.ProfileForm{GivenName: "Augusta", FamilyName: "King"}, v.Form)
}

func TestDashboard_SaveUpdatesProfile(t *testing.T) {
	f := setupFixture(t)
	f.signIn(t)

	f.dashboard.BeginEdit(f.manager.Snapshot())
	require.True(t, f.dashboard.Editing())

	err := f.dashboard.Save(context.Background(), f.manager, view.ProfileForm{GivenName: " A ", FamilyName: "Lovelace"})
	require.NoError(t, err)

	v := f.dashboard.Render(f.manager.Snapshot())
	require.False(t, v.Editing)
	require.Equal(t, "A", v.Form.GivenName)
	require.Equal(t, "A Lovelace", v.DisplayName)
}

func TestDashboard_ObserveLeavesEditsAlone(t *testing.T) {
	d := view.NewDashboard()
	committed := session.Session{
		Status:   session.StatusReady,
		Identity: &identity.Identity{ID: "user-1", LoginID: email},
		Profile:  identity.Attributes{identity.AttrGivenName: "Ada"},
	}
	d.Observe(committed)
	d.BeginEdit(committed)

	changed := committed
	changed.Profile = identity.Attributes{identity.AttrGivenName: "Changed elsewhere"}
	d.Observe(changed)
	require.Equal(t, "Ada", d.Render(committed).Form.GivenName)

	d.Cancel(changed)
	require.Equal(t, "Changed elsewhere", d.Render(changed).Form.GivenName)
}

func TestDashboard_SignOutEndsEditing(t *testing.T) {
	f := setupFixture(t)
	f.signIn(t)

	f.dashboard.BeginEdit(f.manager.Snapshot())
	require.True(t, f.dashboard.Editing())

	_, err := f.manager.SignOut(context.Background())
	require.NoError(t, err)
	require.False(t, f.dashboard.Editing())
	require.Empty(t, f.dashboard.Render(f.manager.Snapshot()).Form.GivenName)
}

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jrsteele09/sade-booster/identity"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/jrsteele09/sade-booster/session"

var (
	// ErrClosed is returned by operations on a manager that has been closed.
	ErrClosed = errors.New("session manager closed")

	// ErrStepRequired is returned when the provider wants another sign-in step
	// (MFA, new password) before it issues tokens.
	ErrStepRequired = errors.New("additional sign-in step required")
)

// Manager owns the Session of one client instance.
//
// The four operations are serialized by a gate so no two of them interleave
// their writes. Readers use Snapshot, which never waits on the provider.
// After Close, results of operations still in flight are discarded.
type Manager struct {
	provider identity.Provider
	nowTime  func() time.Time
	tracer   trace.Tracer

	gate sync.Mutex // held for the whole of an operation

	mu      sync.RWMutex // guards the fields below
	state   Session
	subs    map[int]func(Session)
	nextSub int
	closed  bool
	done    chan struct{} // closed by Close
}

// Option configures a Manager.
type Option func(*Manager)

// WithNowTime sets the clock (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

// NewManager creates a manager in the probing state.
func NewManager(provider identity.Provider, opts ...Option) *Manager {
	m := &Manager{
		provider: provider,
		nowTime:  time.Now,
		tracer:   otel.Tracer(tracerName),
		state:    Session{Status: StatusProbing},
		subs:     make(map[int]func(Session)),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Snapshot returns a copy of the current Session.
func (m *Manager) Snapshot() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.clone()
}

// Subscribe registers fn to receive the Session after every committed change.
// fn runs on the goroutine of the operation and must not call back into the
// manager's operations.
func (m *Manager) Subscribe(fn func(Session)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return func() {}
	}
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.subs, id)
		})
	}
}

// Close tears the manager down. Subscribers are dropped, Done is closed and
// later operations fail with ErrClosed.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	m.subs = make(map[int]func(Session))
	close(m.done)
}

// Done returns a channel that is closed when the manager is closed.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Closed reports whether Close has been called.
func (m *Manager) Closed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// commit applies change unless the manager is closed, then notifies
// subscribers. It reports whether the change was applied.
func (m *Manager) commit(change func(s *Session)) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	change(&m.state)
	snap := m.state.clone()
	subs := make([]func(Session), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	for _, fn := range subs {
		fn(snap.clone())
	}
	return true
}

// begin starts an operation: it fails on a closed manager and clears the
// last error. The caller must hold the gate.
func (m *Manager) begin() error {
	m.mu.RLock()
	closed, lastErr := m.closed, m.state.LastError
	m.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	if lastErr != "" {
		m.commit(func(s *Session) { s.LastError = "" })
	}
	return nil
}

// fetch reads the current identity and its attributes from the provider.
func (m *Manager) fetch(ctx context.Context) (*identity.Identity, identity.Attributes, error) {
	id, err := m.provider.CurrentIdentity(ctx)
	if err != nil {
		return nil, nil, err
	}
	attrs, err := m.provider.AttributesOf(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if attrs == nil {
		attrs = identity.Attributes{}
	}
	return &id, attrs.Clone(), nil
}

// establish records id and profile as the signed in state.
func (m *Manager) establish(s *Session, id *identity.Identity, profile identity.Attributes) {
	if id == nil {
		s.Identity, s.Profile, s.SignedInAt = nil, nil, time.Time{}
	} else {
		if s.Identity == nil || s.Identity.ID != id.ID {
			s.SignedInAt = m.nowTime()
		}
		s.Identity, s.Profile = id, profile
	}
	s.Status = StatusReady
}

// Probe checks the provider for an existing session. Any failure, including
// the absence of a session, leaves the Session signed out. The Session is
// always ready afterwards.
func (m *Manager) Probe(ctx context.Context) {
	ctx, span := m.tracer.Start(ctx, "session.Probe")
	defer span.End()

	m.gate.Lock()
	defer m.gate.Unlock()
	if err := m.begin(); err != nil {
		return
	}

	id, profile, err := m.fetch(ctx)
	if err != nil {
		if errors.Is(err, identity.ErrNoSession) {
			log.Debug().Msg("No existing session")
		} else {
			log.Warn().Err(err).Msg("Session probe failed, treating as signed out")
		}
	}

	if !m.commit(func(s *Session) { m.establish(s, id, profile) }) {
		log.Debug().Msg("Session closed during probe, result discarded")
		return
	}
	span.SetAttributes(attribute.Bool("session.signed_in", id != nil))
}

// SignIn submits credentials. On success the Session is re-probed and the
// caller should navigate to the dashboard. On failure LastError is set and
// the error is returned with no destination.
func (m *Manager) SignIn(ctx context.Context, loginID, secret string) (Destination, error) {
	ctx, span := m.tracer.Start(ctx, "session.SignIn")
	defer span.End()

	m.gate.Lock()
	defer m.gate.Unlock()
	if err := m.begin(); err != nil {
		return DestinationNone, err
	}

	res, err := m.provider.Authenticate(ctx, loginID, secret)
	if err == nil && !res.SignedIn {
		err = fmt.Errorf("%w: %s", ErrStepRequired, res.NextStep)
	}
	if err != nil {
		msg := identity.Message(err, MsgSignInFailed)
		if errors.Is(err, ErrStepRequired) {
			msg = "Additional sign in step required (" + res.NextStep + ")"
		}
		log.Info().Err(err).Msg("Sign in failed")
		recordError(span, err)
		if !m.commit(func(s *Session) { s.LastError = msg }) {
			return DestinationNone, ErrClosed
		}
		return DestinationNone, err
	}

	id, profile, err := m.fetch(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load session after sign in")
	}
	if !m.commit(func(s *Session) { m.establish(s, id, profile) }) {
		return DestinationNone, ErrClosed
	}
	log.Info().Bool("signed_in", id != nil).Msg("Signed in")
	return DestinationDashboard, nil
}

// SignOut invalidates every session of the identity at the provider. The
// local Session is cleared whatever the outcome; a provider failure is kept in
// LastError and returned alongside the sign-in destination.
func (m *Manager) SignOut(ctx context.Context) (Destination, error) {
	ctx, span := m.tracer.Start(ctx, "session.SignOut")
	defer span.End()

	m.gate.Lock()
	defer m.gate.Unlock()
	if err := m.begin(); err != nil {
		return DestinationNone, err
	}

	err := m.provider.InvalidateAllSessions(ctx)
	if errors.Is(err, identity.ErrNoSession) {
		// Nothing to invalidate remotely
		err = nil
	}
	msg := ""
	if err != nil {
		msg = identity.Message(err, MsgSignOutFailed)
		log.Warn().Err(err).Msg("Global sign out failed, clearing local session")
		recordError(span, err)
	}

	if !m.commit(func(s *Session) {
		m.establish(s, nil, nil)
		s.LastError = msg
	}) {
		return DestinationNone, ErrClosed
	}
	return DestinationSignIn, err
}

// UpdateProfile submits fields and then reloads identity and profile in full.
// On failure the Session is left as it was apart from LastError.
func (m *Manager) UpdateProfile(ctx context.Context, fields identity.Attributes) error {
	ctx, span := m.tracer.Start(ctx, "session.UpdateProfile")
	defer span.End()
	span.SetAttributes(attribute.Int("profile.fields", len(fields)))

	m.gate.Lock()
	defer m.gate.Unlock()
	if err := m.begin(); err != nil {
		return err
	}

	fail := func(err error) error {
		log.Info().Err(err).Msg("Profile update failed")
		recordError(span, err)
		if !m.commit(func(s *Session) { s.LastError = identity.Message(err, MsgUpdateProfileFailed) }) {
			return ErrClosed
		}
		return err
	}

	if len(fields) > 0 {
		if err := m.provider.SetAttributes(ctx, fields.Clone()); err != nil {
			return fail(err)
		}
	}

	id, profile, err := m.fetch(ctx)
	if err != nil {
		return fail(err)
	}
	if !m.commit(func(s *Session) { m.establish(s, id, profile) }) {
		return ErrClosed
	}
	return nil
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

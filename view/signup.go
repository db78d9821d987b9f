package view

import (
	"context"
	"errors"
	"sync"

	"github.com/jrsteele09/sade-booster/identity"
	"github.com/jrsteele09/sade-booster/session"
)

// Messages shown when a registration failure carries no message of its own
const (
	MsgSignupFailed  = "Failed to create account. Please try again."
	MsgConfirmFailed = "Invalid confirmation code. Please try again."
)

// ErrNoPendingRegistration is returned by Confirm before a registration was submitted.
var ErrNoPendingRegistration = errors.New("no registration awaiting confirmation")

// SignupPhase is the step of the registration form.
type SignupPhase int

const (
	PhaseDetails SignupPhase = iota
	PhaseConfirm
)

// SignupForm holds the registration fields.
type SignupForm struct {
	Email      string
	Password   string
	GivenName  string
	FamilyName string
}

// Signup is the two phase registration form. It talks to the provider
// directly and never touches the Session: confirming an account does not sign
// the visitor in.
type Signup struct {
	registrar identity.Registrar

	gate sync.Mutex // one submission at a time

	mu    sync.Mutex
	phase SignupPhase
	form  SignupForm // Password is never kept
	err   string
}

func NewSignup(registrar identity.Registrar) *Signup {
	return &Signup{registrar: registrar}
}

// Submit creates the account and moves to the confirmation phase.
func (s *Signup) Submit(ctx context.Context, form SignupForm) error {
	s.gate.Lock()
	defer s.gate.Unlock()

	s.mu.Lock()
	s.err = ""
	s.form = SignupForm{Email: form.Email, GivenName: form.GivenName, FamilyName: form.FamilyName}
	s.mu.Unlock()

	err := s.registrar.Register(ctx, form.Email, form.Password, identity.Attributes{
		identity.AttrEmail:      form.Email,
		identity.AttrGivenName:  form.GivenName,
		identity.AttrFamilyName: form.FamilyName,
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.err = identity.Message(err, MsgSignupFailed)
		return err
	}
	s.phase = PhaseConfirm
	return nil
}

// Confirm submits the code for the pending registration. On success the form
// resets and the caller should navigate to sign in.
func (s *Signup) Confirm(ctx context.Context, code string) (string, error) {
	s.gate.Lock()
	defer s.gate.Unlock()

	s.mu.Lock()
	if s.phase != PhaseConfirm {
		s.mu.Unlock()
		return "", ErrNoPendingRegistration
	}
	s.err = ""
	email := s.form.Email
	s.mu.Unlock()

	err := s.registrar.ConfirmRegistration(ctx, email, code)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.err = identity.Message(err, MsgConfirmFailed)
		return "", err
	}
	s.phase = PhaseDetails
	s.form = SignupForm{}
	return string(session.DestinationSignIn), nil
}

// Reset returns the form to the details phase.
func (s *Signup) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = PhaseDetails
	s.form = SignupForm{}
	s.err = ""
}

// SignupView is everything the registration template needs.
type SignupView struct {
	Phase      SignupPhase
	Confirming bool
	Title      string
	Form       SignupForm
	Error      string
}

func (s *Signup) View() SignupView {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := SignupView{
		Phase:      s.phase,
		Confirming: s.phase == PhaseConfirm,
		Title:      "Create your account",
		Form:       s.form,
		Error:      s.err,
	}
	if v.Confirming {
		v.Title = "Confirm your account"
	}
	return v
}

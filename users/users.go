package users

import (
	"fmt"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// User is an account held by the in-process identity directory.
type User struct {
	ID           string            `json:"id,omitempty"`         // Unique identifier for the user (the "sub")
	Email        string            `json:"email,omitempty"`      // Login identifier
	PasswordHash string            `json:"-"`                    // Hashed version of the user's password - never serialize
	Attributes   map[string]string `json:"attributes,omitempty"` // Profile attributes (given_name, family_name, ...)
	DateJoined   time.Time         `json:"date_joined,omitzero"`
	LastLogin    time.Time         `json:"last_login,omitzero"`

	Confirmed        bool      `json:"confirmed,omitempty"` // Registration confirmed with the emailed code
	ConfirmationCode string    `json:"-"`                   // Outstanding confirmation code
	CodeExpiresAt    time.Time `json:"-"`                   // When the outstanding code stops being accepted

	// SessionVersion is bumped by a global sign out; tokens carrying an older
	// version are rejected.
	SessionVersion int `json:"session_version"`
}

// Clone returns a deep copy of the user.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.Attributes != nil {
		c.Attributes = make(map[string]string, len(u.Attributes))
		for k, v := range u.Attributes {
			c.Attributes[k] = v
		}
	}
	return &c
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}

	return nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// CheckPassword checks a password against the user's hash
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.PasswordHash)
}

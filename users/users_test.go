package users_test

import (
	"testing"

	"github.com/jrsteele09/sade-booster/users"
	fakeuserrepo "github.com/jrsteele09/sade-booster/users/repofake"
	"github.com/stretchr/testify/require"
)

func TestValidatePasswordStrength(t *testing.T) {
	tests := []struct {
		name     string
		password string
		errMsg   string
	}{
		{name: "valid", password: "Password123"},
		{name: "too short", password: "Pa1", errMsg: "at least 8 characters"},
		{name: "no upper", password: "password123", errMsg: "uppercase"},
		{name: "no lower", password: "PASSWORD123", errMsg: "lowercase"},
		{name: "no number", password: "Passwordxyz", errMsg: "number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := users.ValidatePasswordStrength(tt.password)
			if tt.errMsg == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestHashPassword(t *testing.T) {
	hash, err := users.HashPassword("Password123")
	require.NoError(t, err)

	u := &users.User{PasswordHash: hash}
	require.True(t, u.CheckPassword("Password123"))
	require.False(t, u.CheckPassword("password123"))
}

func TestFakeUserRepo(t *testing.T) {
	repo := fakeuserrepo.NewFakeUserRepo()

	u := &users.User{Email: "Ada@Example.com", Attributes: map[string]string{"given_name": "Ada"}}
	require.NoError(t, repo.Upsert(u))
	require.NotEmpty(t, u.ID)

	byEmail, err := repo.GetByEmail("ada@example.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, byEmail.ID)

	// Mutating a returned user doesn't touch the stored copy
	byEmail.Attributes["given_name"] = "Grace"
	byID, err := repo.GetByID(u.ID)
	require.NoError(t, err)
	require.Equal(t, "Ada", byID.Attributes["given_name"])

	require.NoError(t, repo.Delete("ada@example.com"))
	_, err = repo.GetByID(u.ID)
	require.ErrorIs(t, err, users.ErrNotFound)
	require.ErrorIs(t, repo.Delete("ada@example.com"), users.ErrNotFound)
}

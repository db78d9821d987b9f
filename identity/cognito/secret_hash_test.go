package cognito

import (
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/jrsteele09/sade-booster/identity"
	"github.com/stretchr/testify/require"
)

func TestSecretHash(t *testing.T) {
	require.Equal(t, "H+QvGFvFUsbSwPIewwFyyGAnWfgIAW8xpqLJIsf1KE0=", secretHash("a@b.com", "app-client", "shh"))
}

func TestMapError(t *testing.T) {
	notAuthorized := &types.NotAuthorizedException{Message: aws.String("nope")}

	tests := []struct {
		name string
		op   operation
		err  error
		kind error
	}{
		{name: "sign in rejected", op: opSignIn, err: notAuthorized, kind: identity.ErrInvalidCredentials},
		{name: "session revoked", op: opSession, err: notAuthorized, kind: identity.ErrNoSession},
		{name: "already confirmed", op: opConfirm, err: notAuthorized, kind: identity.ErrValidation},
		{name: "sign up not permitted", op: opRegister, err: notAuthorized, kind: identity.ErrUnknown},
		{name: "unknown user on sign in", op: opSignIn, err: &types.UserNotFoundException{}, kind: identity.ErrInvalidCredentials},
		{name: "not confirmed", op: opSignIn, err: &types.UserNotConfirmedException{}, kind: identity.ErrNotConfirmed},
		{name: "username exists", op: opRegister, err: &types.UsernameExistsException{}, kind: identity.ErrUsernameExists},
		{name: "weak password", op: opRegister, err: &types.InvalidPasswordException{}, kind: identity.ErrWeakPassword},
		{name: "code mismatch", op: opConfirm, err: &types.CodeMismatchException{}, kind: identity.ErrInvalidCode},
		{name: "expired code", op: opConfirm, err: &types.ExpiredCodeException{}, kind: identity.ErrExpiredCode},
		{name: "invalid parameter", op: opSession, err: &types.InvalidParameterException{}, kind: identity.ErrValidation},
		{name: "throttled", op: opSignIn, err: &types.TooManyRequestsException{}, kind: identity.ErrUnknown},
		{name: "transport", op: opSignIn, err: errors.New("dial tcp: timeout"), kind: identity.ErrUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapError(tt.op, tt.err)
			require.ErrorIs(t, err, tt.kind)
			require.Equal(t, tt.kind, identity.KindOf(err))
		})
	}

	require.NoError(t, mapError(opSignIn, nil))
	require.Equal(t, "nope", identity.Message(mapError(opSignIn, notAuthorized), "fallback"))
}

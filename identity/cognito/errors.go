package cognito

import (
	"errors"

	"github.com/aws/smithy-go"
	"github.com/jrsteele09/sade-booster/identity"
)

type operation int

const (
	opSignIn operation = iota
	opSession
	opRegister
	opConfirm
)

// mapError classifies a Cognito failure, keeping the service message.
func mapError(op operation, err error) error {
	if err == nil {
		return nil
	}
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return identity.NewError(identity.ErrUnknown, "", err)
	}
	return identity.NewError(kindFor(op, apiErr.ErrorCode()), apiErr.ErrorMessage(), err)
}

func kindFor(op operation, code string) error {
	switch code {
	case "NotAuthorizedException":
		switch op {
		case opSignIn:
			return identity.ErrInvalidCredentials
		case opConfirm:
			return identity.ErrValidation // already confirmed
		case opRegister:
			return identity.ErrUnknown // sign up disabled for the pool
		default:
			return identity.ErrNoSession
		}
	case "UserNotFoundException":
		switch op {
		case opSignIn:
			return identity.ErrInvalidCredentials
		case opConfirm:
			return identity.ErrInvalidCode
		default:
			return identity.ErrNoSession
		}
	case "UserNotConfirmedException":
		return identity.ErrNotConfirmed
	case "UsernameExistsException", "AliasExistsException":
		return identity.ErrUsernameExists
	case "InvalidPasswordException":
		return identity.ErrWeakPassword
	case "CodeMismatchException":
		return identity.ErrInvalidCode
	case "ExpiredCodeException":
		return identity.ErrExpiredCode
	case "InvalidParameterException":
		return identity.ErrValidation
	}
	return identity.ErrUnknown
}

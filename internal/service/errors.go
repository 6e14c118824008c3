package service

import (
	"errors"

	"connectrpc.com/connect"

	"github.com/mmynk/flatearth/internal/auth"
	apperrors "github.com/mmynk/flatearth/internal/errors"
)

// connectError maps an application error to a Connect error. Credential
// rejections from the identity provider get codes of their own.
func connectError(err error) error {
	switch {
	case errors.Is(err, auth.ErrEmailExists):
		return connect.NewError(connect.CodeAlreadyExists, auth.ErrEmailExists)
	case errors.Is(err, auth.ErrWeakPassword):
		return connect.NewError(connect.CodeInvalidArgument, auth.ErrWeakPassword)
	case errors.Is(err, auth.ErrInvalidEmail):
		return connect.NewError(connect.CodeInvalidArgument, auth.ErrInvalidEmail)
	case errors.Is(err, auth.ErrInvalidCredentials):
		return connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidCredentials)
	}

	msg := apperrors.MessageOf(err)
	if msg == "" {
		msg = "internal error"
	}
	var code connect.Code
	switch apperrors.KindOf(err) {
	case apperrors.ErrTransport:
		code = connect.CodeUnavailable
	case apperrors.ErrNotFound:
		code = connect.CodeNotFound
	case apperrors.ErrAuth:
		code = connect.CodeUnauthenticated
	case apperrors.ErrValidation:
		code = connect.CodeInvalidArgument
	default:
		code = connect.CodeInternal
	}
	return connect.NewError(code, errors.New(msg))
}

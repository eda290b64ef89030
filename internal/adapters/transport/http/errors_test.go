package http

import (
	"errors"
	stdhttp "net/http"
	"testing"

	"github.com/stretchr/testify/require"

	authErrors "github.com/tokenforge/auth-service/internal/domain/auth/errors"
)

func TestErrorResponse(t *testing.T) {
	cases := []struct {
		err    error
		status int
		typ    string
	}{
		{authErrors.NewInvalidArgument("bad"), stdhttp.StatusBadRequest, "ValidationError"},
		{authErrors.ErrAlreadyExists, stdhttp.StatusBadRequest, "DuplicateEmailError"},
		{authErrors.ErrInvalidCredentials, stdhttp.StatusBadRequest, "InvalidCredentialsError"},
		{authErrors.ErrInvalidToken, stdhttp.StatusUnauthorized, "VerificationError"},
		{authErrors.ErrNotFound, stdhttp.StatusNotFound, "NotFound"},
		{authErrors.WrapKeyUnavailable(errors.New("no pem"), "load"), stdhttp.StatusInternalServerError, "KeyUnavailable"},
		{authErrors.WrapStorage(errors.New("dial tcp"), "create"), stdhttp.StatusInternalServerError, "StorageError"},
		{errors.New("boom"), stdhttp.StatusInternalServerError, "InternalError"},
	}
	for _, tc := range cases {
		status, body := errorResponse(tc.err)
		require.Equal(t, tc.status, status, tc.typ)
		require.Len(t, body.Errors, 1)
		require.Equal(t, tc.typ, body.Errors[0].Type)
	}
}

func TestErrorResponseHidesInternals(t *testing.T) {
	_, body := errorResponse(authErrors.WrapStorage(errors.New("password=secret host=db"), "create"))
	require.NotContains(t, body.Errors[0].Message, "secret")
}

func TestErrorResponseValidationMessageHasNoSentinelPrefix(t *testing.T) {
	status, body := errorResponse(authErrors.NewInvalidArgument("malformed request body"))
	require.Equal(t, stdhttp.StatusBadRequest, status)
	require.Equal(t, "malformed request body", body.Errors[0].Message)
}

package http

import (
	"errors"
	stdhttp "net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	authErrors "github.com/tokenforge/auth-service/internal/domain/auth/errors"
)

// ErrorItem is one entry of the error payload returned by every endpoint.
type ErrorItem struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Path     string `json:"path"`
	Location string `json:"location"`
}

type ErrorResponse struct {
	Errors []ErrorItem `json:"errors"`
}

const invalidCredentialsMessage = "Email or Password does not match."

func writeError(c *gin.Context, log *zap.Logger, err error) {
	status, body := errorResponse(err)
	if status >= stdhttp.StatusInternalServerError {
		log.Error("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.String("type", body.Errors[0].Type),
			zap.Error(err),
		)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

func errorResponse(err error) (int, ErrorResponse) {
	if verr, ok := authErrors.AsValidation(err); ok {
		items := make([]ErrorItem, 0, len(verr.Fields))
		for _, f := range verr.Fields {
			items = append(items, ErrorItem{Type: "ValidationError", Message: f.Message, Path: f.Field, Location: "body"})
		}
		return stdhttp.StatusBadRequest, ErrorResponse{Errors: items}
	}

	single := func(status int, typ, msg string) (int, ErrorResponse) {
		return status, ErrorResponse{Errors: []ErrorItem{{Type: typ, Message: msg}}}
	}

	switch {
	case errors.Is(err, authErrors.ErrInvalidArgument):
		msg := strings.TrimPrefix(err.Error(), authErrors.ErrInvalidArgument.Error()+": ")
		return single(stdhttp.StatusBadRequest, "ValidationError", msg)
	case errors.Is(err, authErrors.ErrAlreadyExists):
		return single(stdhttp.StatusBadRequest, "DuplicateEmailError", "Email is already exists")
	case errors.Is(err, authErrors.ErrInvalidCredentials):
		return single(stdhttp.StatusBadRequest, "InvalidCredentialsError", invalidCredentialsMessage)
	case errors.Is(err, authErrors.ErrInvalidToken):
		return single(stdhttp.StatusUnauthorized, "VerificationError", "Invalid or expired token")
	case errors.Is(err, authErrors.ErrNotFound):
		return single(stdhttp.StatusNotFound, "NotFound", "Resource not found")
	case errors.Is(err, authErrors.ErrKeyUnavailable):
		return single(stdhttp.StatusInternalServerError, "KeyUnavailable", "Signing key is unavailable")
	case errors.Is(err, authErrors.ErrStorage):
		return single(stdhttp.StatusInternalServerError, "StorageError", "Storage is unavailable")
	default:
		return single(stdhttp.StatusInternalServerError, "InternalError", "Internal server error")
	}
}

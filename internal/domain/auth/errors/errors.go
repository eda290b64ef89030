package errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInternal           = errors.New("internal error")
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAlreadyExists      = errors.New("already exists")
	ErrInvalidToken       = errors.New("invalid token")
	ErrKeyUnavailable     = errors.New("signing key unavailable")
	ErrStorage            = errors.New("storage failure")
	ErrMalformedHash      = errors.New("malformed password hash")
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError carries every field that failed validation. It matches
// ErrInvalidArgument under errors.Is.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Field+": "+f.Message)
	}
	return fmt.Sprintf("%s: %s", ErrInvalidArgument, strings.Join(msgs, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidArgument }

func NewInvalidArgument(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, msg)
}

func NewValidation(fields ...FieldError) error {
	return &ValidationError{Fields: fields}
}

func WrapInternal(err error, context string) error {
	return fmt.Errorf("%w: %s: %v", ErrInternal, context, err)
}

func WrapStorage(err error, context string) error {
	return fmt.Errorf("%w: %s: %v", ErrStorage, context, err)
}

func WrapKeyUnavailable(err error, context string) error {
	return fmt.Errorf("%w: %s: %v", ErrKeyUnavailable, context, err)
}

// AsValidation extracts the field list from a validation failure.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

func IsInternal(err error) bool {
	return errors.Is(err, ErrInternal)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsInvalidCredentials(err error) bool {
	return errors.Is(err, ErrInvalidCredentials)
}

func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

func IsInvalidToken(err error) bool {
	return errors.Is(err, ErrInvalidToken)
}

func IsKeyUnavailable(err error) bool {
	return errors.Is(err, ErrKeyUnavailable)
}

func IsStorage(err error) bool {
	return errors.Is(err, ErrStorage)
}

func IsMalformedHash(err error) bool {
	return errors.Is(err, ErrMalformedHash)
}

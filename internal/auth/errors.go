package auth

import (
	"errors"
	"strings"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("resource conflict")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrCaptchaRequired    = errors.New("captcha verification required")
	ErrInvalidCaptcha     = errors.New("invalid captcha")
)

// Detail returns the message attached to a wrapped sentinel ("%w: detail"),
// or the sentinel text itself when nothing was attached.
func Detail(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, kind := range []error{
		ErrInvalidInput, ErrNotFound, ErrConflict, ErrUnauthorized,
		ErrForbidden, ErrInvalidToken,
	} {
		if errors.Is(err, kind) {
			if rest, ok := strings.CutPrefix(msg, kind.Error()+": "); ok {
				return rest
			}
		}
	}
	return msg
}

// ConflictError names the field whose uniqueness constraint was violated.
type ConflictError struct {
	Entity string
	Field  string
}

func (e *ConflictError) Error() string {
	if e.Field == "" {
		return ErrConflict.Error()
	}
	return e.Field + " already exists"
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// MissingPrivilegesError lists the privilege codes a principal lacks.
type MissingPrivilegesError struct {
	Missing []string
}

func (e *MissingPrivilegesError) Error() string {
	return ErrForbidden.Error() + ": Insufficient privileges"
}

func (e *MissingPrivilegesError) Unwrap() error { return ErrForbidden }

// Package apperr defines the business error kinds surfaced by the API.
// Callers branch on Kind, never on message text.
package apperr

import "errors"

type Kind string

const (
	KindValidation         Kind = "VALIDATION"
	KindCodeInvalid        Kind = "CODE_INVALID_OR_EXPIRED"
	KindAccountNotFound    Kind = "ACCOUNT_NOT_FOUND"
	KindAccountBanned      Kind = "ACCOUNT_BANNED"
	KindEmailTaken         Kind = "EMAIL_TAKEN"
	KindInvalidCredentials Kind = "INVALID_CREDENTIALS"
	KindRefreshInvalid     Kind = "REFRESH_INVALID"
	KindRefreshExpired     Kind = "REFRESH_EXPIRED"
	KindTokenInvalid       Kind = "TOKEN_INVALID"
)

// Error is a caller-visible business error. Anything that is not an *Error
// is treated as an infrastructure failure and never echoed to clients.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// KindOf returns the business kind of err, or "" if err is not a business
// error.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// IsKind reports whether err is a business error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

package fault

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an expected failure so callers can branch on it
// instead of sniffing error message substrings.
type Kind string

const (
	KindMissingParameter Kind = "missing_parameter"
	KindCompanyNotFound  Kind = "company_not_found"
	KindSiteNotFound     Kind = "site_not_found"
	KindHardwareNotFound Kind = "hardware_not_found"
	KindInvalidToken     Kind = "invalid_token"
	KindTokenExpired     Kind = "token_expired"
	KindMissingPayload   Kind = "missing_payload"
	KindInvalidPayload   Kind = "invalid_payload"
	KindMissingAlertType Kind = "missing_alert_type"
	KindNotFound         Kind = "not_found"
	KindForbidden        Kind = "forbidden"
	KindUnexpected       Kind = "unexpected"
)

// Error carries a kind alongside a human-readable message and an
// optional wrapped cause.
type Error struct {
	Kind  Kind
	Msg   string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.cause)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a typed failure with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an underlying cause.
func Wrap(err error, kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, cause: err}
}

// KindOf extracts the kind of err, or KindUnexpected when err does not
// carry one.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnexpected
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps a failure kind to the status code it surfaces as.
// Identity-chain breaks map to 401 on the authentication flow; alert
// management callers should use StatusNotFound for missing records.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindMissingParameter, KindMissingPayload, KindInvalidPayload, KindMissingAlertType:
		return http.StatusBadRequest
	case KindCompanyNotFound, KindSiteNotFound, KindHardwareNotFound,
		KindInvalidToken, KindTokenExpired:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies failures so handlers can map them onto HTTP statuses.
type ErrorKind string

const (
	KindValidation     ErrorKind = "validation"
	KindAuthentication ErrorKind = "authentication_required"
	KindAuthorization  ErrorKind = "authorization_denied"
	KindNotFound       ErrorKind = "not_found"
	KindTooLarge       ErrorKind = "payload_too_large"
	KindQuota          ErrorKind = "quota_exceeded"
	KindUpstream       ErrorKind = "upstream_failure"
	KindInternal       ErrorKind = "internal"
)

// AppError carries a client-safe message plus the status and numeric code of the envelope.
// Err holds the underlying cause and is only ever logged.
type AppError struct {
	Kind    ErrorKind
	Status  int
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// ValidationError reports malformed or missing input.
func ValidationError(code int, message string) *AppError {
	return &AppError{Kind: KindValidation, Status: http.StatusBadRequest, Code: code, Message: message}
}

// AuthenticationRequired reports a missing principal.
func AuthenticationRequired(code int) *AppError {
	return &AppError{Kind: KindAuthentication, Status: http.StatusUnauthorized, Code: code, Message: "authentication required"}
}

// AuthorizationDenied reports a principal lacking the required role or ownership.
func AuthorizationDenied(code int, message string) *AppError {
	return &AppError{Kind: KindAuthorization, Status: http.StatusForbidden, Code: code, Message: message}
}

// NotFound reports an absent resource.
func NotFound(code int, message string) *AppError {
	return &AppError{Kind: KindNotFound, Status: http.StatusNotFound, Code: code, Message: message}
}

// PayloadTooLarge reports an upload above the size ceiling.
func PayloadTooLarge(code int, message string) *AppError {
	return &AppError{Kind: KindTooLarge, Status: http.StatusRequestEntityTooLarge, Code: code, Message: message}
}

// QuotaExceeded reports an upload that would overflow the account's storage quota.
func QuotaExceeded(code int, message string) *AppError {
	return &AppError{Kind: KindQuota, Status: http.StatusTooManyRequests, Code: code, Message: message}
}

// UpstreamFailure reports a failed call to an external service. A status outside
// the 4xx/5xx range falls back to 500.
func UpstreamFailure(status, code int, message string, err error) *AppError {
	if status < 400 || status > 599 {
		status = http.StatusInternalServerError
	}
	return &AppError{Kind: KindUpstream, Status: status, Code: code, Message: message, Err: err}
}

// InternalError wraps an unexpected failure behind a generic message.
func InternalError(code int, err error) *AppError {
	return &AppError{Kind: KindInternal, Status: http.StatusInternalServerError, Code: code, Message: "internal server error", Err: err}
}

// AsAppError unwraps err into an *AppError, wrapping unknown errors as internal.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return InternalError(50000, err)
}

// IsKind reports whether err is an *AppError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Kind == kind
}

// BestEffort runs fn and swallows any error or panic it produces, logging it
// under the given operation name.
func BestEffort(op string, fn func() error) {
	defer func() {
		if rec := recover(); rec != nil {
			Sugar.Warnw("best-effort operation panicked", "op", op, "panic", rec)
		}
	}()
	if err := fn(); err != nil {
		Sugar.Warnw("best-effort operation failed", "op", op, "err", err)
	}
}

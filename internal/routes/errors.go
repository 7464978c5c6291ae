package routes

import (
	"errors"
	"net/http"

	"smart-locker-control/internal/access"
	"smart-locker-control/internal/activity"
	"smart-locker-control/internal/jwt"
	"smart-locker-control/internal/locker"
	"smart-locker-control/internal/qr"
)

// HTTPError carries its own status, user message and stop codes.
type HTTPError struct {
	Err        error
	StatusCode int
	Message    string
	StopCodes  []string
}

// ErrorInfo is what a client gets to see about an error.
type ErrorInfo struct {
	Message   string
	StopCodes []string // Machine readable codes for client-side handling
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

func NewHTTPError(statusCode int, err error, message string, stopCodes ...string) *HTTPError {
	return &HTTPError{
		Err:        err,
		StatusCode: statusCode,
		Message:    message,
		StopCodes:  stopCodes,
	}
}

var (
	// Authentication
	ErrUnauthorized   = errors.New("unauthorized")
	ErrTokenExpired   = errors.New("token expired")
	ErrUnknownSubject = errors.New("token subject no longer exists")
	ErrInvalidAPIKey  = errors.New("invalid api key")

	// Authorization
	ErrForbidden               = errors.New("forbidden")
	ErrInsufficientPermissions = errors.New("insufficient permissions")

	// Validation
	ErrInvalidRequest   = errors.New("invalid request")
	ErrMissingParameter = errors.New("missing required parameter")
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrInvalidQRCode    = errors.New("invalid qr code")

	ErrNotFound           = errors.New("not found")
	ErrRateLimited        = errors.New("rate limited")
	ErrInternalServer     = errors.New("internal server error")
	ErrServiceUnavailable = errors.New("service unavailable")
)

type errorMapping struct {
	status int
	info   ErrorInfo
}

func mapping(status int, message string, stopCodes ...string) errorMapping {
	return errorMapping{status: status, info: ErrorInfo{Message: message, StopCodes: stopCodes}}
}

// errorMappings is ordered: the first entry an error matches with errors.Is wins.
var errorMappings = []struct {
	err error
	errorMapping
}{
	// 400
	{ErrInvalidRequest, mapping(http.StatusBadRequest, "Invalid request format", "INVALID_REQUEST")},
	{ErrMissingParameter, mapping(http.StatusBadRequest, "Required parameter is missing", "MISSING_PARAMETER")},
	{ErrInvalidParameter, mapping(http.StatusBadRequest, "Invalid parameter value", "INVALID_PARAMETER")},
	{ErrInvalidQRCode, mapping(http.StatusBadRequest, "QR code is not valid for this locker", "INVALID_QR_CODE")},
	{locker.ErrInvalidAction, mapping(http.StatusBadRequest, "Invalid action", "INVALID_ACTION")},
	{activity.ErrMissingAction, mapping(http.StatusBadRequest, "Action is required", "MISSING_ACTION")},
	{qr.ErrEmptyPayload, mapping(http.StatusBadRequest, "QR data is required", "MISSING_QR_DATA")},

	// 401
	{ErrUnauthorized, mapping(http.StatusUnauthorized, "Authentication required", "AUTH_REQUIRED")},
	{ErrTokenExpired, mapping(http.StatusUnauthorized, "Authentication token has expired", "AUTH_TOKEN_EXPIRED")},
	{ErrUnknownSubject, mapping(http.StatusUnauthorized, "Authentication required", "AUTH_UNKNOWN_USER")},
	{jwt.ErrInvalidNonce, mapping(http.StatusUnauthorized, "Invalid or reused access code", "AUTH_INVALID_NONCE")},
	{jwt.ErrWrongLocker, mapping(http.StatusUnauthorized, "Access code is not valid for this locker", "AUTH_WRONG_LOCKER")},
	{jwt.ErrNonValidToken, mapping(http.StatusUnauthorized, "Invalid or expired authentication token", "AUTH_INVALID_TOKEN")},
	{access.ErrInvalidCredentials, mapping(http.StatusUnauthorized, "Invalid credentials", "AUTH_INVALID_CREDENTIALS")},
	{ErrInvalidAPIKey, mapping(http.StatusUnauthorized, "Invalid API key", "AUTH_INVALID_API_KEY")},

	// 403
	{ErrForbidden, mapping(http.StatusForbidden, "Access denied", "FORBIDDEN")},
	{ErrInsufficientPermissions, mapping(http.StatusForbidden, "You don't have permission to perform this action", "INSUFFICIENT_PERMISSIONS")},

	{ErrNotFound, mapping(http.StatusNotFound, "Not found", "NOT_FOUND")},
	{ErrRateLimited, mapping(http.StatusTooManyRequests, "Too many requests. Please try again later.", "RATE_LIMITED")},

	// Internal errors carry no stop codes
	{ErrInternalServer, mapping(http.StatusInternalServerError, "An internal error occurred")},
	{ErrServiceUnavailable, mapping(http.StatusServiceUnavailable, "Service is temporarily unavailable")},
}

var internalError = mapping(http.StatusInternalServerError, "An internal error occurred")

func lookupError(err error) errorMapping {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return errorMapping{
			status: httpErr.StatusCode,
			info:   ErrorInfo{Message: httpErr.Message, StopCodes: httpErr.StopCodes},
		}
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.errorMapping
		}
	}
	// Never leak internals of unknown errors
	return internalError
}

// GetErrorStatus returns the HTTP status code for an error.
func GetErrorStatus(err error) int {
	return lookupError(err).status
}

// GetErrorInfo returns the user message and stop codes for an error.
func GetErrorInfo(err error) ErrorInfo {
	return lookupError(err).info
}

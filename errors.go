package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeUnauthorized       = "UNAUTHORIZED"
	TextCodeForbidden          = "FORBIDDEN"
	TextCodeNotFound           = "NOT_FOUND"
	TextCodeBadRequest         = "BAD_REQUEST"
	TextCodeConflict           = "CONFLICT"
	TextCodeRateLimited        = "RATE_LIMITED"
	TextCodeServerError        = "API_SERVER_ERROR"
	TextCodeTransport          = "TRANSPORT_FAILED"
	TextCodeRefreshFailed      = "TOKEN_REFRESH_FAILED"
	TextCodeMissingAccessToken = "MISSING_ACCESS_TOKEN"
	TextCodeTokenMalformed     = "TOKEN_MALFORMED"
	TextCodeUnknownRole        = "UNKNOWN_ROLE"
	TextCodeStorage            = "TOKEN_STORAGE_FAILED"
	TextCodeValidation         = "VALIDATION_FAILED"
)

// ErrUnauthorized is returned when the API rejects the credential and no
// refresh could recover it
var ErrUnauthorized = goerrors.New("unauthorized", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeUnauthorized)

// ErrRefreshFailed describes a rejected or unreachable refresh endpoint
var ErrRefreshFailed = goerrors.New("access token refresh failed", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeRefreshFailed)

// ErrMissingAccessToken is returned when an auth response carries no token
var ErrMissingAccessToken = goerrors.New("auth response has no access token", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeMissingAccessToken)

// ErrTokenMalformed is returned when a token payload cannot be decoded
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeTokenMalformed)

// ErrUnknownRole is returned when a token or payload names a role outside
// the storefront role set
var ErrUnknownRole = goerrors.New("unknown role", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest).
	WithTextCode(TextCodeUnknownRole)

// ErrStorage wraps failures of the client-readable token storage
var ErrStorage = goerrors.New("token storage failed", goerrors.CategoryInternal).
	WithCode(goerrors.CodeInternal).
	WithTextCode(TextCodeStorage)

// IsUnauthorized reports whether err is an authorization failure coming
// from the API (HTTP 401) or from the session layer
func IsUnauthorized(err error) bool {
	if err == nil {
		return false
	}
	if StatusCode(err) == http.StatusUnauthorized {
		return true
	}
	return hasTextCode(err, TextCodeUnauthorized, TextCodeRefreshFailed, TextCodeMissingAccessToken)
}

// IsMalformedError will check for malformed token errors
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if hasTextCode(err, TextCodeTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed")
}

// IsValidationError reports whether err was raised validating a payload
func IsValidationError(err error) bool {
	return hasTextCode(err, TextCodeValidation)
}

// StatusCode returns the HTTP status carried by a normalized API error,
// 0 when the request never got a response
func StatusCode(err error) int {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr.Metadata == nil {
		return 0
	}
	if status, ok := richErr.Metadata["status"].(int); ok {
		return status
	}
	return 0
}

// ErrorBody returns the decoded response body attached to an API error
func ErrorBody(err error) any {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr.Metadata == nil {
		return nil
	}
	return richErr.Metadata["body"]
}

func hasTextCode(err error, codes ...string) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	for _, code := range codes {
		if richErr.TextCode == code {
			return true
		}
	}
	return false
}

func withMetadata(base *goerrors.Error, source error, metadata map[string]any) error {
	clone := base.Clone()
	if clone == nil {
		return base
	}
	if source != nil {
		clone.Source = source
	}
	if len(metadata) > 0 {
		return clone.WithMetadata(metadata)
	}
	return clone
}

// newAPIError normalizes a non 2xx response into a rich error. The body
// message, when present, becomes the error message.
func newAPIError(status int, body []byte) error {
	message := http.StatusText(status)
	if message == "" {
		message = "unexpected API response"
	}

	var decoded any = strings.TrimSpace(string(body))
	var payload map[string]any
	if len(body) > 0 && json.Unmarshal(body, &payload) == nil {
		decoded = payload
		if msg, ok := payload["message"].(string); ok && msg != "" {
			message = msg
		} else if msg, ok := payload["error"].(string); ok && msg != "" {
			message = msg
		}
	}

	return classifyStatus(status, message).
		WithCode(status).
		WithMetadata(map[string]any{
			"status": status,
			"body":   decoded,
		})
}

// newTransportError normalizes failures where no response was received
func newTransportError(err error, method, path string) error {
	return goerrors.Wrap(err, goerrors.CategoryOperation, "request to storefront API failed").
		WithTextCode(TextCodeTransport).
		WithMetadata(map[string]any{
			"status": 0,
			"method": method,
			"path":   path,
		})
}

func newValidationError(err error, payload string) error {
	return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid "+payload+" payload").
		WithCode(goerrors.CodeBadRequest).
		WithTextCode(TextCodeValidation)
}

func classifyStatus(status int, message string) *goerrors.Error {
	switch {
	case status == http.StatusUnauthorized:
		return goerrors.New(message, goerrors.CategoryAuth).WithTextCode(TextCodeUnauthorized)
	case status == http.StatusForbidden:
		return goerrors.New(message, goerrors.CategoryAuthz).WithTextCode(TextCodeForbidden)
	case status == http.StatusNotFound:
		return goerrors.New(message, goerrors.CategoryNotFound).WithTextCode(TextCodeNotFound)
	case status == http.StatusConflict:
		return goerrors.New(message, goerrors.CategoryConflict).WithTextCode(TextCodeConflict)
	case status == http.StatusTooManyRequests:
		return goerrors.New(message, goerrors.CategoryRateLimit).WithTextCode(TextCodeRateLimited)
	case status == http.StatusUnprocessableEntity:
		return goerrors.New(message, goerrors.CategoryValidation).WithTextCode(TextCodeBadRequest)
	case status >= 400 && status < 500:
		return goerrors.New(message, goerrors.CategoryBadInput).WithTextCode(TextCodeBadRequest)
	default:
		return goerrors.New(message, goerrors.CategoryInternal).WithTextCode(TextCodeServerError)
	}
}

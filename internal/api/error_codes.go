// internal/api/error_codes.go
package api

// API error codes.
const (
	// general
	ErrorBadRequest    = "BAD_REQUEST"
	ErrorNotFound      = "NOT_FOUND"
	ErrorInternalError = "INTERNAL_ERROR"
	ErrorConflict      = "CONFLICT"
	ErrorForbidden     = "FORBIDDEN"
	ErrorUnauthorized  = "UNAUTHORIZED"
	ErrorUnavailable   = "SERVICE_UNAVAILABLE"
	ErrorRateLimited   = "RATE_LIMIT_EXCEEDED"

	// novels
	ErrorNovelNotFound  = "NOVEL_NOT_FOUND"
	ErrorNovelInvalid   = "NOVEL_INVALID"
	ErrorNovelIDInvalid = "NOVEL_ID_INVALID"

	// auth
	ErrorTokenIssueFailed = "TOKEN_ISSUE_FAILED"
	ErrorTokenDisabled    = "TOKEN_ISSUE_DISABLED"
)

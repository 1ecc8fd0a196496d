package analysis

import (
	"errors"
	"fmt"
)

// MaxBodyBytes is the largest raw request body accepted.
const MaxBodyBytes = 5000

var (
	ErrRequestTooLarge = errors.New("request body too large")
	// ErrMalformedRequest is returned when the body is not a JSON object.
	ErrMalformedRequest = errors.New("malformed request body")

	ErrUpstreamUnauthorized      = errors.New("ai upstream rejected credentials")
	ErrUpstreamRateLimited       = errors.New("ai upstream rate limited")
	ErrUpstreamUnavailable       = errors.New("ai upstream unavailable")
	ErrUpstreamBadRequest        = errors.New("ai upstream rejected request")
	ErrMalformedUpstreamResponse = errors.New("ai upstream response has no content")
	ErrConfigurationMissing      = errors.New("ai api key is not configured")
)

// UpstreamUnknownError carries an upstream HTTP status outside the known set.
type UpstreamUnknownError struct {
	Status int
}

func (e *UpstreamUnknownError) Error() string {
	return fmt.Sprintf("ai upstream returned unexpected status %d", e.Status)
}

// ValidationError lists rule violations per request field.
type ValidationError struct {
	Message string
	Fields  map[string][]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %d field(s)", len(e.Fields))
}

// InternalError hides its cause from callers; only RequestID is meant to be
// shown outside the process.
type InternalError struct {
	RequestID string
	Err       error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error (request %s): %v", e.RequestID, e.Err)
}

func (e *InternalError) Unwrap() error { return e.Err }

// UpstreamKind returns a short label for metrics and logs.
func UpstreamKind(err error) string {
	var unknown *UpstreamUnknownError
	switch {
	case errors.Is(err, ErrConfigurationMissing):
		return "configuration_missing"
	case errors.Is(err, ErrUpstreamUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrUpstreamRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "unavailable"
	case errors.Is(err, ErrUpstreamBadRequest):
		return "bad_request"
	case errors.Is(err, ErrMalformedUpstreamResponse):
		return "malformed_response"
	case errors.As(err, &unknown):
		return "unknown_status"
	default:
		return "other"
	}
}

package pas

import (
	"errors"
	"fmt"
	"strings"
)

// AuthError indicates the client-credentials grant failed, or the catalog
// kept rejecting the token after a forced refresh.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return "pas: authentication failed"
	}
	return "pas: authentication failed: " + e.Err.Error()
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// IsAuthError reports whether err is (or wraps) an AuthError.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// Cause is one entry in the causes list of a service error envelope.
type Cause struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIError is a service-level rejection: the catalog answered 200 with a
// success=false envelope. Deterministic, so retrying does not help.
type APIError struct {
	Message string  `json:"message"`
	Causes  []Cause `json:"causes,omitempty"`
}

func (e *APIError) Error() string {
	if len(e.Causes) == 0 {
		return "pas: api error: " + e.Message
	}
	details := make([]string, len(e.Causes))
	for i, c := range e.Causes {
		details[i] = c.Code + ": " + c.Message
	}
	return fmt.Sprintf("pas: api error: %s (%s)", e.Message, strings.Join(details, "; "))
}

// IsAPIError reports whether err is (or wraps) an APIError.
func IsAPIError(err error) bool {
	var ae *APIError
	return errors.As(err, &ae)
}

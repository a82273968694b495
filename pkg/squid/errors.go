package squid

import "fmt"

// APIError is returned when the routing API answers with a non-2xx status.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Message is the error text reported by the API, if it sent one.
	Message string

	// Body is the raw response body, truncated.
	Body string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("squid: %s (HTTP %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("squid: HTTP %d", e.StatusCode)
}

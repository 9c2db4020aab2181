package client

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrConnection marks failures where no HTTP response was received.
var ErrConnection = errors.New("connection error")

// ErrInvalidEnvelope is wrapped when a 2xx body is not a gateway envelope.
var ErrInvalidEnvelope = errors.New("invalid response envelope")

// APIError is the single error shape returned by every gateway call,
// whatever the cause: transport failure (Status 0), non-2xx HTTP status, or
// an envelope with result "error".
type APIError struct {
	Message    string
	Status     int
	StatusText string
	URL        string
	// ResponseData holds the decoded body: the envelope for application
	// errors, decoded JSON or raw text for HTTP errors, nil for transport errors.
	ResponseData any
	// RequestID matches the X-Request-Id header and the req_id log field.
	RequestID string
	Err       error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func connectionError(url string, cause error) *APIError {
	return &APIError{
		Message:    ErrConnection.Error(),
		Status:     0,
		StatusText: "Network Error",
		URL:        url,
		Err:        fmt.Errorf("%w: %w", ErrConnection, cause),
	}
}

func httpError(url string, code int, data any) *APIError {
	text := http.StatusText(code)
	return &APIError{
		Message:      fmt.Sprintf("HTTP %d: %s", code, text),
		Status:       code,
		StatusText:   text,
		URL:          url,
		ResponseData: data,
	}
}

// AsAPIError extracts an *APIError from err.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsStatus returns true if err (or any wrapped error) is an APIError with the given status code.
func IsStatus(err error, code int) bool {
	if apiErr, ok := AsAPIError(err); ok {
		return apiErr.Status == code
	}
	return false
}

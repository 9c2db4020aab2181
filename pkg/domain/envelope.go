package domain

import "encoding/json"

// Result values of an Envelope.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Envelope is the uniform response wrapper of every gateway operation.
type Envelope[T any] struct {
	Result       string  `json:"result"`
	Data         T       `json:"data,omitempty"`
	Message      string  `json:"message,omitempty"`
	Error        string  `json:"error,omitempty"`
	Status       FlexInt `json:"status"`
	Count        *int    `json:"count,omitempty"`
	LastActivity *int64  `json:"lastActivity,omitempty"`
}

// OK reports whether the envelope carries result "ok".
func (e *Envelope[T]) OK() bool {
	return e != nil && e.Result == ResultOK
}

// ErrorText returns message, falling back to error.
func (e *Envelope[T]) ErrorText() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

// RawEnvelope is an envelope whose data has not been decoded yet.
type RawEnvelope = Envelope[json.RawMessage]

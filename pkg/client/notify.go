package client

import "github.com/sirupsen/logrus"

// Notifier surfaces gateway failures to the host (alert, toast, log).
// It is skipped for calls made with ManualErrors.
type Notifier interface {
	NotifyError(method, operation string, err *APIError)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(method, operation string, err *APIError)

// NotifyError implements Notifier.
func (f NotifierFunc) NotifyError(method, operation string, err *APIError) {
	f(method, operation, err)
}

type logNotifier struct {
	log logrus.FieldLogger
}

func (n logNotifier) NotifyError(method, operation string, err *APIError) {
	n.log.WithFields(logrus.Fields{
		"req_id":      err.RequestID,
		"method":      method,
		"endpoint":    operation,
		"http_status": err.Status,
		"status_text": err.StatusText,
		"url":         err.URL,
		"response":    err.ResponseData,
	}).Error(err.Message)
}

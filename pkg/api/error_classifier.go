package api

import (
	"context"
	"errors"
	"net/http"
)

const (
	// StatusOK is the provider's success code, both top-level and per task
	StatusOK = 20000
	// StatusRateExceeded is returned when the account's request quota is hit
	StatusRateExceeded = 40202
)

// Severity tells the retrier whether to try again
type Severity int

const (
	SeverityTransient Severity = iota // retry with backoff
	SeverityFatal                     // stop the run
)

func (s Severity) String() string {
	switch s {
	case SeverityTransient:
		return "transient"
	case SeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// ErrorClassifier decides how a failed call should be handled
type ErrorClassifier interface {
	Classify(err error) Severity
	ShouldStopProcessing(err error) bool
}

// StatusErrorClassifier classifies by the typed errors the client produces
type StatusErrorClassifier struct{}

// NewErrorClassifier creates the default classifier
func NewErrorClassifier() ErrorClassifier {
	return &StatusErrorClassifier{}
}

// Classify maps an error to a severity. Unknown errors are treated as
// transport failures and retried; context cancellation is fatal.
func (c *StatusErrorClassifier) Classify(err error) Severity {
	if err == nil {
		return SeverityTransient
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return SeverityFatal
	}

	var fatal *FatalAPIError
	if errors.As(err, &fatal) {
		return SeverityFatal
	}

	return SeverityTransient
}

// ShouldStopProcessing determines if processing should be halted
func (c *StatusErrorClassifier) ShouldStopProcessing(err error) bool {
	return c.Classify(err) == SeverityFatal
}

// ClassifyHTTPStatus returns the severity for a non-200 HTTP status
func ClassifyHTTPStatus(status int) Severity {
	switch {
	case status == http.StatusTooManyRequests, status >= 500:
		return SeverityTransient
	case status >= 400:
		return SeverityFatal
	default:
		// Redirects and other surprises are retried
		return SeverityTransient
	}
}

// ClassifyStatusCode returns the severity for a non-20000 provider status code
func ClassifyStatusCode(code int) Severity {
	switch {
	case code == StatusRateExceeded, code >= 50000:
		return SeverityTransient
	case code >= 40000:
		return SeverityFatal
	default:
		return SeverityTransient
	}
}

// newStatusError builds the typed error matching severity
func newStatusError(sev Severity, endpoint string, httpStatus, statusCode int, message string, err error) error {
	if sev == SeverityFatal {
		return &FatalAPIError{
			Endpoint:   endpoint,
			HTTPStatus: httpStatus,
			StatusCode: statusCode,
			Message:    message,
			Err:        err,
		}
	}
	return &TransientAPIError{
		Endpoint:   endpoint,
		HTTPStatus: httpStatus,
		StatusCode: statusCode,
		Message:    message,
		Err:        err,
	}
}

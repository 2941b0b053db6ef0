package api

import (
	"fmt"
)

// TransientAPIError is a failure worth retrying: network trouble, 5xx/429,
// a malformed body or a provider-side status code that signals overload
type TransientAPIError struct {
	Endpoint   string
	HTTPStatus int
	StatusCode int
	Message    string
	Err        error
}

func (e *TransientAPIError) Error() string {
	return formatAPIError("transient", e.Endpoint, e.HTTPStatus, e.StatusCode, e.Message, e.Err)
}

func (e *TransientAPIError) Unwrap() error {
	return e.Err
}

// FatalAPIError is a failure that no retry can fix (bad credentials, no
// balance, malformed request). It aborts the whole run.
type FatalAPIError struct {
	Endpoint   string
	HTTPStatus int
	StatusCode int
	Message    string
	Err        error
}

func (e *FatalAPIError) Error() string {
	return formatAPIError("fatal", e.Endpoint, e.HTTPStatus, e.StatusCode, e.Message, e.Err)
}

func (e *FatalAPIError) Unwrap() error {
	return e.Err
}

func formatAPIError(kind, endpoint string, httpStatus, statusCode int, message string, err error) string {
	msg := fmt.Sprintf("%s API error from %s", kind, endpoint)
	if httpStatus != 0 {
		msg += fmt.Sprintf(": HTTP %d", httpStatus)
	}
	if statusCode != 0 {
		msg += fmt.Sprintf(": status_code %d", statusCode)
	}
	if message != "" {
		msg += ": " + message
	}
	if err != nil {
		msg += ": " + err.Error()
	}
	return msg
}

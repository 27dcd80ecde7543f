package loki

import "fmt"

// FetchError is returned when the log backend cannot be queried. Transport
// failures and non-2xx responses share this type; StatusCode is zero for the former.
type FetchError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("loki error (%d): %s", e.StatusCode, e.Message)
	}
	return "loki request failed: " + e.Message
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func transportError(err error) *FetchError {
	return &FetchError{Message: err.Error(), Err: err}
}

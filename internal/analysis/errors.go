package analysis

import (
	"errors"
	"fmt"

	"github.com/Amazomic/loki-analyzer/internal/models"
)

// ErrUnknownProvider is returned when no adapter is registered for a provider.
var ErrUnknownProvider = errors.New("unknown provider")

// Kind classifies an AnalysisError.
type Kind string

const (
	// KindConfig means the call could not be dispatched (unknown provider, missing key).
	KindConfig Kind = "config"
	// KindRequest means the provider call itself failed.
	KindRequest Kind = "request"
	// KindEmpty means the provider answered with no content.
	KindEmpty Kind = "empty"
	// KindMalformed means the content was not valid JSON of the expected types.
	KindMalformed Kind = "malformed"
	// KindShape means required fields were missing or out of range.
	KindShape Kind = "shape"
)

// AnalysisError is returned when an analysis cannot produce a valid result.
type AnalysisError struct {
	Provider models.Provider
	Kind     Kind
	Message  string
	Err      error
}

func (e *AnalysisError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Provider != "" {
		return fmt.Sprintf("analysis failed (%s, %s): %s", e.Provider, e.Kind, msg)
	}
	return fmt.Sprintf("analysis failed (%s): %s", e.Kind, msg)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

package errors

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func genErrorCode() gopter.Gen {
	return gen.OneConstOf(
		CodeValidationError,
		CodeNotFound,
		CodeUnauthorized,
		CodeInternalError,
		CodeFetchFailed,
		CodeAnalysisFailed,
	)
}

// Every error response carries code, message and request_id with the status
// implied by its code.
func TestPropertyStructuredErrorResponseFormat(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(1234)

	properties := gopter.NewProperties(parameters)

	genNonEmptyString := gen.AlphaString().SuchThat(func(s string) bool {
		return len(s) > 0
	})
	genRequestID := gen.RegexMatch("[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}")

	properties.Property("error response contains required fields", prop.ForAll(
		func(code, message, requestID string) bool {
			rr := httptest.NewRecorder()
			WriteErrorWithRequestID(rr, New(code, message), requestID)

			var response map[string]any
			if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
				t.Logf("Failed to decode response: %v", err)
				return false
			}

			if response["code"] != code || response["message"] != message || response["request_id"] != requestID {
				t.Logf("unexpected body: %v", response)
				return false
			}
			if rr.Header().Get("Content-Type") != "application/json" {
				t.Log("Content-Type is not application/json")
				return false
			}
			return rr.Code == New(code, message).HTTPStatusCode()
		},
		genErrorCode(),
		genNonEmptyString,
		genRequestID,
	))

	properties.TestingRun(t)
}

func TestHTTPStatusCode(t *testing.T) {
	tests := map[string]int{
		CodeValidationError: http.StatusBadRequest,
		CodeNotFound:        http.StatusNotFound,
		CodeUnauthorized:    http.StatusUnauthorized,
		CodeFetchFailed:     http.StatusBadGateway,
		CodeAnalysisFailed:  http.StatusBadGateway,
		CodeInternalError:   http.StatusInternalServerError,
		"SOMETHING_ELSE":    http.StatusInternalServerError,
	}
	for code, want := range tests {
		if got := New(code, "m").HTTPStatusCode(); got != want {
			t.Errorf("%s: status = %d, want %d", code, got, want)
		}
	}
}

func TestValidationErrorsToAPIError(t *testing.T) {
	var errs ValidationErrors
	if apiErr := errs.ToAPIError(); apiErr.Message != "validation failed" {
		t.Errorf("message = %q", apiErr.Message)
	}

	errs.Add("url", "url is required")
	errs.Add("limit", "limit must be positive")
	apiErr := errs.ToAPIError()

	rr := httptest.NewRecorder()
	WriteError(rr, apiErr)

	var response struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details struct {
			Fields []ValidationError `json:"fields"`
		} `json:"details"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rr.Code != http.StatusBadRequest || response.Code != CodeValidationError {
		t.Errorf("unexpected status/code: %d %s", rr.Code, response.Code)
	}
	if response.Message != "url is required (and 1 more errors)" {
		t.Errorf("message = %q", response.Message)
	}
	if len(response.Details.Fields) != 2 || response.Details.Fields[1].Field != "limit" {
		t.Errorf("fields = %+v", response.Details.Fields)
	}
}

func TestErrorLogEntry(t *testing.T) {
	entry := NewErrorLogEntry("req-1", CodeInternalError, "panic recovered")
	if entry.StackTrace == "" {
		t.Error("stack trace should be captured")
	}
	attrs := entry.ToSlogAttrs()
	if len(attrs) != 8 || attrs[1] != "req-1" || attrs[3] != CodeInternalError {
		t.Errorf("unexpected attrs: %v", attrs)
	}
}

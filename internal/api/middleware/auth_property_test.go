package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	apierrors "github.com/Amazomic/loki-analyzer/internal/api/errors"
	"github.com/Amazomic/loki-analyzer/internal/auth"
	"github.com/Amazomic/loki-analyzer/pkg/logger"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newAuthService(expiry time.Duration) *auth.Service {
	return auth.NewService(&auth.Config{JWTSecret: []byte(testSecret), TokenExpiry: expiry}, nil)
}

// subjectEcho writes the authenticated subject back to the client.
var subjectEcho = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(logger.SubjectFromContext(r.Context())))
})

func TestPropertyValidTokenPassesSubject(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	parameters.Rng.Seed(1234)
	properties := gopter.NewProperties(parameters)

	svc := newAuthService(time.Hour)
	handler := NewAuthMiddleware(svc, slog.Default()).Authenticate(subjectEcho)

	properties.Property("a valid token reaches the handler with its subject", prop.ForAll(
		func(subject string) bool {
			token, err := svc.GenerateToken(subject)
			if err != nil {
				return false
			}
			req := httptest.NewRequest(http.MethodGet, "/v1/providers", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			return rr.Code == http.StatusOK && rr.Body.String() == subject
		},
		gen.Identifier(),
	))

	properties.TestingRun(t)
}

func TestAuthenticateRejects(t *testing.T) {
	expired, err := newAuthService(-time.Hour).GenerateToken("ops")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	tests := []struct {
		name    string
		header  string
		wantMsg string
	}{
		{"missing header", "", "Missing authentication"},
		{"basic scheme", "Basic dXNlcjpwYXNz", "Missing authentication"},
		{"garbage token", "Bearer not-a-jwt", "Invalid token"},
		{"expired token", "Bearer " + expired, "Token has expired"},
	}

	handler := NewAuthMiddleware(newAuthService(time.Hour), nil).Authenticate(subjectEcho)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/reports", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rr.Code)
			}
			var body apierrors.APIError
			if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Code != apierrors.CodeUnauthorized || body.Message != tt.wantMsg {
				t.Errorf("unexpected body: %+v", body)
			}
		})
	}
}

func TestRecoveryWritesInternalError(t *testing.T) {
	var logs bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&logs, nil))

	handler := Recovery(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chimiddleware.RequestIDKey, "req-42"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rr.Code)
	}

	var record map[string]any
	if err := json.Unmarshal(logs.Bytes(), &record); err != nil {
		t.Fatalf("decode log: %v", err)
	}
	if record["msg"] != "panic recovered" || record["error"] != "boom" {
		t.Errorf("record = %v", record)
	}
	if record["error_code"] != apierrors.CodeInternalError || record["correlation_id"] != "req-42" {
		t.Errorf("error_code = %v, correlation_id = %v", record["error_code"], record["correlation_id"])
	}
	if stack, _ := record["stack_trace"].(string); !strings.Contains(stack, "goroutine") {
		t.Errorf("stack_trace = %q, want the captured stack", stack)
	}
}

func TestRequestLoggerRecordsStatus(t *testing.T) {
	var logs bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&logs, nil))

	handler := RequestLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/analyze", nil))

	var record map[string]any
	if err := json.Unmarshal(logs.Bytes(), &record); err != nil {
		t.Fatalf("decode log: %v", err)
	}
	if record["path"] != "/v1/analyze" || record["status"] != float64(http.StatusTeapot) {
		t.Errorf("unexpected log record: %v", record)
	}
}

package respond

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/fxamacker/cbor/v2"
	"github.com/go-chi/chi/v5"
)

type testProblem struct {
	Schema      string              `json:"$schema,omitempty"`
	Title       string              `json:"title,omitempty"`
	Status      int                 `json:"status,omitempty"`
	Detail      string              `json:"detail,omitempty"`
	Kind        string              `json:"kind,omitempty"`
	CurrentETag string              `json:"currentEtag,omitempty"`
	Errors      []*huma.ErrorDetail `json:"errors,omitempty"`
}

func decodeProblem(t *testing.T, resp *httptest.ResponseRecorder) testProblem {
	t.Helper()
	var p testProblem
	if err := json.Unmarshal(resp.Body.Bytes(), &p); err != nil {
		t.Fatalf("failed to unmarshal problem %q: %v", resp.Body.String(), err)
	}
	return p
}

func TestNotFoundHandlerReturnsProblem(t *testing.T) {
	router := chi.NewRouter()
	router.NotFound(NotFoundHandler())

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Fatalf("expected application/problem+json, got %q", ct)
	}
	if link := resp.Header().Get("Link"); !strings.Contains(link, "/schemas/Problem.json") || !strings.Contains(link, "describedBy") {
		t.Fatalf("expected describedBy Link header, got %q", link)
	}

	p := decodeProblem(t, resp)
	if p.Status != http.StatusNotFound || p.Title != "Not Found" || p.Detail != "resource not found" {
		t.Fatalf("unexpected problem: %+v", p)
	}
	if p.Kind != KindNotFound {
		t.Fatalf("expected kind %q, got %q", KindNotFound, p.Kind)
	}
	if p.Schema != "http://example.com/schemas/Problem.json" {
		t.Fatalf("unexpected $schema %q", p.Schema)
	}
}

func TestMethodNotAllowedHandlerListsAllowedMethods(t *testing.T) {
	router := chi.NewRouter()
	router.MethodNotAllowed(MethodNotAllowedHandler())
	router.Get("/device-profiles", func(w http.ResponseWriter, r *http.Request) {})
	router.Post("/device-profiles", func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest(http.MethodPut, "/device-profiles", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.Code)
	}
	allow := resp.Header().Get("Allow")
	if !strings.Contains(allow, http.MethodGet) || !strings.Contains(allow, http.MethodPost) {
		t.Fatalf("expected Allow to list GET and POST, got %q", allow)
	}
	p := decodeProblem(t, resp)
	if !strings.Contains(p.Detail, "PUT") || p.Kind != KindMethodNotAllowed {
		t.Fatalf("unexpected problem: %+v", p)
	}
}

func TestWriteProblemNegotiatesCBOR(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Accept", "application/cbor")
	resp := httptest.NewRecorder()

	WriteProblem(resp, req, NameConflict("name already in use"))

	if ct := resp.Header().Get("Content-Type"); ct != "application/problem+cbor" {
		t.Fatalf("expected application/problem+cbor, got %q", ct)
	}
	var p testProblem
	if err := cbor.Unmarshal(resp.Body.Bytes(), &p); err != nil {
		t.Fatalf("failed to decode CBOR: %v", err)
	}
	if p.Status != http.StatusConflict || p.Kind != KindNameConflict {
		t.Fatalf("unexpected problem: %+v", p)
	}
}

func TestPrefersCBOR(t *testing.T) {
	tests := []struct {
		accept string
		want   bool
	}{
		{"", false},
		{"*/*", false},
		{"application/json", false},
		{"application/cbor", true},
		{"application/cbor, application/json", false},
		{"application/json;q=0.5, application/cbor", true},
		{"application/cbor;q=0", false},
		{"application/cbor;q=bogus", false},
		{"text/html, application/problem+cbor", true},
		{"application/*;q=0.9, application/cbor;q=0.8", false},
	}
	for _, tt := range tests {
		if got := prefersCBOR(tt.accept); got != tt.want {
			t.Errorf("prefersCBOR(%q) = %v, want %v", tt.accept, got, tt.want)
		}
	}
}

func TestSchemaURLHonoursForwardedProto(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Host = "api.example.com"
	req.Header.Set("X-Forwarded-Proto", "https")
	if got := schemaURL(req); got != "https://api.example.com/schemas/Problem.json" {
		t.Fatalf("unexpected schema url %q", got)
	}
}

func TestRecovererReturnsInternalProblem(t *testing.T) {
	router := chi.NewRouter()
	router.Use(Recoverer())
	router.Get("/panic", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/panic", nil))

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
	p := decodeProblem(t, resp)
	if p.Detail != "internal server error" || p.Kind != KindInternal {
		t.Fatalf("unexpected problem: %+v", p)
	}
	if strings.Contains(resp.Body.String(), "boom") {
		t.Fatal("panic value must not leak into the response")
	}
}

func TestRecovererRePanicsOnErrAbortHandler(t *testing.T) {
	router := chi.NewRouter()
	router.Use(Recoverer())
	router.Get("/abort", func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	})

	defer func() {
		rec := recover()
		err, ok := rec.(error)
		if !ok || !errors.Is(err, http.ErrAbortHandler) {
			t.Fatalf("expected http.ErrAbortHandler to be re-panicked, got %v", rec)
		}
	}()

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/abort", nil))
	t.Fatal("expected panic to propagate")
}

func TestRecovererSkipsWriteWhenHeaderAlreadyWritten(t *testing.T) {
	router := chi.NewRouter()
	router.Use(Recoverer())
	router.Get("/partial", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("partial"))
		panic("late panic")
	})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/partial", nil))

	if resp.Code != http.StatusOK || resp.Body.String() != "partial" {
		t.Fatalf("expected original response preserved, got %d %q", resp.Code, resp.Body.String())
	}
}

func TestResponseWriterUnwrap(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec}
	if rw.Unwrap() != rec {
		t.Fatal("expected Unwrap to return the underlying writer")
	}
}

func newHumaAPI(t *testing.T) (chi.Router, huma.API) {
	t.Helper()
	Install()
	router := chi.NewRouter()
	return router, humachi.New(router, huma.DefaultConfig("RespondTest", "test"))
}

func TestInstallMapsHumaErrorsToProblems(t *testing.T) {
	router, api := newHumaAPI(t)

	huma.Get(api, "/missing", func(ctx context.Context, _ *struct{}) (*struct{}, error) {
		return nil, huma.Error404NotFound("device profile not found")
	})
	huma.Get(api, "/fail", func(ctx context.Context, _ *struct{}) (*struct{}, error) {
		return nil, errors.New("database exploded")
	})
	huma.Get(api, "/stale", func(ctx context.Context, _ *struct{}) (*struct{}, error) {
		return nil, PreconditionFailed(`"abc"`)
	})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/missing", nil))
	if p := decodeProblem(t, resp); p.Kind != KindNotFound || p.Status != http.StatusNotFound {
		t.Fatalf("unexpected problem: %+v", p)
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/fail", nil))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
	if strings.Contains(resp.Body.String(), "exploded") {
		t.Fatalf("internal error leaked: %s", resp.Body.String())
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/stale", nil))
	if resp.Code != http.StatusPreconditionFailed {
		t.Fatalf("expected 412, got %d", resp.Code)
	}
	if got := resp.Header().Get("ETag"); got != `"abc"` {
		t.Fatalf("expected ETag header, got %q", got)
	}
	if p := decodeProblem(t, resp); p.CurrentETag != `"abc"` || p.Kind != KindPreconditionFailed {
		t.Fatalf("unexpected problem: %+v", p)
	}
}

func TestValidationFailedEnumeratesViolations(t *testing.T) {
	p := ValidationFailed([]Violation{
		{Location: "body.windowWidth", Message: "must be between 100 and 10000", Value: 50},
		{Location: "body.country", Message: "unknown country code", Value: "zz"},
	})
	if p.Status != http.StatusUnprocessableEntity || p.Kind != KindValidation {
		t.Fatalf("unexpected problem: %+v", p)
	}
	if len(p.Errors) != 2 || p.Errors[1].Location != "body.country" {
		t.Fatalf("expected both violations, got %+v", p.Errors)
	}
}

func TestKindForStatus(t *testing.T) {
	tests := map[int]string{
		http.StatusBadRequest:            KindValidation,
		http.StatusUnprocessableEntity:   KindValidation,
		http.StatusUnauthorized:          KindUnauthenticated,
		http.StatusPreconditionRequired:  KindPreconditionRequired,
		http.StatusRequestEntityTooLarge: KindPayloadTooLarge,
		http.StatusTooManyRequests:       KindRateLimited,
		http.StatusBadGateway:            KindInternal,
		http.StatusForbidden:             "forbidden",
	}
	for status, want := range tests {
		if got := KindForStatus(status); got != want {
			t.Errorf("KindForStatus(%d) = %q, want %q", status, got, want)
		}
	}
}

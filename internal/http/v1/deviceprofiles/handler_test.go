package deviceprofiles

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/janisto/device-profile-api/internal/platform/auth"
	applog "github.com/janisto/device-profile-api/internal/platform/logging"
	appmiddleware "github.com/janisto/device-profile-api/internal/platform/middleware"
	"github.com/janisto/device-profile-api/internal/platform/pagination"
	"github.com/janisto/device-profile-api/internal/platform/respond"
	profilesvc "github.com/janisto/device-profile-api/internal/service/deviceprofile"
)

const validBody = `{"name":"Chrome Desktop","deviceType":"desktop","windowWidth":1920,"windowHeight":1080,"userAgent":"Mozilla/5.0","country":"US"}`

type problem struct {
	Status      int    `json:"status"`
	Kind        string `json:"kind"`
	Detail      string `json:"detail"`
	CurrentETag string `json:"currentEtag"`
	Errors      []struct {
		Location string `json:"location"`
		Message  string `json:"message"`
		Value    any    `json:"value"`
	} `json:"errors"`
}

func newTestRouter(svc profilesvc.Service) chi.Router {
	respond.Install()
	router := chi.NewRouter()
	router.Use(
		appmiddleware.RequestID(),
		chimiddleware.RealIP,
		applog.RequestLogger(),
		respond.Recoverer(),
	)
	api := humachi.New(router, huma.DefaultConfig("DeviceProfilesTest", "test"))
	api.UseMiddleware(auth.NewAuthMiddleware(api, auth.NewMockVerifier("alice", "bob")))
	Register(api, svc, pagination.Policy{Default: 2, Max: 3}, "")
	return router
}

// tickingClock advances one second per call so list order is deterministic.
func tickingClock() func() time.Time {
	var mu sync.Mutex
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

func newManagerRouter() chi.Router {
	return newTestRouter(profilesvc.NewManager(profilesvc.NewMockStore(), nil, profilesvc.WithClock(tickingClock())))
}

func do(t *testing.T, router http.Handler, method, path, owner, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if owner != "" {
		req.Header.Set("Authorization", "Bearer key-"+owner)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func decode[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(resp.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode %q: %v", resp.Body.String(), err)
	}
	return v
}

func expectProblem(t *testing.T, resp *httptest.ResponseRecorder, status int, kind string) problem {
	t.Helper()
	if resp.Code != status {
		t.Fatalf("expected %d, got %d: %s", status, resp.Code, resp.Body.String())
	}
	if ct := resp.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/problem+json") {
		t.Fatalf("expected problem content type, got %q", ct)
	}
	p := decode[problem](t, resp)
	if p.Kind != kind {
		t.Fatalf("expected kind %q, got %q", kind, p.Kind)
	}
	return p
}

func createProfile(t *testing.T, router http.Handler, owner, body string) DeviceProfile {
	t.Helper()
	resp := do(t, router, http.MethodPost, "/device-profiles", owner, body)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	return decode[DeviceProfile](t, resp)
}

func TestCreateDeviceProfile(t *testing.T) {
	router := newManagerRouter()
	resp := do(t, router, http.MethodPost, "/device-profiles", "alice", validBody)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	p := decode[DeviceProfile](t, resp)
	if p.Version != 1 || p.Country != "us" || p.Name != "Chrome Desktop" {
		t.Fatalf("unexpected profile %+v", p)
	}
	if got := resp.Header().Get("Location"); got != "/device-profiles/"+p.ID {
		t.Fatalf("unexpected Location %q", got)
	}
	if got := resp.Header().Get("ETag"); got != `"`+profilesvc.Tag(p.ID, 1)+`"` {
		t.Fatalf("unexpected ETag %q", got)
	}
	if !strings.Contains(resp.Body.String(), `"windowWidth":1920`) {
		t.Fatalf("expected camelCase fields, got %s", resp.Body.String())
	}
}

func TestCreateRequiresCredential(t *testing.T) {
	router := newManagerRouter()

	resp := do(t, router, http.MethodPost, "/device-profiles", "", validBody)
	expectProblem(t, resp, http.StatusUnauthorized, respond.KindUnauthenticated)
	if got := resp.Header().Get("WWW-Authenticate"); got != "Bearer" {
		t.Fatalf("expected WWW-Authenticate Bearer, got %q", got)
	}

	resp = do(t, router, http.MethodGet, "/device-profiles", "mallory", "")
	expectProblem(t, resp, http.StatusUnauthorized, respond.KindUnauthenticated)
}

func TestCreateReportsAllViolations(t *testing.T) {
	router := newManagerRouter()
	body := `{"name":"","deviceType":"tablet","windowWidth":50,"windowHeight":1080,"userAgent":"UA",` +
		`"customHeaders":[{"name":"X-Custom","value":"1"},{"name":"host","value":"example.com"}]}`

	p := expectProblem(t, do(t, router, http.MethodPost, "/device-profiles", "alice", body),
		http.StatusUnprocessableEntity, respond.KindValidation)

	locations := map[string]bool{}
	for _, e := range p.Errors {
		locations[e.Location] = true
	}
	for _, want := range []string{"body.name", "body.deviceType", "body.windowWidth", "body.customHeaders[1].name"} {
		if !locations[want] {
			t.Fatalf("expected violation at %s, got %+v", want, p.Errors)
		}
	}
	if locations["body.customHeaders[0].name"] {
		t.Fatal("X-Custom must be accepted")
	}
}

func TestCreateKeepsDuplicateHeaders(t *testing.T) {
	router := newManagerRouter()
	body := `{"name":"Dupes","deviceType":"desktop","windowWidth":1920,"windowHeight":1080,"userAgent":"UA",` +
		`"customHeaders":[{"name":"X-Custom","value":"a"},{"name":"X-Custom","value":"b"}]}`

	p := createProfile(t, router, "alice", body)
	if len(p.CustomHeaders) != 2 || p.CustomHeaders[0].Value != "a" || p.CustomHeaders[1].Value != "b" {
		t.Fatalf("expected both headers in order, got %+v", p.CustomHeaders)
	}
}

func TestCreateNameConflictIgnoresCase(t *testing.T) {
	router := newManagerRouter()
	createProfile(t, router, "alice", validBody)

	lower := strings.Replace(validBody, "Chrome Desktop", "chrome desktop", 1)
	expectProblem(t, do(t, router, http.MethodPost, "/device-profiles", "alice", lower),
		http.StatusConflict, respond.KindNameConflict)

	createProfile(t, router, "bob", validBody)
}

func TestGetDeviceProfile(t *testing.T) {
	router := newManagerRouter()
	created := createProfile(t, router, "alice", validBody)
	path := "/device-profiles/" + created.ID

	resp := do(t, router, http.MethodGet, path, "alice", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	etag := resp.Header().Get("ETag")
	if etag != `"`+profilesvc.Tag(created.ID, 1)+`"` {
		t.Fatalf("unexpected ETag %q", etag)
	}

	again := do(t, router, http.MethodGet, path, "alice", "")
	if again.Header().Get("ETag") != etag {
		t.Fatal("expected identical ETag on re-read")
	}

	notModified := do(t, router, http.MethodGet, path, "alice", "", "If-None-Match", etag)
	if notModified.Code != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", notModified.Code)
	}
	if notModified.Body.Len() != 0 {
		t.Fatalf("expected empty 304 body, got %q", notModified.Body.String())
	}

	wildcard := do(t, router, http.MethodGet, path, "alice", "", "If-None-Match", "*")
	if wildcard.Code != http.StatusNotModified {
		t.Fatalf("expected 304 for wildcard If-None-Match, got %d", wildcard.Code)
	}
	stale := do(t, router, http.MethodGet, path, "alice", "", "If-None-Match", `"stale"`)
	if stale.Code != http.StatusOK {
		t.Fatalf("expected 200 for a stale If-None-Match, got %d", stale.Code)
	}
}

func TestGetHidesForeignAndMalformed(t *testing.T) {
	router := newManagerRouter()
	created := createProfile(t, router, "alice", validBody)

	expectProblem(t, do(t, router, http.MethodGet, "/device-profiles/"+created.ID, "bob", ""),
		http.StatusNotFound, respond.KindNotFound)
	expectProblem(t, do(t, router, http.MethodGet, "/device-profiles/not-a-uuid", "alice", ""),
		http.StatusNotFound, respond.KindNotFound)
}

func TestUpdateProtocol(t *testing.T) {
	router := newManagerRouter()
	created := createProfile(t, router, "alice", validBody)
	path := "/device-profiles/" + created.ID
	t0 := `"` + profilesvc.Tag(created.ID, 1) + `"`

	expectProblem(t, do(t, router, http.MethodPatch, path, "alice", `{"windowWidth":1280}`),
		http.StatusPreconditionRequired, respond.KindPreconditionRequired)

	resp := do(t, router, http.MethodPatch, path, "alice", `{"windowWidth":1280}`, "If-Match", t0)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	updated := decode[DeviceProfile](t, resp)
	t1 := resp.Header().Get("ETag")
	if updated.Version != 2 || updated.WindowWidth != 1280 || t1 == t0 || t1 == "" {
		t.Fatalf("unexpected update result %+v etag %q", updated, t1)
	}

	stale := do(t, router, http.MethodPatch, path, "alice", `{"windowWidth":800}`, "If-Match", t0)
	p := expectProblem(t, stale, http.StatusPreconditionFailed, respond.KindPreconditionFailed)
	if p.CurrentETag != t1 || stale.Header().Get("ETag") != t1 {
		t.Fatalf("expected current tag %q, got body %q header %q", t1, p.CurrentETag, stale.Header().Get("ETag"))
	}

	expectProblem(t, do(t, router, http.MethodPatch, path, "bob", `{"windowWidth":800}`, "If-Match", t1),
		http.StatusNotFound, respond.KindNotFound)
	expectProblem(t, do(t, router, http.MethodPatch, path, "alice", `{}`, "If-Match", t1),
		http.StatusUnprocessableEntity, respond.KindValidation)
	expectProblem(t, do(t, router, http.MethodPatch, path, "alice", `{"windowHeight":5}`, "If-Match", t1),
		http.StatusUnprocessableEntity, respond.KindValidation)
}

func TestUpdateRenameConflict(t *testing.T) {
	router := newManagerRouter()
	createProfile(t, router, "alice", validBody)
	other := createProfile(t, router, "alice", strings.Replace(validBody, "Chrome Desktop", "Firefox", 1))

	resp := do(t, router, http.MethodPatch, "/device-profiles/"+other.ID, "alice", `{"name":"CHROME DESKTOP"}`,
		"If-Match", `"`+profilesvc.Tag(other.ID, 1)+`"`)
	expectProblem(t, resp, http.StatusConflict, respond.KindNameConflict)
}

func TestDeleteDeviceProfile(t *testing.T) {
	router := newManagerRouter()
	created := createProfile(t, router, "alice", validBody)
	path := "/device-profiles/" + created.ID

	expectProblem(t, do(t, router, http.MethodDelete, path, "bob", ""), http.StatusNotFound, respond.KindNotFound)

	resp := do(t, router, http.MethodDelete, path, "alice", "")
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
	expectProblem(t, do(t, router, http.MethodGet, path, "alice", ""), http.StatusNotFound, respond.KindNotFound)
	expectProblem(t, do(t, router, http.MethodDelete, path, "alice", ""), http.StatusNotFound, respond.KindNotFound)

	createProfile(t, router, "alice", validBody)
}

func TestListDeviceProfiles(t *testing.T) {
	router := newManagerRouter()
	for _, name := range []string{"One", "Two", "Three", "Four"} {
		createProfile(t, router, "alice", strings.Replace(validBody, "Chrome Desktop", name, 1))
	}

	resp := do(t, router, http.MethodGet, "/device-profiles", "alice", "")
	list := decode[ListData](t, resp)
	if list.Limit != 2 || list.Total != 4 || list.Count != 2 || list.Items[0].Name != "Four" {
		t.Fatalf("unexpected default page %+v", list)
	}
	if got := resp.Header().Get("Link"); got != `</device-profiles?limit=2&offset=2>; rel="next"` {
		t.Fatalf("unexpected Link %q", got)
	}

	list = decode[ListData](t, do(t, router, http.MethodGet, "/device-profiles?limit=0&offset=-4", "alice", ""))
	if list.Limit != 1 || list.Offset != 0 || list.Count != 1 {
		t.Fatalf("expected clamped page, got %+v", list)
	}

	list = decode[ListData](t, do(t, router, http.MethodGet, "/device-profiles?limit=1000", "alice", ""))
	if list.Limit != 3 || list.Count != 3 {
		t.Fatalf("expected max page size, got %+v", list)
	}

	list = decode[ListData](t, do(t, router, http.MethodGet, "/device-profiles?limit=abc&offset=99", "alice", ""))
	if list.Limit != 2 || list.Total != 4 || list.Items == nil || len(list.Items) != 0 {
		t.Fatalf("expected empty page past the end, got %+v", list)
	}

	empty := do(t, router, http.MethodGet, "/device-profiles", "bob", "")
	if empty.Code != http.StatusOK || !strings.Contains(empty.Body.String(), `"items":[]`) {
		t.Fatalf("expected empty items array, got %d %s", empty.Code, empty.Body.String())
	}
}

type failingService struct {
	profilesvc.Service
}

func (failingService) Get(context.Context, string, string) (*profilesvc.Profile, error) {
	return nil, errors.New("pq: connection refused to 10.0.0.5")
}

func TestUnexpectedErrorsAreOpaque(t *testing.T) {
	router := newTestRouter(failingService{})
	resp := do(t, router, http.MethodGet, "/device-profiles/3f0b7a8e-1111-4222-8333-944455556666", "alice", "")

	p := expectProblem(t, resp, http.StatusInternalServerError, respond.KindInternal)
	if strings.Contains(resp.Body.String(), "10.0.0.5") || p.Detail != "internal error" {
		t.Fatalf("expected opaque error, got %s", resp.Body.String())
	}
}

func TestAPIPath(t *testing.T) {
	tests := map[string]string{
		"name":                   "name",
		"window_width":           "windowWidth",
		"custom_headers[2].name": "customHeaders[2].name",
		"extras.nested":          "extras.nested",
	}
	for in, want := range tests {
		if got := apiPath(in); got != want {
			t.Errorf("apiPath(%q) = %q, want %q", in, got, want)
		}
	}
}

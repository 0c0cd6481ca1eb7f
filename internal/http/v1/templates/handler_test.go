package templates

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/janisto/device-profile-api/internal/http/v1/deviceprofiles"
	"github.com/janisto/device-profile-api/internal/platform/auth"
	applog "github.com/janisto/device-profile-api/internal/platform/logging"
	appmiddleware "github.com/janisto/device-profile-api/internal/platform/middleware"
	"github.com/janisto/device-profile-api/internal/platform/pagination"
	"github.com/janisto/device-profile-api/internal/platform/respond"
	profilesvc "github.com/janisto/device-profile-api/internal/service/deviceprofile"
	templatesvc "github.com/janisto/device-profile-api/internal/service/template"
)

func newTestRouter(t *testing.T) (chi.Router, *templatesvc.MockStore) {
	t.Helper()
	respond.Install()

	store := templatesvc.NewMockStore()
	if _, err := templatesvc.Seed(context.Background(), store); err != nil {
		t.Fatalf("seed: %v", err)
	}
	profiles := profilesvc.NewManager(profilesvc.NewMockStore(), store)

	router := chi.NewRouter()
	router.Use(
		appmiddleware.RequestID(),
		chimiddleware.RealIP,
		applog.RequestLogger(),
		respond.Recoverer(),
	)
	cfg := huma.DefaultConfig("TemplatesTest", "test")
	cfg.Servers = []*huma.Server{{URL: "/api/v1"}}
	api := humachi.New(router, cfg)
	api.UseMiddleware(auth.NewAuthMiddleware(api, auth.NewMockVerifier("alice")))
	policy := pagination.Policy{Default: 2, Max: 10}
	deviceprofiles.Register(api, profiles, policy, "/api/v1")
	Register(api, store, profiles, policy, "/api/v1")
	return router, store
}

func do(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Authorization", "Bearer key-alice")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func decodeInto(t *testing.T, resp *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(resp.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to decode %q: %v", resp.Body.String(), err)
	}
}

func safariID() string {
	for _, tpl := range templatesvc.BuiltIn() {
		if tpl.Name == "Safari Mobile (iOS 17)" {
			return tpl.ID
		}
	}
	panic("safari template missing")
}

func TestListTemplates(t *testing.T) {
	router, _ := newTestRouter(t)
	resp := do(t, router, http.MethodGet, "/templates", "")

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var list TemplateList
	decodeInto(t, resp, &list)
	if list.Total != 5 || list.Count != 2 || list.Items[0].Name != "Chrome Desktop (Latest)" {
		t.Fatalf("unexpected page %+v", list)
	}
	if _, ok := list.Items[0].Data["windowWidth"]; !ok {
		t.Fatalf("expected camelCase data keys, got %v", list.Items[0].Data)
	}
	if got := resp.Header().Get("Link"); got != `</api/v1/templates?limit=2&offset=2>; rel="next"` {
		t.Fatalf("unexpected Link %q", got)
	}
}

func TestGetTemplate(t *testing.T) {
	router, _ := newTestRouter(t)

	resp := do(t, router, http.MethodGet, "/templates/"+safariID(), "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var tpl Template
	decodeInto(t, resp, &tpl)
	if tpl.Data["deviceType"] != "mobile" {
		t.Fatalf("unexpected data %v", tpl.Data)
	}

	missing := do(t, router, http.MethodGet, "/templates/3f0b7a8e-1111-4222-8333-944455556666", "")
	if missing.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", missing.Code)
	}
}

func TestCreateProfileFromTemplate(t *testing.T) {
	router, store := newTestRouter(t)
	id := safariID()

	resp := do(t, router, http.MethodPost, "/templates/"+id+"/create-profile",
		`{"name":"My iPhone","country":"FI","extras":{"device":"iphone-15"}}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var p deviceprofiles.DeviceProfile
	decodeInto(t, resp, &p)
	if p.Name != "My iPhone" || p.DeviceType != "mobile" || p.Country != "fi" || p.Version != 1 {
		t.Fatalf("unexpected profile %+v", p)
	}
	if p.Extras["device"] != "iphone-15" || p.Extras["browser"] != "safari" {
		t.Fatalf("unexpected extras %v", p.Extras)
	}
	if got := resp.Header().Get("Location"); got != "/api/v1/device-profiles/"+p.ID {
		t.Fatalf("unexpected Location %q", got)
	}
	if resp.Header().Get("ETag") == "" {
		t.Fatal("expected ETag")
	}

	store.MutateData(id, func(data map[string]any) {
		data["user_agent"] = "changed later"
	})
	fetched := do(t, router, http.MethodGet, "/device-profiles/"+p.ID, "")
	var again deviceprofiles.DeviceProfile
	decodeInto(t, fetched, &again)
	if again.UserAgent != p.UserAgent {
		t.Fatalf("template change leaked into profile: %q", again.UserAgent)
	}
}

func TestCreateProfileFromTemplateErrors(t *testing.T) {
	router, _ := newTestRouter(t)

	missing := do(t, router, http.MethodPost, "/templates/3f0b7a8e-1111-4222-8333-944455556666/create-profile", `{"name":"x"}`)
	if missing.Code != http.StatusNotFound || !strings.Contains(missing.Body.String(), "template not found") {
		t.Fatalf("expected template 404, got %d %s", missing.Code, missing.Body.String())
	}

	noName := do(t, router, http.MethodPost, "/templates/"+safariID()+"/create-profile", `{}`)
	if noName.Code != http.StatusUnprocessableEntity || !strings.Contains(noName.Body.String(), `"body.name"`) {
		t.Fatalf("expected name violation, got %d %s", noName.Code, noName.Body.String())
	}

	do(t, router, http.MethodPost, "/templates/"+safariID()+"/create-profile", `{"name":"Twice"}`)
	dup := do(t, router, http.MethodPost, "/templates/"+safariID()+"/create-profile", `{"name":"twice"}`)
	if dup.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", dup.Code)
	}
}

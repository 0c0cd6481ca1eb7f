package routes

import (
	"net/url"

	"github.com/danielgtaylor/huma/v2"

	"github.com/janisto/device-profile-api/internal/http/v1/deviceprofiles"
	"github.com/janisto/device-profile-api/internal/http/v1/templates"
	"github.com/janisto/device-profile-api/internal/platform/auth"
	"github.com/janisto/device-profile-api/internal/platform/pagination"
	profilesvc "github.com/janisto/device-profile-api/internal/service/deviceprofile"
	templatesvc "github.com/janisto/device-profile-api/internal/service/template"
)

// BearerScheme is the OpenAPI security scheme name used by operations.
const BearerScheme = "bearerAuth"

// Register wires all HTTP routes into the provided API router.
func Register(
	api huma.API,
	verifier auth.Verifier,
	profileService profilesvc.Service,
	templateService templatesvc.Service,
	policy pagination.Policy,
) {
	prefix := apiPrefix(api)

	oapi := api.OpenAPI()
	if oapi.Components == nil {
		oapi.Components = &huma.Components{}
	}
	if oapi.Components.SecuritySchemes == nil {
		oapi.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oapi.Components.SecuritySchemes[BearerScheme] = &huma.SecurityScheme{
		Type:        "http",
		Scheme:      "bearer",
		Description: "API key or Firebase ID token",
	}

	// Apply auth middleware for protected endpoints
	api.UseMiddleware(auth.NewAuthMiddleware(api, verifier))

	deviceprofiles.Register(api, profileService, policy, prefix)
	templates.Register(api, templateService, profileService, policy, prefix)
}

func apiPrefix(api huma.API) string {
	for _, s := range api.OpenAPI().Servers {
		if u, err := url.Parse(s.URL); err == nil && u.Path != "" {
			return u.Path
		}
	}
	return ""
}

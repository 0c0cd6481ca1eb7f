package templates

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/janisto/device-profile-api/internal/http/v1/deviceprofiles"
	"github.com/janisto/device-profile-api/internal/platform/auth"
	applog "github.com/janisto/device-profile-api/internal/platform/logging"
	"github.com/janisto/device-profile-api/internal/platform/pagination"
	"github.com/janisto/device-profile-api/internal/platform/respond"
	profilesvc "github.com/janisto/device-profile-api/internal/service/deviceprofile"
	templatesvc "github.com/janisto/device-profile-api/internal/service/template"
)

var bearer = []map[string][]string{{"bearerAuth": {}}}

// Register registers template endpoints. Templates are global and read
// only; creating a profile from one goes through the profile service.
func Register(api huma.API, svc templatesvc.Service, profiles profilesvc.Service, policy pagination.Policy, prefix string) {
	collection := prefix + "/templates"

	huma.Register(api, huma.Operation{
		OperationID: "list-templates",
		Method:      http.MethodGet,
		Path:        "/templates",
		Summary:     "List templates",
		Description: "Returns the predefined templates ordered by name.",
		Tags:        []string{"Templates"},
		Security:    bearer,
	}, func(ctx context.Context, input *ListInput) (*ListOutput, error) {
		page := policy.Resolve(input.Params)

		list, total, err := svc.List(ctx, page)
		if err != nil {
			return nil, mapServiceError(ctx, err)
		}
		items := make([]Template, 0, len(list))
		for i := range list {
			items = append(items, toHTTPTemplate(&list[i]))
		}
		return &ListOutput{
			Link: pagination.BuildLinkHeader(collection, nil, page, total),
			Body: TemplateList{
				Items:  items,
				Limit:  page.Limit,
				Offset: page.Offset,
				Total:  total,
				Count:  len(items),
			},
		}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-template",
		Method:      http.MethodGet,
		Path:        "/templates/{id}",
		Summary:     "Get template",
		Tags:        []string{"Templates"},
		Security:    bearer,
	}, func(ctx context.Context, input *GetInput) (*GetOutput, error) {
		t, err := svc.Get(ctx, input.ID)
		if err != nil {
			return nil, mapServiceError(ctx, err)
		}
		return &GetOutput{Body: toHTTPTemplate(t)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-profile-from-template",
		Method:        http.MethodPost,
		Path:          "/templates/{id}/create-profile",
		Summary:       "Create device profile from template",
		Description:   "Copies the template data into a new profile of the caller. Fields in the body win over the template.",
		Tags:          []string{"Templates"},
		DefaultStatus: http.StatusCreated,
		Security:      bearer,
	}, func(ctx context.Context, input *CreateProfileInput) (*deviceprofiles.CreateOutput, error) {
		owner := auth.PrincipalFromContext(ctx).OwnerID

		ov := profilesvc.Overrides{
			Name:    input.Body.Name,
			Country: input.Body.Country,
			Extras:  input.Body.Extras,
		}
		if input.Body.CustomHeaders != nil {
			headers := deviceprofiles.FromHTTPHeaders(*input.Body.CustomHeaders)
			if headers == nil {
				headers = []profilesvc.CustomHeader{}
			}
			ov.CustomHeaders = &headers
		}

		p, err := profiles.CreateFromTemplate(ctx, owner, input.ID, ov)
		if err != nil {
			return nil, deviceprofiles.MapServiceError(ctx, err)
		}
		return deviceprofiles.NewCreateOutput(prefix+"/device-profiles", p), nil
	})
}

func mapServiceError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, templatesvc.ErrNotFound):
		return respond.NotFound("template not found")
	default:
		applog.LogError(ctx, "template operation failed", err)
		return respond.Internal()
	}
}

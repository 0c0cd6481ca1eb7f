package deviceprofiles

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/janisto/device-profile-api/internal/platform/auth"
	"github.com/janisto/device-profile-api/internal/platform/fieldcase"
	applog "github.com/janisto/device-profile-api/internal/platform/logging"
	"github.com/janisto/device-profile-api/internal/platform/pagination"
	"github.com/janisto/device-profile-api/internal/platform/respond"
	profilesvc "github.com/janisto/device-profile-api/internal/service/deviceprofile"
)

var bearer = []map[string][]string{{"bearerAuth": {}}}

// Register registers device profile endpoints. prefix is the public path
// prefix used for Location and Link headers.
func Register(api huma.API, svc profilesvc.Service, policy pagination.Policy, prefix string) {
	collection := prefix + "/device-profiles"

	huma.Register(api, huma.Operation{
		OperationID:   "create-device-profile",
		Method:        http.MethodPost,
		Path:          "/device-profiles",
		Summary:       "Create device profile",
		Description:   "Creates a device profile for the caller. Names are unique per owner, ignoring case.",
		Tags:          []string{"Device Profiles"},
		DefaultStatus: http.StatusCreated,
		Security:      bearer,
	}, func(ctx context.Context, input *CreateInput) (*CreateOutput, error) {
		owner := auth.PrincipalFromContext(ctx).OwnerID

		p, err := svc.Create(ctx, owner, input.Body.toInput())
		if err != nil {
			return nil, MapServiceError(ctx, err)
		}
		return NewCreateOutput(collection, p), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-device-profiles",
		Method:      http.MethodGet,
		Path:        "/device-profiles",
		Summary:     "List device profiles",
		Description: "Returns the caller's profiles, most recently updated first. Out of range limit and offset values are clamped.",
		Tags:        []string{"Device Profiles"},
		Security:    bearer,
	}, func(ctx context.Context, input *ListInput) (*ListOutput, error) {
		owner := auth.PrincipalFromContext(ctx).OwnerID
		page := policy.Resolve(input.Params)

		profiles, total, err := svc.List(ctx, owner, page)
		if err != nil {
			return nil, MapServiceError(ctx, err)
		}
		items := make([]DeviceProfile, 0, len(profiles))
		for i := range profiles {
			items = append(items, ToHTTP(&profiles[i]))
		}
		return &ListOutput{
			Link: pagination.BuildLinkHeader(collection, nil, page, total),
			Body: ListData{
				Items:  items,
				Limit:  page.Limit,
				Offset: page.Offset,
				Total:  total,
				Count:  len(items),
			},
		}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-device-profile",
		Method:      http.MethodGet,
		Path:        "/device-profiles/{id}",
		Summary:     "Get device profile",
		Description: "Returns one profile with its ETag. Profiles of other owners and deleted profiles are not found.",
		Tags:        []string{"Device Profiles"},
		Security:    bearer,
	}, func(ctx context.Context, input *GetInput) (*GetOutput, error) {
		owner := auth.PrincipalFromContext(ctx).OwnerID

		p, err := svc.Get(ctx, owner, input.ID)
		if err != nil {
			return nil, MapServiceError(ctx, err)
		}
		etag := profilesvc.FormatETag(p.Tag())
		if profilesvc.MatchesNoneMatch(input.IfNoneMatch, p.Tag()) {
			return &GetOutput{Status: http.StatusNotModified, ETag: etag}, nil
		}
		body := ToHTTP(p)
		return &GetOutput{Status: http.StatusOK, ETag: etag, Body: &body}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-device-profile",
		Method:      http.MethodPatch,
		Path:        "/device-profiles/{id}",
		Summary:     "Update device profile",
		Description: "Updates the provided fields. If-Match must carry the ETag of the last read.",
		Tags:        []string{"Device Profiles"},
		Security:    bearer,
	}, func(ctx context.Context, input *UpdateInput) (*UpdateOutput, error) {
		owner := auth.PrincipalFromContext(ctx).OwnerID
		if len(profilesvc.ParseETags(input.IfMatch)) == 0 {
			return nil, respond.PreconditionRequired()
		}
		if !input.Body.hasFields() {
			return nil, respond.ValidationFailed([]respond.Violation{{
				Location: "body",
				Message:  "at least one field must be provided",
			}})
		}

		p, err := svc.Update(ctx, owner, input.ID, input.Body.toPatch(), input.IfMatch)
		if err != nil {
			return nil, MapServiceError(ctx, err)
		}
		return &UpdateOutput{
			ETag: profilesvc.FormatETag(p.Tag()),
			Body: ToHTTP(p),
		}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-device-profile",
		Method:        http.MethodDelete,
		Path:          "/device-profiles/{id}",
		Summary:       "Delete device profile",
		Description:   "Soft-deletes a profile. Its name can be reused right away.",
		Tags:          []string{"Device Profiles"},
		DefaultStatus: http.StatusNoContent,
		Security:      bearer,
	}, func(ctx context.Context, input *DeleteInput) (*struct{}, error) {
		owner := auth.PrincipalFromContext(ctx).OwnerID

		if err := svc.Delete(ctx, owner, input.ID); err != nil {
			return nil, MapServiceError(ctx, err)
		}
		return nil, nil
	})
}

// NewCreateOutput builds the 201 response for a new profile.
func NewCreateOutput(collection string, p *profilesvc.Profile) *CreateOutput {
	return &CreateOutput{
		Location: collection + "/" + p.ID,
		ETag:     profilesvc.FormatETag(p.Tag()),
		Body:     ToHTTP(p),
	}
}

func (b CreateBody) toInput() profilesvc.Input {
	return profilesvc.Input{
		Name:          b.Name,
		DeviceType:    profilesvc.DeviceType(b.DeviceType),
		WindowWidth:   b.WindowWidth,
		WindowHeight:  b.WindowHeight,
		UserAgent:     b.UserAgent,
		Country:       b.Country,
		CustomHeaders: FromHTTPHeaders(b.CustomHeaders),
		Extras:        b.Extras,
	}
}

func (b UpdateBody) hasFields() bool {
	return b.Name != nil ||
		b.DeviceType != nil ||
		b.WindowWidth != nil ||
		b.WindowHeight != nil ||
		b.UserAgent != nil ||
		b.Country != nil ||
		b.CustomHeaders != nil ||
		b.Extras != nil
}

func (b UpdateBody) toPatch() profilesvc.Patch {
	patch := profilesvc.Patch{
		Name:         b.Name,
		WindowWidth:  b.WindowWidth,
		WindowHeight: b.WindowHeight,
		UserAgent:    b.UserAgent,
		Country:      b.Country,
		Extras:       b.Extras,
	}
	if b.DeviceType != nil {
		dt := profilesvc.DeviceType(*b.DeviceType)
		patch.DeviceType = &dt
	}
	if b.CustomHeaders != nil {
		headers := FromHTTPHeaders(*b.CustomHeaders)
		if headers == nil {
			headers = []profilesvc.CustomHeader{}
		}
		patch.CustomHeaders = &headers
	}
	return patch
}

// MapServiceError converts device profile service errors to problems.
func MapServiceError(ctx context.Context, err error) error {
	var verr *profilesvc.ValidationError
	var perr *profilesvc.PreconditionFailedError
	switch {
	case errors.As(err, &verr):
		return respond.ValidationFailed(toViolations(verr.Fields))
	case errors.As(err, &perr):
		return respond.PreconditionFailed(profilesvc.FormatETag(perr.CurrentTag))
	case errors.Is(err, profilesvc.ErrPreconditionRequired):
		return respond.PreconditionRequired()
	case errors.Is(err, profilesvc.ErrNotFound):
		return respond.NotFound("device profile not found")
	case errors.Is(err, profilesvc.ErrTemplateNotFound):
		return respond.NotFound("template not found")
	case errors.Is(err, profilesvc.ErrNameConflict):
		return respond.NameConflict("a device profile with this name already exists")
	default:
		applog.LogError(ctx, "device profile operation failed", err)
		return respond.Internal()
	}
}

func toViolations(fields []profilesvc.FieldError) []respond.Violation {
	out := make([]respond.Violation, len(fields))
	for i, f := range fields {
		out[i] = respond.Violation{
			Location: "body." + apiPath(f.Field),
			Message:  f.Message,
			Value:    f.Value,
		}
	}
	return out
}

// apiPath rewrites the leading storage name of a field path, so
// "custom_headers[1].name" becomes "customHeaders[1].name".
func apiPath(path string) string {
	i := strings.IndexAny(path, "[.")
	if i < 0 {
		return fieldcase.ToAPI(path)
	}
	return fieldcase.ToAPI(path[:i]) + path[i:]
}

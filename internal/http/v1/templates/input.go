package templates

import (
	"github.com/janisto/device-profile-api/internal/http/v1/deviceprofiles"
	"github.com/janisto/device-profile-api/internal/platform/pagination"
)

// ListInput for GET /templates
type ListInput struct {
	pagination.Params
}

// GetInput for GET /templates/{id}
type GetInput struct {
	ID string `path:"id" doc:"Template id"`
}

// CreateProfileBody holds the fields that override the template.
type CreateProfileBody struct {
	Name          string                         `json:"name"                    required:"false" doc:"Name of the new profile" example:"My Chrome"`
	Country       *string                        `json:"country,omitempty"                        doc:"Replaces the template country" example:"fi"`
	CustomHeaders *[]deviceprofiles.CustomHeader `json:"customHeaders,omitempty"                  doc:"Replaces the template headers"`
	Extras        map[string]any                 `json:"extras,omitempty"                         doc:"Merged over the template extras"`
}

// CreateProfileInput for POST /templates/{id}/create-profile
type CreateProfileInput struct {
	ID   string `path:"id" doc:"Template id"`
	Body CreateProfileBody
}

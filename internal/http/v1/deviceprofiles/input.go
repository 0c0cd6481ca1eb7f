package deviceprofiles

import "github.com/janisto/device-profile-api/internal/platform/pagination"

// Body fields are optional in the schema; the service checks them all at
// once so a single response lists every problem.

// CreateBody is the create payload.
type CreateBody struct {
	Name          string         `json:"name"                    required:"false" doc:"Name, 1-255 characters"                example:"Chrome Desktop"`
	DeviceType    string         `json:"deviceType"              required:"false" doc:"desktop or mobile"                     example:"desktop"`
	WindowWidth   int            `json:"windowWidth"             required:"false" doc:"100-10000; at most 2000 for mobile"    example:"1920"`
	WindowHeight  int            `json:"windowHeight"            required:"false" doc:"100-10000; at most 2000 for mobile"    example:"1080"`
	UserAgent     string         `json:"userAgent"               required:"false" doc:"User-Agent, at most 1000 characters"  example:"Mozilla/5.0 (Windows NT 10.0; Win64; x64)"`
	Country       string         `json:"country,omitempty"       required:"false" doc:"ISO 3166-1 alpha-2 code"               example:"us"`
	CustomHeaders []CustomHeader `json:"customHeaders,omitempty" required:"false" doc:"Extra request headers; order and duplicates are kept"`
	Extras        map[string]any `json:"extras,omitempty"        required:"false" doc:"Free-form settings"`
}

// CreateInput for POST /device-profiles
type CreateInput struct {
	Body CreateBody
}

// ListInput for GET /device-profiles
type ListInput struct {
	pagination.Params
}

// GetInput for GET /device-profiles/{id}
type GetInput struct {
	ID          string `path:"id"                 doc:"Profile id"`
	IfNoneMatch string `header:"If-None-Match"    doc:"Return 304 when the profile still has this ETag"`
}

// UpdateBody is the partial update payload. Omitted fields are kept;
// customHeaders and extras replace the stored values when present.
type UpdateBody struct {
	Name          *string         `json:"name,omitempty"          doc:"Name, 1-255 characters"             example:"Chrome Desktop"`
	DeviceType    *string         `json:"deviceType,omitempty"    doc:"desktop or mobile"                  example:"mobile"`
	WindowWidth   *int            `json:"windowWidth,omitempty"   doc:"100-10000; at most 2000 for mobile" example:"390"`
	WindowHeight  *int            `json:"windowHeight,omitempty"  doc:"100-10000; at most 2000 for mobile" example:"844"`
	UserAgent     *string         `json:"userAgent,omitempty"     doc:"User-Agent"                         example:"Mozilla/5.0 (iPhone)"`
	Country       *string         `json:"country,omitempty"       doc:"ISO 3166-1 alpha-2 code; empty clears it" example:"fi"`
	CustomHeaders *[]CustomHeader `json:"customHeaders,omitempty" doc:"Replacement header list"`
	Extras        *map[string]any `json:"extras,omitempty"        doc:"Replacement free-form settings"`
}

// UpdateInput for PATCH /device-profiles/{id}
type UpdateInput struct {
	ID      string `path:"id"          doc:"Profile id"`
	IfMatch string `header:"If-Match"  doc:"ETag from the last read; required"`
	Body    UpdateBody
}

// DeleteInput for DELETE /device-profiles/{id}
type DeleteInput struct {
	ID string `path:"id" doc:"Profile id"`
}

package deviceprofiles

import (
	"github.com/janisto/device-profile-api/internal/platform/timeutil"
	profilesvc "github.com/janisto/device-profile-api/internal/service/deviceprofile"
)

// CustomHeader is one header sent with every scraper request.
type CustomHeader struct {
	Name   string `json:"name"             doc:"Header name; hop-by-hop names such as Host are rejected" example:"Accept-Language"`
	Value  string `json:"value"            doc:"Header value, at most 1000 characters"                   example:"en-US,en;q=0.9"`
	Secret bool   `json:"secret,omitempty" doc:"Encrypt the value at rest"                               example:"false"`
}

// DeviceProfile is the device profile response.
type DeviceProfile struct {
	ID            string         `json:"id"            doc:"Unique identifier"                example:"3f0b7a8e-1111-4222-8333-944455556666"`
	Name          string         `json:"name"          doc:"Name, unique per owner ignoring case" example:"Chrome Desktop"`
	DeviceType    string         `json:"deviceType"    doc:"Device kind"                      example:"desktop" enum:"desktop,mobile"`
	WindowWidth   int            `json:"windowWidth"   doc:"Viewport width in pixels"         example:"1920"`
	WindowHeight  int            `json:"windowHeight"  doc:"Viewport height in pixels"        example:"1080"`
	UserAgent     string         `json:"userAgent"     doc:"User-Agent header value"          example:"Mozilla/5.0 (Windows NT 10.0; Win64; x64)"`
	Country       string         `json:"country"       doc:"ISO 3166-1 alpha-2 code, lower case" example:"us"`
	CustomHeaders []CustomHeader `json:"customHeaders" doc:"Extra request headers in send order"`
	Extras        map[string]any `json:"extras"        doc:"Free-form settings"`
	Version       int            `json:"version"       doc:"Revision number, starts at 1"     example:"1"`
	CreatedAt     timeutil.Time  `json:"createdAt"     doc:"Creation timestamp"               example:"2024-01-15T10:30:00.000Z"`
	UpdatedAt     timeutil.Time  `json:"updatedAt"     doc:"Last update timestamp"            example:"2024-01-15T10:30:00.000Z"`
}

// ListData is the paginated list body.
type ListData struct {
	Items  []DeviceProfile `json:"items"  doc:"Profiles on this page, most recently updated first"`
	Limit  int             `json:"limit"  doc:"Effective page size"           example:"50"`
	Offset int             `json:"offset" doc:"Effective offset"              example:"0"`
	Total  int             `json:"total"  doc:"Number of live profiles"       example:"120"`
	Count  int             `json:"count"  doc:"Number of items on this page"  example:"50"`
}

// ToHTTP converts a service profile to its response shape.
func ToHTTP(p *profilesvc.Profile) DeviceProfile {
	headers := make([]CustomHeader, len(p.CustomHeaders))
	for i, h := range p.CustomHeaders {
		headers[i] = CustomHeader{Name: h.Name, Value: h.Value, Secret: h.Secret}
	}
	extras := p.Extras
	if extras == nil {
		extras = map[string]any{}
	}
	return DeviceProfile{
		ID:            p.ID,
		Name:          p.Name,
		DeviceType:    string(p.DeviceType),
		WindowWidth:   p.WindowWidth,
		WindowHeight:  p.WindowHeight,
		UserAgent:     p.UserAgent,
		Country:       p.Country,
		CustomHeaders: headers,
		Extras:        extras,
		Version:       p.Version,
		CreatedAt:     timeutil.NewTime(p.CreatedAt),
		UpdatedAt:     timeutil.NewTime(p.UpdatedAt),
	}
}

// FromHTTPHeaders converts request headers to service headers. nil stays
// nil so that absent fields can be told apart from empty ones.
func FromHTTPHeaders(in []CustomHeader) []profilesvc.CustomHeader {
	if in == nil {
		return nil
	}
	out := make([]profilesvc.CustomHeader, len(in))
	for i, h := range in {
		out[i] = profilesvc.CustomHeader{Name: h.Name, Value: h.Value, Secret: h.Secret}
	}
	return out
}

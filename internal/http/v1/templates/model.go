package templates

import (
	"github.com/janisto/device-profile-api/internal/platform/fieldcase"
	"github.com/janisto/device-profile-api/internal/platform/timeutil"
	templatesvc "github.com/janisto/device-profile-api/internal/service/template"
)

// Template is the template response. Data uses the same field names as
// device profiles.
type Template struct {
	ID          string         `json:"id"                    doc:"Unique identifier"   example:"6f1c8f55-3b0e-4d8e-9a51-5b2f0c9e7d21"`
	Name        string         `json:"name"                  doc:"Unique name"         example:"Chrome Desktop (Latest)"`
	Description string         `json:"description,omitempty" doc:"What the template emulates"`
	Data        map[string]any `json:"data"                  doc:"Profile fields copied into new profiles"`
	Version     string         `json:"version,omitempty"     doc:"Browser or OS version label" example:"Chrome 120"`
	CreatedAt   timeutil.Time  `json:"createdAt"             doc:"Creation timestamp"   example:"2024-01-15T10:30:00.000Z"`
	UpdatedAt   timeutil.Time  `json:"updatedAt"             doc:"Last update timestamp" example:"2024-01-15T10:30:00.000Z"`
}

// TemplateList is the paginated template list body.
type TemplateList struct {
	Items  []Template `json:"items"  doc:"Templates ordered by name"`
	Limit  int        `json:"limit"  doc:"Effective page size"          example:"50"`
	Offset int        `json:"offset" doc:"Effective offset"             example:"0"`
	Total  int        `json:"total"  doc:"Number of templates"          example:"5"`
	Count  int        `json:"count"  doc:"Number of items on this page" example:"5"`
}

func toHTTPTemplate(t *templatesvc.Template) Template {
	data := fieldcase.KeysToAPI(t.Data)
	if data == nil {
		data = map[string]any{}
	}
	return Template{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Data:        data,
		Version:     t.Version,
		CreatedAt:   timeutil.NewTime(t.CreatedAt),
		UpdatedAt:   timeutil.NewTime(t.UpdatedAt),
	}
}

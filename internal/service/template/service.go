package template

import (
	"context"
	"errors"
	"time"

	"github.com/janisto/device-profile-api/internal/platform/pagination"
)

// ErrNotFound is returned for unknown template ids.
var ErrNotFound = errors.New("template not found")

// Template is a global, read-only seed for new device profiles. Data holds
// a profile-like payload keyed by storage (snake_case) field names.
type Template struct {
	ID          string
	Name        string
	Description string
	Data        map[string]any
	Version     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Service defines template read operations. Templates are shared by all
// owners and have no write surface.
//
// Implementations must return Data as a private copy so callers can
// modify it without affecting stored templates.
type Service interface {
	List(ctx context.Context, page pagination.Page) ([]Template, int, error)
	Get(ctx context.Context, id string) (*Template, error)
}

// Store is a Service that can also be seeded.
type Store interface {
	Service
	Count(ctx context.Context) (int, error)
	Insert(ctx context.Context, templates []Template) error
}

// cloneData deep copies JSON-shaped values.
func cloneData(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneData(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneData(e)
		}
		return out
	default:
		return v
	}
}

package deviceprofile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/janisto/device-profile-api/internal/platform/pagination"
)

// DeviceType is the closed set of device kinds.
type DeviceType string

const (
	DeviceDesktop DeviceType = "desktop"
	DeviceMobile  DeviceType = "mobile"
)

// CustomHeader is one request header sent by the scraper. Order and
// duplicates are preserved. Values of secret headers are sealed at rest.
type CustomHeader struct {
	Name   string `json:"name"             field:"name"   validate:"required,max=100,allowedheader"`
	Value  string `json:"value"            field:"value"  validate:"max=1000"`
	Secret bool   `json:"secret,omitempty" field:"secret"`
}

// Profile is a stored device profile.
type Profile struct {
	ID            string
	OwnerID       string
	Name          string
	DeviceType    DeviceType
	WindowWidth   int
	WindowHeight  int
	UserAgent     string
	Country       string
	CustomHeaders []CustomHeader
	Extras        map[string]any
	Version       int
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     *time.Time
}

// Tag returns the profile's current entity tag.
func (p *Profile) Tag() string {
	return Tag(p.ID, p.Version)
}

// Input is a complete profile payload, as accepted on create.
type Input struct {
	Name          string         `field:"name"           validate:"required,max=255"`
	DeviceType    DeviceType     `field:"device_type"    validate:"required,devicetype"`
	WindowWidth   int            `field:"window_width"   validate:"min=100,max=10000"`
	WindowHeight  int            `field:"window_height"  validate:"min=100,max=10000"`
	UserAgent     string         `field:"user_agent"     validate:"required,max=1000"`
	Country       string         `field:"country"        validate:"omitempty,country"`
	CustomHeaders []CustomHeader `field:"custom_headers" validate:"dive"`
	Extras        map[string]any `field:"extras"`
}

// Patch holds the fields of a partial update. Nil fields are left alone.
// CustomHeaders and Extras replace the stored values wholesale; an empty
// Country clears it.
type Patch struct {
	Name          *string
	DeviceType    *DeviceType
	WindowWidth   *int
	WindowHeight  *int
	UserAgent     *string
	Country       *string
	CustomHeaders *[]CustomHeader
	Extras        *map[string]any
}

// Overrides are the caller supplied fields when creating from a template.
type Overrides struct {
	Name          string
	Country       *string
	CustomHeaders *[]CustomHeader
	Extras        map[string]any
}

// Service errors
var (
	ErrNotFound             = errors.New("device profile not found")
	ErrNameConflict         = errors.New("device profile name already exists")
	ErrPreconditionRequired = errors.New("if-match precondition required")
	ErrTemplateNotFound     = errors.New("template not found")

	// errStaleVersion is returned by repositories when a conditional
	// update matched no row.
	errStaleVersion = errors.New("version changed")
)

// PreconditionFailedError reports a stale entity tag together with the
// tag the caller should retry with.
type PreconditionFailedError struct {
	CurrentTag string
}

func (e *PreconditionFailedError) Error() string {
	return "precondition failed: current tag is " + e.CurrentTag
}

// FieldError is one violated rule. Field is the storage path of the value,
// for example "custom_headers[1].name".
type FieldError struct {
	Field   string
	Message string
	Value   any
}

// ValidationError lists every violation found in one input.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s %s", f.Field, f.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Service defines device profile operations. Every call is scoped to the
// owner passed in; profiles of other owners and soft-deleted profiles are
// reported as ErrNotFound.
//
// Update takes the raw If-Match header value. An empty value fails with
// ErrPreconditionRequired and a non-matching one with
// *PreconditionFailedError.
type Service interface {
	Create(ctx context.Context, owner string, in Input) (*Profile, error)
	Get(ctx context.Context, owner, id string) (*Profile, error)
	List(ctx context.Context, owner string, page pagination.Page) ([]Profile, int, error)
	Update(ctx context.Context, owner, id string, patch Patch, ifMatch string) (*Profile, error)
	Delete(ctx context.Context, owner, id string) error
	CreateFromTemplate(ctx context.Context, owner, templateID string, ov Overrides) (*Profile, error)
}

// Repository is owner-scoped profile storage. Reads only return live rows.
type Repository interface {
	// Insert stores a new profile. A live name collision under
	// case-folding is ErrNameConflict.
	Insert(ctx context.Context, p *Profile) error
	Get(ctx context.Context, owner, id string) (*Profile, error)
	// List returns one page ordered by updated_at DESC, id DESC together
	// with the owner's total live count.
	List(ctx context.Context, owner string, page pagination.Page) ([]Profile, int, error)
	// NameTaken reports whether another live profile of owner has name
	// under case-folding. excludeID may be empty.
	NameTaken(ctx context.Context, owner, name, excludeID string) (bool, error)
	// UpdateIfVersion writes p and sets its version to expected+1 only if
	// the stored version is still expected. It returns the stored row.
	UpdateIfVersion(ctx context.Context, p *Profile, expected int) (*Profile, error)
	// SoftDelete marks a live profile deleted and bumps its version.
	SoftDelete(ctx context.Context, owner, id string, at time.Time) error
}

func cloneProfile(p *Profile) *Profile {
	c := *p
	c.CustomHeaders = append([]CustomHeader(nil), p.CustomHeaders...)
	if c.CustomHeaders == nil {
		c.CustomHeaders = []CustomHeader{}
	}
	c.Extras = cloneMap(p.Extras)
	if p.DeletedAt != nil {
		t := *p.DeletedAt
		c.DeletedAt = &t
	}
	return &c
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

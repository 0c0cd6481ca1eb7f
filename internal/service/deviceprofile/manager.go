package deviceprofile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/janisto/device-profile-api/internal/platform/pagination"
	applog "github.com/janisto/device-profile-api/internal/platform/logging"
	"github.com/janisto/device-profile-api/internal/service/template"
)

const resourceType = "device_profile"

// Recorder receives one call per mutation attempt.
type Recorder interface {
	RecordMutation(operation, result string)
}

type noopRecorder struct{}

func (noopRecorder) RecordMutation(string, string) {}

// Manager implements Service on top of a Repository. It owns the lifecycle
// rules: validation, name uniqueness and the If-Match protocol.
type Manager struct {
	repo      Repository
	templates template.Service
	recorder  Recorder
	now       func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithRecorder sets the mutation recorder.
func WithRecorder(r Recorder) Option {
	return func(m *Manager) {
		if r != nil {
			m.recorder = r
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a Manager. templates may be nil when creating from
// templates is not needed.
func NewManager(repo Repository, templates template.Service, opts ...Option) *Manager {
	m := &Manager{
		repo:      repo,
		templates: templates,
		recorder:  noopRecorder{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// categorizeError converts errors to audit-safe categories.
func categorizeError(err error) string {
	var verr *ValidationError
	var perr *PreconditionFailedError
	switch {
	case errors.As(err, &verr):
		return "validation_error"
	case errors.As(err, &perr), errors.Is(err, ErrPreconditionRequired):
		return "precondition_failed"
	case errors.Is(err, ErrNameConflict):
		return "name_conflict"
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrTemplateNotFound):
		return "not_found"
	default:
		return "internal_error"
	}
}

func (m *Manager) audit(ctx context.Context, action, owner, id string, err error, details map[string]any) {
	result := applog.AuditSuccess
	category := "success"
	if err != nil {
		result = applog.AuditFailure
		category = categorizeError(err)
		if details == nil {
			details = map[string]any{}
		}
		details["error"] = category
	}
	applog.LogAuditEvent(ctx, applog.AuditEvent{
		Action:       action,
		OwnerID:      owner,
		ResourceType: resourceType,
		ResourceID:   id,
		Result:       result,
		Details:      details,
	})
	m.recorder.RecordMutation(action, category)
}

func (m *Manager) timestamp() time.Time {
	return m.now().UTC().Truncate(time.Microsecond)
}

// Create validates in and stores it as version 1.
func (m *Manager) Create(ctx context.Context, owner string, in Input) (*Profile, error) {
	p, err := m.create(ctx, owner, in)
	id := ""
	if p != nil {
		id = p.ID
	}
	m.audit(ctx, "create", owner, id, err, nil)
	return p, err
}

func (m *Manager) create(ctx context.Context, owner string, in Input) (*Profile, error) {
	in, err := Validate(in)
	if err != nil {
		return nil, err
	}
	taken, err := m.repo.NameTaken(ctx, owner, in.Name, "")
	if err != nil {
		return nil, fmt.Errorf("checking name: %w", err)
	}
	if taken {
		return nil, ErrNameConflict
	}

	now := m.timestamp()
	p := &Profile{
		ID:            uuid.NewString(),
		OwnerID:       owner,
		Name:          in.Name,
		DeviceType:    in.DeviceType,
		WindowWidth:   in.WindowWidth,
		WindowHeight:  in.WindowHeight,
		UserAgent:     in.UserAgent,
		Country:       in.Country,
		CustomHeaders: in.CustomHeaders,
		Extras:        in.Extras,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	// The unique index still decides when two creates race past the check.
	if err := m.repo.Insert(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Get returns a live profile of owner.
func (m *Manager) Get(ctx context.Context, owner, id string) (*Profile, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	return m.repo.Get(ctx, owner, id)
}

// List returns one page of owner's live profiles and the total count.
func (m *Manager) List(ctx context.Context, owner string, page pagination.Page) ([]Profile, int, error) {
	items, total, err := m.repo.List(ctx, owner, page)
	if err != nil {
		return nil, 0, err
	}
	if items == nil {
		items = []Profile{}
	}
	return items, total, nil
}

// Update applies patch if ifMatch names the current tag.
func (m *Manager) Update(ctx context.Context, owner, id string, patch Patch, ifMatch string) (*Profile, error) {
	p, err := m.update(ctx, owner, id, patch, ifMatch)
	m.audit(ctx, "update", owner, id, err, nil)
	return p, err
}

func (m *Manager) update(ctx context.Context, owner, id string, patch Patch, ifMatch string) (*Profile, error) {
	if len(ParseETags(ifMatch)) == 0 {
		return nil, ErrPreconditionRequired
	}
	current, err := m.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if !MatchesTag(ifMatch, current.Tag()) {
		return nil, &PreconditionFailedError{CurrentTag: current.Tag()}
	}

	in, err := Validate(apply(current, patch))
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		taken, err := m.repo.NameTaken(ctx, owner, in.Name, id)
		if err != nil {
			return nil, fmt.Errorf("checking name: %w", err)
		}
		if taken {
			return nil, ErrNameConflict
		}
	}

	next := cloneProfile(current)
	next.Name = in.Name
	next.DeviceType = in.DeviceType
	next.WindowWidth = in.WindowWidth
	next.WindowHeight = in.WindowHeight
	next.UserAgent = in.UserAgent
	next.Country = in.Country
	next.CustomHeaders = in.CustomHeaders
	next.Extras = in.Extras
	next.UpdatedAt = m.timestamp()

	updated, err := m.repo.UpdateIfVersion(ctx, next, current.Version)
	if errors.Is(err, errStaleVersion) {
		// Lost the race to another writer; report whatever is there now.
		latest, gerr := m.repo.Get(ctx, owner, id)
		if gerr != nil {
			return nil, gerr
		}
		return nil, &PreconditionFailedError{CurrentTag: latest.Tag()}
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func apply(p *Profile, patch Patch) Input {
	in := Input{
		Name:          p.Name,
		DeviceType:    p.DeviceType,
		WindowWidth:   p.WindowWidth,
		WindowHeight:  p.WindowHeight,
		UserAgent:     p.UserAgent,
		Country:       p.Country,
		CustomHeaders: p.CustomHeaders,
		Extras:        p.Extras,
	}
	if patch.Name != nil {
		in.Name = *patch.Name
	}
	if patch.DeviceType != nil {
		in.DeviceType = *patch.DeviceType
	}
	if patch.WindowWidth != nil {
		in.WindowWidth = *patch.WindowWidth
	}
	if patch.WindowHeight != nil {
		in.WindowHeight = *patch.WindowHeight
	}
	if patch.UserAgent != nil {
		in.UserAgent = *patch.UserAgent
	}
	if patch.Country != nil {
		in.Country = *patch.Country
	}
	if patch.CustomHeaders != nil {
		in.CustomHeaders = *patch.CustomHeaders
	}
	if patch.Extras != nil {
		in.Extras = *patch.Extras
	}
	return in
}

// Delete soft-deletes a live profile. No tag is required.
func (m *Manager) Delete(ctx context.Context, owner, id string) error {
	err := ErrNotFound
	if validID(id) {
		err = m.repo.SoftDelete(ctx, owner, id, m.timestamp())
	}
	m.audit(ctx, "delete", owner, id, err, nil)
	return err
}

// CreateFromTemplate materializes a template with overrides and creates
// the result like Create. The template itself is never written.
func (m *Manager) CreateFromTemplate(ctx context.Context, owner, templateID string, ov Overrides) (*Profile, error) {
	p, err := m.createFromTemplate(ctx, owner, templateID, ov)
	id := ""
	if p != nil {
		id = p.ID
	}
	m.audit(ctx, "create_from_template", owner, id, err, map[string]any{"template_id": templateID})
	return p, err
}

func (m *Manager) createFromTemplate(ctx context.Context, owner, templateID string, ov Overrides) (*Profile, error) {
	if m.templates == nil {
		return nil, ErrTemplateNotFound
	}
	tpl, err := m.templates.Get(ctx, templateID)
	if errors.Is(err, template.ErrNotFound) {
		return nil, ErrTemplateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading template: %w", err)
	}
	in, err := Materialize(tpl.Data, ov)
	if err != nil {
		return nil, err
	}
	return m.create(ctx, owner, in)
}

// validID accepts only the canonical 36 character form. uuid.Parse also
// takes urn and brace forms, which Postgres rejects as uuid input.
func validID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

var _ Service = (*Manager)(nil)

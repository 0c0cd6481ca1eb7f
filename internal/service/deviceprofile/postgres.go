package deviceprofile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/janisto/device-profile-api/internal/platform/pagination"
	"github.com/janisto/device-profile-api/internal/platform/postgres"
	"github.com/janisto/device-profile-api/internal/platform/secretbox"
)

const (
	profilesTable      = "device_profiles"
	liveNameConstraint = "uq_device_profiles_owner_name_live"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var profileColumns = []string{
	"id", "owner_id", "name", "device_type", "window_width", "window_height",
	"user_agent", "country", "custom_headers", "extras", "version",
	"created_at", "updated_at", "deleted_at",
}

// PoolOps defines the database operations the store needs.
type PoolOps interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type profileRow struct {
	ID            string     `db:"id"`
	OwnerID       string     `db:"owner_id"`
	Name          string     `db:"name"`
	DeviceType    string     `db:"device_type"`
	WindowWidth   int        `db:"window_width"`
	WindowHeight  int        `db:"window_height"`
	UserAgent     string     `db:"user_agent"`
	Country       *string    `db:"country"`
	CustomHeaders []byte     `db:"custom_headers"`
	Extras        []byte     `db:"extras"`
	Version       int        `db:"version"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
	DeletedAt     *time.Time `db:"deleted_at"`
}

type profileRowWithCount struct {
	profileRow
	TotalCount int64 `db:"total_count"`
}

// PostgresStore implements Repository on the device_profiles table.
// Values of secret headers are sealed with box, bound to the owner.
type PostgresStore struct {
	pool PoolOps
	box  *secretbox.Box
}

// NewPostgresStore creates a new Postgres-backed store. box may be nil, in
// which case header values are stored as given.
func NewPostgresStore(pool PoolOps, box *secretbox.Box) *PostgresStore {
	return &PostgresStore{pool: pool, box: box}
}

// Insert stores a new profile.
func (s *PostgresStore) Insert(ctx context.Context, p *Profile) error {
	headers, err := s.encodeHeaders(p.OwnerID, p.CustomHeaders)
	if err != nil {
		return err
	}
	extras, err := json.Marshal(p.Extras)
	if err != nil {
		return fmt.Errorf("encoding extras: %w", err)
	}

	query, args, err := psql.Insert(profilesTable).
		Columns(profileColumns[:13]...).
		Values(p.ID, p.OwnerID, p.Name, string(p.DeviceType), p.WindowWidth, p.WindowHeight,
			p.UserAgent, nullable(p.Country), headers, extras, p.Version, p.CreatedAt, p.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		if postgres.IsUniqueViolation(err, liveNameConstraint) {
			return ErrNameConflict
		}
		return fmt.Errorf("inserting device profile: %w", err)
	}
	return nil
}

// Get returns a live profile of owner.
func (s *PostgresStore) Get(ctx context.Context, owner, id string) (*Profile, error) {
	query, args, err := psql.Select(profileColumns...).
		From(profilesTable).
		Where(sq.Eq{"id": id}).
		Where(sq.Eq{"owner_id": owner}).
		Where(sq.Eq{"deleted_at": nil}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	var row profileRow
	if err := pgxscan.Get(ctx, s.pool, &row, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting device profile: %w", err)
	}
	return s.toProfile(&row)
}

// List returns one page of owner's live profiles, newest first.
func (s *PostgresStore) List(ctx context.Context, owner string, page pagination.Page) ([]Profile, int, error) {
	query, args, err := psql.Select(append(profileColumns, "COUNT(*) OVER() AS total_count")...).
		From(profilesTable).
		Where(sq.Eq{"owner_id": owner}).
		Where(sq.Eq{"deleted_at": nil}).
		OrderBy("updated_at DESC", "id DESC").
		Limit(uint64(page.Limit)).
		Offset(uint64(page.Offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build select query: %w", err)
	}

	var rows []profileRowWithCount
	if err := pgxscan.Select(ctx, s.pool, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("listing device profiles: %w", err)
	}

	if len(rows) == 0 {
		if page.Offset == 0 {
			return []Profile{}, 0, nil
		}
		total, err := s.count(ctx, owner)
		if err != nil {
			return nil, 0, err
		}
		return []Profile{}, total, nil
	}

	out := make([]Profile, 0, len(rows))
	for i := range rows {
		p, err := s.toProfile(&rows[i].profileRow)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *p)
	}
	return out, int(rows[0].TotalCount), nil
}

func (s *PostgresStore) count(ctx context.Context, owner string) (int, error) {
	query, args, err := psql.Select("COUNT(*)").
		From(profilesTable).
		Where(sq.Eq{"owner_id": owner}).
		Where(sq.Eq{"deleted_at": nil}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}
	var n int64
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting device profiles: %w", err)
	}
	return int(n), nil
}

// NameTaken reports whether a live profile of owner other than excludeID
// already uses name, ignoring case.
func (s *PostgresStore) NameTaken(ctx context.Context, owner, name, excludeID string) (bool, error) {
	builder := psql.Select("1").
		From(profilesTable).
		Where(sq.Eq{"owner_id": owner}).
		Where(sq.Eq{"deleted_at": nil}).
		Where(sq.Expr("lower(name) = lower(?)", name))
	if excludeID != "" {
		builder = builder.Where(sq.NotEq{"id": excludeID})
	}
	query, args, err := builder.Limit(1).ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build name query: %w", err)
	}

	var one int
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("checking device profile name: %w", err)
	}
	return true, nil
}

// UpdateIfVersion writes p only while the stored version equals expected.
// A row that moved on, was deleted or never existed yields errStaleVersion;
// the caller re-reads to tell these apart.
func (s *PostgresStore) UpdateIfVersion(ctx context.Context, p *Profile, expected int) (*Profile, error) {
	headers, err := s.encodeHeaders(p.OwnerID, p.CustomHeaders)
	if err != nil {
		return nil, err
	}
	extras, err := json.Marshal(p.Extras)
	if err != nil {
		return nil, fmt.Errorf("encoding extras: %w", err)
	}

	query, args, err := psql.Update(profilesTable).
		Set("name", p.Name).
		Set("device_type", string(p.DeviceType)).
		Set("window_width", p.WindowWidth).
		Set("window_height", p.WindowHeight).
		Set("user_agent", p.UserAgent).
		Set("country", nullable(p.Country)).
		Set("custom_headers", headers).
		Set("extras", extras).
		Set("version", expected+1).
		Set("updated_at", p.UpdatedAt).
		Where(sq.Eq{"id": p.ID}).
		Where(sq.Eq{"owner_id": p.OwnerID}).
		Where(sq.Eq{"deleted_at": nil}).
		Where(sq.Eq{"version": expected}).
		Suffix("RETURNING " + strings.Join(profileColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build update query: %w", err)
	}

	var row profileRow
	if err := pgxscan.Get(ctx, s.pool, &row, query, args...); err != nil {
		switch {
		case pgxscan.NotFound(err):
			return nil, errStaleVersion
		case postgres.IsUniqueViolation(err, liveNameConstraint):
			return nil, ErrNameConflict
		}
		return nil, fmt.Errorf("updating device profile: %w", err)
	}
	return s.toProfile(&row)
}

// SoftDelete marks a live profile deleted. The row is kept; its name
// becomes free for reuse.
func (s *PostgresStore) SoftDelete(ctx context.Context, owner, id string, at time.Time) error {
	query, args, err := psql.Update(profilesTable).
		Set("deleted_at", at).
		Set("updated_at", at).
		Set("version", sq.Expr("version + 1")).
		Where(sq.Eq{"id": id}).
		Where(sq.Eq{"owner_id": owner}).
		Where(sq.Eq{"deleted_at": nil}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete query: %w", err)
	}
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("deleting device profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) encodeHeaders(owner string, headers []CustomHeader) ([]byte, error) {
	sealed := make([]CustomHeader, len(headers))
	for i, h := range headers {
		if h.Secret {
			v, err := s.box.Seal(h.Value, owner)
			if err != nil {
				return nil, fmt.Errorf("sealing header %d: %w", i, err)
			}
			h.Value = v
		}
		sealed[i] = h
	}
	b, err := json.Marshal(sealed)
	if err != nil {
		return nil, fmt.Errorf("encoding custom headers: %w", err)
	}
	return b, nil
}

func (s *PostgresStore) toProfile(r *profileRow) (*Profile, error) {
	p := &Profile{
		ID:            r.ID,
		OwnerID:       r.OwnerID,
		Name:          r.Name,
		DeviceType:    DeviceType(r.DeviceType),
		WindowWidth:   r.WindowWidth,
		WindowHeight:  r.WindowHeight,
		UserAgent:     r.UserAgent,
		CustomHeaders: []CustomHeader{},
		Extras:        map[string]any{},
		Version:       r.Version,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
		DeletedAt:     r.DeletedAt,
	}
	if r.Country != nil {
		p.Country = *r.Country
	}
	if len(r.CustomHeaders) > 0 {
		if err := json.Unmarshal(r.CustomHeaders, &p.CustomHeaders); err != nil {
			return nil, fmt.Errorf("decoding profile %s headers: %w", r.ID, err)
		}
	}
	for i := range p.CustomHeaders {
		if !p.CustomHeaders[i].Secret {
			continue
		}
		v, err := s.box.Open(p.CustomHeaders[i].Value, r.OwnerID)
		if err != nil {
			return nil, fmt.Errorf("opening profile %s header %d: %w", r.ID, i, err)
		}
		p.CustomHeaders[i].Value = v
	}
	if len(r.Extras) > 0 {
		if err := json.Unmarshal(r.Extras, &p.Extras); err != nil {
			return nil, fmt.Errorf("decoding profile %s extras: %w", r.ID, err)
		}
		if p.Extras == nil {
			p.Extras = map[string]any{}
		}
	}
	return p, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var _ Repository = (*PostgresStore)(nil)

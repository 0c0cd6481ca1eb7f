package template

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/janisto/device-profile-api/internal/platform/pagination"
)

const templatesTable = "templates"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var templateColumns = []string{"id", "name", "description", "data", "version", "created_at", "updated_at"}

// PoolOps defines the database operations the store needs.
type PoolOps interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type templateRow struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Description *string   `db:"description"`
	Data        []byte    `db:"data"`
	Version     *string   `db:"version"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

type templateRowWithCount struct {
	templateRow
	TotalCount int64 `db:"total_count"`
}

// PostgresStore implements Store on the templates table.
type PostgresStore struct {
	pool PoolOps
}

// NewPostgresStore creates a new Postgres-backed store.
func NewPostgresStore(pool PoolOps) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// List returns templates ordered by name.
func (s *PostgresStore) List(ctx context.Context, page pagination.Page) ([]Template, int, error) {
	query, args, err := psql.Select(append(templateColumns, "COUNT(*) OVER() AS total_count")...).
		From(templatesTable).
		OrderBy("name ASC").
		Limit(uint64(page.Limit)).
		Offset(uint64(page.Offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build select query: %w", err)
	}

	var rows []templateRowWithCount
	if err := pgxscan.Select(ctx, s.pool, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("listing templates: %w", err)
	}

	if len(rows) == 0 {
		if page.Offset == 0 {
			return []Template{}, 0, nil
		}
		// The window count is absent when the page is past the end.
		total, err := s.Count(ctx)
		if err != nil {
			return nil, 0, err
		}
		return []Template{}, total, nil
	}

	out := make([]Template, 0, len(rows))
	for i := range rows {
		t, err := rows[i].toTemplate()
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *t)
	}
	return out, int(rows[0].TotalCount), nil
}

// Get returns a template by id.
func (s *PostgresStore) Get(ctx context.Context, id string) (*Template, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	query, args, err := psql.Select(templateColumns...).
		From(templatesTable).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	var row templateRow
	if err := pgxscan.Get(ctx, s.pool, &row, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting template: %w", err)
	}
	return row.toTemplate()
}

// Count returns the number of stored templates.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	query, args, err := psql.Select("COUNT(*)").From(templatesTable).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}
	var n int64
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting templates: %w", err)
	}
	return int(n), nil
}

// Insert stores templates in one statement. Names that already exist are
// skipped so concurrent seeding is harmless.
func (s *PostgresStore) Insert(ctx context.Context, templates []Template) error {
	if len(templates) == 0 {
		return nil
	}
	builder := psql.Insert(templatesTable).Columns(templateColumns...)
	for _, t := range templates {
		data, err := json.Marshal(t.Data)
		if err != nil {
			return fmt.Errorf("encoding template %q: %w", t.Name, err)
		}
		builder = builder.Values(t.ID, t.Name, nullable(t.Description), data, nullable(t.Version), t.CreatedAt, t.UpdatedAt)
	}
	query, args, err := builder.Suffix("ON CONFLICT (name) DO NOTHING").ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting templates: %w", err)
	}
	return nil
}

func (r templateRow) toTemplate() (*Template, error) {
	var data map[string]any
	if err := json.Unmarshal(r.Data, &data); err != nil {
		return nil, fmt.Errorf("decoding template %s data: %w", r.ID, err)
	}
	t := &Template{
		ID:        r.ID,
		Name:      r.Name,
		Data:      data,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.Description != nil {
		t.Description = *r.Description
	}
	if r.Version != nil {
		t.Version = *r.Version
	}
	return t, nil
}

// validID accepts only the canonical 36 character form that Postgres
// parses as uuid.
func validID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var _ Store = (*PostgresStore)(nil)

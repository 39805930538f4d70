package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/dcdoc/dcform-cli/internal/model"
)

// Pool is the subset of *pgxpool.Pool the store uses. pgxmock pools satisfy
// it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS templates (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	hospital     TEXT NOT NULL,
	file_name    TEXT NOT NULL,
	mode         TEXT NOT NULL DEFAULT 'needs_tagging',
	placeholders JSONB NOT NULL DEFAULT '[]'::jsonb,
	document     BYTEA NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS tag_mappings (
	template_id TEXT PRIMARY KEY REFERENCES templates(id) ON DELETE CASCADE,
	mappings    JSONB NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_templates_hospital ON templates(hospital);
CREATE INDEX IF NOT EXISTS idx_templates_mode ON templates(mode);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateTemplate(ctx context.Context, t *model.Template) (*model.Template, error) {
	out := *t
	out.ID = uuid.New().String()
	now := time.Now().UTC()
	out.CreatedAt, out.UpdatedAt = now, now
	if out.Placeholders == nil {
		out.Placeholders = []string{}
	}
	out.Mode = model.ModeFor(out.Placeholders)

	phJSON, err := json.Marshal(out.Placeholders)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal placeholders")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO templates (id, hospital, file_name, mode, placeholders, document, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		out.ID, out.Hospital, out.FileName, string(out.Mode), phJSON, out.Document, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert template")
	}
	return &out, nil
}

func (s *PostgresStore) UpdateTemplateDocument(ctx context.Context, id string, document []byte, placeholders []string) (*model.Template, error) {
	if placeholders == nil {
		placeholders = []string{}
	}
	phJSON, err := json.Marshal(placeholders)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal placeholders")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE templates SET document = $1, placeholders = $2, mode = $3, updated_at = $4 WHERE id = $5`,
		document, phJSON, string(model.ModeFor(placeholders)), time.Now().UTC(), id,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: update template %s", id)
	}
	if tag.RowsAffected() == 0 {
		return nil, eris.Wrapf(ErrNotFound, "template %s", id)
	}
	return s.GetTemplate(ctx, id)
}

func (s *PostgresStore) GetTemplate(ctx context.Context, id string) (*model.Template, error) {
	var t model.Template
	var mode string
	var phJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT id, hospital, file_name, mode, placeholders, created_at, updated_at, document
		 FROM templates WHERE id = $1`,
		id,
	).Scan(&t.ID, &t.Hospital, &t.FileName, &mode, &phJSON, &t.CreatedAt, &t.UpdatedAt, &t.Document)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "template %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get template %s", id)
	}

	t.Mode = model.TemplateMode(mode)
	if err := json.Unmarshal(phJSON, &t.Placeholders); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal placeholders")
	}
	return &t, nil
}

// ListTemplates returns templates without their document bytes, newest first.
func (s *PostgresStore) ListTemplates(ctx context.Context, filter TemplateFilter) ([]model.Template, error) {
	query := `SELECT id, hospital, file_name, mode, placeholders, created_at, updated_at FROM templates WHERE 1=1`
	var args []any
	argN := 1

	if filter.Hospital != "" {
		query += ` AND hospital = $` + strconv.Itoa(argN)
		args = append(args, filter.Hospital)
		argN++
	}
	if filter.Mode != "" {
		query += ` AND mode = $` + strconv.Itoa(argN)
		args = append(args, string(filter.Mode))
		argN++
	}
	query += ` ORDER BY created_at DESC, id LIMIT $` + strconv.Itoa(argN)
	args = append(args, listLimit(filter))
	argN++

	if filter.Offset > 0 {
		query += ` OFFSET $` + strconv.Itoa(argN)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list templates")
	}
	defer rows.Close()

	var out []model.Template
	for rows.Next() {
		var t model.Template
		var mode string
		var phJSON []byte
		if err := rows.Scan(&t.ID, &t.Hospital, &t.FileName, &mode, &phJSON, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan template")
		}
		t.Mode = model.TemplateMode(mode)
		if err := json.Unmarshal(phJSON, &t.Placeholders); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal placeholders")
		}
		out = append(out, t)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list templates iterate")
}

// DeleteTemplate removes a template; its tag mappings cascade.
func (s *PostgresStore) DeleteTemplate(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM templates WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete template %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "template %s", id)
	}
	return nil
}

// SaveTagMappings replaces the stored mappings of a template.
func (s *PostgresStore) SaveTagMappings(ctx context.Context, templateID string, mappings []model.CellTagMapping) error {
	if mappings == nil {
		mappings = []model.CellTagMapping{}
	}
	data, err := json.Marshal(mappings)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal tag mappings")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin save tag mappings")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var exists int
	err = tx.QueryRow(ctx, `SELECT 1 FROM templates WHERE id = $1 FOR UPDATE`, templateID).Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
		return eris.Wrapf(ErrNotFound, "template %s", templateID)
	}
	if err != nil {
		return eris.Wrapf(err, "postgres: check template %s", templateID)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO tag_mappings (template_id, mappings, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (template_id) DO UPDATE SET mappings = EXCLUDED.mappings, updated_at = EXCLUDED.updated_at`,
		templateID, data, time.Now().UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: save tag mappings %s", templateID)
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit tag mappings")
}

// GetTagMappings returns the stored mappings, or nil when none were saved.
func (s *PostgresStore) GetTagMappings(ctx context.Context, templateID string) ([]model.CellTagMapping, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT mappings FROM tag_mappings WHERE template_id = $1`, templateID,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get tag mappings %s", templateID)
	}

	var out []model.CellTagMapping
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal tag mappings")
	}
	return out, nil
}

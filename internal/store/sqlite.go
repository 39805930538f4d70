package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/dcdoc/dcform-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS templates (
	id           TEXT PRIMARY KEY,
	hospital     TEXT NOT NULL,
	file_name    TEXT NOT NULL,
	mode         TEXT NOT NULL DEFAULT 'needs_tagging',
	placeholders TEXT NOT NULL DEFAULT '[]',
	document     BLOB NOT NULL,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS tag_mappings (
	template_id TEXT PRIMARY KEY,
	mappings    TEXT NOT NULL,
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_templates_hospital ON templates(hospital);
CREATE INDEX IF NOT EXISTS idx_templates_mode ON templates(mode);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateTemplate(ctx context.Context, t *model.Template) (*model.Template, error) {
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
		return nil, eris.Wrap(err, "sqlite: marshal placeholders")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO templates (id, hospital, file_name, mode, placeholders, document, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		out.ID, out.Hospital, out.FileName, string(out.Mode), string(phJSON), out.Document, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert template")
	}
	return &out, nil
}

func (s *SQLiteStore) UpdateTemplateDocument(ctx context.Context, id string, document []byte, placeholders []string) (*model.Template, error) {
	if placeholders == nil {
		placeholders = []string{}
	}
	phJSON, err := json.Marshal(placeholders)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal placeholders")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE templates SET document = ?, placeholders = ?, mode = ?, updated_at = ? WHERE id = ?`,
		document, string(phJSON), string(model.ModeFor(placeholders)), time.Now().UTC(), id,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: update template %s", id)
	}
	if err := checkRowsAffected(res, id); err != nil {
		return nil, err
	}
	return s.GetTemplate(ctx, id)
}

func (s *SQLiteStore) GetTemplate(ctx context.Context, id string) (*model.Template, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, hospital, file_name, mode, placeholders, created_at, updated_at, document
		 FROM templates WHERE id = ?`,
		id,
	)

	var t model.Template
	var phJSON string
	err := row.Scan(&t.ID, &t.Hospital, &t.FileName, &t.Mode, &phJSON, &t.CreatedAt, &t.UpdatedAt, &t.Document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "template %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get template %s", id)
	}
	if err := json.Unmarshal([]byte(phJSON), &t.Placeholders); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal placeholders")
	}
	return &t, nil
}

// ListTemplates returns templates without their document bytes, newest first.
func (s *SQLiteStore) ListTemplates(ctx context.Context, filter TemplateFilter) ([]model.Template, error) {
	query := `SELECT id, hospital, file_name, mode, placeholders, created_at, updated_at FROM templates WHERE 1=1`
	var args []any

	if filter.Hospital != "" {
		query += ` AND hospital = ?`
		args = append(args, filter.Hospital)
	}
	if filter.Mode != "" {
		query += ` AND mode = ?`
		args = append(args, string(filter.Mode))
	}
	query += ` ORDER BY created_at DESC, id LIMIT ?`
	args = append(args, listLimit(filter))

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list templates")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Template
	for rows.Next() {
		var t model.Template
		var phJSON string
		if err := rows.Scan(&t.ID, &t.Hospital, &t.FileName, &t.Mode, &phJSON, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan template")
		}
		if err := json.Unmarshal([]byte(phJSON), &t.Placeholders); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal placeholders")
		}
		out = append(out, t)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list templates iterate")
}

// DeleteTemplate removes a template together with its tag mappings.
func (s *SQLiteStore) DeleteTemplate(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin delete template")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM tag_mappings WHERE template_id = ?`, id); err != nil {
		return eris.Wrapf(err, "sqlite: delete tag mappings %s", id)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM templates WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete template %s", id)
	}
	if err := checkRowsAffected(res, id); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit delete template")
}

// SaveTagMappings replaces the stored mappings of a template.
func (s *SQLiteStore) SaveTagMappings(ctx context.Context, templateID string, mappings []model.CellTagMapping) error {
	if mappings == nil {
		mappings = []model.CellTagMapping{}
	}
	data, err := json.Marshal(mappings)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal tag mappings")
	}

	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM templates WHERE id = ?`, templateID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return eris.Wrapf(ErrNotFound, "template %s", templateID)
	}
	if err != nil {
		return eris.Wrapf(err, "sqlite: check template %s", templateID)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tag_mappings (template_id, mappings, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(template_id) DO UPDATE SET mappings = excluded.mappings, updated_at = excluded.updated_at`,
		templateID, string(data), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: save tag mappings %s", templateID)
}

// GetTagMappings returns the stored mappings, or nil when none were saved.
func (s *SQLiteStore) GetTagMappings(ctx context.Context, templateID string) ([]model.CellTagMapping, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT mappings FROM tag_mappings WHERE template_id = ?`, templateID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get tag mappings %s", templateID)
	}

	var out []model.CellTagMapping
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal tag mappings")
	}
	return out, nil
}

// helpers

func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "template %s", id)
	}
	return nil
}

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcdoc/dcform-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

var templateColumns = []string{"id", "hospital", "file_name", "mode", "placeholders", "created_at", "updated_at"}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS templates`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateTemplate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO templates`).
		WithArgs(pgxmock.AnyArg(), "서울병원", "dc.docx", "tagged", []byte(`["efficacy"]`), []byte("doc"), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	got, err := s.CreateTemplate(context.Background(), &model.Template{
		Hospital:     "서울병원",
		FileName:     "dc.docx",
		Placeholders: []string{"efficacy"},
		Document:     []byte("doc"),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, model.ModeTagged, got.Mode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateTemplate_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO templates`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("connection lost"))

	_, err := s.CreateTemplate(context.Background(), &model.Template{Hospital: "h", Document: []byte("doc")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert template")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetTemplate(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT id, hospital, file_name, mode, placeholders, created_at, updated_at, document\s+FROM templates WHERE id = \$1`).
		WithArgs("tmpl-1").
		WillReturnRows(pgxmock.NewRows(append(templateColumns, "document")).
			AddRow("tmpl-1", "서울병원", "dc.docx", "tagged", []byte(`["efficacy","safety"]`), now, now, []byte("doc")))

	got, err := s.GetTemplate(context.Background(), "tmpl-1")
	require.NoError(t, err)
	assert.Equal(t, "서울병원", got.Hospital)
	assert.Equal(t, model.ModeTagged, got.Mode)
	assert.Equal(t, []string{"efficacy", "safety"}, got.Placeholders)
	assert.Equal(t, []byte("doc"), got.Document)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetTemplate_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM templates WHERE id = \$1`).
		WithArgs("nonexistent").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetTemplate(context.Background(), "nonexistent")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateTemplateDocument_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE templates SET document = \$1`).
		WithArgs([]byte("doc"), []byte(`[]`), "needs_tagging", pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	_, err := s.UpdateTemplateDocument(context.Background(), "missing", []byte("doc"), nil)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListTemplates_Filters(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`AND hospital = \$1 AND mode = \$2 ORDER BY created_at DESC, id LIMIT \$3 OFFSET \$4`).
		WithArgs("서울병원", "tagged", 10, 20).
		WillReturnRows(pgxmock.NewRows(templateColumns).
			AddRow("tmpl-1", "서울병원", "a.docx", "tagged", []byte(`["efficacy"]`), now, now).
			AddRow("tmpl-2", "서울병원", "b.docx", "tagged", []byte(`["safety"]`), now, now))

	got, err := s.ListTemplates(context.Background(), TemplateFilter{
		Hospital: "서울병원",
		Mode:     model.ModeTagged,
		Limit:    10,
		Offset:   20,
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b.docx", got[1].FileName)
	assert.Equal(t, []string{"safety"}, got[1].Placeholders)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListTemplates_DefaultLimit(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`WHERE 1=1 ORDER BY created_at DESC, id LIMIT \$1$`).
		WithArgs(100).
		WillReturnRows(pgxmock.NewRows(templateColumns))

	got, err := s.ListTemplates(context.Background(), TemplateFilter{})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteTemplate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM templates WHERE id = \$1`).
		WithArgs("tmpl-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM templates WHERE id = \$1`).
		WithArgs("tmpl-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, s.DeleteTemplate(context.Background(), "tmpl-1"))
	err := s.DeleteTemplate(context.Background(), "tmpl-1")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveTagMappings(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT 1 FROM templates WHERE id = \$1 FOR UPDATE`).
		WithArgs("tmpl-1").
		WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectExec(`INSERT INTO tag_mappings .* ON CONFLICT \(template_id\) DO UPDATE`).
		WithArgs("tmpl-1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := s.SaveTagMappings(context.Background(), "tmpl-1", []model.CellTagMapping{
		{CellCoord: model.CellCoord{Table: 0, Row: 1, Cell: 1}, PlaceholderKey: "efficacy", Confidence: model.ConfidenceHigh},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveTagMappings_TemplateMissing(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT 1 FROM templates`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	err := s.SaveTagMappings(context.Background(), "missing", nil)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetTagMappings(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT mappings FROM tag_mappings WHERE template_id = \$1`).
		WithArgs("tmpl-1").
		WillReturnRows(pgxmock.NewRows([]string{"mappings"}).
			AddRow([]byte(`[{"table_index":0,"row_index":1,"cell_index":1,"question":"효능","placeholder_key":"efficacy","confidence":"high"}]`)))
	mock.ExpectQuery(`SELECT mappings FROM tag_mappings`).
		WithArgs("tmpl-2").
		WillReturnError(pgx.ErrNoRows)

	got, err := s.GetTagMappings(context.Background(), "tmpl-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.CellCoord{Table: 0, Row: 1, Cell: 1}, got[0].CellCoord)
	assert.Equal(t, "efficacy", got[0].PlaceholderKey)
	assert.Equal(t, model.ConfidenceHigh, got[0].Confidence)

	got, err = s.GetTagMappings(context.Background(), "tmpl-2")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package db

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/dbtranslate/internal/schema"
)

var (
	tablesQuery      = regexp.QuoteMeta("FROM information_schema.tables")
	columnsQuery     = regexp.QuoteMeta("FROM information_schema.columns c WHERE")
	constraintsQuery = regexp.QuoteMeta("FROM information_schema.table_constraints tc")

	columnHeaders     = []string{"column_name", "column_type", "is_nullable", "column_key", "column_default", "extra"}
	constraintHeaders = []string{
		"constraint_name", "constraint_type", "column_name", "ordinal_position",
		"referenced_table_name", "referenced_column_name", "delete_rule", "update_rule",
		"index_name", "non_unique",
	}
)

func newMockExtractor(t *testing.T) (*MySQLExtractor, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	return NewMySQLExtractor(NewMySQLClientFromDB(mockDB), nil), mock
}

func TestExtractTablesUsers(t *testing.T) {
	extractor, mock := newMockExtractor(t)

	mock.ExpectQuery(tablesQuery).
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("users"))
	mock.ExpectQuery(columnsQuery).WithArgs("users").
		WillReturnRows(sqlmock.NewRows(columnHeaders).
			AddRow("id", "int", "NO", "PRI", nil, "auto_increment").
			AddRow("email", "varchar(191)", "NO", "UNI", nil, "").
			AddRow("created_at", "timestamp", "YES", "", "CURRENT_TIMESTAMP", "DEFAULT_GENERATED"))
	mock.ExpectQuery(constraintsQuery).WithArgs("users", "users").
		WillReturnRows(sqlmock.NewRows(constraintHeaders).
			AddRow(nil, nil, "id", int64(1), nil, nil, nil, nil, "PRIMARY", int64(0)).
			AddRow(nil, nil, "email", int64(1), nil, nil, nil, nil, "email", int64(0)).
			AddRow("email", "UNIQUE", "email", int64(1), nil, nil, nil, nil, nil, nil))

	tables, reports := extractor.ExtractTables(context.Background())
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Empty(t, reports)
	require.Len(t, tables, 1)

	users := tables[0]
	assert.Equal(t, "users", users.Name)
	require.Len(t, users.Columns, 3)

	assert.Equal(t, schema.KeyPrimary, users.Columns[0].Key)
	assert.False(t, users.Columns[0].Nullable)
	assert.Equal(t, "auto_increment", users.Columns[0].Extra)
	assert.Nil(t, users.Columns[0].Default)

	assert.Equal(t, schema.KeyUnique, users.Columns[1].Key)
	assert.Equal(t, "varchar(191)", users.Columns[1].Type)

	assert.True(t, users.Columns[2].Nullable)
	require.NotNil(t, users.Columns[2].Default)
	assert.Equal(t, "CURRENT_TIMESTAMP", *users.Columns[2].Default)

	assert.Equal(t, []schema.Key{
		schema.UniqueComposite{ConstraintName: "email", Columns: []string{"email"}},
	}, users.Keys)
}

func TestExtractTablesSkipsFailingTable(t *testing.T) {
	extractor, mock := newMockExtractor(t)

	mock.ExpectQuery(tablesQuery).
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("broken").AddRow("posts").AddRow("empty"))

	mock.ExpectQuery(columnsQuery).WithArgs("broken").WillReturnError(errors.New("access denied"))

	mock.ExpectQuery(columnsQuery).WithArgs("posts").
		WillReturnRows(sqlmock.NewRows(columnHeaders).AddRow("id", "bigint unsigned", "NO", "PRI", nil, ""))
	mock.ExpectQuery(constraintsQuery).WithArgs("posts", "posts").
		WillReturnRows(sqlmock.NewRows(constraintHeaders))

	mock.ExpectQuery(columnsQuery).WithArgs("empty").
		WillReturnRows(sqlmock.NewRows(columnHeaders))
	mock.ExpectQuery(constraintsQuery).WithArgs("empty", "empty").
		WillReturnRows(sqlmock.NewRows(constraintHeaders))

	tables, reports := extractor.ExtractTables(context.Background())
	require.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, tables, 1)
	assert.Equal(t, "posts", tables[0].Name)

	require.Len(t, reports, 1)
	assert.Equal(t, "broken", reports[0].Table)
	assert.ErrorContains(t, reports[0], "access denied")
}

func TestExtractTablesConstraintQueryFailure(t *testing.T) {
	extractor, mock := newMockExtractor(t)

	mock.ExpectQuery(tablesQuery).
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("orders"))
	mock.ExpectQuery(columnsQuery).WithArgs("orders").
		WillReturnRows(sqlmock.NewRows(columnHeaders).AddRow("id", "int", "NO", "PRI", nil, ""))
	mock.ExpectQuery(constraintsQuery).WithArgs("orders", "orders").
		WillReturnError(sql.ErrConnDone)

	tables, reports := extractor.ExtractTables(context.Background())
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Empty(t, tables)
	require.Len(t, reports, 1)
	assert.ErrorIs(t, reports[0], sql.ErrConnDone)
}

func TestExtractTablesListingFailure(t *testing.T) {
	extractor, mock := newMockExtractor(t)

	mock.ExpectQuery(tablesQuery).WillReturnError(errors.New("no database selected"))

	tables, reports := extractor.ExtractTables(context.Background())
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Empty(t, tables)
	require.Len(t, reports, 1)
	assert.Equal(t, AllTables, reports[0].Table)
}

func TestGroupKeys(t *testing.T) {
	str := func(s string) sql.NullString { return sql.NullString{String: s, Valid: true} }
	num := func(n int64) sql.NullInt64 { return sql.NullInt64{Int64: n, Valid: true} }

	rows := []constraintRow{
		{columnName: str("tenant_id"), ordinalPosition: num(1), indexName: str("idx_tenant_slug"), nonUnique: num(1)},
		{columnName: str("owner_id"), ordinalPosition: num(1), indexName: str("fk_owner"), nonUnique: num(1)},
		{columnName: str("id"), ordinalPosition: num(1), indexName: str("PRIMARY"), nonUnique: num(0)},
		{columnName: str("slug"), ordinalPosition: num(2), indexName: str("idx_tenant_slug"), nonUnique: num(1)},
		{
			constraintName: str("fk_owner"), constraintType: str("FOREIGN KEY"),
			columnName: str("owner_id"), ordinalPosition: num(1),
			referencedTableName: str("users"), referencedColumnName: str("id"),
			deleteRule: str("CASCADE"), updateRule: str("RESTRICT"),
		},
		{
			constraintName: str("fk_owner"), constraintType: str("FOREIGN KEY"),
			columnName: str("owner_tenant"), ordinalPosition: num(2),
			referencedTableName: str("users"), referencedColumnName: str("tenant_id"),
			deleteRule: str("CASCADE"), updateRule: str("RESTRICT"),
		},
		{constraintName: str("uq_name"), constraintType: str("UNIQUE"), columnName: str("tenant_id"), ordinalPosition: num(1)},
		{constraintName: str("uq_name"), constraintType: str("UNIQUE"), columnName: str("name"), ordinalPosition: num(2)},
	}

	keys := groupKeys(rows)

	assert.Equal(t, []schema.Key{
		schema.Index{Name: "idx_tenant_slug", Columns: []string{"tenant_id", "slug"}},
		schema.Index{Name: "fk_owner", Columns: []string{"owner_id"}},
		schema.ForeignKey{
			ConstraintName:    "fk_owner",
			Columns:           []string{"owner_id", "owner_tenant"},
			ReferencedTable:   "users",
			ReferencedColumns: []string{"id", "tenant_id"},
			OnDelete:          "CASCADE",
			OnUpdate:          "RESTRICT",
		},
		schema.UniqueComposite{ConstraintName: "uq_name", Columns: []string{"tenant_id", "name"}},
	}, keys)
}

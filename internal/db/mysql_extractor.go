package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/tordrt/dbtranslate/internal/schema"
)

// AllTables names the report entry used when the table listing itself fails
const AllTables = "*"

// TableError reports a table that could not be introspected
type TableError struct {
	Table string
	Err   error
}

func (e TableError) Error() string {
	return fmt.Sprintf("table %s: %v", e.Table, e.Err)
}

func (e TableError) Unwrap() error {
	return e.Err
}

// MySQLExtractor handles schema extraction from MySQL
type MySQLExtractor struct {
	client *MySQLClient
	logger *zap.Logger
}

// NewMySQLExtractor creates a new MySQL schema extractor
func NewMySQLExtractor(client *MySQLClient, logger *zap.Logger) *MySQLExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MySQLExtractor{
		client: client,
		logger: logger,
	}
}

// ExtractTables describes every base table of the connected schema.
// A table whose queries fail is skipped and reported; extraction never stops early.
func (e *MySQLExtractor) ExtractTables(ctx context.Context) ([]schema.Table, []TableError) {
	var reports []TableError

	tableNames, err := e.getTableNames(ctx)
	if err != nil {
		e.logger.Warn("failed to list tables", zap.Error(err))
		return nil, []TableError{{Table: AllTables, Err: err}}
	}

	var tables []schema.Table
	for _, tableName := range tableNames {
		table, err := e.extractTable(ctx, tableName)
		if err != nil {
			e.logger.Warn("skipping table", zap.String("table", tableName), zap.Error(err))
			reports = append(reports, TableError{Table: tableName, Err: err})
			continue
		}
		if len(table.Columns) == 0 {
			e.logger.Debug("skipping table without columns", zap.String("table", tableName))
			continue
		}
		tables = append(tables, *table)
	}

	return tables, reports
}

// getTableNames lists base tables in catalog order
func (e *MySQLExtractor) getTableNames(ctx context.Context) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, err
		}
		tables = append(tables, tableName)
	}

	return tables, rows.Err()
}

// extractTable extracts all information for a single table
func (e *MySQLExtractor) extractTable(ctx context.Context, tableName string) (*schema.Table, error) {
	table := &schema.Table{Name: tableName}

	columns, err := e.extractColumns(ctx, tableName)
	if err != nil {
		return nil, errors.Wrap(err, "failed to extract columns")
	}
	table.Columns = columns

	keys, err := e.extractKeys(ctx, tableName)
	if err != nil {
		return nil, errors.Wrap(err, "failed to extract keys")
	}
	table.Keys = keys

	return table, nil
}

// extractColumns extracts column information for a table
func (e *MySQLExtractor) extractColumns(ctx context.Context, tableName string) ([]schema.Column, error) {
	query := `
		SELECT
			c.column_name,
			c.column_type,
			c.is_nullable,
			c.column_key,
			c.column_default,
			c.extra
		FROM information_schema.columns c
		WHERE c.table_schema = DATABASE() AND c.table_name = ?
		ORDER BY c.ordinal_position
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []schema.Column
	for rows.Next() {
		var col schema.Column
		var nullable, key string
		var defaultVal, extra sql.NullString

		if err := rows.Scan(&col.Field, &col.Type, &nullable, &key, &defaultVal, &extra); err != nil {
			return nil, err
		}

		col.Nullable = (nullable == "YES")
		col.Key = schema.ParseKeyFlag(key)
		if defaultVal.Valid {
			v := defaultVal.String
			col.Default = &v
		}
		col.Extra = extra.String

		columns = append(columns, col)
	}

	return columns, rows.Err()
}

// constraintRow is one row of the combined constraint/index query
type constraintRow struct {
	constraintName       sql.NullString
	constraintType       sql.NullString
	columnName           sql.NullString
	ordinalPosition      sql.NullInt64
	referencedTableName  sql.NullString
	referencedColumnName sql.NullString
	deleteRule           sql.NullString
	updateRule           sql.NullString
	indexName            sql.NullString
	nonUnique            sql.NullInt64
}

// extractKeys runs the combined declared-constraint and index-statistics query
// and groups its rows into keys
func (e *MySQLExtractor) extractKeys(ctx context.Context, tableName string) ([]schema.Key, error) {
	query := `
		SELECT
			constraint_name,
			constraint_type,
			column_name,
			ordinal_position,
			referenced_table_name,
			referenced_column_name,
			delete_rule,
			update_rule,
			index_name,
			non_unique
		FROM (
			SELECT
				tc.constraint_name AS constraint_name,
				tc.constraint_type AS constraint_type,
				kcu.column_name AS column_name,
				kcu.ordinal_position AS ordinal_position,
				kcu.referenced_table_name AS referenced_table_name,
				kcu.referenced_column_name AS referenced_column_name,
				rc.delete_rule AS delete_rule,
				rc.update_rule AS update_rule,
				NULL AS index_name,
				NULL AS non_unique
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
				ON tc.constraint_name = kcu.constraint_name
				AND tc.table_schema = kcu.table_schema
				AND tc.table_name = kcu.table_name
			JOIN information_schema.columns c
				ON kcu.column_name = c.column_name
				AND kcu.table_name = c.table_name
				AND kcu.table_schema = c.table_schema
			LEFT JOIN information_schema.referential_constraints rc
				ON rc.constraint_name = tc.constraint_name
				AND rc.constraint_schema = tc.table_schema
			WHERE tc.table_schema = DATABASE()
				AND tc.table_name = ?
				AND tc.constraint_type NOT IN ('PRIMARY KEY', 'CHECK')
			UNION ALL
			SELECT
				NULL,
				NULL,
				s.column_name,
				s.seq_in_index,
				NULL,
				NULL,
				NULL,
				NULL,
				s.index_name,
				s.non_unique
			FROM information_schema.statistics s
			WHERE s.table_schema = DATABASE()
				AND s.table_name = ?
		) AS combined_data
		ORDER BY constraint_name, ordinal_position
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query, tableName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var constraintRows []constraintRow
	for rows.Next() {
		var r constraintRow
		if err := rows.Scan(
			&r.constraintName,
			&r.constraintType,
			&r.columnName,
			&r.ordinalPosition,
			&r.referencedTableName,
			&r.referencedColumnName,
			&r.deleteRule,
			&r.updateRule,
			&r.indexName,
			&r.nonUnique,
		); err != nil {
			return nil, err
		}
		constraintRows = append(constraintRows, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return groupKeys(constraintRows), nil
}

// groupKeys collapses per-column rows into one key per constraint or index name,
// keeping first-seen order
func groupKeys(rows []constraintRow) []schema.Key {
	var order []string
	foreign := make(map[string]*schema.ForeignKey)
	unique := make(map[string]*schema.UniqueComposite)
	indexes := make(map[string]*schema.Index)

	for _, r := range rows {
		switch {
		case r.constraintName.Valid && r.constraintType.String == "FOREIGN KEY":
			if !r.referencedTableName.Valid || !r.referencedColumnName.Valid {
				continue
			}
			name := r.constraintName.String
			fk, ok := foreign[name]
			if !ok {
				fk = &schema.ForeignKey{
					ConstraintName:  name,
					ReferencedTable: r.referencedTableName.String,
					OnDelete:        r.deleteRule.String,
					OnUpdate:        r.updateRule.String,
				}
				foreign[name] = fk
				order = append(order, "f:"+name)
			}
			fk.Columns = append(fk.Columns, r.columnName.String)
			fk.ReferencedColumns = append(fk.ReferencedColumns, r.referencedColumnName.String)

		case r.constraintName.Valid && r.constraintType.String == "UNIQUE":
			name := r.constraintName.String
			uc, ok := unique[name]
			if !ok {
				uc = &schema.UniqueComposite{ConstraintName: name}
				unique[name] = uc
				order = append(order, "u:"+name)
			}
			uc.Columns = append(uc.Columns, r.columnName.String)

		case !r.constraintName.Valid && r.indexName.Valid:
			// Unique indexes are already reported as UNIQUE constraints
			if r.indexName.String == "PRIMARY" || (r.nonUnique.Valid && r.nonUnique.Int64 == 0) {
				continue
			}
			name := r.indexName.String
			idx, ok := indexes[name]
			if !ok {
				idx = &schema.Index{Name: name}
				indexes[name] = idx
				order = append(order, "i:"+name)
			}
			idx.Columns = append(idx.Columns, r.columnName.String)
		}
	}

	keys := make([]schema.Key, 0, len(order))
	for _, id := range order {
		name := id[2:]
		switch id[:2] {
		case "f:":
			keys = append(keys, *foreign[name])
		case "u:":
			keys = append(keys, *unique[name])
		case "i:":
			keys = append(keys, *indexes[name])
		}
	}
	return keys
}

// Introspect connects to connString and extracts every table.
// Only a failure to connect is returned as an error.
func Introspect(ctx context.Context, connString string, logger *zap.Logger) ([]schema.Table, []TableError, error) {
	client, err := NewMySQLClient(ctx, connString)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to connect to MySQL")
	}
	defer func() { _ = client.Close() }()

	tables, reports := NewMySQLExtractor(client, logger).ExtractTables(ctx)
	return tables, reports, nil
}

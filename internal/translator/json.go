package translator

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/tordrt/dbtranslate/internal/schema"
)

// Document is the JSON file layout: table name to column name to column description
type Document struct {
	Tables map[string]map[string]string `json:"tables"`
}

// NewDocument describes tables
func NewDocument(tables []schema.Table) Document {
	doc := Document{Tables: make(map[string]map[string]string, len(tables))}
	for _, t := range tables {
		columns := make(map[string]string, len(t.Columns))
		for _, col := range t.Columns {
			columns[col.Field] = DescribeColumn(col)
		}
		doc.Tables[t.Name] = columns
	}
	return doc
}

// DescribeColumn renders "<type>[ <KEY>][ NOT NULL][ AUTO_INCREMENT]"
func DescribeColumn(col schema.Column) string {
	parts := []string{col.Type}
	if key := col.Key.String(); key != "" {
		parts = append(parts, key)
	}
	if !col.Nullable {
		parts = append(parts, "NOT NULL")
	}
	if strings.Contains(strings.ToLower(col.Extra), "auto_increment") {
		parts = append(parts, "AUTO_INCREMENT")
	}
	return strings.Join(parts, " ")
}

// JSONTranslator writes and reads JSON table descriptions
type JSONTranslator struct {
	path   string
	logger *zap.Logger

	disk     *Document
	database *Document
}

// NewJSONTranslator creates a translator bound to path
func NewJSONTranslator(path string, logger *zap.Logger) *JSONTranslator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JSONTranslator{path: path, logger: logger}
}

// WriteToDisk overwrites the bound file with the description of tables
func (j *JSONTranslator) WriteToDisk(tables []schema.Table) error {
	data, err := marshalDocument(NewDocument(tables))
	if err != nil {
		return err
	}

	j.logger.Debug("writing json file", zap.String("path", j.path), zap.Int("tables", len(tables)))
	if err := os.WriteFile(j.path, data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write %s", j.path)
	}
	return nil
}

// LoadFromDisk decodes the bound file unless a disk document is already loaded
func (j *JSONTranslator) LoadFromDisk() error {
	if j.disk != nil {
		return nil
	}

	data, err := os.ReadFile(j.path)
	if err != nil {
		return errors.Wrapf(err, "failed to read %s", j.path)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return errors.Wrapf(err, "failed to decode %s", j.path)
	}
	j.disk = &doc
	return nil
}

// LoadFromDatabase replaces the database-side document
func (j *JSONTranslator) LoadFromDatabase(tables []schema.Table) {
	doc := NewDocument(tables)
	j.database = &doc
}

// DiskDocument returns the document loaded from the bound file, or nil
func (j *JSONTranslator) DiskDocument() *Document {
	return j.disk
}

// DatabaseDocument returns the document built from the database, or nil
func (j *JSONTranslator) DatabaseDocument() *Document {
	return j.database
}

func (j *JSONTranslator) String() string {
	var b strings.Builder
	for _, side := range []struct {
		label string
		doc   *Document
	}{
		{diskLabel, j.disk},
		{databaseLabel, j.database},
	} {
		if side.doc == nil {
			continue
		}
		data, err := marshalDocument(*side.doc)
		if err != nil {
			j.logger.Warn("failed to render json document", zap.Error(err))
			continue
		}
		b.WriteString(side.label)
		b.Write(data)
		b.WriteString("\n\n")
	}
	return b.String()
}

func marshalDocument(doc Document) ([]byte, error) {
	if doc.Tables == nil {
		doc.Tables = map[string]map[string]string{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode json document")
	}
	return append(data, '\n'), nil
}

package ngram

import (
	"context"
	"fmt"

	"github.com/redbco/ngram-search/internal/database/common"
)

// SchemaReader returns a fresh structural snapshot of one table
type SchemaReader interface {
	TableSchema(ctx context.Context, table string) (*common.TableSchema, error)
}

// Inspector resolves the auto-generated names of the full-text index and its
// dependent foreign key from the live schema. Every call reads a new
// snapshot.
type Inspector struct {
	reader SchemaReader
}

// NewInspector creates an inspector over reader
func NewInspector(reader SchemaReader) *Inspector {
	return &Inspector{reader: reader}
}

// ResolveForeignKey returns the name of the table's first foreign key, which
// must start with SentinelColumn.
func (i *Inspector) ResolveForeignKey(ctx context.Context, table string, process Process) (string, error) {
	schema, err := i.snapshot(ctx, table)
	if err != nil {
		return "", err
	}
	return ForeignKeyName(schema, process)
}

// ResolveFulltextIndex returns the name of the first index covering exactly
// FulltextColumns, in order.
func (i *Inspector) ResolveFulltextIndex(ctx context.Context, table string, process Process) (string, error) {
	schema, err := i.snapshot(ctx, table)
	if err != nil {
		return "", err
	}
	return FulltextIndexName(schema, process)
}

func (i *Inspector) snapshot(ctx context.Context, table string) (*common.TableSchema, error) {
	schema, err := i.reader.TableSchema(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema of %s: %w", table, err)
	}
	if schema.Table == "" {
		schema.Table = table
	}
	return schema, nil
}

// ForeignKeyName validates the first foreign key of schema against the
// expected shape and returns its name.
func ForeignKeyName(schema *common.TableSchema, process Process) (string, error) {
	if len(schema.ForeignKeys) == 0 {
		return "", newSchemaError(schema.Table, process, "no foreign key found")
	}

	fk := schema.ForeignKeys[0]
	if len(fk.LocalColumns) == 0 {
		return "", newSchemaError(schema.Table, process, "foreign key %s has no columns", fk.Name)
	}
	if fk.LocalColumns[0] != SentinelColumn {
		return "", newSchemaError(schema.Table, process,
			"foreign key %s is on column %s, expected %s", fk.Name, fk.LocalColumns[0], SentinelColumn)
	}
	return fk.Name, nil
}

// FulltextIndexName returns the name of the first index of schema whose
// column list equals FulltextColumns.
func FulltextIndexName(schema *common.TableSchema, process Process) (string, error) {
	idx, ok := findFulltextIndex(schema)
	if !ok {
		return "", newSchemaError(schema.Table, process, "no index on columns %v found", FulltextColumns)
	}
	return idx.Name, nil
}

func findFulltextIndex(schema *common.TableSchema) (common.IndexInfo, bool) {
	for _, idx := range schema.Indexes {
		if columnsEqual(idx.Columns, FulltextColumns) {
			return idx, true
		}
	}
	return common.IndexInfo{}, false
}

package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/redbco/ngram-search/internal/database/common"
)

// fulltextParserPattern matches the full-text key lines of SHOW CREATE TABLE,
// e.g. "FULLTEXT KEY `IDX_1` (`title`,`text`) /*!50100 WITH PARSER `ngram` */".
var fulltextParserPattern = regexp.MustCompile("(?i)FULLTEXT\\s+KEY\\s+`((?:[^`]|``)+)`\\s*\\([^)]*\\)[^\\n]*?WITH\\s+PARSER\\s+`?([A-Za-z0-9_]+)`?")

// discoverTableSchema reads indexes and foreign keys of one table in the
// current database
func discoverTableSchema(ctx context.Context, db *sql.DB, table string) (*common.TableSchema, error) {
	schema := &common.TableSchema{Table: table}

	indexes, err := discoverIndexes(ctx, db, table)
	if err != nil {
		return nil, fmt.Errorf("error discovering indexes of %s: %w", table, err)
	}

	if hasFulltext(indexes) {
		createSQL, err := showCreateTable(ctx, db, table)
		if err != nil {
			return nil, fmt.Errorf("error reading definition of %s: %w", table, err)
		}
		applyFulltextParsers(indexes, parseFulltextParsers(createSQL))
	}
	schema.Indexes = indexes

	foreignKeys, err := discoverForeignKeys(ctx, db, table)
	if err != nil {
		return nil, fmt.Errorf("error discovering foreign keys of %s: %w", table, err)
	}
	schema.ForeignKeys = foreignKeys

	return schema, nil
}

// discoverIndexes lists the non-primary indexes of a table ordered by name
func discoverIndexes(ctx context.Context, db *sql.DB, table string) ([]common.IndexInfo, error) {
	query := `
		SELECT
			index_name,
			GROUP_CONCAT(column_name ORDER BY seq_in_index SEPARATOR ','),
			MAX(non_unique),
			MAX(index_type)
		FROM information_schema.statistics
		WHERE table_schema = DATABASE()
		AND table_name = ?
		AND index_name != 'PRIMARY'
		GROUP BY index_name
		ORDER BY index_name`

	rows, err := db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("error querying indexes: %w", err)
	}
	defer rows.Close()

	var indexes []common.IndexInfo
	for rows.Next() {
		var indexName, columnsStr, indexType string
		var nonUnique int
		if err := rows.Scan(&indexName, &columnsStr, &nonUnique, &indexType); err != nil {
			return nil, fmt.Errorf("error scanning index row: %w", err)
		}

		indexes = append(indexes, common.IndexInfo{
			Name:     indexName,
			Columns:  splitColumns(columnsStr),
			IsUnique: nonUnique == 0,
			Type:     indexType,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating index rows: %w", err)
	}

	return indexes, nil
}

// foreignKeyRow is one row of key_column_usage joined with
// referential_constraints
type foreignKeyRow struct {
	constraintName   string
	columnName       string
	referencedTable  string
	referencedColumn string
	updateRule       string
	deleteRule       string
}

// discoverForeignKeys lists the foreign keys of a table ordered by
// constraint name, columns in key order
func discoverForeignKeys(ctx context.Context, db *sql.DB, table string) ([]common.ForeignKeyInfo, error) {
	query := `
		SELECT
			k.constraint_name,
			k.column_name,
			k.referenced_table_name,
			k.referenced_column_name,
			r.update_rule,
			r.delete_rule
		FROM information_schema.key_column_usage k
		JOIN information_schema.referential_constraints r
			ON r.constraint_schema = k.constraint_schema
			AND r.constraint_name = k.constraint_name
			AND r.table_name = k.table_name
		WHERE k.table_schema = DATABASE()
		AND k.table_name = ?
		AND k.referenced_table_name IS NOT NULL
		ORDER BY k.constraint_name, k.ordinal_position`

	rows, err := db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("error querying foreign keys: %w", err)
	}
	defer rows.Close()

	var fkRows []foreignKeyRow
	for rows.Next() {
		var r foreignKeyRow
		if err := rows.Scan(&r.constraintName, &r.columnName, &r.referencedTable, &r.referencedColumn, &r.updateRule, &r.deleteRule); err != nil {
			return nil, fmt.Errorf("error scanning foreign key row: %w", err)
		}
		fkRows = append(fkRows, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating foreign key rows: %w", err)
	}

	return groupForeignKeyRows(fkRows), nil
}

// groupForeignKeyRows folds per-column rows into one entry per constraint,
// keeping the order in which constraints first appear
func groupForeignKeyRows(rows []foreignKeyRow) []common.ForeignKeyInfo {
	var foreignKeys []common.ForeignKeyInfo
	position := make(map[string]int)

	for _, r := range rows {
		i, seen := position[r.constraintName]
		if !seen {
			position[r.constraintName] = len(foreignKeys)
			foreignKeys = append(foreignKeys, common.ForeignKeyInfo{
				Name:            r.constraintName,
				ReferencedTable: r.referencedTable,
				OnUpdate:        r.updateRule,
				OnDelete:        r.deleteRule,
			})
			i = len(foreignKeys) - 1
		}
		foreignKeys[i].LocalColumns = append(foreignKeys[i].LocalColumns, r.columnName)
		foreignKeys[i].ReferencedColumns = append(foreignKeys[i].ReferencedColumns, r.referencedColumn)
	}

	return foreignKeys
}

func hasFulltext(indexes []common.IndexInfo) bool {
	for _, idx := range indexes {
		if strings.EqualFold(idx.Type, "FULLTEXT") {
			return true
		}
	}
	return false
}

func showCreateTable(ctx context.Context, db *sql.DB, table string) (string, error) {
	var name, createSQL string
	query := fmt.Sprintf("SHOW CREATE TABLE %s", QuoteIdentifier(table))
	if err := db.QueryRowContext(ctx, query).Scan(&name, &createSQL); err != nil {
		return "", err
	}
	return createSQL, nil
}

// parseFulltextParsers maps full-text index names to the parser named in
// their WITH PARSER clause. Indexes without a parser are absent.
func parseFulltextParsers(createSQL string) map[string]string {
	parsers := make(map[string]string)
	for _, line := range strings.Split(createSQL, "\n") {
		m := fulltextParserPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name := strings.ReplaceAll(m[1], "``", "`")
		parsers[name] = strings.ToLower(m[2])
	}
	return parsers
}

func applyFulltextParsers(indexes []common.IndexInfo, parsers map[string]string) {
	for i := range indexes {
		if parser, ok := parsers[indexes[i].Name]; ok {
			indexes[i].Parser = parser
		}
	}
}

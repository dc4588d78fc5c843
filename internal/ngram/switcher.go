package ngram

import (
	"context"
	"fmt"
	"strings"

	"github.com/redbco/ngram-search/internal/database/mysql"
	"github.com/redbco/ngram-search/pkg/logger"
)

// Executor runs one statement and waits for it to finish
type Executor interface {
	Exec(ctx context.Context, statement string) error
}

// IndexSwitcher drops and recreates the full-text index together with the
// foreign key that has to be released before the index can go.
type IndexSwitcher struct {
	exec Executor
	log  *logger.LogContext
}

// NewIndexSwitcher creates a switcher. log may be nil.
func NewIndexSwitcher(exec Executor, log *logger.LogContext) *IndexSwitcher {
	return &IndexSwitcher{exec: exec, log: log}
}

// Statements returns the DDL sequence that switches the index of table to
// mode, reusing the discovered names:
//
//  1. drop the foreign key
//  2. drop the full-text index
//  3. re-add the index, with the ngram parser in ModeNgram
//  4. re-add the foreign key with ON DELETE SET NULL
func Statements(table string, mode IndexMode, fkName, idxName string) []string {
	t := mysql.QuoteIdentifierIfNeeded(table)
	fk := mysql.QuoteIdentifierIfNeeded(fkName)
	idx := mysql.QuoteIdentifierIfNeeded(idxName)

	addIndex := fmt.Sprintf("ALTER TABLE %s ADD FULLTEXT KEY %s (%s)", t, idx, strings.Join(FulltextColumns, ", "))
	if mode == ModeNgram {
		addIndex += " WITH PARSER " + strings.ToUpper(NgramParser)
	}

	return []string{
		fmt.Sprintf("ALTER TABLE %s DROP FOREIGN KEY %s", t, fk),
		fmt.Sprintf("ALTER TABLE %s DROP KEY %s", t, idx),
		addIndex,
		fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s) ON DELETE %s",
			t, fk, SentinelColumn, ReferencedTable, ReferencedColumn, DeleteRule),
	}
}

// Apply executes the statements for mode in order. It stops at the first
// failure and returns the executor's error unchanged together with the
// number of statements that succeeded; the table may then lack its index or
// foreign key.
func (s *IndexSwitcher) Apply(ctx context.Context, table string, mode IndexMode, fkName, idxName string) (int, error) {
	statements := Statements(table, mode, fkName, idxName)
	for i, stmt := range statements {
		if s.log != nil {
			s.log.Debug("executing statement %d/%d: %s", i+1, len(statements), stmt)
		}
		if err := s.exec.Exec(ctx, stmt); err != nil {
			if s.log != nil {
				s.log.Error("statement %d/%d failed, %d remaining statements skipped: %v",
					i+1, len(statements), len(statements)-i-1, err)
			}
			return i, err
		}
	}
	return len(statements), nil
}

package ngram

import (
	"context"

	"github.com/redbco/ngram-search/internal/database/common"
)

// fakeConn records every statement and serves canned schema snapshots
type fakeConn struct {
	version    string
	versionErr error

	schema      *common.TableSchema
	schemaAfter *common.TableSchema // served once a statement has run
	schemaErr   error
	schemaReads int

	failAt  int // 1-based statement number that fails, 0 for none
	failErr error

	calls    int
	executed []string
}

func (f *fakeConn) ServerVersion(context.Context) (string, error) {
	return f.version, f.versionErr
}

func (f *fakeConn) TableSchema(_ context.Context, table string) (*common.TableSchema, error) {
	f.schemaReads++
	if f.schemaErr != nil {
		return nil, f.schemaErr
	}
	src := f.schema
	if f.schemaAfter != nil && len(f.executed) > 0 {
		src = f.schemaAfter
	}
	snapshot := *src
	snapshot.Table = table
	return &snapshot, nil
}

func (f *fakeConn) Exec(_ context.Context, statement string) error {
	f.calls++
	f.executed = append(f.executed, statement)
	if f.failAt == f.calls {
		return f.failErr
	}
	return nil
}

// omekaSchema is the stock fulltext_search table with the given parser on
// its full-text index
func omekaSchema(parser string) *common.TableSchema {
	return &common.TableSchema{
		Table: FulltextTable,
		Indexes: []common.IndexInfo{
			{Name: "idx_1", Columns: []string{"title", "text"}, Type: "FULLTEXT", Parser: parser},
			{Name: "idx_owner", Columns: []string{"owner_id"}, Type: "BTREE"},
		},
		ForeignKeys: []common.ForeignKeyInfo{
			{
				Name:              "fk_1",
				LocalColumns:      []string{"owner_id"},
				ReferencedTable:   "user",
				ReferencedColumns: []string{"id"},
				OnDelete:          "SET NULL",
			},
		},
	}
}

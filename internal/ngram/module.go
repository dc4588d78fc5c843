// Package ngram switches the full-text index of the CMS fulltext_search
// table between the default MySQL parser and the ngram parser used for CJK
// text.
//
// Install and Uninstall are the two lifecycle entry points. Both discover the
// auto-generated names of the index and of the foreign key on owner_id from
// the live schema, refuse to touch a table that does not have the expected
// shape, and then issue four ALTER TABLE statements. MySQL commits DDL
// implicitly, so a failing statement leaves the earlier ones applied.
package ngram

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/redbco/ngram-search/internal/database/common"
	"github.com/redbco/ngram-search/internal/settings"
	"github.com/redbco/ngram-search/pkg/logger"
)

// Conn is the database connection the routines run against
type Conn interface {
	VersionReader
	SchemaReader
	Executor
}

// Options control a single Install or Uninstall run
type Options struct {
	// Settings, when set, writes the module defaults on install and removes
	// them on uninstall before any schema work.
	Settings *settings.Bootstrapper

	// Logger receives progress messages; nil disables logging.
	Logger *logger.Logger

	// Verify re-reads the schema after the statements ran and checks the
	// index parser and the foreign key.
	Verify bool

	// DryRun resolves names and returns the statement plan without
	// executing anything or touching settings.
	DryRun bool
}

// Result describes a completed (or planned) run
type Result struct {
	RunID      string
	Process    Process
	Mode       IndexMode
	Table      string
	ForeignKey string
	Index      string
	Statements []string
	Executed   int
	Verified   bool
}

// Install switches the full-text index to the ngram parser
func Install(ctx context.Context, conn Conn, opts Options) (*Result, error) {
	return run(ctx, conn, opts, ProcessInstall, ModeNgram)
}

// Uninstall switches the full-text index back to the default parser. Unlike
// Install it does not check the server version.
func Uninstall(ctx context.Context, conn Conn, opts Options) (*Result, error) {
	return run(ctx, conn, opts, ProcessUninstall, ModePlain)
}

func run(ctx context.Context, conn Conn, opts Options, process Process, mode IndexMode) (*Result, error) {
	result := &Result{
		RunID:   uuid.NewString(),
		Process: process,
		Mode:    mode,
		Table:   FulltextTable,
	}

	var log *logger.LogContext
	if opts.Logger != nil {
		log = opts.Logger.WithTrace(result.RunID).WithFields(map[string]string{
			"table": FulltextTable,
			"mode":  mode.String(),
		})
		log.Info("%s started", process)
	}
	fail := func(err error) (*Result, error) {
		if log != nil {
			log.Error("%s failed: %v", process, err)
		}
		return result, err
	}

	if opts.Settings != nil && !opts.DryRun {
		var err error
		if process == ProcessInstall {
			err = opts.Settings.Install(ctx)
		} else {
			err = opts.Settings.Uninstall(ctx)
		}
		if err != nil {
			return fail(err)
		}
	}

	if process == ProcessInstall {
		if err := CheckCompatibility(ctx, conn); err != nil {
			return fail(err)
		}
	}

	inspector := NewInspector(conn)
	fkName, err := inspector.ResolveForeignKey(ctx, FulltextTable, process)
	if err != nil {
		return fail(err)
	}
	idxName, err := inspector.ResolveFulltextIndex(ctx, FulltextTable, process)
	if err != nil {
		return fail(err)
	}
	result.ForeignKey = fkName
	result.Index = idxName
	result.Statements = Statements(FulltextTable, mode, fkName, idxName)

	if log != nil {
		log.Info("resolved foreign key %s and full-text index %s", fkName, idxName)
	}

	if opts.DryRun {
		if log != nil {
			log.Info("dry run, %d statements not executed", len(result.Statements))
		}
		return result, nil
	}

	executed, err := NewIndexSwitcher(conn, log).Apply(ctx, FulltextTable, mode, fkName, idxName)
	result.Executed = executed
	if err != nil {
		return fail(err)
	}

	if opts.Verify {
		if err := verify(ctx, conn, process, mode, fkName, idxName); err != nil {
			return fail(err)
		}
		result.Verified = true
	}

	if log != nil {
		log.Info("%s completed", process)
	}
	return result, nil
}

// verify checks that the index and foreign key were recreated as requested
func verify(ctx context.Context, reader SchemaReader, process Process, mode IndexMode, fkName, idxName string) error {
	schema, err := reader.TableSchema(ctx, FulltextTable)
	if err != nil {
		return fmt.Errorf("failed to re-read schema of %s: %w", FulltextTable, err)
	}

	postErr := func(format string, args ...interface{}) error {
		return &PostConditionError{Table: FulltextTable, Process: process, Detail: fmt.Sprintf(format, args...)}
	}

	idx, ok := schema.FindIndex(idxName)
	if !ok {
		return postErr("index %s is missing", idxName)
	}
	if !columnsEqual(idx.Columns, FulltextColumns) {
		return postErr("index %s covers %v, expected %v", idxName, idx.Columns, FulltextColumns)
	}
	if idx.Parser != mode.Parser() {
		return postErr("index %s has parser %q, expected %q", idxName, idx.Parser, mode.Parser())
	}

	fk, ok := schema.FindForeignKey(fkName)
	if !ok {
		return postErr("foreign key %s is missing", fkName)
	}
	if !columnsEqual(fk.LocalColumns, []string{SentinelColumn}) || fk.ReferencedTable != ReferencedTable {
		return postErr("foreign key %s is %v -> %s, expected [%s] -> %s",
			fkName, fk.LocalColumns, fk.ReferencedTable, SentinelColumn, ReferencedTable)
	}
	if fk.OnDelete != DeleteRule {
		return postErr("foreign key %s has delete rule %q, expected %q", fkName, fk.OnDelete, DeleteRule)
	}
	return nil
}

// Status reports the tokenizer mode of the full-text index
func Status(ctx context.Context, reader SchemaReader) (IndexMode, common.IndexInfo, error) {
	schema, err := NewInspector(reader).snapshot(ctx, FulltextTable)
	if err != nil {
		return ModePlain, common.IndexInfo{}, err
	}
	idx, ok := findFulltextIndex(schema)
	if !ok {
		return ModePlain, common.IndexInfo{}, newSchemaError(schema.Table, ProcessStatus, "no index on columns %v found", FulltextColumns)
	}
	if idx.Parser == NgramParser {
		return ModeNgram, idx, nil
	}
	return ModePlain, idx, nil
}

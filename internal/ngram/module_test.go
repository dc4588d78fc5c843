package ngram

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redbco/ngram-search/internal/settings"
	"github.com/redbco/ngram-search/pkg/logger"
)

func TestInstallEmitsNgramSequence(t *testing.T) {
	conn := &fakeConn{version: "8.0.35", schema: omekaSchema("")}

	result, err := Install(context.Background(), conn, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"ALTER TABLE fulltext_search DROP FOREIGN KEY fk_1",
		"ALTER TABLE fulltext_search DROP KEY idx_1",
		"ALTER TABLE fulltext_search ADD FULLTEXT KEY idx_1 (title, text) WITH PARSER NGRAM",
		"ALTER TABLE fulltext_search ADD CONSTRAINT fk_1 FOREIGN KEY (owner_id) REFERENCES user (id) ON DELETE SET NULL",
	}, conn.executed)
	assert.Equal(t, "fk_1", result.ForeignKey)
	assert.Equal(t, "idx_1", result.Index)
	assert.Equal(t, 4, result.Executed)
	assert.Equal(t, ModeNgram, result.Mode)
	assert.NotEmpty(t, result.RunID)
	assert.False(t, result.Verified)
}

func TestUninstallOmitsParserClause(t *testing.T) {
	conn := &fakeConn{version: "8.0.35", schema: omekaSchema("ngram")}

	_, err := Uninstall(context.Background(), conn, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"ALTER TABLE fulltext_search DROP FOREIGN KEY fk_1",
		"ALTER TABLE fulltext_search DROP KEY idx_1",
		"ALTER TABLE fulltext_search ADD FULLTEXT KEY idx_1 (title, text)",
		"ALTER TABLE fulltext_search ADD CONSTRAINT fk_1 FOREIGN KEY (owner_id) REFERENCES user (id) ON DELETE SET NULL",
	}, conn.executed)
}

func TestUninstallSkipsCompatibilityGate(t *testing.T) {
	conn := &fakeConn{version: "10.6.12-MariaDB", schema: omekaSchema("")}

	_, err := Uninstall(context.Background(), conn, Options{})
	require.NoError(t, err)
	assert.Len(t, conn.executed, 4)
}

func TestInstallAbortsBeforeDDL(t *testing.T) {
	tests := []struct {
		name    string
		version string
		want    error
	}{
		{"mariadb", "10.6.12-MariaDB-0ubuntu0.22.04.1", ErrUnsupportedEngine},
		{"old mysql", "5.6.44", ErrVersionTooOld},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := &fakeConn{version: tt.version, schema: omekaSchema("")}
			_, err := Install(context.Background(), conn, Options{})
			assert.ErrorIs(t, err, tt.want)
			assert.Zero(t, conn.calls)
			assert.Zero(t, conn.schemaReads)
		})
	}
}

func TestInstallUnexpectedSchema(t *testing.T) {
	schema := omekaSchema("")
	schema.Indexes[0].Columns = []string{"text", "title"}
	conn := &fakeConn{version: "8.0.35", schema: schema}

	_, err := Install(context.Background(), conn, Options{})
	require.ErrorIs(t, err, ErrUnexpectedSchema)
	assert.Contains(t, err.Error(), "Installation aborted")
	assert.Zero(t, conn.calls)
}

func TestInstallStopsWhenDropIndexFails(t *testing.T) {
	dbErr := errors.New("Error 1091 (42000): Can't DROP 'idx_1'; check that column/key exists")
	conn := &fakeConn{version: "8.0.35", schema: omekaSchema(""), failAt: 2, failErr: dbErr}

	result, err := Install(context.Background(), conn, Options{})
	assert.Same(t, dbErr, err)
	assert.Equal(t, 2, conn.calls)
	assert.Equal(t, 1, result.Executed)
}

func TestInstallDryRun(t *testing.T) {
	store := settings.NewMemoryStore()
	conn := &fakeConn{version: "8.0.35", schema: omekaSchema("")}

	result, err := Install(context.Background(), conn, Options{
		DryRun:   true,
		Settings: settings.NewBootstrapper(store, map[string]interface{}{"k": "v"}),
	})
	require.NoError(t, err)
	assert.Len(t, result.Statements, 4)
	assert.Zero(t, conn.calls)
	assert.Zero(t, store.Len())
}

func TestInstallAppliesSettingsFirst(t *testing.T) {
	store := settings.NewMemoryStore()
	conn := &fakeConn{version: "5.6.44", schema: omekaSchema("")}

	_, err := Install(context.Background(), conn, Options{
		Settings: settings.NewBootstrapper(store, map[string]interface{}{"ngram_search_parser": "ngram"}),
	})
	require.ErrorIs(t, err, ErrVersionTooOld)
	// settings are written before the compatibility gate runs
	assert.Equal(t, 1, store.Len())

	require.NoError(t, store.Set(context.Background(), "unrelated", 1))
	conn.version = "8.0.35"
	_, err = Uninstall(context.Background(), conn, Options{
		Settings: settings.NewBootstrapper(store, map[string]interface{}{"ngram_search_parser": "ngram"}),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())
}

// Verification after the DDL sequence is not part of the classic routine;
// these tests cover the optional post-condition check.
func TestInstallVerifyPostCondition(t *testing.T) {
	t.Run("parser applied", func(t *testing.T) {
		conn := &fakeConn{version: "8.0.35", schema: omekaSchema(""), schemaAfter: omekaSchema("ngram")}
		result, err := Install(context.Background(), conn, Options{Verify: true})
		require.NoError(t, err)
		assert.True(t, result.Verified)
		assert.Equal(t, 3, conn.schemaReads)
	})

	t.Run("parser missing", func(t *testing.T) {
		conn := &fakeConn{version: "8.0.35", schema: omekaSchema(""), schemaAfter: omekaSchema("")}
		_, err := Install(context.Background(), conn, Options{Verify: true})
		require.ErrorIs(t, err, ErrPostCondition)
		assert.Contains(t, err.Error(), "parser")
	})

	t.Run("foreign key missing", func(t *testing.T) {
		after := omekaSchema("")
		after.ForeignKeys = nil
		conn := &fakeConn{version: "8.0.35", schema: omekaSchema("ngram"), schemaAfter: after}
		_, err := Uninstall(context.Background(), conn, Options{Verify: true})
		require.ErrorIs(t, err, ErrPostCondition)
		assert.Contains(t, err.Error(), "fk_1 is missing")
	})

	t.Run("wrong delete rule", func(t *testing.T) {
		after := omekaSchema("ngram")
		after.ForeignKeys[0].OnDelete = "CASCADE"
		conn := &fakeConn{version: "8.0.35", schema: omekaSchema(""), schemaAfter: after}
		_, err := Install(context.Background(), conn, Options{Verify: true})
		require.ErrorIs(t, err, ErrPostCondition)
	})
}

func TestInstallLogsWithRunID(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New("ngram-search", "test")
	log.SetOutput(&buf)

	conn := &fakeConn{version: "8.0.35", schema: omekaSchema("")}
	result, err := Install(context.Background(), conn, Options{Logger: log})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, result.RunID)
	assert.Contains(t, out, "Installation completed")
	assert.Contains(t, out, "resolved foreign key fk_1 and full-text index idx_1")
}

func TestStatus(t *testing.T) {
	mode, idx, err := Status(context.Background(), &fakeConn{schema: omekaSchema("ngram")})
	require.NoError(t, err)
	assert.Equal(t, ModeNgram, mode)
	assert.Equal(t, "idx_1", idx.Name)

	mode, _, err = Status(context.Background(), &fakeConn{schema: omekaSchema("")})
	require.NoError(t, err)
	assert.Equal(t, ModePlain, mode)

	schema := omekaSchema("")
	schema.Indexes = nil
	_, _, err = Status(context.Background(), &fakeConn{schema: schema})
	assert.ErrorIs(t, err, ErrUnexpectedSchema)
}

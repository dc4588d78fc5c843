package mysql

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redbco/ngram-search/internal/database/common"
)

const createTableNgram = "CREATE TABLE `fulltext_search` (\n" +
	"  `id` int NOT NULL,\n" +
	"  `resource` varchar(190) COLLATE utf8mb4_unicode_ci NOT NULL,\n" +
	"  `owner_id` int DEFAULT NULL,\n" +
	"  `is_public` tinyint(1) NOT NULL DEFAULT '1',\n" +
	"  `title` longtext COLLATE utf8mb4_unicode_ci,\n" +
	"  `text` longtext COLLATE utf8mb4_unicode_ci,\n" +
	"  PRIMARY KEY (`id`,`resource`),\n" +
	"  KEY `IDX_AA31FE4A7E3C61F9` (`owner_id`),\n" +
	"  FULLTEXT KEY `IDX_AA31FE4A2B36786B3B8BA7C7` (`title`,`text`) /*!50100 WITH PARSER `ngram` */ ,\n" +
	"  CONSTRAINT `FK_AA31FE4A7E3C61F9` FOREIGN KEY (`owner_id`) REFERENCES `user` (`id`) ON DELETE SET NULL\n" +
	") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci"

func TestParseFulltextParsers(t *testing.T) {
	t.Run("ngram parser", func(t *testing.T) {
		parsers := parseFulltextParsers(createTableNgram)
		assert.Equal(t, map[string]string{"IDX_AA31FE4A2B36786B3B8BA7C7": "ngram"}, parsers)
	})

	t.Run("plain fulltext", func(t *testing.T) {
		plain := "CREATE TABLE `fulltext_search` (\n" +
			"  FULLTEXT KEY `IDX_1` (`title`,`text`),\n" +
			"  KEY `IDX_2` (`owner_id`)\n" +
			")"
		assert.Empty(t, parseFulltextParsers(plain))
	})

	t.Run("escaped backticks and parser case", func(t *testing.T) {
		odd := "  FULLTEXT KEY `odd``name` (`title`,`text`) WITH PARSER NGRAM,\n"
		assert.Equal(t, map[string]string{"odd`name": "ngram"}, parseFulltextParsers(odd))
	})
}

func TestApplyFulltextParsers(t *testing.T) {
	indexes := []common.IndexInfo{
		{Name: "IDX_1", Columns: []string{"title", "text"}, Type: "FULLTEXT"},
		{Name: "IDX_2", Columns: []string{"owner_id"}, Type: "BTREE"},
	}
	applyFulltextParsers(indexes, map[string]string{"IDX_1": "ngram"})

	assert.Equal(t, "ngram", indexes[0].Parser)
	assert.Empty(t, indexes[1].Parser)
	assert.True(t, hasFulltext(indexes))
	assert.False(t, hasFulltext(indexes[1:]))
}

func TestGroupForeignKeyRows(t *testing.T) {
	rows := []foreignKeyRow{
		{"FK_A", "owner_id", "user", "id", "NO ACTION", "SET NULL"},
		{"FK_B", "site_id", "site", "id", "NO ACTION", "CASCADE"},
		{"FK_B", "resource", "site", "resource", "NO ACTION", "CASCADE"},
	}

	fks := groupForeignKeyRows(rows)
	require.Len(t, fks, 2)

	assert.Equal(t, "FK_A", fks[0].Name)
	assert.Equal(t, []string{"owner_id"}, fks[0].LocalColumns)
	assert.Equal(t, "user", fks[0].ReferencedTable)
	assert.Equal(t, "SET NULL", fks[0].OnDelete)

	assert.Equal(t, "FK_B", fks[1].Name)
	assert.Equal(t, []string{"site_id", "resource"}, fks[1].LocalColumns)
	assert.Equal(t, []string{"id", "resource"}, fks[1].ReferencedColumns)

	assert.Empty(t, groupForeignKeyRows(nil))
}

func TestFormatDSN(t *testing.T) {
	t.Run("discrete fields", func(t *testing.T) {
		dsn, err := ConnectionConfig{
			Host:         "db.local",
			Username:     "omeka",
			Password:     "secret",
			DatabaseName: "omeka",
		}.FormatDSN()
		require.NoError(t, err)
		assert.Equal(t, "omeka:secret@tcp(db.local:3306)/omeka", dsn)
	})

	t.Run("dsn with password fallback", func(t *testing.T) {
		dsn, err := ConnectionConfig{
			DSN:      "omeka@tcp(127.0.0.1:3307)/omeka",
			Password: "secret",
			TLS:      "skip-verify",
		}.FormatDSN()
		require.NoError(t, err)
		assert.Equal(t, "omeka:secret@tcp(127.0.0.1:3307)/omeka?tls=skip-verify", dsn)
	})

	t.Run("missing host", func(t *testing.T) {
		_, err := ConnectionConfig{DatabaseName: "omeka"}.FormatDSN()
		assert.Error(t, err)
	})

	t.Run("invalid dsn", func(t *testing.T) {
		_, err := ConnectionConfig{DSN: "not a dsn"}.FormatDSN()
		assert.Error(t, err)
	})
}

// testDSN returns the DSN of a scratch MySQL database
func testDSN() string {
	dsn := os.Getenv("NGRAM_SEARCH_TEST_DSN")
	if dsn == "" {
		dsn = "root:password@tcp(localhost:3306)/testdb"
	}
	return dsn
}

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("mysql", testDSN())
	if err != nil {
		t.Skipf("Skipping test - could not connect to MySQL: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("Skipping test - could not ping MySQL: %v", err)
	}

	statements := []string{
		"DROP TABLE IF EXISTS fulltext_search",
		"DROP TABLE IF EXISTS user",
		"CREATE TABLE user (id INT AUTO_INCREMENT PRIMARY KEY, email VARCHAR(190) NOT NULL) ENGINE=InnoDB",
		`CREATE TABLE fulltext_search (
			id INT NOT NULL,
			resource VARCHAR(190) NOT NULL,
			owner_id INT DEFAULT NULL,
			title LONGTEXT,
			text LONGTEXT,
			PRIMARY KEY (id, resource),
			KEY IDX_AA31FE4A7E3C61F9 (owner_id),
			FULLTEXT KEY IDX_AA31FE4A2B36786B3B8BA7C7 (title, text),
			CONSTRAINT FK_AA31FE4A7E3C61F9 FOREIGN KEY (owner_id) REFERENCES user (id) ON DELETE SET NULL
		) ENGINE=InnoDB`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			t.Fatalf("Failed to prepare test schema: %v", err)
		}
	}

	return db
}

func TestClientTableSchema(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	client := NewClient(db)
	ctx := context.Background()

	version, err := client.ServerVersion(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, version)

	schema, err := client.TableSchema(ctx, "fulltext_search")
	require.NoError(t, err)

	idx, ok := schema.FindIndex("IDX_AA31FE4A2B36786B3B8BA7C7")
	require.True(t, ok)
	assert.Equal(t, []string{"title", "text"}, idx.Columns)
	assert.Equal(t, "FULLTEXT", idx.Type)
	assert.Empty(t, idx.Parser)

	require.Len(t, schema.ForeignKeys, 1)
	fk := schema.ForeignKeys[0]
	assert.Equal(t, "FK_AA31FE4A7E3C61F9", fk.Name)
	assert.Equal(t, []string{"owner_id"}, fk.LocalColumns)
	assert.Equal(t, "user", fk.ReferencedTable)
	assert.Equal(t, "SET NULL", fk.OnDelete)
}

func TestClientExecReturnsDriverError(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	client := NewClient(db)
	err := client.Exec(context.Background(), "ALTER TABLE fulltext_search DROP KEY no_such_key")
	require.Error(t, err)
	assert.Equal(t, uint16(ErrNumCantDropFieldOrKey), ServerErrorNumber(err))
}

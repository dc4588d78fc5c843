package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	driver "github.com/go-sql-driver/mysql"

	"github.com/redbco/ngram-search/internal/database/common"
)

// Client is the connection handle the install and uninstall routines run
// against. Statements are executed on the pool; MySQL commits DDL implicitly,
// so nothing here opens a transaction.
type Client struct {
	db *sql.DB
}

// NewClient wraps an already opened database handle
func NewClient(db *sql.DB) *Client {
	return &Client{db: db}
}

// DB returns the underlying handle
func (c *Client) DB() *sql.DB {
	return c.db
}

// Close closes the underlying handle
func (c *Client) Close() error {
	return c.db.Close()
}

// ServerVersion returns the raw version string reported by the server,
// e.g. "8.0.35" or "10.6.12-MariaDB-0ubuntu0.22.04.1".
func (c *Client) ServerVersion(ctx context.Context) (string, error) {
	var version string
	if err := c.db.QueryRowContext(ctx, "SELECT VERSION()").Scan(&version); err != nil {
		return "", fmt.Errorf("failed to get database version: %w", err)
	}
	return version, nil
}

// TableSchema reads a fresh snapshot of the indexes and foreign keys of table
func (c *Client) TableSchema(ctx context.Context, table string) (*common.TableSchema, error) {
	return discoverTableSchema(ctx, c.db, table)
}

// Exec runs a single statement. Driver errors are returned as-is so callers
// can inspect *mysql.MySQLError.
func (c *Client) Exec(ctx context.Context, statement string) error {
	_, err := c.db.ExecContext(ctx, statement)
	return err
}

// MySQL server error numbers the CLI reports with a hint
const (
	ErrNumCantDropFieldOrKey = 1091 // ER_CANT_DROP_FIELD_OR_KEY
	ErrNumDupKeyName         = 1061 // ER_DUP_KEYNAME
	ErrNumFTParserNotFound   = 1128 // ER_FUNCTION_NOT_DEFINED, reported for unknown parsers
	ErrNumTableAccessDenied  = 1142 // ER_TABLEACCESS_DENIED_ERROR
)

// ServerErrorNumber extracts the MySQL error number from err, or 0
func ServerErrorNumber(err error) uint16 {
	var myErr *driver.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number
	}
	return 0
}

package ngram

import (
	"errors"
	"fmt"
)

// Standard errors returned by the install and uninstall routines. Use
// errors.Is to test for them; the concrete error types carry the details.
var (
	// ErrUnsupportedEngine is returned when the server is MariaDB, which has
	// no ngram full-text parser
	ErrUnsupportedEngine = errors.New("unsupported database engine")

	// ErrVersionTooOld is returned when MySQL is older than MinimumVersion
	ErrVersionTooOld = errors.New("database version too old")

	// ErrUnexpectedSchema is returned when the live table does not have the
	// foreign key or full-text index the routines expect
	ErrUnexpectedSchema = errors.New("unexpected table schema")

	// ErrPostCondition is returned when verification after the DDL sequence
	// does not find the expected index and constraint
	ErrPostCondition = errors.New("post-condition check failed")
)

// UnsupportedEngineError is returned when the server reports MariaDB.
type UnsupportedEngineError struct {
	ServerVersion string
}

// Error implements the error interface.
func (e *UnsupportedEngineError) Error() string {
	return fmt.Sprintf("n-gram search can be used only with MySQL %s or later, while this site uses MariaDB (%s); try the Mroonga search module instead",
		MinimumVersion, e.ServerVersion)
}

// Is reports whether target is ErrUnsupportedEngine.
func (e *UnsupportedEngineError) Is(target error) bool {
	return target == ErrUnsupportedEngine
}

// VersionTooOldError is returned when the MySQL version is below the minimum.
type VersionTooOldError struct {
	ServerVersion  string
	MinimumVersion string
}

// Error implements the error interface.
func (e *VersionTooOldError) Error() string {
	return fmt.Sprintf("n-gram search can be used only with MySQL %s or later, while this site uses version %q",
		e.MinimumVersion, e.ServerVersion)
}

// Is reports whether target is ErrVersionTooOld.
func (e *VersionTooOldError) Is(target error) bool {
	return target == ErrVersionTooOld
}

// SchemaError is returned when the live table structure does not match the
// expected shape. Process names the routine that aborted.
type SchemaError struct {
	Table   string
	Process Process
	Detail  string
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	return fmt.Sprintf("the table schema of '%s' is different from what is expected (%s). %s aborted",
		e.Table, e.Detail, e.Process)
}

// Is reports whether target is ErrUnexpectedSchema.
func (e *SchemaError) Is(target error) bool {
	return target == ErrUnexpectedSchema
}

func newSchemaError(table string, process Process, format string, args ...interface{}) *SchemaError {
	return &SchemaError{
		Table:   table,
		Process: process,
		Detail:  fmt.Sprintf(format, args...),
	}
}

// PostConditionError is returned by verification when the re-read schema
// does not reflect the statements that were just applied.
type PostConditionError struct {
	Table   string
	Process Process
	Detail  string
}

// Error implements the error interface.
func (e *PostConditionError) Error() string {
	return fmt.Sprintf("%s of '%s' completed but verification failed: %s", e.Process, e.Table, e.Detail)
}

// Is reports whether target is ErrPostCondition.
func (e *PostConditionError) Is(target error) bool {
	return target == ErrPostCondition
}

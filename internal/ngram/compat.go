package ngram

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	version "github.com/hashicorp/go-version"
)

// Compatibility requirement: MySQL proper, at least MinimumVersion. MariaDB
// ships no ngram parser.
const (
	MinimumVersion = "5.7"
	forkedEngine   = "mariadb"
)

var (
	minimumVersion = version.Must(version.NewVersion(MinimumVersion))

	// versionCore picks the dotted numeric prefix of a server version such
	// as "5.7.29-log" or "8.0.35-0ubuntu0.22.04.1"
	versionCore = regexp.MustCompile(`^\s*v?(\d+(?:\.\d+)*)`)
)

// VersionReader returns the raw server version string
type VersionReader interface {
	ServerVersion(ctx context.Context) (string, error)
}

// CheckCompatibility queries the server version and validates it with
// CheckServerVersion. No statement other than the version query is issued.
func CheckCompatibility(ctx context.Context, conn VersionReader) error {
	serverVersion, err := conn.ServerVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to check database compatibility: %w", err)
	}
	return CheckServerVersion(serverVersion)
}

// CheckServerVersion fails with *UnsupportedEngineError when the version
// string names MariaDB in any case, and with *VersionTooOldError when the
// numeric version is below MinimumVersion or cannot be read.
func CheckServerVersion(serverVersion string) error {
	if strings.Contains(strings.ToLower(serverVersion), forkedEngine) {
		return &UnsupportedEngineError{ServerVersion: serverVersion}
	}

	tooOld := &VersionTooOldError{ServerVersion: serverVersion, MinimumVersion: MinimumVersion}

	m := versionCore.FindStringSubmatch(serverVersion)
	if m == nil {
		return tooOld
	}
	current, err := version.NewVersion(m[1])
	if err != nil {
		return tooOld
	}
	if current.LessThan(minimumVersion) {
		return tooOld
	}
	return nil
}

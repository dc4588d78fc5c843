package mysql

import (
	"regexp"
	"strings"
)

var plainIdentifier = regexp.MustCompile(`^[A-Za-z0-9_$]+$`)

// QuoteIdentifier quotes a MySQL identifier using backticks
func QuoteIdentifier(name string) string {
	// Replace any existing backticks with double backticks to escape them
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// QuoteIdentifierIfNeeded leaves plain identifiers untouched and quotes
// everything else. Discovered constraint and index names are passed through
// here before they are spliced into DDL.
func QuoteIdentifierIfNeeded(name string) string {
	if plainIdentifier.MatchString(name) {
		return name
	}
	return QuoteIdentifier(name)
}

// splitColumns splits a GROUP_CONCAT column list
func splitColumns(list string) []string {
	if list == "" {
		return nil
	}
	parts := strings.Split(list, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

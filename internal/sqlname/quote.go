// Package sqlname provides parsing, canonicalization, and quoting for
// SQL Server object references.
package sqlname

import (
	"regexp"
	"strings"
)

// QuoteIdentifier quotes a SQL Server identifier (schema, table, or object
// name) with square brackets. Closing brackets inside the name are escaped
// by doubling them.
// Example: "usp_Orders" -> "[usp_Orders]"
// Example: "odd]name" -> "[odd]]name]"
func QuoteIdentifier(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// validIdentifierRegex matches identifier characters we accept in catalog
// object names. T-SQL also allows @ and # prefixes for variables and temp
// objects; temp objects never reach the catalog lookups so we accept # only
// as a leading character.
var validIdentifierRegex = regexp.MustCompile(`^#?[a-zA-Z_][a-zA-Z0-9_$]*$`)

// IsValidIdentifier checks if a name is a plain (unquoted) identifier.
// Used as a defense-in-depth check before interpolating names into LIKE
// pre-filter patterns.
func IsValidIdentifier(name string) bool {
	return validIdentifierRegex.MatchString(name)
}

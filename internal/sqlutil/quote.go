// Package sqlutil quotes MySQL identifiers that come from configuration
// (index table and column names) before they are placed in queries.
package sqlutil

import (
	"regexp"
	"strings"
)

// QuoteIdentifier wraps name in backticks, doubling any backtick inside it.
//
//	"customer_index" -> "`customer_index`"
//	"cust`idx"       -> "`cust``idx`"
func QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// Configured names are restricted to ASCII letters, digits and underscore.
var validIdentifierRegex = regexp.MustCompile("^[a-zA-Z0-9_]+$")

// IsValidIdentifier reports whether name is safe to use as a table or column name.
func IsValidIdentifier(name string) bool {
	return validIdentifierRegex.MatchString(name)
}

// QuoteIdentifierSafe validates name and quotes it.
func QuoteIdentifierSafe(name string) (string, error) {
	if !IsValidIdentifier(name) {
		return "", &InvalidIdentifierError{Name: name}
	}
	return QuoteIdentifier(name), nil
}

// QuoteQualifiedSafe quotes a table name that may carry a schema prefix,
// such as "vectors.customer_index". Each part is validated on its own.
func QuoteQualifiedSafe(name string) (string, error) {
	parts := strings.Split(name, ".")
	if len(parts) > 2 {
		return "", &InvalidIdentifierError{Name: name}
	}
	quoted := make([]string, 0, len(parts))
	for _, part := range parts {
		if !IsValidIdentifier(part) {
			return "", &InvalidIdentifierError{Name: name}
		}
		quoted = append(quoted, QuoteIdentifier(part))
	}
	return strings.Join(quoted, "."), nil
}

// InvalidIdentifierError is returned for names outside the allowed character set.
type InvalidIdentifierError struct {
	Name string
}

func (e *InvalidIdentifierError) Error() string {
	return "invalid identifier: " + e.Name + " (must contain only alphanumeric characters and underscores)"
}

package repository

import "regexp"

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,63}$`)

// ValidTableName reports whether name can be used as the restaurant table.
// Only unqualified identifiers are accepted: letters, digits and
// underscores, starting with a letter or underscore, at most 64 characters.
func ValidTableName(name string) bool {
	return identRe.MatchString(name)
}

// quoteIdent wraps an already validated identifier in backticks.
func quoteIdent(name string) string {
	return "`" + name + "`"
}

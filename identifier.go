package mapi

import (
	"regexp"
	"strconv"
)

var reSimpleIdentifier = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Identifier is a schema, role, or other SQL name sent verbatim in a
// session-configuration statement (`set schema ...`, `set role ...`).
// Quoting follows the same rule the server's own SQL dialect uses: a
// bareword matching the simple-identifier pattern is sent unquoted,
// anything else is double-quoted with embedded quotes escaped.
type Identifier string

// String renders the identifier the way it should appear in SQL text.
func (i Identifier) String() string {
	s := string(i)
	if reSimpleIdentifier.MatchString(s) {
		return s
	}
	return strconv.Quote(s)
}

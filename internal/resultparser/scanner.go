package resultparser

import (
	"fmt"
	"strings"
)

// rowScanner walks one row's value list left to right. Each decode*
// method in valuedecode.go consumes exactly one value and leaves the
// cursor positioned at (or just past) the separator before the next one,
// so callers never have to reason about the tab/comma inconsistency
// themselves.
type rowScanner struct {
	s   string
	pos int
}

func newRowScanner(body string) *rowScanner { return &rowScanner{s: body} }

func (r *rowScanner) eof() bool { return r.pos >= len(r.s) }

// skipSeparator consumes an optional ',' followed by an optional '\t'.
// A quoted-string reader may already have swallowed the ',' itself, so
// both parts are optional and this is safe to call unconditionally
// between values.
func (r *rowScanner) skipSeparator() {
	if r.eof() {
		return
	}
	if r.s[r.pos] == ',' {
		r.pos++
	}
	if !r.eof() && r.s[r.pos] == '\t' {
		r.pos++
	}
}

// peekIsNull reports whether the literal "NULL" sits at the cursor,
// immediately followed by a delimiter or end of input.
func (r *rowScanner) peekIsNull() bool {
	const lit = "NULL"
	if !strings.HasPrefix(r.s[r.pos:], lit) {
		return false
	}
	after := r.pos + len(lit)
	if after >= len(r.s) {
		return true
	}
	switch r.s[after] {
	case ',', '\t':
		return true
	default:
		return false
	}
}

// consumeNull advances past the NULL literal.
func (r *rowScanner) consumeNull() { r.pos += len("NULL") }

// readToken reads up to (but not including) the next ',' or '\t', or to
// end of input. Used for every unquoted scalar: integers, floats,
// decimals, booleans, dates, times, timestamps, and blob hex bodies.
func (r *rowScanner) readToken() string {
	start := r.pos
	for r.pos < len(r.s) && r.s[r.pos] != ',' && r.s[r.pos] != '\t' {
		r.pos++
	}
	return r.s[start:r.pos]
}

// readFixed reads exactly n bytes, for the fixed-width UUID encoding.
func (r *rowScanner) readFixed(n int) (string, error) {
	if r.pos+n > len(r.s) {
		return "", fmt.Errorf("unexpected end of row reading %d-byte value", n)
	}
	v := r.s[r.pos : r.pos+n]
	r.pos += n
	return v, nil
}

var quoteEscapes = map[byte]byte{
	'e':  '\x1b',
	'f':  '\f',
	'n':  '\n',
	'r':  '\r',
	't':  '\t',
	'v':  '\v',
	'\\': '\\',
	'\'': '\'',
	'"':  '"',
}

// readQuotedString parses a "..." literal with the escapes in quoteEscapes,
// and swallows a single trailing ',' if present — the server terminates a
// quoted string's separator inside the closing quote on some rows.
func (r *rowScanner) readQuotedString() (string, error) {
	if r.eof() || r.s[r.pos] != '"' {
		return "", fmt.Errorf("expected '\"' at position %d, got %q", r.pos, r.s[r.pos:])
	}
	r.pos++ // opening quote
	var b strings.Builder
	for {
		if r.eof() {
			return "", fmt.Errorf("unterminated string literal")
		}
		c := r.s[r.pos]
		switch {
		case c == '"':
			r.pos++
			if !r.eof() && r.s[r.pos] == ',' {
				r.pos++
			}
			return b.String(), nil
		case c == '\\':
			r.pos++
			if r.eof() {
				return "", fmt.Errorf("dangling escape at end of string")
			}
			esc, ok := quoteEscapes[r.s[r.pos]]
			if !ok {
				return "", fmt.Errorf("unknown escape \\%c", r.s[r.pos])
			}
			b.WriteByte(esc)
			r.pos++
		default:
			b.WriteByte(c)
			r.pos++
		}
	}
}

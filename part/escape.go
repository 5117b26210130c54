package part

import (
	"fmt"
	"strings"
)

// EscapeForFileName maps an arbitrary logical column name to a string safe
// to use as (part of) a filesystem path component: every byte outside
// [A-Za-z0-9_] is replaced by %XX, its uppercase hex value, mirroring the
// escaping ClickHouse applies to column names before deriving .bin/.mrk
// paths. '.' is escaped like any other special byte so that a flattened
// nested name such as "a.b" does not collide with a literal directory
// separator.
func EscapeForFileName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if isUnescapedByte(c) {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", c)
	}
	return b.String()
}

// UnescapeFileName reverses EscapeForFileName.
func UnescapeFileName(escaped string) (string, error) {
	var b strings.Builder
	b.Grow(len(escaped))
	for i := 0; i < len(escaped); i++ {
		c := escaped[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		if i+2 >= len(escaped) {
			return "", fmt.Errorf("part: truncated escape sequence in %q", escaped)
		}
		var v byte
		if _, err := fmt.Sscanf(escaped[i+1:i+3], "%02X", &v); err != nil {
			return "", fmt.Errorf("part: invalid escape sequence %q: %w", escaped[i:i+3], err)
		}
		b.WriteByte(v)
		i += 2
	}
	return b.String(), nil
}

func isUnescapedByte(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

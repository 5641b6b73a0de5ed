package database

import (
	"strconv"
	"strings"
)

// Rebind rewrites '?' placeholders into the form the dialect expects.
// Queries are written with '?' which MySQL and SQLite accept as is.
func Rebind(dialect Dialect, query string) string {
	if dialect != Postgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

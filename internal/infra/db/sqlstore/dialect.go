package sqlstore

import (
	"strconv"
	"strings"
)

// Dialect selects placeholder and upsert syntax. Queries are written with
// MySQL-style ? placeholders and rebound for Postgres.
type Dialect int

const (
	MySQL Dialect = iota
	Postgres
)

func (d Dialect) String() string {
	if d == Postgres {
		return "postgres"
	}
	return "mysql"
}

// ParseDialect maps a configured driver name to a Dialect.
func ParseDialect(driver string) (Dialect, bool) {
	switch strings.ToLower(driver) {
	case "mysql":
		return MySQL, true
	case "postgres", "postgresql":
		return Postgres, true
	}
	return MySQL, false
}

// rebind rewrites ? placeholders to $n for Postgres. Quoted literals are left alone.
func (d Dialect) rebind(q string) string {
	if d != Postgres {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	quoted := false
	for i := 0; i < len(q); i++ {
		c := q[i]
		switch {
		case c == '\'':
			quoted = !quoted
			b.WriteByte(c)
		case c == '?' && !quoted:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// upsert returns the conflict clause that overwrites cols when key collides.
func (d Dialect) upsert(key string, cols ...string) string {
	parts := make([]string, len(cols))
	if d == Postgres {
		for i, c := range cols {
			parts[i] = c + "=EXCLUDED." + c
		}
		return "ON CONFLICT (" + key + ") DO UPDATE SET " + strings.Join(parts, ", ")
	}
	for i, c := range cols {
		parts[i] = c + "=VALUES(" + c + ")"
	}
	return "ON DUPLICATE KEY UPDATE " + strings.Join(parts, ", ")
}

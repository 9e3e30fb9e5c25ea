// Package sqlrepo implements the record and user stores over database/sql. The
// mysql, postgres and sqlite packages supply a Dialect for their driver.
package sqlrepo

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

type Dialect struct {
	Name string
	// Numbered placeholders ($1, $2, ...) instead of ?.
	Numbered bool
	// Schema holds idempotent CREATE statements.
	Schema []string
	// IsUniqueViolation reports a duplicate-key error from the driver.
	IsUniqueViolation func(error) bool
}

// Rebind rewrites ? placeholders for drivers that number them.
func (d Dialect) Rebind(q string) string {
	if !d.Numbered {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for _, r := range q {
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

func (d Dialect) uniqueViolation(err error) bool {
	return d.IsUniqueViolation != nil && d.IsUniqueViolation(err)
}

// Migrate creates the tables and indexes if they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB, d Dialect) error {
	for i, stmt := range d.Schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s migrate step %d: %w", d.Name, i+1, err)
		}
	}
	return nil
}

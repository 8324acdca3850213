// Package sqlstore holds the SQL repositories shared by the mysql, postgres
// and sqlite drivers. Queries are written with ? placeholders and rebound
// per Dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// Dialect captures the syntax differences between the supported databases.
type Dialect struct {
	Name string
	// Numbered placeholders ($1, $2, ...) instead of ?
	Numbered bool
	// Upsert renders the conflict clause that updates cols when key already exists.
	Upsert func(key string, cols []string) string
	// Schema is applied in order by Migrate; statements must be idempotent.
	Schema []string
}

// OnConflict is the postgres/sqlite upsert clause.
func OnConflict(key string, cols []string) string {
	set := make([]string, 0, len(cols))
	for _, c := range cols {
		set = append(set, fmt.Sprintf("%s=EXCLUDED.%s", c, c))
	}
	return fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s", key, strings.Join(set, ", "))
}

// OnDuplicateKey is the mysql upsert clause.
func OnDuplicateKey(_ string, cols []string) string {
	set := make([]string, 0, len(cols))
	for _, c := range cols {
		set = append(set, fmt.Sprintf("%s=VALUES(%s)", c, c))
	}
	return "ON DUPLICATE KEY UPDATE " + strings.Join(set, ", ")
}

func (d Dialect) rebind(q string) string {
	if !d.Numbered {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// upsert builds INSERT ... VALUES (...) <conflict clause> for table keyed by cols[0].
func (d Dialect) upsert(table string, cols []string) string {
	marks := strings.TrimSuffix(strings.Repeat("?,", len(cols)), ",")
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) %s",
		table, strings.Join(cols, ", "), marks, d.Upsert(cols[0], cols[1:]))
	return d.rebind(q)
}

// Migrate applies the dialect schema.
func Migrate(ctx context.Context, db *sql.DB, d Dialect) error {
	for i, stmt := range d.Schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s migrate step %d: %w", d.Name, i, err)
		}
	}
	return nil
}

// stringOrDash returns "-" when the input is empty/whitespace
func stringOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

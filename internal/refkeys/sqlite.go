// SQLite-backed key provider via database/sql, for file-local ingests.
package refkeys

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	// SQLite driver.
	_ "modernc.org/sqlite"

	"tablecheck/internal/schema"
	"tablecheck/internal/validate"
)

// FromSQLite reads the distinct values of table.column into a key set. The
// DSN is passed straight to database/sql, e.g. "file:mines.db?mode=ro".
func FromSQLite(ctx context.Context, dsn, table, column string, field *schema.Field) (validate.KeySet, error) {
	fc, err := coercerFor(field)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	q := fmt.Sprintf(
		"SELECT DISTINCT CAST(%s AS TEXT) FROM %s WHERE %s IS NOT NULL",
		sqliteIdent(column), sqliteIdent(table), sqliteIdent(column),
	)
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query reference keys: %w", err)
	}
	defer rows.Close()

	keys := make(validate.KeySet)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("sqlite: scan reference key: %w", err)
		}
		if k, ok := canonicalize(fc, strings.TrimSpace(v)); ok {
			keys[k] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: read reference keys: %w", err)
	}
	return keys, nil
}

// sqliteIdent quotes an identifier with double quotes.
func sqliteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

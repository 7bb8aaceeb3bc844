// Postgres-backed key provider using pgx v5. The referenced resource is
// commonly already ingested into a warehouse table; reading its key column
// back is far cheaper than re-parsing the source file.
package refkeys

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"tablecheck/internal/schema"
	"tablecheck/internal/validate"
)

// FromPostgres reads the distinct values of table.column into a key set.
// table and column are identifiers, not expressions; both are quoted.
func FromPostgres(ctx context.Context, dsn, table, column string, field *schema.Field) (validate.KeySet, error) {
	fc, err := coercerFor(field)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	defer pool.Close()

	q := fmt.Sprintf(
		"SELECT DISTINCT %s::text FROM %s WHERE %s IS NOT NULL",
		pgIdent(column), pgFQN(table), pgIdent(column),
	)
	rows, err := pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query reference keys: %w", err)
	}
	defer rows.Close()

	keys := make(validate.KeySet)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan reference key: %w", err)
		}
		if k, ok := canonicalize(fc, strings.TrimSpace(v)); ok {
			keys[k] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read reference keys: %w", err)
	}
	return keys, nil
}

// pgIdent quotes a single identifier.
func pgIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// pgFQN quotes a possibly schema-qualified table name ("public.mines").
func pgFQN(s string) string {
	parts := strings.Split(s, ".")
	for i, p := range parts {
		parts[i] = pgIdent(p)
	}
	return strings.Join(parts, ".")
}

package tenantdb

import (
	"context"

	"github.com/jackc/pgx/v5"
)

const nowExpr = "CURRENT_TIMESTAMP"

// Timestamp columns in preference order. Tenants created by older tooling
// may carry the snake_case variant or neither.
var timestampColumns = []string{"createdAt", "created_at"}

// timestampColumn returns the creation timestamp column of the tenant's users
// table, or "" when there is none. The answer is probed once and cached; a
// probe that finds no users table is not cached. When the probe itself fails
// the column created by Initializer is assumed, also uncached.
func (h *Handle) timestampColumn(ctx context.Context) string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.probed {
		return h.tsColumn
	}

	col, found, err := probeTimestampColumn(ctx, h.db)
	if err != nil {
		return timestampColumns[0]
	}
	if !found {
		return ""
	}
	h.tsColumn = col
	h.probed = true
	return col
}

func (h *Handle) invalidateProbe() {
	h.mu.Lock()
	h.probed = false
	h.tsColumn = ""
	h.mu.Unlock()
}

func probeTimestampColumn(ctx context.Context, db DB) (col string, tableFound bool, err error) {
	rows, err := db.Query(ctx,
		`SELECT column_name FROM information_schema.columns
		 WHERE table_schema = current_schema() AND table_name = 'users'`)
	if err != nil {
		return "", false, err
	}
	defer rows.Close()

	present := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return "", false, err
		}
		present[name] = true
	}
	if err := rows.Err(); err != nil {
		return "", false, err
	}

	if len(present) == 0 {
		return "", false, nil
	}
	for _, c := range timestampColumns {
		if present[c] {
			return c, true, nil
		}
	}
	return "", true, nil
}

func timestampExpr(col string) string {
	if col == "" {
		return nowExpr
	}
	return pgx.Identifier{col}.Sanitize()
}

// Package store implements the concrete backend behind spec.md §6.5's
// opaque persistence port: insert trade, update trade settlement,
// batch-insert order-book/funding/liquidation records, query pending
// cross-market opportunities, mark an opportunity settled. Grounded on
// the pack's sqlx+lib/pq stack (named in SPEC_FULL.md's dependency table
// against other_examples/cryptorun, which lists them in its own go.mod
// without a retrievable source file to imitate directly) — so this
// package follows sqlx's own documented idioms: a *sqlx.DB held behind a
// thin wrapper, ExecContext/QueryRowContext with positional placeholders for single-row writes, and manual
// multi-row VALUES construction for batches, since sqlx has no native
// bulk-insert helper.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// DB wraps a Postgres connection pool implementing every operation the
// core's persistence port names.
type DB struct {
	conn *sqlx.DB
}

// Open connects to dsn (a postgres:// URL) and verifies it with a ping.
func Open(ctx context.Context, dsn string) (*DB, error) {
	conn, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Migrate applies the schema idempotently. Safe to call on every
// startup; every statement is CREATE ... IF NOT EXISTS.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// placeholders builds "($1,$2,...),($n+1,...)" for a multi-row insert of
// rowCount rows each with colCount columns, since sqlx has no bulk-insert
// builder of its own.
func placeholders(rowCount, colCount int) string {
	var sb strings.Builder
	n := 1
	for r := 0; r < rowCount; r++ {
		if r > 0 {
			sb.WriteByte(',')
		}
		sb.WriteByte('(')
		for c := 0; c < colCount; c++ {
			if c > 0 {
				sb.WriteByte(',')
			}
			fmt.Fprintf(&sb, "$%d", n)
			n++
		}
		sb.WriteByte(')')
	}
	return sb.String()
}

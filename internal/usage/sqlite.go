package usage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteMeter persists monthly totals in a SQLite database so they survive
// restarts.
type SQLiteMeter struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteMeter opens the database at dsn, configures WAL mode and creates
// the usage table.
func NewSQLiteMeter(ctx context.Context, dsn string) (*SQLiteMeter, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: exec %s: %w", pragma, err)
		}
	}

	m := &SQLiteMeter{db: db, now: time.Now}
	if err := m.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return m, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS token_usage (
	month      TEXT PRIMARY KEY,
	tokens     INTEGER NOT NULL DEFAULT 0,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

func (m *SQLiteMeter) migrate(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, sqliteMigration); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

// Add implements Meter.
func (m *SQLiteMeter) Add(ctx context.Context, tokens int) (int, error) {
	month := MonthKey(m.now())
	if tokens > 0 {
		_, err := m.db.ExecContext(ctx, `
			INSERT INTO token_usage (month, tokens, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(month) DO UPDATE SET
				tokens = tokens + excluded.tokens,
				updated_at = excluded.updated_at`,
			month, tokens, m.now().UTC())
		if err != nil {
			return 0, fmt.Errorf("sqlite: add usage: %w", err)
		}
	}
	return m.totalFor(ctx, month)
}

// Total implements Meter.
func (m *SQLiteMeter) Total(ctx context.Context) (int, error) {
	return m.totalFor(ctx, MonthKey(m.now()))
}

func (m *SQLiteMeter) totalFor(ctx context.Context, month string) (int, error) {
	var total int
	err := m.db.QueryRowContext(ctx, `SELECT tokens FROM token_usage WHERE month = ?`, month).Scan(&total)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("sqlite: read usage: %w", err)
	}
	return total, nil
}

// Close closes the database.
func (m *SQLiteMeter) Close() error {
	return m.db.Close()
}

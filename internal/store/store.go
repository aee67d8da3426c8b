// Package store handles SQLite persistence of previously joined hosts.
package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/tuirace/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// DefaultRecentLimit caps how many hosts are kept.
const DefaultRecentLimit = 10

// Store wraps SQLite access for the recent-hosts list.
type Store struct {
	db    *sql.DB
	now   func() time.Time
	limit int
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db, now: time.Now, limit: DefaultRecentLimit}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS hosts (
			address TEXT PRIMARY KEY,
			last_used TEXT NOT NULL,
			joins INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_hosts_last_used ON hosts(last_used);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// RememberHost records a successful join and trims the list to its limit.
func (s *Store) RememberHost(ctx context.Context, address string) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO hosts (address, last_used, joins) VALUES (?, ?, 1)
		 ON CONFLICT(address) DO UPDATE SET last_used = excluded.last_used, joins = joins + 1`,
		address,
		s.now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx,
		`DELETE FROM hosts WHERE address NOT IN (
			SELECT address FROM hosts ORDER BY last_used DESC LIMIT ?
		)`, s.limit); err != nil {
		return err
	}
	err = tx.Commit()
	return err
}

// RecentHosts returns remembered hosts, most recent first.
func (s *Store) RecentHosts(ctx context.Context, limit int) ([]model.HostEntry, error) {
	if limit <= 0 {
		limit = s.limit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT address, last_used, joins FROM hosts ORDER BY last_used DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var hosts []model.HostEntry
	for rows.Next() {
		var entry model.HostEntry
		var lastUsed string
		if err := rows.Scan(&entry.Address, &lastUsed, &entry.Joins); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, lastUsed)
		if err != nil {
			return nil, err
		}
		entry.LastUsed = parsed
		hosts = append(hosts, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return hosts, nil
}

// LastHost returns the most recently joined host, or "" when there is none.
func (s *Store) LastHost(ctx context.Context) (string, error) {
	hosts, err := s.RecentHosts(ctx, 1)
	if err != nil {
		return "", err
	}
	if len(hosts) == 0 {
		return "", nil
	}
	return hosts[0].Address, nil
}

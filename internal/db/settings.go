package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"syscall"

	"github.com/marcus/tally/internal/kv"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Get implements kv.Store over the settings table.
func (db *DB) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := db.conn.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, true, nil
}

// Set implements kv.Store. A full disk or database maps to kv.ErrStorageFull.
func (db *DB) Set(ctx context.Context, key string, value []byte) error {
	return db.withWriteLock(ctx, func() error {
		return db.upsertSetting(ctx, key, value)
	})
}

// Update implements kv.Updater. The read, fn and write all happen under the
// cross-process write lock, so handles in other processes cannot interleave.
func (db *DB) Update(ctx context.Context, key string, fn kv.UpdateFunc) error {
	return db.withWriteLock(ctx, func() error {
		old, found, err := db.Get(ctx, key)
		if err != nil {
			return err
		}
		value, err := fn(old, found)
		if err != nil || value == nil {
			return err
		}
		return db.upsertSetting(ctx, key, value)
	})
}

func (db *DB) upsertSetting(ctx context.Context, key string, value []byte) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value)
	if err != nil {
		if isStorageFull(err) {
			return fmt.Errorf("set setting %s: %w: %v", key, kv.ErrStorageFull, err)
		}
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

// SettingKeys lists stored keys starting with prefix, sorted.
func (db *DB) SettingKeys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT key FROM settings WHERE substr(key, 1, ?) = ? ORDER BY key`, len(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// isStorageFull reports whether err means the database or disk has no room.
func isStorageFull(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_FULL {
		return true
	}
	if errors.Is(err, syscall.ENOSPC) {
		return true
	}
	// Other drivers only surface the message.
	return strings.Contains(strings.ToLower(err.Error()), "database or disk is full")
}

var (
	_ kv.Store   = (*DB)(nil)
	_ kv.Updater = (*DB)(nil)
)

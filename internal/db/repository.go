// Package db provides the record repository backing the library store.
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kimhsiao/photolib/backend/internal/store"
)

// Repository stores library records in the records table. It implements
// store.Backend.
type Repository struct {
	db *sql.DB

	// Prepared statements are cached on first use, keyed by query text.
	stmtCache sync.Map // map[string]*sql.Stmt
}

var _ store.Backend = (*Repository)(nil)

// NewRepository creates a new Repository instance.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// PrepareStmt gets or creates a prepared statement from cache.
func (r *Repository) PrepareStmt(query string) (*sql.Stmt, error) {
	if stmt, ok := r.stmtCache.Load(query); ok {
		return stmt.(*sql.Stmt), nil
	}

	stmt, err := r.db.Prepare(query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}

	actual, loaded := r.stmtCache.LoadOrStore(query, stmt)
	if loaded {
		stmt.Close()
		return actual.(*sql.Stmt), nil
	}
	return stmt, nil
}

// Close closes all cached prepared statements and the database.
func (r *Repository) Close() error {
	var firstErr error
	r.stmtCache.Range(func(key, value interface{}) bool {
		if err := value.(*sql.Stmt).Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		return true
	})
	if err := r.db.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Get returns the payload stored under key.
func (r *Repository) Get(key string) ([]byte, error) {
	stmt, err := r.PrepareStmt(`SELECT payload FROM records WHERE key = ?`)
	if err != nil {
		return nil, err
	}

	var payload []byte
	if err := stmt.QueryRow(key).Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.NotFound(key)
		}
		return nil, fmt.Errorf("failed to read record: %w", err)
	}
	return payload, nil
}

// Put inserts or replaces the record for key in a single statement.
func (r *Repository) Put(key string, data []byte) error {
	stmt, err := r.PrepareStmt(`
	INSERT INTO records (key, payload, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at
	`)
	if err != nil {
		return err
	}
	if _, err := stmt.Exec(key, data, time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	return nil
}

// Delete removes the record for key.
func (r *Repository) Delete(key string) error {
	stmt, err := r.PrepareStmt(`DELETE FROM records WHERE key = ?`)
	if err != nil {
		return err
	}
	res, err := stmt.Exec(key)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.NotFound(key)
	}
	return nil
}

// Keys lists stored keys that start with prefix, in key order.
func (r *Repository) Keys(prefix string) ([]string, error) {
	stmt, err := r.PrepareStmt(`SELECT key FROM records WHERE substr(key, 1, length(?)) = ? ORDER BY key`)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.Query(prefix, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

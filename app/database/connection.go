package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrStoreUnavailable marks failures of the novelty store itself, as
// opposed to a record simply not existing. Callers treat it as fatal for
// the current source's run only.
var ErrStoreUnavailable = errors.New("novelty store unavailable")

type DB struct {
	*sql.DB
}

// NewConnection opens the SQLite novelty database. WAL mode and a busy
// timeout let concurrent source tasks share the file through the
// connection pool without long-held locks.
func NewConnection(path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w: %w", ErrStoreUnavailable, err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w: %w", ErrStoreUnavailable, err)
	}

	return &DB{DB: db}, nil
}

// storeErr wraps a query failure so callers can detect store outage with
// errors.Is(err, ErrStoreUnavailable).
func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

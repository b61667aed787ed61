package store

import (
	"database/sql"
	"time"
)

// Store exposes the support-desk persistence operations on top of DB.
// It is safe for concurrent use; per-conversation write ordering is the
// caller's responsibility (see the hub's per-customer locks).
type Store struct {
	db *DB
}

// New creates a Store using the given database.
func New(db *DB) *Store {
	return &Store{db: db}
}

// Timestamps are stored as UTC datetime strings so lexicographic and
// chronological order agree.

func fmtTime(t time.Time) string {
	return t.UTC().Format(time.DateTime)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.DateTime, s)
	return t
}

func nullTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t := parseTime(s.String)
	return &t
}

func nullInt(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

package db

import (
	"database/sql"
	"fmt"
	"time"
)

// writerConnection opens the cache for the single writer goroutine.
// SQLite permits one writer at a time, so the pool is pinned to a single
// connection; read traffic never lands here, NewReader opens its own
// read-only pool.
func writerConnection(database string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", database))
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(time.Hour)

	// The write path is one small upsert per document event plus the
	// periodic tidy. NORMAL synchronous is safe under WAL here: losing
	// the tail of the cache on power loss only costs a replay from the
	// persisted stream cursor.
	if _, err := db.Exec(`
		PRAGMA busy_timeout = 5000;
		PRAGMA synchronous = NORMAL;
		PRAGMA cache_size = -8000; -- 8MB page cache, the table stays small
		PRAGMA temp_store = MEMORY;
	`); err != nil {
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}

	return db, nil
}

// Package sqlite implements the repository interfaces on an embedded SQLite
// database.
//
// We use modernc.org/sqlite (a pure-Go translation of SQLite) rather than the
// CGo driver, so the binary cross-compiles without a C toolchain. The database
// is a single file; ":memory:" gives tests a fresh throwaway instance.
//
// All cross-request coordination in this application is delegated to SQLite's
// per-statement atomicity: identity find-or-create rides on the UNIQUE
// constraint, comment appends are single INSERTs, and payment-credit spends
// are single conditional UPDATEs. No in-process lock is held across any
// database call.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	// Blank import registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and provides the repository methods.
type DB struct {
	conn       *sql.DB
	sessionTTL time.Duration
}

// New opens the database at dbPath, configures it, and runs migrations.
// sessionTTL is the store-level eviction deadline stamped onto new sessions.
//
// dbPath examples:
//   - "data/storyhub.db" → file-based database (persistent)
//   - ":memory:"         → in-memory database (tests, lost on close)
func New(dbPath string, sessionTTL time.Duration) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// With ":memory:" every pooled connection would get its own empty
	// database. Pinning the pool to a single connection keeps tests on one
	// shared instance; file-backed databases keep the default pool.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	// sql.Open is lazy; Ping surfaces a bad path or permissions now rather
	// than on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL mode allows concurrent reads while a write is in flight — multiple
	// request handlers hit this pool at once.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are off by default in SQLite. We rely on them: comments
	// reference posts (ON DELETE CASCADE) and posts reference users.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn, sessionTTL: sessionTTL}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool. Callers should defer this right
// after New so the WAL is flushed and the file lock released on shutdown.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps this safe to
// run on every start.
func (db *DB) migrate() error {
	// users: (provider, provider_id) is the external identity and is UNIQUE —
	// that constraint is the tie-breaker for concurrent first logins.
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id           TEXT PRIMARY KEY,
			provider     TEXT NOT NULL,
			provider_id  TEXT NOT NULL,
			display_name TEXT NOT NULL,
			avatar_url   TEXT NOT NULL DEFAULT '',
			email        TEXT NOT NULL DEFAULT '',
			phone        TEXT NOT NULL DEFAULT '',
			location     TEXT NOT NULL DEFAULT '',
			created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (provider, provider_id)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// posts: owner_id is written once at INSERT and never by UPDATE.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS posts (
			id             TEXT PRIMARY KEY,
			owner_id       TEXT NOT NULL REFERENCES users(id),
			title          TEXT NOT NULL,
			body           TEXT NOT NULL DEFAULT '',
			status         TEXT NOT NULL DEFAULT 'draft'
			               CHECK (status IN ('draft', 'public')),
			allow_comments INTEGER NOT NULL DEFAULT 1,
			created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_posts_owner  ON posts(owner_id);
		CREATE INDEX IF NOT EXISTS idx_posts_status ON posts(status, created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating posts table: %w", err)
	}

	// comments: the append-only log. A comment is one row; appending is one
	// INSERT, so concurrent commenters can never overwrite each other the way
	// a read-whole-post/modify/write-whole-post cycle could. seq (AUTOINCREMENT)
	// records the store's commit order and is the canonical sort key.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS comments (
			seq        INTEGER PRIMARY KEY AUTOINCREMENT,
			id         TEXT NOT NULL UNIQUE,
			post_id    TEXT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
			author_id  TEXT NOT NULL REFERENCES users(id),
			body       TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_comments_post ON comments(post_id, seq);
	`)
	if err != nil {
		return fmt.Errorf("creating comments table: %w", err)
	}

	// sessions: server-side token → user mapping plus the payment credit
	// counter. Destroying the row is what logout means.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			token        TEXT PRIMARY KEY,
			user_id      TEXT NOT NULL REFERENCES users(id),
			post_credits INTEGER NOT NULL DEFAULT 0,
			created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			expires_at   DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating sessions table: %w", err)
	}

	return nil
}

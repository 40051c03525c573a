package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sakif/storyhub/internal/apperror"
	"github.com/sakif/storyhub/internal/model"
	"github.com/sakif/storyhub/internal/repository"
)

// compile-time check that *DB implements repository.SessionRepository
var _ repository.SessionRepository = (*DB)(nil)

// CreateSession issues a fresh session for userID.
//
// The token is an opaque random UUID; it carries no information, it is only
// a key into this table. expires_at is the store's eviction deadline — a
// housekeeping bound, not a protocol guarantee (logout kills the row earlier).
func (db *DB) CreateSession(ctx context.Context, userID string) (*model.Session, error) {
	now := time.Now()
	session := &model.Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(db.sessionTTL),
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, post_credits, created_at, expires_at)
		 VALUES (?, ?, 0, ?, ?)`,
		session.Token,
		session.UserID,
		session.CreatedAt,
		session.ExpiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: creating session for user %s: %w", userID, err)
	}

	return session, nil
}

// GetSession returns the live session for token.
//
// Unknown tokens and expired sessions both come back as NotFound — the
// middleware treats them identically (no valid session). Expired rows are
// evicted lazily on the read that discovers them.
func (db *DB) GetSession(ctx context.Context, token string) (*model.Session, error) {
	var s model.Session
	err := db.conn.QueryRowContext(ctx,
		`SELECT token, user_id, post_credits, created_at, expires_at
		 FROM sessions WHERE token = ?`,
		token,
	).Scan(&s.Token, &s.UserID, &s.PostCredits, &s.CreatedAt, &s.ExpiresAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("session", token)
		}
		return nil, fmt.Errorf("sqlite: getting session: %w", err)
	}

	if s.Expired(time.Now()) {
		// Best-effort eviction; the session is invalid either way.
		_, _ = db.conn.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
		return nil, apperror.NotFound("session", token)
	}

	return &s, nil
}

// DeleteSession destroys a session immediately. Idempotent: deleting an
// unknown token is not an error (logout after expiry should still succeed).
func (db *DB) DeleteSession(ctx context.Context, token string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("sqlite: deleting session: %w", err)
	}
	return nil
}

// GrantPostCredit records one successful charge against the session.
func (db *DB) GrantPostCredit(ctx context.Context, token string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE sessions SET post_credits = post_credits + 1 WHERE token = ?`,
		token,
	)
	if err != nil {
		return fmt.Errorf("sqlite: granting post credit: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: granting post credit: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("session", token)
	}

	return nil
}

// ConsumePostCredit atomically spends one credit.
//
// The conditional UPDATE is the whole concurrency story: the WHERE clause
// only matches while a credit remains, so two concurrent /savePost requests
// racing over a single paid credit resolve in the store — one row update
// succeeds, the other matches nothing and gets ErrPaymentRequired.
func (db *DB) ConsumePostCredit(ctx context.Context, token string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE sessions SET post_credits = post_credits - 1
		 WHERE token = ? AND post_credits > 0`,
		token,
	)
	if err != nil {
		return fmt.Errorf("sqlite: consuming post credit: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: consuming post credit: %w", err)
	}
	if affected == 0 {
		return apperror.PaymentRequired()
	}

	return nil
}

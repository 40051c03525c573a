package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/storyhub/internal/apperror"
	"github.com/sakif/storyhub/internal/model"
	"github.com/sakif/storyhub/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// FindOrCreate resolves (provider, provider_id) to exactly one user row.
//
// The insert uses ON CONFLICT DO NOTHING against the UNIQUE(provider,
// provider_id) constraint, then reads the row back. This makes the operation
// safe under concurrent first-logins for the same identity: if two requests
// race, one INSERT wins, the other becomes a no-op, and both SELECTs return
// the winner's row. The loser never errors and never creates a duplicate.
//
// Existing rows are returned untouched — this method never updates profile
// attributes. Profile edits are a separate, owner-initiated operation
// (UpdateAttributes).
func (db *DB) FindOrCreate(ctx context.Context, user *model.User) (*model.User, error) {
	now := time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, provider, provider_id, display_name, avatar_url, email, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (provider, provider_id) DO NOTHING`,
		xid.New().String(),
		user.Provider,
		user.ProviderID,
		user.DisplayName,
		user.AvatarURL,
		user.Email,
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: inserting user (%s/%s): %w", user.Provider, user.ProviderID, err)
	}

	// Read back whichever row now holds the identity — ours or a concurrent
	// winner's.
	resolved, err := db.getUserBy(ctx,
		`SELECT id, provider, provider_id, display_name, avatar_url, email, phone, location, created_at, updated_at
		 FROM users WHERE provider = ? AND provider_id = ?`,
		user.Provider, user.ProviderID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: resolving user (%s/%s): %w", user.Provider, user.ProviderID, err)
	}

	return resolved, nil
}

// GetUserByID retrieves a user by internal id.
// Returns apperror.ErrNotFound if no user exists with that id.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	u, err := db.getUserBy(ctx,
		`SELECT id, provider, provider_id, display_name, avatar_url, email, phone, location, created_at, updated_at
		 FROM users WHERE id = ?`,
		id,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

// List returns all users, oldest first.
func (db *DB) List(ctx context.Context) ([]model.User, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, provider, provider_id, display_name, avatar_url, email, phone, location, created_at, updated_at
		 FROM users ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		var u model.User
		if err := scanUser(rows, &u); err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating user rows: %w", err)
	}

	return users, nil
}

// UpdateAttributes overwrites the owner-editable attributes of an existing
// user. Identity fields (provider, provider_id) and display name are not
// touched here.
func (db *DB) UpdateAttributes(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET email = ?, phone = ?, location = ?, updated_at = ?
		 WHERE id = ?`,
		user.Email,
		user.Phone,
		user.Location,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}
	if affected == 0 {
		return apperror.NotFound("user", user.ID)
	}

	return nil
}

// rowScanner covers *sql.Row and *sql.Rows so the scan column list lives in
// one place.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(r rowScanner, u *model.User) error {
	return r.Scan(
		&u.ID,
		&u.Provider,
		&u.ProviderID,
		&u.DisplayName,
		&u.AvatarURL,
		&u.Email,
		&u.Phone,
		&u.Location,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
}

func (db *DB) getUserBy(ctx context.Context, query string, args ...any) (*model.User, error) {
	var u model.User
	if err := scanUser(db.conn.QueryRowContext(ctx, query, args...), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

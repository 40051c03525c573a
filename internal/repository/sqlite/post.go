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

// compile-time check that *DB implements repository.PostRepository
var _ repository.PostRepository = (*DB)(nil)

// Create inserts a new post. The repository fills in ID and timestamps.
func (db *DB) Create(ctx context.Context, post *model.Post) error {
	now := time.Now()
	post.ID = xid.New().String()
	post.CreatedAt = now
	post.UpdatedAt = now
	if post.Status == "" {
		post.Status = model.StatusDraft
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO posts (id, owner_id, title, body, status, allow_comments, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		post.ID,
		post.OwnerID,
		post.Title,
		post.Body,
		string(post.Status),
		post.AllowComments,
		post.CreatedAt,
		post.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting post (owner=%s): %w", post.OwnerID, err)
	}

	return nil
}

// GetByID retrieves a post by id, without its comment log.
// Returns apperror.ErrNotFound if the post doesn't exist.
func (db *DB) GetByID(ctx context.Context, id string) (*model.Post, error) {
	var p model.Post
	err := scanPost(db.conn.QueryRowContext(ctx,
		`SELECT id, owner_id, title, body, status, allow_comments, created_at, updated_at
		 FROM posts WHERE id = ?`,
		id,
	), &p)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("post", id)
		}
		return nil, fmt.Errorf("sqlite: getting post %s: %w", id, err)
	}

	return &p, nil
}

// ListPublic returns all posts with status = public, newest first.
// Drafts never appear here regardless of who asks.
func (db *DB) ListPublic(ctx context.Context) ([]model.Post, error) {
	return db.listPosts(ctx,
		`SELECT id, owner_id, title, body, status, allow_comments, created_at, updated_at
		 FROM posts WHERE status = ? ORDER BY created_at DESC, id DESC`,
		string(model.StatusPublic),
	)
}

// ListByOwner returns one user's posts, newest first. includeDrafts is true
// only on the owner's own profile view.
func (db *DB) ListByOwner(ctx context.Context, ownerID string, includeDrafts bool) ([]model.Post, error) {
	if includeDrafts {
		return db.listPosts(ctx,
			`SELECT id, owner_id, title, body, status, allow_comments, created_at, updated_at
			 FROM posts WHERE owner_id = ? ORDER BY created_at DESC, id DESC`,
			ownerID,
		)
	}
	return db.listPosts(ctx,
		`SELECT id, owner_id, title, body, status, allow_comments, created_at, updated_at
		 FROM posts WHERE owner_id = ? AND status = ? ORDER BY created_at DESC, id DESC`,
		ownerID, string(model.StatusPublic),
	)
}

// Update persists the mutable fields of a post. owner_id is deliberately
// absent from the SET list — ownership never changes after creation.
func (db *DB) Update(ctx context.Context, post *model.Post) error {
	post.UpdatedAt = time.Now()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE posts SET title = ?, body = ?, status = ?, allow_comments = ?, updated_at = ?
		 WHERE id = ?`,
		post.Title,
		post.Body,
		string(post.Status),
		post.AllowComments,
		post.UpdatedAt,
		post.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating post %s: %w", post.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: updating post %s: %w", post.ID, err)
	}
	if affected == 0 {
		return apperror.NotFound("post", post.ID)
	}

	return nil
}

// Delete removes a post. The comments foreign key is ON DELETE CASCADE, so
// the comment log goes with it.
func (db *DB) Delete(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting post %s: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: deleting post %s: %w", id, err)
	}
	if affected == 0 {
		return apperror.NotFound("post", id)
	}

	return nil
}

func scanPost(r rowScanner, p *model.Post) error {
	var status string
	if err := r.Scan(
		&p.ID,
		&p.OwnerID,
		&p.Title,
		&p.Body,
		&status,
		&p.AllowComments,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return err
	}
	p.Status = model.PostStatus(status)
	return nil
}

func (db *DB) listPosts(ctx context.Context, query string, args ...any) ([]model.Post, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing posts: %w", err)
	}
	defer rows.Close()

	posts := []model.Post{}
	for rows.Next() {
		var p model.Post
		if err := scanPost(rows, &p); err != nil {
			return nil, fmt.Errorf("sqlite: scanning post row: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating post rows: %w", err)
	}

	return posts, nil
}

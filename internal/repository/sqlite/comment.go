package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/storyhub/internal/apperror"
	"github.com/sakif/storyhub/internal/model"
	"github.com/sakif/storyhub/internal/repository"
)

// compile-time check that *DB implements repository.CommentRepository
var _ repository.CommentRepository = (*DB)(nil)

// Append adds one comment to a post's log.
//
// The append is a single INSERT, so it is atomic at the store: N concurrent
// commenters produce N rows, each taking its own AUTOINCREMENT seq in commit
// order. Nothing here reads the post's existing comments, so there is no
// window in which two writers could overwrite each other.
//
// The post_id foreign key doubles as the existence check for a post deleted
// between the service's precondition read and this insert.
func (db *DB) Append(ctx context.Context, comment *model.Comment) error {
	comment.ID = xid.New().String()
	comment.CreatedAt = time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO comments (id, post_id, author_id, body, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		comment.ID,
		comment.PostID,
		comment.AuthorID,
		comment.Body,
		comment.CreatedAt,
	)
	if err != nil {
		// A violated post_id foreign key means the post vanished under us.
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return apperror.NotFound("post", comment.PostID)
		}
		return fmt.Errorf("sqlite: appending comment to post %s: %w", comment.PostID, err)
	}

	return nil
}

// ListByPost returns a post's comments oldest first, ordered by the seq
// column — the store's commit order, which is the canonical comment order.
func (db *DB) ListByPost(ctx context.Context, postID string) ([]model.Comment, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, post_id, author_id, body, created_at
		 FROM comments WHERE post_id = ? ORDER BY seq`,
		postID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing comments for post %s: %w", postID, err)
	}
	defer rows.Close()

	comments := []model.Comment{}
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Body, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning comment row: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating comment rows: %w", err)
	}

	return comments, nil
}

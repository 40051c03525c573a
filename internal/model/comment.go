package model

import "time"

// Comment is a single entry in a post's append-only comment log.
// Immutable once written: comments are never edited, reordered, or
// individually deleted (deleting a post removes its log wholesale).
type Comment struct {
	ID        string    `json:"id"        db:"id"`
	PostID    string    `json:"postId"    db:"post_id"`
	AuthorID  string    `json:"authorId"  db:"author_id"`
	Body      string    `json:"body"      db:"body"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

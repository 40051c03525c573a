package model

import "time"

// PostStatus is the visibility state of a post.
//
// The machine has exactly two states and one transition:
//
//	draft → public   (explicit author action, no reverse edge)
//
// "public" is the only status that makes a post appear in listings to other
// users. A draft is visible by id to its owner only.
type PostStatus string

const (
	StatusDraft  PostStatus = "draft"
	StatusPublic PostStatus = "public"
)

// ParseStatus validates a status string from user input.
// Anything other than the two known states is rejected — we deliberately do
// not accept or invent additional states.
func ParseStatus(s string) (PostStatus, bool) {
	switch PostStatus(s) {
	case StatusDraft, StatusPublic:
		return PostStatus(s), true
	}
	return "", false
}

// Post is an authored article.
//
// OwnerID is set at creation and never changes. Only the owner may edit or
// delete the post; any authenticated user may comment while AllowComments is
// true, regardless of ownership.
//
// Comments are not embedded here: they live in their own table and are
// appended with single INSERTs, so the post row is never rewritten to add a
// comment. Handlers that need them attach the slice via the Comments field.
type Post struct {
	ID            string     `json:"id"            db:"id"`
	OwnerID       string     `json:"ownerId"       db:"owner_id"` // immutable after creation
	Title         string     `json:"title"         db:"title"`
	Body          string     `json:"body"          db:"body"`
	Status        PostStatus `json:"status"        db:"status"`
	AllowComments bool       `json:"allowComments" db:"allow_comments"`
	CreatedAt     time.Time  `json:"createdAt"     db:"created_at"`
	UpdatedAt     time.Time  `json:"updatedAt"     db:"updated_at"`

	// Comments is populated on read paths that request the comment log.
	// Order is store commit order, oldest first.
	Comments []Comment `json:"comments,omitempty" db:"-"`
}

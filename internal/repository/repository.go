// Package repository declares the storage interfaces the service layer
// depends on. Services receive these interfaces, never a concrete *sqlite.DB,
// so tests inject in-memory fakes and the backend can be swapped in one place
// (server wiring).
package repository

import (
	"context"

	"github.com/sakif/storyhub/internal/model"
)

// UserRepository stores unified local identities.
type UserRepository interface {
	// FindOrCreate resolves (provider, providerID) to exactly one user row.
	// On first sight it persists the given record; if a row already exists —
	// including one inserted by a concurrent racer between any lookup and the
	// insert — it returns the existing row untouched. Profile attributes of an
	// existing user are never modified by this call.
	FindOrCreate(ctx context.Context, user *model.User) (*model.User, error)

	GetUserByID(ctx context.Context, id string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)

	// UpdateAttributes overwrites the owner-editable profile attributes
	// (email, phone, location) of an existing user.
	UpdateAttributes(ctx context.Context, user *model.User) error
}

// PostRepository stores posts. Comment rows are owned by CommentRepository;
// deleting a post cascades to its comment log.
type PostRepository interface {
	Create(ctx context.Context, post *model.Post) error
	GetByID(ctx context.Context, id string) (*model.Post, error)

	// ListPublic returns all posts with status = public, newest first.
	ListPublic(ctx context.Context) ([]model.Post, error)

	// ListByOwner returns all of one user's posts. includeDrafts controls
	// whether drafts appear; listings shown to other users pass false.
	ListByOwner(ctx context.Context, ownerID string, includeDrafts bool) ([]model.Post, error)

	// Update persists title, body, status and allowComments. OwnerID is not
	// written — ownership is immutable by schema and by omission here.
	Update(ctx context.Context, post *model.Post) error
	Delete(ctx context.Context, id string) error
}

// CommentRepository is the post's append-only comment log.
type CommentRepository interface {
	// Append adds one comment as a single atomic insert against the store.
	// Concurrent appends to the same post must all survive; the resulting
	// order is the store's commit order.
	Append(ctx context.Context, comment *model.Comment) error

	// ListByPost returns a post's comments in append order, oldest first.
	ListByPost(ctx context.Context, postID string) ([]model.Comment, error)
}

// SessionRepository is the server-side session store: opaque token → user id,
// plus the per-session payment credit counter.
type SessionRepository interface {
	CreateSession(ctx context.Context, userID string) (*model.Session, error)

	// GetSession returns the live session for token, or NotFound when the
	// token is unknown or the session has expired (expired rows are evicted
	// lazily).
	GetSession(ctx context.Context, token string) (*model.Session, error)

	// DeleteSession destroys the session immediately. Logout path.
	DeleteSession(ctx context.Context, token string) error

	// GrantPostCredit records one successful charge against the session.
	GrantPostCredit(ctx context.Context, token string) error

	// ConsumePostCredit atomically spends one credit. It returns
	// ErrPaymentRequired (wrapped) when the session holds none, and must be
	// safe against two concurrent consumers spending the same credit.
	ConsumePostCredit(ctx context.Context, token string) error
}

package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/storyhub/internal/apperror"
	"github.com/sakif/storyhub/internal/metrics"
	"github.com/sakif/storyhub/internal/model"
	"github.com/sakif/storyhub/internal/repository"
	"github.com/sakif/storyhub/internal/security"
)

const (
	MaxTitleLength = 200
	MaxBodyLength  = 100000 // ~100KB of text
)

// PostService enforces the two content rules over posts:
//
//   - Ownership: edit and delete succeed only when the authenticated user is
//     the post's owner. NotFound is checked before ownership, so probing ids
//     can't distinguish "not yours" from "doesn't exist" the wrong way round.
//   - Visibility: the public feed lists status=public only; a draft is
//     readable by id solely by its owner. draft → public is the only status
//     transition; nothing un-publishes a post.
//
// Creation additionally runs through the payment gate: Create spends one
// post credit from the caller's session before anything is persisted.
type PostService struct {
	posts     repository.PostRepository
	comments  repository.CommentRepository
	sessions  repository.SessionRepository
	sanitizer *security.Sanitizer
	recorder  metrics.Recorder
	logger    *slog.Logger
}

func NewPostService(
	posts repository.PostRepository,
	comments repository.CommentRepository,
	sessions repository.SessionRepository,
	sanitizer *security.Sanitizer,
	recorder metrics.Recorder,
	logger *slog.Logger,
) *PostService {
	return &PostService{
		posts:     posts,
		comments:  comments,
		sessions:  sessions,
		sanitizer: sanitizer,
		recorder:  recorder,
		logger:    logger,
	}
}

// Create validates, spends a payment credit, and persists a new post owned
// by ownerID.
//
// The credit spend is an atomic conditional update on the session row: when
// the session holds no credit (the user never paid, or already spent it on
// another post) Create fails with ErrPaymentRequired and nothing is
// persisted. Note the accepted consistency gap: the charge (at
// /acceptPayment) and this insert are two independent store operations, not
// one transaction — a crash between them loses the credit, never creates a
// half-paid post.
func (s *PostService) Create(ctx context.Context, sessionToken, ownerID, title, body, status string, allowComments bool) (*model.Post, error) {
	title = s.sanitizer.Plain(title)
	body = s.sanitizer.Body(body)

	if title == "" {
		return nil, apperror.ValidationFailed("title", "post title is required")
	}
	if len(title) > MaxTitleLength {
		return nil, apperror.ValidationFailed("title",
			fmt.Sprintf("post title must be %d characters or less", MaxTitleLength))
	}
	if len(body) > MaxBodyLength {
		return nil, apperror.ValidationFailed("body",
			fmt.Sprintf("post body must be %d characters or less", MaxBodyLength))
	}

	parsed, ok := model.ParseStatus(status)
	if !ok {
		return nil, apperror.ValidationFailed("status", "status must be draft or public")
	}

	// Payment gate: one paid credit buys exactly one post.
	if err := s.sessions.ConsumePostCredit(ctx, sessionToken); err != nil {
		return nil, err
	}

	post := &model.Post{
		OwnerID:       ownerID,
		Title:         title,
		Body:          body,
		Status:        parsed,
		AllowComments: allowComments,
	}

	if err := s.posts.Create(ctx, post); err != nil {
		s.logger.Error("failed to create post",
			slog.String("ownerID", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating post: %w", err)
	}

	s.recorder.RecordPostCreated()
	s.logger.Info("post created",
		slog.String("id", post.ID),
		slog.String("ownerID", ownerID),
		slog.String("status", string(post.Status)),
	)

	return post, nil
}

// Get returns one post with its comment log, applying the visibility rule:
// a public post is readable by any authenticated user, a draft only by its
// owner. Non-owners asking for a draft get NotFound rather than Forbidden so
// draft ids leak nothing.
func (s *PostService) Get(ctx context.Context, requesterID, postID string) (*model.Post, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	if post.Status != model.StatusPublic && post.OwnerID != requesterID {
		return nil, apperror.NotFound("post", postID)
	}

	comments, err := s.comments.ListByPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("loading comments for post %s: %w", postID, err)
	}
	post.Comments = comments

	return post, nil
}

// GetForEdit returns a post for the edit form without a visibility check —
// the route carries no gate (the mutating PUT still does). Missing ids are
// NotFound.
func (s *PostService) GetForEdit(ctx context.Context, postID string) (*model.Post, error) {
	return s.posts.GetByID(ctx, postID)
}

// ListPublic returns the public feed. Drafts never appear regardless of who
// asks.
func (s *PostService) ListPublic(ctx context.Context) ([]model.Post, error) {
	posts, err := s.posts.ListPublic(ctx)
	if err != nil {
		s.logger.Error("failed to list public posts", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing posts: %w", err)
	}
	return posts, nil
}

// ListByUser returns targetUserID's posts as seen by requesterID: the
// visibility rule applies relative to the target's posts, so drafts are
// included only when the requester is the target.
func (s *PostService) ListByUser(ctx context.Context, requesterID, targetUserID string) ([]model.Post, error) {
	includeDrafts := requesterID == targetUserID

	posts, err := s.posts.ListByOwner(ctx, targetUserID, includeDrafts)
	if err != nil {
		s.logger.Error("failed to list user posts",
			slog.String("targetUserID", targetUserID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing posts for user %s: %w", targetUserID, err)
	}
	return posts, nil
}

// Update applies an owner's edits to a post. NotFound before ownership;
// Forbidden when the requester isn't the owner; Validation when the edit
// tries to take a public post back to draft (the machine has no such edge).
func (s *PostService) Update(ctx context.Context, requesterID, postID, title, body, status string, allowComments bool) (*model.Post, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.OwnerID != requesterID {
		return nil, apperror.Forbidden("only the post's owner may edit it")
	}

	title = s.sanitizer.Plain(title)
	body = s.sanitizer.Body(body)

	if title == "" {
		return nil, apperror.ValidationFailed("title", "post title is required")
	}
	if len(title) > MaxTitleLength {
		return nil, apperror.ValidationFailed("title",
			fmt.Sprintf("post title must be %d characters or less", MaxTitleLength))
	}
	if len(body) > MaxBodyLength {
		return nil, apperror.ValidationFailed("body",
			fmt.Sprintf("post body must be %d characters or less", MaxBodyLength))
	}

	parsed, ok := model.ParseStatus(status)
	if !ok {
		return nil, apperror.ValidationFailed("status", "status must be draft or public")
	}
	if post.Status == model.StatusPublic && parsed == model.StatusDraft {
		return nil, apperror.ValidationFailed("status", "a public post cannot return to draft")
	}

	post.Title = title
	post.Body = body
	post.Status = parsed
	post.AllowComments = allowComments

	if err := s.posts.Update(ctx, post); err != nil {
		s.logger.Error("failed to update post",
			slog.String("id", postID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating post: %w", err)
	}

	s.logger.Info("post updated",
		slog.String("id", postID),
		slog.String("status", string(post.Status)),
	)

	return post, nil
}

// Delete removes an owner's post and, through the store's cascade, its
// comment log. NotFound before ownership.
func (s *PostService) Delete(ctx context.Context, requesterID, postID string) error {
	postID = strings.TrimSpace(postID)
	if postID == "" {
		return apperror.ValidationFailed("id", "post ID is required")
	}

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.OwnerID != requesterID {
		return apperror.Forbidden("only the post's owner may delete it")
	}

	if err := s.posts.Delete(ctx, postID); err != nil {
		return err
	}

	s.logger.Info("post deleted", slog.String("id", postID))
	return nil
}

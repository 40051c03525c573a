package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/storyhub/internal/apperror"
	"github.com/sakif/storyhub/internal/metrics"
	"github.com/sakif/storyhub/internal/model"
	"github.com/sakif/storyhub/internal/repository"
	"github.com/sakif/storyhub/internal/security"
)

const MaxCommentLength = 2000

// CommentService appends to posts' comment logs.
//
// The correctness requirement is that concurrent appends from different
// authors never lose a comment. That guarantee lives in the store — an
// append is a single insert against the post id, not a read-the-post,
// push-in-memory, write-the-post cycle — so this service holds no locks and
// keeps no state between the precondition checks and the append.
type CommentService struct {
	posts     repository.PostRepository
	comments  repository.CommentRepository
	sanitizer *security.Sanitizer
	recorder  metrics.Recorder
	logger    *slog.Logger
}

func NewCommentService(
	posts repository.PostRepository,
	comments repository.CommentRepository,
	sanitizer *security.Sanitizer,
	recorder metrics.Recorder,
	logger *slog.Logger,
) *CommentService {
	return &CommentService{
		posts:     posts,
		comments:  comments,
		sanitizer: sanitizer,
		recorder:  recorder,
		logger:    logger,
	}
}

// Append adds a comment by authorID to the post.
//
// Preconditions, in order: the post exists (NotFound), the post accepts
// comments (Forbidden — commenting is open to every authenticated user, but
// only while the owner allows it). The body is stripped to plain text and
// must be non-empty after stripping.
func (s *CommentService) Append(ctx context.Context, postID, authorID, body string) (*model.Comment, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !post.AllowComments {
		return nil, apperror.Forbidden("comments are disabled on this post")
	}

	body = s.sanitizer.Plain(body)
	if body == "" {
		return nil, apperror.ValidationFailed("body", "comment body is required")
	}
	if len(body) > MaxCommentLength {
		return nil, apperror.ValidationFailed("body",
			fmt.Sprintf("comment must be %d characters or less", MaxCommentLength))
	}

	comment := &model.Comment{
		PostID:   postID,
		AuthorID: authorID,
		Body:     body,
	}

	if err := s.comments.Append(ctx, comment); err != nil {
		s.logger.Error("failed to append comment",
			slog.String("postID", postID),
			slog.String("authorID", authorID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.recorder.RecordCommentAppended()
	s.logger.Info("comment appended",
		slog.String("id", comment.ID),
		slog.String("postID", postID),
	)

	return comment, nil
}

// ListByPost returns a post's comments in append order.
func (s *CommentService) ListByPost(ctx context.Context, postID string) ([]model.Comment, error) {
	comments, err := s.comments.ListByPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("listing comments for post %s: %w", postID, err)
	}
	return comments, nil
}

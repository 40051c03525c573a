package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sakif/storyhub/internal/auth"
	"github.com/sakif/storyhub/internal/service"
)

// CommentHandler appends comments to posts.
type CommentHandler struct {
	comments *service.CommentService
	logger   *slog.Logger
}

func NewCommentHandler(comments *service.CommentService, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{
		comments: comments,
		logger:   logger,
	}
}

type commentRequest struct {
	Body string `json:"body"`
}

// HandleAdd appends a comment by the requester to the post.
//
// HTTP: POST /addComment/{id} (authenticated)
//
// Any authenticated user may comment on a post that allows comments,
// ownership is irrelevant here; a post with comments disabled responds 403
// and appends nothing.
func (h *CommentHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	comment, err := h.comments.Append(r.Context(), chi.URLParam(r, "id"), userID, req.Body)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, comment)
}

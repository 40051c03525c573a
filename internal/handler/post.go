package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sakif/storyhub/internal/auth"
	"github.com/sakif/storyhub/internal/service"
)

// PostHandler serves the post listings and the owner-gated mutations.
type PostHandler struct {
	posts  *service.PostService
	logger *slog.Logger
}

func NewPostHandler(posts *service.PostService, logger *slog.Logger) *PostHandler {
	return &PostHandler{
		posts:  posts,
		logger: logger,
	}
}

// postRequest is the body for creating and editing posts.
type postRequest struct {
	Title         string `json:"title"`
	Body          string `json:"body"`
	Status        string `json:"status"`
	AllowComments bool   `json:"allowComments"`
}

// HandleSave creates a post owned by the requester.
//
// HTTP: POST /savePost (authenticated)
//
// The service consumes one payment credit from the caller's session before
// persisting anything; without a completed /acceptPayment this responds
// 402 and no post exists afterwards.
func (h *PostHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	token, tok := auth.SessionTokenFromContext(r.Context())
	if !ok || !tok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	var req postRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}
	if req.Status == "" {
		req.Status = "draft"
	}

	post, err := h.posts.Create(r.Context(), token, userID, req.Title, req.Body, req.Status, req.AllowComments)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, post)
}

// HandleListPublic returns the public feed.
//
// HTTP: GET /posts (authenticated)
func (h *PostHandler) HandleListPublic(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.ListPublic(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// HandleListByUser returns a given user's posts through the visibility rule:
// public posts only, unless the requester is looking at their own.
//
// HTTP: GET /showposts/{id} (authenticated)
func (h *PostHandler) HandleListByUser(w http.ResponseWriter, r *http.Request) {
	requesterID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	posts, err := h.posts.ListByUser(r.Context(), requesterID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// HandleEditForm returns the post data backing the edit form.
//
// HTTP: GET /editPost/{id} — the one ungated post route; missing ids are
// 404 and the mutating PUT below still enforces ownership.
func (h *PostHandler) HandleEditForm(w http.ResponseWriter, r *http.Request) {
	post, err := h.posts.GetForEdit(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// HandleUpdate applies the owner's edits, including the one-way draft →
// public transition.
//
// HTTP: PUT /editingPost/{id} (authenticated + ownership)
func (h *PostHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	var req postRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	post, err := h.posts.Update(r.Context(), userID, chi.URLParam(r, "id"), req.Title, req.Body, req.Status, req.AllowComments)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

// HandleDelete removes the owner's post and its comment log.
//
// HTTP: DELETE /{id} (authenticated + ownership)
func (h *PostHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	if err := h.posts.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "post deleted"})
}

// HandleGet returns one post with its comments, drafts visible to their
// owner only.
//
// HTTP: GET /post/{id} (authenticated)
func (h *PostHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	post, err := h.posts.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

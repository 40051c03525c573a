package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sakif/storyhub/internal/auth"
	"github.com/sakif/storyhub/internal/model"
	"github.com/sakif/storyhub/internal/service"
)

// UserHandler serves user records and the owner-initiated profile edits.
type UserHandler struct {
	users  *service.UserService
	posts  *service.PostService
	logger *slog.Logger
}

func NewUserHandler(users *service.UserService, posts *service.PostService, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		users:  users,
		posts:  posts,
		logger: logger,
	}
}

// profileResponse bundles the user with their posts for the profile page.
type profileResponse struct {
	User  *model.User  `json:"user"`
	Posts []model.Post `json:"posts"`
}

// HandleProfile returns the requester's own profile and all of their posts,
// drafts included — the visibility rule never hides an owner's own work.
//
// HTTP: GET /profile (authenticated)
func (h *UserHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		// Unreachable behind RequireAuth, but don't panic on a miswired route.
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	posts, err := h.posts.ListByUser(r.Context(), userID, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profileResponse{User: user, Posts: posts})
}

// HandleList returns all users.
//
// HTTP: GET /users (authenticated)
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// HandleGet returns one user by id.
//
// HTTP: GET /user/{id} (authenticated)
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// The three attribute endpoints below update the authenticated user's own
// profile. There is no "target user" parameter on purpose: the ownership
// rule for profile edits is enforced by construction, the session's user id
// is the only row reachable.

// HandleAddEmail sets the requester's email.
//
// HTTP: POST /addEmail (authenticated), form field "email"
func (h *UserHandler) HandleAddEmail(w http.ResponseWriter, r *http.Request) {
	h.updateAttribute(w, r, "email", h.users.UpdateEmail)
}

// HandleAddPhone sets the requester's phone number.
//
// HTTP: POST /addPhone (authenticated), form field "phone"
func (h *UserHandler) HandleAddPhone(w http.ResponseWriter, r *http.Request) {
	h.updateAttribute(w, r, "phone", h.users.UpdatePhone)
}

// HandleAddLocation sets the requester's location.
//
// HTTP: POST /addLocation (authenticated), form field "location"
func (h *UserHandler) HandleAddLocation(w http.ResponseWriter, r *http.Request) {
	h.updateAttribute(w, r, "location", h.users.UpdateLocation)
}

// updateAttribute is the shared parse-update-respond path for the three
// profile attribute endpoints.
func (h *UserHandler) updateAttribute(
	w http.ResponseWriter,
	r *http.Request,
	field string,
	update func(ctx context.Context, userID, value string) (*model.User, error),
) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid form body",
		})
		return
	}

	user, err := update(r.Context(), userID, r.PostFormValue(field))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

package handler

import (
	"net/http"

	"github.com/sakif/storyhub/internal/auth"
)

// HomeHandler serves the public landing page data.
type HomeHandler struct{}

func NewHomeHandler() *HomeHandler {
	return &HomeHandler{}
}

// HandleHome is the anonymous landing page, also the target of every
// unauthorized redirect. Behind OptionalAuth, so signed-in visitors get
// their user id back and the client can skip the login prompt.
//
// HTTP: GET /
func (h *HomeHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	if userID, ok := auth.UserIDFromContext(r.Context()); ok {
		writeJSON(w, http.StatusOK, map[string]any{
			"authenticated": true,
			"userId":        userID,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
}

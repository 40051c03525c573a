package auth

import (
	"context"
	"net/http"

	"github.com/sakif/storyhub/internal/model"
	"github.com/sakif/storyhub/internal/repository"
)

// SessionCookie is the name of the cookie carrying the opaque session token.
const SessionCookie = "session"

// contextKey is an unexported type for this package's context keys, so no
// other package can read or shadow the values we store.
type contextKey string

const (
	userIDKey       contextKey = "userID"
	sessionTokenKey contextKey = "sessionToken"
)

// RequireAuth gates a route on a live session.
//
// It reads the session cookie, resolves it against the server-side store and
// puts the bound user id (and the token itself, for the payment-credit
// operations) into the request context. Requests without a valid session are
// redirected to the public landing page — the browser-facing equivalent of
// 401 Unauthorized.
//
// Because the store is authoritative, a token that was logged out is dead the
// moment the session row is deleted; there is no grace period.
func RequireAuth(sessions repository.SessionRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := currentSession(r, sessions)
			if err != nil {
				http.Redirect(w, r, "/", http.StatusSeeOther)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, session.UserID)
			ctx = context.WithValue(ctx, sessionTokenKey, session.Token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireGuest is the inverse gate: it keeps already-authenticated users off
// anonymous-only routes (the login entry points) by bouncing them to their
// profile.
func RequireGuest(sessions repository.SessionRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := currentSession(r, sessions); err == nil {
				http.Redirect(w, r, "/profile", http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// OptionalAuth resolves the session if one is present but never blocks.
// Used on the landing page, which renders differently for signed-in users.
func OptionalAuth(sessions repository.SessionRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if session, err := currentSession(r, sessions); err == nil {
				ctx := context.WithValue(r.Context(), userIDKey, session.UserID)
				ctx = context.WithValue(ctx, sessionTokenKey, session.Token)
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserIDFromContext returns the authenticated user's id, or ("", false) on an
// anonymous request.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// SessionTokenFromContext returns the request's session token. The payment
// gate needs it: post credits are granted to and consumed from the session
// record, not the user record.
func SessionTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(sessionTokenKey).(string)
	return token, ok && token != ""
}

// currentSession reads the session cookie and resolves it in the store.
func currentSession(r *http.Request, sessions repository.SessionRepository) (*model.Session, error) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		// http.ErrNoCookie — no session presented, an anonymous request.
		return nil, err
	}

	return sessions.GetSession(r.Context(), cookie.Value)
}

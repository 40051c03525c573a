package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/xid"
	"github.com/sakif/storyhub/internal/auth"
	"github.com/sakif/storyhub/internal/metrics"
	"github.com/sakif/storyhub/internal/service"
)

// AuthHandler runs the login and logout flows for every registered identity
// provider.
//
// The provider is selected by URL (/auth/{provider}); the handler itself is
// provider-agnostic and works off the auth.Provider interface, so a new
// provider is just another entry in the registry map.
type AuthHandler struct {
	providers  map[string]auth.Provider
	identity   *service.IdentityService
	sessionTTL time.Duration
	recorder   metrics.Recorder
	logger     *slog.Logger
}

func NewAuthHandler(
	providers map[string]auth.Provider,
	identity *service.IdentityService,
	sessionTTL time.Duration,
	recorder metrics.Recorder,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		providers:  providers,
		identity:   identity,
		sessionTTL: sessionTTL,
		recorder:   recorder,
		logger:     logger,
	}
}

// HandleLogin redirects the browser to the provider's consent page.
//
// HTTP: GET /auth/{provider}    (guest-only; logged-in users are bounced
// to /profile by the RequireGuest middleware)
//
// A random state value goes into a short-lived cookie before the redirect;
// the callback must echo it, which proves the callback was initiated by this
// server and not forged cross-site.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	provider, ok := h.providers[chi.URLParam(r, "provider")]
	if !ok {
		http.NotFound(w, r)
		return
	}

	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes — long enough to approve consent
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, provider.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleCallback completes the login.
//
// HTTP: GET /auth/{provider}/callback?code=xxx&state=yyy
//
// Flow: verify the CSRF state, exchange the code for a normalized profile,
// resolve the profile to the one local user for that identity, open a
// session, set the session cookie, redirect to /profile. Every failure path
// redirects back to the public landing page — the user recovers by retrying
// the login, matching the recoverable nature of provider exchange errors.
func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	providerName := chi.URLParam(r, "provider")
	provider, ok := h.providers[providerName]
	if !ok {
		http.NotFound(w, r)
		return
	}

	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: state missing or mismatched",
			slog.String("provider", providerName),
		)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	// The state is single-use.
	http.SetCookie(w, &http.Cookie{
		Name:   "oauth_state",
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	// The provider reports denied consent as an error parameter, not a code.
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: consent denied",
			slog.String("provider", providerName),
			slog.String("error", errParam),
		)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	profile, err := provider.Exchange(r.Context(), code)
	if err != nil {
		h.recorder.RecordLoginFailure(providerName)
		h.logger.Error("auth callback: exchange failed",
			slog.String("provider", providerName),
			slog.String("error", err.Error()),
		)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	_, session, err := h.identity.Login(r.Context(), providerName, profile)
	if err != nil {
		h.logger.Error("auth callback: login failed",
			slog.String("provider", providerName),
			slog.String("error", err.Error()),
		)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	// The cookie carries only the opaque token; everything else lives
	// server-side, so nothing here goes stale when the profile changes.
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    session.Token,
		Path:     "/",
		MaxAge:   int(h.sessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, "/profile", http.StatusSeeOther)
}

// HandleLogout destroys the session server-side and tells the browser to
// drop the cookie.
//
// HTTP: GET /logout (authenticated)
//
// Destruction is immediate: the moment the store row is gone, any copy of
// the token anywhere is worthless.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	token, ok := auth.SessionTokenFromContext(r.Context())
	if ok {
		if err := h.identity.Logout(r.Context(), token); err != nil {
			h.logger.Error("logout: destroying session failed", slog.String("error", err.Error()))
			// Fall through — still clear the client cookie.
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Package service contains the business logic layer: it validates, enforces
// the ownership/visibility/payment rules, and orchestrates repositories and
// external processors. Handlers parse HTTP and delegate here; repositories
// only move data. Every dependency arrives through a constructor as an
// interface, so each service is testable with plain Go calls and in-memory
// fakes.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/storyhub/internal/auth"
	"github.com/sakif/storyhub/internal/metrics"
	"github.com/sakif/storyhub/internal/model"
	"github.com/sakif/storyhub/internal/repository"
)

// IdentityService owns the mapping from normalized provider profiles to
// canonical local users, and the sessions bound to them.
//
// It is invoked exactly once per login, by the provider callback handler,
// after the adapter has normalized the provider's profile. It is the only
// component that ever creates a User.
type IdentityService struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	recorder metrics.Recorder
	logger   *slog.Logger
}

func NewIdentityService(
	users repository.UserRepository,
	sessions repository.SessionRepository,
	recorder metrics.Recorder,
	logger *slog.Logger,
) *IdentityService {
	return &IdentityService{
		users:    users,
		sessions: sessions,
		recorder: recorder,
		logger:   logger,
	}
}

// Resolve maps (provider, profile.ProviderID) to exactly one local user,
// creating the user on first sight.
//
// The find-or-create runs against the store's uniqueness constraint, so two
// concurrent first-logins for the same identity (a double-clicked sign-in
// button) converge on one row; the losing request transparently receives the
// winner's record. The race never surfaces to the caller.
//
// Resolve never updates an existing user's attributes from provider data —
// a changed display name or avatar on the provider side stays unseen until
// the owner edits their profile explicitly.
func (s *IdentityService) Resolve(ctx context.Context, provider string, profile *auth.Profile) (*model.User, error) {
	if profile == nil || profile.ProviderID == "" {
		return nil, fmt.Errorf("service/identity: profile with provider id required")
	}

	user, err := s.users.FindOrCreate(ctx, &model.User{
		Provider:    provider,
		ProviderID:  profile.ProviderID,
		DisplayName: profile.DisplayName,
		AvatarURL:   profile.AvatarURL,
		Email:       profile.Email,
	})
	if err != nil {
		return nil, fmt.Errorf("service/identity: resolving %s/%s: %w", provider, profile.ProviderID, err)
	}

	return user, nil
}

// Login resolves the profile and opens a session for the resolved user.
// Returns both so the handler can set the cookie and redirect in one step.
func (s *IdentityService) Login(ctx context.Context, provider string, profile *auth.Profile) (*model.User, *model.Session, error) {
	user, err := s.Resolve(ctx, provider, profile)
	if err != nil {
		return nil, nil, err
	}

	session, err := s.sessions.CreateSession(ctx, user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("service/identity: creating session for user %s: %w", user.ID, err)
	}

	s.recorder.RecordLogin(provider)
	s.logger.Info("user logged in",
		slog.String("userID", user.ID),
		slog.String("provider", provider),
	)

	return user, session, nil
}

// Logout destroys the session server-side. The token is dead from this
// moment even if a client keeps a copy of the cookie.
func (s *IdentityService) Logout(ctx context.Context, token string) error {
	if err := s.sessions.DeleteSession(ctx, token); err != nil {
		return fmt.Errorf("service/identity: destroying session: %w", err)
	}
	return nil
}

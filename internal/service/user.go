package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/storyhub/internal/apperror"
	"github.com/sakif/storyhub/internal/model"
	"github.com/sakif/storyhub/internal/repository"
	"github.com/sakif/storyhub/internal/security"
)

const (
	MaxEmailLength    = 254
	MaxPhoneLength    = 32
	MaxLocationLength = 120
)

// UserService reads user records and applies owner-initiated profile edits.
//
// Profile attributes only ever change through these methods, on behalf of
// the authenticated owner — the userID parameter is the id the session
// middleware resolved, so a user can only reach their own row.
type UserService struct {
	users     repository.UserRepository
	sanitizer *security.Sanitizer
	logger    *slog.Logger
}

func NewUserService(users repository.UserRepository, sanitizer *security.Sanitizer, logger *slog.Logger) *UserService {
	return &UserService{
		users:     users,
		sanitizer: sanitizer,
		logger:    logger,
	}
}

// GetByID returns one user. apperror.ErrNotFound if the id doesn't resolve.
func (s *UserService) GetByID(ctx context.Context, id string) (*model.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "user ID is required")
	}
	return s.users.GetUserByID(ctx, id)
}

// List returns all users.
func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		s.logger.Error("failed to list users", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

// UpdateEmail sets the owner's email attribute.
func (s *UserService) UpdateEmail(ctx context.Context, userID, email string) (*model.User, error) {
	email = s.sanitizer.Plain(email)
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}
	if len(email) > MaxEmailLength || !strings.Contains(email, "@") {
		return nil, apperror.ValidationFailed("email", "email address is not valid")
	}

	return s.updateAttributes(ctx, userID, func(u *model.User) {
		u.Email = email
	})
}

// UpdatePhone sets the owner's phone attribute.
func (s *UserService) UpdatePhone(ctx context.Context, userID, phone string) (*model.User, error) {
	phone = s.sanitizer.Plain(phone)
	if phone == "" {
		return nil, apperror.ValidationFailed("phone", "phone number is required")
	}
	if len(phone) > MaxPhoneLength {
		return nil, apperror.ValidationFailed("phone",
			fmt.Sprintf("phone number must be %d characters or less", MaxPhoneLength))
	}

	return s.updateAttributes(ctx, userID, func(u *model.User) {
		u.Phone = phone
	})
}

// UpdateLocation sets the owner's location attribute.
func (s *UserService) UpdateLocation(ctx context.Context, userID, location string) (*model.User, error) {
	location = s.sanitizer.Plain(location)
	if location == "" {
		return nil, apperror.ValidationFailed("location", "location is required")
	}
	if len(location) > MaxLocationLength {
		return nil, apperror.ValidationFailed("location",
			fmt.Sprintf("location must be %d characters or less", MaxLocationLength))
	}

	return s.updateAttributes(ctx, userID, func(u *model.User) {
		u.Location = location
	})
}

// updateAttributes is the shared fetch-apply-save path for the three profile
// attributes. The fetch confirms the user exists and gives mutate a current
// copy to work on.
func (s *UserService) updateAttributes(ctx context.Context, userID string, mutate func(*model.User)) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	mutate(user)

	if err := s.users.UpdateAttributes(ctx, user); err != nil {
		s.logger.Error("failed to update profile",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating profile: %w", err)
	}

	s.logger.Info("profile updated", slog.String("userID", userID))

	return user, nil
}

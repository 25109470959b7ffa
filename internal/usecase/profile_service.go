package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/NeseemGit/sb-squares/internal/domain/user"
	"github.com/NeseemGit/sb-squares/internal/domain/userprofile"
	idgen "github.com/NeseemGit/sb-squares/internal/platform/id"
)

// ProfileService manages per-user display preferences.
type ProfileService struct {
	repo   userprofile.Repository
	ids    idgen.Generator
	logger *slog.Logger
}

func NewProfileService(repo userprofile.Repository, ids idgen.Generator, logger *slog.Logger) *ProfileService {
	if logger == nil {
		logger = slog.Default()
	}

	return &ProfileService{
		repo:   repo,
		ids:    ids,
		logger: logger,
	}
}

func (s *ProfileService) GetByUser(ctx context.Context, userID string) (userprofile.UserProfile, bool, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ProfileService.GetByUser")
	defer span.End()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return userprofile.UserProfile{}, false, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}

	profile, exists, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return userprofile.UserProfile{}, false, fmt.Errorf("%w: get profile: %v", ErrDependencyUnavailable, err)
	}
	return profile, exists, nil
}

// Save upserts the caller's profile, reusing the stored record's ID when
// one exists so repeated saves never fork a second row.
func (s *ProfileService) Save(ctx context.Context, principal user.Principal, displayName string) (userprofile.UserProfile, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ProfileService.Save")
	defer span.End()

	if strings.TrimSpace(principal.UserID) == "" {
		return userprofile.UserProfile{}, fmt.Errorf("%w: caller identity is required", ErrUnauthorized)
	}

	displayName = truncateName(strings.TrimSpace(displayName), maxOwnerNameLength)

	existing, exists, err := s.repo.GetByUserID(ctx, principal.UserID)
	if err != nil {
		return userprofile.UserProfile{}, fmt.Errorf("%w: get profile: %v", ErrDependencyUnavailable, err)
	}

	profile := userprofile.UserProfile{
		UserID:      principal.UserID,
		DisplayName: displayName,
		Email:       principal.Email,
	}
	if exists {
		profile.ID = existing.ID
	} else {
		id, err := s.ids.NewID()
		if err != nil {
			return userprofile.UserProfile{}, fmt.Errorf("generate profile id: %w", err)
		}
		profile.ID = id
	}
	if err := profile.Validate(); err != nil {
		return userprofile.UserProfile{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	saved, err := s.repo.Upsert(ctx, profile)
	if err != nil {
		return userprofile.UserProfile{}, fmt.Errorf("%w: save profile: %v", ErrDependencyUnavailable, err)
	}

	s.logger.InfoContext(ctx, "profile saved", "user_id", saved.UserID)

	return saved, nil
}

// DefaultClaimName resolves the label stamped on a claimed square when the
// request carries no explicit display name: saved profile name first, then
// the account email, then a generic placeholder.
func (s *ProfileService) DefaultClaimName(ctx context.Context, principal user.Principal) string {
	profile, exists, err := s.repo.GetByUserID(ctx, principal.UserID)
	if err == nil && exists && strings.TrimSpace(profile.DisplayName) != "" {
		return profile.DisplayName
	}
	if err != nil {
		s.logger.WarnContext(ctx, "profile lookup failed, falling back to email",
			"user_id", principal.UserID,
			"error", err,
		)
	}
	if strings.TrimSpace(principal.Email) != "" {
		return principal.Email
	}
	return fallbackOwnerName
}

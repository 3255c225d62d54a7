package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"bibliobalance/internal/models"
	"bibliobalance/internal/validation"
)

// ProfileService manages the signed-in user's profile
type ProfileService struct {
	profiles ProfileStore
	logger   *zap.Logger
}

// NewProfileService creates a new profile service
func NewProfileService(profiles ProfileStore, logger *zap.Logger) *ProfileService {
	return &ProfileService{profiles: profiles, logger: logger}
}

// Get returns the profile or ErrProfileNotFound
func (s *ProfileService) Get(ctx context.Context, userID string) (*models.Profile, error) {
	p, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProfileNotFound
	}
	return p, nil
}

// Update changes the non-nil fields of u and returns the stored profile.
func (s *ProfileService) Update(ctx context.Context, userID string, u models.ProfileUpdate) (*models.Profile, error) {
	if u.Username != nil {
		name := strings.TrimSpace(*u.Username)
		u.Username = &name
	}
	if err := validation.ValidateStruct(u); err != nil {
		return nil, err
	}

	found, err := s.profiles.Update(ctx, userID, u)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrProfileNotFound
	}
	return s.Get(ctx, userID)
}

// Delete removes the profile. Books, stats and challenges go with it.
func (s *ProfileService) Delete(ctx context.Context, userID string) error {
	found, err := s.profiles.Delete(ctx, userID)
	if err != nil {
		return err
	}
	if !found {
		return ErrProfileNotFound
	}
	s.logger.Info("Profile deleted", zap.String("user_id", userID))
	return nil
}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yaca-chat/yaca/internal/domain"
	"github.com/yaca-chat/yaca/internal/repository"
)

type UserService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

type UpdateProfileInput struct {
	Name      *string `json:"name,omitempty"`
	Bio       *string `json:"bio,omitempty"`
	AvatarURL *string `json:"avatar,omitempty"`
}

func (s *UserService) Get(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *UserService) GetProfile(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	profile, err := s.userRepo.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrUserNotFound
	}
	return profile, nil
}

// UpdateProfile applies the non-nil fields of input. An empty avatar clears it.
func (s *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*domain.User, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		user.Name = normalizeText(*input.Name)
	}
	if input.Bio != nil {
		user.Bio = normalizeText(*input.Bio)
	}
	if input.AvatarURL != nil {
		if *input.AvatarURL == "" {
			user.AvatarURL = nil
		} else {
			avatar := *input.AvatarURL
			user.AvatarURL = &avatar
		}
	}
	user.UpdatedAt = time.Now().UTC()

	if err := s.userRepo.UpdateProfile(ctx, user); err != nil {
		return nil, fmt.Errorf("updating profile: %w", err)
	}
	return user, nil
}

package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yaca-chat/yaca/internal/domain"
	"github.com/yaca-chat/yaca/internal/repository"
)

type UserStore struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*domain.User
}

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[uuid.UUID]*domain.User)}
}

func (s *UserStore) Create(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == user.ID || u.Email == user.Email || u.Username == user.Username {
			return repository.ErrDuplicate
		}
	}
	s.users[user.ID] = cloneUser(user)
	return nil
}

func (s *UserStore) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users[id]; ok {
		return cloneUser(u), nil
	}
	return nil, nil
}

func (s *UserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return s.find(func(u *domain.User) bool { return u.Email == email }), nil
}

func (s *UserStore) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	return s.find(func(u *domain.User) bool { return u.Username == username }), nil
}

func (s *UserStore) GetProfile(_ context.Context, id uuid.UUID) (*domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users[id]; ok {
		return u.Profile(), nil
	}
	return nil, nil
}

func (s *UserStore) ListProfiles(_ context.Context, ids []uuid.UUID) ([]domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Profile
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out = append(out, *u.Profile())
		}
	}
	return out, nil
}

func (s *UserStore) UpdateProfile(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[user.ID]
	if !ok {
		return nil
	}
	u.Name = user.Name
	u.AvatarURL = user.AvatarURL
	u.Bio = user.Bio
	u.UpdatedAt = user.UpdatedAt
	return nil
}

func (s *UserStore) UpdateStatus(_ context.Context, id uuid.UUID, status domain.UserStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		now := time.Now().UTC()
		u.Status = status
		u.LastSeen = &now
	}
	return nil
}

func (s *UserStore) ListIDsByStatus(_ context.Context, status domain.UserStatus) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []uuid.UUID
	for id, u := range s.users {
		if u.Status == status {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *UserStore) ResetStatus(_ context.Context, from, to domain.UserStatus) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	var n int64
	for _, u := range s.users {
		if u.Status == from {
			u.Status = to
			u.LastSeen = &now
			n++
		}
	}
	return n, nil
}

func (s *UserStore) find(match func(*domain.User) bool) *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if match(u) {
			return cloneUser(u)
		}
	}
	return nil
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	if u.AvatarURL != nil {
		v := *u.AvatarURL
		c.AvatarURL = &v
	}
	if u.LastSeen != nil {
		v := *u.LastSeen
		c.LastSeen = &v
	}
	return &c
}

var _ repository.UserRepository = (*UserStore)(nil)

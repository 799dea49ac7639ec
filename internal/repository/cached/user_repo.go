package cached

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/yaca-chat/yaca/internal/domain"
	"github.com/yaca-chat/yaca/internal/repository"
)

const (
	profileKeyPrefix  = "yaca:profile:"
	defaultProfileTTL = 10 * time.Minute
)

// UserRepo is a read-through Redis cache for profiles in front of another
// UserRepository. Everything except GetProfile goes straight to the inner
// repository; writes that change a profile evict its key.
type UserRepo struct {
	repository.UserRepository
	client *redis.Client
	ttl    time.Duration
}

func NewUserRepo(inner repository.UserRepository, client *redis.Client, ttl time.Duration) *UserRepo {
	if ttl <= 0 {
		ttl = defaultProfileTTL
	}
	return &UserRepo{UserRepository: inner, client: client, ttl: ttl}
}

func profileKey(id uuid.UUID) string {
	return profileKeyPrefix + id.String()
}

func (r *UserRepo) GetProfile(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	key := profileKey(id)

	data, err := r.client.Get(ctx, key).Bytes()
	if err == nil {
		var p domain.Profile
		jsonErr := json.Unmarshal(data, &p)
		if jsonErr == nil {
			return &p, nil
		}
		log.Warn().Err(jsonErr).Str("key", key).Msg("discarding unreadable cached profile")
	} else if !errors.Is(err, redis.Nil) {
		log.Warn().Err(err).Str("key", key).Msg("profile cache read failed, falling back to store")
	}

	p, err := r.UserRepository.GetProfile(ctx, id)
	if err != nil || p == nil {
		return p, err
	}

	encoded, err := json.Marshal(p)
	if err != nil {
		return p, nil
	}
	if err := r.client.Set(ctx, key, encoded, r.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("profile cache write failed")
	}
	return p, nil
}

func (r *UserRepo) UpdateProfile(ctx context.Context, user *domain.User) error {
	if err := r.UserRepository.UpdateProfile(ctx, user); err != nil {
		return err
	}
	r.evict(ctx, user.ID)
	return nil
}

func (r *UserRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.UserStatus) error {
	if err := r.UserRepository.UpdateStatus(ctx, id, status); err != nil {
		return err
	}
	r.evict(ctx, id)
	return nil
}

func (r *UserRepo) ResetStatus(ctx context.Context, from, to domain.UserStatus) (int64, error) {
	ids, err := r.UserRepository.ListIDsByStatus(ctx, from)
	if err != nil {
		return 0, err
	}
	n, err := r.UserRepository.ResetStatus(ctx, from, to)
	if err != nil {
		return n, err
	}
	r.evict(ctx, ids...)
	return n, nil
}

func (r *UserRepo) evict(ctx context.Context, ids ...uuid.UUID) {
	if len(ids) == 0 {
		return
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = profileKey(id)
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		log.Warn().Err(err).Int("keys", len(keys)).Msg("profile cache eviction failed")
	}
}

var _ repository.UserRepository = (*UserRepo)(nil)

package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/yaca-chat/yaca/internal/domain"
	"github.com/yaca-chat/yaca/internal/repository"
)

var ErrInvalidStatus = errors.New("status must be online, dnd or sleep")

// OnlineChecker reports whether a user currently holds a live connection.
type OnlineChecker interface {
	IsOnline(userID uuid.UUID) bool
}

// Presence is what the REST layer reports for a user. Online comes from the
// live connection registry; Status is the stored mirror.
type Presence struct {
	UserID   uuid.UUID         `json:"userId"`
	Online   bool              `json:"online"`
	Status   domain.UserStatus `json:"status"`
	LastSeen *time.Time        `json:"lastSeen,omitempty"`
}

// PresenceService keeps the stored status column in step with connection
// events. The store is a best-effort mirror: a failed write is logged and
// never blocks the status broadcast.
type PresenceService struct {
	userRepo repository.UserRepository
	notifier Notifier
	online   OnlineChecker

	// transitions for one user run one at a time
	locks [presenceStripes]sync.Mutex
}

const presenceStripes = 64

func NewPresenceService(userRepo repository.UserRepository) *PresenceService {
	return &PresenceService{userRepo: userRepo}
}

func (s *PresenceService) SetNotifier(n Notifier) {
	s.notifier = n
}

func (s *PresenceService) SetOnlineChecker(c OnlineChecker) {
	s.online = c
}

// Connected runs after the user's connection has been registered.
func (s *PresenceService) Connected(ctx context.Context, userID uuid.UUID) {
	s.transition(ctx, userID, domain.StatusOnline)
}

// Disconnected runs after the user's connection has been removed from the
// registry. It is not called when a newer connection replaced the entry.
func (s *PresenceService) Disconnected(ctx context.Context, userID uuid.UUID) {
	s.transition(ctx, userID, domain.StatusOffline)
}

func (s *PresenceService) transition(ctx context.Context, userID uuid.UUID, status domain.UserStatus) {
	mu := &s.locks[userID[15]%presenceStripes]
	mu.Lock()
	defer mu.Unlock()

	// A quick reconnect can run its transitions out of order. Whichever
	// disagrees with the registry by now is stale; the other one reports
	// the current state.
	if s.online != nil && s.online.IsOnline(userID) != (status == domain.StatusOnline) {
		log.Debug().Str("user_id", userID.String()).Str("status", string(status)).Msg("presence transition superseded")
		return
	}

	if err := s.userRepo.UpdateStatus(ctx, userID, status); err != nil {
		log.Warn().Err(err).
			Str("user_id", userID.String()).
			Str("status", string(status)).
			Msg("presence mirror update failed")
	}
	if s.notifier != nil {
		s.notifier.NotifyStatusChange(ctx, userID, status)
	}
}

// SetStatus stores an explicit status chosen by the user. Offline is
// reserved for disconnects.
func (s *PresenceService) SetStatus(ctx context.Context, userID uuid.UUID, status domain.UserStatus) error {
	if !status.Valid() || status == domain.StatusOffline {
		return ErrInvalidStatus
	}
	if err := s.userRepo.UpdateStatus(ctx, userID, status); err != nil {
		return fmt.Errorf("updating status: %w", err)
	}
	if s.notifier != nil && s.isOnline(userID) {
		s.notifier.NotifyStatusChange(ctx, userID, status)
	}
	return nil
}

func (s *PresenceService) Status(ctx context.Context, userID uuid.UUID) (*Presence, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	p := &Presence{
		UserID:   user.ID,
		Online:   s.isOnline(userID),
		Status:   user.Status,
		LastSeen: user.LastSeen,
	}
	// the column can lag behind a crash; the registry wins
	if !p.Online && p.Status != domain.StatusOffline {
		p.Status = domain.StatusOffline
	}
	return p, nil
}

func (s *PresenceService) isOnline(userID uuid.UUID) bool {
	return s.online != nil && s.online.IsOnline(userID)
}

// Package presence keeps the stored status column honest when connections
// disappear without a clean close: at startup, when nothing can be
// connected yet, and on a cron schedule afterwards.
package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/yaca-chat/yaca/internal/domain"
	"github.com/yaca-chat/yaca/internal/repository"
)

// activeStatuses are the stored values that imply a live connection.
var activeStatuses = []domain.UserStatus{domain.StatusOnline, domain.StatusDND, domain.StatusSleep}

type OnlineChecker interface {
	IsOnline(userID uuid.UUID) bool
}

type Reconciler struct {
	users    repository.UserRepository
	registry OnlineChecker
	cron     string
	now      func() time.Time
}

// NewReconciler validates cronExpr up front. An empty expression disables
// the periodic sweep; startup reconciliation still works.
func NewReconciler(users repository.UserRepository, registry OnlineChecker, cronExpr string) (*Reconciler, error) {
	if cronExpr != "" && !gronx.IsValid(cronExpr) {
		return nil, fmt.Errorf("invalid presence sweep cron expression: %q", cronExpr)
	}
	return &Reconciler{users: users, registry: registry, cron: cronExpr, now: time.Now}, nil
}

// ResetOnStartup marks every user with an active stored status offline.
// The registry is empty after a restart, so none of them can be connected.
func (r *Reconciler) ResetOnStartup(ctx context.Context) (int64, error) {
	var total int64
	for _, status := range activeStatuses {
		n, err := r.users.ResetStatus(ctx, status, domain.StatusOffline)
		if err != nil {
			return total, fmt.Errorf("reset %s users: %w", status, err)
		}
		total += n
	}
	if total > 0 {
		log.Info().Int64("users", total).Msg("presence reset on startup")
	}
	return total, nil
}

// Sweep marks users offline whose stored status says they are connected but
// who have no entry in the registry.
func (r *Reconciler) Sweep(ctx context.Context) (int, error) {
	swept := 0
	for _, status := range activeStatuses {
		ids, err := r.users.ListIDsByStatus(ctx, status)
		if err != nil {
			return swept, fmt.Errorf("list %s users: %w", status, err)
		}
		for _, id := range ids {
			if r.registry.IsOnline(id) {
				continue
			}
			if err := r.users.UpdateStatus(ctx, id, domain.StatusOffline); err != nil {
				log.Warn().Err(err).Str("user_id", id.String()).Msg("presence sweep update failed")
				continue
			}
			swept++
		}
	}
	if swept > 0 {
		log.Info().Int("users", swept).Msg("presence sweep marked stale users offline")
	}
	return swept, nil
}

// Run sweeps on the cron schedule until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) error {
	if r.cron == "" {
		log.Info().Msg("presence sweep disabled")
		<-ctx.Done()
		return nil
	}

	log.Info().Str("cron", r.cron).Msg("presence sweep scheduled")
	for {
		next, err := gronx.NextTickAfter(r.cron, r.now(), false)
		if err != nil {
			return fmt.Errorf("next presence sweep: %w", err)
		}

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		if _, err := r.Sweep(ctx); err != nil {
			log.Error().Err(err).Msg("presence sweep failed")
		}
	}
}

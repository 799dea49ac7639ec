package ws

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ParticipantSource resolves a conversation's participants. It returns nil
// when the conversation does not exist.
type ParticipantSource interface {
	GetParticipants(ctx context.Context, conversationID uuid.UUID) ([]uuid.UUID, error)
}

// Router turns a delivery target into registry lookups. Delivery is
// at-most-once: users without a registered connection are skipped and
// nothing is queued for them.
type Router struct {
	registry     *Registry
	participants ParticipantSource
	metrics      *Metrics
}

func NewRouter(registry *Registry, participants ParticipantSource, metrics *Metrics) *Router {
	return &Router{
		registry:     registry,
		participants: participants,
		metrics:      metrics,
	}
}

// DeliverToUser sends event to userID if they are connected and reports
// whether it was handed to their connection.
func (r *Router) DeliverToUser(userID uuid.UUID, event any) bool {
	data, ok := encode(event)
	if !ok {
		return false
	}
	return r.send(userID, data)
}

// DeliverToConversation sends event to every current participant except
// exclude. Participants are read from the store on every call. A missing
// conversation or a failed lookup delivers nothing.
func (r *Router) DeliverToConversation(ctx context.Context, conversationID uuid.UUID, event any, exclude *uuid.UUID) {
	participants, err := r.participants.GetParticipants(ctx, conversationID)
	if err != nil {
		log.Warn().Err(err).Str("conversation_id", conversationID.String()).Msg("ws router: resolving participants")
		return
	}
	if participants == nil {
		log.Debug().Str("conversation_id", conversationID.String()).Msg("ws router: conversation not found")
		return
	}

	r.DeliverToUsers(participants, event, exclude)
}

// DeliverToUsers sends event to each of userIDs except exclude. It serves
// events whose conversation can no longer be resolved from the store.
func (r *Router) DeliverToUsers(userIDs []uuid.UUID, event any, exclude *uuid.UUID) {
	data, ok := encode(event)
	if !ok {
		return
	}
	for _, userID := range userIDs {
		if exclude != nil && userID == *exclude {
			continue
		}
		r.send(userID, data)
	}
}

// Broadcast sends event to every registered user except exclude.
func (r *Router) Broadcast(event any, exclude *uuid.UUID) {
	data, ok := encode(event)
	if !ok {
		return
	}
	for _, userID := range r.registry.Online() {
		if exclude != nil && userID == *exclude {
			continue
		}
		r.send(userID, data)
	}
}

func (r *Router) send(userID uuid.UUID, data []byte) bool {
	sink, ok := r.registry.Lookup(userID)
	if !ok {
		r.metrics.delivery("offline")
		return false
	}
	if err := sink.Send(data); err != nil {
		r.metrics.delivery("failed")
		log.Debug().Err(err).Str("user_id", userID.String()).Msg("ws router: delivery failed")
		return false
	}
	r.metrics.delivery("sent")
	return true
}

func encode(event any) ([]byte, bool) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("ws router: marshal event")
		return nil, false
	}
	return data, true
}

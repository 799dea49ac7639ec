package ws

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"github.com/yaca-chat/yaca/internal/config"
	"github.com/yaca-chat/yaca/internal/domain"
	"github.com/yaca-chat/yaca/internal/service"
	"golang.org/x/time/rate"
	"nhooyr.io/websocket"
)

// IdentityVerifier turns a bearer token into a user id.
type IdentityVerifier interface {
	VerifyToken(ctx context.Context, token string) (uuid.UUID, error)
}

type MessageActions interface {
	Send(ctx context.Context, senderID uuid.UUID, input service.SendMessageInput) (*domain.Message, error)
	Edit(ctx context.Context, userID, messageID uuid.UUID, input service.EditMessageInput) (*domain.Message, error)
	React(ctx context.Context, userID, messageID uuid.UUID, input service.ReactInput) (*domain.Message, error)
	Delete(ctx context.Context, userID, messageID uuid.UUID) error
}

type ConversationActions interface {
	Typing(ctx context.Context, userID, conversationID uuid.UUID) error
	MarkRead(ctx context.Context, userID, conversationID uuid.UUID) error
}

// PresenceTracker is told when a user's registered connection appears or
// goes away.
type PresenceTracker interface {
	Connected(ctx context.Context, userID uuid.UUID)
	Disconnected(ctx context.Context, userID uuid.UUID)
}

type Deps struct {
	Verifier      IdentityVerifier
	Registry      *Registry
	Messages      MessageActions
	Conversations ConversationActions
	Presence      PresenceTracker
	Metrics       *Metrics
}

// Handler upgrades authenticated requests and runs one session per
// connection. The token comes from the {token} path variable or the
// ?token= query parameter, since browsers cannot set headers on upgrade.
type Handler struct {
	cfg  config.WSConfig
	deps Deps

	mu       sync.Mutex
	draining bool
	sessions sync.WaitGroup
}

func NewHandler(cfg config.WSConfig, deps Deps) *Handler {
	return &Handler{cfg: cfg, deps: deps}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]
	if token == "" {
		token = r.URL.Query().Get("token")
	}

	userID, err := h.deps.Verifier.VerifyToken(r.Context(), token)
	if err != nil {
		log.Debug().Err(err).Str("remote", r.RemoteAddr).Msg("ws: handshake rejected")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":"UNAUTHORIZED","message":"Invalid or expired token"}}`))
		return
	}

	if !h.track() {
		writeUnavailable(w)
		return
	}
	defer h.sessions.Done()

	opts := &websocket.AcceptOptions{OriginPatterns: h.cfg.AllowedOrigins}
	if len(h.cfg.AllowedOrigins) == 0 {
		opts.InsecureSkipVerify = true
	}
	conn, err := websocket.Accept(w, r, opts)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID.String()).Msg("ws: accept error")
		return
	}
	if h.cfg.MaxMessageBytes > 0 {
		conn.SetReadLimit(h.cfg.MaxMessageBytes)
	}

	s := &session{h: h, conn: conn, userID: userID}
	s.run(r.Context())
}

// track registers a new session unless Wait has started.
func (h *Handler) track() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.draining {
		return false
	}
	h.sessions.Add(1)
	return true
}

// Wait refuses new sessions and blocks until every running session has
// finished closing, including its final presence write, or ctx is done.
// http.Server.Shutdown does not wait for hijacked connections, so callers
// use this before releasing the stores.
func (h *Handler) Wait(ctx context.Context) error {
	h.mu.Lock()
	h.draining = true
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		h.sessions.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func writeUnavailable(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte(`{"error":{"code":"SHUTTING_DOWN","message":"Server is shutting down"}}`))
}

// State is the lifecycle stage of a session.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

var (
	errMalformed    = errors.New("malformed event")
	errUnknownEvent = errors.New("unknown event type")
)

// session drives one connection from OPEN to CLOSED. Frames are handled one
// at a time on the goroutine that called run, so effects triggered by a
// connection happen in the order its frames arrived.
type session struct {
	h      *Handler
	conn   *websocket.Conn
	userID uuid.UUID
	client *Client
	state  atomic.Int32
}

func (s *session) setState(st State) {
	s.state.Store(int32(st))
}

func (s *session) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg := s.h.cfg
	var limiter *rate.Limiter
	if cfg.RatePerSec > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), burst)
	}
	s.client = newClient(s.conn, s.userID, cfg.SendBuffer, limiter, cfg.PingInterval)

	s.setState(StateOpen)
	if prev := s.h.deps.Registry.Register(s.userID, s.client); prev != nil {
		log.Info().Str("user_id", s.userID.String()).Msg("ws: newer connection replaced existing one")
	}
	log.Info().Str("user_id", s.userID.String()).Msg("ws: connected")

	go s.client.writePump(ctx)

	s.withEventContext(ctx, func(ectx context.Context) {
		s.h.deps.Presence.Connected(ectx, s.userID)
	})

	defer s.close(ctx)

	for {
		typ, data, err := s.conn.Read(ctx)
		if err != nil {
			switch {
			case websocket.CloseStatus(err) != -1:
				log.Info().Str("user_id", s.userID.String()).Msg("ws: disconnected")
			case ctx.Err() != nil:
				log.Debug().Str("user_id", s.userID.String()).Msg("ws: session cancelled")
			default:
				log.Debug().Err(err).Str("user_id", s.userID.String()).Msg("ws: read error")
			}
			return
		}
		s.handleFrame(ctx, typ, data)
	}
}

func (s *session) close(ctx context.Context) {
	s.setState(StateClosed)
	s.client.shutdown()

	if s.h.deps.Registry.Unregister(s.userID, s.client) {
		s.withEventContext(ctx, func(ectx context.Context) {
			s.h.deps.Presence.Disconnected(ectx, s.userID)
		})
	}
	s.conn.Close(websocket.StatusNormalClosure, "")
}

// withEventContext runs fn with a context that survives the connection
// closing but is bounded by the per-event timeout.
func (s *session) withEventContext(ctx context.Context, fn func(context.Context)) {
	ectx := context.WithoutCancel(ctx)
	if s.h.cfg.EventTimeout > 0 {
		var cancel context.CancelFunc
		ectx, cancel = context.WithTimeout(ectx, s.h.cfg.EventTimeout)
		defer cancel()
	}
	fn(ectx)
}

// handleFrame processes one inbound frame. Nothing that happens here closes
// the connection.
func (s *session) handleFrame(ctx context.Context, typ websocket.MessageType, data []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			s.h.deps.Metrics.drop(dropPanic)
			log.Error().Interface("panic", rec).Str("user_id", s.userID.String()).Msg("ws: event handler panicked")
		}
	}()

	if State(s.state.Load()) != StateOpen {
		return
	}
	if typ != websocket.MessageText && typ != websocket.MessageBinary {
		return
	}
	if !s.client.allow() {
		s.h.deps.Metrics.drop(dropRateLimited)
		log.Debug().Str("user_id", s.userID.String()).Msg("ws: rate limited, frame dropped")
		return
	}

	data = bytes.ToValidUTF8(data, []byte(string(utf8.RuneError)))

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
		s.h.deps.Metrics.drop(dropMalformed)
		log.Debug().Err(err).Str("user_id", s.userID.String()).Msg("ws: malformed frame dropped")
		return
	}
	s.h.deps.Metrics.event(env.Type)

	var err error
	s.withEventContext(ctx, func(ectx context.Context) {
		err = s.dispatch(ectx, env.Type, data)
	})
	if err != nil {
		s.reportDrop(env.Type, err)
	}
}

func (s *session) dispatch(ctx context.Context, eventType string, data []byte) error {
	switch eventType {
	case EventSendMessage:
		var p sendMessagePayload
		if err := decode(data, &p); err != nil {
			return err
		}
		if p.DestinationID == uuid.Nil || !p.Content.Valid() {
			return errMalformed
		}
		msg, err := s.h.deps.Messages.Send(ctx, s.userID, service.SendMessageInput{
			ConversationID: p.DestinationID,
			Content:        p.Content,
		})
		if err != nil {
			return err
		}
		ack, err := json.Marshal(NewAckEvent(p.TempID, msg))
		if err != nil {
			return err
		}
		if err := s.client.Send(ack); err != nil {
			log.Debug().Err(err).Str("user_id", s.userID.String()).Msg("ws: ack not delivered")
		}
		return nil

	case EventEditMessage:
		var p editMessagePayload
		if err := decode(data, &p); err != nil {
			return err
		}
		if p.MessageID == uuid.Nil || !p.NewContent.Valid() {
			return errMalformed
		}
		_, err := s.h.deps.Messages.Edit(ctx, s.userID, p.MessageID, service.EditMessageInput{Content: p.NewContent})
		return err

	case EventReactMessage:
		var p reactMessagePayload
		if err := decode(data, &p); err != nil {
			return err
		}
		if p.MessageID == uuid.Nil || !p.ReactionType.Valid() {
			return errMalformed
		}
		_, err := s.h.deps.Messages.React(ctx, s.userID, p.MessageID, service.ReactInput{Type: p.ReactionType})
		return err

	case EventDeleteMessage:
		var p deleteMessagePayload
		if err := decode(data, &p); err != nil {
			return err
		}
		if p.MessageID == uuid.Nil {
			return errMalformed
		}
		return s.h.deps.Messages.Delete(ctx, s.userID, p.MessageID)

	case EventTyping, EventRead:
		var p conversationPayload
		if err := decode(data, &p); err != nil {
			return err
		}
		if p.ConversationID == uuid.Nil {
			return errMalformed
		}
		if eventType == EventTyping {
			return s.h.deps.Conversations.Typing(ctx, s.userID, p.ConversationID)
		}
		return s.h.deps.Conversations.MarkRead(ctx, s.userID, p.ConversationID)
	}

	return errUnknownEvent
}

func (s *session) reportDrop(eventType string, err error) {
	reason := classify(err)
	s.h.deps.Metrics.drop(reason)

	evt := log.Debug()
	if reason == dropStoreError {
		evt = log.Warn()
	}
	evt.Err(err).
		Str("user_id", s.userID.String()).
		Str("event", eventType).
		Str("reason", reason).
		Msg("ws: event dropped")
}

func classify(err error) string {
	switch {
	case errors.Is(err, errMalformed),
		errors.Is(err, service.ErrInvalidContent),
		errors.Is(err, service.ErrInvalidReaction):
		return dropMalformed
	case errors.Is(err, errUnknownEvent):
		return dropUnknownType
	case errors.Is(err, service.ErrConversationNotFound),
		errors.Is(err, service.ErrMessageNotFound),
		errors.Is(err, service.ErrNotParticipant),
		errors.Is(err, service.ErrNotMessageOwner):
		return dropNotFound
	}
	return dropStoreError
}

func decode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	return nil
}

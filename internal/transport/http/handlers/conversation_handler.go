package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/yaca-chat/yaca/internal/domain"
	"github.com/yaca-chat/yaca/internal/service"
	"github.com/yaca-chat/yaca/internal/transport/http/middleware"
)

type ConversationHandler struct {
	convService    *service.ConversationService
	messageService *service.MessageService
}

func NewConversationHandler(convService *service.ConversationService, messageService *service.MessageService) *ConversationHandler {
	return &ConversationHandler{convService: convService, messageService: messageService}
}

func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		if l, err := strconv.Atoi(s); err == nil {
			limit = l
		}
	}

	convs, err := h.convService.List(r.Context(), userID, limit)
	if err != nil {
		writeInternal(w, "list conversations", err)
		return
	}
	writeJSON(w, http.StatusOK, convs)
}

type createConversationRequest struct {
	Participants []uuid.UUID     `json:"participants"`
	RecipientID  *uuid.UUID      `json:"recipientId"`
	Content      *domain.Content `json:"content"`
}

type createConversationResponse struct {
	Conversation *domain.Conversation `json:"conversation"`
	Message      *domain.Message      `json:"message,omitempty"`
}

// Create finds or creates the conversation for the given participant set
// and, when content is present, sends it as a message through the normal
// send path.
func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input createConversationRequest
	if !decodeJSON(w, r, &input) {
		return
	}

	participants := input.Participants
	if input.RecipientID != nil {
		participants = append(participants, *input.RecipientID)
	}
	if len(participants) == 0 {
		writeError(w, http.StatusBadRequest, "MISSING_PARTICIPANTS", "recipientId or participants required")
		return
	}

	conv, created, err := h.convService.GetOrCreate(r.Context(), userID, participants)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTooFewParticipants):
			writeError(w, http.StatusBadRequest, "TOO_FEW_PARTICIPANTS", "A conversation needs at least one other participant")
		case errors.Is(err, service.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "User not found")
		default:
			writeInternal(w, "create conversation", err)
		}
		return
	}

	resp := createConversationResponse{Conversation: conv}
	if input.Content != nil {
		msg, err := h.messageService.Send(r.Context(), userID, service.SendMessageInput{
			ConversationID: conv.ID,
			Content:        *input.Content,
		})
		if err != nil {
			if errors.Is(err, service.ErrInvalidContent) {
				writeError(w, http.StatusBadRequest, "INVALID_CONTENT", "Content must have data and a type of text or image")
			} else {
				writeInternal(w, "send first message", err)
			}
			return
		}
		resp.Message = msg
		preview := msg.Content.Preview()
		conv.LastMessage = &preview
		conv.LastMessageAt = &msg.CreatedAt
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, resp)
}

func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid conversation ID")
		return
	}

	conv, err := h.convService.Get(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		writeConversationError(w, "get conversation", err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (h *ConversationHandler) Rename(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid conversation ID")
		return
	}

	var input struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}

	conv, err := h.convService.Rename(r.Context(), middleware.GetUserID(r.Context()), id, input.Name)
	if err != nil {
		if errors.Is(err, service.ErrInvalidName) {
			writeError(w, http.StatusBadRequest, "MISSING_NAME", "Name is required")
			return
		}
		writeConversationError(w, "rename conversation", err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (h *ConversationHandler) TogglePin(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid conversation ID")
		return
	}

	conv, err := h.convService.TogglePin(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		writeConversationError(w, "toggle pin", err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid conversation ID")
		return
	}

	if err := h.convService.Delete(r.Context(), middleware.GetUserID(r.Context()), id); err != nil {
		writeConversationError(w, "delete conversation", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ConversationHandler) Messages(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid conversation ID")
		return
	}

	var before *uuid.UUID
	if beforeStr := r.URL.Query().Get("before"); beforeStr != "" {
		b, err := uuid.Parse(beforeStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid before cursor")
			return
		}
		before = &b
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	resp, err := h.messageService.List(r.Context(), middleware.GetUserID(r.Context()), id, before, limit)
	if err != nil {
		writeConversationError(w, "list messages", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeConversationError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrConversationNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Conversation not found")
	case errors.Is(err, service.ErrNotParticipant):
		writeError(w, http.StatusForbidden, "FORBIDDEN", "You are not a participant of this conversation")
	default:
		writeInternal(w, op, err)
	}
}

package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/yaca-chat/yaca/internal/service"
	"github.com/yaca-chat/yaca/internal/transport/http/middleware"
)

type MessageHandler struct {
	messageService *service.MessageService
}

func NewMessageHandler(messageService *service.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	var input service.SendMessageInput
	if !decodeJSON(w, r, &input) {
		return
	}

	msg, err := h.messageService.Send(r.Context(), middleware.GetUserID(r.Context()), input)
	if err != nil {
		writeMessageError(w, "send message", err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (h *MessageHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid message ID")
		return
	}

	msg, err := h.messageService.Get(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		writeMessageError(w, "get message", err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

type copyResponse struct {
	Text     string    `json:"text"`
	CopiedAt time.Time `json:"copiedAt"`
}

// Copy returns the message's raw content data for the clipboard.
func (h *MessageHandler) Copy(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid message ID")
		return
	}

	msg, err := h.messageService.Get(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		writeMessageError(w, "copy message", err)
		return
	}
	writeJSON(w, http.StatusOK, copyResponse{Text: msg.Content.Data, CopiedAt: time.Now().UTC()})
}

func (h *MessageHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid message ID")
		return
	}

	var input service.EditMessageInput
	if !decodeJSON(w, r, &input) {
		return
	}

	msg, err := h.messageService.Edit(r.Context(), middleware.GetUserID(r.Context()), id, input)
	if err != nil {
		writeMessageError(w, "edit message", err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (h *MessageHandler) React(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid message ID")
		return
	}

	var input service.ReactInput
	if !decodeJSON(w, r, &input) {
		return
	}

	msg, err := h.messageService.React(r.Context(), middleware.GetUserID(r.Context()), id, input)
	if err != nil {
		writeMessageError(w, "react to message", err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid message ID")
		return
	}

	if err := h.messageService.Delete(r.Context(), middleware.GetUserID(r.Context()), id); err != nil {
		writeMessageError(w, "delete message", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeMessageError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidContent):
		writeError(w, http.StatusBadRequest, "INVALID_CONTENT", "Content must have data and a type of text or image")
	case errors.Is(err, service.ErrInvalidReaction):
		writeError(w, http.StatusBadRequest, "INVALID_REACTION", "Reaction must be like, heart or laugh")
	case errors.Is(err, service.ErrMessageNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Message not found")
	case errors.Is(err, service.ErrNotMessageOwner):
		writeError(w, http.StatusForbidden, "FORBIDDEN", "You can only change your own messages")
	default:
		writeConversationError(w, op, err)
	}
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/yaca-chat/yaca/internal/domain"
	"github.com/yaca-chat/yaca/internal/service"
	"github.com/yaca-chat/yaca/internal/transport/http/middleware"
	"github.com/yaca-chat/yaca/pkg/validator"
)

type UserHandler struct {
	userService     *service.UserService
	presenceService *service.PresenceService
}

func NewUserHandler(userService *service.UserService, presenceService *service.PresenceService) *UserHandler {
	return &UserHandler{userService: userService, presenceService: presenceService}
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.Get(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "User not found")
		} else {
			writeInternal(w, "get me", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type updateMeRequest struct {
	service.UpdateProfileInput
	Status *domain.UserStatus `json:"status,omitempty"`
}

func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input updateMeRequest
	if !decodeJSON(w, r, &input) {
		return
	}

	if errs := validator.ValidateProfile(input.Name, input.Bio, input.AvatarURL); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	if input.Status != nil {
		if err := h.presenceService.SetStatus(r.Context(), userID, *input.Status); err != nil {
			if errors.Is(err, service.ErrInvalidStatus) {
				writeError(w, http.StatusBadRequest, "INVALID_STATUS", "Status must be online, dnd or sleep")
			} else {
				writeInternal(w, "set status", err)
			}
			return
		}
	}

	user, err := h.userService.UpdateProfile(r.Context(), userID, input.UpdateProfileInput)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "User not found")
		} else {
			writeInternal(w, "update me", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid user ID")
		return
	}

	profile, err := h.userService.GetProfile(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "User not found")
		} else {
			writeInternal(w, "get user", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// Presence answers from the live registry, with the stored status and
// last-seen time alongside.
func (h *UserHandler) Presence(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid user ID")
		return
	}

	p, err := h.presenceService.Status(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "User not found")
		} else {
			writeInternal(w, "get presence", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, p)
}

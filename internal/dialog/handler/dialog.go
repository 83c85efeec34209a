package handler

import (
	"encoding/json"
	"net/http"

	"dinebot/internal/dialog/service"
	apperrors "dinebot/pkg/errors"
	httputil "dinebot/pkg/http"
	"dinebot/pkg/logger"
	"dinebot/pkg/middleware"
	"dinebot/pkg/model"

	"github.com/julienschmidt/httprouter"
)

const DialogPath = "/api/v1/dialog"

type DialogHandler struct {
	service service.DialogService
	log     *logger.Logger
}

func NewDialogHandler(service service.DialogService, log *logger.Logger) *DialogHandler {
	return &DialogHandler{
		service: service,
		log:     log,
	}
}

// CodeHook answers one bot runtime turn with the bare dialog response, not
// wrapped in a data envelope.
func (h *DialogHandler) CodeHook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var event model.DialogEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("Invalid dialog event body")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "CodeHook", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	middleware.SetTurnIntent(r.Context(), event.CurrentIntent.Name)

	resp, err := h.service.Dispatch(r.Context(), &event)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "CodeHook", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteJSON(w, http.StatusOK, resp); err != nil {
		h.log.Error("failed to write JSON response", "handler", "CodeHook", "operation", "WriteJSON", "error", err)
	}
}

func (h *DialogHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST(DialogPath, h.CodeHook)
}

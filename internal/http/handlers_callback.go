package httpx

import (
	"log/slog"
	"net/http"

	"github.com/glasskite/darkroom/internal/domain/model"
	"github.com/glasskite/darkroom/internal/service"
)

// CallbackHandlers serves the internal endpoint the processing service
// reports outcomes to. Routed behind RequireInternalSecret.
type CallbackHandlers struct {
	Callbacks *service.CallbackService
	Logger    *slog.Logger
}

// Receive handles POST /internal/callback. The response acknowledges receipt
// once the status write succeeded; webhook delivery happens after and never
// changes the answer.
func (h *CallbackHandlers) Receive(w http.ResponseWriter, r *http.Request) {
	var req model.CallbackRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	if err := h.Callbacks.HandleCallback(r.Context(), &req); err != nil {
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
}

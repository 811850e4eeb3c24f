package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jdelorme/fieldsync/internal/auth"
	"github.com/jdelorme/fieldsync/internal/sync"
)

type SyncHandler struct {
	reconciler *sync.Reconciler
	logger     *slog.Logger
}

func NewSyncHandler(rec *sync.Reconciler, logger *slog.Logger) *SyncHandler {
	return &SyncHandler{reconciler: rec, logger: logger}
}

// Sync applies a batch of offline change sets. A missing or foreign task
// fails the whole batch; item-level problems inside a task are tolerated.
func (h *SyncHandler) Sync(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var req struct {
		Data []sync.TaskChange `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}
	if len(req.Data) == 0 {
		RespondError(w, http.StatusBadRequest, "No tasks provided")
		return
	}

	acks, err := h.reconciler.Apply(ac.AccountID, req.Data)
	if err != nil {
		switch {
		case errors.Is(err, sync.ErrTaskNotFound):
			RespondError(w, http.StatusNotFound, "Task not found or not a field-service task")
		case errors.Is(err, sync.ErrNotOwner):
			RespondError(w, http.StatusForbidden, "You can only sync your own tasks")
		default:
			h.logger.Error("sync", "error", err)
			RespondError(w, http.StatusInternalServerError, "Server error")
		}
		return
	}

	Respond(w, http.StatusOK, "Intervention synchronized successfully", acks)
}

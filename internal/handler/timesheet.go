package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/jdelorme/fieldsync/internal/auth"
	"github.com/jdelorme/fieldsync/internal/store"
)

type TimesheetHandler struct {
	tasks      *store.TaskStore
	timesheets *store.TimesheetStore
	logger     *slog.Logger
}

func NewTimesheetHandler(ts *store.TaskStore, tss *store.TimesheetStore, logger *slog.Logger) *TimesheetHandler {
	return &TimesheetHandler{tasks: ts, timesheets: tss, logger: logger}
}

// Create records a timesheet entry on a field-service task owned by the
// acting account. A missing date defaults to today; a malformed one is a
// client error.
func (h *TimesheetHandler) Create(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	taskID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid intervention id")
		return
	}

	var req struct {
		Description   string  `json:"description"`
		TimeAllocated float64 `json:"time_allocated"`
		Date          string  `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	task, err := h.tasks.GetByID(taskID)
	if err != nil {
		h.logger.Error("get task", "error", err)
		RespondError(w, http.StatusInternalServerError, "Server error")
		return
	}
	if task == nil || !task.IsFieldService {
		RespondError(w, http.StatusNotFound, "Field-service task not found")
		return
	}

	owner, err := h.tasks.IsOwner(task.ID, ac.AccountID)
	if err != nil {
		h.logger.Error("check owner", "error", err)
		RespondError(w, http.StatusInternalServerError, "Server error")
		return
	}
	if !owner {
		RespondError(w, http.StatusForbidden, "You can only create timesheets for your own tasks")
		return
	}

	entryDate := time.Now().UTC().Truncate(24 * time.Hour)
	if req.Date != "" {
		entryDate, err = time.Parse("2006-01-02", req.Date)
		if err != nil {
			RespondError(w, http.StatusBadRequest, "Invalid date format. Use YYYY-MM-DD.")
			return
		}
	}

	ts, err := h.timesheets.Create(task.ID, task.ProjectID, ac.AccountID, req.Description, req.TimeAllocated, entryDate)
	if err != nil {
		h.logger.Error("create timesheet", "error", err)
		RespondError(w, http.StatusInternalServerError, "Server error")
		return
	}

	Respond(w, http.StatusOK, "Timesheet created successfully", map[string]any{
		"id":             ts.ID,
		"description":    ts.Description,
		"date":           ts.EntryDate.UTC().Format(time.RFC3339),
		"time_allocated": ts.Hours,
	})
}

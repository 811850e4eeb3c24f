package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jdelorme/fieldsync/internal/auth"
	"github.com/jdelorme/fieldsync/internal/geo"
	"github.com/jdelorme/fieldsync/internal/htmltext"
	"github.com/jdelorme/fieldsync/internal/model"
	"github.com/jdelorme/fieldsync/internal/store"
)

var whitespaceRegexp = regexp.MustCompile(`\s+`)

type TaskHandler struct {
	tasks     *store.TaskStore
	stages    *store.StageStore
	materials *store.MaterialStore
	settings  *store.SettingsStore
	logger    *slog.Logger
}

func NewTaskHandler(ts *store.TaskStore, ss *store.StageStore, ms *store.MaterialStore, set *store.SettingsStore, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{tasks: ts, stages: ss, materials: ms, settings: set, logger: logger}
}

type materialView struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
}

type taskView struct {
	ID          int64          `json:"id"`
	Title       string         `json:"title"`
	DateStart   *string        `json:"dateStart"`
	DateEnd     *string        `json:"dateEnd"`
	Status      string         `json:"status"`
	Priority    string         `json:"priority"`
	Description string         `json:"description"`
	Customer    string         `json:"customer"`
	Longitude   *float64       `json:"long"`
	Latitude    *float64       `json:"lat"`
	Telephone   string         `json:"telephone"`
	Address     string         `json:"address"`
	Distance    float64        `json:"distance"`
	Materials   []materialView `json:"materials"`
}

// normalizeAddress collapses any whitespace run to a single space and trims
// the ends.
func normalizeAddress(addr string) string {
	return strings.TrimSpace(whitespaceRegexp.ReplaceAllString(addr, " "))
}

func (h *TaskHandler) view(t *model.Task) (taskView, error) {
	v := taskView{
		ID:          t.ID,
		Title:       t.Title,
		Status:      t.StageName,
		Priority:    model.PriorityLabel(t.Priority),
		Description: htmltext.Strip(t.Description),
		Materials:   []materialView{},
	}
	if t.PlannedDateBegin != nil {
		s := t.PlannedDateBegin.UTC().Format(time.RFC3339)
		v.DateStart = &s
	}
	if t.DateDeadline != nil {
		s := t.DateDeadline.UTC().Format(time.RFC3339)
		v.DateEnd = &s
	}
	if t.Partner != nil {
		v.Customer = t.Partner.Name
		v.Telephone = t.Partner.Phone
		v.Address = normalizeAddress(t.Partner.Address)
		v.Latitude = t.Partner.Latitude
		v.Longitude = t.Partner.Longitude
		if t.Partner.Latitude != nil && t.Partner.Longitude != nil {
			if baseLat, baseLon, ok := h.settings.BaseCoordinates(); ok {
				v.Distance = geo.Haversine(*t.Partner.Latitude, *t.Partner.Longitude, baseLat, baseLon)
			}
		}
	}

	lines, err := h.materials.ListBillable(t.ID)
	if err != nil {
		return v, err
	}
	for _, l := range lines {
		v.Materials = append(v.Materials, materialView{ID: l.ProductID, Name: l.Name, Quantity: l.Quantity})
	}
	return v, nil
}

// List returns the acting account's field-service tasks, optionally
// filtered by stage name and priority label, ordered by deadline ascending.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	stageName := r.URL.Query().Get("status")
	priority := -1
	if label := r.URL.Query().Get("priority"); label != "" {
		code, ok := model.PriorityCode(label)
		if !ok {
			RespondError(w, http.StatusBadRequest, "Invalid priority")
			return
		}
		priority = code
	}

	tasks, err := h.tasks.ListForOwner(ac.AccountID, stageName, priority)
	if err != nil {
		h.logger.Error("list tasks", "error", err)
		RespondError(w, http.StatusInternalServerError, "Server error")
		return
	}

	views := []taskView{}
	for i := range tasks {
		v, err := h.view(&tasks[i])
		if err != nil {
			h.logger.Error("build task view", "error", err)
			RespondError(w, http.StatusInternalServerError, "Server error")
			return
		}
		views = append(views, v)
	}

	Respond(w, http.StatusOK, "Interventions data retrieved successfully", views)
}

// Detail returns one task. Non-owners get a 403 with no task data.
func (h *TaskHandler) Detail(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid intervention id")
		return
	}

	task, err := h.tasks.GetByID(id)
	if err != nil {
		h.logger.Error("get task", "error", err)
		RespondError(w, http.StatusInternalServerError, "Server error")
		return
	}
	if task == nil {
		RespondError(w, http.StatusNotFound, "Intervention not found")
		return
	}

	owner, err := h.tasks.IsOwner(task.ID, ac.AccountID)
	if err != nil {
		h.logger.Error("check owner", "error", err)
		RespondError(w, http.StatusInternalServerError, "Server error")
		return
	}
	if !owner {
		RespondError(w, http.StatusForbidden, "You can only view your own task")
		return
	}

	v, err := h.view(task)
	if err != nil {
		h.logger.Error("build task view", "error", err)
		RespondError(w, http.StatusInternalServerError, "Server error")
		return
	}

	Respond(w, http.StatusOK, "Task retrieved successfully", v)
}

// UpdateStatus writes a new stage on a task. The stage is resolved globally
// by id; there is no legality check on the transition.
func (h *TaskHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var req struct {
		StatusID       int64 `json:"statusId"`
		InterventionID int64 `json:"interventionId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}
	if req.StatusID == 0 || req.InterventionID == 0 {
		RespondError(w, http.StatusBadRequest, "statusId and interventionId required")
		return
	}

	task, err := h.tasks.GetByID(req.InterventionID)
	if err != nil {
		h.logger.Error("get task", "error", err)
		RespondError(w, http.StatusInternalServerError, "Server error")
		return
	}
	if task == nil || !task.IsFieldService {
		RespondError(w, http.StatusNotFound, "Task not found or not a field-service task")
		return
	}

	owner, err := h.tasks.IsOwner(task.ID, ac.AccountID)
	if err != nil {
		h.logger.Error("check owner", "error", err)
		RespondError(w, http.StatusInternalServerError, "Server error")
		return
	}
	if !owner {
		RespondError(w, http.StatusForbidden, "You can only edit your own tasks")
		return
	}

	stage, err := h.stages.GetByID(req.StatusID)
	if err != nil {
		h.logger.Error("get stage", "error", err)
		RespondError(w, http.StatusInternalServerError, "Server error")
		return
	}
	if stage == nil {
		RespondError(w, http.StatusBadRequest, "Invalid stage")
		return
	}

	if err := h.tasks.SetStage(task.ID, stage.ID); err != nil {
		h.logger.Error("set stage", "error", err)
		RespondError(w, http.StatusInternalServerError, "Server error")
		return
	}

	Respond(w, http.StatusOK, "Status updated successfully", nil)
}

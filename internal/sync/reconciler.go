// Package sync merges a batch of offline-collected intervention changes
// into the task graph.
package sync

import (
	"encoding/base64"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jdelorme/fieldsync/internal/model"
	"github.com/jdelorme/fieldsync/internal/store"
)

var (
	// ErrTaskNotFound aborts a batch when a referenced task is missing or
	// is not a field-service task.
	ErrTaskNotFound = errors.New("task not found or not a field-service task")
	// ErrNotOwner aborts a batch when the acting account is not assigned
	// to a referenced task.
	ErrNotOwner = errors.New("account does not own task")
)

// TaskChange is one task's offline change set.
type TaskChange struct {
	ID         int64             `json:"id"`
	Status     string            `json:"status"`
	Timesheets []TimesheetChange `json:"timesheets"`
	Images     []FilePayload     `json:"images"`
	Documents  []FilePayload     `json:"documents"`
	Comments   []CommentChange   `json:"comments"`
	Signature  *FilePayload      `json:"signature"`
	Materials  []MaterialChange  `json:"materials"`
}

type TimesheetChange struct {
	Description   string  `json:"description"`
	TimeAllocated float64 `json:"timeAllocated"`
	Date          string  `json:"date"`
}

// FilePayload is a base64-encoded file with its name.
type FilePayload struct {
	Filename string `json:"filename"`
	Data     string `json:"data"`
}

type CommentChange struct {
	Message         string        `json:"message"`
	DateCreated     string        `json:"dateCreated"`
	AttachmentFiles []FilePayload `json:"attachmentFiles"`
}

type MaterialChange struct {
	ID       *int64  `json:"id"`
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
}

// Ack acknowledges one successfully processed task.
type Ack struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

type Reconciler struct {
	tasks       *store.TaskStore
	stages      *store.StageStore
	timesheets  *store.TimesheetStore
	attachments *store.AttachmentStore
	comments    *store.CommentStore
	products    *store.ProductStore
	materials   *store.MaterialStore
	logger      *slog.Logger
}

func New(
	tasks *store.TaskStore,
	stages *store.StageStore,
	timesheets *store.TimesheetStore,
	attachments *store.AttachmentStore,
	comments *store.CommentStore,
	products *store.ProductStore,
	materials *store.MaterialStore,
	logger *slog.Logger,
) *Reconciler {
	return &Reconciler{
		tasks:       tasks,
		stages:      stages,
		timesheets:  timesheets,
		attachments: attachments,
		comments:    comments,
		products:    products,
		materials:   materials,
		logger:      logger,
	}
}

// Apply merges each change set into its task. Ownership and existence
// failures abort the whole batch; writes already made for earlier entries
// stay (rollback, if any, belongs to the caller's transaction scope).
// Per-item problems inside a task (bad attachment, bad comment date) are
// logged and skipped.
func (r *Reconciler) Apply(accountID int64, batch []TaskChange) ([]Ack, error) {
	var acks []Ack

	for _, change := range batch {
		task, err := r.tasks.GetByID(change.ID)
		if err != nil {
			return nil, err
		}
		if task == nil || !task.IsFieldService {
			return nil, ErrTaskNotFound
		}
		owner, err := r.tasks.IsOwner(task.ID, accountID)
		if err != nil {
			return nil, err
		}
		if !owner {
			return nil, ErrNotOwner
		}

		if err := r.applyStage(task, change.Status); err != nil {
			return nil, err
		}
		if err := r.applyTimesheets(task, accountID, change.Timesheets); err != nil {
			return nil, err
		}
		r.applyAttachments(task, nil, change.Images)
		r.applyAttachments(task, nil, change.Documents)
		r.applyComments(task, accountID, change.Comments)
		r.applySignature(task, change.Signature)
		if err := r.applyMaterials(task, change.Materials); err != nil {
			return nil, err
		}

		acks = append(acks, Ack{ID: task.ID, Title: task.Title})
	}

	return acks, nil
}

// applyStage resolves the stage by name within the task's project. An
// unresolvable name is skipped silently; offline clients may reference
// stages that no longer exist.
func (r *Reconciler) applyStage(task *model.Task, status string) error {
	if status == "" || task.ProjectID == nil {
		return nil
	}
	stage, err := r.stages.GetByNameForProject(status, *task.ProjectID)
	if err != nil {
		return err
	}
	if stage == nil {
		r.logger.Debug("sync stage not resolved", "task", task.ID, "status", status)
		return nil
	}
	return r.tasks.SetStage(task.ID, stage.ID)
}

func (r *Reconciler) applyTimesheets(task *model.Task, accountID int64, entries []TimesheetChange) error {
	for _, entry := range entries {
		date := parseDate(entry.Date)
		_, err := r.timesheets.Create(task.ID, task.ProjectID, accountID, entry.Description, entry.TimeAllocated, date)
		if err != nil {
			return err
		}
	}
	return nil
}

// applyAttachments decodes and stores each file. Upload is best-effort per
// item: entries missing a filename or payload, or with broken base64, are
// logged and skipped. Returns the ids of the stored attachments.
func (r *Reconciler) applyAttachments(task *model.Task, commentID *int64, files []FilePayload) []int64 {
	var ids []int64
	for _, file := range files {
		if file.Filename == "" || file.Data == "" {
			r.logger.Warn("attachment skipped: missing filename or data", "task", task.ID)
			continue
		}
		decoded, err := base64.StdEncoding.DecodeString(file.Data)
		if err != nil {
			r.logger.Warn("attachment skipped: bad base64", "task", task.ID, "filename", file.Filename, "error", err)
			continue
		}
		a, err := r.attachments.Create(task.ID, commentID, file.Filename, decoded)
		if err != nil {
			r.logger.Warn("attachment skipped: store failed", "task", task.ID, "filename", file.Filename, "error", err)
			continue
		}
		ids = append(ids, a.ID)
	}
	return ids
}

func (r *Reconciler) applyComments(task *model.Task, accountID int64, comments []CommentChange) {
	for _, comment := range comments {
		if comment.Message == "" {
			continue
		}
		created := parseCommentDate(comment.DateCreated)
		c, err := r.comments.Create(task.ID, accountID, comment.Message, created)
		if err != nil {
			r.logger.Warn("comment skipped: store failed", "task", task.ID, "error", err)
			continue
		}
		r.applyAttachments(task, &c.ID, comment.AttachmentFiles)
	}
}

// applySignature stores the customer signature on the task's binary field
// pair. Missing parts are skipped silently.
func (r *Reconciler) applySignature(task *model.Task, sig *FilePayload) {
	if sig == nil || sig.Filename == "" || sig.Data == "" {
		return
	}
	decoded, err := base64.StdEncoding.DecodeString(sig.Data)
	if err != nil {
		r.logger.Warn("signature skipped: bad base64", "task", task.ID, "error", err)
		return
	}
	if err := r.tasks.SetSignature(task.ID, sig.Filename, decoded); err != nil {
		r.logger.Warn("signature skipped: store failed", "task", task.ID, "error", err)
	}
}

// applyMaterials reconciles the task's material lines: resolve the product
// by id, then by exact name, then create a consumable; overwrite the
// quantity on an existing line (zero included, the line is never deleted);
// create a new line, priced at the product's list price, only for positive
// quantities.
func (r *Reconciler) applyMaterials(task *model.Task, materials []MaterialChange) error {
	for _, m := range materials {
		product, err := r.resolveProduct(m)
		if err != nil {
			return err
		}
		if product == nil {
			continue
		}

		line, err := r.materials.GetLine(task.ID, product.ID)
		if err != nil {
			return err
		}
		if line != nil {
			if err := r.materials.SetQuantity(line.ID, m.Quantity); err != nil {
				return err
			}
			continue
		}
		if m.Quantity > 0 {
			if _, err := r.materials.CreateLine(task.ID, product, m.Quantity); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Reconciler) resolveProduct(m MaterialChange) (*model.Product, error) {
	if m.ID != nil {
		product, err := r.products.GetByID(*m.ID)
		if err != nil {
			return nil, err
		}
		if product != nil {
			return product, nil
		}
	}
	if m.Name == "" {
		return nil, nil
	}
	product, err := r.products.GetByName(m.Name)
	if err != nil {
		return nil, err
	}
	if product != nil {
		return product, nil
	}
	return r.products.CreateConsumable(m.Name)
}

// parseDate accepts YYYY-MM-DD and DD/MM/YYYY; anything else, including an
// empty value, resolves to today.
func parseDate(value string) time.Time {
	value = strings.TrimSpace(value)
	for _, layout := range []string{"2006-01-02", "02/01/2006"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Now().UTC().Truncate(24 * time.Hour)
}

// parseCommentDate accepts an ISO timestamp, dropping any fractional
// seconds, and falls back to now.
func parseCommentDate(value string) time.Time {
	value = strings.TrimSpace(value)
	if i := strings.IndexByte(value, '.'); i >= 0 {
		value = value[:i]
	}
	value = strings.Replace(value, "T", " ", 1)
	if t, err := time.Parse("2006-01-02 15:04:05", value); err == nil {
		return t
	}
	return time.Now().UTC()
}

package sync

import (
	"database/sql"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/jdelorme/fieldsync/internal/database"
	"github.com/jdelorme/fieldsync/internal/model"
	"github.com/jdelorme/fieldsync/internal/store"
)

type env struct {
	db          *sql.DB
	reconciler  *Reconciler
	accounts    *store.AccountStore
	tasks       *store.TaskStore
	stages      *store.StageStore
	projects    *store.ProjectStore
	timesheets  *store.TimesheetStore
	attachments *store.AttachmentStore
	comments    *store.CommentStore
	products    *store.ProductStore
	materials   *store.MaterialStore

	account *model.Account
	project *model.Project
	todo    *model.Stage
	done    *model.Stage
	task    *model.Task
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	e := &env{
		db:          db,
		accounts:    store.NewAccountStore(db),
		tasks:       store.NewTaskStore(db),
		stages:      store.NewStageStore(db),
		projects:    store.NewProjectStore(db),
		timesheets:  store.NewTimesheetStore(db),
		attachments: store.NewAttachmentStore(db),
		comments:    store.NewCommentStore(db),
		products:    store.NewProductStore(db),
		materials:   store.NewMaterialStore(db),
	}
	e.reconciler = New(
		e.tasks, e.stages, e.timesheets, e.attachments, e.comments,
		e.products, e.materials,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)

	e.account, err = e.accounts.Create("tech@example.com", "Tech One", "s3cret")
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	e.project, err = e.projects.Create("Installations")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	e.todo, err = e.stages.Create("To Do", 1)
	if err != nil {
		t.Fatalf("create stage: %v", err)
	}
	e.done, err = e.stages.Create("Done", 2)
	if err != nil {
		t.Fatalf("create stage: %v", err)
	}
	for _, st := range []*model.Stage{e.todo, e.done} {
		if err := e.stages.AttachToProject(st.ID, e.project.ID); err != nil {
			t.Fatalf("attach stage: %v", err)
		}
	}
	e.task = e.createTask(t, "Boiler installation", true)
	if err := e.tasks.AddOwner(e.task.ID, e.account.ID); err != nil {
		t.Fatalf("add owner: %v", err)
	}
	return e
}

func (e *env) createTask(t *testing.T, title string, fieldService bool) *model.Task {
	t.Helper()
	task, err := e.tasks.Create(store.TaskInput{
		Title:          title,
		Priority:       model.PriorityNormal,
		IsFieldService: fieldService,
		ProjectID:      &e.project.ID,
		StageID:        &e.todo.ID,
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

func b64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func TestApplyStageByName(t *testing.T) {
	e := newEnv(t)

	acks, err := e.reconciler.Apply(e.account.ID, []TaskChange{{ID: e.task.ID, Status: "Done"}})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(acks) != 1 || acks[0].ID != e.task.ID || acks[0].Title != "Boiler installation" {
		t.Fatalf("acks = %+v", acks)
	}

	task, err := e.tasks.GetByID(e.task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if task.StageID == nil || *task.StageID != e.done.ID {
		t.Errorf("stage id = %v, want %d", task.StageID, e.done.ID)
	}
}

func TestApplyUnknownStageSkipped(t *testing.T) {
	e := newEnv(t)

	acks, err := e.reconciler.Apply(e.account.ID, []TaskChange{{ID: e.task.ID, Status: "Archived"}})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(acks) != 1 {
		t.Fatalf("acks = %+v", acks)
	}

	task, _ := e.tasks.GetByID(e.task.ID)
	if task.StageID == nil || *task.StageID != e.todo.ID {
		t.Errorf("stage id = %v, want unchanged %d", task.StageID, e.todo.ID)
	}
}

func TestApplyTimesheets(t *testing.T) {
	e := newEnv(t)

	_, err := e.reconciler.Apply(e.account.ID, []TaskChange{{
		ID: e.task.ID,
		Timesheets: []TimesheetChange{
			{Description: "Diagnosis", TimeAllocated: 0.5, Date: "2026-03-14"},
			{Description: "Repair", TimeAllocated: 2, Date: "15/03/2026"},
			{Description: "Cleanup", TimeAllocated: 0.25, Date: "not-a-date"},
		},
	}})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	list, err := e.timesheets.ListForTask(e.task.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len = %d, want 3", len(list))
	}
	byDesc := map[string]string{}
	for _, ts := range list {
		byDesc[ts.Description] = ts.EntryDate.Format("2006-01-02")
	}
	if byDesc["Diagnosis"] != "2026-03-14" {
		t.Errorf("Diagnosis date = %s", byDesc["Diagnosis"])
	}
	if byDesc["Repair"] != "2026-03-15" {
		t.Errorf("Repair date = %s (DD/MM/YYYY should parse)", byDesc["Repair"])
	}
}

func TestApplyAttachmentsBestEffort(t *testing.T) {
	e := newEnv(t)

	_, err := e.reconciler.Apply(e.account.ID, []TaskChange{{
		ID: e.task.ID,
		Images: []FilePayload{
			{Filename: "before.jpg", Data: b64("jpeg-bytes")},
			{Filename: "", Data: b64("orphan")},
			{Filename: "broken.jpg", Data: "%%%not-base64%%%"},
		},
		Documents: []FilePayload{
			{Filename: "report.pdf", Data: b64("pdf-bytes")},
		},
	}})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	list, err := e.attachments.ListForTask(e.task.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2 (bad entries skipped)", len(list))
	}
}

func TestApplyCommentsWithAttachments(t *testing.T) {
	e := newEnv(t)

	_, err := e.reconciler.Apply(e.account.ID, []TaskChange{{
		ID: e.task.ID,
		Comments: []CommentChange{
			{Message: "Customer asked for a quote", DateCreated: "2026-03-14T09:30:00.123456"},
			{Message: ""},
			{
				Message:         "Photo of the leak",
				DateCreated:     "2026-03-14 10:00:00",
				AttachmentFiles: []FilePayload{{Filename: "leak.jpg", Data: b64("jpeg")}},
			},
		},
	}})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	comments, err := e.comments.ListForTask(e.task.ID)
	if err != nil {
		t.Fatalf("list comments: %v", err)
	}
	if len(comments) != 2 {
		t.Fatalf("comments len = %d, want 2 (empty body skipped)", len(comments))
	}
	if got := comments[0].CreatedAt.Format("2006-01-02 15:04:05"); got != "2026-03-14 09:30:00" {
		t.Errorf("created at = %s, want fractional seconds dropped", got)
	}

	attachments, err := e.attachments.ListForTask(e.task.ID)
	if err != nil {
		t.Fatalf("list attachments: %v", err)
	}
	if len(attachments) != 1 {
		t.Fatalf("attachments len = %d, want 1", len(attachments))
	}
	if attachments[0].CommentID == nil {
		t.Error("attachment should be linked to its comment")
	}
}

func TestApplySignature(t *testing.T) {
	e := newEnv(t)

	_, err := e.reconciler.Apply(e.account.ID, []TaskChange{{
		ID:        e.task.ID,
		Signature: &FilePayload{Filename: "signature.png", Data: b64("png-bytes")},
	}})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	task, _ := e.tasks.GetByID(e.task.ID)
	if task.SignatureFilename != "signature.png" {
		t.Errorf("signature filename = %q", task.SignatureFilename)
	}
}

func TestApplySignatureMissingPartsSkipped(t *testing.T) {
	e := newEnv(t)

	_, err := e.reconciler.Apply(e.account.ID, []TaskChange{{
		ID:        e.task.ID,
		Signature: &FilePayload{Filename: "signature.png"},
	}})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	task, _ := e.tasks.GetByID(e.task.ID)
	if task.SignatureFilename != "" {
		t.Errorf("signature filename = %q, want empty", task.SignatureFilename)
	}
}

func TestApplyMaterialsResolution(t *testing.T) {
	e := newEnv(t)

	cable, err := e.products.Create("Cable 3G2.5", "consumable", 1.2)
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	valve, err := e.products.Create("Valve", "consumable", 8)
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	_, err = e.reconciler.Apply(e.account.ID, []TaskChange{{
		ID: e.task.ID,
		Materials: []MaterialChange{
			{ID: &cable.ID, Quantity: 4},          // by id
			{Name: "Valve", Quantity: 1},          // by exact name
			{Name: "Custom bracket", Quantity: 2}, // created on the fly
		},
	}})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	lines, err := e.materials.ListForTask(e.task.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("lines len = %d, want 3", len(lines))
	}

	bracket, err := e.products.GetByName("Custom bracket")
	if err != nil {
		t.Fatalf("get by name: %v", err)
	}
	if bracket == nil {
		t.Fatal("unknown material should create a consumable product")
	}
	if bracket.ListPrice != 0 {
		t.Errorf("created consumable list price = %v, want 0", bracket.ListPrice)
	}
	line, _ := e.materials.GetLine(e.task.ID, cable.ID)
	if line == nil || line.PriceUnit != 1.2 {
		t.Errorf("cable line = %+v, want price 1.2", line)
	}
	if line, _ := e.materials.GetLine(e.task.ID, valve.ID); line == nil || line.Quantity != 1 {
		t.Errorf("valve line = %+v, want quantity 1", line)
	}
}

func TestApplyMaterialsIdempotent(t *testing.T) {
	e := newEnv(t)

	cable, err := e.products.Create("Cable 3G2.5", "consumable", 1.2)
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	batch := []TaskChange{{
		ID:        e.task.ID,
		Materials: []MaterialChange{{ID: &cable.ID, Quantity: 4}},
	}}

	for i := 0; i < 2; i++ {
		if _, err := e.reconciler.Apply(e.account.ID, batch); err != nil {
			t.Fatalf("apply %d: %v", i+1, err)
		}
	}

	lines, err := e.materials.ListForTask(e.task.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("lines len = %d, want 1 after replay", len(lines))
	}
	if lines[0].Quantity != 4 {
		t.Errorf("quantity = %v, want 4", lines[0].Quantity)
	}
}

func TestApplyMaterialsZeroQuantity(t *testing.T) {
	e := newEnv(t)

	cable, err := e.products.Create("Cable 3G2.5", "consumable", 1.2)
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if _, err := e.materials.CreateLine(e.task.ID, cable, 4); err != nil {
		t.Fatalf("create line: %v", err)
	}
	valve, err := e.products.Create("Valve", "consumable", 8)
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	_, err = e.reconciler.Apply(e.account.ID, []TaskChange{{
		ID: e.task.ID,
		Materials: []MaterialChange{
			{ID: &cable.ID, Quantity: 0}, // existing line zeroed, not deleted
			{ID: &valve.ID, Quantity: 0}, // no line, none created
		},
	}})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	line, err := e.materials.GetLine(e.task.ID, cable.ID)
	if err != nil {
		t.Fatalf("get line: %v", err)
	}
	if line == nil {
		t.Fatal("zeroed line must survive")
	}
	if line.Quantity != 0 {
		t.Errorf("quantity = %v, want 0", line.Quantity)
	}
	if l, _ := e.materials.GetLine(e.task.ID, valve.ID); l != nil {
		t.Error("zero quantity must not create a line")
	}
}

func TestApplyAbortsOnMissingTask(t *testing.T) {
	e := newEnv(t)

	_, err := e.reconciler.Apply(e.account.ID, []TaskChange{{ID: 9999}})
	if !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("err = %v, want ErrTaskNotFound", err)
	}
}

func TestApplyAbortsOnNonFieldServiceTask(t *testing.T) {
	e := newEnv(t)

	office := e.createTask(t, "Office work", false)
	if err := e.tasks.AddOwner(office.ID, e.account.ID); err != nil {
		t.Fatalf("add owner: %v", err)
	}

	_, err := e.reconciler.Apply(e.account.ID, []TaskChange{{ID: office.ID}})
	if !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("err = %v, want ErrTaskNotFound", err)
	}
}

func TestApplyAbortsOnUnownedTaskKeepingEarlierWrites(t *testing.T) {
	e := newEnv(t)

	other := e.createTask(t, "Someone else's job", true)

	_, err := e.reconciler.Apply(e.account.ID, []TaskChange{
		{ID: e.task.ID, Timesheets: []TimesheetChange{{Description: "Done first", TimeAllocated: 1}}},
		{ID: other.ID, Status: "Done"},
	})
	if !errors.Is(err, ErrNotOwner) {
		t.Fatalf("err = %v, want ErrNotOwner", err)
	}

	// The first entry's writes stay.
	list, err := e.timesheets.ListForTask(e.task.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("timesheets len = %d, want 1", len(list))
	}
}

func TestApplyAcksEveryTask(t *testing.T) {
	e := newEnv(t)

	second := e.createTask(t, "Radiator bleed", true)
	if err := e.tasks.AddOwner(second.ID, e.account.ID); err != nil {
		t.Fatalf("add owner: %v", err)
	}

	acks, err := e.reconciler.Apply(e.account.ID, []TaskChange{
		{ID: e.task.ID, Status: "Done"},
		{ID: second.ID, Status: "Done"},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(acks) != 2 {
		t.Fatalf("acks len = %d, want 2", len(acks))
	}
	if acks[0].ID != e.task.ID || acks[1].ID != second.ID {
		t.Errorf("acks = %+v", acks)
	}
}

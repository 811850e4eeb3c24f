package store

import (
	"database/sql"
	"testing"
	"time"

	"github.com/jdelorme/fieldsync/internal/database"
	"github.com/jdelorme/fieldsync/internal/model"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// fixture bundles the stores and a baseline graph used by most tests:
// one account owning one field-service task in a project with two stages.
type fixture struct {
	db         *sql.DB
	accounts   *AccountStore
	tasks      *TaskStore
	stages     *StageStore
	projects   *ProjectStore
	partners   *PartnerStore
	timesheets *TimesheetStore
	products   *ProductStore
	materials  *MaterialStore
	settings   *SettingsStore

	account *model.Account
	project *model.Project
	todo    *model.Stage
	done    *model.Stage
	task    *model.Task
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := openTestDB(t)
	f := &fixture{
		db:         db,
		accounts:   NewAccountStore(db),
		tasks:      NewTaskStore(db),
		stages:     NewStageStore(db),
		projects:   NewProjectStore(db),
		partners:   NewPartnerStore(db),
		timesheets: NewTimesheetStore(db),
		products:   NewProductStore(db),
		materials:  NewMaterialStore(db),
		settings:   NewSettingsStore(db),
	}

	var err error
	f.account, err = f.accounts.Create("tech@example.com", "Tech One", "s3cret")
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	f.project, err = f.projects.Create("Installations")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	f.todo, err = f.stages.Create("To Do", 1)
	if err != nil {
		t.Fatalf("create stage: %v", err)
	}
	f.done, err = f.stages.Create("Done", 2)
	if err != nil {
		t.Fatalf("create stage: %v", err)
	}
	for _, st := range []*model.Stage{f.todo, f.done} {
		if err := f.stages.AttachToProject(st.ID, f.project.ID); err != nil {
			t.Fatalf("attach stage: %v", err)
		}
	}

	f.task = f.createTask(t, "Boiler installation", f.todo.ID, nil)
	if err := f.tasks.AddOwner(f.task.ID, f.account.ID); err != nil {
		t.Fatalf("add owner: %v", err)
	}
	return f
}

func (f *fixture) createTask(t *testing.T, title string, stageID int64, deadline *time.Time) *model.Task {
	t.Helper()
	task, err := f.tasks.Create(TaskInput{
		Title:          title,
		Description:    "<p>On-site job</p>",
		Priority:       model.PriorityNormal,
		IsFieldService: true,
		ProjectID:      &f.project.ID,
		StageID:        &stageID,
		DateDeadline:   deadline,
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

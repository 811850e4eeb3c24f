package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jdelorme/fieldsync/internal/model"
)

type TimesheetStore struct {
	db *sql.DB
}

func NewTimesheetStore(db *sql.DB) *TimesheetStore {
	return &TimesheetStore{db: db}
}

func scanTimesheet(scanner interface{ Scan(...any) error }) (*model.Timesheet, error) {
	var ts model.Timesheet
	err := scanner.Scan(&ts.ID, &ts.TaskID, &ts.ProjectID, &ts.AccountID, &ts.Description, &ts.Hours, &ts.EntryDate, &ts.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &ts, nil
}

const timesheetCols = `id, task_id, project_id, account_id, description, hours, entry_date, created_at`

func (s *TimesheetStore) Create(taskID int64, projectID *int64, accountID int64, description string, hours float64, entryDate time.Time) (*model.Timesheet, error) {
	result, err := s.db.Exec(
		`INSERT INTO timesheets (task_id, project_id, account_id, description, hours, entry_date) VALUES (?, ?, ?, ?, ?, ?)`,
		taskID, projectID, accountID, description, hours, entryDate,
	)
	if err != nil {
		return nil, fmt.Errorf("insert timesheet: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *TimesheetStore) GetByID(id int64) (*model.Timesheet, error) {
	row := s.db.QueryRow(`SELECT `+timesheetCols+` FROM timesheets WHERE id = ?`, id)
	ts, err := scanTimesheet(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get timesheet: %w", err)
	}
	return ts, nil
}

func (s *TimesheetStore) ListForTask(taskID int64) ([]model.Timesheet, error) {
	rows, err := s.db.Query(`SELECT `+timesheetCols+` FROM timesheets WHERE task_id = ? ORDER BY entry_date ASC, id ASC`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list timesheets: %w", err)
	}
	defer rows.Close()

	var entries []model.Timesheet
	for rows.Next() {
		ts, err := scanTimesheet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan timesheet: %w", err)
		}
		entries = append(entries, *ts)
	}
	return entries, rows.Err()
}

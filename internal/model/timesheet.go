package model

import "time"

type Timesheet struct {
	ID          int64     `json:"id"`
	TaskID      int64     `json:"task_id"`
	ProjectID   *int64    `json:"project_id"`
	AccountID   int64     `json:"account_id"`
	Description string    `json:"description"`
	Hours       float64   `json:"hours"`
	EntryDate   time.Time `json:"entry_date"`
	CreatedAt   time.Time `json:"created_at"`
}

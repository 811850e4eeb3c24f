package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jdelorme/fieldsync/internal/model"
)

type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

const taskCols = `t.id, t.title, t.description, t.is_field_service, t.priority,
	t.project_id, t.partner_id, t.stage_id, t.planned_date_begin, t.date_deadline,
	t.signature_filename, t.created_at, t.updated_at,
	COALESCE(s.name, ''),
	p.id, p.name, p.phone, p.address, p.latitude, p.longitude`

const taskFrom = ` FROM tasks t
	LEFT JOIN stages s ON s.id = t.stage_id
	LEFT JOIN partners p ON p.id = t.partner_id`

func scanTask(scanner interface{ Scan(...any) error }) (*model.Task, error) {
	var t model.Task
	var pID sql.NullInt64
	var pName, pPhone, pAddress sql.NullString
	var pLat, pLon sql.NullFloat64
	err := scanner.Scan(
		&t.ID, &t.Title, &t.Description, &t.IsFieldService, &t.Priority,
		&t.ProjectID, &t.PartnerID, &t.StageID, &t.PlannedDateBegin, &t.DateDeadline,
		&t.SignatureFilename, &t.CreatedAt, &t.UpdatedAt,
		&t.StageName,
		&pID, &pName, &pPhone, &pAddress, &pLat, &pLon,
	)
	if err != nil {
		return nil, err
	}
	if pID.Valid {
		partner := model.Partner{
			ID:      pID.Int64,
			Name:    pName.String,
			Phone:   pPhone.String,
			Address: pAddress.String,
		}
		if pLat.Valid {
			partner.Latitude = &pLat.Float64
		}
		if pLon.Valid {
			partner.Longitude = &pLon.Float64
		}
		t.Partner = &partner
	}
	return &t, nil
}

// TaskInput carries the writable task fields for creation.
type TaskInput struct {
	Title            string
	Description      string
	Priority         int
	IsFieldService   bool
	ProjectID        *int64
	PartnerID        *int64
	StageID          *int64
	PlannedDateBegin *time.Time
	DateDeadline     *time.Time
}

func (s *TaskStore) Create(in TaskInput) (*model.Task, error) {
	result, err := s.db.Exec(
		`INSERT INTO tasks (title, description, priority, is_field_service, project_id, partner_id, stage_id, planned_date_begin, date_deadline)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.Title, in.Description, in.Priority, in.IsFieldService,
		in.ProjectID, in.PartnerID, in.StageID, in.PlannedDateBegin, in.DateDeadline,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

// ListForOwner returns the field-service tasks the account is assigned to,
// ordered by deadline ascending. stageName and priority filters are applied
// only when set (priority < 0 means no filter).
func (s *TaskStore) ListForOwner(accountID int64, stageName string, priority int) ([]model.Task, error) {
	query := `SELECT ` + taskCols + taskFrom + `
		JOIN task_owners o ON o.task_id = t.id
		WHERE t.is_field_service = 1 AND o.account_id = ?`
	args := []any{accountID}

	if stageName != "" {
		query += ` AND s.name = ?`
		args = append(args, stageName)
	}
	if priority >= 0 {
		query += ` AND t.priority = ?`
		args = append(args, priority)
	}
	// NULL deadlines sort last, not first.
	query += ` ORDER BY t.date_deadline IS NULL, t.date_deadline ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (s *TaskStore) GetByID(id int64) (*model.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskCols+taskFrom+` WHERE t.id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// IsOwner reports whether the account is among the task's assignees.
func (s *TaskStore) IsOwner(taskID, accountID int64) (bool, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM task_owners WHERE task_id = ? AND account_id = ?`,
		taskID, accountID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check task owner: %w", err)
	}
	return n > 0, nil
}

func (s *TaskStore) AddOwner(taskID, accountID int64) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO task_owners (task_id, account_id) VALUES (?, ?)`,
		taskID, accountID,
	)
	if err != nil {
		return fmt.Errorf("add task owner: %w", err)
	}
	return nil
}

func (s *TaskStore) SetStage(taskID, stageID int64) error {
	_, err := s.db.Exec(
		`UPDATE tasks SET stage_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		stageID, taskID,
	)
	if err != nil {
		return fmt.Errorf("set task stage: %w", err)
	}
	return nil
}

// SetSignature stores the customer signature blob and its filename.
func (s *TaskStore) SetSignature(taskID int64, filename string, data []byte) error {
	_, err := s.db.Exec(
		`UPDATE tasks SET signature = ?, signature_filename = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		data, filename, taskID,
	)
	if err != nil {
		return fmt.Errorf("set task signature: %w", err)
	}
	return nil
}

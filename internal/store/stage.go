package store

import (
	"database/sql"
	"fmt"

	"github.com/jdelorme/fieldsync/internal/model"
)

type StageStore struct {
	db *sql.DB
}

func NewStageStore(db *sql.DB) *StageStore {
	return &StageStore{db: db}
}

func scanStage(scanner interface{ Scan(...any) error }) (*model.Stage, error) {
	var st model.Stage
	err := scanner.Scan(&st.ID, &st.Name, &st.Sequence)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

const stageCols = `id, name, sequence`

// Create inserts a workflow stage. Sequence numbers are unique across the
// installation; the schema enforces it.
func (s *StageStore) Create(name string, sequence int) (*model.Stage, error) {
	result, err := s.db.Exec(
		`INSERT INTO stages (name, sequence) VALUES (?, ?)`,
		name, sequence,
	)
	if err != nil {
		return nil, fmt.Errorf("insert stage: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *StageStore) GetByID(id int64) (*model.Stage, error) {
	row := s.db.QueryRow(`SELECT `+stageCols+` FROM stages WHERE id = ?`, id)
	st, err := scanStage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get stage: %w", err)
	}
	return st, nil
}

// GetByNameForProject resolves a stage by exact name within the stages
// attached to the given project.
func (s *StageStore) GetByNameForProject(name string, projectID int64) (*model.Stage, error) {
	row := s.db.QueryRow(
		`SELECT s.id, s.name, s.sequence FROM stages s
		JOIN project_stages ps ON ps.stage_id = s.id
		WHERE s.name = ? AND ps.project_id = ?
		LIMIT 1`,
		name, projectID,
	)
	st, err := scanStage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get stage by name: %w", err)
	}
	return st, nil
}

// AttachToProject makes a stage available to a project's workflow.
func (s *StageStore) AttachToProject(stageID, projectID int64) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO project_stages (project_id, stage_id) VALUES (?, ?)`,
		projectID, stageID,
	)
	if err != nil {
		return fmt.Errorf("attach stage to project: %w", err)
	}
	return nil
}

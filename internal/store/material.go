package store

import (
	"database/sql"
	"fmt"

	"github.com/jdelorme/fieldsync/internal/model"
)

type MaterialStore struct {
	db *sql.DB
}

func NewMaterialStore(db *sql.DB) *MaterialStore {
	return &MaterialStore{db: db}
}

func scanMaterialLine(scanner interface{ Scan(...any) error }) (*model.MaterialLine, error) {
	var l model.MaterialLine
	err := scanner.Scan(&l.ID, &l.TaskID, &l.ProductID, &l.Quantity, &l.PriceUnit, &l.Name, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

const materialCols = `id, task_id, product_id, quantity, price_unit, name, created_at, updated_at`

// ListForTask returns every material line on the task, including
// zero-quantity lines kept for tracking.
func (s *MaterialStore) ListForTask(taskID int64) ([]model.MaterialLine, error) {
	rows, err := s.db.Query(`SELECT `+materialCols+` FROM material_lines WHERE task_id = ? ORDER BY id ASC`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list material lines: %w", err)
	}
	defer rows.Close()

	var lines []model.MaterialLine
	for rows.Next() {
		l, err := scanMaterialLine(rows)
		if err != nil {
			return nil, fmt.Errorf("scan material line: %w", err)
		}
		lines = append(lines, *l)
	}
	return lines, rows.Err()
}

// ListBillable returns the positive-quantity lines in the shape the task
// endpoints expose: product id, product name, quantity.
func (s *MaterialStore) ListBillable(taskID int64) ([]model.MaterialLine, error) {
	rows, err := s.db.Query(
		`SELECT `+materialCols+` FROM material_lines WHERE task_id = ? AND quantity > 0 ORDER BY id ASC`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("list billable lines: %w", err)
	}
	defer rows.Close()

	var lines []model.MaterialLine
	for rows.Next() {
		l, err := scanMaterialLine(rows)
		if err != nil {
			return nil, fmt.Errorf("scan material line: %w", err)
		}
		lines = append(lines, *l)
	}
	return lines, rows.Err()
}

// GetLine returns the line for the given task/product pair, or nil when the
// product has never been tracked on the task.
func (s *MaterialStore) GetLine(taskID, productID int64) (*model.MaterialLine, error) {
	row := s.db.QueryRow(
		`SELECT `+materialCols+` FROM material_lines WHERE task_id = ? AND product_id = ?`,
		taskID, productID,
	)
	l, err := scanMaterialLine(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get material line: %w", err)
	}
	return l, nil
}

func (s *MaterialStore) GetByID(id int64) (*model.MaterialLine, error) {
	row := s.db.QueryRow(`SELECT `+materialCols+` FROM material_lines WHERE id = ?`, id)
	l, err := scanMaterialLine(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get material line: %w", err)
	}
	return l, nil
}

// SetQuantity overwrites the quantity on an existing line. Zero is a valid
// value; the line stays.
func (s *MaterialStore) SetQuantity(lineID int64, quantity float64) error {
	_, err := s.db.Exec(
		`UPDATE material_lines SET quantity = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		quantity, lineID,
	)
	if err != nil {
		return fmt.Errorf("set line quantity: %w", err)
	}
	return nil
}

// CreateLine adds a new line priced at the product's list price.
func (s *MaterialStore) CreateLine(taskID int64, product *model.Product, quantity float64) (*model.MaterialLine, error) {
	result, err := s.db.Exec(
		`INSERT INTO material_lines (task_id, product_id, quantity, price_unit, name) VALUES (?, ?, ?, ?, ?)`,
		taskID, product.ID, quantity, product.ListPrice, product.Name,
	)
	if err != nil {
		return nil, fmt.Errorf("insert material line: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

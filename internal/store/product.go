package store

import (
	"database/sql"
	"fmt"

	"github.com/jdelorme/fieldsync/internal/model"
)

type ProductStore struct {
	db *sql.DB
}

func NewProductStore(db *sql.DB) *ProductStore {
	return &ProductStore{db: db}
}

func scanProduct(scanner interface{ Scan(...any) error }) (*model.Product, error) {
	var p model.Product
	err := scanner.Scan(&p.ID, &p.Name, &p.Kind, &p.ListPrice, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

const productCols = `id, name, kind, list_price, created_at`

func (s *ProductStore) Create(name, kind string, listPrice float64) (*model.Product, error) {
	result, err := s.db.Exec(
		`INSERT INTO products (name, kind, list_price) VALUES (?, ?, ?)`,
		name, kind, listPrice,
	)
	if err != nil {
		return nil, fmt.Errorf("insert product: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

// CreateConsumable registers a product created on the fly during a sync,
// with a zero list price.
func (s *ProductStore) CreateConsumable(name string) (*model.Product, error) {
	return s.Create(name, "consumable", 0)
}

func (s *ProductStore) GetByID(id int64) (*model.Product, error) {
	row := s.db.QueryRow(`SELECT `+productCols+` FROM products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// GetByName resolves a product by exact name match.
func (s *ProductStore) GetByName(name string) (*model.Product, error) {
	row := s.db.QueryRow(`SELECT `+productCols+` FROM products WHERE name = ? LIMIT 1`, name)
	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get product by name: %w", err)
	}
	return p, nil
}

package store

import (
	"database/sql"
	"fmt"

	"github.com/jdelorme/fieldsync/internal/model"
)

type PartnerStore struct {
	db *sql.DB
}

func NewPartnerStore(db *sql.DB) *PartnerStore {
	return &PartnerStore{db: db}
}

func (s *PartnerStore) Create(name, phone, address string, lat, lon *float64) (*model.Partner, error) {
	result, err := s.db.Exec(
		`INSERT INTO partners (name, phone, address, latitude, longitude) VALUES (?, ?, ?, ?, ?)`,
		name, phone, address, lat, lon,
	)
	if err != nil {
		return nil, fmt.Errorf("insert partner: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *PartnerStore) GetByID(id int64) (*model.Partner, error) {
	row := s.db.QueryRow(
		`SELECT id, name, phone, address, latitude, longitude, created_at FROM partners WHERE id = ?`, id,
	)
	var p model.Partner
	err := row.Scan(&p.ID, &p.Name, &p.Phone, &p.Address, &p.Latitude, &p.Longitude, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get partner: %w", err)
	}
	return &p, nil
}

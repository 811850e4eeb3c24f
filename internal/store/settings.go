package store

import (
	"database/sql"
	"fmt"
	"strconv"
)

// SettingsStore holds installation-wide values, currently the home-base
// coordinates used for the task distance field.
type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

func (s *SettingsStore) Get(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("setting %q not found", key)
	}
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

func (s *SettingsStore) Set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

// BaseCoordinates returns the configured home-base latitude/longitude.
// ok is false when either value is unset or unparsable.
func (s *SettingsStore) BaseCoordinates() (lat, lon float64, ok bool) {
	latStr, err := s.Get("base_latitude")
	if err != nil {
		return 0, 0, false
	}
	lonStr, err := s.Get("base_longitude")
	if err != nil {
		return 0, 0, false
	}
	lat, errLat := strconv.ParseFloat(latStr, 64)
	lon, errLon := strconv.ParseFloat(lonStr, 64)
	if errLat != nil || errLon != nil {
		return 0, 0, false
	}
	return lat, lon, true
}

// SetBaseCoordinates stores the home-base position.
func (s *SettingsStore) SetBaseCoordinates(lat, lon float64) error {
	if err := s.Set("base_latitude", strconv.FormatFloat(lat, 'f', -1, 64)); err != nil {
		return err
	}
	return s.Set("base_longitude", strconv.FormatFloat(lon, 'f', -1, 64))
}

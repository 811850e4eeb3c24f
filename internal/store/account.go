package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/jdelorme/fieldsync/internal/model"
)

// TokenTTL is how long an issued access token stays valid.
const TokenTTL = 24 * time.Hour

type AccountStore struct {
	db *sql.DB
}

func NewAccountStore(db *sql.DB) *AccountStore {
	return &AccountStore{db: db}
}

func scanAccount(scanner interface{ Scan(...any) error }) (*model.Account, error) {
	var a model.Account
	err := scanner.Scan(&a.ID, &a.Email, &a.Name, &a.PasswordHash, &a.AccessToken, &a.TokenExpiry, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

const accountCols = `id, email, name, password_hash, access_token, token_expiry, created_at, updated_at`

func (s *AccountStore) Create(email, name, password string) (*model.Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	result, err := s.db.Exec(
		`INSERT INTO accounts (email, name, password_hash) VALUES (?, ?, ?)`,
		email, name, string(hash),
	)
	if err != nil {
		return nil, fmt.Errorf("insert account: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *AccountStore) GetByID(id int64) (*model.Account, error) {
	row := s.db.QueryRow(`SELECT `+accountCols+` FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

func (s *AccountStore) GetByEmail(email string) (*model.Account, error) {
	row := s.db.QueryRow(`SELECT `+accountCols+` FROM accounts WHERE email = ?`, email)
	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get account by email: %w", err)
	}
	return a, nil
}

// Authenticate checks email/password and returns the account on success,
// or nil when the account is unknown or the password does not match.
func (s *AccountStore) Authenticate(email, password string) (*model.Account, error) {
	a, err := s.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, nil
	}
	if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) != nil {
		return nil, nil
	}
	return a, nil
}

// IssueToken generates a crypto-random access token with a 24-hour expiry
// and writes it onto the account row, replacing any previous token. Logging
// in from a second device therefore invalidates the first device's token.
func (s *AccountStore) IssueToken(accountID int64) (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	token := hex.EncodeToString(tokenBytes)
	expiry := time.Now().UTC().Add(TokenTTL)

	_, err := s.db.Exec(
		`UPDATE accounts SET access_token = ?, token_expiry = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		token, expiry, accountID,
	)
	if err != nil {
		return "", fmt.Errorf("store token: %w", err)
	}
	return token, nil
}

// GetByToken returns the account holding the given access token, or nil
// when no account holds it or its expiry has passed.
func (s *AccountStore) GetByToken(token string) (*model.Account, error) {
	if token == "" {
		return nil, nil
	}
	row := s.db.QueryRow(
		`SELECT `+accountCols+` FROM accounts WHERE access_token = ? AND token_expiry > datetime('now')`,
		token,
	)
	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get account by token: %w", err)
	}
	return a, nil
}

// ClearToken removes the access token and its expiry, invalidating the
// session immediately regardless of remaining lifetime.
func (s *AccountStore) ClearToken(accountID int64) error {
	_, err := s.db.Exec(
		`UPDATE accounts SET access_token = NULL, token_expiry = NULL, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		accountID,
	)
	if err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}

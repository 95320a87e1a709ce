package repository

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/resquick/portal/internal/model"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrDuplicate       = errors.New("national id already registered")
)

type AccountRepository interface {
	Create(account *model.Account) error
	ByNationalID(nationalID string) (*model.Account, error)
	ByID(id int64) (*model.Account, error)
}

type accountRepository struct {
	db *sqlx.DB
}

func NewAccountRepository(db *sqlx.DB) AccountRepository {
	return &accountRepository{db: db}
}

// Create inserts the account and sets its ID.
func (r *accountRepository) Create(account *model.Account) error {
	query := `INSERT INTO users (aadhaar, name, mobile, password_hash, created_at) VALUES ($1, $2, $3, $4, $5) RETURNING id`

	err := r.db.QueryRow(query, account.NationalID, account.Name, account.Mobile, account.PasswordHash, account.CreatedAt).Scan(&account.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}

	return nil
}

func (r *accountRepository) ByNationalID(nationalID string) (*model.Account, error) {
	account := &model.Account{}
	query := `SELECT id, aadhaar, name, mobile, password_hash, created_at FROM users WHERE aadhaar = $1`

	err := r.db.Get(account, query, nationalID)
	if err == sql.ErrNoRows {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}

	return account, nil
}

func (r *accountRepository) ByID(id int64) (*model.Account, error) {
	account := &model.Account{}
	query := `SELECT id, aadhaar, name, mobile, password_hash, created_at FROM users WHERE id = $1`

	err := r.db.Get(account, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}

	return account, nil
}

// isUniqueViolation works for both SQLite and PostgreSQL.
func isUniqueViolation(err error) bool {
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") || strings.Contains(errStr, "duplicate key value")
}

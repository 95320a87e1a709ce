package model

import (
	"time"
)

// Account is a citizen registered through signup. Identified externally by
// the national id (Aadhaar number); rows are never updated or deleted.
type Account struct {
	ID           int64     `db:"id"`
	NationalID   string    `db:"aadhaar"`
	Name         string    `db:"name"`
	Mobile       string    `db:"mobile"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

package model

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

const (
	StatusPending  = "Pending"
	StatusReviewed = "Reviewed"
)

type Application struct {
	ID            int64        `db:"id"`
	AccountID     int64        `db:"user_id"`
	Name          string       `db:"name"`
	GramPanchayat string       `db:"gram_panchayat"`
	Block         string       `db:"block"`
	PoliceStation string       `db:"police_station"`
	District      string       `db:"district"`
	State         string       `db:"state"`
	Latitude      string       `db:"latitude"`
	Longitude     string       `db:"longitude"`
	SubmittedAt   time.Time    `db:"submitted_at"`
	Evidence      EvidenceList `db:"file_path"`
	Status        string       `db:"status"`

	// Assessment columns, written together by one UPDATE
	DamagePercentage   *float64 `db:"damage_percentage"`
	CompensationAmount *float64 `db:"compensation_amount"`
	Reasoning          *string  `db:"reasoning"`
	Recommendations    *string  `db:"recommendations"`
}

// Assessment is the AI estimate attached to an application.
type Assessment struct {
	DamagePercentage   float64
	CompensationAmount float64
	Reasoning          string
	Recommendations    string
}

// Assessment returns nil unless every assessment column is set.
func (a *Application) Assessment() *Assessment {
	if a.DamagePercentage == nil || a.CompensationAmount == nil || a.Reasoning == nil || a.Recommendations == nil {
		return nil
	}
	return &Assessment{
		DamagePercentage:   *a.DamagePercentage,
		CompensationAmount: *a.CompensationAmount,
		Reasoning:          *a.Reasoning,
		Recommendations:    *a.Recommendations,
	}
}

func (a *Application) IsReviewed() bool {
	return a.Status == StatusReviewed
}

// OwnedBy reports whether accountID owns the application.
func (a *Application) OwnedBy(accountID int64) bool {
	return a.AccountID == accountID
}

// EvidenceList is the ordered list of stored evidence paths. It is persisted
// as a comma-joined string without escaping; NULL when empty.
type EvidenceList []string

func (e EvidenceList) Value() (driver.Value, error) {
	if len(e) == 0 {
		return nil, nil
	}
	return strings.Join(e, ","), nil
}

func (e *EvidenceList) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case nil:
		*e = nil
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("evidence list: unsupported type %T", src)
	}

	if s == "" {
		*e = nil
		return nil
	}

	list := EvidenceList{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			list = append(list, p)
		}
	}
	*e = list
	return nil
}

// First returns the first evidence path, if any.
func (e EvidenceList) First() (string, bool) {
	if len(e) == 0 {
		return "", false
	}
	return e[0], true
}

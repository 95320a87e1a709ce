package repository

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/resquick/portal/internal/model"
)

var (
	ErrApplicationNotFound = errors.New("application not found")
)

type ApplicationRepository interface {
	Create(app *model.Application) error
	ByID(id int64) (*model.Application, error)
	ByAccount(accountID int64) ([]*model.Application, error)
	All() ([]*model.Application, error)
	UpdateAssessment(id int64, assessment model.Assessment) error
	Delete(id, accountID int64) error
}

type applicationRepository struct {
	db *sqlx.DB
}

func NewApplicationRepository(db *sqlx.DB) ApplicationRepository {
	return &applicationRepository{db: db}
}

const applicationColumns = `id, user_id, name, gram_panchayat, block, police_station, district, state,
	latitude, longitude, submitted_at, file_path, status,
	damage_percentage, compensation_amount, reasoning, recommendations`

// Create inserts a new application in Pending state and sets its ID and Status.
func (r *applicationRepository) Create(app *model.Application) error {
	query := `INSERT INTO applications (user_id, name, gram_panchayat, block, police_station, district, state, latitude, longitude, submitted_at, file_path, status)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING id`

	app.Status = model.StatusPending
	return r.db.QueryRow(query,
		app.AccountID,
		app.Name,
		app.GramPanchayat,
		app.Block,
		app.PoliceStation,
		app.District,
		app.State,
		app.Latitude,
		app.Longitude,
		app.SubmittedAt,
		app.Evidence,
		app.Status,
	).Scan(&app.ID)
}

func (r *applicationRepository) ByID(id int64) (*model.Application, error) {
	app := &model.Application{}
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`

	err := r.db.Get(app, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrApplicationNotFound
	}
	if err != nil {
		return nil, err
	}

	return app, nil
}

// ByAccount lists an account's applications, newest first.
func (r *applicationRepository) ByAccount(accountID int64) ([]*model.Application, error) {
	apps := []*model.Application{}
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE user_id = $1 ORDER BY id DESC`

	err := r.db.Select(&apps, query, accountID)
	if err != nil {
		return nil, err
	}

	return apps, nil
}

// All lists every application, newest first.
func (r *applicationRepository) All() ([]*model.Application, error) {
	apps := []*model.Application{}
	query := `SELECT ` + applicationColumns + ` FROM applications ORDER BY id DESC`

	err := r.db.Select(&apps, query)
	if err != nil {
		return nil, err
	}

	return apps, nil
}

// UpdateAssessment writes all assessment columns and marks the application Reviewed.
func (r *applicationRepository) UpdateAssessment(id int64, a model.Assessment) error {
	query := `UPDATE applications
	          SET damage_percentage = $1, compensation_amount = $2, reasoning = $3, recommendations = $4, status = $5
	          WHERE id = $6`

	result, err := r.db.Exec(query, a.DamagePercentage, a.CompensationAmount, a.Reasoning, a.Recommendations, model.StatusReviewed, id)
	if err != nil {
		return err
	}

	return expectRow(result, ErrApplicationNotFound)
}

// Delete removes the application only when accountID owns it.
func (r *applicationRepository) Delete(id, accountID int64) error {
	query := `DELETE FROM applications WHERE id = $1 AND user_id = $2`

	result, err := r.db.Exec(query, id, accountID)
	if err != nil {
		return err
	}

	return expectRow(result, ErrApplicationNotFound)
}

func expectRow(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return notFound
	}

	return nil
}

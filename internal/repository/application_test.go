package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resquick/portal/internal/db/dbtest"
	"github.com/resquick/portal/internal/model"
)

type fixture struct {
	accounts AccountRepository
	apps     ApplicationRepository
}

func newFixture(t *testing.T) fixture {
	conn := dbtest.New(t)
	return fixture{
		accounts: NewAccountRepository(conn),
		apps:     NewApplicationRepository(conn),
	}
}

func (f fixture) account(t *testing.T, nationalID string) *model.Account {
	t.Helper()
	a := newAccount(nationalID)
	require.NoError(t, f.accounts.Create(a))
	return a
}

func newApplication(accountID int64, evidence ...string) *model.Application {
	return &model.Application{
		AccountID:     accountID,
		Name:          "Asha Devi",
		GramPanchayat: "Rampur",
		Block:         "Sadar",
		PoliceStation: "Kotwali",
		District:      "Patna",
		State:         "Bihar",
		Latitude:      "25.5941",
		Longitude:     "85.1376",
		SubmittedAt:   time.Date(2024, 7, 1, 10, 30, 0, 0, time.UTC),
		Evidence:      evidence,
	}
}

func TestApplicationCreateDefaultsToPending(t *testing.T) {
	f := newFixture(t)
	owner := f.account(t, "123412341234")

	app := newApplication(owner.ID, "uploads/a.jpg", "uploads/b.jpg")
	require.NoError(t, f.apps.Create(app))
	assert.NotZero(t, app.ID)

	stored, err := f.apps.ByID(app.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, stored.Status)
	assert.Equal(t, model.EvidenceList{"uploads/a.jpg", "uploads/b.jpg"}, stored.Evidence)
	assert.Equal(t, "Rampur", stored.GramPanchayat)
	assert.True(t, app.SubmittedAt.Equal(stored.SubmittedAt))
	assert.Nil(t, stored.Assessment())
}

func TestApplicationEvidenceStoredCommaJoined(t *testing.T) {
	conn := dbtest.New(t)
	accounts := NewAccountRepository(conn)
	apps := NewApplicationRepository(conn)

	owner := newAccount("123412341234")
	require.NoError(t, accounts.Create(owner))

	app := newApplication(owner.ID, "uploads/a.jpg", "uploads/b.jpg")
	require.NoError(t, apps.Create(app))

	var raw string
	require.NoError(t, conn.Get(&raw, `SELECT file_path FROM applications WHERE id = $1`, app.ID))
	assert.Equal(t, "uploads/a.jpg,uploads/b.jpg", raw)

	empty := newApplication(owner.ID)
	require.NoError(t, apps.Create(empty))

	var null *string
	require.NoError(t, conn.Get(&null, `SELECT file_path FROM applications WHERE id = $1`, empty.ID))
	assert.Nil(t, null)
}

func TestApplicationListsNewestFirst(t *testing.T) {
	f := newFixture(t)
	alice := f.account(t, "111111111111")
	bob := f.account(t, "222222222222")

	first := newApplication(alice.ID)
	second := newApplication(bob.ID)
	third := newApplication(alice.ID)
	for _, a := range []*model.Application{first, second, third} {
		require.NoError(t, f.apps.Create(a))
	}

	own, err := f.apps.ByAccount(alice.ID)
	require.NoError(t, err)
	require.Len(t, own, 2)
	assert.Equal(t, third.ID, own[0].ID)
	assert.Equal(t, first.ID, own[1].ID)

	all, err := f.apps.All()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int64{third.ID, second.ID, first.ID}, []int64{all[0].ID, all[1].ID, all[2].ID})

	none, err := f.apps.ByAccount(9999)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestApplicationUpdateAssessmentMarksReviewed(t *testing.T) {
	f := newFixture(t)
	owner := f.account(t, "123412341234")
	app := newApplication(owner.ID, "uploads/a.jpg")
	require.NoError(t, f.apps.Create(app))

	err := f.apps.UpdateAssessment(app.ID, model.Assessment{
		DamagePercentage:   42.5,
		CompensationAmount: 63750,
		Reasoning:          "Roof collapsed",
		Recommendations:    "Temporary shelter",
	})
	require.NoError(t, err)

	stored, err := f.apps.ByID(app.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusReviewed, stored.Status)

	a := stored.Assessment()
	require.NotNil(t, a)
	assert.InDelta(t, 42.5, a.DamagePercentage, 0.0001)
	assert.InDelta(t, 63750, a.CompensationAmount, 0.0001)
	assert.Equal(t, "Roof collapsed", a.Reasoning)
	assert.Equal(t, "Temporary shelter", a.Recommendations)

	err = f.apps.UpdateAssessment(9999, model.Assessment{})
	assert.ErrorIs(t, err, ErrApplicationNotFound)
}

func TestApplicationDeleteChecksOwner(t *testing.T) {
	f := newFixture(t)
	owner := f.account(t, "111111111111")
	other := f.account(t, "222222222222")

	app := newApplication(owner.ID, "uploads/a.jpg")
	require.NoError(t, f.apps.Create(app))

	err := f.apps.Delete(app.ID, other.ID)
	assert.ErrorIs(t, err, ErrApplicationNotFound)

	_, err = f.apps.ByID(app.ID)
	require.NoError(t, err, "record must survive a foreign delete attempt")

	require.NoError(t, f.apps.Delete(app.ID, owner.ID))

	_, err = f.apps.ByID(app.ID)
	assert.ErrorIs(t, err, ErrApplicationNotFound)

	err = f.apps.Delete(app.ID, owner.ID)
	assert.ErrorIs(t, err, ErrApplicationNotFound)
}

func TestApplicationCreateRequiresOwner(t *testing.T) {
	f := newFixture(t)

	err := f.apps.Create(newApplication(424242))
	assert.Error(t, err, "foreign key must reject unknown owner")
}

func TestApplicationDeletePropagatesDriverErrors(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	repo := NewApplicationRepository(sqlx.NewDb(mockDB, "pgx"))
	boom := errors.New("database is locked")
	mock.ExpectExec("DELETE FROM applications").WithArgs(int64(7), int64(3)).WillReturnError(boom)

	err = repo.Delete(7, 3)
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationUpdateAssessmentRowsAffectedError(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	repo := NewApplicationRepository(sqlx.NewDb(mockDB, "pgx"))
	boom := errors.New("rows affected unsupported")
	mock.ExpectExec("UPDATE applications").WillReturnResult(sqlmock.NewErrorResult(boom))

	err = repo.UpdateAssessment(7, model.Assessment{DamagePercentage: 10})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

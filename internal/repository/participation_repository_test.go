package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/club-activity-api/internal/models"
)

func TestInTxCommitsApproval(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewParticipationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM activities WHERE id = $1 FOR UPDATE")).
		WithArgs("a1").
		WillReturnRows(activityRow(sqlmock.NewRows(activityRowColumns), "a1", "Go study", 1, 2))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE activities SET participant_count = $2, is_available = $3")).
		WithArgs("a1", 2, false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE participations SET is_approved = TRUE")).
		WithArgs("p1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.InTx(context.Background(), func(tx Tx) error {
		activity, err := tx.LockActivity(context.Background(), "a1")
		if err != nil {
			return err
		}
		if err := activity.Admit(); err != nil {
			return err
		}
		if err := tx.SaveActivityCapacity(context.Background(), activity); err != nil {
			return err
		}
		return tx.ApproveParticipation(context.Background(), "p1", time.Now())
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInTxRollsBackOnError(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewParticipationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM activities WHERE id = $1 FOR UPDATE")).
		WithArgs("a1").
		WillReturnRows(activityRow(sqlmock.NewRows(activityRowColumns), "a1", "Go study", 2, 2))
	mock.ExpectRollback()

	err := repo.InTx(context.Background(), func(tx Tx) error {
		activity, err := tx.LockActivity(context.Background(), "a1")
		if err != nil {
			return err
		}
		return activity.Admit()
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteParticipationMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewParticipationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM participations WHERE id = $1")).
		WithArgs("gone").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.InTx(context.Background(), func(tx Tx) error {
		return tx.DeleteParticipation(context.Background(), "gone")
	})
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateParticipationUniqueViolation(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewParticipationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO participations").WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := repo.InTx(context.Background(), func(tx Tx) error {
		return tx.CreateParticipation(context.Background(), &models.Participation{UserID: "u1", ActivityID: "a1"})
	})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParticipationExists(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewParticipationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM participations WHERE user_id = $1 AND activity_id = $2")).
		WithArgs("u1", "a1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectCommit()

	var exists bool
	err := repo.InTx(context.Background(), func(tx Tx) error {
		var err error
		exists, err = tx.ParticipationExists(context.Background(), "u1", "a1")
		return err
	})
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPendingReportsRequester(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewParticipationRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"participation_id", "activity_id", "activity_title", "user_id", "username", "major", "reason", "created_at"}).
		AddRow("p1", "a1", "Go study", "u2", "bob", "Math", "curious", now)
	mock.ExpectQuery("JOIN users u ON u.id = p.user_id").
		WithArgs("a1").
		WillReturnRows(rows)

	pending, err := repo.ListPending(context.Background(), "a1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "bob", pending[0].Username)
	assert.Equal(t, "Math", pending[0].Major)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMalformedIDsAreMissingRows(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewParticipationRepository(db)
	badUUID := &pq.Error{Code: "22P02", Message: `invalid input syntax for type uuid: "abc"`}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM activities WHERE id = $1 FOR UPDATE")).
		WithArgs("abc").
		WillReturnError(badUUID)
	mock.ExpectRollback()
	err := repo.InTx(context.Background(), func(tx Tx) error {
		_, err := tx.LockActivity(context.Background(), "abc")
		return err
	})
	assert.ErrorIs(t, err, sql.ErrNoRows)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM participations WHERE id = $1")).
		WithArgs("abc").
		WillReturnError(badUUID)
	mock.ExpectRollback()
	err = repo.InTx(context.Background(), func(tx Tx) error {
		return tx.DeleteParticipation(context.Background(), "abc")
	})
	assert.ErrorIs(t, err, sql.ErrNoRows)

	mock.ExpectQuery(regexp.QuoteMeta("FROM participations WHERE id = $1")).
		WithArgs("abc").
		WillReturnError(badUUID)
	_, err = repo.FindByID(context.Background(), "abc")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOtherDriverErrorsAreNotMissingRows(t *testing.T) {
	assert.False(t, isNoRows(&pq.Error{Code: "23505"}))
	assert.False(t, isNoRows(errors.New("connection reset")))
	assert.True(t, isNoRows(sql.ErrNoRows))
}

func TestUpdateUserFlagsLocksUserRow(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewParticipationRepository(db)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1 FOR UPDATE")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow("u1", "alice", "hash", "Alice", "alice@example.com", "010", "CS", 2019001, "", "ENROLLED", true, false, false, now, now))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET is_member = $2, is_club_member = $3, is_admin = $4")).
		WithArgs("u1", true, true, false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.InTx(context.Background(), func(tx Tx) error {
		user, err := tx.LockUser(context.Background(), "u1")
		if err != nil {
			return err
		}
		user.IsClubMember = true
		return tx.UpdateUserFlags(context.Background(), user)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHourRecordsReadsOneSnapshot(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewParticipationRepository(db)

	march := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
	april := time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)
	participating := sqlmock.NewRows(append(activityRowColumns, "participation_approved")).
		AddRow("a1", "Go study", "leader", march, 1, "STUDY", "APPROVAL", 2, "{MONDAY}", 2, "{go}", "plan", 3, 1, true, march, march, true).
		AddRow("a2", "Rust study", "leader", april, 1, "STUDY", "APPROVAL", 2, "{MONDAY}", 2, "{rust}", "plan", 1, 0, true, april, april, false)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM participations p")).
		WithArgs("u1").
		WillReturnRows(participating)
	mock.ExpectQuery(regexp.QuoteMeta("FROM activities WHERE leader_id = $1")).
		WithArgs("u1").
		WillReturnRows(activityRow(sqlmock.NewRows(activityRowColumns), "a3", "Go seminar", 0, 5))
	mock.ExpectCommit()

	records, err := repo.HourRecords(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, records.Participating, 2)
	assert.Equal(t, "a1", records.Participating[0].ID)
	assert.True(t, records.Participating[0].Approved)
	assert.False(t, records.Participating[1].Approved)
	require.Len(t, records.Led, 1)
	assert.Equal(t, "a3", records.Led[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHourRecordsRollsBackOnError(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewParticipationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM participations p")).
		WithArgs("u1").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := repo.HourRecords(context.Background(), "u1")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/club-activity-api/internal/models"
)

var activityRowColumns = []string{"id", "title", "leader_id", "start_date", "semester", "activity_type", "participation_type",
	"capacity", "days", "hours_per_session", "tags", "plan", "sessions", "participant_count", "is_available", "created_at", "updated_at"}

func activityRow(rows *sqlmock.Rows, id, title string, count, capacity int) *sqlmock.Rows {
	now := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
	return rows.AddRow(id, title, "leader", now, 1, "STUDY", "APPROVAL", capacity, "{MONDAY}", 2, "{go}", "plan",
		3, count, count < capacity, now, now)
}

func TestActivityListBuildsFilteredQuery(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewActivityRepository(db)

	available := true
	filter := models.ActivityFilter{Semester: 1, ActivityType: models.ActivityTypeStudy, Available: &available, Tag: "go", Page: 2, PageSize: 5}

	mock.ExpectQuery(regexp.QuoteMeta("FROM activities WHERE (semester = $1 AND activity_type = $2 AND is_available = $3 AND $4 = ANY(tags)) ORDER BY start_date DESC, title ASC LIMIT 5 OFFSET 5")).
		WithArgs(1, models.ActivityTypeStudy, true, "go").
		WillReturnRows(activityRow(sqlmock.NewRows(activityRowColumns), "a1", "Go study", 1, 4))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM activities WHERE (semester = $1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(6))

	activities, total, err := repo.List(context.Background(), filter)
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.Equal(t, 6, total)
	assert.Equal(t, []string{"MONDAY"}, []string(activities[0].Days))
	assert.Equal(t, 6, activities[0].AttendanceHours())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityListDefaultsPaging(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewActivityRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY start_date DESC, title ASC LIMIT 20 OFFSET 0")).
		WillReturnRows(sqlmock.NewRows(activityRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM activities")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	activities, total, err := repo.List(context.Background(), models.ActivityFilter{})
	require.NoError(t, err)
	assert.Empty(t, activities)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityIncrementSessions(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewActivityRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE activities SET sessions = sessions + 1")).
		WithArgs("a1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"sessions"}).AddRow(4))

	sessions, err := repo.IncrementSessions(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, 4, sessions)
	assert.NoError(t, mock.ExpectationsWereMet())
}

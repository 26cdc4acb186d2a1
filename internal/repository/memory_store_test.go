package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/club-activity-api/internal/models"
)

func seedMemory(t *testing.T) (*MemoryStore, *models.User, *models.Activity) {
	t.Helper()
	ctx := context.Background()
	store := NewMemoryStore()

	user := &models.User{Username: "alice", Email: "alice@example.com", Major: "CS", IsMember: true, IsClubMember: true}
	require.NoError(t, store.Users().Create(ctx, user))

	activity := models.NewActivity("Go study", "leader", time.Date(2024, time.October, 1, 0, 0, 0, 0, time.UTC),
		models.ActivityTypeStudy, models.ParticipationTypeApproval, 1, 2, []string{"MONDAY"}, []string{"go"}, "plan")
	require.NoError(t, store.Activities().Create(ctx, activity))
	return store, user, activity
}

func TestMemoryTxRollsBackOnError(t *testing.T) {
	store, user, activity := seedMemory(t)
	ctx := context.Background()
	repo := store.Participations()

	boom := errors.New("boom")
	err := repo.InTx(ctx, func(tx Tx) error {
		locked, err := tx.LockActivity(ctx, activity.ID)
		require.NoError(t, err)
		require.NoError(t, locked.Admit())
		require.NoError(t, tx.SaveActivityCapacity(ctx, locked))
		require.NoError(t, tx.CreateParticipation(ctx, &models.Participation{UserID: user.ID, ActivityID: activity.ID}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	stored, err := store.Activities().FindByID(ctx, activity.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.ParticipantCount)
	assert.True(t, stored.Available)

	_, err = repo.FindByPair(ctx, user.ID, activity.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestMemoryDuplicatePair(t *testing.T) {
	store, user, activity := seedMemory(t)
	ctx := context.Background()
	repo := store.Participations()

	create := func(tx Tx) error {
		return tx.CreateParticipation(ctx, &models.Participation{UserID: user.ID, ActivityID: activity.ID})
	}
	require.NoError(t, repo.InTx(ctx, create))
	assert.ErrorIs(t, repo.InTx(ctx, create), ErrDuplicate)
}

func TestMemoryDeleteUserCascades(t *testing.T) {
	store, user, activity := seedMemory(t)
	ctx := context.Background()
	repo := store.Participations()

	p := &models.Participation{UserID: user.ID, ActivityID: activity.ID, Reason: "learn"}
	require.NoError(t, repo.InTx(ctx, func(tx Tx) error { return tx.CreateParticipation(ctx, p) }))

	pending, err := repo.ListPending(ctx, activity.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "alice", pending[0].Username)
	assert.Equal(t, "Go study", pending[0].ActivityTitle)

	require.NoError(t, repo.InTx(ctx, func(tx Tx) error { return tx.DeleteUser(ctx, user.ID) }))

	_, err = repo.FindByID(ctx, p.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	pending, err = repo.ListPending(ctx, activity.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestMemoryActivityList(t *testing.T) {
	store, _, _ := seedMemory(t)
	ctx := context.Background()

	spring := models.NewActivity("Rust seminar", "leader", time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		models.ActivityTypeSeminar, models.ParticipationTypeOpen, 5, 1, nil, []string{"rust"}, "plan")
	require.NoError(t, store.Activities().Create(ctx, spring))
	assert.ErrorIs(t, store.Activities().Create(ctx, &models.Activity{Title: "Rust seminar"}), ErrDuplicate)

	all, total, err := store.Activities().List(ctx, models.ActivityFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, "Go study", all[0].Title)

	byTag, total, err := store.Activities().List(ctx, models.ActivityFilter{Tag: "rust"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, spring.ID, byTag[0].ID)

	bySemester, _, err := store.Activities().List(ctx, models.ActivityFilter{Semester: 2, Search: "GO"})
	require.NoError(t, err)
	require.Len(t, bySemester, 1)
	assert.Equal(t, "Go study", bySemester[0].Title)

	empty, total, err := store.Activities().List(ctx, models.ActivityFilter{Page: 3, PageSize: 5})
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.Equal(t, 2, total)
}

func TestMemoryIncrementSessions(t *testing.T) {
	store, _, activity := seedMemory(t)
	ctx := context.Background()

	sessions, err := store.Activities().IncrementSessions(ctx, activity.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, sessions)

	_, err = store.Activities().IncrementSessions(ctx, "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestMemoryDeleteLeaderCascadesToLedActivities(t *testing.T) {
	store, member, _ := seedMemory(t)
	ctx := context.Background()
	repo := store.Participations()

	leader := &models.User{Username: "lead", Email: "lead@example.com", Major: "CS", IsMember: true, IsClubMember: true}
	require.NoError(t, store.Users().Create(ctx, leader))
	led := models.NewActivity("Rust seminar", leader.ID, time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC),
		models.ActivityTypeSeminar, models.ParticipationTypeApproval, 3, 2, nil, nil, "plan")
	require.NoError(t, store.Activities().Create(ctx, led))

	p := &models.Participation{UserID: member.ID, ActivityID: led.ID}
	require.NoError(t, repo.InTx(ctx, func(tx Tx) error { return tx.CreateParticipation(ctx, p) }))

	require.NoError(t, repo.InTx(ctx, func(tx Tx) error { return tx.DeleteUser(ctx, leader.ID) }))

	_, err := store.Activities().FindByID(ctx, led.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	_, err = repo.FindByID(ctx, p.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	pending, err := repo.ListPending(ctx, led.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = store.Users().FindByID(ctx, member.ID)
	assert.NoError(t, err)
}

func TestMemoryHourRecords(t *testing.T) {
	store, member, activity := seedMemory(t)
	ctx := context.Background()
	repo := store.Participations()

	led := models.NewActivity("Go seminar", member.ID, time.Date(2024, time.May, 6, 0, 0, 0, 0, time.UTC),
		models.ActivityTypeSeminar, models.ParticipationTypeApproval, 3, 2, nil, nil, "plan")
	require.NoError(t, store.Activities().Create(ctx, led))
	p := &models.Participation{UserID: member.ID, ActivityID: activity.ID, Approved: true}
	require.NoError(t, repo.InTx(ctx, func(tx Tx) error { return tx.CreateParticipation(ctx, p) }))

	records, err := repo.HourRecords(ctx, member.ID)
	require.NoError(t, err)
	require.Len(t, records.Participating, 1)
	assert.Equal(t, activity.ID, records.Participating[0].ID)
	assert.True(t, records.Participating[0].Approved)
	require.Len(t, records.Led, 1)
	assert.Equal(t, led.ID, records.Led[0].ID)

	empty, err := repo.HourRecords(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty.Participating)
	assert.Empty(t, empty.Led)
}

func TestMemoryUpdateUserFlagsInTx(t *testing.T) {
	store, member, _ := seedMemory(t)
	ctx := context.Background()

	err := store.Participations().InTx(ctx, func(tx Tx) error {
		user, err := tx.LockUser(ctx, member.ID)
		if err != nil {
			return err
		}
		user.IsAdmin = true
		return tx.UpdateUserFlags(ctx, user)
	})
	require.NoError(t, err)
	stored, err := store.Users().FindByID(ctx, member.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsAdmin)

	err = store.Participations().InTx(ctx, func(tx Tx) error {
		return tx.UpdateUserFlags(ctx, &models.User{ID: "missing"})
	})
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

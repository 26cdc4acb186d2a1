package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/club-activity-api/internal/models"
	"github.com/noah-isme/club-activity-api/internal/repository"
)

type fixture struct {
	store          *repository.MemoryStore
	participations *ParticipationService
	hours          *HourService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repository.NewMemoryStore()
	return &fixture{
		store:          store,
		participations: NewParticipationService(store.Participations(), store.Activities(), store.Users(), nil, NewMetricsService(), nil, nil),
		hours:          NewHourService(store.Users(), store.Participations(), nil),
	}
}

func (f *fixture) user(t *testing.T, username string, clubMember bool) *models.User {
	t.Helper()
	u := &models.User{Username: username, Email: username + "@example.com", Major: "CS", IsMember: true, IsClubMember: clubMember}
	require.NoError(t, f.store.Users().Create(context.Background(), u))
	return u
}

func (f *fixture) activity(t *testing.T, title string, leader *models.User, kind models.ActivityType, mode models.ParticipationType, capacity, hours int) *models.Activity {
	t.Helper()
	a := models.NewActivity(title, leader.ID, time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC),
		kind, mode, capacity, hours, []string{"MONDAY"}, []string{"go"}, "weekly reading")
	require.NoError(t, f.store.Activities().Create(context.Background(), a))
	return a
}

func (f *fixture) reload(t *testing.T, a *models.Activity) *models.Activity {
	t.Helper()
	fresh, err := f.store.Activities().FindByID(context.Background(), a.ID)
	require.NoError(t, err)
	return fresh
}

func (f *fixture) sessions(t *testing.T, a *models.Activity, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := f.store.Activities().IncrementSessions(context.Background(), a.ID)
		require.NoError(t, err)
	}
}

func claimsFor(u *models.User) *models.JWTClaims {
	return &models.JWTClaims{UserID: u.ID, Username: u.Username, Admin: u.IsAdmin}
}

package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/club-activity-api/internal/dto"
	"github.com/noah-isme/club-activity-api/internal/models"
)

// Tx is the set of reads and writes available inside one participation
// transaction. Implementations serialise every Tx touching the same activity:
// LockActivity blocks until no other transaction holds that activity.
// Participations are only mutated while their activity is locked, so callers
// lock the activity first and re-read the participation afterwards. Locks are
// taken in the order user, activity, participation.
//
// Lookups return sql.ErrNoRows when the record does not exist.
type Tx interface {
	LockActivity(ctx context.Context, activityID string) (*models.Activity, error)
	SaveActivityCapacity(ctx context.Context, activity *models.Activity) error
	DeleteActivity(ctx context.Context, activityID string) error

	// FindUser holds a shared lock on the user until the transaction ends,
	// which keeps the user from being deleted underneath a join request.
	FindUser(ctx context.Context, userID string) (*models.User, error)
	LockUser(ctx context.Context, userID string) (*models.User, error)
	UpdateUserFlags(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, userID string) error

	FindParticipation(ctx context.Context, id string) (*models.Participation, error)
	ParticipationExists(ctx context.Context, userID, activityID string) (bool, error)
	CreateParticipation(ctx context.Context, participation *models.Participation) error
	ApproveParticipation(ctx context.Context, id string, approvedAt time.Time) error
	DeleteParticipation(ctx context.Context, id string) error
	ListUserParticipations(ctx context.Context, userID string) ([]models.Participation, error)
}

// TxFunc is run by InTx. Returning an error rolls the transaction back.
type TxFunc func(tx Tx) error

// UserStore persists members.
type UserStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	UpdateFlags(ctx context.Context, user *models.User) error
	List(ctx context.Context) ([]models.User, error)
}

// ActivityStore persists activities.
type ActivityStore interface {
	FindByID(ctx context.Context, id string) (*models.Activity, error)
	FindByTitle(ctx context.Context, title string) (*models.Activity, error)
	Create(ctx context.Context, activity *models.Activity) error
	IncrementSessions(ctx context.Context, id string) (int, error)
	List(ctx context.Context, filter models.ActivityFilter) ([]models.Activity, int, error)
}

// ParticipationStore persists participations and runs transactions.
type ParticipationStore interface {
	InTx(ctx context.Context, fn TxFunc) error
	FindByID(ctx context.Context, id string) (*models.Participation, error)
	FindByPair(ctx context.Context, userID, activityID string) (*models.Participation, error)
	ListPending(ctx context.Context, activityID string) ([]dto.PendingRequest, error)
	HourRecords(ctx context.Context, userID string) (*models.HourRecords, error)
}

// Repositories bundles one storage backend.
type Repositories struct {
	Users          UserStore
	Activities     ActivityStore
	Participations ParticipationStore
}

// NewPostgresRepositories builds the repositories backed by db.
func NewPostgresRepositories(db *sqlx.DB) Repositories {
	return Repositories{
		Users:          NewUserRepository(db),
		Activities:     NewActivityRepository(db),
		Participations: NewParticipationRepository(db),
	}
}

// Repositories exposes the store through the backend-neutral bundle.
func (s *MemoryStore) Repositories() Repositories {
	return Repositories{
		Users:          s.Users(),
		Activities:     s.Activities(),
		Participations: s.Participations(),
	}
}

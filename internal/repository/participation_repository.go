package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/club-activity-api/internal/dto"
	"github.com/noah-isme/club-activity-api/internal/models"
)

const activityColumns = `id, title, leader_id, start_date, semester, activity_type, participation_type, capacity,
days, hours_per_session, tags, plan, sessions, participant_count, is_available, created_at, updated_at`

const participationColumns = `id, user_id, activity_id, is_approved, reason, created_at, approved_at`

// ParticipationRepository persists participations and runs the transactions
// that keep activity capacity consistent.
type ParticipationRepository struct {
	db *sqlx.DB
}

// NewParticipationRepository constructs the repository.
func NewParticipationRepository(db *sqlx.DB) *ParticipationRepository {
	return &ParticipationRepository{db: db}
}

// InTx runs fn in a database transaction, committing when fn returns nil.
func (r *ParticipationRepository) InTx(ctx context.Context, fn TxFunc) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin participation transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(&sqlTx{tx: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit participation transaction: %w", err)
	}
	return nil
}

// FindByID returns a participation by its ID.
func (r *ParticipationRepository) FindByID(ctx context.Context, id string) (*models.Participation, error) {
	query := `SELECT ` + participationColumns + ` FROM participations WHERE id = $1`
	var p models.Participation
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		if isNoRows(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find participation: %w", err)
	}
	return &p, nil
}

// FindByPair returns the participation linking a user and an activity.
func (r *ParticipationRepository) FindByPair(ctx context.Context, userID, activityID string) (*models.Participation, error) {
	query := `SELECT ` + participationColumns + ` FROM participations WHERE user_id = $1 AND activity_id = $2`
	var p models.Participation
	if err := r.db.GetContext(ctx, &p, query, userID, activityID); err != nil {
		if isNoRows(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find participation by pair: %w", err)
	}
	return &p, nil
}

// ListPending returns the review queue of an activity, oldest request first.
func (r *ParticipationRepository) ListPending(ctx context.Context, activityID string) ([]dto.PendingRequest, error) {
	const query = `SELECT p.id AS participation_id, p.activity_id, a.title AS activity_title, p.user_id,
        u.username, u.major, p.reason, p.created_at
        FROM participations p
        JOIN users u ON u.id = p.user_id
        JOIN activities a ON a.id = p.activity_id
        WHERE p.activity_id = $1 AND p.is_approved = FALSE
        ORDER BY p.created_at ASC, p.id ASC`
	requests := []dto.PendingRequest{}
	if err := r.db.SelectContext(ctx, &requests, query, activityID); err != nil {
		return nil, fmt.Errorf("list pending participations: %w", err)
	}
	return requests, nil
}

// HourRecords returns every activity the user has a participation on, flagged
// with whether it is approved, and every activity the user leads. Both lists
// come from one read-only snapshot so a concurrent approval or deletion cannot
// be half seen.
func (r *ParticipationRepository) HourRecords(ctx context.Context, userID string) (*models.HourRecords, error) {
	const participatingQuery = `SELECT a.id, a.title, a.leader_id, a.start_date, a.semester, a.activity_type, a.participation_type,
        a.capacity, a.days, a.hours_per_session, a.tags, a.plan, a.sessions, a.participant_count, a.is_available,
        a.created_at, a.updated_at, p.is_approved AS participation_approved
        FROM participations p
        JOIN activities a ON a.id = p.activity_id
        WHERE p.user_id = $1
        ORDER BY a.start_date ASC`
	ledQuery := `SELECT ` + activityColumns + ` FROM activities WHERE leader_id = $1 ORDER BY start_date ASC`

	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin hour snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	records := &models.HourRecords{Participating: []models.ParticipatingActivity{}, Led: []models.Activity{}}
	if err := tx.SelectContext(ctx, &records.Participating, participatingQuery, userID); err != nil {
		return nil, fmt.Errorf("list user activities: %w", err)
	}
	if err := tx.SelectContext(ctx, &records.Led, ledQuery, userID); err != nil {
		return nil, fmt.Errorf("list activities by leader: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit hour snapshot: %w", err)
	}
	return records, nil
}

type sqlTx struct {
	tx *sqlx.Tx
}

func (t *sqlTx) LockActivity(ctx context.Context, activityID string) (*models.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities WHERE id = $1 FOR UPDATE`
	var a models.Activity
	if err := t.tx.GetContext(ctx, &a, query, activityID); err != nil {
		if isNoRows(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("lock activity: %w", err)
	}
	return &a, nil
}

func (t *sqlTx) SaveActivityCapacity(ctx context.Context, activity *models.Activity) error {
	const query = `UPDATE activities SET participant_count = $2, is_available = $3, updated_at = $4 WHERE id = $1`
	activity.UpdatedAt = time.Now().UTC()
	if _, err := t.tx.ExecContext(ctx, query, activity.ID, activity.ParticipantCount, activity.Available, activity.UpdatedAt); err != nil {
		return fmt.Errorf("save activity capacity: %w", err)
	}
	return nil
}

func (t *sqlTx) DeleteActivity(ctx context.Context, activityID string) error {
	return execAffecting(ctx, t.tx, "delete activity", `DELETE FROM activities WHERE id = $1`, activityID)
}

func (t *sqlTx) FindUser(ctx context.Context, userID string) (*models.User, error) {
	return t.selectUser(ctx, "find user", `SELECT `+userColumns+` FROM users WHERE id = $1 FOR SHARE`, userID)
}

func (t *sqlTx) LockUser(ctx context.Context, userID string) (*models.User, error) {
	return t.selectUser(ctx, "lock user", `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, userID)
}

func (t *sqlTx) selectUser(ctx context.Context, op, query, userID string) (*models.User, error) {
	var u models.User
	if err := t.tx.GetContext(ctx, &u, query, userID); err != nil {
		if isNoRows(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &u, nil
}

func (t *sqlTx) UpdateUserFlags(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()
	return execAffecting(ctx, t.tx, "update user flags",
		`UPDATE users SET is_member = $2, is_club_member = $3, is_admin = $4, updated_at = $5 WHERE id = $1`,
		user.ID, user.IsMember, user.IsClubMember, user.IsAdmin, user.UpdatedAt)
}

func (t *sqlTx) DeleteUser(ctx context.Context, userID string) error {
	return execAffecting(ctx, t.tx, "delete user", `DELETE FROM users WHERE id = $1`, userID)
}

func (t *sqlTx) FindParticipation(ctx context.Context, id string) (*models.Participation, error) {
	query := `SELECT ` + participationColumns + ` FROM participations WHERE id = $1`
	var p models.Participation
	if err := t.tx.GetContext(ctx, &p, query, id); err != nil {
		if isNoRows(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find participation: %w", err)
	}
	return &p, nil
}

func (t *sqlTx) ParticipationExists(ctx context.Context, userID, activityID string) (bool, error) {
	const query = `SELECT 1 FROM participations WHERE user_id = $1 AND activity_id = $2 LIMIT 1`
	var exists int
	if err := t.tx.GetContext(ctx, &exists, query, userID, activityID); err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, fmt.Errorf("check participation: %w", err)
	}
	return true, nil
}

func (t *sqlTx) CreateParticipation(ctx context.Context, p *models.Participation) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO participations (` + participationColumns + `)
VALUES (:id, :user_id, :activity_id, :is_approved, :reason, :created_at, :approved_at)`
	if _, err := t.tx.NamedExecContext(ctx, query, p); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create participation: %w", err)
	}
	return nil
}

func (t *sqlTx) ApproveParticipation(ctx context.Context, id string, approvedAt time.Time) error {
	return execAffecting(ctx, t.tx, "approve participation",
		`UPDATE participations SET is_approved = TRUE, approved_at = $2 WHERE id = $1`, id, approvedAt)
}

func (t *sqlTx) DeleteParticipation(ctx context.Context, id string) error {
	return execAffecting(ctx, t.tx, "delete participation", `DELETE FROM participations WHERE id = $1`, id)
}

func (t *sqlTx) ListUserParticipations(ctx context.Context, userID string) ([]models.Participation, error) {
	query := `SELECT ` + participationColumns + ` FROM participations WHERE user_id = $1 ORDER BY activity_id`
	participations := []models.Participation{}
	if err := t.tx.SelectContext(ctx, &participations, query, userID); err != nil {
		return nil, fmt.Errorf("list user participations: %w", err)
	}
	return participations, nil
}

// execAffecting runs a single-row statement and maps "no row touched" to sql.ErrNoRows.
func execAffecting(ctx context.Context, tx *sqlx.Tx, op, query string, args ...interface{}) error {
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		if isNoRows(err) {
			return sql.ErrNoRows
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

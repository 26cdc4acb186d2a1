package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/club-activity-api/internal/models"
)

// ActivityRepository handles persistence of activities.
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository constructs the repository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// FindByID returns an activity by ID.
func (r *ActivityRepository) FindByID(ctx context.Context, id string) (*models.Activity, error) {
	return r.findOne(ctx, "find activity by id", `SELECT `+activityColumns+` FROM activities WHERE id = $1`, id)
}

// FindByTitle returns an activity by its unique title.
func (r *ActivityRepository) FindByTitle(ctx context.Context, title string) (*models.Activity, error) {
	return r.findOne(ctx, "find activity by title", `SELECT `+activityColumns+` FROM activities WHERE title = $1`, title)
}

func (r *ActivityRepository) findOne(ctx context.Context, op, query, arg string) (*models.Activity, error) {
	var activity models.Activity
	if err := r.db.GetContext(ctx, &activity, query, arg); err != nil {
		if isNoRows(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &activity, nil
}

// Create persists a new activity.
func (r *ActivityRepository) Create(ctx context.Context, activity *models.Activity) error {
	if activity.ID == "" {
		activity.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	activity.CreatedAt = now
	activity.UpdatedAt = now
	query := `INSERT INTO activities (` + activityColumns + `)
VALUES (:id, :title, :leader_id, :start_date, :semester, :activity_type, :participation_type, :capacity,
:days, :hours_per_session, :tags, :plan, :sessions, :participant_count, :is_available, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, activity); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create activity: %w", err)
	}
	return nil
}

// IncrementSessions records one completed session and returns the new count.
func (r *ActivityRepository) IncrementSessions(ctx context.Context, id string) (int, error) {
	const query = `UPDATE activities SET sessions = sessions + 1, updated_at = $2 WHERE id = $1 RETURNING sessions`
	var sessions int
	if err := r.db.GetContext(ctx, &sessions, query, id, time.Now().UTC()); err != nil {
		if isNoRows(err) {
			return 0, sql.ErrNoRows
		}
		return 0, fmt.Errorf("increment sessions: %w", err)
	}
	return sessions, nil
}

// List returns activities matching filter with the total count.
func (r *ActivityRepository) List(ctx context.Context, filter models.ActivityFilter) ([]models.Activity, int, error) {
	where := sq.And{}
	if filter.Semester != 0 {
		where = append(where, sq.Eq{"semester": filter.Semester})
	}
	if filter.ActivityType != "" {
		where = append(where, sq.Eq{"activity_type": filter.ActivityType})
	}
	if filter.Available != nil {
		where = append(where, sq.Eq{"is_available": *filter.Available})
	}
	if filter.LeaderID != "" {
		where = append(where, sq.Eq{"leader_id": filter.LeaderID})
	}
	if filter.Tag != "" {
		where = append(where, sq.Expr("? = ANY(tags)", filter.Tag))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		where = append(where, sq.ILike{"title": "%" + search + "%"})
	}

	page, size := normalizePage(filter.Page, filter.PageSize)

	listQuery, args, err := sq.Select(strings.Fields(strings.ReplaceAll(activityColumns, ",", " "))...).
		From("activities").
		Where(where).
		OrderBy("start_date DESC", "title ASC").
		Limit(uint64(size)).
		Offset(uint64((page - 1) * size)).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build activity list query: %w", err)
	}

	activities := []models.Activity{}
	if err := r.db.SelectContext(ctx, &activities, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list activities: %w", err)
	}

	countQuery, countArgs, err := sq.Select("COUNT(*)").From("activities").Where(where).PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build activity count query: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count activities: %w", err)
	}
	return activities, total, nil
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return page, size
}

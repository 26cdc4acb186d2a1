package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/club-activity-api/internal/dto"
	"github.com/noah-isme/club-activity-api/internal/models"
	"github.com/noah-isme/club-activity-api/internal/repository"
	appErrors "github.com/noah-isme/club-activity-api/pkg/errors"
)

const (
	activityCachePrefix  = "activities:"
	activityCachePattern = activityCachePrefix + "*"
)

type activityRepository interface {
	FindByID(ctx context.Context, id string) (*models.Activity, error)
	Create(ctx context.Context, activity *models.Activity) error
	List(ctx context.Context, filter models.ActivityFilter) ([]models.Activity, int, error)
	IncrementSessions(ctx context.Context, id string) (int, error)
}

type activityTxRunner interface {
	InTx(ctx context.Context, fn repository.TxFunc) error
}

// ActivityService manages seminars and studies.
type ActivityService struct {
	repo      activityRepository
	tx        activityTxRunner
	cache     *CacheService
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewActivityService constructs an ActivityService.
func NewActivityService(repo activityRepository, tx activityTxRunner, cache *CacheService, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &ActivityService{repo: repo, tx: tx, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

type activityPage struct {
	Activities []models.Activity `json:"activities"`
	Total      int               `json:"total"`
}

// Create registers a new activity led by leaderID.
func (s *ActivityService) Create(ctx context.Context, leaderID string, req dto.CreateActivityRequest) (*models.Activity, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid activity payload")
	}
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start date")
	}

	activity := models.NewActivity(
		strings.TrimSpace(req.Title),
		leaderID,
		start,
		models.ActivityType(req.ActivityType),
		models.ParticipationType(req.ParticipationType),
		req.Capacity,
		req.HoursPerSession,
		uniqueStrings(req.Days),
		trimmedTags(req.Tags),
		strings.TrimSpace(req.Plan),
	)

	if err := s.repo.Create(ctx, activity); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "activity title already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create activity")
	}

	s.logger.Info("activity created", zap.String("activity_id", activity.ID), zap.String("leader_id", leaderID))
	_ = s.cache.Invalidate(ctx, activityCachePattern)
	return activity, nil
}

// Get returns an activity by ID.
func (s *ActivityService) Get(ctx context.Context, id string) (*models.Activity, error) {
	activity, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity")
	}
	return activity, nil
}

// List returns a page of activities, served from cache when enabled.
func (s *ActivityService) List(ctx context.Context, filter models.ActivityFilter) ([]models.Activity, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	key := activityListKey(filter)
	var cached activityPage
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached.Activities, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: cached.Total}, nil
	}

	activities, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list activities")
	}
	_ = s.cache.Set(ctx, key, activityPage{Activities: activities, Total: total}, s.cacheTTL)

	return activities, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// RecordSession counts one completed session of an activity.
func (s *ActivityService) RecordSession(ctx context.Context, actor *models.JWTClaims, id string) (*models.Activity, error) {
	activity, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, activity) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the activity leader may record sessions")
	}

	sessions, err := s.repo.IncrementSessions(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record session")
	}
	activity.Sessions = sessions

	_ = s.cache.Invalidate(ctx, activityCachePattern)
	return activity, nil
}

// Delete removes an activity together with its participations.
func (s *ActivityService) Delete(ctx context.Context, actor *models.JWTClaims, id string) error {
	err := s.tx.InTx(ctx, func(tx repository.Tx) error {
		activity, err := tx.LockActivity(ctx, id)
		if err != nil {
			return notFoundOr(err, "activity not found")
		}
		if !canManage(actor, activity) {
			return appErrors.Clone(appErrors.ErrForbidden, "only the activity leader may delete it")
		}
		return notFoundOr(tx.DeleteActivity(ctx, id), "activity not found")
	})
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return appErr
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete activity")
	}

	s.logger.Info("activity deleted", zap.String("activity_id", id))
	_ = s.cache.Invalidate(ctx, activityCachePattern)
	return nil
}

func activityListKey(f models.ActivityFilter) string {
	available := "any"
	if f.Available != nil {
		available = fmt.Sprintf("%t", *f.Available)
	}
	return fmt.Sprintf("%slist:%d:%s:%s:%s:%s:%s:%d:%d", activityCachePrefix,
		f.Semester, f.ActivityType, available, f.Tag, f.LeaderID, strings.ToLower(strings.TrimSpace(f.Search)), f.Page, f.PageSize)
}

// canManage reports whether actor may administer activity. A nil actor is
// an internal caller and always may.
func canManage(actor *models.JWTClaims, activity *models.Activity) bool {
	return actor == nil || actor.Admin || actor.UserID == activity.LeaderID
}

// notFoundOr maps sql.ErrNoRows to a NotFound error with message and passes
// any other error through.
func notFoundOr(err error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, message)
	}
	return err
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func trimmedTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

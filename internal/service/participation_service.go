package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/club-activity-api/internal/dto"
	"github.com/noah-isme/club-activity-api/internal/models"
	"github.com/noah-isme/club-activity-api/internal/repository"
	appErrors "github.com/noah-isme/club-activity-api/pkg/errors"
)

type participationRepository interface {
	InTx(ctx context.Context, fn repository.TxFunc) error
	FindByPair(ctx context.Context, userID, activityID string) (*models.Participation, error)
	ListPending(ctx context.Context, activityID string) ([]dto.PendingRequest, error)
}

type participationActivityLookup interface {
	FindByID(ctx context.Context, id string) (*models.Activity, error)
	FindByTitle(ctx context.Context, title string) (*models.Activity, error)
}

type participationUserLookup interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

// Participation actions reported to metrics.
const (
	actionJoin     = "join"
	actionApprove  = "approve"
	actionReject   = "reject"
	actionWithdraw = "withdraw"
	actionBulk     = "bulk_approve"
)

// ParticipationService runs the join, approval and withdrawal workflow.
// Every mutation runs in one transaction that locks the activity before its
// participant count is read.
type ParticipationService struct {
	repo       participationRepository
	activities participationActivityLookup
	users      participationUserLookup
	cache      *CacheService
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
}

// NewParticipationService constructs a ParticipationService.
func NewParticipationService(repo participationRepository, activities participationActivityLookup, users participationUserLookup, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ParticipationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &ParticipationService{
		repo:       repo,
		activities: activities,
		users:      users,
		cache:      cache,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// RequestJoin records a join request of userID for activityID. Requests on
// OPEN activities are admitted immediately; all others stay pending.
func (s *ParticipationService) RequestJoin(ctx context.Context, userID, activityID string, req dto.JoinRequest) (*models.Participation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid join payload")
	}

	var created *models.Participation
	err := s.repo.InTx(ctx, func(tx repository.Tx) error {
		user, err := tx.FindUser(ctx, userID)
		if err != nil {
			return notFoundOr(err, "user not found")
		}
		if !user.IsClubMember {
			return appErrors.Clone(appErrors.ErrNotEligible, "")
		}

		activity, err := tx.LockActivity(ctx, activityID)
		if err != nil {
			return notFoundOr(err, "activity not found")
		}

		exists, err := tx.ParticipationExists(ctx, userID, activityID)
		if err != nil {
			return err
		}
		if exists {
			return appErrors.Clone(appErrors.ErrDuplicateRequest, "")
		}

		participation := &models.Participation{UserID: userID, ActivityID: activityID, Reason: req.Reason, CreatedAt: s.now()}
		if activity.ParticipationType == models.ParticipationTypeOpen {
			if err := activity.Admit(); err != nil {
				return err
			}
			if err := tx.SaveActivityCapacity(ctx, activity); err != nil {
				return err
			}
			approvedAt := participation.CreatedAt
			participation.Approved = true
			participation.ApprovedAt = &approvedAt
		}

		if err := tx.CreateParticipation(ctx, participation); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return appErrors.Clone(appErrors.ErrDuplicateRequest, "")
			}
			return err
		}
		created = participation
		return nil
	})
	s.record(actionJoin, err)
	if err != nil {
		return nil, s.translate(err, "failed to request participation")
	}

	s.logger.Info("participation requested",
		zap.String("participation_id", created.ID),
		zap.String("user_id", userID),
		zap.String("activity_id", activityID),
		zap.Bool("approved", created.Approved))
	if created.Approved {
		s.invalidate(ctx)
	}
	return created, nil
}

// Approve confirms a pending participation, consuming one seat.
func (s *ParticipationService) Approve(ctx context.Context, actor *models.JWTClaims, participationID string) (*models.Participation, error) {
	approved, err := s.approve(ctx, actor, participationID)
	s.record(actionApprove, err)
	if err != nil {
		return nil, s.translate(err, "failed to approve participation")
	}
	s.invalidate(ctx)
	return approved, nil
}

func (s *ParticipationService) approve(ctx context.Context, actor *models.JWTClaims, participationID string) (*models.Participation, error) {
	var approved *models.Participation
	err := s.repo.InTx(ctx, func(tx repository.Tx) error {
		activity, participation, err := lockParticipation(ctx, tx, participationID)
		if err != nil {
			return err
		}
		if !canManage(actor, activity) {
			return appErrors.Clone(appErrors.ErrForbidden, "only the activity leader may approve participants")
		}
		if !participation.Pending() {
			return appErrors.Clone(appErrors.ErrAlreadyApproved, "")
		}
		if err := activity.Admit(); err != nil {
			return err
		}
		if err := tx.SaveActivityCapacity(ctx, activity); err != nil {
			return err
		}
		approvedAt := s.now()
		if err := tx.ApproveParticipation(ctx, participation.ID, approvedAt); err != nil {
			return notFoundOr(err, "participation not found")
		}
		participation.Approved = true
		participation.ApprovedAt = &approvedAt
		approved = participation
		return nil
	})
	return approved, err
}

// Reject removes a participation on behalf of the activity leader.
func (s *ParticipationService) Reject(ctx context.Context, actor *models.JWTClaims, participationID string) error {
	err := s.remove(ctx, participationID, func(activity *models.Activity, _ *models.Participation) bool {
		return canManage(actor, activity)
	})
	s.record(actionReject, err)
	if err != nil {
		return s.translate(err, "failed to reject participation")
	}
	return nil
}

// Withdraw removes a participation on behalf of the participant.
func (s *ParticipationService) Withdraw(ctx context.Context, actor *models.JWTClaims, participationID string) error {
	err := s.remove(ctx, participationID, func(activity *models.Activity, p *models.Participation) bool {
		return canManage(actor, activity) || (actor != nil && actor.UserID == p.UserID)
	})
	s.record(actionWithdraw, err)
	if err != nil {
		return s.translate(err, "failed to withdraw participation")
	}
	return nil
}

// remove deletes the participation from either state, releasing the seat
// when it was approved. A participation that is already gone is NotFound.
func (s *ParticipationService) remove(ctx context.Context, participationID string, allowed func(*models.Activity, *models.Participation) bool) error {
	released := false
	err := s.repo.InTx(ctx, func(tx repository.Tx) error {
		activity, participation, err := lockParticipation(ctx, tx, participationID)
		if err != nil {
			return err
		}
		if !allowed(activity, participation) {
			return appErrors.Clone(appErrors.ErrForbidden, "not allowed to remove this participation")
		}
		if participation.Approved {
			activity.Release()
			if err := tx.SaveActivityCapacity(ctx, activity); err != nil {
				return err
			}
			released = true
		}
		if err := tx.DeleteParticipation(ctx, participation.ID); err != nil {
			return notFoundOr(err, "participation not found")
		}
		return nil
	})
	if err == nil && released {
		s.invalidate(ctx)
	}
	return err
}

// ListPendingRequests returns the pending requests of an activity at the
// time of the call, oldest first.
func (s *ParticipationService) ListPendingRequests(ctx context.Context, actor *models.JWTClaims, activityID string) ([]dto.PendingRequest, error) {
	activity, err := s.activities.FindByID(ctx, activityID)
	if err != nil {
		return nil, s.translate(notFoundOr(err, "activity not found"), "failed to load activity")
	}
	if !canManage(actor, activity) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the activity leader may review requests")
	}
	pending, err := s.repo.ListPending(ctx, activityID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending requests")
	}
	return pending, nil
}

// ApproveAll approves the pending requests named by descriptors in input
// order. Each entry runs in its own transaction and a failing entry never
// stops the batch; every entry gets an outcome in the summary.
func (s *ParticipationService) ApproveAll(ctx context.Context, actor *models.JWTClaims, req dto.BulkApprovalRequest) (*dto.BulkApprovalSummary, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk approval payload")
	}

	summary := &dto.BulkApprovalSummary{
		Results: make([]dto.BulkApprovalResult, 0, len(req.Requests)),
		Counts:  map[dto.BulkApprovalOutcome]int{},
	}
	for i, descriptor := range req.Requests {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result := s.approveDescriptor(ctx, actor, descriptor)
		result.Index = i
		summary.Results = append(summary.Results, result)
		summary.Counts[result.Outcome]++
		if result.Outcome == dto.BulkApproved {
			summary.Approved++
		}
		if s.metrics != nil {
			s.metrics.RecordParticipation(actionBulk, string(result.Outcome))
		}
	}

	s.logger.Info("bulk approval processed",
		zap.Int("entries", len(req.Requests)),
		zap.Int("approved", summary.Approved))
	if summary.Approved > 0 {
		s.invalidate(ctx)
	}
	return summary, nil
}

func (s *ParticipationService) approveDescriptor(ctx context.Context, actor *models.JWTClaims, d dto.BulkApprovalDescriptor) dto.BulkApprovalResult {
	result := dto.BulkApprovalResult{Username: d.Username, ActivityTitle: d.ActivityTitle}
	fail := func(outcome dto.BulkApprovalOutcome, err error) dto.BulkApprovalResult {
		result.Outcome = outcome
		if err != nil {
			result.Message = appErrors.FromError(err).Message
		}
		return result
	}

	user, err := s.users.FindByUsername(ctx, d.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fail(dto.BulkNotFound, appErrors.Clone(appErrors.ErrNotFound, "user not found"))
		}
		return s.bulkFailed(result, err)
	}
	if !user.IsClubMember {
		return fail(dto.BulkSkippedIneligible, appErrors.Clone(appErrors.ErrNotEligible, ""))
	}

	activity, err := s.activities.FindByTitle(ctx, d.ActivityTitle)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fail(dto.BulkNotFound, appErrors.Clone(appErrors.ErrNotFound, "activity not found"))
		}
		return s.bulkFailed(result, err)
	}

	participation, err := s.repo.FindByPair(ctx, user.ID, activity.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fail(dto.BulkNotFound, appErrors.Clone(appErrors.ErrNotFound, "no participation request"))
		}
		return s.bulkFailed(result, err)
	}
	result.ParticipationID = participation.ID

	if _, err := s.approve(ctx, actor, participation.ID); err != nil {
		switch {
		case errors.Is(err, appErrors.ErrAlreadyApproved):
			return fail(dto.BulkAlreadyApproved, err)
		case errors.Is(err, appErrors.ErrCapacityExceeded):
			return fail(dto.BulkCapacityExceeded, err)
		case errors.Is(err, appErrors.ErrForbidden):
			return fail(dto.BulkForbidden, err)
		case errors.Is(err, appErrors.ErrNotFound), errors.Is(err, sql.ErrNoRows):
			return fail(dto.BulkNotFound, appErrors.Clone(appErrors.ErrNotFound, "participation not found"))
		default:
			return s.bulkFailed(result, err)
		}
	}
	result.Outcome = dto.BulkApproved
	return result
}

func (s *ParticipationService) bulkFailed(result dto.BulkApprovalResult, err error) dto.BulkApprovalResult {
	s.logger.Warn("bulk approval entry failed",
		zap.String("username", result.Username),
		zap.String("activity_title", result.ActivityTitle),
		zap.Error(err))
	result.Outcome = dto.BulkFailed
	result.Message = appErrors.ErrInternal.Message
	return result
}

// lockParticipation locks the activity of a participation and re-reads the
// participation under that lock.
func lockParticipation(ctx context.Context, tx repository.Tx, participationID string) (*models.Activity, *models.Participation, error) {
	participation, err := tx.FindParticipation(ctx, participationID)
	if err != nil {
		return nil, nil, notFoundOr(err, "participation not found")
	}
	activity, err := tx.LockActivity(ctx, participation.ActivityID)
	if err != nil {
		return nil, nil, notFoundOr(err, "activity not found")
	}
	participation, err = tx.FindParticipation(ctx, participationID)
	if err != nil {
		return nil, nil, notFoundOr(err, "participation not found")
	}
	return activity, participation, nil
}

func (s *ParticipationService) record(action string, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = appErrors.FromError(err).Code
	}
	s.metrics.RecordParticipation(action, outcome)
}

func (s *ParticipationService) invalidate(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, activityCachePattern)
}

func (s *ParticipationService) translate(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	s.logger.Error(message, zap.Error(err))
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/club-activity-api/internal/dto"
	"github.com/noah-isme/club-activity-api/internal/models"
	appErrors "github.com/noah-isme/club-activity-api/pkg/errors"
)

// Qualification thresholds in hours.
const (
	QualifyingAttendingHours = 6
	QualifyingLeadingHours   = 4
)

// TotalAttendingHours sums the attendance hours of activities reached through
// approved participations. Pending requests contribute nothing.
func TotalAttendingHours(participating []models.ParticipatingActivity) int {
	total := 0
	for i := range participating {
		if participating[i].Approved {
			total += participating[i].AttendanceHours()
		}
	}
	return total
}

// LeadingHours sums the attendance hours of led activities of the given type;
// an empty type counts every led activity.
func LeadingHours(led []models.Activity, activityType models.ActivityType) int {
	total := 0
	for i := range led {
		if activityType == "" || led[i].ActivityType == activityType {
			total += led[i].AttendanceHours()
		}
	}
	return total
}

// IsQualified reports whether a member satisfies the qualification rule.
func IsQualified(attending, leading int, isAdmin bool) bool {
	return attending >= QualifyingAttendingHours || isAdmin || leading >= QualifyingLeadingHours
}

type hourUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type hourRecordReader interface {
	HourRecords(ctx context.Context, userID string) (*models.HourRecords, error)
}

// HourService answers hour and qualification queries. Results are always
// computed from the current records.
type HourService struct {
	users   hourUserRepository
	records hourRecordReader
	logger  *zap.Logger
}

// NewHourService constructs a HourService.
func NewHourService(users hourUserRepository, records hourRecordReader, logger *zap.Logger) *HourService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HourService{users: users, records: records, logger: logger}
}

// Summary returns the hour breakdown of a user.
func (s *HourService) Summary(ctx context.Context, userID string) (*dto.HourSummary, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return s.summarize(ctx, user)
}

func (s *HourService) summarize(ctx context.Context, user *models.User) (*dto.HourSummary, error) {
	records, err := s.records.HourRecords(ctx, user.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load hour records")
	}

	attending := TotalAttendingHours(records.Participating)
	seminar := LeadingHours(records.Led, models.ActivityTypeSeminar)
	study := LeadingHours(records.Led, models.ActivityTypeStudy)
	leading := seminar + study

	return &dto.HourSummary{
		UserID:              user.ID,
		Username:            user.Username,
		AttendingHours:      attending,
		LeadingSeminarHours: seminar,
		LeadingStudyHours:   study,
		LeadingHours:        leading,
		IsAdmin:             user.IsAdmin,
		IsClubMember:        user.IsClubMember,
		Qualified:           IsQualified(attending, leading, user.IsAdmin),
	}, nil
}

// IsQualified reports whether the user currently qualifies.
func (s *HourService) IsQualified(ctx context.Context, userID string) (bool, error) {
	summary, err := s.Summary(ctx, userID)
	if err != nil {
		return false, err
	}
	return summary.Qualified, nil
}

// TotalAttendingHours returns the attending hours of a user.
func (s *HourService) TotalAttendingHours(ctx context.Context, userID string) (int, error) {
	summary, err := s.Summary(ctx, userID)
	if err != nil {
		return 0, err
	}
	return summary.AttendingHours, nil
}

// LeadingHours returns the leading hours of a user, seminars and studies combined.
func (s *HourService) LeadingHours(ctx context.Context, userID string) (int, error) {
	summary, err := s.Summary(ctx, userID)
	if err != nil {
		return 0, err
	}
	return summary.LeadingHours, nil
}

package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/club-activity-api/internal/models"
	appErrors "github.com/noah-isme/club-activity-api/pkg/errors"
	"github.com/noah-isme/club-activity-api/pkg/export"
)

type rosterUserRepository interface {
	List(ctx context.Context) ([]models.User, error)
}

// ExportResult is a rendered document ready to be sent to the client.
type ExportResult struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders the member roster with hour totals.
type ExportService struct {
	users  rosterUserRepository
	hours  *HourService
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(users rosterUserRepository, hours *HourService, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{users: users, hours: hours, logger: logger, now: time.Now}
}

var rosterHeaders = []string{
	"Username", "Name", "Major", "Student ID", "Club member", "Admin",
	"Attending hours", "Leading seminar hours", "Leading study hours", "Qualified",
}

// ExportRoster renders every member in the requested format (csv or pdf).
func (s *ExportService) ExportRoster(ctx context.Context, format string) (*ExportResult, error) {
	exporter, err := export.ForFormat(format)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unsupported roster format")
	}

	users, err := s.users.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}

	generatedAt := s.now().UTC()
	dataset := export.Dataset{
		Title:   fmt.Sprintf("Member roster (%s)", generatedAt.Format("2006-01-02")),
		Headers: rosterHeaders,
		Rows:    make([][]string, 0, len(users)),
	}
	for i := range users {
		summary, err := s.hours.summarize(ctx, &users[i])
		if err != nil {
			return nil, err
		}
		dataset.Rows = append(dataset.Rows, []string{
			users[i].Username,
			users[i].Name,
			users[i].Major,
			strconv.Itoa(users[i].StudentID),
			yesNo(users[i].IsClubMember),
			yesNo(users[i].IsAdmin),
			strconv.Itoa(summary.AttendingHours),
			strconv.Itoa(summary.LeadingSeminarHours),
			strconv.Itoa(summary.LeadingStudyHours),
			yesNo(summary.Qualified),
		})
	}

	payload, err := exporter.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
	}

	s.logger.Info("roster exported", zap.String("format", exporter.Extension()), zap.Int("members", len(users)))
	return &ExportResult{
		Filename:    fmt.Sprintf("roster_%s.%s", generatedAt.Format("20060102_150405"), exporter.Extension()),
		ContentType: exporter.ContentType(),
		Payload:     payload,
	}, nil
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

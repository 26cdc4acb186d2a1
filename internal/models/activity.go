package models

import (
	"fmt"
	"time"

	"github.com/lib/pq"

	appErrors "github.com/noah-isme/club-activity-api/pkg/errors"
)

// ActivityType distinguishes seminars from studies.
type ActivityType string

const (
	ActivityTypeSeminar ActivityType = "SEMINAR"
	ActivityTypeStudy   ActivityType = "STUDY"
)

// ParticipationType decides how join requests are admitted.
type ParticipationType string

const (
	// ParticipationTypeOpen admits a join request immediately.
	ParticipationTypeOpen ParticipationType = "OPEN"
	// ParticipationTypeApproval leaves join requests pending until the leader approves.
	ParticipationTypeApproval ParticipationType = "APPROVAL"
)

// Weekdays accepted in Activity.Days.
var Weekdays = []string{"MONDAY", "TUESDAY", "WEDNESDAY", "THURSDAY", "FRIDAY", "SATURDAY", "SUNDAY"}

// Activity is a recurring seminar or study led by one user.
//
// Semester is stamped once at construction. ParticipantCount is the number of
// confirmed participants and Available mirrors ParticipantCount < Capacity;
// both are only changed through Admit and Release.
type Activity struct {
	ID                string            `db:"id" json:"id"`
	Title             string            `db:"title" json:"title"`
	LeaderID          string            `db:"leader_id" json:"leader_id"`
	StartDate         time.Time         `db:"start_date" json:"start_date"`
	Semester          int               `db:"semester" json:"semester"`
	ActivityType      ActivityType      `db:"activity_type" json:"activity_type"`
	ParticipationType ParticipationType `db:"participation_type" json:"participation_type"`
	Capacity          int               `db:"capacity" json:"capacity"`
	Days              pq.StringArray    `db:"days" json:"days"`
	HoursPerSession   int               `db:"hours_per_session" json:"hours_per_session"`
	Tags              pq.StringArray    `db:"tags" json:"tags"`
	Plan              string            `db:"plan" json:"plan"`
	Sessions          int               `db:"sessions" json:"sessions"`
	ParticipantCount  int               `db:"participant_count" json:"participant_count"`
	Available         bool              `db:"is_available" json:"is_available"`
	CreatedAt         time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time         `db:"updated_at" json:"updated_at"`
}

// SemesterFor returns 2 for activities starting in September or later, 1 otherwise.
func SemesterFor(start time.Time) int {
	if start.Month() >= time.September {
		return 2
	}
	return 1
}

// NewActivity builds an activity with no sessions and no participants.
func NewActivity(title, leaderID string, start time.Time, activityType ActivityType, participationType ParticipationType, capacity, hoursPerSession int, days, tags []string, plan string) *Activity {
	return &Activity{
		Title:             title,
		LeaderID:          leaderID,
		StartDate:         start,
		Semester:          SemesterFor(start),
		ActivityType:      activityType,
		ParticipationType: participationType,
		Capacity:          capacity,
		Days:              pq.StringArray(days),
		HoursPerSession:   hoursPerSession,
		Tags:              pq.StringArray(tags),
		Plan:              plan,
		Available:         capacity > 0,
	}
}

// AttendanceHours is the number of hours a participant has accrued so far.
func (a *Activity) AttendanceHours() int {
	return a.Sessions * a.HoursPerSession
}

// RecordSession counts one more completed session.
func (a *Activity) RecordSession() {
	a.Sessions++
}

// Admit reserves a seat for a confirmed participant. It refuses when the
// activity is already full and leaves the activity untouched in that case.
func (a *Activity) Admit() error {
	if a.ParticipantCount >= a.Capacity {
		return appErrors.Clone(appErrors.ErrCapacityExceeded, fmt.Sprintf("activity %q is full (%d/%d)", a.Title, a.ParticipantCount, a.Capacity))
	}
	a.ParticipantCount++
	a.Available = a.ParticipantCount < a.Capacity
	return nil
}

// Release frees the seat of a confirmed participant.
func (a *Activity) Release() {
	if a.ParticipantCount > 0 {
		a.ParticipantCount--
	}
	a.Available = a.ParticipantCount < a.Capacity
}

// ActivityFilter narrows activity listings.
type ActivityFilter struct {
	Semester     int
	ActivityType ActivityType
	Available    *bool
	Tag          string
	LeaderID     string
	Search       string
	Page         int
	PageSize     int
}

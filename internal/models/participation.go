package models

import "time"

// Participation links one user to one activity. It is pending until approved;
// rejection and withdrawal delete the row instead of recording a state.
type Participation struct {
	ID         string     `db:"id" json:"id"`
	UserID     string     `db:"user_id" json:"user_id"`
	ActivityID string     `db:"activity_id" json:"activity_id"`
	Approved   bool       `db:"is_approved" json:"is_approved"`
	Reason     string     `db:"reason" json:"reason,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	ApprovedAt *time.Time `db:"approved_at" json:"approved_at,omitempty"`
}

// Pending reports whether the participation still awaits approval.
func (p *Participation) Pending() bool {
	return !p.Approved
}

// ParticipatingActivity is an activity seen from one participant, together
// with the state of that participant's request.
type ParticipatingActivity struct {
	Activity
	Approved bool `db:"participation_approved" json:"participation_approved"`
}

// HourRecords holds what a user's hours are computed from, read at one point in time.
type HourRecords struct {
	Participating []ParticipatingActivity
	Led           []Activity
}

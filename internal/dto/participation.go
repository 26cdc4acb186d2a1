package dto

import "time"

// JoinRequest is submitted by a member asking to join an activity. IsApproved
// is accepted for compatibility with older clients and has no effect.
type JoinRequest struct {
	Reason     string `json:"reason" validate:"max=1000"`
	IsApproved *bool  `json:"is_approved,omitempty"`
}

// PendingRequest is one entry of an activity's review queue.
type PendingRequest struct {
	ParticipationID string    `db:"participation_id" json:"participation_id"`
	ActivityID      string    `db:"activity_id" json:"activity_id"`
	ActivityTitle   string    `db:"activity_title" json:"activity_title"`
	UserID          string    `db:"user_id" json:"user_id"`
	Username        string    `db:"username" json:"username"`
	Major           string    `db:"major" json:"major"`
	Reason          string    `db:"reason" json:"reason"`
	RequestedAt     time.Time `db:"created_at" json:"requested_at"`
}

// BulkApprovalDescriptor names a pending request by username and activity title.
type BulkApprovalDescriptor struct {
	Username      string `json:"username" validate:"required"`
	ActivityTitle string `json:"activity_title" validate:"required"`
	Reason        string `json:"reason"`
}

// BulkApprovalRequest is the payload of a bulk approval call.
type BulkApprovalRequest struct {
	Requests []BulkApprovalDescriptor `json:"requests" validate:"required,min=1,max=200,dive"`
}

// BulkApprovalOutcome classifies the result of one bulk approval entry.
type BulkApprovalOutcome string

const (
	BulkApproved          BulkApprovalOutcome = "approved"
	BulkSkippedIneligible BulkApprovalOutcome = "skipped_ineligible"
	BulkNotFound          BulkApprovalOutcome = "not_found"
	BulkCapacityExceeded  BulkApprovalOutcome = "capacity_exceeded"
	BulkAlreadyApproved   BulkApprovalOutcome = "already_approved"
	BulkForbidden         BulkApprovalOutcome = "forbidden"
	BulkFailed            BulkApprovalOutcome = "failed"
)

// BulkApprovalResult reports the outcome of one descriptor, in input order.
type BulkApprovalResult struct {
	Index           int                 `json:"index"`
	Username        string              `json:"username"`
	ActivityTitle   string              `json:"activity_title"`
	Outcome         BulkApprovalOutcome `json:"outcome"`
	ParticipationID string              `json:"participation_id,omitempty"`
	Message         string              `json:"message,omitempty"`
}

// BulkApprovalSummary counts outcomes of a bulk call.
type BulkApprovalSummary struct {
	Results  []BulkApprovalResult        `json:"results"`
	Counts   map[BulkApprovalOutcome]int `json:"counts"`
	Approved int                         `json:"approved"`
}

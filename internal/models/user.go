package models

import "time"

// SchoolStatus describes a member's enrollment state at the university.
type SchoolStatus string

const (
	SchoolStatusDefault  SchoolStatus = "DEFAULT"
	SchoolStatusEnrolled SchoolStatus = "ENROLLED"
	SchoolStatusLeave    SchoolStatus = "LEAVE"
	SchoolStatusGraduate SchoolStatus = "GRADUATE"
)

// User is a registered member. The three membership flags are independent:
// a registered member is not necessarily a club member, and admin status is
// orthogonal to both.
type User struct {
	ID           string       `db:"id" json:"id"`
	Username     string       `db:"username" json:"username"`
	PasswordHash string       `db:"password_hash" json:"-"`
	Name         string       `db:"name" json:"name"`
	Email        string       `db:"email" json:"email"`
	MobileNumber string       `db:"mobile_number" json:"mobile_number"`
	Major        string       `db:"major" json:"major"`
	StudentID    int          `db:"student_id" json:"student_id"`
	Description  string       `db:"description" json:"description"`
	SchoolStatus SchoolStatus `db:"school_status" json:"school_status"`
	IsMember     bool         `db:"is_member" json:"is_member"`
	IsClubMember bool         `db:"is_club_member" json:"is_club_member"`
	IsAdmin      bool         `db:"is_admin" json:"is_admin"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
}

// MembershipFlags is a partial update of a user's flags; nil leaves a flag untouched.
type MembershipFlags struct {
	IsMember     *bool `json:"is_member"`
	IsClubMember *bool `json:"is_club_member"`
	IsAdmin      *bool `json:"is_admin"`
}

// Apply copies the set flags onto u.
func (f MembershipFlags) Apply(u *User) {
	if f.IsMember != nil {
		u.IsMember = *f.IsMember
	}
	if f.IsClubMember != nil {
		u.IsClubMember = *f.IsClubMember
	}
	if f.IsAdmin != nil {
		u.IsAdmin = *f.IsAdmin
	}
}

// Empty reports whether no flag is set.
func (f MembershipFlags) Empty() bool {
	return f.IsMember == nil && f.IsClubMember == nil && f.IsAdmin == nil
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

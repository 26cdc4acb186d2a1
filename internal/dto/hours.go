package dto

// HourSummary reports a user's accumulated hours and qualification.
type HourSummary struct {
	UserID              string `json:"user_id"`
	Username            string `json:"username"`
	AttendingHours      int    `json:"attending_hours"`
	LeadingSeminarHours int    `json:"leading_seminar_hours"`
	LeadingStudyHours   int    `json:"leading_study_hours"`
	LeadingHours        int    `json:"leading_hours"`
	IsAdmin             bool   `json:"is_admin"`
	IsClubMember        bool   `json:"is_club_member"`
	Qualified           bool   `json:"qualified"`
}

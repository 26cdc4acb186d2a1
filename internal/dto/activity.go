package dto

// CreateActivityRequest describes a new seminar or study.
type CreateActivityRequest struct {
	Title             string   `json:"title" validate:"required,notblank,max=200"`
	StartDate         string   `json:"start_date" validate:"required,datetime=2006-01-02"`
	ActivityType      string   `json:"activity_type" validate:"required,oneof=SEMINAR STUDY"`
	ParticipationType string   `json:"participation_type" validate:"required,oneof=OPEN APPROVAL"`
	Capacity          int      `json:"capacity" validate:"required,min=1,max=100"`
	Days              []string `json:"days" validate:"dive,oneof=MONDAY TUESDAY WEDNESDAY THURSDAY FRIDAY SATURDAY SUNDAY"`
	HoursPerSession   int      `json:"hours_per_session" validate:"required,min=1,max=10"`
	Tags              []string `json:"tags" validate:"max=20,dive,max=40"`
	Plan              string   `json:"plan" validate:"required,notblank"`
}

package dto

type AttendanceRequest struct {
	Attended *bool `json:"attended" validate:"required"`
}

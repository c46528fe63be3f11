package dto

import (
	"github.com/spec-kit/sales-crm/internal/domain"
	"github.com/spec-kit/sales-crm/internal/service"
)

// MarkAttendanceRequest payload for POST /attendance/mark.
type MarkAttendanceRequest struct {
	UserID string `json:"userId"`
	Date   string `json:"date"`
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

// ToInput converts the request to a service input.
func (r MarkAttendanceRequest) ToInput() service.MarkInput {
	return service.MarkInput{
		UserID: r.UserID,
		Date:   r.Date,
		Status: domain.AttendanceStatus(r.Status),
		Notes:  r.Notes,
	}
}

// VisibilityRequest payload for POST /sync/visibility.
type VisibilityRequest struct {
	Visible bool `json:"visible"`
}

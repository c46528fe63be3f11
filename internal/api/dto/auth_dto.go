package dto

import (
	"time"

	"github.com/spec-kit/sales-crm/internal/domain"
)

// LoginRequest payload for login.
type LoginRequest struct {
	EmployeeID string `json:"employeeId"`
	Password   string `json:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UserResponse is a user without credentials.
type UserResponse struct {
	ID          string      `json:"id"`
	EmployeeID  string      `json:"employeeId"`
	Username    string      `json:"username"`
	Name        string      `json:"name"`
	Email       string      `json:"email,omitempty"`
	Phone       string      `json:"phone,omitempty"`
	Role        domain.Role `json:"role"`
	Manager     *string     `json:"manager"`
	Department  string      `json:"department,omitempty"`
	Designation string      `json:"designation,omitempty"`
	Territory   string      `json:"territory,omitempty"`
	JoinDate    string      `json:"joinDate,omitempty"`
	LastLogin   string      `json:"lastLogin,omitempty"`
	IsActive    bool        `json:"isActive"`
	Target      float64     `json:"target"`
}

// FromUser strips the password and resolves the active flag.
func FromUser(u domain.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		EmployeeID:  u.EmployeeID,
		Username:    u.Username,
		Name:        u.Name,
		Email:       u.Email,
		Phone:       u.Phone,
		Role:        u.Role,
		Manager:     u.Clone().Manager,
		Department:  u.Department,
		Designation: u.Designation,
		Territory:   u.Territory,
		JoinDate:    u.JoinDate,
		LastLogin:   u.LastLogin,
		IsActive:    u.Active(),
		Target:      u.Target,
	}
}

// FromUsers maps FromUser over users.
func FromUsers(users []domain.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, FromUser(u))
	}
	return out
}

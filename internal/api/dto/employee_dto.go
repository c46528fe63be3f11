package dto

import (
	"github.com/spec-kit/sales-crm/internal/domain"
	"github.com/spec-kit/sales-crm/internal/privacy"
	"github.com/spec-kit/sales-crm/internal/service"
)

// CreateEmployeeRequest payload for POST /employees.
type CreateEmployeeRequest struct {
	EmployeeID  string  `json:"employeeId"`
	Username    string  `json:"username"`
	Password    string  `json:"password"`
	Name        string  `json:"name"`
	Email       string  `json:"email"`
	Phone       string  `json:"phone"`
	Role        string  `json:"role"`
	Manager     string  `json:"manager"`
	Department  string  `json:"department"`
	Designation string  `json:"designation"`
	Territory   string  `json:"territory"`
	JoinDate    string  `json:"joinDate"`
	Target      float64 `json:"target"`
}

// ToInput converts the request to a service input.
func (r CreateEmployeeRequest) ToInput() service.EmployeeInput {
	role, _ := domain.ParseRole(r.Role)
	return service.EmployeeInput{
		EmployeeID:  r.EmployeeID,
		Username:    r.Username,
		Password:    r.Password,
		Name:        r.Name,
		Email:       r.Email,
		Phone:       r.Phone,
		Role:        role,
		Manager:     r.Manager,
		Department:  r.Department,
		Designation: r.Designation,
		Territory:   r.Territory,
		JoinDate:    r.JoinDate,
		Target:      r.Target,
	}
}

// UpdateProfileRequest payload for PATCH /employees/:id. Omitted fields are unchanged.
type UpdateProfileRequest struct {
	Name        *string `json:"name"`
	Email       *string `json:"email"`
	Phone       *string `json:"phone"`
	Password    *string `json:"password"`
	Department  *string `json:"department"`
	Designation *string `json:"designation"`
	Territory   *string `json:"territory"`
	Role        *string `json:"role"`
	Manager     *string `json:"manager"`
	IsActive    *bool   `json:"isActive"`
}

// ToPatch converts the request to a service patch.
func (r UpdateProfileRequest) ToPatch() service.ProfilePatch {
	patch := service.ProfilePatch{
		Name:        r.Name,
		Email:       r.Email,
		Phone:       r.Phone,
		Password:    r.Password,
		Department:  r.Department,
		Designation: r.Designation,
		Territory:   r.Territory,
		Manager:     r.Manager,
		IsActive:    r.IsActive,
	}
	if r.Role != nil {
		role, _ := domain.ParseRole(*r.Role)
		patch.Role = &role
	}
	return patch
}

// TargetRequest payload for PUT /employees/:id/target.
type TargetRequest struct {
	Month  string  `json:"month"`
	Amount float64 `json:"amount"`
}

// TeamResponse is a manager and their direct reports.
type TeamResponse struct {
	Manager UserResponse   `json:"manager"`
	Members []UserResponse `json:"members"`
}

// FromTeam strips credentials from a team.
func FromTeam(team *privacy.Team) TeamResponse {
	return TeamResponse{Manager: FromUser(team.Manager), Members: FromUsers(team.Members)}
}

// FromStructure strips credentials from a reporting structure.
func FromStructure(structure map[string][]domain.User) map[string][]UserResponse {
	out := make(map[string][]UserResponse, len(structure))
	for id, members := range structure {
		out[id] = FromUsers(members)
	}
	return out
}

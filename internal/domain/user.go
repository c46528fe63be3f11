package domain

import "strings"

// Role enumerates the authority levels of a user: admin > manager > employee.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
)

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleEmployee:
		return true
	}
	return false
}

// ParseRole normalizes raw input into a Role. Unknown values are returned as-is
// with ok=false so callers can surface them.
func ParseRole(raw string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	return role, role.Valid()
}

// User is an employee account. ID is assigned from EmployeeID at creation.
type User struct {
	ID          string  `json:"id"`
	EmployeeID  string  `json:"employeeId"`
	Username    string  `json:"username"`
	Password    string  `json:"password,omitempty"`
	Name        string  `json:"name"`
	Email       string  `json:"email,omitempty"`
	Phone       string  `json:"phone,omitempty"`
	Role        Role    `json:"role"`
	Manager     *string `json:"manager"`
	Department  string  `json:"department,omitempty"`
	Designation string  `json:"designation,omitempty"`
	Territory   string  `json:"territory,omitempty"`
	JoinDate    string  `json:"joinDate,omitempty"`
	LastLogin   string  `json:"lastLogin,omitempty"`
	IsActive    *bool   `json:"isActive,omitempty"`
	Target      float64 `json:"target,omitempty"`
}

// Active interprets the tri-state IsActive flag: absent means active.
func (u User) Active() bool {
	return u.IsActive == nil || *u.IsActive
}

// ManagerID returns the reporting edge, or "" when the user has no manager.
func (u User) ManagerID() string {
	if u.Manager == nil {
		return ""
	}
	return *u.Manager
}

// ReportsTo reports whether the user's manager is managerID.
func (u User) ReportsTo(managerID string) bool {
	return managerID != "" && u.ManagerID() == managerID
}

// Clone returns a copy that shares no pointers with u.
func (u User) Clone() User {
	out := u
	if u.Manager != nil {
		m := *u.Manager
		out.Manager = &m
	}
	if u.IsActive != nil {
		a := *u.IsActive
		out.IsActive = &a
	}
	return out
}

// FindUser returns the user with the given id.
func FindUser(users []User, id string) (*User, bool) {
	for i := range users {
		if users[i].ID == id {
			return &users[i], true
		}
	}
	return nil, false
}

// StringPtr returns a pointer to s, or nil for the empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool {
	return &b
}

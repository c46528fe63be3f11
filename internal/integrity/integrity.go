// Package integrity audits the user, sales and attendance collections for
// structural problems and repairs a fixed set of known issues.
package integrity

import (
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/sales-crm/internal/domain"
)

// maxShiftHours is the longest plausible time between check-in and check-out.
const maxShiftHours = 24

// Report is the outcome of a validation pass.
type Report struct {
	IsValid  bool     `json:"isValid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func newReport(errs, warnings []string) Report {
	if errs == nil {
		errs = []string{}
	}
	if warnings == nil {
		warnings = []string{}
	}
	return Report{IsValid: len(errs) == 0, Errors: errs, Warnings: warnings}
}

// Collections groups the three primary record sets.
type Collections struct {
	Users      []domain.User             `json:"users"`
	Sales      []domain.SalesRecord      `json:"sales"`
	Attendance []domain.AttendanceRecord `json:"attendance"`
}

// FullReport combines the per-collection reports.
type FullReport struct {
	Report
	Users      Report `json:"users"`
	Sales      Report `json:"sales"`
	Attendance Report `json:"attendance"`
}

func userLabel(u domain.User, idx int) string {
	if u.ID != "" {
		return u.ID
	}
	return fmt.Sprintf("#%d", idx+1)
}

func recordLabel(id string, idx int) string {
	if id != "" {
		return id
	}
	return fmt.Sprintf("#%d", idx+1)
}

func userIDSet(users []domain.User) map[string]struct{} {
	ids := make(map[string]struct{}, len(users))
	for _, u := range users {
		ids[u.ID] = struct{}{}
	}
	return ids
}

// duplicates returns each case-insensitive value that appears more than once,
// in order of its second appearance. Empty values are ignored.
func duplicates(values []string) []string {
	seen := make(map[string]int, len(values))
	var out []string
	for _, v := range values {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		seen[key]++
		if seen[key] == 2 {
			out = append(out, v)
		}
	}
	return out
}

// ValidateUsers checks key uniqueness, required fields and roles.
func ValidateUsers(users []domain.User) Report {
	var errs, warnings []string

	employeeIDs := make([]string, 0, len(users))
	usernames := make([]string, 0, len(users))
	for _, u := range users {
		employeeIDs = append(employeeIDs, u.EmployeeID)
		usernames = append(usernames, u.Username)
	}
	for _, dup := range duplicates(employeeIDs) {
		errs = append(errs, fmt.Sprintf("Duplicate employee ID: %s", dup))
	}
	for _, dup := range duplicates(usernames) {
		errs = append(errs, fmt.Sprintf("Duplicate username: %s", dup))
	}

	for i, u := range users {
		label := userLabel(u, i)
		if strings.TrimSpace(u.Name) == "" {
			errs = append(errs, fmt.Sprintf("User %s: name is required", label))
		}
		if strings.TrimSpace(u.EmployeeID) == "" {
			errs = append(errs, fmt.Sprintf("User %s: employee ID is required", label))
		}
		if strings.TrimSpace(u.Username) == "" {
			errs = append(errs, fmt.Sprintf("User %s: username is required", label))
		}
		if !u.Role.Valid() {
			errs = append(errs, fmt.Sprintf("User %s: invalid role %q", label, string(u.Role)))
		}
		if strings.TrimSpace(u.Phone) == "" {
			warnings = append(warnings, fmt.Sprintf("User %s: phone number is missing", label))
		}
		if strings.TrimSpace(u.Designation) == "" {
			warnings = append(warnings, fmt.Sprintf("User %s: designation is missing", label))
		}
	}
	return newReport(errs, warnings)
}

// ValidateSales checks references, amounts and dates of sales records.
func ValidateSales(sales []domain.SalesRecord, users []domain.User) Report {
	var errs, warnings []string
	ids := userIDSet(users)

	for i, s := range sales {
		label := recordLabel(s.ID, i)
		if _, ok := ids[s.UserID]; !ok {
			errs = append(errs, fmt.Sprintf("Sales record %s: user %q does not exist", label, s.UserID))
		}
		if strings.TrimSpace(s.ProductName) == "" {
			errs = append(errs, fmt.Sprintf("Sales record %s: product name is required", label))
		}
		if strings.TrimSpace(s.Customer) == "" {
			errs = append(errs, fmt.Sprintf("Sales record %s: customer is required", label))
		}
		if s.Quantity <= 0 {
			errs = append(errs, fmt.Sprintf("Sales record %s: quantity must be greater than 0", label))
		}
		if s.UnitPrice <= 0 {
			errs = append(errs, fmt.Sprintf("Sales record %s: unit price must be greater than 0", label))
		}
		if s.TotalAmount <= 0 {
			errs = append(errs, fmt.Sprintf("Sales record %s: total amount must be greater than 0", label))
		}
		if !s.TotalConsistent() {
			errs = append(errs, fmt.Sprintf("Sales record %s: total amount mismatch (expected %.2f, got %.2f)",
				label, s.ExpectedTotal(), s.TotalAmount))
		}
		if strings.TrimSpace(s.Date) == "" {
			errs = append(errs, fmt.Sprintf("Sales record %s: date is missing", label))
		} else if _, ok := domain.ParseDate(s.Date); !ok {
			errs = append(errs, fmt.Sprintf("Sales record %s: invalid date %q", label, s.Date))
		}
		if !s.HasContact() {
			warnings = append(warnings, fmt.Sprintf("Sales record %s: no customer email or phone", label))
		}
	}
	return newReport(errs, warnings)
}

// ValidateAttendance checks references, dates, statuses and check-in/out ordering.
func ValidateAttendance(records []domain.AttendanceRecord, users []domain.User) Report {
	var errs, warnings []string
	ids := userIDSet(users)

	for i, a := range records {
		label := recordLabel(a.ID, i)
		if _, ok := ids[a.UserID]; !ok {
			errs = append(errs, fmt.Sprintf("Attendance record %s: user %q does not exist", label, a.UserID))
		}
		if strings.TrimSpace(a.Date) == "" {
			errs = append(errs, fmt.Sprintf("Attendance record %s: date is missing", label))
		} else if _, ok := domain.ParseDate(a.Date); !ok {
			errs = append(errs, fmt.Sprintf("Attendance record %s: invalid date %q", label, a.Date))
		}
		if !a.Status.Valid() {
			errs = append(errs, fmt.Sprintf("Attendance record %s: invalid status %q", label, string(a.Status)))
		}

		checkIn, hasIn := parseOptionalTimestamp(a.CheckIn)
		checkOut, hasOut := parseOptionalTimestamp(a.CheckOut)
		if a.CheckIn != "" && !hasIn {
			errs = append(errs, fmt.Sprintf("Attendance record %s: invalid check-in time %q", label, a.CheckIn))
		}
		if a.CheckOut != "" && !hasOut {
			errs = append(errs, fmt.Sprintf("Attendance record %s: invalid check-out time %q", label, a.CheckOut))
		}
		if hasIn && hasOut {
			if !checkOut.After(checkIn) {
				errs = append(errs, fmt.Sprintf("Attendance record %s: check-out must be after check-in", label))
			} else if checkOut.Sub(checkIn).Hours() > maxShiftHours {
				warnings = append(warnings, fmt.Sprintf("Attendance record %s: shift longer than %d hours", label, maxShiftHours))
			}
		}
		if a.Status == domain.AttendancePresent && a.CheckIn == "" {
			warnings = append(warnings, fmt.Sprintf("Attendance record %s: marked present without check-in time", label))
		}
	}
	return newReport(errs, warnings)
}

// ValidateAll runs the three validators; the combined result is valid only if all are.
func ValidateAll(c Collections) FullReport {
	users := ValidateUsers(c.Users)
	sales := ValidateSales(c.Sales, c.Users)
	attendance := ValidateAttendance(c.Attendance, c.Users)

	errs := make([]string, 0, len(users.Errors)+len(sales.Errors)+len(attendance.Errors))
	errs = append(errs, users.Errors...)
	errs = append(errs, sales.Errors...)
	errs = append(errs, attendance.Errors...)

	warnings := make([]string, 0, len(users.Warnings)+len(sales.Warnings)+len(attendance.Warnings))
	warnings = append(warnings, users.Warnings...)
	warnings = append(warnings, sales.Warnings...)
	warnings = append(warnings, attendance.Warnings...)

	return FullReport{
		Report: Report{
			IsValid:  users.IsValid && sales.IsValid && attendance.IsValid,
			Errors:   errs,
			Warnings: warnings,
		},
		Users:      users,
		Sales:      sales,
		Attendance: attendance,
	}
}

func parseOptionalTimestamp(raw string) (time.Time, bool) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, false
	}
	return domain.ParseTimestamp(raw)
}

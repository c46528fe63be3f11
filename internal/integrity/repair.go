package integrity

import (
	"fmt"
	"math"
	"strings"

	"github.com/spec-kit/sales-crm/internal/domain"
)

// RepairResult holds the corrected collections and a description of every fix.
type RepairResult struct {
	Collections
	Fixes []string `json:"fixes"`
}

// NormalizeUsername lowercases a username and joins whitespace-separated parts with dots.
func NormalizeUsername(username string) string {
	return strings.Join(strings.Fields(strings.ToLower(username)), ".")
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// Repair fixes the known, mechanical issues in the collections:
// username format, missing isActive flags, orphaned sales and attendance
// records, and drifted sales totals. Duplicate keys and malformed dates need a
// human decision and are left in place. The input slices are not modified.
func Repair(c Collections) RepairResult {
	fixes := []string{}

	users := make([]domain.User, 0, len(c.Users))
	for i, src := range c.Users {
		u := src.Clone()
		label := userLabel(u, i)
		if normalized := NormalizeUsername(u.Username); normalized != u.Username {
			fixes = append(fixes, fmt.Sprintf("User %s: username %q normalized to %q", label, u.Username, normalized))
			u.Username = normalized
		}
		if u.IsActive == nil {
			u.IsActive = domain.BoolPtr(true)
			fixes = append(fixes, fmt.Sprintf("User %s: isActive defaulted to true", label))
		}
		users = append(users, u)
	}
	ids := userIDSet(users)

	sales := make([]domain.SalesRecord, 0, len(c.Sales))
	for i, s := range c.Sales {
		label := recordLabel(s.ID, i)
		if _, ok := ids[s.UserID]; !ok {
			fixes = append(fixes, fmt.Sprintf("Sales record %s: removed, user %q does not exist", label, s.UserID))
			continue
		}
		if !s.TotalConsistent() {
			expected := roundCents(s.ExpectedTotal())
			fixes = append(fixes, fmt.Sprintf("Sales record %s: total amount corrected from %.2f to %.2f", label, s.TotalAmount, expected))
			s.TotalAmount = expected
		}
		sales = append(sales, s)
	}

	attendance := make([]domain.AttendanceRecord, 0, len(c.Attendance))
	for i, a := range c.Attendance {
		if _, ok := ids[a.UserID]; !ok {
			fixes = append(fixes, fmt.Sprintf("Attendance record %s: removed, user %q does not exist", recordLabel(a.ID, i), a.UserID))
			continue
		}
		attendance = append(attendance, a)
	}

	return RepairResult{
		Collections: Collections{Users: users, Sales: sales, Attendance: attendance},
		Fixes:       fixes,
	}
}

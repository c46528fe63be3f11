package integrity

import (
	"math"
	"math/rand"
	"reflect"
	"strings"
	"testing"

	"github.com/spec-kit/sales-crm/internal/domain"
)

func exampleUsers() []domain.User {
	return []domain.User{
		{ID: "A1", EmployeeID: "A1", Username: "a.one", Name: "A One", Role: domain.RoleManager, Phone: "5550001", Designation: "Sales Manager"},
		{ID: "E1", EmployeeID: "E1", Username: "e.one", Name: "E One", Role: domain.RoleEmployee, Manager: domain.StringPtr("A1"), Phone: "5550002", Designation: "Sales Executive"},
	}
}

func exampleSales() []domain.SalesRecord {
	return []domain.SalesRecord{
		{ID: "s1", UserID: "E1", Quantity: 2, UnitPrice: 100, Discount: 0, TotalAmount: 199, Date: "2024-01-01", ProductName: "X", Customer: "C"},
	}
}

func containsSubstring(list []string, sub string) bool {
	for _, item := range list {
		if strings.Contains(item, sub) {
			return true
		}
	}
	return false
}

func TestValidateSalesReportsTotalMismatch(t *testing.T) {
	report := ValidateSales(exampleSales(), exampleUsers())
	if report.IsValid {
		t.Fatal("expected invalid report")
	}
	if len(report.Errors) != 1 {
		t.Fatalf("expected exactly one error, got %v", report.Errors)
	}
	if !strings.Contains(report.Errors[0], "expected 200.00, got 199.00") {
		t.Fatalf("unexpected error text %q", report.Errors[0])
	}
	if len(report.Warnings) != 1 {
		t.Fatalf("expected the missing-contact warning, got %v", report.Warnings)
	}
}

func TestRepairFixesExampleTotal(t *testing.T) {
	result := Repair(Collections{Users: exampleUsers(), Sales: exampleSales()})

	if len(result.Sales) != 1 || result.Sales[0].TotalAmount != 200 {
		t.Fatalf("expected s1 total 200, got %+v", result.Sales)
	}
	var saleFixes []string
	for _, fix := range result.Fixes {
		if strings.HasPrefix(fix, "Sales record") {
			saleFixes = append(saleFixes, fix)
		}
	}
	if len(saleFixes) != 1 || !strings.Contains(saleFixes[0], "s1") {
		t.Fatalf("expected one fix referencing s1, got %v", result.Fixes)
	}

	report := ValidateSales(result.Sales, result.Users)
	if !report.IsValid {
		t.Fatalf("repaired sales should validate, got %v", report.Errors)
	}
}

func TestValidateUsersDetectsDuplicatesCaseInsensitive(t *testing.T) {
	users := exampleUsers()
	dup := users[1]
	dup.ID = "E2"
	dup.EmployeeID = "e1"
	dup.Username = "E.ONE"
	users = append(users, dup)

	report := ValidateUsers(users)
	if report.IsValid {
		t.Fatal("duplicate employee id must invalidate users")
	}
	if !containsSubstring(report.Errors, "Duplicate employee ID") {
		t.Fatalf("missing duplicate employee id error: %v", report.Errors)
	}
	if !containsSubstring(report.Errors, "Duplicate username") {
		t.Fatalf("missing duplicate username error: %v", report.Errors)
	}
}

func TestValidateUsersRequiredFieldsAndWarnings(t *testing.T) {
	users := []domain.User{{ID: "X1", Role: "superuser"}}
	report := ValidateUsers(users)

	if len(report.Errors) != 4 {
		t.Fatalf("expected name, employee id, username and role errors, got %v", report.Errors)
	}
	if len(report.Warnings) != 2 {
		t.Fatalf("expected phone and designation warnings, got %v", report.Warnings)
	}
}

func TestValidateSalesFlagsOrphansAndBadValues(t *testing.T) {
	sales := []domain.SalesRecord{
		{ID: "s9", UserID: "GHOST", Quantity: 0, UnitPrice: 0, TotalAmount: 0, Date: "not-a-date", CustomerEmail: "x@y.z"},
	}
	report := ValidateSales(sales, exampleUsers())

	for _, want := range []string{"does not exist", "product name", "customer is required", "quantity", "unit price", "total amount must be", "invalid date"} {
		if !containsSubstring(report.Errors, want) {
			t.Errorf("missing error containing %q in %v", want, report.Errors)
		}
	}
	if len(report.Warnings) != 0 {
		t.Fatalf("record has an email, expected no warnings, got %v", report.Warnings)
	}
}

func TestValidateAttendanceOrdering(t *testing.T) {
	record := domain.AttendanceRecord{
		ID:       "a1",
		UserID:   "E1",
		Date:     "2024-01-02",
		Status:   domain.AttendancePresent,
		CheckIn:  "2024-01-02T17:00:00.000Z",
		CheckOut: "2024-01-02T09:00:00.000Z",
	}
	report := ValidateAttendance([]domain.AttendanceRecord{record}, exampleUsers())
	if !containsSubstring(report.Errors, "check-out must be after check-in") {
		t.Fatalf("expected ordering error, got %v", report.Errors)
	}

	record.CheckIn, record.CheckOut = record.CheckOut, record.CheckIn
	report = ValidateAttendance([]domain.AttendanceRecord{record}, exampleUsers())
	if containsSubstring(report.Errors, "check-out must be after check-in") {
		t.Fatalf("ordering error should clear after swap, got %v", report.Errors)
	}
	if !report.IsValid {
		t.Fatalf("expected valid record, got %v", report.Errors)
	}
}

func TestValidateAttendanceWarnings(t *testing.T) {
	records := []domain.AttendanceRecord{
		{ID: "a1", UserID: "E1", Date: "2024-01-02", Status: domain.AttendancePresent},
		{ID: "a2", UserID: "E1", Date: "2024-01-03", Status: domain.AttendanceLate,
			CheckIn: "2024-01-03T09:45:00Z", CheckOut: "2024-01-04T11:00:00Z"},
		{ID: "a3", UserID: "E1", Date: "2024-01-04", Status: "vacation"},
	}
	report := ValidateAttendance(records, exampleUsers())

	if !containsSubstring(report.Warnings, "without check-in") {
		t.Errorf("expected present-without-check-in warning, got %v", report.Warnings)
	}
	if !containsSubstring(report.Warnings, "longer than 24 hours") {
		t.Errorf("expected long shift warning, got %v", report.Warnings)
	}
	if !containsSubstring(report.Errors, "invalid status") {
		t.Errorf("expected invalid status error, got %v", report.Errors)
	}
}

func TestValidateAllCombinesReports(t *testing.T) {
	c := Collections{Users: exampleUsers(), Sales: exampleSales()}
	report := ValidateAll(c)
	if report.IsValid {
		t.Fatal("combined report must be invalid when sales are invalid")
	}
	if !report.Users.IsValid || report.Sales.IsValid || !report.Attendance.IsValid {
		t.Fatalf("unexpected section validity: %+v", report)
	}
	if len(report.Errors) != len(report.Sales.Errors) {
		t.Fatalf("combined errors should equal sales errors, got %v", report.Errors)
	}
}

func TestRepairNormalizesUsersAndDropsOrphans(t *testing.T) {
	users := []domain.User{
		{ID: "M1", EmployeeID: "M1", Username: "  John   Smith ", Name: "John", Role: domain.RoleManager},
		{ID: "E5", EmployeeID: "E5", Username: "kate", Name: "Kate", Role: domain.RoleEmployee, IsActive: domain.BoolPtr(false)},
	}
	sales := []domain.SalesRecord{
		{ID: "keep", UserID: "E5", Quantity: 1, UnitPrice: 10, TotalAmount: 10},
		{ID: "drop", UserID: "E404", Quantity: 1, UnitPrice: 10, TotalAmount: 10},
	}
	attendance := []domain.AttendanceRecord{
		{ID: "a-keep", UserID: "M1", Date: "2024-01-01", Status: domain.AttendanceAbsent},
		{ID: "a-drop", UserID: "E404", Date: "2024-01-01", Status: domain.AttendanceAbsent},
	}

	result := Repair(Collections{Users: users, Sales: sales, Attendance: attendance})

	if result.Users[0].Username != "john.smith" {
		t.Fatalf("username not normalized: %q", result.Users[0].Username)
	}
	if result.Users[0].IsActive == nil || !*result.Users[0].IsActive {
		t.Fatal("missing isActive should default to true")
	}
	if *result.Users[1].IsActive {
		t.Fatal("explicit isActive=false must be preserved")
	}
	if len(result.Sales) != 1 || result.Sales[0].ID != "keep" {
		t.Fatalf("unexpected sales after repair: %+v", result.Sales)
	}
	if len(result.Attendance) != 1 || result.Attendance[0].ID != "a-keep" {
		t.Fatalf("unexpected attendance after repair: %+v", result.Attendance)
	}
	if len(result.Fixes) != 4 {
		t.Fatalf("expected 4 fixes, got %v", result.Fixes)
	}
	if users[0].Username != "  John   Smith " || users[0].IsActive != nil {
		t.Fatal("repair must not modify its input")
	}
}

func TestRepairLeavesDuplicatesForHumans(t *testing.T) {
	users := exampleUsers()
	dup := users[1]
	dup.ID = "E2"
	users = append(users, dup)

	result := Repair(Collections{Users: users})
	report := ValidateUsers(result.Users)
	if !containsSubstring(report.Errors, "Duplicate employee ID") {
		t.Fatalf("duplicate employee id should survive repair, got %v", report.Errors)
	}
	if len(result.Users) != 3 {
		t.Fatalf("repair must not drop users, got %d", len(result.Users))
	}
}

func randomCollections(r *rand.Rand) Collections {
	names := []string{"alice", "Bob Smith", "  carol  ", "DAVE", "eve jones"}
	var c Collections
	for i := 0; i < 5; i++ {
		u := domain.User{
			ID:         string(rune('A' + i)),
			EmployeeID: string(rune('A' + i)),
			Username:   names[r.Intn(len(names))],
			Name:       "n",
			Role:       domain.RoleEmployee,
		}
		if r.Intn(2) == 0 {
			u.IsActive = domain.BoolPtr(r.Intn(2) == 0)
		}
		c.Users = append(c.Users, u)
	}
	for i := 0; i < 8; i++ {
		q := float64(r.Intn(5) + 1)
		p := float64(r.Intn(10000)) / 100
		d := float64(r.Intn(100)) / 10
		c.Sales = append(c.Sales, domain.SalesRecord{
			ID:          "s" + string(rune('0'+i)),
			UserID:      string(rune('A' + r.Intn(7))),
			Quantity:    q,
			UnitPrice:   p,
			Discount:    d,
			TotalAmount: float64(r.Intn(50000)) / 100,
		})
	}
	for i := 0; i < 8; i++ {
		c.Attendance = append(c.Attendance, domain.AttendanceRecord{
			ID:     "a" + string(rune('0'+i)),
			UserID: string(rune('A' + r.Intn(7))),
			Date:   "2024-02-01",
			Status: domain.AttendancePresent,
		})
	}
	return c
}

func TestRepairProperties(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for iter := 0; iter < 200; iter++ {
		first := Repair(randomCollections(r))

		ids := userIDSet(first.Users)
		for _, s := range first.Sales {
			if _, ok := ids[s.UserID]; !ok {
				t.Fatalf("orphan sale %s survived repair", s.ID)
			}
			if math.Abs(s.TotalAmount-(s.Quantity*s.UnitPrice-s.Discount)) > domain.TotalTolerance {
				t.Fatalf("sale %s total %.4f not consistent", s.ID, s.TotalAmount)
			}
		}
		for _, a := range first.Attendance {
			if _, ok := ids[a.UserID]; !ok {
				t.Fatalf("orphan attendance %s survived repair", a.ID)
			}
		}

		second := Repair(first.Collections)
		if len(second.Fixes) != 0 {
			t.Fatalf("second repair should be a no-op, got %v", second.Fixes)
		}
		if !reflect.DeepEqual(first.Collections, second.Collections) {
			t.Fatalf("repair is not idempotent on iteration %d", iter)
		}
	}
}

package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/sales-crm/internal/config"
	"github.com/spec-kit/sales-crm/internal/domain"
	"github.com/spec-kit/sales-crm/internal/observability"
	"github.com/spec-kit/sales-crm/internal/persistence"
	"github.com/spec-kit/sales-crm/internal/realtime"
	"github.com/spec-kit/sales-crm/internal/repository"
	apperrors "github.com/spec-kit/sales-crm/pkg/util/errorutil"
)

type fixture struct {
	collections *repository.Collections
	sync        *realtime.Manager
	clock       time.Time
	auth        *AuthService
	employees   *EmployeeService
	sales       *SalesService
	attendance  *AttendanceService
	reports     *ReportService
	exports     *ExportService
	integrity   *IntegrityService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	collections := repository.NewCollections(persistence.NewMemoryStore(), "salescrm_", 0, zap.NewNop())
	if err := collections.Bootstrap(context.Background()); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	sync := realtime.NewManager(collections, zap.NewNop(), observability.NewMetrics(), realtime.Options{})
	t.Cleanup(sync.Stop)

	f := &fixture{collections: collections, sync: sync, clock: time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return f.clock }
	cfg := config.Config{Auth: config.AuthConfig{JWTSecret: "test", AccessTokenTTLMinutes: 5}}

	f.auth = NewAuthService(cfg, AuthDependencies{Collections: collections, Sync: sync, Clock: clock})
	f.employees = NewEmployeeService(EmployeeDependencies{Collections: collections, Sync: sync, Clock: clock})
	f.sales = NewSalesService(SalesDependencies{Collections: collections, Sync: sync, Clock: clock})
	f.attendance = NewAttendanceService(config.AttendanceConfig{LateAfter: "09:30"}, AttendanceDependencies{Collections: collections, Sync: sync, Clock: clock})
	f.reports = NewReportService(collections)
	f.exports = NewExportService(ExportDependencies{Collections: collections, Reports: f.reports, Clock: clock})
	f.integrity = NewIntegrityService(IntegrityDependencies{Collections: collections, Sync: sync})
	return f
}

func (f *fixture) user(t *testing.T, id string) *domain.User {
	t.Helper()
	users, err := f.collections.Users(context.Background())
	if err != nil {
		t.Fatalf("users: %v", err)
	}
	u, ok := domain.FindUser(users, id)
	if !ok {
		t.Fatalf("user %s missing", id)
	}
	out := u.Clone()
	return &out
}

func expectCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	if got := apperrors.ToDomainError(err).Code; got != code {
		t.Fatalf("expected %s, got %s (%v)", code, got, err)
	}
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.auth.Login(ctx, "EMP001", "emp123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.Token == "" || res.User.Password != "" {
		t.Fatalf("unexpected login result %+v", res)
	}
	session, _ := f.collections.CurrentUser(ctx)
	if session == nil || session.ID != "EMP001" {
		t.Fatalf("expected session user EMP001, got %+v", session)
	}
	if f.user(t, "EMP001").LastLogin == "" {
		t.Fatal("expected last login to be stored")
	}

	_, errUnknown := f.auth.Login(ctx, "NOPE01", "emp123")
	_, errWrong := f.auth.Login(ctx, "EMP001", "wrong")
	expectCode(t, errUnknown, "UNAUTHORIZED")
	if errUnknown.Error() != errWrong.Error() {
		t.Fatalf("failures must be indistinguishable: %q vs %q", errUnknown, errWrong)
	}

	entries, _ := f.collections.LoginLog(ctx)
	if len(entries) != 3 || !entries[0].Success || entries[1].Success {
		t.Fatalf("unexpected login log %+v", entries)
	}

	if err := f.auth.Logout(ctx, f.user(t, "EMP001")); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if session, _ := f.collections.CurrentUser(ctx); session != nil {
		t.Fatal("expected session cleared after logout")
	}
}

func TestLoginRejectsInactive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.user(t, "ADMIN001")
	if _, err := f.employees.UpdateProfile(ctx, admin, "EMP002", ProfilePatch{IsActive: domain.BoolPtr(false)}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	_, err := f.auth.Login(ctx, "EMP002", "emp123")
	expectCode(t, err, "FORBIDDEN")
}

func TestManagerAddsEmployeeToOwnTeam(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mgr := f.user(t, "MGR001")

	created, err := f.employees.Add(ctx, mgr, EmployeeInput{
		EmployeeID: "emp010",
		Username:   "New Hire",
		Password:   "secret1",
		Name:       "New Hire",
		Email:      "new.hire@company.com",
		Manager:    "MGR002",
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if created.ID != "EMP010" || created.EmployeeID != "EMP010" {
		t.Fatalf("expected id from employee id, got %+v", created)
	}
	if created.ManagerID() != "MGR001" || created.Username != "new.hire" {
		t.Fatalf("unexpected new employee %+v", created)
	}

	_, err = f.employees.Add(ctx, mgr, EmployeeInput{EmployeeID: "EMP010", Username: "other", Password: "secret1", Name: "Other"})
	expectCode(t, err, "CONFLICT")

	_, err = f.employees.Add(ctx, f.user(t, "EMP001"), EmployeeInput{EmployeeID: "EMP011", Username: "x", Password: "secret1", Name: "X"})
	expectCode(t, err, "FORBIDDEN")

	_, err = f.employees.Add(ctx, mgr, EmployeeInput{EmployeeID: "E1", Username: "x", Password: "abc", Name: "X", Email: "bad"})
	expectCode(t, err, "VALIDATION_FAILED")
}

func TestUpdateProfilePermissionsAndSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.auth.Login(ctx, "EMP001", "emp123"); err != nil {
		t.Fatalf("login: %v", err)
	}
	emp := f.user(t, "EMP001")

	role := domain.RoleAdmin
	_, err := f.employees.UpdateProfile(ctx, emp, "EMP001", ProfilePatch{Role: &role})
	expectCode(t, err, "FORBIDDEN")

	_, err = f.employees.UpdateProfile(ctx, emp, "EMP003", ProfilePatch{Name: domain.StringPtr("Hacked")})
	expectCode(t, err, "FORBIDDEN")

	phone := "+44 20 7946 0958"
	updated, err := f.employees.UpdateProfile(ctx, emp, "EMP001", ProfilePatch{Phone: &phone})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Phone != phone {
		t.Fatalf("phone not applied: %+v", updated)
	}
	session, _ := f.collections.CurrentUser(ctx)
	if session == nil || session.Phone != phone {
		t.Fatalf("session not refreshed: %+v", session)
	}
}

func TestDeleteLeavesOrphans(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.user(t, "ADMIN001")
	if _, err := f.sales.Create(ctx, f.user(t, "EMP004"), SaleInput{ProductName: "X", Customer: "C", Quantity: 1, UnitPrice: 50}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := f.employees.Delete(ctx, admin, "EMP004"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	report, err := f.integrity.Validate(ctx, admin)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if report.Sales.IsValid {
		t.Fatal("expected orphaned sale to be reported")
	}

	outcome, err := f.integrity.Repair(ctx, admin)
	if err != nil {
		t.Fatalf("repair: %v", err)
	}
	if len(outcome.Fixes) == 0 || !outcome.Report.Sales.IsValid {
		t.Fatalf("expected orphan removal, got %+v", outcome)
	}
	sales, _ := f.collections.Sales(ctx)
	if len(sales) != 0 {
		t.Fatalf("repair was not persisted: %d sales left", len(sales))
	}

	err = f.employees.Delete(ctx, f.user(t, "MGR001"), "EMP001")
	expectCode(t, err, "FORBIDDEN")
	_, err = f.integrity.Validate(ctx, f.user(t, "MGR001"))
	expectCode(t, err, "FORBIDDEN")
}

func TestSalesScoping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	emp1, emp3, mgr1 := f.user(t, "EMP001"), f.user(t, "EMP003"), f.user(t, "MGR001")

	rec, err := f.sales.Create(ctx, emp1, SaleInput{ProductName: " <b>CRM</b> ", Customer: "Acme", Quantity: 3, UnitPrice: 19.99, Discount: 5})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.TotalAmount != 54.97 || rec.ProductName != "bCRM/b" || rec.Date != "2024-03-04" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if _, err := f.sales.Create(ctx, mgr1, SaleInput{UserID: "EMP002", ProductName: "Y", Customer: "B", Quantity: 1, UnitPrice: 10}); err != nil {
		t.Fatalf("manager create for report: %v", err)
	}
	if _, err := f.sales.Create(ctx, emp3, SaleInput{ProductName: "Z", Customer: "C", Quantity: 1, UnitPrice: 10}); err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = f.sales.Create(ctx, emp1, SaleInput{UserID: "EMP002", ProductName: "Y", Customer: "B", Quantity: 1, UnitPrice: 10})
	expectCode(t, err, "FORBIDDEN")
	_, err = f.sales.Create(ctx, emp1, SaleInput{ProductName: "", Customer: "B", Quantity: 0, UnitPrice: 10})
	expectCode(t, err, "VALIDATION_FAILED")

	mine, _ := f.sales.List(ctx, emp1, SalesFilter{})
	team, _ := f.sales.List(ctx, mgr1, SalesFilter{})
	all, _ := f.sales.List(ctx, f.user(t, "ADMIN001"), SalesFilter{})
	if len(mine) != 1 || len(team) != 2 || len(all) != 3 {
		t.Fatalf("unexpected visibility: employee=%d manager=%d admin=%d", len(mine), len(team), len(all))
	}

	_, err = f.sales.Update(ctx, emp3, rec.ID, SaleInput{ProductName: "X", Customer: "C", Quantity: 1, UnitPrice: 1})
	expectCode(t, err, "FORBIDDEN")
	edited, err := f.sales.Update(ctx, mgr1, rec.ID, SaleInput{ProductName: "CRM", Customer: "Acme", Quantity: 2, UnitPrice: 100, Discount: 10})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if edited.TotalAmount != 190 || edited.UserID != "EMP001" {
		t.Fatalf("unexpected edit %+v", edited)
	}
	if err := f.sales.Delete(ctx, emp1, rec.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, err = f.sales.Get(ctx, emp1, rec.ID)
	expectCode(t, err, "NOT_FOUND")
}

func TestSalesRejectDiscountAboveAmount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	emp := f.user(t, "EMP001")

	_, err := f.sales.Create(ctx, emp, SaleInput{ProductName: "CRM", Customer: "Acme", Quantity: 1, UnitPrice: 10, Discount: 50})
	expectCode(t, err, "VALIDATION_FAILED")
	rec, err := f.sales.Create(ctx, emp, SaleInput{ProductName: "CRM", Customer: "Acme", Quantity: 1, UnitPrice: 10, Discount: 5})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err = f.sales.Update(ctx, emp, rec.ID, SaleInput{ProductName: "CRM", Customer: "Acme", Quantity: 1, UnitPrice: 10, Discount: 10})
	expectCode(t, err, "VALIDATION_FAILED")

	report, err := f.integrity.Validate(ctx, f.user(t, "ADMIN001"))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !report.Sales.IsValid {
		t.Fatalf("stored sales should pass the audit: %v", report.Sales.Errors)
	}
}

func TestConcurrentSalesCreatesAreAllStored(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actors := []*domain.User{f.user(t, "EMP001"), f.user(t, "EMP002"), f.user(t, "EMP003"), f.user(t, "EMP004")}
	const perActor = 25

	var wg sync.WaitGroup
	errs := make(chan error, len(actors)*perActor)
	for _, actor := range actors {
		wg.Add(1)
		go func(actor *domain.User) {
			defer wg.Done()
			for i := 0; i < perActor; i++ {
				in := SaleInput{ProductName: "CRM", Customer: fmt.Sprintf("Customer %d", i), Quantity: 1, UnitPrice: 10}
				if _, err := f.sales.Create(ctx, actor, in); err != nil {
					errs <- err
				}
			}
		}(actor)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("create: %v", err)
	}

	sales, err := f.collections.Sales(ctx)
	if err != nil {
		t.Fatalf("sales: %v", err)
	}
	if len(sales) != len(actors)*perActor {
		t.Fatalf("expected %d stored sales, got %d", len(actors)*perActor, len(sales))
	}
	entries, _ := f.collections.SyncLog(ctx)
	if len(entries) != repository.DefaultLogCapacity {
		t.Fatalf("expected %d sync log entries, got %d", repository.DefaultLogCapacity, len(entries))
	}
}

func TestConcurrentCheckInsAreAllStored(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ids := []string{"EMP001", "EMP002", "EMP003", "EMP004", "MGR001", "MGR002"}

	var wg sync.WaitGroup
	for _, id := range ids {
		actor := f.user(t, id)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.attendance.CheckIn(ctx, actor); err != nil {
				t.Errorf("check in %s: %v", actor.ID, err)
			}
		}()
	}
	wg.Wait()

	records, _ := f.collections.Attendance(ctx)
	if len(records) != len(ids) {
		t.Fatalf("expected %d attendance records, got %d", len(ids), len(records))
	}
}

func TestAttendanceFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	emp := f.user(t, "EMP001")

	rec, err := f.attendance.CheckIn(ctx, emp)
	if err != nil {
		t.Fatalf("check in: %v", err)
	}
	if rec.Status != domain.AttendancePresent {
		t.Fatalf("09:00 check-in should be present, got %s", rec.Status)
	}
	_, err = f.attendance.CheckIn(ctx, emp)
	expectCode(t, err, "CONFLICT")

	f.clock = f.clock.Add(8 * time.Hour)
	out, err := f.attendance.CheckOut(ctx, emp)
	if err != nil {
		t.Fatalf("check out: %v", err)
	}
	if out.CheckOut == "" {
		t.Fatal("expected check-out timestamp")
	}

	f.clock = time.Date(2024, 3, 5, 10, 15, 0, 0, time.UTC)
	late, err := f.attendance.CheckIn(ctx, f.user(t, "EMP002"))
	if err != nil {
		t.Fatalf("late check in: %v", err)
	}
	if late.Status != domain.AttendanceLate {
		t.Fatalf("10:15 check-in should be late, got %s", late.Status)
	}

	_, err = f.attendance.Mark(ctx, emp, MarkInput{UserID: "EMP002", Date: "2024-03-01", Status: domain.AttendancePresent})
	expectCode(t, err, "FORBIDDEN")
	_, err = f.attendance.Mark(ctx, f.user(t, "MGR001"), MarkInput{UserID: "EMP003", Date: "2024-03-01", Status: domain.AttendancePresent})
	expectCode(t, err, "FORBIDDEN")

	marked, err := f.attendance.Mark(ctx, f.user(t, "MGR001"), MarkInput{UserID: "EMP002", Date: "2024-03-01", Status: domain.AttendancePresent})
	if err != nil {
		t.Fatalf("mark: %v", err)
	}
	if marked.CheckIn != "2024-03-01T09:00:00.000Z" || marked.MarkedBy != "MGR001" {
		t.Fatalf("unexpected marked record %+v", marked)
	}

	list, err := f.attendance.List(ctx, f.user(t, "MGR001"), AttendanceFilter{From: "2024-03-04"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 records from 2024-03-04 on, got %d", len(list))
	}

	stats, err := f.reports.AttendanceSummary(ctx, f.user(t, "MGR001"), "", "")
	if err != nil {
		t.Fatalf("attendance summary: %v", err)
	}
	for _, s := range stats {
		if s.UserID == "EMP002" && (s.Present != 1 || s.Late != 1 || s.Rate != 100) {
			t.Fatalf("unexpected stats %+v", s)
		}
	}
}

func TestSalesSummaryUsesExactArithmetic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	emp := f.user(t, "EMP001")
	for i := 0; i < 3; i++ {
		if _, err := f.sales.Create(ctx, emp, SaleInput{ProductName: "P", Customer: "C", Quantity: 1, UnitPrice: 0.1}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	summary, err := f.reports.SalesSummary(ctx, f.user(t, "MGR001"), "2024-03-01", "2024-03-31")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.TotalRevenue.String() != "0.3" || summary.TotalDeals != 3 {
		t.Fatalf("unexpected totals %s / %d", summary.TotalRevenue, summary.TotalDeals)
	}
	if summary.ByUser[0].UserID != "EMP001" {
		t.Fatalf("expected top performer first, got %+v", summary.ByUser[0])
	}
	if len(summary.ByUser) != 3 {
		t.Fatalf("manager should see self and two reports, got %d", len(summary.ByUser))
	}

	_, err = f.reports.SalesSummary(ctx, emp, "2024-03-31", "2024-03-01")
	expectCode(t, err, "VALIDATION_FAILED")
}

func TestCSVExport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	emp := f.user(t, "EMP001")

	_, err := f.exports.CSV(ctx, emp, ExportSales)
	if !errors.Is(err, ErrNothingToExport) {
		t.Fatalf("expected ErrNothingToExport, got %v", err)
	}

	if _, err := f.sales.Create(ctx, emp, SaleInput{ProductName: `Widget "Pro"`, Customer: "Acme, Inc", Quantity: 2, UnitPrice: 5}); err != nil {
		t.Fatalf("create: %v", err)
	}
	file, err := f.exports.CSV(ctx, emp, ExportSales)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	lines := strings.Split(string(file.Data), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], `"id","userId","date"`) {
		t.Fatalf("unexpected header %s", lines[0])
	}
	if !strings.Contains(lines[1], `"Widget ""Pro"""`) || !strings.Contains(lines[1], `"Acme, Inc"`) {
		t.Fatalf("fields not quoted: %s", lines[1])
	}
	if file.Filename != "sales_export_2024-03-04.csv" {
		t.Fatalf("unexpected filename %s", file.Filename)
	}

	users, err := f.exports.CSV(ctx, emp, ExportUsers)
	if err != nil {
		t.Fatalf("users export: %v", err)
	}
	if users.RecordCount != 1 || strings.Contains(string(users.Data), "emp123") {
		t.Fatalf("users export leaked data: %s", users.Data)
	}

	log, _ := f.collections.ExportLog(ctx)
	if len(log) != 2 || log[0].UserID != "EMP001" {
		t.Fatalf("unexpected export log %+v", log)
	}

	_, err = f.exports.CSV(ctx, emp, "payroll")
	expectCode(t, err, "VALIDATION_FAILED")
}

func TestSalesPDF(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	emp := f.user(t, "EMP001")
	if _, err := f.sales.Create(ctx, emp, SaleInput{ProductName: "Widget", Customer: "Acme", Quantity: 2, UnitPrice: 5}); err != nil {
		t.Fatalf("create: %v", err)
	}
	file, err := f.exports.SalesPDF(ctx, f.user(t, "ADMIN001"), "", "")
	if err != nil {
		t.Fatalf("pdf: %v", err)
	}
	if !bytes.HasPrefix(file.Data, []byte("%PDF")) || file.ContentType != "application/pdf" {
		t.Fatalf("unexpected pdf output (%d bytes)", len(file.Data))
	}
	_, err = f.exports.SalesPDF(ctx, f.user(t, "EMP003"), "", "")
	if !errors.Is(err, ErrNothingToExport) {
		t.Fatalf("expected nothing to export for EMP003, got %v", err)
	}
}

func TestSetTarget(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mgr := f.user(t, "MGR001")

	target, err := f.employees.SetTarget(ctx, mgr, "EMP001", "2024-03", 175000)
	if err != nil {
		t.Fatalf("set target: %v", err)
	}
	if target.SetBy != "MGR001" || f.user(t, "EMP001").Target != 175000 {
		t.Fatalf("target not applied: %+v", target)
	}
	if _, err := f.employees.SetTarget(ctx, mgr, "EMP001", "2024-03", 180000); err != nil {
		t.Fatalf("replace target: %v", err)
	}
	targets, _ := f.employees.Targets(ctx, mgr)
	if len(targets) != 1 || targets[0].Amount != 180000 {
		t.Fatalf("expected one replaced target, got %+v", targets)
	}

	_, err = f.employees.SetTarget(ctx, mgr, "MGR001", "2024-03", 1)
	expectCode(t, err, "FORBIDDEN")
	_, err = f.employees.SetTarget(ctx, mgr, "EMP003", "2024-03", 1)
	expectCode(t, err, "FORBIDDEN")
	_, err = f.employees.SetTarget(ctx, mgr, "EMP001", "March", 1)
	expectCode(t, err, "VALIDATION_FAILED")
}

func TestTeamAndStructure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	team, err := f.employees.Team(ctx, f.user(t, "ADMIN001"), "MGR002")
	if err != nil {
		t.Fatalf("team: %v", err)
	}
	if len(team.Members) != 2 {
		t.Fatalf("expected two members, got %d", len(team.Members))
	}
	_, err = f.employees.Team(ctx, f.user(t, "ADMIN001"), "EMP001")
	expectCode(t, err, "NOT_FOUND")

	structure, err := f.employees.ReportingStructure(ctx, f.user(t, "MGR001"))
	if err != nil {
		t.Fatalf("structure: %v", err)
	}
	if len(structure["MGR001"]) != 2 {
		t.Fatalf("unexpected structure %+v", structure)
	}
}

package service

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"go.uber.org/zap"

	"github.com/spec-kit/sales-crm/internal/domain"
	"github.com/spec-kit/sales-crm/internal/privacy"
	"github.com/spec-kit/sales-crm/internal/repository"
	apperrors "github.com/spec-kit/sales-crm/pkg/util/errorutil"
)

// Export kinds.
const (
	ExportUsers      = "users"
	ExportSales      = "sales"
	ExportAttendance = "attendance"
)

// ErrNothingToExport is returned when the selected data set is empty.
var ErrNothingToExport = apperrors.NewDomainError("NOTHING_TO_EXPORT", "no data to export", http.StatusUnprocessableEntity, nil)

// ExportService renders visible data as CSV or PDF files.
type ExportService struct {
	collections *repository.Collections
	reports     *ReportService
	logger      *zap.Logger
	now         Clock
}

// ExportDependencies bundles requirements for the export service.
type ExportDependencies struct {
	Collections *repository.Collections
	Reports     *ReportService
	Logger      *zap.Logger
	Clock       Clock
}

// ExportFile is a rendered export.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
	RecordCount int
}

// NewExportService constructs the service.
func NewExportService(deps ExportDependencies) *ExportService {
	s := &ExportService{collections: deps.Collections, reports: deps.Reports, logger: deps.Logger, now: deps.Clock}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = utcNow
	}
	if s.reports == nil {
		s.reports = NewReportService(deps.Collections)
	}
	return s
}

// field is one column of a flattened record.
type field struct {
	key   string
	value string
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func flattenUser(u domain.User) []field {
	return []field{
		{"id", u.ID},
		{"employeeId", u.EmployeeID},
		{"username", u.Username},
		{"name", u.Name},
		{"email", u.Email},
		{"phone", u.Phone},
		{"role", string(u.Role)},
		{"manager", u.ManagerID()},
		{"department", u.Department},
		{"designation", u.Designation},
		{"territory", u.Territory},
		{"joinDate", u.JoinDate},
		{"lastLogin", u.LastLogin},
		{"isActive", strconv.FormatBool(u.Active())},
		{"target", num(u.Target)},
	}
}

func flattenSale(s domain.SalesRecord) []field {
	return []field{
		{"id", s.ID},
		{"userId", s.UserID},
		{"date", s.Date},
		{"productName", s.ProductName},
		{"customer", s.Customer},
		{"company", s.Company},
		{"quantity", num(s.Quantity)},
		{"unitPrice", num(s.UnitPrice)},
		{"discount", num(s.Discount)},
		{"totalAmount", num(s.TotalAmount)},
		{"customerEmail", s.CustomerEmail},
		{"customerPhone", s.CustomerPhone},
		{"paymentMethod", s.PaymentMethod},
		{"paymentStatus", string(s.PaymentStatus)},
		{"priority", string(s.Priority)},
		{"dealStage", string(s.DealStage)},
		{"leadSource", s.LeadSource},
		{"territory", s.Territory},
		{"commission", num(s.Commission)},
		{"followUp", s.FollowUp},
		{"notes", s.Notes},
	}
}

func flattenAttendance(a domain.AttendanceRecord) []field {
	return []field{
		{"id", a.ID},
		{"userId", a.UserID},
		{"date", a.Date},
		{"status", string(a.Status)},
		{"checkIn", a.CheckIn},
		{"checkOut", a.CheckOut},
		{"markedBy", a.MarkedBy},
		{"notes", a.Notes},
	}
}

func quoteCSV(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// encodeCSV writes a header taken from the first record's keys followed by one
// line per record. Every field is quoted. Empty input is ErrNothingToExport.
func encodeCSV(records [][]field) ([]byte, error) {
	if len(records) == 0 {
		return nil, ErrNothingToExport
	}
	var buf bytes.Buffer
	header := make([]string, len(records[0]))
	for i, f := range records[0] {
		header[i] = quoteCSV(f.key)
	}
	buf.WriteString(strings.Join(header, ","))
	for _, rec := range records {
		values := make(map[string]string, len(rec))
		for _, f := range rec {
			values[f.key] = f.value
		}
		row := make([]string, len(records[0]))
		for i, f := range records[0] {
			row[i] = quoteCSV(values[f.key])
		}
		buf.WriteByte('\n')
		buf.WriteString(strings.Join(row, ","))
	}
	return buf.Bytes(), nil
}

// CSV exports the visible subset of one collection.
func (s *ExportService) CSV(ctx context.Context, actor *domain.User, kind string) (*ExportFile, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	users, err := s.collections.Users(ctx)
	if err != nil {
		return nil, err
	}

	var records [][]field
	switch kind {
	case ExportUsers:
		for _, u := range privacy.VisibleUsers(actor, users) {
			records = append(records, flattenUser(u))
		}
	case ExportSales:
		sales, err := s.collections.Sales(ctx)
		if err != nil {
			return nil, err
		}
		for _, rec := range privacy.VisibleSales(actor, users, sales) {
			records = append(records, flattenSale(rec))
		}
	case ExportAttendance:
		attendance, err := s.collections.Attendance(ctx)
		if err != nil {
			return nil, err
		}
		for _, rec := range privacy.VisibleAttendance(actor, users, attendance) {
			records = append(records, flattenAttendance(rec))
		}
	default:
		return nil, apperrors.NewValidationError("unknown export kind", map[string]any{"kind": kind})
	}

	data, err := encodeCSV(records)
	if err != nil {
		return nil, err
	}
	file := &ExportFile{
		Filename:    fmt.Sprintf("%s_export_%s.csv", kind, domain.FormatDate(s.now())),
		ContentType: "text/csv",
		Data:        data,
		RecordCount: len(records),
	}
	s.audit(ctx, actor, kind, "csv", file)
	return file, nil
}

// SalesPDF renders the sales summary and the visible sales for a period.
func (s *ExportService) SalesPDF(ctx context.Context, actor *domain.User, from, to string) (*ExportFile, error) {
	summary, err := s.reports.SalesSummary(ctx, actor, from, to)
	if err != nil {
		return nil, err
	}
	users, err := s.collections.Users(ctx)
	if err != nil {
		return nil, err
	}
	sales, err := s.collections.Sales(ctx)
	if err != nil {
		return nil, err
	}
	span, err := parseDateRange(from, to)
	if err != nil {
		return nil, err
	}
	var rows []domain.SalesRecord
	for _, rec := range privacy.VisibleSales(actor, users, sales) {
		if span.contains(rec.Date) {
			rows = append(rows, rec)
		}
	}
	if len(rows) == 0 {
		return nil, ErrNothingToExport
	}

	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Sales Report")
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 11)
	period := "All dates"
	if from != "" || to != "" {
		period = fmt.Sprintf("Period: %s to %s", orDash(from), orDash(to))
	}
	pdf.Cell(0, 7, period)
	pdf.Ln(6)
	pdf.Cell(0, 7, fmt.Sprintf("Prepared for: %s (%s)", actor.Name, actor.Role))
	pdf.Ln(6)
	pdf.Cell(0, 7, fmt.Sprintf("Deals: %d   Revenue: %s", summary.TotalDeals, summary.TotalRevenue.StringFixed(2)))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Performance")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 10)
	for _, p := range summary.ByUser {
		pdf.Cell(0, 6, fmt.Sprintf("%s: %d deals, %s revenue, %.2f%% of target", p.Name, p.Deals, p.Revenue.StringFixed(2), p.Achievement))
		pdf.Ln(6)
	}
	pdf.Ln(4)

	widths := []float64{24, 40, 44, 44, 28}
	pdf.SetFont("Helvetica", "B", 10)
	for i, h := range []string{"Date", "Employee", "Customer", "Product", "Total"} {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 9)
	for _, rec := range rows {
		cells := []string{rec.Date, names[rec.UserID], rec.Customer, rec.ProductName, fmt.Sprintf("%.2f", rec.TotalAmount)}
		for i, c := range cells {
			align := "L"
			if i == len(cells)-1 {
				align = "R"
			}
			pdf.CellFormat(widths[i], 6, truncate(c, 28), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	file := &ExportFile{
		Filename:    fmt.Sprintf("sales_report_%s.pdf", domain.FormatDate(s.now())),
		ContentType: "application/pdf",
		Data:        buf.Bytes(),
		RecordCount: len(rows),
	}
	s.audit(ctx, actor, ExportSales, "pdf", file)
	return file, nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "."
}

func (s *ExportService) audit(ctx context.Context, actor *domain.User, kind, format string, file *ExportFile) {
	entry := domain.ExportLogEntry{
		Timestamp:   domain.FormatTimestamp(s.now()),
		UserID:      actor.ID,
		Kind:        kind,
		Format:      format,
		Filename:    file.Filename,
		RecordCount: file.RecordCount,
	}
	if err := s.collections.AppendExportLog(ctx, entry); err != nil {
		s.logger.Warn("export log append failed", zap.Error(err))
	}
}

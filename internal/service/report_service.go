package service

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/sales-crm/internal/domain"
	"github.com/spec-kit/sales-crm/internal/privacy"
	"github.com/spec-kit/sales-crm/internal/repository"
)

// ReportService aggregates the visible collections into summaries.
type ReportService struct {
	collections *repository.Collections
}

// NewReportService constructs the service.
func NewReportService(collections *repository.Collections) *ReportService {
	return &ReportService{collections: collections}
}

// SalesPerformance is one user's sales over a period.
type SalesPerformance struct {
	UserID      string          `json:"userId"`
	Name        string          `json:"name"`
	Territory   string          `json:"territory,omitempty"`
	Deals       int             `json:"deals"`
	Revenue     decimal.Decimal `json:"revenue"`
	Commission  decimal.Decimal `json:"commission"`
	Target      decimal.Decimal `json:"target"`
	Achievement float64         `json:"achievement"`
}

// SalesSummary totals the period across every visible user.
type SalesSummary struct {
	From         string             `json:"from,omitempty"`
	To           string             `json:"to,omitempty"`
	TotalDeals   int                `json:"totalDeals"`
	TotalRevenue decimal.Decimal    `json:"totalRevenue"`
	ByUser       []SalesPerformance `json:"byUser"`
	ByStage      map[string]int     `json:"byStage"`
}

// SalesSummary reports revenue, deal count and target achievement per
// visible user. Closed-lost deals are counted per stage but earn no revenue.
func (s *ReportService) SalesSummary(ctx context.Context, actor *domain.User, from, to string) (*SalesSummary, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	span, err := parseDateRange(from, to)
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

	visible := privacy.VisibleUsers(actor, users)
	rows := make(map[string]*SalesPerformance, len(visible))
	order := make([]string, 0, len(visible))
	for _, u := range visible {
		rows[u.ID] = &SalesPerformance{
			UserID:    u.ID,
			Name:      u.Name,
			Territory: u.Territory,
			Target:    decimal.NewFromFloat(u.Target),
		}
		order = append(order, u.ID)
	}

	summary := &SalesSummary{From: from, To: to, ByStage: map[string]int{}}
	for _, rec := range privacy.VisibleSales(actor, users, sales) {
		if !span.contains(rec.Date) {
			continue
		}
		stage := string(rec.DealStage)
		if stage == "" {
			stage = "unspecified"
		}
		summary.ByStage[stage]++
		row, ok := rows[rec.UserID]
		if !ok || rec.DealStage == domain.DealStageClosedLost {
			continue
		}
		amount := decimal.NewFromFloat(rec.TotalAmount)
		row.Deals++
		row.Revenue = row.Revenue.Add(amount)
		row.Commission = row.Commission.Add(decimal.NewFromFloat(rec.Commission))
		summary.TotalDeals++
		summary.TotalRevenue = summary.TotalRevenue.Add(amount)
	}

	hundred := decimal.NewFromInt(100)
	for _, id := range order {
		row := rows[id]
		if row.Target.IsPositive() {
			row.Achievement = row.Revenue.Div(row.Target).Mul(hundred).Round(2).InexactFloat64()
		}
		summary.ByUser = append(summary.ByUser, *row)
	}
	sort.SliceStable(summary.ByUser, func(i, j int) bool {
		return summary.ByUser[i].Revenue.GreaterThan(summary.ByUser[j].Revenue)
	})
	if summary.ByUser == nil {
		summary.ByUser = []SalesPerformance{}
	}
	return summary, nil
}

// AttendanceStats is one user's attendance over a period.
type AttendanceStats struct {
	UserID  string  `json:"userId"`
	Name    string  `json:"name"`
	Present int     `json:"present"`
	Late    int     `json:"late"`
	Absent  int     `json:"absent"`
	Rate    float64 `json:"attendanceRate"`
}

// AttendanceSummary counts statuses per visible user. The rate is the share
// of recorded days the user attended, late days included.
func (s *ReportService) AttendanceSummary(ctx context.Context, actor *domain.User, from, to string) ([]AttendanceStats, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	span, err := parseDateRange(from, to)
	if err != nil {
		return nil, err
	}
	users, err := s.collections.Users(ctx)
	if err != nil {
		return nil, err
	}
	records, err := s.collections.Attendance(ctx)
	if err != nil {
		return nil, err
	}

	visible := privacy.VisibleUsers(actor, users)
	index := make(map[string]int, len(visible))
	out := make([]AttendanceStats, 0, len(visible))
	for _, u := range visible {
		index[u.ID] = len(out)
		out = append(out, AttendanceStats{UserID: u.ID, Name: u.Name})
	}
	for _, rec := range privacy.VisibleAttendance(actor, users, records) {
		i, ok := index[rec.UserID]
		if !ok || !span.contains(rec.Date) {
			continue
		}
		switch rec.Status {
		case domain.AttendancePresent:
			out[i].Present++
		case domain.AttendanceLate:
			out[i].Late++
		case domain.AttendanceAbsent:
			out[i].Absent++
		}
	}
	for i := range out {
		total := out[i].Present + out[i].Late + out[i].Absent
		if total > 0 {
			out[i].Rate = decimal.NewFromInt(int64(out[i].Present + out[i].Late)).
				Div(decimal.NewFromInt(int64(total))).
				Mul(decimal.NewFromInt(100)).
				Round(2).
				InexactFloat64()
		}
	}
	return out, nil
}

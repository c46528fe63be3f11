package service

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/sales-crm/internal/domain"
	"github.com/spec-kit/sales-crm/internal/privacy"
	"github.com/spec-kit/sales-crm/internal/realtime"
	"github.com/spec-kit/sales-crm/internal/repository"
	"github.com/spec-kit/sales-crm/internal/validation"
	apperrors "github.com/spec-kit/sales-crm/pkg/util/errorutil"
)

// SalesService manages sales records.
type SalesService struct {
	collections *repository.Collections
	sync        *realtime.Manager
	logger      *zap.Logger
	now         Clock
	newID       func() string
}

// SalesDependencies bundles requirements for the sales service.
type SalesDependencies struct {
	Collections *repository.Collections
	Sync        *realtime.Manager
	Logger      *zap.Logger
	Clock       Clock
}

// SaleInput is the editable part of a sales record. TotalAmount is always derived.
type SaleInput struct {
	UserID        string
	Date          string
	ProductName   string
	Customer      string
	Quantity      float64
	UnitPrice     float64
	Discount      float64
	CustomerEmail string
	CustomerPhone string
	Company       string
	Address       string
	PaymentMethod string
	PaymentStatus domain.PaymentStatus
	LeadSource    string
	Priority      domain.Priority
	Notes         string
	FollowUp      string
	Commission    float64
	Territory     string
	DealStage     domain.DealStage
}

// SalesFilter narrows List results.
type SalesFilter struct {
	UserID        string
	From          string
	To            string
	DealStage     domain.DealStage
	PaymentStatus domain.PaymentStatus
	Search        string
}

// NewSalesService constructs the service.
func NewSalesService(deps SalesDependencies) *SalesService {
	s := &SalesService{collections: deps.Collections, sync: deps.Sync, logger: deps.Logger, now: deps.Clock, newID: uuid.NewString}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = utcNow
	}
	return s
}

func (in SaleInput) validate() error {
	result := validation.ValidateSalesRecordInput(validation.SalesInput{
		ProductName:   in.ProductName,
		Customer:      in.Customer,
		Quantity:      in.Quantity,
		UnitPrice:     in.UnitPrice,
		Discount:      in.Discount,
		CustomerEmail: in.CustomerEmail,
		CustomerPhone: in.CustomerPhone,
		PaymentStatus: in.PaymentStatus,
		Priority:      in.Priority,
		DealStage:     in.DealStage,
	})
	violations := result.Errors
	if in.Commission < 0 {
		violations = append(violations, "Commission cannot be negative")
	}
	if in.Date != "" {
		if _, ok := domain.ParseDate(in.Date); !ok {
			violations = append(violations, "Invalid sale date")
		}
	}
	if len(violations) > 0 {
		return apperrors.NewValidationErrors("invalid sales record", violations)
	}
	return nil
}

// apply copies sanitized input onto rec and derives the total.
func (in SaleInput) apply(rec *domain.SalesRecord) {
	rec.ProductName = validation.Sanitize(in.ProductName)
	rec.Customer = validation.Sanitize(in.Customer)
	rec.Quantity = in.Quantity
	rec.UnitPrice = in.UnitPrice
	rec.Discount = in.Discount
	rec.TotalAmount = roundCents(rec.ExpectedTotal())
	rec.CustomerEmail = strings.TrimSpace(in.CustomerEmail)
	rec.CustomerPhone = strings.TrimSpace(in.CustomerPhone)
	rec.Company = validation.Sanitize(in.Company)
	rec.Address = validation.Sanitize(in.Address)
	rec.PaymentMethod = validation.Sanitize(in.PaymentMethod)
	rec.PaymentStatus = in.PaymentStatus
	rec.LeadSource = validation.Sanitize(in.LeadSource)
	rec.Priority = in.Priority
	rec.Notes = validation.Sanitize(in.Notes)
	rec.FollowUp = strings.TrimSpace(in.FollowUp)
	rec.Commission = in.Commission
	rec.Territory = validation.Sanitize(in.Territory)
	rec.DealStage = in.DealStage
	if in.Date != "" {
		rec.Date = strings.TrimSpace(in.Date)
	}
}

// Create records a sale for actor or, for managers and admins, for a user they can see.
func (s *SalesService) Create(ctx context.Context, actor *domain.User, in SaleInput) (*domain.SalesRecord, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if in.UserID == "" {
		in.UserID = actor.ID
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	users, err := s.collections.Users(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireVisible(actor, in.UserID, users); err != nil {
		return nil, err
	}
	owner, ok := domain.FindUser(users, in.UserID)
	if !ok {
		return nil, apperrors.NewNotFound("employee", map[string]any{"id": in.UserID})
	}

	now := s.now()
	rec := domain.SalesRecord{
		ID:        s.newID(),
		UserID:    owner.ID,
		Date:      domain.FormatDate(now),
		CreatedAt: domain.FormatTimestamp(now),
		UpdatedAt: domain.FormatTimestamp(now),
	}
	in.apply(&rec)
	if rec.Territory == "" {
		rec.Territory = owner.Territory
	}
	err = s.sync.MutateSales(ctx, actor.ID, func(sales []domain.SalesRecord) ([]domain.SalesRecord, error) {
		return append(sales, rec), nil
	})
	if err != nil {
		return nil, err
	}
	s.audit(ctx, "create", rec, actor.ID)
	return &rec, nil
}

// Update edits a sale and re-derives its total. Ownership does not change.
func (s *SalesService) Update(ctx context.Context, actor *domain.User, id string, in SaleInput) (*domain.SalesRecord, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	users, err := s.collections.Users(ctx)
	if err != nil {
		return nil, err
	}

	var rec domain.SalesRecord
	err = s.sync.MutateSales(ctx, actor.ID, func(sales []domain.SalesRecord) ([]domain.SalesRecord, error) {
		idx, err := locateSale(actor, id, users, sales)
		if err != nil {
			return nil, err
		}
		rec = sales[idx]
		in.apply(&rec)
		rec.UpdatedAt = domain.FormatTimestamp(s.now())
		sales[idx] = rec
		return sales, nil
	})
	if err != nil {
		return nil, err
	}
	s.audit(ctx, "update", rec, actor.ID)
	return &rec, nil
}

// Delete removes a sale.
func (s *SalesService) Delete(ctx context.Context, actor *domain.User, id string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	users, err := s.collections.Users(ctx)
	if err != nil {
		return err
	}

	var rec domain.SalesRecord
	err = s.sync.MutateSales(ctx, actor.ID, func(sales []domain.SalesRecord) ([]domain.SalesRecord, error) {
		idx, err := locateSale(actor, id, users, sales)
		if err != nil {
			return nil, err
		}
		rec = sales[idx]
		return append(sales[:idx:idx], sales[idx+1:]...), nil
	})
	if err != nil {
		return err
	}
	s.audit(ctx, "delete", rec, actor.ID)
	return nil
}

// Get returns one visible sale.
func (s *SalesService) Get(ctx context.Context, actor *domain.User, id string) (*domain.SalesRecord, error) {
	if err := requireActor(actor); err != nil {
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
	idx, err := locateSale(actor, id, users, sales)
	if err != nil {
		return nil, err
	}
	rec := sales[idx]
	return &rec, nil
}

// List returns the visible sales matching filter, newest first.
func (s *SalesService) List(ctx context.Context, actor *domain.User, filter SalesFilter) ([]domain.SalesRecord, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	span, err := parseDateRange(filter.From, filter.To)
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

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	out := []domain.SalesRecord{}
	for _, rec := range privacy.VisibleSales(actor, users, sales) {
		switch {
		case filter.UserID != "" && rec.UserID != filter.UserID:
			continue
		case filter.DealStage != "" && rec.DealStage != filter.DealStage:
			continue
		case filter.PaymentStatus != "" && rec.PaymentStatus != filter.PaymentStatus:
			continue
		case !span.contains(rec.Date):
			continue
		case search != "" && !strings.Contains(strings.ToLower(rec.Customer+" "+rec.ProductName+" "+rec.Company), search):
			continue
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}

// locateSale finds a sale actor may access.
func locateSale(actor *domain.User, id string, users []domain.User, sales []domain.SalesRecord) (int, error) {
	for i := range sales {
		if sales[i].ID != id {
			continue
		}
		if err := requireVisible(actor, sales[i].UserID, users); err != nil {
			return -1, err
		}
		return i, nil
	}
	return -1, apperrors.NewNotFound("sales record", map[string]any{"id": id})
}

func (s *SalesService) audit(ctx context.Context, action string, rec domain.SalesRecord, actorID string) {
	entry := domain.SalesLogEntry{
		Timestamp: domain.FormatTimestamp(s.now()),
		Action:    action,
		SaleID:    rec.ID,
		UserID:    rec.UserID,
		ActorID:   actorID,
		Amount:    rec.TotalAmount,
	}
	if err := s.collections.AppendSalesLog(ctx, entry); err != nil {
		s.logger.Warn("sales log append failed", zap.Error(err))
	}
}

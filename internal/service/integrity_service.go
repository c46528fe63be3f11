package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/sales-crm/internal/domain"
	"github.com/spec-kit/sales-crm/internal/integrity"
	"github.com/spec-kit/sales-crm/internal/realtime"
	"github.com/spec-kit/sales-crm/internal/repository"
	apperrors "github.com/spec-kit/sales-crm/pkg/util/errorutil"
)

// IntegrityService runs the integrity audit and repair against stored data.
type IntegrityService struct {
	collections *repository.Collections
	sync        *realtime.Manager
	logger      *zap.Logger
}

// IntegrityDependencies bundles requirements for the integrity service.
type IntegrityDependencies struct {
	Collections *repository.Collections
	Sync        *realtime.Manager
	Logger      *zap.Logger
}

// RepairOutcome is the result of a repair run and the audit that followed it.
type RepairOutcome struct {
	Fixes  []string            `json:"fixes"`
	Report integrity.FullReport `json:"report"`
}

// NewIntegrityService constructs the service.
func NewIntegrityService(deps IntegrityDependencies) *IntegrityService {
	s := &IntegrityService{collections: deps.Collections, sync: deps.Sync, logger: deps.Logger}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

func requireAdmin(actor *domain.User) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if actor.Role != domain.RoleAdmin {
		return apperrors.NewForbidden("admin role required")
	}
	return nil
}

func (s *IntegrityService) load(ctx context.Context) (integrity.Collections, error) {
	users, err := s.collections.Users(ctx)
	if err != nil {
		return integrity.Collections{}, err
	}
	sales, err := s.collections.Sales(ctx)
	if err != nil {
		return integrity.Collections{}, err
	}
	attendance, err := s.collections.Attendance(ctx)
	if err != nil {
		return integrity.Collections{}, err
	}
	return integrity.Collections{Users: users, Sales: sales, Attendance: attendance}, nil
}

// Validate audits all three collections.
func (s *IntegrityService) Validate(ctx context.Context, actor *domain.User) (*integrity.FullReport, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	data, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	report := integrity.ValidateAll(data)
	return &report, nil
}

// Repair applies the mechanical fixes and persists the repaired collections
// through the sync manager. All three write locks are held while the fixes are
// computed so no concurrent write is lost.
func (s *IntegrityService) Repair(ctx context.Context, actor *domain.User) (*RepairOutcome, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	var result integrity.RepairResult
	unchanged := func() bool { return len(result.Fixes) == 0 }
	err := s.sync.MutateUsers(ctx, actor.ID, func(users []domain.User) ([]domain.User, error) {
		err := s.sync.MutateSales(ctx, actor.ID, func(sales []domain.SalesRecord) ([]domain.SalesRecord, error) {
			err := s.sync.MutateAttendance(ctx, actor.ID, func(attendance []domain.AttendanceRecord) ([]domain.AttendanceRecord, error) {
				result = integrity.Repair(integrity.Collections{Users: users, Sales: sales, Attendance: attendance})
				if unchanged() {
					return nil, realtime.ErrNoChange
				}
				return result.Attendance, nil
			})
			if err != nil {
				return nil, err
			}
			if unchanged() {
				return nil, realtime.ErrNoChange
			}
			return result.Sales, nil
		})
		if err != nil {
			return nil, err
		}
		if unchanged() {
			return nil, realtime.ErrNoChange
		}
		return result.Users, nil
	})
	if err != nil {
		return nil, err
	}
	if !unchanged() {
		s.logger.Info("data repaired", zap.Int("fixes", len(result.Fixes)), zap.String("actor_id", actor.ID))
	}

	return &RepairOutcome{Fixes: result.Fixes, Report: integrity.ValidateAll(result.Collections)}, nil
}

package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/sales-crm/internal/config"
	"github.com/spec-kit/sales-crm/internal/domain"
	"github.com/spec-kit/sales-crm/internal/privacy"
	"github.com/spec-kit/sales-crm/internal/realtime"
	"github.com/spec-kit/sales-crm/internal/repository"
	"github.com/spec-kit/sales-crm/internal/validation"
	apperrors "github.com/spec-kit/sales-crm/pkg/util/errorutil"
)

// markedStartHour is the synthesized check-in hour for a manually marked present day.
const markedStartHour = 9

// AttendanceService manages daily attendance.
type AttendanceService struct {
	collections *repository.Collections
	sync        *realtime.Manager
	logger      *zap.Logger
	now         Clock
	newID       func() string
	lateHour    int
	lateMinute  int
}

// AttendanceDependencies bundles requirements for the attendance service.
type AttendanceDependencies struct {
	Collections *repository.Collections
	Sync        *realtime.Manager
	Logger      *zap.Logger
	Clock       Clock
}

// MarkInput sets a user's status for a day.
type MarkInput struct {
	UserID string
	Date   string
	Status domain.AttendanceStatus
	Notes  string
}

// AttendanceFilter narrows List results.
type AttendanceFilter struct {
	UserID string
	From   string
	To     string
	Status domain.AttendanceStatus
}

// NewAttendanceService constructs the service.
func NewAttendanceService(cfg config.AttendanceConfig, deps AttendanceDependencies) *AttendanceService {
	hour, minute := cfg.LateCutoff()
	s := &AttendanceService{
		collections: deps.Collections,
		sync:        deps.Sync,
		logger:      deps.Logger,
		now:         deps.Clock,
		newID:       uuid.NewString,
		lateHour:    hour,
		lateMinute:  minute,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = utcNow
	}
	return s
}

func (s *AttendanceService) lateCutoff(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), s.lateHour, s.lateMinute, 0, 0, day.Location())
}

func findAttendance(records []domain.AttendanceRecord, userID, date string) int {
	for i := range records {
		if records[i].UserID == userID && records[i].Date == date {
			return i
		}
	}
	return -1
}

// CheckIn records actor's arrival for today. Arrivals after the cutoff are late.
func (s *AttendanceService) CheckIn(ctx context.Context, actor *domain.User) (*domain.AttendanceRecord, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	now := s.now()
	date := domain.FormatDate(now)
	status := domain.AttendancePresent
	if now.After(s.lateCutoff(now)) {
		status = domain.AttendanceLate
	}

	var rec domain.AttendanceRecord
	err := s.sync.MutateAttendance(ctx, actor.ID, func(records []domain.AttendanceRecord) ([]domain.AttendanceRecord, error) {
		idx := findAttendance(records, actor.ID, date)
		if idx >= 0 && records[idx].CheckIn != "" {
			return nil, apperrors.NewConflict("already checked in today", map[string]any{"date": date})
		}
		rec = domain.AttendanceRecord{ID: s.newID(), UserID: actor.ID, Date: date}
		if idx >= 0 {
			rec = records[idx]
		}
		rec.Status = status
		rec.CheckIn = domain.FormatTimestamp(now)
		rec.CheckOut = ""
		if idx >= 0 {
			records[idx] = rec
			return records, nil
		}
		return append(records, rec), nil
	})
	if err != nil {
		return nil, err
	}
	s.audit(ctx, "check-in", rec, actor.ID)
	return &rec, nil
}

// CheckOut records actor's departure for today.
func (s *AttendanceService) CheckOut(ctx context.Context, actor *domain.User) (*domain.AttendanceRecord, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	now := s.now()
	date := domain.FormatDate(now)
	var rec domain.AttendanceRecord
	err := s.sync.MutateAttendance(ctx, actor.ID, func(records []domain.AttendanceRecord) ([]domain.AttendanceRecord, error) {
		idx := findAttendance(records, actor.ID, date)
		if idx < 0 || records[idx].CheckIn == "" {
			return nil, apperrors.NewConflict("not checked in today", map[string]any{"date": date})
		}
		if records[idx].CheckOut != "" {
			return nil, apperrors.NewConflict("already checked out today", map[string]any{"date": date})
		}
		records[idx].CheckOut = domain.FormatTimestamp(now)
		rec = records[idx]
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	s.audit(ctx, "check-out", rec, actor.ID)
	return &rec, nil
}

// Mark sets the status of a user's day on their behalf. Present and late days
// without a check-in get one synthesized; absent days lose their timestamps.
func (s *AttendanceService) Mark(ctx context.Context, actor *domain.User, in MarkInput) (*domain.AttendanceRecord, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !isPrivileged(actor) {
		return nil, apperrors.NewForbidden("only managers and admins can mark attendance")
	}
	if !in.Status.Valid() {
		return nil, apperrors.NewValidationError("invalid attendance status", map[string]any{"status": in.Status})
	}
	day, ok := domain.ParseDate(in.Date)
	if !ok {
		return nil, apperrors.NewValidationError("invalid attendance date", map[string]any{"date": in.Date})
	}

	users, err := s.collections.Users(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireVisible(actor, in.UserID, users); err != nil {
		return nil, err
	}
	if _, ok := domain.FindUser(users, in.UserID); !ok {
		return nil, apperrors.NewNotFound("employee", map[string]any{"id": in.UserID})
	}

	date := domain.FormatDate(day)
	var rec domain.AttendanceRecord
	err = s.sync.MutateAttendance(ctx, actor.ID, func(records []domain.AttendanceRecord) ([]domain.AttendanceRecord, error) {
		idx := findAttendance(records, in.UserID, date)
		rec = domain.AttendanceRecord{ID: s.newID(), UserID: in.UserID, Date: date}
		if idx >= 0 {
			rec = records[idx]
		}
		rec.Status = in.Status
		rec.MarkedBy = actor.ID
		if in.Notes != "" {
			rec.Notes = validation.Sanitize(in.Notes)
		}
		switch in.Status {
		case domain.AttendanceAbsent:
			rec.CheckIn, rec.CheckOut = "", ""
		case domain.AttendancePresent:
			if rec.CheckIn == "" {
				rec.CheckIn = domain.FormatTimestamp(day.Add(markedStartHour * time.Hour))
			}
		case domain.AttendanceLate:
			if rec.CheckIn == "" {
				rec.CheckIn = domain.FormatTimestamp(s.lateCutoff(day).Add(time.Minute))
			}
		}
		if idx >= 0 {
			records[idx] = rec
			return records, nil
		}
		return append(records, rec), nil
	})
	if err != nil {
		return nil, err
	}
	s.audit(ctx, "mark", rec, actor.ID)
	return &rec, nil
}

// List returns the visible attendance matching filter, newest first.
func (s *AttendanceService) List(ctx context.Context, actor *domain.User, filter AttendanceFilter) ([]domain.AttendanceRecord, error) {
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
	records, err := s.collections.Attendance(ctx)
	if err != nil {
		return nil, err
	}

	out := []domain.AttendanceRecord{}
	for _, rec := range privacy.VisibleAttendance(actor, users, records) {
		switch {
		case filter.UserID != "" && rec.UserID != filter.UserID:
			continue
		case filter.Status != "" && rec.Status != filter.Status:
			continue
		case !span.contains(rec.Date):
			continue
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}

func (s *AttendanceService) audit(ctx context.Context, action string, rec domain.AttendanceRecord, actorID string) {
	entry := domain.AttendanceLogEntry{
		Timestamp: domain.FormatTimestamp(s.now()),
		Action:    action,
		UserID:    rec.UserID,
		ActorID:   actorID,
		Date:      rec.Date,
		Status:    rec.Status,
	}
	if err := s.collections.AppendAttendanceLog(ctx, entry); err != nil {
		s.logger.Warn("attendance log append failed", zap.Error(err))
	}
}

// Package service implements the CRM use cases on top of the collections,
// the sync manager and the pure validation, integrity and privacy packages.
package service

import (
	"math"
	"strings"
	"time"

	"github.com/spec-kit/sales-crm/internal/domain"
	"github.com/spec-kit/sales-crm/internal/privacy"
	apperrors "github.com/spec-kit/sales-crm/pkg/util/errorutil"
)

// Clock returns the current time. Services default to UTC wall time.
type Clock func() time.Time

func utcNow() time.Time { return time.Now().UTC() }

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

func isPrivileged(actor *domain.User) bool {
	return actor != nil && (actor.Role == domain.RoleAdmin || actor.Role == domain.RoleManager)
}

func requireActor(actor *domain.User) error {
	if actor == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	return nil
}

// requireVisible fails unless actor may see targetID's data.
func requireVisible(actor *domain.User, targetID string, users []domain.User) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if !privacy.CanViewUserData(actor, targetID, users) {
		return apperrors.NewForbidden("not allowed to access this employee's data")
	}
	return nil
}

// dateRange is an inclusive [from, to] day filter; zero bounds are open.
type dateRange struct {
	from, to time.Time
}

func parseDateRange(from, to string) (dateRange, error) {
	var r dateRange
	if strings.TrimSpace(from) != "" {
		t, ok := domain.ParseDate(from)
		if !ok {
			return r, apperrors.NewValidationError("invalid from date", map[string]any{"from": from})
		}
		r.from = t
	}
	if strings.TrimSpace(to) != "" {
		t, ok := domain.ParseDate(to)
		if !ok {
			return r, apperrors.NewValidationError("invalid to date", map[string]any{"to": to})
		}
		r.to = t
	}
	if !r.from.IsZero() && !r.to.IsZero() && r.to.Before(r.from) {
		return r, apperrors.NewValidationError("to date is before from date", nil)
	}
	return r, nil
}

// contains reports whether the record date falls in the range. Unparseable
// dates only match an unbounded range.
func (r dateRange) contains(raw string) bool {
	if r.from.IsZero() && r.to.IsZero() {
		return true
	}
	d, ok := domain.ParseDate(raw)
	if !ok {
		return false
	}
	if !r.from.IsZero() && d.Before(r.from) {
		return false
	}
	if !r.to.IsZero() && d.After(r.to) {
		return false
	}
	return true
}

func userIndex(users []domain.User, id string) int {
	for i := range users {
		if users[i].ID == id {
			return i
		}
	}
	return -1
}

// Package repository reads and writes the JSON-serialized collections kept in
// the record store under fixed, namespaced keys.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/sales-crm/internal/domain"
	"github.com/spec-kit/sales-crm/internal/persistence"
)

// Logical key names; the stored key is the namespace followed by the name.
const (
	KeyUsers            = "users"
	KeySales            = "sales"
	KeyAttendance       = "attendance"
	KeyTargets          = "targets"
	KeyCurrentUser      = "currentUser"
	KeyProducts         = "products"
	KeySyncLog          = "syncLog"
	KeyLoginLog         = "loginLog"
	KeySalesLog         = "salesLog"
	KeyAttendanceLog    = "attendanceLog"
	KeyProfileUpdateLog = "profileUpdateLog"
	KeyExportLog        = "exportLog"
)

// DefaultLogCapacity bounds every append-only log.
const DefaultLogCapacity = 100

// Collections is typed access to the record store.
type Collections struct {
	store     persistence.RecordStore
	namespace string
	logCap    int
	logger    *zap.Logger

	// logMu guards log appends, targetsMu target upserts.
	logMu     sync.Mutex
	targetsMu sync.Mutex
}

// NewCollections wraps store. logCap <= 0 selects DefaultLogCapacity.
func NewCollections(store persistence.RecordStore, namespace string, logCap int, logger *zap.Logger) *Collections {
	if logCap <= 0 {
		logCap = DefaultLogCapacity
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collections{store: store, namespace: namespace, logCap: logCap, logger: logger}
}

// Key returns the stored key for a logical name.
func (c *Collections) Key(name string) string {
	return c.namespace + name
}

// Namespace returns the key prefix shared by every stored collection.
func (c *Collections) Namespace() string {
	return c.namespace
}

// Store exposes the underlying record store.
func (c *Collections) Store() persistence.RecordStore {
	return c.store
}

func loadList[T any](ctx context.Context, c *Collections, name string, fallback func() []T) ([]T, error) {
	raw, ok, err := c.store.Get(ctx, c.Key(name))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if !ok || raw == "" || raw == "null" {
		return fallback(), nil
	}
	var out []T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		c.logger.Warn("malformed collection, using default", zap.String("key", c.Key(name)), zap.Error(err))
		return fallback(), nil
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func saveJSON(ctx context.Context, c *Collections, name string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := c.store.Set(ctx, c.Key(name), string(payload)); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func emptyList[T any]() []T { return []T{} }

// Users loads the user collection, falling back to the seed list.
func (c *Collections) Users(ctx context.Context) ([]domain.User, error) {
	return loadList(ctx, c, KeyUsers, SeedUsers)
}

func (c *Collections) SaveUsers(ctx context.Context, users []domain.User) error {
	return saveJSON(ctx, c, KeyUsers, nonNil(users))
}

// Sales loads the sales collection; absent means empty.
func (c *Collections) Sales(ctx context.Context) ([]domain.SalesRecord, error) {
	return loadList(ctx, c, KeySales, emptyList[domain.SalesRecord])
}

func (c *Collections) SaveSales(ctx context.Context, sales []domain.SalesRecord) error {
	return saveJSON(ctx, c, KeySales, nonNil(sales))
}

// Attendance loads the attendance collection; absent means empty.
func (c *Collections) Attendance(ctx context.Context) ([]domain.AttendanceRecord, error) {
	return loadList(ctx, c, KeyAttendance, emptyList[domain.AttendanceRecord])
}

func (c *Collections) SaveAttendance(ctx context.Context, records []domain.AttendanceRecord) error {
	return saveJSON(ctx, c, KeyAttendance, nonNil(records))
}

// Products loads the product catalog, falling back to the seed catalog.
func (c *Collections) Products(ctx context.Context) ([]domain.Product, error) {
	return loadList(ctx, c, KeyProducts, SeedProducts)
}

func (c *Collections) SaveProducts(ctx context.Context, products []domain.Product) error {
	return saveJSON(ctx, c, KeyProducts, nonNil(products))
}

// Targets loads the monthly targets; absent means empty.
func (c *Collections) Targets(ctx context.Context) ([]domain.Target, error) {
	return loadList(ctx, c, KeyTargets, emptyList[domain.Target])
}

func (c *Collections) SaveTargets(ctx context.Context, targets []domain.Target) error {
	c.targetsMu.Lock()
	defer c.targetsMu.Unlock()
	return saveJSON(ctx, c, KeyTargets, nonNil(targets))
}

// UpsertTarget replaces the target for the same user and month, or adds it.
// Targets are kept ordered by month, then user.
func (c *Collections) UpsertTarget(ctx context.Context, target domain.Target) error {
	c.targetsMu.Lock()
	defer c.targetsMu.Unlock()

	targets, err := c.Targets(ctx)
	if err != nil {
		return err
	}
	replaced := false
	for i := range targets {
		if targets[i].UserID == target.UserID && targets[i].Month == target.Month {
			targets[i] = target
			replaced = true
		}
	}
	if !replaced {
		targets = append(targets, target)
	}
	sort.SliceStable(targets, func(i, j int) bool {
		if targets[i].Month != targets[j].Month {
			return targets[i].Month < targets[j].Month
		}
		return targets[i].UserID < targets[j].UserID
	})
	return saveJSON(ctx, c, KeyTargets, targets)
}

// CurrentUser returns the session-user slot, or nil when nobody is signed in.
func (c *Collections) CurrentUser(ctx context.Context) (*domain.User, error) {
	raw, ok, err := c.store.Get(ctx, c.Key(KeyCurrentUser))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", KeyCurrentUser, err)
	}
	if !ok || raw == "" || raw == "null" {
		return nil, nil
	}
	var user domain.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		c.logger.Warn("malformed session user, ignoring", zap.Error(err))
		return nil, nil
	}
	return &user, nil
}

// SetCurrentUser replaces the session-user slot; nil clears it.
func (c *Collections) SetCurrentUser(ctx context.Context, user *domain.User) error {
	return saveJSON(ctx, c, KeyCurrentUser, user)
}

// Bootstrap materializes the seed users and products when their keys are absent.
func (c *Collections) Bootstrap(ctx context.Context) error {
	for name, seed := range map[string]any{KeyUsers: SeedUsers(), KeyProducts: SeedProducts()} {
		_, ok, err := c.store.Get(ctx, c.Key(name))
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if ok {
			continue
		}
		if err := saveJSON(ctx, c, name, seed); err != nil {
			return err
		}
		c.logger.Info("seeded collection", zap.String("key", c.Key(name)))
	}
	return nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

package realtime

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/sales-crm/internal/domain"
)

// ErrNoChange is returned by a mutate function to skip the write.
var ErrNoChange = errors.New("realtime: no change")

// UpdateUsers persists users, notifies user listeners, logs the write and
// queues a full re-sync.
func (m *Manager) UpdateUsers(ctx context.Context, actorID string, users []domain.User) error {
	return write(ctx, m, CategoryUsers, actorID, users, m.collections.SaveUsers)
}

// UpdateSales persists sales, notifies sales listeners, logs the write and
// queues a full re-sync.
func (m *Manager) UpdateSales(ctx context.Context, actorID string, sales []domain.SalesRecord) error {
	return write(ctx, m, CategorySales, actorID, sales, m.collections.SaveSales)
}

// UpdateAttendance persists attendance, notifies attendance listeners, logs
// the write and queues a full re-sync.
func (m *Manager) UpdateAttendance(ctx context.Context, actorID string, records []domain.AttendanceRecord) error {
	return write(ctx, m, CategoryAttendance, actorID, records, m.collections.SaveAttendance)
}

// MutateUsers loads users, applies fn and writes the result like UpdateUsers,
// holding the users write lock throughout so concurrent mutations never
// overwrite each other. An error from fn aborts the write and is returned,
// except ErrNoChange which aborts it silently.
func (m *Manager) MutateUsers(ctx context.Context, actorID string, fn func([]domain.User) ([]domain.User, error)) error {
	return mutate(ctx, m, CategoryUsers, actorID, m.collections.Users, m.collections.SaveUsers, fn)
}

// MutateSales is MutateUsers for the sales collection.
func (m *Manager) MutateSales(ctx context.Context, actorID string, fn func([]domain.SalesRecord) ([]domain.SalesRecord, error)) error {
	return mutate(ctx, m, CategorySales, actorID, m.collections.Sales, m.collections.SaveSales, fn)
}

// MutateAttendance is MutateUsers for the attendance collection.
func (m *Manager) MutateAttendance(ctx context.Context, actorID string, fn func([]domain.AttendanceRecord) ([]domain.AttendanceRecord, error)) error {
	return mutate(ctx, m, CategoryAttendance, actorID, m.collections.Attendance, m.collections.SaveAttendance, fn)
}

func (m *Manager) writeLock(category Category) *sync.Mutex {
	return m.writeLocks[category]
}

func mutate[T any](ctx context.Context, m *Manager, category Category, actorID string,
	load func(context.Context) ([]T, error), save func(context.Context, []T) error,
	fn func([]T) ([]T, error)) error {
	lock := m.writeLock(category)
	lock.Lock()
	defer lock.Unlock()

	records, err := load(ctx)
	if err != nil {
		return err
	}
	next, err := fn(records)
	if errors.Is(err, ErrNoChange) {
		return nil
	}
	if err != nil {
		return err
	}
	return persist(ctx, m, category, actorID, next, save)
}

func write[T any](ctx context.Context, m *Manager, category Category, actorID string, records []T, save func(context.Context, []T) error) error {
	lock := m.writeLock(category)
	lock.Lock()
	defer lock.Unlock()
	return persist(ctx, m, category, actorID, records, save)
}

// persist expects the category write lock to be held.
func persist[T any](ctx context.Context, m *Manager, category Category, actorID string, records []T, save func(context.Context, []T) error) error {
	if records == nil {
		records = []T{}
	}

	m.passMu.Lock()
	if err := save(ctx, records); err != nil {
		m.passMu.Unlock()
		m.logger.Error("collection write failed", zap.String("category", string(category)), zap.Error(err))
		return err
	}
	m.metrics.RecordCollectionWrite(string(category))
	m.broadcast(ctx, category, TriggerWrite, records)
	m.passMu.Unlock()

	entry := domain.SyncLogEntry{
		Timestamp:   domain.FormatTimestamp(m.now()),
		DataType:    string(category),
		RecordCount: len(records),
		UserID:      actorID,
	}
	if err := m.collections.AppendSyncLog(ctx, entry); err != nil {
		m.logger.Warn("sync log append failed", zap.Error(err))
	}

	m.requestSync(TriggerResync)
	return nil
}

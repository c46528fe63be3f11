// Package realtime keeps in-process subscribers in step with the record store:
// it re-reads the collections on a timer and on demand and fans them out to
// per-category listeners. It is also the write path for the three collections.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/sales-crm/internal/domain"
	"github.com/spec-kit/sales-crm/internal/observability"
	"github.com/spec-kit/sales-crm/internal/persistence"
	"github.com/spec-kit/sales-crm/internal/repository"
)

// DefaultInterval is the polling period used when none is configured.
const DefaultInterval = 10 * time.Second

// ErrAlreadyStarted is returned by Start on a running manager.
var ErrAlreadyStarted = errors.New("sync manager already started")

// Options tunes a Manager.
type Options struct {
	Interval time.Duration
}

// Manager owns the listener registry, the polling loop and the collection
// write path.
type Manager struct {
	collections *repository.Collections
	logger      *zap.Logger
	metrics     *observability.Metrics
	interval    time.Duration

	mu        sync.RWMutex
	listeners map[Category]map[ListenerID]Listener
	nextID    ListenerID

	stateMu  sync.Mutex
	lastSync time.Time
	visible  bool
	cancel   context.CancelFunc
	done     chan struct{}

	// passMu serializes sync passes and writes so listeners never observe an
	// older snapshot after a newer one from the same manager.
	passMu sync.Mutex
	resync chan Trigger
	now    func() time.Time

	// writeLocks serialize read-modify-write cycles per collection.
	writeLocks map[Category]*sync.Mutex
}

// NewManager builds a stopped manager.
func NewManager(collections *repository.Collections, logger *zap.Logger, metrics *observability.Metrics, opts Options) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Manager{
		collections: collections,
		logger:      logger.Named("realtime"),
		metrics:     metrics,
		interval:    interval,
		listeners:   make(map[Category]map[ListenerID]Listener),
		visible:     true,
		resync:      make(chan Trigger, 1),
		now:         func() time.Time { return time.Now().UTC() },
		writeLocks: map[Category]*sync.Mutex{
			CategoryUsers:      {},
			CategorySales:      {},
			CategoryAttendance: {},
		},
	}
}

// AddListener registers fn for category and returns its handle.
func (m *Manager) AddListener(category Category, fn Listener) ListenerID {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := m.nextID
	if m.listeners[category] == nil {
		m.listeners[category] = make(map[ListenerID]Listener)
	}
	m.listeners[category][id] = fn
	return id
}

// RemoveListener unregisters id. Unknown ids are ignored.
func (m *Manager) RemoveListener(category Category, id ListenerID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if set, ok := m.listeners[category]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(m.listeners, category)
		}
	}
}

// ListenerCount returns the number of listeners registered for category.
func (m *Manager) ListenerCount(category Category) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.listeners[category])
}

// Start runs the initial sync and launches the polling loop. When the
// collections live in a store shared between processes, writes from other
// processes also trigger a sync.
func (m *Manager) Start(ctx context.Context) error {
	m.stateMu.Lock()
	if m.cancel != nil {
		m.stateMu.Unlock()
		return ErrAlreadyStarted
	}
	loopCtx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})
	m.stateMu.Unlock()

	if err := m.sync(ctx, TriggerStart); err != nil {
		m.logger.Warn("initial sync failed", zap.Error(err))
	}

	if watcher, ok := m.collections.Store().(persistence.ChangeWatcher); ok {
		go func() {
			if err := watcher.Watch(loopCtx, m.HandleStorageEvent); err != nil && !errors.Is(err, context.Canceled) {
				m.logger.Warn("store watch stopped", zap.Error(err))
			}
		}()
	}
	go m.loop(loopCtx, m.done)
	m.logger.Info("sync manager started", zap.Duration("interval", m.interval))
	return nil
}

// Stop halts the loop and clears the listener registry. It is safe to call on
// a stopped manager.
func (m *Manager) Stop() {
	m.stateMu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.stateMu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	m.mu.Lock()
	m.listeners = make(map[Category]map[ListenerID]Listener)
	m.mu.Unlock()
}

func (m *Manager) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = m.sync(ctx, TriggerInterval)
		case trigger := <-m.resync:
			_ = m.sync(ctx, trigger)
		}
	}
}

// requestSync queues a pass for the loop. A pending request already covers
// any new one, so a full queue drops the request.
func (m *Manager) requestSync(trigger Trigger) {
	select {
	case m.resync <- trigger:
	default:
	}
}

// ForceSync re-reads and broadcasts every collection before returning.
func (m *Manager) ForceSync(ctx context.Context) error {
	return m.sync(ctx, TriggerForce)
}

// SetVisibility records the host's foreground state; becoming visible after
// being hidden queues a sync.
func (m *Manager) SetVisibility(visible bool) {
	m.stateMu.Lock()
	wasHidden := !m.visible
	m.visible = visible
	m.stateMu.Unlock()

	if visible && wasHidden {
		m.requestSync(TriggerVisibility)
	}
}

// HandleStorageEvent queues a sync when key belongs to this system's namespace.
func (m *Manager) HandleStorageEvent(key string) {
	ns := m.collections.Namespace()
	if len(key) < len(ns) || key[:len(ns)] != ns {
		return
	}
	m.logger.Debug("external store change", zap.String("key", key))
	m.requestSync(TriggerStorage)
}

// LastSync returns the completion time of the most recent successful pass.
func (m *Manager) LastSync() time.Time {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	return m.lastSync
}

// sync reads all three collections and broadcasts them. A read failure aborts
// the pass before anything is delivered.
func (m *Manager) sync(ctx context.Context, trigger Trigger) error {
	m.passMu.Lock()
	defer m.passMu.Unlock()

	users, err := m.collections.Users(ctx)
	if err == nil {
		var sales []domain.SalesRecord
		if sales, err = m.collections.Sales(ctx); err == nil {
			var attendance []domain.AttendanceRecord
			if attendance, err = m.collections.Attendance(ctx); err == nil {
				m.broadcast(ctx, CategoryUsers, trigger, users)
				m.broadcast(ctx, CategorySales, trigger, sales)
				m.broadcast(ctx, CategoryAttendance, trigger, attendance)
			}
		}
	}
	if err != nil {
		m.metrics.RecordSyncFailure()
		m.logger.Error("sync pass failed", zap.String("trigger", string(trigger)), zap.Error(err))
		return fmt.Errorf("sync: %w", err)
	}

	now := m.now()
	m.stateMu.Lock()
	m.lastSync = now
	m.stateMu.Unlock()
	m.broadcast(ctx, CategorySyncTime, trigger, domain.FormatTimestamp(now))
	m.metrics.RecordSyncPass(string(trigger))
	return nil
}

// broadcast delivers payload to every listener of category in registration order.
func (m *Manager) broadcast(ctx context.Context, category Category, trigger Trigger, payload any) {
	m.mu.RLock()
	set := m.listeners[category]
	ids := make([]ListenerID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	fns := make(map[ListenerID]Listener, len(set))
	for id, fn := range set {
		fns[id] = fn
	}
	m.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	event := Event{Category: category, Trigger: trigger, Timestamp: m.now(), Payload: payload}
	for _, id := range ids {
		m.deliver(ctx, id, fns[id], event)
	}
}

func (m *Manager) deliver(ctx context.Context, id ListenerID, fn Listener, event Event) {
	defer func() {
		if r := recover(); r != nil {
			m.metrics.RecordListenerFailure(string(event.Category))
			m.logger.Error("listener panicked",
				zap.String("category", string(event.Category)),
				zap.Uint64("listener", uint64(id)),
				zap.Any("panic", r),
			)
		}
	}()
	if err := fn(ctx, event); err != nil {
		m.metrics.RecordListenerFailure(string(event.Category))
		m.logger.Warn("listener failed",
			zap.String("category", string(event.Category)),
			zap.Uint64("listener", uint64(id)),
			zap.Error(err),
		)
	}
}

package service

import (
	"context"
	"reflect"

	"go.uber.org/zap"

	"github.com/spec-kit/sales-crm/internal/realtime"
)

// ActivityService logs collection changes seen by the sync manager.
type ActivityService struct {
	sync   *realtime.Manager
	logger *zap.Logger
	ids    map[realtime.Category]realtime.ListenerID
}

// NewActivityService creates the service.
func NewActivityService(sync *realtime.Manager, logger *zap.Logger) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{sync: sync, logger: logger.Named("activity"), ids: map[realtime.Category]realtime.ListenerID{}}
}

// RegisterHandlers subscribes to the data categories.
func (a *ActivityService) RegisterHandlers() {
	if a.sync == nil {
		return
	}
	for _, c := range []realtime.Category{realtime.CategoryUsers, realtime.CategorySales, realtime.CategoryAttendance} {
		a.ids[c] = a.sync.AddListener(c, a.handleCollection)
	}
	a.ids[realtime.CategorySyncTime] = a.sync.AddListener(realtime.CategorySyncTime, a.handleSyncTime)
}

// UnregisterHandlers removes every subscription made by RegisterHandlers.
func (a *ActivityService) UnregisterHandlers() {
	for c, id := range a.ids {
		a.sync.RemoveListener(c, id)
		delete(a.ids, c)
	}
}

func (a *ActivityService) handleCollection(_ context.Context, event realtime.Event) error {
	size := 0
	if v := reflect.ValueOf(event.Payload); v.Kind() == reflect.Slice {
		size = v.Len()
	}
	fields := []zap.Field{
		zap.String("category", string(event.Category)),
		zap.String("trigger", string(event.Trigger)),
		zap.Int("records", size),
	}
	if event.Trigger == realtime.TriggerWrite {
		a.logger.Info("collection written", fields...)
		return nil
	}
	a.logger.Debug("collection synced", fields...)
	return nil
}

func (a *ActivityService) handleSyncTime(_ context.Context, event realtime.Event) error {
	a.logger.Debug("sync completed", zap.String("trigger", string(event.Trigger)), zap.Any("at", event.Payload))
	return nil
}

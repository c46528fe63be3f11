package realtime

import (
	"context"
	"time"
)

// Category names a broadcast channel of the manager.
type Category string

const (
	CategoryUsers      Category = "users"
	CategorySales      Category = "sales"
	CategoryAttendance Category = "attendance"
	CategorySyncTime   Category = "syncTime"
)

// Categories lists every category in broadcast order.
var Categories = []Category{CategoryUsers, CategorySales, CategoryAttendance, CategorySyncTime}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Trigger identifies what caused a notification.
type Trigger string

const (
	TriggerStart      Trigger = "start"
	TriggerInterval   Trigger = "interval"
	TriggerVisibility Trigger = "visibility"
	TriggerStorage    Trigger = "storage"
	TriggerForce      Trigger = "force"
	TriggerWrite      Trigger = "write"
	// TriggerResync marks the full pass queued after a write.
	TriggerResync     Trigger = "resync"
)

// Event is one delivery to a listener. Payload holds the full collection for
// the category ([]domain.User, []domain.SalesRecord or []domain.AttendanceRecord),
// or the formatted sync timestamp for CategorySyncTime.
type Event struct {
	Category  Category  `json:"category"`
	Trigger   Trigger   `json:"trigger"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// Listener handles a broadcast. Returned errors are logged and do not stop
// delivery to other listeners. Listeners run while the manager holds its pass
// lock and must not call the manager's Update or ForceSync methods.
type Listener func(context.Context, Event) error

// ListenerID identifies a registration for removal.
type ListenerID uint64

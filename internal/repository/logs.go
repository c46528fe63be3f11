package repository

import (
	"context"

	"github.com/spec-kit/sales-crm/internal/domain"
)

// appendLog adds entry to the named log, keeping only the newest logCap entries.
func appendLog[T any](ctx context.Context, c *Collections, name string, entry T) error {
	c.logMu.Lock()
	defer c.logMu.Unlock()

	entries, err := loadList(ctx, c, name, emptyList[T])
	if err != nil {
		return err
	}
	entries = append(entries, entry)
	if over := len(entries) - c.logCap; over > 0 {
		entries = entries[over:]
	}
	return saveJSON(ctx, c, name, entries)
}

func (c *Collections) AppendSyncLog(ctx context.Context, entry domain.SyncLogEntry) error {
	return appendLog(ctx, c, KeySyncLog, entry)
}

// SyncLog returns the retained sync entries, oldest first.
func (c *Collections) SyncLog(ctx context.Context) ([]domain.SyncLogEntry, error) {
	return loadList(ctx, c, KeySyncLog, emptyList[domain.SyncLogEntry])
}

func (c *Collections) AppendLoginLog(ctx context.Context, entry domain.LoginLogEntry) error {
	return appendLog(ctx, c, KeyLoginLog, entry)
}

func (c *Collections) LoginLog(ctx context.Context) ([]domain.LoginLogEntry, error) {
	return loadList(ctx, c, KeyLoginLog, emptyList[domain.LoginLogEntry])
}

func (c *Collections) AppendSalesLog(ctx context.Context, entry domain.SalesLogEntry) error {
	return appendLog(ctx, c, KeySalesLog, entry)
}

func (c *Collections) AppendAttendanceLog(ctx context.Context, entry domain.AttendanceLogEntry) error {
	return appendLog(ctx, c, KeyAttendanceLog, entry)
}

func (c *Collections) AppendProfileUpdateLog(ctx context.Context, entry domain.ProfileUpdateLogEntry) error {
	return appendLog(ctx, c, KeyProfileUpdateLog, entry)
}

func (c *Collections) AppendExportLog(ctx context.Context, entry domain.ExportLogEntry) error {
	return appendLog(ctx, c, KeyExportLog, entry)
}

func (c *Collections) ExportLog(ctx context.Context) ([]domain.ExportLogEntry, error) {
	return loadList(ctx, c, KeyExportLog, emptyList[domain.ExportLogEntry])
}

package realtime

import (
	"context"
	"time"
)

// Stats summarizes the retained sync log.
type Stats struct {
	LastSync        *time.Time     `json:"lastSync"`
	TotalUpdates    int            `json:"totalUpdates"`
	UpdatesByType   map[string]int `json:"updatesByType"`
	LastUpdate      string         `json:"lastUpdate,omitempty"`
	ListenerCounts  map[string]int `json:"listenerCounts"`
	IntervalSeconds float64        `json:"intervalSeconds"`
}

// Stats reads the sync log and reports update counts per category.
func (m *Manager) Stats(ctx context.Context) (Stats, error) {
	entries, err := m.collections.SyncLog(ctx)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{
		TotalUpdates:    len(entries),
		UpdatesByType:   make(map[string]int),
		ListenerCounts:  make(map[string]int),
		IntervalSeconds: m.interval.Seconds(),
	}
	for _, e := range entries {
		stats.UpdatesByType[e.DataType]++
	}
	if n := len(entries); n > 0 {
		stats.LastUpdate = entries[n-1].Timestamp
	}
	if last := m.LastSync(); !last.IsZero() {
		stats.LastSync = &last
	}
	for _, c := range Categories {
		stats.ListenerCounts[string(c)] = m.ListenerCount(c)
	}
	return stats, nil
}

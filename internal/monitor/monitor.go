// Package monitor surfaces operationally significant queue states. It is
// read-only; it never mutates the queue and can run at any cadence.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"corral/internal/config"
	"corral/internal/logging"
	"corral/internal/queue"
)

// Severity grades an alert.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// StuckItem is a queue item that has stopped making progress, with its age
// computed at scan time.
type StuckItem struct {
	Item       *queue.Item
	AgeMinutes int
}

// Alert is a human-readable summary derived from stuck items.
type Alert struct {
	Severity Severity
	Title    string
	Message  string
	Count    int
}

// Monitor scans the queue for items that stopped making progress.
type Monitor struct {
	store             *queue.Store
	stuckAfter        time.Duration
	maxRetries        int
	criticalThreshold int
	logger            *slog.Logger

	now func() time.Time
}

// New builds a monitor over the queue store using the configured thresholds.
func New(store *queue.Store, cfg *config.Config, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Monitor{
		store:             store,
		stuckAfter:        time.Duration(cfg.Queue.StuckAfterMinutes) * time.Minute,
		maxRetries:        cfg.Queue.MaxRetries,
		criticalThreshold: cfg.Queue.AlertCriticalThreshold,
		logger:            logging.NewComponentLogger(logger, "monitor"),
		now:               time.Now,
	}
}

// CheckStuckItems scans the queue for items that stopped making progress.
// An item is stuck when it has sat in pending or processing longer than the
// configured window, or when it failed after exhausting its retries. An
// empty farmID scans all farms.
func (m *Monitor) CheckStuckItems(ctx context.Context, farmID string) ([]StuckItem, error) {
	items, err := m.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan queue: %w", err)
	}

	now := m.now()
	var stuck []StuckItem
	for _, item := range items {
		if farmID != "" && item.FarmID != farmID {
			continue
		}
		if !m.isStuck(item, now) {
			continue
		}
		stuck = append(stuck, StuckItem{
			Item:       item,
			AgeMinutes: int(item.Age(now).Minutes()),
		})
	}
	return stuck, nil
}

func (m *Monitor) isStuck(item *queue.Item, now time.Time) bool {
	switch item.Status {
	case queue.StatusPending, queue.StatusProcessing:
		return item.Age(now) > m.stuckAfter
	case queue.StatusFailed:
		return item.Retries >= m.maxRetries
	}
	return false
}

// StuckItemsCount counts stuck items across all farms.
func (m *Monitor) StuckItemsCount(ctx context.Context) (int, error) {
	stuck, err := m.CheckStuckItems(ctx, "")
	if err != nil {
		return 0, err
	}
	return len(stuck), nil
}

// GenerateSyncAlerts derives alerts from the current stuck-item scan. The
// first alert reports the stuck count, warning below the critical threshold
// and critical at or above it. A second alert aggregates the distinct error
// messages attached to stuck items.
func (m *Monitor) GenerateSyncAlerts(ctx context.Context, farmID string) ([]Alert, error) {
	stuck, err := m.CheckStuckItems(ctx, farmID)
	if err != nil {
		return nil, err
	}
	if len(stuck) == 0 {
		return nil, nil
	}

	severity := SeverityWarning
	if len(stuck) >= m.criticalThreshold {
		severity = SeverityCritical
	}
	alerts := []Alert{{
		Severity: severity,
		Title:    "Stuck sync items",
		Message:  fmt.Sprintf("%d items have not synced; oldest is %d minutes old", len(stuck), oldestAge(stuck)),
		Count:    len(stuck),
	}}

	if messages := distinctErrors(stuck); len(messages) > 0 {
		alerts = append(alerts, Alert{
			Severity: severity,
			Title:    "Sync errors",
			Message:  strings.Join(messages, "; "),
			Count:    len(messages),
		})
	}

	m.logger.Debug("generated sync alerts",
		logging.Int("stuck", len(stuck)),
		logging.Int("alerts", len(alerts)),
		logging.String("severity", string(severity)),
	)
	return alerts, nil
}

// HasActiveAlerts reports whether any alert would fire right now.
func (m *Monitor) HasActiveAlerts(ctx context.Context, farmID string) (bool, error) {
	alerts, err := m.GenerateSyncAlerts(ctx, farmID)
	if err != nil {
		return false, err
	}
	return len(alerts) > 0, nil
}

// SeverityColor maps a severity to a display color name.
func SeverityColor(severity Severity) string {
	switch severity {
	case SeverityCritical:
		return "red"
	case SeverityWarning:
		return "yellow"
	default:
		return "white"
	}
}

func oldestAge(stuck []StuckItem) int {
	oldest := 0
	for _, s := range stuck {
		if s.AgeMinutes > oldest {
			oldest = s.AgeMinutes
		}
	}
	return oldest
}

func distinctErrors(stuck []StuckItem) []string {
	seen := make(map[string]struct{})
	var messages []string
	for _, s := range stuck {
		msg := strings.TrimSpace(s.Item.ErrorMessage)
		if msg == "" {
			continue
		}
		if _, dup := seen[msg]; dup {
			continue
		}
		seen[msg] = struct{}{}
		messages = append(messages, msg)
	}
	sort.Strings(messages)
	return messages
}

package api

import (
	"time"

	"corral/internal/monitor"
	"corral/internal/queue"
)

// FromItem converts a stored queue item to its wire view.
func FromItem(item *queue.Item, now time.Time) QueueItemView {
	return QueueItemView{
		ID:           item.ID,
		Type:         string(item.Type),
		Status:       string(item.Status),
		FarmID:       item.FarmID,
		CreatedAt:    item.CreatedAt,
		ProcessedAt:  item.ProcessedAt,
		Retries:      item.Retries,
		Error:        item.ErrorMessage,
		OptimisticID: item.OptimisticID,
		AgeMinutes:   int(item.Age(now).Minutes()),
	}
}

// FromItems converts a queue listing.
func FromItems(items []*queue.Item, now time.Time) []QueueItemView {
	if len(items) == 0 {
		return nil
	}
	views := make([]QueueItemView, 0, len(items))
	for _, item := range items {
		views = append(views, FromItem(item, now))
	}
	return views
}

// FromHealth converts a queue health summary.
func FromHealth(health queue.HealthSummary) HealthView {
	return HealthView{
		Total:                health.Total,
		Pending:              health.Pending,
		Processing:           health.Processing,
		AwaitingConfirmation: health.AwaitingConfirmation,
		Completed:            health.Completed,
		Failed:               health.Failed,
	}
}

// FromAlert converts a monitor alert, attaching its display color.
func FromAlert(alert monitor.Alert) AlertView {
	return AlertView{
		Severity: string(alert.Severity),
		Title:    alert.Title,
		Message:  alert.Message,
		Count:    alert.Count,
		Color:    monitor.SeverityColor(alert.Severity),
	}
}

// FromAlerts converts an alert listing.
func FromAlerts(alerts []monitor.Alert) []AlertView {
	if len(alerts) == 0 {
		return nil
	}
	views := make([]AlertView, 0, len(alerts))
	for _, alert := range alerts {
		views = append(views, FromAlert(alert))
	}
	return views
}

// FromConflict converts a recorded conflict to its wire view. The client and
// server payloads stay out of the listing; the CLI fetches them on demand.
func FromConflict(conflict *queue.Conflict) ConflictView {
	return ConflictView{
		ID:         conflict.ID,
		FarmID:     conflict.FarmID,
		TableName:  conflict.TableName,
		RecordID:   conflict.RecordID,
		DetectedAt: conflict.DetectedAt,
		Resolved:   conflict.Resolved,
		Strategy:   string(conflict.Strategy),
	}
}

// FromConflicts converts a conflict listing.
func FromConflicts(conflicts []*queue.Conflict) []ConflictView {
	if len(conflicts) == 0 {
		return nil
	}
	views := make([]ConflictView, 0, len(conflicts))
	for _, conflict := range conflicts {
		views = append(views, FromConflict(conflict))
	}
	return views
}

package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a queue item.
type Status string

const (
	StatusPending              Status = "pending"
	StatusProcessing           Status = "processing"
	StatusAwaitingConfirmation Status = "awaiting_confirmation"
	StatusCompleted            Status = "completed"
	StatusFailed               Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusAwaitingConfirmation,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// Item represents one deferred operation persisted in SQLite.
//
// OptimisticID correlates the item with the optimistic UI record that was
// rendered before the server confirmed the change; it is generated at enqueue
// time and never changes for the life of the item. BaseVersion is the server
// timestamp a local edit was based on, captured so the conflict detector can
// recognize concurrent server changes.
type Item struct {
	ID           int64
	Type         ItemType
	Payload      Payload
	Status       Status
	CreatedAt    time.Time
	ProcessedAt  *time.Time
	Retries      int
	ErrorMessage string
	OptimisticID string
	BaseVersion  *time.Time
	FarmID       string
}

// Age returns how long the item has been in the queue.
func (i *Item) Age(now time.Time) time.Duration {
	return now.Sub(i.CreatedAt)
}

// IsTerminal reports whether the item has finished processing for good.
func (i *Item) IsTerminal() bool {
	return i.Status == StatusCompleted || i.Status == StatusFailed
}

// HealthSummary describes aggregated queue counts per lifecycle state.
type HealthSummary struct {
	Total                int
	Pending              int
	Processing           int
	AwaitingConfirmation int
	Completed            int
	Failed               int
}

// ResolutionStrategy names how a conflict was (or should be) resolved.
type ResolutionStrategy string

const (
	ResolutionClientWins ResolutionStrategy = "client_wins"
	ResolutionServerWins ResolutionStrategy = "server_wins"
	ResolutionMerged     ResolutionStrategy = "merged"
)

// ParseResolutionStrategy converts a string into a known strategy.
func ParseResolutionStrategy(value string) (ResolutionStrategy, bool) {
	switch ResolutionStrategy(strings.ToLower(strings.TrimSpace(value))) {
	case ResolutionClientWins:
		return ResolutionClientWins, true
	case ResolutionServerWins:
		return ResolutionServerWins, true
	case ResolutionMerged:
		return ResolutionMerged, true
	default:
		return "", false
	}
}

// Conflict is a detected divergence between a local edit and the server's
// current state for one record. Conflicts are retained after resolution as an
// audit trail; they are never deleted automatically.
type Conflict struct {
	ID           int64
	FarmID       string
	TableName    string
	RecordID     string
	ClientData   map[string]any
	ServerData   map[string]any
	DetectedAt   time.Time
	Resolved     bool
	Strategy     ResolutionStrategy
	ResolvedData map[string]any
}

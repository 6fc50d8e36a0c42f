package api

import "time"

// QueueItemView is the wire representation of a queue item.
type QueueItemView struct {
	ID           int64      `json:"id"`
	Type         string     `json:"type"`
	Status       string     `json:"status"`
	FarmID       string     `json:"farm_id"`
	CreatedAt    time.Time  `json:"created_at"`
	ProcessedAt  *time.Time `json:"processed_at,omitempty"`
	Retries      int        `json:"retries"`
	Error        string     `json:"error,omitempty"`
	OptimisticID string     `json:"optimistic_id"`
	AgeMinutes   int        `json:"age_minutes"`
}

// QueueListResponse wraps a queue listing.
type QueueListResponse struct {
	Items []QueueItemView `json:"items"`
}

// QueueItemResponse wraps a single queue item.
type QueueItemResponse struct {
	Item QueueItemView `json:"item"`
}

// HealthView aggregates queue counts per lifecycle state.
type HealthView struct {
	Total                int `json:"total"`
	Pending              int `json:"pending"`
	Processing           int `json:"processing"`
	AwaitingConfirmation int `json:"awaiting_confirmation"`
	Completed            int `json:"completed"`
	Failed               int `json:"failed"`
}

// DaemonStatus is the wire representation of daemon runtime state.
type DaemonStatus struct {
	Running      bool       `json:"running"`
	PID          int        `json:"pid"`
	QueueDBPath  string     `json:"queue_db_path"`
	LockFilePath string     `json:"lock_file_path"`
	Queue        HealthView `json:"queue"`
	Conflicts    int        `json:"unresolved_conflicts"`
}

// AlertView is the wire representation of a monitor alert.
type AlertView struct {
	Severity string `json:"severity"`
	Title    string `json:"title"`
	Message  string `json:"message"`
	Count    int    `json:"count"`
	Color    string `json:"color"`
}

// AlertsResponse wraps the active alert list.
type AlertsResponse struct {
	Alerts []AlertView `json:"alerts"`
}

// ConflictView is the wire representation of a recorded conflict.
type ConflictView struct {
	ID         int64     `json:"id"`
	FarmID     string    `json:"farm_id"`
	TableName  string    `json:"table_name"`
	RecordID   string    `json:"record_id"`
	DetectedAt time.Time `json:"detected_at"`
	Resolved   bool      `json:"resolved"`
	Strategy   string    `json:"strategy,omitempty"`
}

// ConflictsResponse wraps a conflict listing.
type ConflictsResponse struct {
	Conflicts []ConflictView `json:"conflicts"`
}

// SyncResponse summarizes a triggered sync pass.
type SyncResponse struct {
	Processed       int     `json:"processed"`
	Failed          int     `json:"failed"`
	Parked          int     `json:"parked"`
	Conflicts       int     `json:"conflicts"`
	Stopped         bool    `json:"stopped"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// CountResponse reports how many rows an operation touched.
type CountResponse struct {
	Count int64 `json:"count"`
}

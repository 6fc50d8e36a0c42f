package conflict

import (
	"context"
	"fmt"
	"time"

	"corral/internal/logging"
	"corral/internal/queue"
	"corral/internal/remote"

	"log/slog"
)

// RemoteAPI is the slice of the farm API client the detector needs.
type RemoteAPI interface {
	FetchRecord(ctx context.Context, farmID, table, recordID string) (remote.Record, error)
	UpdateRecord(ctx context.Context, farmID, table, recordID string, fields remote.Record) error
}

// Detection is the outcome of checking a local edit against the server.
type Detection struct {
	HasConflict     bool
	ServerData      remote.Record
	ServerUpdatedAt time.Time
}

// Detector reconciles local edits with concurrent server changes and keeps
// the conflict audit table.
type Detector struct {
	store  *queue.Store
	api    RemoteAPI
	logger *slog.Logger
}

// NewDetector builds a detector over the queue store and farm API.
func NewDetector(store *queue.Store, api RemoteAPI, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Detector{
		store:  store,
		api:    api,
		logger: logging.NewComponentLogger(logger, "conflict"),
	}
}

// Detect fetches the server's current version of a record and reports
// whether it changed since the local edit began. A missing server record or
// an edit with no base version cannot conflict. Fetch failures propagate to
// the caller, which treats them like any other remote failure.
func (d *Detector) Detect(ctx context.Context, farmID, table, recordID string, baseVersion *time.Time) (Detection, error) {
	record, err := d.api.FetchRecord(ctx, farmID, table, recordID)
	if err != nil {
		return Detection{}, fmt.Errorf("fetch server record: %w", err)
	}
	if record == nil || baseVersion == nil {
		return Detection{ServerData: record}, nil
	}

	serverUpdatedAt, ok := record.UpdatedAt()
	if !ok {
		return Detection{ServerData: record}, nil
	}
	if !serverUpdatedAt.After(*baseVersion) {
		return Detection{ServerData: record, ServerUpdatedAt: serverUpdatedAt}, nil
	}

	d.logger.Warn("concurrent server change detected",
		logging.String("table", table),
		logging.String("record_id", recordID),
		logging.String(logging.FieldFarmID, farmID),
	)
	return Detection{
		HasConflict:     true,
		ServerData:      record,
		ServerUpdatedAt: serverUpdatedAt,
	}, nil
}

// Record persists a detected conflict for audit and manual review.
func (d *Detector) Record(ctx context.Context, farmID, table, recordID string, clientData, serverData map[string]any) (int64, error) {
	return d.store.RecordConflict(ctx, farmID, table, recordID, clientData, serverData)
}

// Resolve applies the chosen strategy to a recorded conflict. client_wins
// pushes the local edit to the server, server_wins discards it, and merged
// pushes the caller-supplied merged payload. The conflict row is marked
// resolved but kept for audit.
func (d *Detector) Resolve(ctx context.Context, conflictID int64, strategy queue.ResolutionStrategy, mergedData map[string]any) error {
	conflict, err := d.store.GetConflict(ctx, conflictID)
	if err != nil {
		return err
	}
	if conflict == nil {
		return fmt.Errorf("conflict %d not found", conflictID)
	}
	if conflict.Resolved {
		return fmt.Errorf("conflict %d already resolved", conflictID)
	}

	var resolvedData map[string]any
	switch strategy {
	case queue.ResolutionClientWins:
		if err := d.api.UpdateRecord(ctx, conflict.FarmID, conflict.TableName, conflict.RecordID, remote.Record(conflict.ClientData)); err != nil {
			return fmt.Errorf("apply client data: %w", err)
		}
	case queue.ResolutionServerWins:
		// Nothing to push; the local change is dropped.
	case queue.ResolutionMerged:
		if mergedData == nil {
			return fmt.Errorf("merged resolution requires merged data")
		}
		if err := d.api.UpdateRecord(ctx, conflict.FarmID, conflict.TableName, conflict.RecordID, remote.Record(mergedData)); err != nil {
			return fmt.Errorf("apply merged data: %w", err)
		}
		resolvedData = mergedData
	default:
		return fmt.Errorf("unknown resolution strategy %q", strategy)
	}

	if err := d.store.MarkConflictResolved(ctx, conflictID, strategy, resolvedData); err != nil {
		return err
	}
	d.logger.Info("conflict resolved",
		logging.Int64("conflict_id", conflictID),
		logging.String("strategy", string(strategy)),
		logging.String("table", conflict.TableName),
	)
	return nil
}

// Unresolved lists open conflicts, optionally filtered to one farm.
func (d *Detector) Unresolved(ctx context.Context, farmID string) ([]*queue.Conflict, error) {
	return d.store.UnresolvedConflicts(ctx, farmID)
}

// Count returns the number of open conflicts, optionally for one farm.
func (d *Detector) Count(ctx context.Context, farmID string) (int, error) {
	return d.store.ConflictCount(ctx, farmID)
}

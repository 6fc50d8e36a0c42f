package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// RecordConflict persists a detected conflict for audit and manual review.
func (s *Store) RecordConflict(ctx context.Context, farmID, tableName, recordID string, clientData, serverData map[string]any) (int64, error) {
	clientJSON, err := json.Marshal(clientData)
	if err != nil {
		return 0, fmt.Errorf("encode client data: %w", err)
	}
	serverJSON, err := json.Marshal(serverData)
	if err != nil {
		return 0, fmt.Errorf("encode server data: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO conflicts (farm_id, table_name, record_id, client_data, server_data, detected_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		farmID,
		tableName,
		recordID,
		string(clientJSON),
		string(serverJSON),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert conflict: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// GetConflict fetches one conflict by identifier. Missing ids yield (nil, nil).
func (s *Store) GetConflict(ctx context.Context, id int64) (*Conflict, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+conflictColumns+` FROM conflicts WHERE id = ?`, id)
	conflict, err := scanConflict(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get conflict: %w", err)
	}
	return conflict, nil
}

// MarkConflictResolved records the chosen strategy and, for merges, the
// resolved payload. Conflicts stay in the table as an audit trail.
func (s *Store) MarkConflictResolved(ctx context.Context, id int64, strategy ResolutionStrategy, resolvedData map[string]any) error {
	var resolvedJSON any
	if resolvedData != nil {
		encoded, err := json.Marshal(resolvedData)
		if err != nil {
			return fmt.Errorf("encode resolved data: %w", err)
		}
		resolvedJSON = string(encoded)
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE conflicts SET resolved = 1, strategy = ?, resolved_data = ? WHERE id = ?`,
		string(strategy),
		resolvedJSON,
		id,
	)
	if err != nil {
		return fmt.Errorf("mark conflict resolved: %w", err)
	}
	return nil
}

// UnresolvedConflicts lists open conflicts, optionally filtered to one farm.
func (s *Store) UnresolvedConflicts(ctx context.Context, farmID string) ([]*Conflict, error) {
	query := `SELECT ` + conflictColumns + ` FROM conflicts WHERE resolved = 0`
	args := []any{}
	if farmID != "" {
		query += ` AND farm_id = ?`
		args = append(args, farmID)
	}
	query += ` ORDER BY detected_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list conflicts: %w", err)
	}
	defer rows.Close()

	var conflicts []*Conflict
	for rows.Next() {
		conflict, err := scanConflict(rows)
		if err != nil {
			return nil, err
		}
		conflicts = append(conflicts, conflict)
	}
	return conflicts, rows.Err()
}

// ConflictCount returns the number of unresolved conflicts, optionally for
// one farm.
func (s *Store) ConflictCount(ctx context.Context, farmID string) (int, error) {
	query := `SELECT COUNT(1) FROM conflicts WHERE resolved = 0`
	args := []any{}
	if farmID != "" {
		query += ` AND farm_id = ?`
		args = append(args, farmID)
	}
	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("conflict count: %w", err)
	}
	return count, nil
}

const conflictColumns = "id, farm_id, table_name, record_id, client_data, server_data, detected_at, resolved, strategy, resolved_data"

func scanConflict(scanner interface{ Scan(dest ...any) error }) (*Conflict, error) {
	var (
		id          int64
		farmID      string
		tableName   string
		recordID    string
		clientRaw   string
		serverRaw   string
		detectedRaw string
		resolved    int
		strategy    sql.NullString
		resolvedRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&farmID,
		&tableName,
		&recordID,
		&clientRaw,
		&serverRaw,
		&detectedRaw,
		&resolved,
		&strategy,
		&resolvedRaw,
	); err != nil {
		return nil, err
	}

	conflict := &Conflict{
		ID:        id,
		FarmID:    farmID,
		TableName: tableName,
		RecordID:  recordID,
		Resolved:  resolved != 0,
		Strategy:  ResolutionStrategy(strategy.String),
	}
	if err := json.Unmarshal([]byte(clientRaw), &conflict.ClientData); err != nil {
		return nil, fmt.Errorf("decode client data: %w", err)
	}
	if err := json.Unmarshal([]byte(serverRaw), &conflict.ServerData); err != nil {
		return nil, fmt.Errorf("decode server data: %w", err)
	}
	if resolvedRaw.Valid {
		if err := json.Unmarshal([]byte(resolvedRaw.String), &conflict.ResolvedData); err != nil {
			return nil, fmt.Errorf("decode resolved data: %w", err)
		}
	}
	if detected, err := parseTimeString(detectedRaw); err == nil {
		conflict.DetectedAt = detected
	}
	return conflict, nil
}

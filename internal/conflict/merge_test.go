package conflict_test

import (
	"reflect"
	"testing"
	"time"

	"corral/internal/conflict"
)

func TestMergeRecordsClientNewerWinsSharedFields(t *testing.T) {
	clientTime := time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC)
	serverTime := clientTime.Add(-time.Hour)

	client := map[string]any{"morning_liters": 4.5, "notes": "rainy"}
	server := map[string]any{"morning_liters": 5.0, "evening_liters": 3.0}

	merged := conflict.MergeRecords(client, server, clientTime, serverTime)

	want := map[string]any{
		"morning_liters": 4.5,
		"notes":          "rainy",
		"evening_liters": 3.0,
	}
	if !reflect.DeepEqual(merged, want) {
		t.Fatalf("unexpected merge: %+v", merged)
	}
}

func TestMergeRecordsServerNewerWinsSharedFields(t *testing.T) {
	serverTime := time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC)
	clientTime := serverTime.Add(-time.Minute)

	client := map[string]any{"morning_liters": 4.5, "notes": "rainy"}
	server := map[string]any{"morning_liters": 5.0}

	merged := conflict.MergeRecords(client, server, clientTime, serverTime)

	if merged["morning_liters"] != 5.0 {
		t.Fatalf("expected server value for shared field, got %v", merged["morning_liters"])
	}
	if merged["notes"] != "rainy" {
		t.Fatalf("expected client-only field carried through, got %v", merged["notes"])
	}
}

func TestMergeRecordsEqualTimestampsFavorServer(t *testing.T) {
	ts := time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC)

	client := map[string]any{"morning_liters": 4.5}
	server := map[string]any{"morning_liters": 5.0}

	merged := conflict.MergeRecords(client, server, ts, ts)
	if merged["morning_liters"] != 5.0 {
		t.Fatalf("expected server to win ties, got %v", merged["morning_liters"])
	}
}

func TestMergeRecordsSelfMergeLosesNothing(t *testing.T) {
	ts := time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC)
	record := map[string]any{"morning_liters": 4.5, "notes": "rainy", "animal_id": "cow-1"}

	merged := conflict.MergeRecords(record, record, ts, ts)
	if !reflect.DeepEqual(merged, record) {
		t.Fatalf("expected self-merge to be identity, got %+v", merged)
	}
}

package queue_test

import (
	"testing"
	"time"

	"corral/internal/queue"
)

func TestDecodePayloadDispatchesOnType(t *testing.T) {
	payload := queue.BulkMilkPayload{
		FarmID: "farm-9",
		Records: []queue.MilkRecord{
			{ClientID: "c1", AnimalID: "cow-1", RecordedAt: time.Now().UTC(), MorningLiters: 5},
		},
	}
	raw, err := queue.EncodePayload(payload)
	if err != nil {
		t.Fatalf("EncodePayload: %v", err)
	}

	decoded, err := queue.DecodePayload(queue.TypeBulkMilk, raw)
	if err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	got, ok := decoded.(queue.BulkMilkPayload)
	if !ok {
		t.Fatalf("expected BulkMilkPayload, got %T", decoded)
	}
	if got.Farm() != "farm-9" {
		t.Fatalf("expected farm id from payload, got %q", got.Farm())
	}
	if len(got.Records) != 1 || got.Records[0].AnimalID != "cow-1" {
		t.Fatalf("unexpected records: %+v", got.Records)
	}
}

func TestDecodePayloadRejectsUnknownType(t *testing.T) {
	if _, err := queue.DecodePayload(queue.ItemType("tractor"), []byte(`{}`)); err == nil {
		t.Fatal("expected error for unknown item type")
	}
}

func TestParseItemType(t *testing.T) {
	parsed, ok := queue.ParseItemType(" Voice_Activity ")
	if !ok {
		t.Fatal("expected voice_activity to parse")
	}
	if parsed != queue.TypeVoiceActivity {
		t.Fatalf("expected voice_activity, got %s", parsed)
	}
	if _, ok := queue.ParseItemType("bogus"); ok {
		t.Fatal("expected unknown item type to be rejected")
	}
}

func TestParseStatus(t *testing.T) {
	for _, status := range queue.AllStatuses() {
		parsed, ok := queue.ParseStatus(string(status))
		if !ok {
			t.Fatalf("ParseStatus(%s) rejected", status)
		}
		if parsed != status {
			t.Fatalf("expected %s, got %s", status, parsed)
		}
	}
	if _, ok := queue.ParseStatus("sleeping"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
}

package queue

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ItemType tags a queue item with the remote-apply handler that replays it.
type ItemType string

const (
	TypeBulkMilk      ItemType = "bulk_milk"
	TypeSingleMilk    ItemType = "single_milk"
	TypeBulkFeed      ItemType = "bulk_feed"
	TypeBulkHealth    ItemType = "bulk_health"
	TypeVoiceActivity ItemType = "voice_activity"
	TypeForm          ItemType = "form"
	TypeVoiceForm     ItemType = "voice_form"
)

var allItemTypes = []ItemType{
	TypeBulkMilk,
	TypeSingleMilk,
	TypeBulkFeed,
	TypeBulkHealth,
	TypeVoiceActivity,
	TypeForm,
	TypeVoiceForm,
}

// ParseItemType converts a string into a known ItemType.
func ParseItemType(value string) (ItemType, bool) {
	normalized := ItemType(strings.ToLower(strings.TrimSpace(value)))
	for _, t := range allItemTypes {
		if t == normalized {
			return t, true
		}
	}
	return "", false
}

// Payload carries the type-specific data needed to replay an operation
// against the farm API. Each variant holds only what its handler needs.
type Payload interface {
	ItemType() ItemType
	Farm() string
}

// MilkRecord is one milk production measurement. ClientID is generated on
// the device and used by the farm API to deduplicate retried inserts.
type MilkRecord struct {
	ClientID      string    `json:"client_id"`
	AnimalID      string    `json:"animal_id"`
	RecordedAt    time.Time `json:"recorded_at"`
	MorningLiters float64   `json:"morning_liters"`
	EveningLiters float64   `json:"evening_liters"`
	Notes         string    `json:"notes,omitempty"`
}

// FeedRecord is one feeding event.
type FeedRecord struct {
	ClientID   string    `json:"client_id"`
	AnimalID   string    `json:"animal_id"`
	RecordedAt time.Time `json:"recorded_at"`
	FeedType   string    `json:"feed_type"`
	QuantityKg float64   `json:"quantity_kg"`
}

// HealthRecord is one health event (treatment, vaccination, observation).
type HealthRecord struct {
	ClientID   string    `json:"client_id"`
	AnimalID   string    `json:"animal_id"`
	RecordedAt time.Time `json:"recorded_at"`
	EventType  string    `json:"event_type"`
	Treatment  string    `json:"treatment,omitempty"`
	Notes      string    `json:"notes,omitempty"`
}

// BulkMilkPayload replays a batch of milk records.
type BulkMilkPayload struct {
	FarmID  string       `json:"farm_id"`
	Records []MilkRecord `json:"records"`
}

func (BulkMilkPayload) ItemType() ItemType { return TypeBulkMilk }
func (p BulkMilkPayload) Farm() string     { return p.FarmID }

// SingleMilkPayload replays one milk record.
type SingleMilkPayload struct {
	FarmID string     `json:"farm_id"`
	Record MilkRecord `json:"record"`
}

func (SingleMilkPayload) ItemType() ItemType { return TypeSingleMilk }
func (p SingleMilkPayload) Farm() string     { return p.FarmID }

// BulkFeedPayload replays a batch of feeding records.
type BulkFeedPayload struct {
	FarmID  string       `json:"farm_id"`
	Records []FeedRecord `json:"records"`
}

func (BulkFeedPayload) ItemType() ItemType { return TypeBulkFeed }
func (p BulkFeedPayload) Farm() string     { return p.FarmID }

// BulkHealthPayload replays a batch of health records.
type BulkHealthPayload struct {
	FarmID  string         `json:"farm_id"`
	Records []HealthRecord `json:"records"`
}

func (BulkHealthPayload) ItemType() ItemType { return TypeBulkHealth }
func (p BulkHealthPayload) Farm() string     { return p.FarmID }

// VoiceActivityPayload replays a voice-recorded activity. The audio is
// transcribed remotely; the transcription is held on the item until the user
// confirms it, after which the activity record is created.
type VoiceActivityPayload struct {
	FarmID                 string `json:"farm_id"`
	ClientID               string `json:"client_id"`
	AudioRef               string `json:"audio_ref"`
	AnimalID               string `json:"animal_id,omitempty"`
	ActivityType           string `json:"activity_type,omitempty"`
	Transcription          string `json:"transcription,omitempty"`
	TranscriptionConfirmed bool   `json:"transcription_confirmed,omitempty"`
}

func (VoiceActivityPayload) ItemType() ItemType { return TypeVoiceActivity }
func (p VoiceActivityPayload) Farm() string     { return p.FarmID }

// FormPayload replays a generic record insert or update. When RecordID is
// set the operation is a conflict-aware update against an existing record.
type FormPayload struct {
	FarmID    string         `json:"farm_id"`
	TableName string         `json:"table_name"`
	RecordID  string         `json:"record_id,omitempty"`
	ClientID  string         `json:"client_id"`
	Fields    map[string]any `json:"fields"`
}

func (FormPayload) ItemType() ItemType { return TypeForm }
func (p FormPayload) Farm() string     { return p.FarmID }

// VoiceFormPayload replays a form whose field values were derived from a
// voice recording and need transcription plus confirmation first.
type VoiceFormPayload struct {
	FarmID                 string         `json:"farm_id"`
	TableName              string         `json:"table_name"`
	ClientID               string         `json:"client_id"`
	AudioRef               string         `json:"audio_ref"`
	Fields                 map[string]any `json:"fields,omitempty"`
	Transcription          string         `json:"transcription,omitempty"`
	TranscriptionConfirmed bool           `json:"transcription_confirmed,omitempty"`
}

func (VoiceFormPayload) ItemType() ItemType { return TypeVoiceForm }
func (p VoiceFormPayload) Farm() string     { return p.FarmID }

// EncodePayload serializes a payload for storage.
func EncodePayload(p Payload) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("payload is nil")
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", p.ItemType(), err)
	}
	return data, nil
}

// DecodePayload deserializes a stored payload by its type tag.
func DecodePayload(itemType ItemType, data []byte) (Payload, error) {
	var dst Payload
	switch itemType {
	case TypeBulkMilk:
		dst = &BulkMilkPayload{}
	case TypeSingleMilk:
		dst = &SingleMilkPayload{}
	case TypeBulkFeed:
		dst = &BulkFeedPayload{}
	case TypeBulkHealth:
		dst = &BulkHealthPayload{}
	case TypeVoiceActivity:
		dst = &VoiceActivityPayload{}
	case TypeForm:
		dst = &FormPayload{}
	case TypeVoiceForm:
		dst = &VoiceFormPayload{}
	default:
		return nil, fmt.Errorf("unknown item type %q", itemType)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", itemType, err)
	}
	return deref(dst), nil
}

func deref(p Payload) Payload {
	switch v := p.(type) {
	case *BulkMilkPayload:
		return *v
	case *SingleMilkPayload:
		return *v
	case *BulkFeedPayload:
		return *v
	case *BulkHealthPayload:
		return *v
	case *VoiceActivityPayload:
		return *v
	case *FormPayload:
		return *v
	case *VoiceFormPayload:
		return *v
	default:
		return p
	}
}

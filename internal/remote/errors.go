package remote

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes returned by the farm API in its error envelope. Codes in
// userActionableCodes describe problems only the user can fix; the sync
// processor parks those items for confirmation instead of retrying them.
const (
	CodeFarmIDMissing        = "FARM_ID_MISSING"
	CodeAudioMissing         = "AUDIO_MISSING"
	CodeTranscriptionFailed  = "TRANSCRIPTION_FAILED"
	CodeTranscriptionEmpty   = "TRANSCRIPTION_EMPTY"
	CodeNeedsAnimalSelection = "NEEDS_ANIMAL_SELECTION"

	// inventoryRequiredPrefix codes carry the missing feed type after the
	// colon, e.g. INVENTORY_REQUIRED:napier.
	inventoryRequiredPrefix = "INVENTORY_REQUIRED:"
)

// APIError is a structured error decoded from the farm API's error envelope.
type APIError struct {
	Code       string
	Message    string
	StatusCode int
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("farm api error %s (status %d)", e.Code, e.StatusCode)
	}
	return fmt.Sprintf("farm api error %s: %s", e.Code, e.Message)
}

// AsAPIError unwraps err into an *APIError when one is present.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsUserActionable reports whether the error requires user intervention
// rather than a retry. Retrying these burns attempts without any chance of
// success.
func IsUserActionable(err error) bool {
	apiErr, ok := AsAPIError(err)
	if !ok {
		return false
	}
	switch apiErr.Code {
	case CodeFarmIDMissing, CodeAudioMissing, CodeTranscriptionFailed,
		CodeTranscriptionEmpty, CodeNeedsAnimalSelection:
		return true
	}
	return strings.HasPrefix(apiErr.Code, inventoryRequiredPrefix)
}

// InventoryFeedType extracts the feed type from an INVENTORY_REQUIRED code.
// It returns ("", false) for any other error.
func InventoryFeedType(err error) (string, bool) {
	apiErr, ok := AsAPIError(err)
	if !ok {
		return "", false
	}
	if !strings.HasPrefix(apiErr.Code, inventoryRequiredPrefix) {
		return "", false
	}
	return strings.TrimPrefix(apiErr.Code, inventoryRequiredPrefix), true
}

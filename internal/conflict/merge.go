package conflict

import "time"

// MergeRecords combines a local edit with the server's current record using
// last-writer-wins at field granularity. Fields present in both inputs take
// the value from whichever side has the strictly later timestamp; fields
// present on only one side carry through unchanged. Ties go to the server,
// which keeps the merge deterministic across devices.
func MergeRecords(clientData, serverData map[string]any, clientTime, serverTime time.Time) map[string]any {
	merged := make(map[string]any, len(clientData)+len(serverData))
	for field, value := range serverData {
		merged[field] = value
	}

	clientWins := clientTime.After(serverTime)
	for field, value := range clientData {
		if _, shared := serverData[field]; !shared {
			merged[field] = value
			continue
		}
		if clientWins {
			merged[field] = value
		}
	}
	return merged
}

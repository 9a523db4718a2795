package events

// EventData is the interface that all event data types must implement
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// EntitySavedData contains data for EntitySaved events
type EntitySavedData struct {
	EntityID string `json:"entity_id"`
	Sector   string `json:"sector"`
	Periods  int    `json:"periods"`
}

func (d *EntitySavedData) EventType() EventType {
	return EntitySaved
}

// VerdictRecordedData contains data for VerdictRecorded events.
// Verdict carries the full verdict record for stream subscribers.
type VerdictRecordedData struct {
	VerdictID string `json:"verdict_id"`
	RunID     string `json:"run_id"`
	EntityID  string `json:"entity_id"`
	Sector    string `json:"sector"`
	Outcome   string `json:"outcome"`
	Verdict   any    `json:"verdict,omitempty"`
}

func (d *VerdictRecordedData) EventType() EventType {
	return VerdictRecorded
}

// BatchCompletedData contains data for BatchCompleted events
type BatchCompletedData struct {
	RunID         string `json:"run_id"`
	Entities      int    `json:"entities"`
	Passed        int    `json:"passed"`
	Failed        int    `json:"failed"`
	Indeterminate int    `json:"indeterminate"`
	Errors        int    `json:"errors"`
	Trigger       string `json:"trigger"`
}

func (d *BatchCompletedData) EventType() EventType {
	return BatchCompleted
}

// BackupCompletedData contains data for BackupCompleted events
type BackupCompletedData struct {
	Key       string `json:"key"`
	SizeBytes int64  `json:"size_bytes"`
}

func (d *BackupCompletedData) EventType() EventType {
	return BackupCompleted
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string         `json:"error"`
	Context map[string]any `json:"context,omitempty"`
}

func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}

package progress

// EventType discriminates the payloads sent to subscribers.
type EventType string

const (
	EventProgress  EventType = "progress"
	EventCompleted EventType = "completed"
	EventError     EventType = "error"
)

// Event is one pipeline status update for a recording.
type Event struct {
	Type        EventType `json:"type"`
	RecordingID uint      `json:"recording_id"`
	Filename    string    `json:"filename"`
	Step        string    `json:"step,omitempty"`
	Percent     int       `json:"percent"`
	Message     string    `json:"message,omitempty"`
}

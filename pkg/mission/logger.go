package mission

// Logger persists mission records and events. Implementations must be safe
// for concurrent use; the navigation loop logs events while the web layer
// reads reports.
type Logger interface {
	// StartMission persists the opening row for a record and returns its ID.
	StartMission(rec *Record) (string, error)

	// LogEvent appends a timestamped event to the active mission.
	LogEvent(missionID, eventType string, data map[string]any) error

	// CompleteMission seals the stored row with the record's final state
	// and summary text.
	CompleteMission(rec *Record, summary string) error

	// Close releases any underlying resources.
	Close() error
}

// NopLogger discards everything. Used when persistence is disabled.
type NopLogger struct{}

func (NopLogger) StartMission(rec *Record) (string, error) { return rec.ID, nil }

func (NopLogger) LogEvent(missionID, eventType string, data map[string]any) error { return nil }

func (NopLogger) CompleteMission(rec *Record, summary string) error { return nil }

func (NopLogger) Close() error { return nil }

var _ Logger = NopLogger{}

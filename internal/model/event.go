package model

// Level indicates the severity/type of a progress message.
type Level int

const (
	LevelInfo Level = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// Event is a user-facing progress message.
type Event struct {
	Message string
	Level   Level

	// JobID is set when the event concerns a specific backend job.
	JobID string
}

// String returns the lower-case level name used in log prefixes.
func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelVerbose:
		return "verbose"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	case LevelSuccess:
		return "success"
	}
	return "unknown"
}

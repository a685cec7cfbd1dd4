package logger

// LogEntry is a single line of the event log. Exactly one of the event fields
// is set.
type LogEntry struct {
	TimestampMicros int64  `json:"timestamp_micros"`
	SessionID       string `json:"session_id,omitempty"`

	SessionStart *SessionStart `json:"session_start,omitempty"`
	PipelineRun  *PipelineRun  `json:"pipeline_run,omitempty"`
	ParseFailure *ParseFailure `json:"parse_failure,omitempty"`
}

// LogType is an event that can be stored in a LogEntry.
type LogType interface {
	setOn(le *LogEntry)
}

// SessionStart is recorded when a shell starts.
type SessionStart struct {
	Interactive bool   `json:"interactive"`
	Dir         string `json:"dir"`
}

func (e *SessionStart) setOn(le *LogEntry) { le.SessionStart = e }

// PipelineRun is recorded for every line that parsed.
type PipelineRun struct {
	Line           string   `json:"line"`
	// Commands holds the command of each stage.
	Commands       []string `json:"commands"`
	Builtin        bool     `json:"builtin,omitempty"`
	Succeeded      bool     `json:"succeeded"`
	Message        string   `json:"message,omitempty"`
	ExitCode       int      `json:"exit_code"`
	DurationMicros int64    `json:"duration_micros"`
}

func (e *PipelineRun) setOn(le *LogEntry) { le.PipelineRun = e }

// ParseFailure is recorded for lines that couldn't be parsed.
type ParseFailure struct {
	Line  string `json:"line"`
	Error string `json:"error"`
}

func (e *ParseFailure) setOn(le *LogEntry) { le.ParseFailure = e }

// Event returns the event stored in the entry or nil if there isn't one.
func (le *LogEntry) Event() LogType {
	switch {
	case le.SessionStart != nil:
		return le.SessionStart
	case le.PipelineRun != nil:
		return le.PipelineRun
	case le.ParseFailure != nil:
		return le.ParseFailure
	default:
		return nil
	}
}

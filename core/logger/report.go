package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// ReadJSONLinesLog parses a newline delimited JSON log.
func ReadJSONLinesLog(r io.Reader, handler func(le *LogEntry)) error {
	decoder := json.NewDecoder(r)
	for decoder.More() {
		var logEntry LogEntry
		if err := decoder.Decode(&logEntry); err != nil {
			return err
		}

		handler(&logEntry)
	}
	return nil
}

// Report holds statistics about the logged events.
type Report struct {
	LogEntries     int        `json:"log_entries"`
	InvalidEntries StrCounter `json:"unknown_log_entries,omitempty"`

	Sessions     SessionReport      `json:"session_report"`
	PipelineRun  PipelineRunReport  `json:"pipeline_run_report"`
	ParseFailure ParseFailureReport `json:"parse_failure_report"`
}

func NewReport() *Report {
	return &Report{
		PipelineRun: PipelineRunReport{
			Failures: NewPathCounter("command", "message"),
		},
		ParseFailure: ParseFailureReport{
			Errors: NewPathCounter("error"),
		},
	}
}

func (r *Report) Update(le *LogEntry) {
	r.LogEntries++

	switch event := le.Event().(type) {
	case *SessionStart:
		r.Sessions.update(event)
	case *PipelineRun:
		r.PipelineRun.update(event)
	case *ParseFailure:
		r.ParseFailure.update(event)
	default:
		r.InvalidEntries.Increment(fmt.Sprintf("%T", event))
	}
}

type SessionReport struct {
	Count       int `json:"count"`
	Interactive int `json:"interactive"`
}

func (r *SessionReport) update(s *SessionStart) {
	r.Count++
	if s.Interactive {
		r.Interactive++
	}
}

type PipelineRunReport struct {
	Count     int `json:"count"`
	Succeeded int `json:"succeeded"`
	// Number of pipelines by stage count.
	Stages StrCounter `json:"stages"`
	// Name of every command that was run, builtin or not.
	CommandNames StrCounter `json:"command_names"`
	// Failures by the first command of the pipeline.
	Failures *PathCounter `json:"failures"`
}

func (r *PipelineRunReport) update(pr *PipelineRun) {
	r.Count++
	if pr.Succeeded {
		r.Succeeded++
	}

	r.Stages.Increment(fmt.Sprintf("%d", len(pr.Commands)))
	for _, cmd := range pr.Commands {
		r.CommandNames.Increment(cmd)
	}

	if !pr.Succeeded && len(pr.Commands) > 0 {
		r.Failures.Increment(pr.Commands[0], pr.Message)
	}
}

type ParseFailureReport struct {
	Count  int          `json:"count"`
	Errors *PathCounter `json:"errors"`
}

func (r *ParseFailureReport) update(pf *ParseFailure) {
	r.Count++
	r.Errors.Increment(pf.Error)
}

// StrCounter counts the number of strings seen.
type StrCounter struct {
	internal map[string]int
}

// Increment adds one to the given key.
func (s *StrCounter) Increment(toAdd string) {
	if s.internal == nil {
		s.internal = make(map[string]int)
	}

	s.internal[toAdd]++
}

// Get returns the count for key.
func (s *StrCounter) Get(key string) int {
	return s.internal[key]
}

// MarshalJSON implemnts custom JSON marshaler.
func (s StrCounter) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.internal)
}

func NewPathCounter(cols ...string) *PathCounter {
	return &PathCounter{
		cols:     cols,
		internal: make(map[string]int),
	}
}

// PathCounter counts tuples of strings.
type PathCounter struct {
	cols     []string
	internal map[string]int
}

// Increment adds one to the given key.
func (ctr *PathCounter) Increment(toAdd ...string) {
	if len(toAdd) != len(ctr.cols) {
		panic("wrong number of columns to add")
	}

	ctr.internal[toKey(toAdd...)]++
}

// Get returns the count for the given tuple.
func (ctr *PathCounter) Get(vals ...string) int {
	return ctr.internal[toKey(vals...)]
}

// MarshalJSON implemnts custom JSON marshaler.
func (ctr *PathCounter) MarshalJSON() ([]byte, error) {
	type Count struct {
		Count  int               `json:"count"`
		Fields map[string]string `json:"event"`
		Path   string            `json:"-"`
	}

	out := []Count{}
	for k, v := range ctr.internal {
		count := Count{
			Count:  v,
			Path:   k,
			Fields: make(map[string]string),
		}

		splitPath := fromKey(k)
		for colNum, colVal := range ctr.cols {
			count.Fields[colVal] = splitPath[colNum]
		}

		out = append(out, count)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Path < out[j].Path
		}
		return out[i].Count > out[j].Count
	})

	return json.Marshal(out)
}

func toKey(vals ...string) string {
	key, _ := json.Marshal(vals)
	return string(key)
}

func fromKey(key string) (out []string) {
	json.Unmarshal([]byte(key), &out)
	return
}

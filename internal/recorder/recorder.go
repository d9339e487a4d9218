package recorder

import "time"

// RunSummary holds the outcome of one pipeline run.
type RunSummary struct {
	RunType       string // "catalog" or "marketplace"
	StartedAt     time.Time
	FinishedAt    time.Time
	SetsProcessed int
	RecordsAdded  int
	RecordsSkip   int
	Unmatched     int
	Errors        int
}

// SetEvent records the outcome for one set within a run.
type SetEvent struct {
	RunType      string
	SetName      string
	RecordsAdded int
	RecordsSkip  int
	Note         string
}

// Recorder persists run history for later analysis.
type Recorder interface {
	RecordRun(sum *RunSummary) error
	RecordSet(evt *SetEvent) error
	Close() error
}

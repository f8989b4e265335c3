package persist

import (
	"encoding/json"
	"time"
)

// Run is one recorded installer invocation.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time // zero while the run is in progress or if it crashed
	Options    map[string]bool
	Outcome    string
	BackupPath string
	Error      string
	Steps      []Step
}

// Step is a delegated host operation within a run.
type Step struct {
	ID        int64
	RunID     string
	Stage     string
	Operation string
	Status    string // "ok" | "failed"
	Error     string
	StartedAt time.Time
	Duration  time.Duration
}

const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// scanner interface for both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func toJSON(v any) string {
	if v == nil {
		return ""
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

func fromJSON(s string, v any) error {
	if s == "" {
		return nil
	}
	return json.Unmarshal([]byte(s), v)
}

// Package recorder journals sync runs and notification deliveries so the
// service's history can be inspected later. Computed indicators are never
// stored.
package recorder

import "time"

// SyncRun is the outcome of syncing one code within a run.
type SyncRun struct {
	RunID    string
	Code     string
	Fetched  int
	Total    int
	UpToDate bool
	Err      string
	Started  time.Time
	Duration time.Duration
}

// Delivery records one outgoing notification.
type Delivery struct {
	RunID string
	Kind  string // "digest" or "failure"
	Code  string
	OK    bool
	Err   string
}

// Recorder persists run history for analysis.
type Recorder interface {
	RecordSync(runs []SyncRun) error
	RecordDelivery(d *Delivery) error
	// LastSync returns the newest sync row for code, or nil when none exists.
	LastSync(code string) (*SyncRun, error)
	Close() error
}

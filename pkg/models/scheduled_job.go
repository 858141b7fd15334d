package models

import "time"

// ScheduledJob reports the state of a recurring maintenance job
type ScheduledJob struct {
	Name      string     `json:"name" yaml:"name"`
	Schedule  string     `json:"schedule" yaml:"schedule"` // Cron expression
	Running   bool       `json:"running" yaml:"-"`
	Runs      int        `json:"runs" yaml:"-"`
	LastRun   *time.Time `json:"last_run,omitempty" yaml:"-"`
	NextRun   *time.Time `json:"next_run,omitempty" yaml:"-"`
	LastCount int        `json:"last_count" yaml:"-"`
	LastError string     `json:"last_error,omitempty" yaml:"-"`
}

// Package job defines the recon job model and its lifecycle state machine.
package job

import (
	"errors"
	"time"
)

// Type identifies which scan engine a job runs.
type Type string

const (
	TypeSubdomains Type = "subdomains"
	TypePorts      Type = "ports"
	TypeDirs       Type = "dirs"
)

// Valid reports whether t is a known job type.
func (t Type) Valid() bool {
	switch t {
	case TypeSubdomains, TypePorts, TypeDirs:
		return true
	}
	return false
}

// State is the lifecycle state of a job.
type State string

const (
	StateRunning   State = "running"
	StatePaused    State = "paused"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
	StateFailed    State = "failed"
)

// Terminal reports whether no further transition is possible from s.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateCancelled, StateFailed:
		return true
	}
	return false
}

// CanTransition reports whether a job may move from one state to another.
//
// running → paused, completed, cancelled, failed
// paused  → running, cancelled
func CanTransition(from, to State) bool {
	switch from {
	case StateRunning:
		return to == StatePaused || to == StateCompleted || to == StateCancelled || to == StateFailed
	case StatePaused:
		return to == StateRunning || to == StateCancelled
	}
	return false
}

var (
	// ErrNotFound is returned for operations on an unknown job id.
	ErrNotFound = errors.New("job not found")

	// ErrInvalidTransition is returned when a control action is not valid
	// for the job's current state. The job state is left unchanged.
	ErrInvalidTransition = errors.New("invalid job state transition")
)

// Job is one instance of a requested scan with its own lifecycle and progress.
type Job struct {
	ID        string         `json:"id"`
	Type      Type           `json:"type"`
	State     State          `json:"state"`
	Progress  float64        `json:"progress"`
	Config    map[string]any `json:"config"`
	Error     string         `json:"error,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Clone returns a deep copy of the job, safe to hand to callers.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	if j.Config != nil {
		c.Config = make(map[string]any, len(j.Config))
		for k, v := range j.Config {
			c.Config[k] = v
		}
	}
	return &c
}

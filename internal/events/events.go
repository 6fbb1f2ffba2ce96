// Package events provides an event system for pool and job lifecycle notifications.
package events

import "time"

// EventType represents the type of event
type EventType string

const (
	// EventPoolStarted is emitted once all workers of a pool are running
	EventPoolStarted EventType = "pool_started"
	// EventPoolStopped is emitted after every worker has exited
	EventPoolStopped EventType = "pool_stopped"
	// EventJobSubmitted is emitted when a job enters the queue
	EventJobSubmitted EventType = "job_submitted"
	// EventJobStarted is emitted when a worker dequeues a job and runs it
	EventJobStarted EventType = "job_started"
	// EventJobCompleted is emitted after a job's completion signal fired
	EventJobCompleted EventType = "job_completed"
)

// Event represents a pool or job event
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	JobID     string    `json:"job_id,omitempty"`
	WorkerID  int       `json:"worker_id"`
	Data      EventData `json:"data,omitempty"`
}

// EventData contains event-specific data
type EventData struct {
	Threads   int    `json:"threads,omitempty"`
	Policy    string `json:"policy,omitempty"`
	QueueLen  int    `json:"queue_len,omitempty"`
	Discarded int    `json:"discarded,omitempty"`
	RunTime   string `json:"run_time,omitempty"`
}

// NewPoolStartedEvent creates a pool started event
func NewPoolStartedEvent(threads int, policy string) Event {
	return Event{
		Type:      EventPoolStarted,
		Timestamp: time.Now(),
		WorkerID:  -1,
		Data: EventData{
			Threads: threads,
			Policy:  policy,
		},
	}
}

// NewPoolStoppedEvent creates a pool stopped event
func NewPoolStoppedEvent(discarded int) Event {
	return Event{
		Type:      EventPoolStopped,
		Timestamp: time.Now(),
		WorkerID:  -1,
		Data: EventData{
			Discarded: discarded,
		},
	}
}

// NewJobSubmittedEvent creates a job submitted event
func NewJobSubmittedEvent(jobID string, queueLen int) Event {
	return Event{
		Type:      EventJobSubmitted,
		Timestamp: time.Now(),
		JobID:     jobID,
		WorkerID:  -1,
		Data: EventData{
			QueueLen: queueLen,
		},
	}
}

// NewJobStartedEvent creates a job started event
func NewJobStartedEvent(jobID string, workerID int) Event {
	return Event{
		Type:      EventJobStarted,
		Timestamp: time.Now(),
		JobID:     jobID,
		WorkerID:  workerID,
	}
}

// NewJobCompletedEvent creates a job completed event
func NewJobCompletedEvent(jobID string, workerID int, runTime time.Duration) Event {
	return Event{
		Type:      EventJobCompleted,
		Timestamp: time.Now(),
		JobID:     jobID,
		WorkerID:  workerID,
		Data: EventData{
			RunTime: runTime.String(),
		},
	}
}

package queue

import (
	"context"
	"errors"
	"time"
)

// SyncTask asks for the initial consultation of a patient to be brought in
// line with the patient's current profile.
type SyncTask struct {
	PatientID  string
	OwnerID    string
	Attempt    int
	EnqueuedAt time.Time
}

type Handler func(ctx context.Context, task SyncTask) error

// Dispatcher hands sync tasks to a background worker.
type Dispatcher interface {
	Enqueue(ctx context.Context, task SyncTask) error
}

var ErrQueueFull = errors.New("sync queue is full")

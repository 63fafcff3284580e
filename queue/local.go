package queue

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// LocalQueue runs sync tasks on an in-process worker. Used when Redis is not
// configured; pending tasks are lost on restart.
type LocalQueue struct {
	tasks       chan SyncTask
	maxAttempts int
	backoff     time.Duration
	logger      *zap.Logger
	wg          sync.WaitGroup
}

func NewLocalQueue(size, maxAttempts int, backoff time.Duration, logger *zap.Logger) *LocalQueue {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &LocalQueue{
		tasks:       make(chan SyncTask, size),
		maxAttempts: maxAttempts,
		backoff:     backoff,
		logger:      logger,
	}
}

func (q *LocalQueue) Enqueue(_ context.Context, task SyncTask) error {
	if task.EnqueuedAt.IsZero() {
		task.EnqueuedAt = time.Now()
	}
	select {
	case q.tasks <- task:
		return nil
	default:
		q.logger.Warn("sync queue full, dropping task", zap.String("patient", task.PatientID))
		return ErrQueueFull
	}
}

// Start launches the worker. It stops when ctx is cancelled; Wait blocks until it has.
func (q *LocalQueue) Start(ctx context.Context, handler Handler) {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case task := <-q.tasks:
				q.process(ctx, handler, task)
			}
		}
	}()
}

func (q *LocalQueue) Wait() {
	q.wg.Wait()
}

func (q *LocalQueue) process(ctx context.Context, handler Handler, task SyncTask) {
	for attempt := task.Attempt; attempt < q.maxAttempts; attempt++ {
		task.Attempt = attempt
		err := handler(ctx, task)
		if err == nil {
			return
		}
		q.logger.Warn("sync task failed",
			zap.String("patient", task.PatientID),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
		if attempt+1 == q.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(q.backoff * time.Duration(attempt+1)):
		}
	}
	q.logger.Error("sync task abandoned", zap.String("patient", task.PatientID), zap.String("owner", task.OwnerID))
}

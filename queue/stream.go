package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// StreamQueue carries sync tasks on a Redis stream read by a consumer group.
// A failed task is re-added with its attempt counter raised; after
// maxAttempts it moves to the dead-letter stream.
type StreamQueue struct {
	client      redis.UniversalClient
	stream      string
	group       string
	consumer    string
	maxAttempts int
	logger      *zap.Logger
}

func NewStreamQueue(client redis.UniversalClient, stream, group string, maxAttempts int, logger *zap.Logger) *StreamQueue {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &StreamQueue{
		client:      client,
		stream:      stream,
		group:       group,
		consumer:    "worker-" + uuid.NewString()[:8],
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

func (q *StreamQueue) DeadLetterStream() string {
	return q.stream + ":dead"
}

// EnsureGroup creates the consumer group (and the stream) if missing.
func (q *StreamQueue) EnsureGroup(ctx context.Context) error {
	err := q.client.XGroupCreateMkStream(ctx, q.stream, q.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		q.logger.Error("create consumer group failed", zap.String("stream", q.stream), zap.Error(err))
		return err
	}
	return nil
}

func (q *StreamQueue) Enqueue(ctx context.Context, task SyncTask) error {
	return q.add(ctx, q.stream, task)
}

func (q *StreamQueue) add(ctx context.Context, stream string, task SyncTask) error {
	if task.EnqueuedAt.IsZero() {
		task.EnqueuedAt = time.Now()
	}
	err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{
			"patientId":  task.PatientID,
			"ownerId":    task.OwnerID,
			"attempt":    task.Attempt,
			"enqueuedAt": task.EnqueuedAt.UTC().Format(time.RFC3339Nano),
		},
	}).Err()
	if err != nil {
		q.logger.Error("enqueue sync task failed", zap.String("stream", stream), zap.String("patient", task.PatientID), zap.Error(err))
		return fmt.Errorf("xadd %s: %w", stream, err)
	}
	return nil
}

func decodeTask(values map[string]interface{}) (SyncTask, error) {
	task := SyncTask{}
	task.PatientID, _ = values["patientId"].(string)
	task.OwnerID, _ = values["ownerId"].(string)
	if task.PatientID == "" || task.OwnerID == "" {
		return task, errors.New("sync message without patient or owner")
	}
	if raw, ok := values["attempt"].(string); ok {
		task.Attempt, _ = strconv.Atoi(raw)
	}
	if raw, ok := values["enqueuedAt"].(string); ok {
		task.EnqueuedAt, _ = time.Parse(time.RFC3339Nano, raw)
	}
	return task, nil
}

/*
* Read up to count new messages for this consumer (block < 0 returns at once)
* Run the handler on each task
* On failure re-add with attempt+1, or dead-letter once attempts are exhausted
* Acknowledge every message read
 */
func (q *StreamQueue) ProcessOnce(ctx context.Context, handler Handler, count int64, block time.Duration) (int, error) {
	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.group,
		Consumer: q.consumer,
		Streams:  []string{q.stream, ">"},
		Count:    count,
		Block:    block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("xreadgroup %s: %w", q.stream, err)
	}

	processed := 0
	for _, s := range streams {
		for _, msg := range s.Messages {
			q.handle(ctx, handler, msg)
			if err := q.client.XAck(ctx, q.stream, q.group, msg.ID).Err(); err != nil {
				q.logger.Error("ack failed", zap.String("id", msg.ID), zap.Error(err))
			}
			processed++
		}
	}
	return processed, nil
}

func (q *StreamQueue) handle(ctx context.Context, handler Handler, msg redis.XMessage) {
	task, err := decodeTask(msg.Values)
	if err != nil {
		q.logger.Error("dropping malformed sync message", zap.String("id", msg.ID), zap.Error(err))
		return
	}
	err = handler(ctx, task)
	if err == nil {
		return
	}
	task.Attempt++
	q.logger.Warn("sync task failed",
		zap.String("patient", task.PatientID),
		zap.Int("attempt", task.Attempt),
		zap.Error(err))
	target := q.stream
	if task.Attempt >= q.maxAttempts {
		target = q.DeadLetterStream()
		q.logger.Error("sync task dead-lettered", zap.String("patient", task.PatientID), zap.String("owner", task.OwnerID))
	}
	if err := q.add(ctx, target, task); err != nil {
		q.logger.Error("requeue failed", zap.String("patient", task.PatientID), zap.Error(err))
	}
}

// Run consumes the stream until ctx is cancelled.
func (q *StreamQueue) Run(ctx context.Context, handler Handler) error {
	if err := q.EnsureGroup(ctx); err != nil {
		return err
	}
	for {
		if ctx.Err() != nil {
			return nil
		}
		if _, err := q.ProcessOnce(ctx, handler, 10, 5*time.Second); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			q.logger.Error("sync consumer error", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
		}
	}
}

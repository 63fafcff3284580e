package diagnostics

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Run describes one execution of a maintenance operation for an owner.
type Run struct {
	Operation string        `json:"operation"`
	Owner     string        `json:"owner"`
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`
	Report    interface{}   `json:"report"`
	Error     string        `json:"error,omitempty"`
}

// Recorder keeps the latest run of each operation per owner.
type Recorder interface {
	Record(ctx context.Context, run Run) error
	Latest(ctx context.Context, owner string) ([]Run, error)
}

// RedisRecorder stores runs in a hash per owner, one field per operation.
type RedisRecorder struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisRecorder(client redis.UniversalClient, prefix string, ttl time.Duration, logger *zap.Logger) *RedisRecorder {
	return &RedisRecorder{client: client, prefix: prefix, ttl: ttl, logger: logger}
}

func (r *RedisRecorder) key(owner string) string {
	return r.prefix + ":diagnostics:" + owner
}

func (r *RedisRecorder) Record(ctx context.Context, run Run) error {
	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}
	key := r.key(run.Owner)
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, run.Operation, payload)
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("diagnostics write failed", zap.String("owner", run.Owner), zap.String("operation", run.Operation), zap.Error(err))
		return err
	}
	return nil
}

func (r *RedisRecorder) Latest(ctx context.Context, owner string) ([]Run, error) {
	values, err := r.client.HGetAll(ctx, r.key(owner)).Result()
	if err != nil {
		r.logger.Error("diagnostics read failed", zap.String("owner", owner), zap.Error(err))
		return nil, err
	}
	runs := make([]Run, 0, len(values))
	for op, raw := range values {
		var run Run
		if err := json.Unmarshal([]byte(raw), &run); err != nil {
			r.logger.Warn("skipping unreadable run", zap.String("operation", op), zap.Error(err))
			continue
		}
		runs = append(runs, run)
	}
	sortRuns(runs)
	return runs, nil
}

// MemoryRecorder keeps runs in process memory.
type MemoryRecorder struct {
	mu   sync.Mutex
	runs map[string]map[string]Run
}

func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{runs: map[string]map[string]Run{}}
}

func (m *MemoryRecorder) Record(_ context.Context, run Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byOp, ok := m.runs[run.Owner]
	if !ok {
		byOp = map[string]Run{}
		m.runs[run.Owner] = byOp
	}
	byOp[run.Operation] = run
	return nil
}

func (m *MemoryRecorder) Latest(_ context.Context, owner string) ([]Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	runs := make([]Run, 0, len(m.runs[owner]))
	for _, run := range m.runs[owner] {
		runs = append(runs, run)
	}
	sortRuns(runs)
	return runs, nil
}

func sortRuns(runs []Run) {
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
}

package services

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/hibiken/asynq"
	"github.com/huangang/studiodesk/backend/internal/config"
	"github.com/huangang/studiodesk/backend/pkg/logger"
)

const (
	TaskTypeInviteEmail = "email:invite"
)

// InviteEmailTask is everything needed to render and send one invitation.
type InviteEmailTask struct {
	ProjectID   uint   `json:"project_id"`
	ProjectName string `json:"project_name"`
	InviteCode  string `json:"invite_code"`
	InviterName string `json:"inviter_name"`
	Recipient   string `json:"recipient"`
	JoinURL     string `json:"join_url"`
}

type InviteProcessor func(context.Context, *InviteEmailTask) error

// TaskQueue hands background work to a processor, either through Redis or
// on a local goroutine.
type TaskQueue interface {
	Enqueue(ctx context.Context, task *InviteEmailTask) error
	IsAsync() bool
	Close() error
}

// NewTaskQueue picks the Redis-backed queue when Redis is enabled and
// reachable, otherwise the in-process one.
func NewTaskQueue(cfg *config.RedisConfig, processor InviteProcessor) TaskQueue {
	if cfg.Enabled {
		queue, err := NewAsyncQueue(cfg)
		if err == nil {
			logger.Infof("[TaskQueue] Async queue initialized with Redis at %s", cfg.Addr)
			return queue
		}
		logger.Warnf("[TaskQueue] Redis unavailable, falling back to sync mode: %v", err)
	} else {
		logger.Infof("[TaskQueue] Sync queue initialized (Redis disabled)")
	}
	q := NewSyncQueue()
	q.SetProcessor(processor)
	return q
}

// AsyncQueue implements TaskQueue with asynq.
type AsyncQueue struct {
	client *asynq.Client
}

func redisClientOpt(cfg *config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

func NewAsyncQueue(cfg *config.RedisConfig) (*AsyncQueue, error) {
	opt := redisClientOpt(cfg)
	client := asynq.NewClient(opt)

	inspector := asynq.NewInspector(opt)
	defer inspector.Close()
	if _, err := inspector.Queues(); err != nil {
		client.Close()
		return nil, err
	}
	return &AsyncQueue{client: client}, nil
}

func (q *AsyncQueue) Enqueue(ctx context.Context, task *InviteEmailTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}

	info, err := q.client.EnqueueContext(ctx, asynq.NewTask(TaskTypeInviteEmail, payload),
		asynq.Queue("default"),
		asynq.MaxRetry(3),
	)
	if err != nil {
		return err
	}
	logger.Debug().Str("task_id", info.ID).Str("queue", info.Queue).Msg("task enqueued")
	return nil
}

func (q *AsyncQueue) IsAsync() bool { return true }

func (q *AsyncQueue) Close() error { return q.client.Close() }

// SyncQueue runs each task on its own goroutine in this process.
type SyncQueue struct {
	processor InviteProcessor
	wg        sync.WaitGroup
}

func NewSyncQueue() *SyncQueue {
	return &SyncQueue{}
}

func (q *SyncQueue) SetProcessor(processor InviteProcessor) {
	q.processor = processor
}

func (q *SyncQueue) Enqueue(_ context.Context, task *InviteEmailTask) error {
	if q.processor == nil {
		logger.Warnf("[SyncQueue] no processor set, task %s dropped", TaskTypeInviteEmail)
		return nil
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		// The request context is gone by the time the task runs.
		if err := runInviteTask(context.Background(), q.processor, task); err != nil {
			logger.Warn().Err(err).Str("recipient", task.Recipient).Msg("invite task failed")
		}
	}()
	return nil
}

// Wait blocks until every enqueued task has finished.
func (q *SyncQueue) Wait() { q.wg.Wait() }

func (q *SyncQueue) IsAsync() bool { return false }

func (q *SyncQueue) Close() error {
	q.wg.Wait()
	return nil
}

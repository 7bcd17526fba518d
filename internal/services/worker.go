package services

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/hibiken/asynq"
	"github.com/huangang/studiodesk/backend/internal/config"
	"github.com/huangang/studiodesk/backend/internal/metrics"
	"github.com/huangang/studiodesk/backend/pkg/logger"
)

// Worker consumes tasks enqueued by AsyncQueue.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	processor InviteProcessor
	wg        sync.WaitGroup
	running   bool
	mu        sync.Mutex
}

// NewWorker returns nil when Redis is disabled.
func NewWorker(cfg *config.RedisConfig, processor InviteProcessor) *Worker {
	if !cfg.Enabled {
		return nil
	}

	server := asynq.NewServer(
		redisClientOpt(cfg),
		asynq.Config{
			Concurrency: 5,
			Queues:      map[string]int{"default": 1},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Warn().Err(err).Str("type", task.Type()).Msg("task failed")
			}),
		},
	)

	return &Worker{
		server:    server,
		mux:       asynq.NewServeMux(),
		processor: processor,
	}
}

func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}
	w.mux.HandleFunc(TaskTypeInviteEmail, w.handleInviteEmail)
	w.running = true

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		logger.Infof("[Worker] Starting async worker...")
		if err := w.server.Run(w.mux); err != nil {
			logger.Warnf("[Worker] Server error: %v", err)
		}
	}()
	return nil
}

func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	logger.Infof("[Worker] Shutting down...")
	w.server.Shutdown()
	w.running = false
	w.wg.Wait()
}

func (w *Worker) handleInviteEmail(ctx context.Context, t *asynq.Task) error {
	var task InviteEmailTask
	if err := json.Unmarshal(t.Payload(), &task); err != nil {
		metrics.TasksProcessed.WithLabelValues(TaskTypeInviteEmail, "malformed").Inc()
		// Retrying cannot fix a bad payload.
		return asynq.SkipRetry
	}
	return runInviteTask(ctx, w.processor, &task)
}

func runInviteTask(ctx context.Context, processor InviteProcessor, task *InviteEmailTask) error {
	if processor == nil {
		return nil
	}
	if err := processor(ctx, task); err != nil {
		metrics.TasksProcessed.WithLabelValues(TaskTypeInviteEmail, "failed").Inc()
		return err
	}
	metrics.TasksProcessed.WithLabelValues(TaskTypeInviteEmail, "ok").Inc()
	return nil
}

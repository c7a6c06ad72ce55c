package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

const (
	taskTimeout   = 5 * time.Minute
	maxRetryDelay = 30 * time.Second
)

// Scheduler turns cron entries into tasks executed by a single worker, so a
// rebuild tick and an incremental pass never run at the same time.
type Scheduler struct {
	engine      Engine
	cron        *cron.Cron
	logger      *slog.Logger
	incremental string
	retryDelay  time.Duration
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface

	mu           sync.Mutex
	generationID cron.EntryID
}

// NewScheduler validates both cron specs. Ticks and passes start flowing
// once Start is called.
func NewScheduler(e Engine, generationSpec, incrementalSpec string) (*Scheduler, error) {
	ctx, cancel := context.WithCancel(context.Background())
	logger := slog.Default().With("system", "cron")

	s := &Scheduler{
		engine:      e,
		cron:        cron.New(),
		logger:      logger,
		incremental: incrementalSpec,
		retryDelay:  time.Second,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, 16),
	}

	if err := s.Reschedule(generationSpec); err != nil {
		cancel()
		return nil, err
	}

	if incrementalSpec != "" {
		job := s.wrap(TaskTypeIncrementalPass, func() {
			s.enqueue(NewIncrementalPassTask(s.engine))
		})
		if _, err := s.cron.AddJob(incrementalSpec, job); err != nil {
			cancel()
			return nil, fmt.Errorf("invalid incremental schedule %q: %w", incrementalSpec, err)
		}
	}

	return s, nil
}

func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.worker()

	s.cron.Start()

	s.logger.Info("Scheduler started", "next_tick", s.NextRun(), "incremental", s.incremental)
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
	s.logger.Info("Scheduler stopped")
}

// Reschedule replaces the generation tick entry. The previous entry is kept
// when spec does not parse.
func (s *Scheduler) Reschedule(spec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job := s.wrap(TaskTypeGenerationTick, func() {
		s.enqueue(NewGenerationTickTask(s.engine))
	})

	id, err := s.cron.AddJob(spec, job)
	if err != nil {
		return fmt.Errorf("invalid generation schedule %q: %w", spec, err)
	}

	if s.generationID != 0 {
		s.cron.Remove(s.generationID)
	}
	s.generationID = id

	slog.Debug("Generation tick scheduled", "schedule", spec)
	return nil
}

// NextRun returns when the next generation tick fires, or nil while the
// scheduler is not running.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	id := s.generationID
	s.mu.Unlock()

	entry := s.cron.Entry(id)
	if !entry.Valid() || entry.Next.IsZero() {
		return nil
	}
	next := entry.Next
	return &next
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) wrap(taskType TaskType, fn func()) cron.Job {
	name := string(taskType)
	return cron.NewChain(
		NewPanicRecoveryWrapper(s.logger, name),
		NewLoggingWrapper(s.logger, name),
		cron.SkipIfStillRunning(cron.DiscardLogger),
	).Then(cron.FuncJob(fn))
}

func (s *Scheduler) enqueue(task TaskInterface) {
	if err := s.EnqueueTask(task); err != nil {
		slog.Warn("Failed to enqueue task", "type", string(task.GetType()), "id", task.GetID(), "error", err)
	}
}

func (s *Scheduler) worker() {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(task TaskInterface) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Task panicked", "type", string(task.GetType()), "id", task.GetID(), "panic", r, "stack_trace", string(debug.Stack()))
		}
	}()

	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, taskTimeout)
	defer cancel()

	err := task.Execute(taskCtx)
	if err == nil {
		return
	}

	slog.Error("Task execution failed", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

	if !task.CanRetry() {
		if task.GetMaxRetries() > 0 {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
		return
	}

	task.IncrementRetryCount()
	retryDelay := s.retryDelay * time.Duration(1<<uint(task.GetRetryCount()-1))
	if retryDelay > maxRetryDelay {
		retryDelay = maxRetryDelay
	}

	slog.Warn("Task retry scheduled", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		select {
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
		case <-time.After(retryDelay):
			s.enqueue(task)
		}
	}()
}

// Package scheduler runs background maintenance tasks on fixed intervals.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RunStatus is the outcome of one task run
type RunStatus string

const (
	RunStatusSuccess RunStatus = "SUCCESS"
	RunStatusFailed  RunStatus = "FAILED"
)

// Task is a unit of periodic work
type Task interface {
	Name() string
	Run(ctx context.Context) error
}

// TaskFunc adapts a function to Task
type TaskFunc struct {
	TaskName string
	Fn       func(ctx context.Context) error
}

func (t TaskFunc) Name() string                  { return t.TaskName }
func (t TaskFunc) Run(ctx context.Context) error { return t.Fn(ctx) }

// Run records one execution of a task
type Run struct {
	Task        string
	Status      RunStatus
	Attempts    int
	Error       string
	StartedAt   time.Time
	CompletedAt time.Time
}

// SchedulerConfig holds scheduler configuration
type SchedulerConfig struct {
	// TaskTimeout bounds a single attempt
	TaskTimeout   time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	// RunOnStart runs every task once right after Start instead of waiting
	// for the first tick
	RunOnStart bool
}

// DefaultSchedulerConfig returns default scheduler configuration
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		TaskTimeout:   time.Minute,
		RetryAttempts: 2,
		RetryDelay:    5 * time.Second,
	}
}

type entry struct {
	task     Task
	interval time.Duration
}

// Scheduler runs every registered task on its own interval. Runs of the
// same task never overlap.
type Scheduler struct {
	config SchedulerConfig
	logger *zap.Logger

	entries []entry
	onRun   func(Run)

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewScheduler creates a new scheduler instance
func NewScheduler(config SchedulerConfig, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{config: config, logger: logger.Named("scheduler")}
}

// Register adds task to run every interval. Tasks must be registered
// before Start.
func (s *Scheduler) Register(task Task, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("%w: interval for %s must be positive", ErrInvalidConfig, task.Name())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return ErrSchedulerRunning
	}
	for _, e := range s.entries {
		if e.task.Name() == task.Name() {
			return fmt.Errorf("%w: %s", ErrDuplicateTask, task.Name())
		}
	}
	s.entries = append(s.entries, entry{task: task, interval: interval})
	return nil
}

// OnRun installs a hook called after every run; used for metrics and tests
func (s *Scheduler) OnRun(fn func(Run)) {
	s.mu.Lock()
	s.onRun = fn
	s.mu.Unlock()
}

// Start starts one loop per registered task
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	entries := append([]entry(nil), s.entries...)
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for _, e := range entries {
		s.wg.Add(1)
		go s.loop(ctx, e)
	}

	s.logger.Info("Scheduler started", zap.Int("tasks", len(entries)))
	return nil
}

// Stop cancels the loops and waits for in-flight runs until ctx expires
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out")
		return ctx.Err()
	}
}

func (s *Scheduler) loop(ctx context.Context, e entry) {
	defer s.wg.Done()

	if s.config.RunOnStart {
		s.execute(ctx, e.task)
	}

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.execute(ctx, e.task)
		}
	}
}

// execute runs task with the configured timeout and retries
func (s *Scheduler) execute(ctx context.Context, task Task) {
	run := Run{Task: task.Name(), StartedAt: time.Now()}
	log := s.logger.With(zap.String("task", task.Name()))

	var err error
	for attempt := 0; attempt <= s.config.RetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.config.RetryDelay):
			}
		}
		run.Attempts++
		err = s.attempt(ctx, task)
		if err == nil || ctx.Err() != nil {
			break
		}
		log.Warn("Task attempt failed", zap.Int("attempt", run.Attempts), zap.Error(err))
	}

	run.CompletedAt = time.Now()
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		run.Status = RunStatusFailed
		run.Error = err.Error()
		log.Error("Task failed", zap.Int("attempts", run.Attempts), zap.Error(err))
	} else {
		run.Status = RunStatusSuccess
		log.Debug("Task completed", zap.Duration("duration", run.CompletedAt.Sub(run.StartedAt)))
	}

	s.mu.Lock()
	hook := s.onRun
	s.mu.Unlock()
	if hook != nil {
		hook(run)
	}
}

func (s *Scheduler) attempt(ctx context.Context, task Task) (err error) {
	if s.config.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.TaskTimeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", task.Name(), r)
		}
	}()
	return task.Run(ctx)
}

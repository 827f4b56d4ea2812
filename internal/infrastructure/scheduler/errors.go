package scheduler

import "errors"

var (
	// ErrSchedulerRunning is returned when registering a task after Start
	ErrSchedulerRunning = errors.New("scheduler is already running")

	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrDuplicateTask is returned when two tasks share a name
	ErrDuplicateTask = errors.New("task already registered")
)

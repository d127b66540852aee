// Package supervisor runs independent long-lived tasks under one context.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"chronicle/internal/metrics"
)

// ErrShutdownTimeout is returned when tasks outlive the grace period after
// cancellation.
var ErrShutdownTimeout = errors.New("shutdown grace period elapsed")

// Task is a unit of work run until its context is cancelled.
type Task interface {
	Name() string
	Run(ctx context.Context) error
}

// Supervisor starts every task and joins them. A failing task does not
// cancel its siblings.
type Supervisor struct {
	tasks  []Task
	grace  time.Duration
	logger *zap.Logger
}

// New builds a Supervisor. A non-positive grace waits for tasks without limit.
func New(logger *zap.Logger, grace time.Duration, tasks ...Task) *Supervisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Supervisor{
		tasks:  tasks,
		grace:  grace,
		logger: logger.With(zap.String("component", "supervisor")),
	}
}

// Run blocks until every task returned, or until ctx is cancelled and the
// grace period elapsed. It returns the joined task failures.
func (s *Supervisor) Run(ctx context.Context) error {
	var (
		mu   sync.Mutex
		errs = make([]error, len(s.tasks))
		g    errgroup.Group
	)

	for i, task := range s.tasks {
		i, task := i, task
		g.Go(func() error {
			s.logger.Info("task started", zap.String("task", task.Name()))
			err := task.Run(ctx)
			if err != nil {
				metrics.TaskFailures.WithLabelValues(task.Name()).Inc()
				s.logger.Error("task failed", zap.String("task", task.Name()), zap.Error(err))
				mu.Lock()
				errs[i] = fmt.Errorf("task %s: %w", task.Name(), err)
				mu.Unlock()
				return nil
			}
			s.logger.Info("task stopped", zap.String("task", task.Name()))
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	collect := func(extra ...error) error {
		mu.Lock()
		defer mu.Unlock()
		return errors.Join(append(append([]error(nil), errs...), extra...)...)
	}

	select {
	case <-done:
		return collect()
	case <-ctx.Done():
	}

	s.logger.Info("shutting down", zap.Duration("grace", s.grace))
	if s.grace <= 0 {
		<-done
		return collect()
	}

	timer := time.NewTimer(s.grace)
	defer timer.Stop()
	select {
	case <-done:
		return collect()
	case <-timer.C:
		s.logger.Warn("tasks still running after grace period")
		return collect(ErrShutdownTimeout)
	}
}

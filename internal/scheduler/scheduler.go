package scheduler

import (
	"sync"
	"time"

	"github.com/burakmert236/courtside/common/logger"
)

// Job is one periodic task.
type Job interface {
	Name() string
	Run() error
}

// Scheduler runs a job on a fixed interval until stopped.
type Scheduler struct {
	job      Job
	interval time.Duration
	logger   *logger.Logger

	mu       sync.Mutex
	started  bool
	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func NewScheduler(job Job, interval time.Duration, log *logger.Logger) *Scheduler {
	return &Scheduler{
		job:      job,
		interval: interval,
		logger:   log.With("component", "scheduler", "job", job.Name()),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start blocks until Stop is called.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	defer close(s.done)

	s.logger.Info("Scheduler started", "interval", s.interval)
	timer := time.NewTimer(s.interval)

	for {
		select {
		case <-timer.C:
			if err := s.job.Run(); err != nil {
				s.logger.Error("Scheduled job failed", "error", err)
			}
			timer.Reset(s.interval)

		case <-s.stopChan:
			timer.Stop()
			s.logger.Info("Scheduler stopped")
			return
		}
	}
}

// Stop ends Start and waits for a running job to finish. It returns at once
// when Start never ran.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })

	s.mu.Lock()
	started := s.started
	s.mu.Unlock()

	if started {
		<-s.done
	}
}

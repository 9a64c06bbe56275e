package scheduler

import (
	"github.com/burakmert236/courtside/common/logger"
)

type SessionResyncer interface {
	ResyncAll() int
}

// ResyncJob re-runs the unread aggregation of every open session so badges
// converge even when a change event was lost.
type ResyncJob struct {
	sessions SessionResyncer
	logger   *logger.Logger
}

func NewResyncJob(sessions SessionResyncer, log *logger.Logger) *ResyncJob {
	return &ResyncJob{
		sessions: sessions,
		logger:   log,
	}
}

func (j *ResyncJob) Name() string {
	return "unread-resync"
}

func (j *ResyncJob) Run() error {
	n := j.sessions.ResyncAll()
	j.logger.Debug("Resynced open sessions", "sessions", n)
	return nil
}

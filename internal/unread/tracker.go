package unread

import (
	"context"
	"sync"

	"github.com/burakmert236/courtside/common/logger"
)

type TotalComputer interface {
	AggregateTotal(ctx context.Context, userId string) (Totals, error)
}

// Tracker re-runs the aggregation for one user whenever something that
// could change the unread total happens. Each trigger cancels the cycle in
// flight; only the newest cycle may deliver its result.
type Tracker struct {
	userId   string
	computer TotalComputer
	deliver  func(Totals)
	logger   *logger.Logger

	mu         sync.Mutex
	baseCtx    context.Context
	baseCancel context.CancelFunc
	cancel     context.CancelFunc
	generation uint64
	stopped    bool
	last       Totals
	hasLast    bool

	wg sync.WaitGroup
}

func NewTracker(userId string, computer TotalComputer, deliver func(Totals), log *logger.Logger) *Tracker {
	baseCtx, baseCancel := context.WithCancel(context.Background())
	return &Tracker{
		userId:     userId,
		computer:   computer,
		deliver:    deliver,
		logger:     log.With("component", "unread_tracker", "user_id", userId),
		baseCtx:    baseCtx,
		baseCancel: baseCancel,
	}
}

// Trigger starts a new aggregation cycle, superseding any cycle in flight.
func (t *Tracker) Trigger(reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return
	}
	if t.cancel != nil {
		t.cancel()
	}

	t.generation++
	gen := t.generation
	ctx, cancel := context.WithCancel(t.baseCtx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.run(ctx, cancel, gen, reason)
}

func (t *Tracker) run(ctx context.Context, cancel context.CancelFunc, gen uint64, reason string) {
	defer t.wg.Done()
	defer cancel()

	totals, err := t.computer.AggregateTotal(ctx, t.userId)

	t.mu.Lock()
	defer t.mu.Unlock()

	if gen != t.generation || t.stopped || ctx.Err() != nil {
		t.logger.Debug("discarding superseded aggregation", "reason", reason, "generation", gen)
		return
	}
	if err != nil {
		t.logger.Warn("aggregation cycle failed, keeping previous badge", "reason", reason, "error", err)
		return
	}

	t.last = totals
	t.hasLast = true
	if t.deliver != nil {
		t.deliver(totals)
	}
}

// Last returns the most recent delivered result.
func (t *Tracker) Last() (Totals, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last, t.hasLast
}

// Wait blocks until no cycle is in flight.
func (t *Tracker) Wait() {
	t.wg.Wait()
}

// Stop cancels the cycle in flight and waits for it to return.
func (t *Tracker) Stop() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.stopped = true
	t.baseCancel()
	t.mu.Unlock()

	t.wg.Wait()
}

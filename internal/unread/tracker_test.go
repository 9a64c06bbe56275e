package unread

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/burakmert236/courtside/common/logger"
)

// scriptedComputer answers call n with totals[n]. A call with a gate
// waits for the gate to close, ignoring cancellation.
type scriptedComputer struct {
	mu     sync.Mutex
	calls  int
	totals []int
	gates  map[int]chan struct{}
}

func (c *scriptedComputer) AggregateTotal(ctx context.Context, userId string) (Totals, error) {
	c.mu.Lock()
	n := c.calls
	c.calls++
	gate := c.gates[n]
	c.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return Totals{UserId: userId, Total: c.totals[n]}, nil
}

type deliveries struct {
	mu     sync.Mutex
	values []int
}

func (d *deliveries) record(t Totals) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.values = append(d.values, t.Total)
}

func (d *deliveries) snapshot() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]int(nil), d.values...)
}

func TestTrackerLatestWins(t *testing.T) {
	slow := make(chan struct{})
	computer := &scriptedComputer{
		totals: []int{11, 7},
		gates:  map[int]chan struct{}{0: slow},
	}
	got := &deliveries{}
	tracker := NewTracker("alice", computer, got.record, logger.Nop())
	defer tracker.Stop()

	tracker.Trigger("message_posted")
	assert.Eventually(t, func() bool {
		computer.mu.Lock()
		defer computer.mu.Unlock()
		return computer.calls == 1
	}, time.Second, 5*time.Millisecond)

	tracker.Trigger("membership_changed")
	assert.Eventually(t, func() bool { return len(got.snapshot()) == 1 }, time.Second, 5*time.Millisecond)

	close(slow)
	tracker.Wait()

	assert.Equal(t, []int{7}, got.snapshot(), "superseded cycle never delivers")
	last, ok := tracker.Last()
	assert.True(t, ok)
	assert.Equal(t, 7, last.Total)
}

func TestTrackerStopDropsInFlight(t *testing.T) {
	gate := make(chan struct{})
	computer := &scriptedComputer{
		totals: []int{3},
		gates:  map[int]chan struct{}{0: gate},
	}
	got := &deliveries{}
	tracker := NewTracker("alice", computer, got.record, logger.Nop())

	tracker.Trigger("session_start")
	go func() {
		time.Sleep(20 * time.Millisecond)
		close(gate)
	}()
	tracker.Stop()

	assert.Empty(t, got.snapshot())

	tracker.Trigger("after_stop")
	tracker.Wait()
	assert.Empty(t, got.snapshot())
}

func TestTrackerDeliversWithAggregator(t *testing.T) {
	store := newChatStore()
	store.join("g1", "alice", "bob")
	store.post("g1", base)
	store.announce(base)

	got := &deliveries{}
	tracker := NewTracker("alice", newTestAggregator(store, Config{}), got.record, logger.Nop())
	defer tracker.Stop()

	tracker.Trigger("session_start")
	tracker.Wait()

	store.post("g1", base.Add(time.Second))
	tracker.Trigger("message_posted")
	tracker.Wait()

	assert.Equal(t, []int{2, 3}, got.snapshot())
}

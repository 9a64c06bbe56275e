package badge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/burakmert236/courtside/common/logger"
)

type memorySink struct {
	mu         sync.Mutex
	authorized bool
	authErr    error
	applied    []int
	gate       chan struct{}
}

func (s *memorySink) Authorized(ctx context.Context, userId string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authorized, s.authErr
}

func (s *memorySink) SetBadge(ctx context.Context, userId string, count int) error {
	s.mu.Lock()
	gate := s.gate
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.applied = append(s.applied, count)
	return nil
}

func (s *memorySink) values() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.applied...)
}

func (s *memorySink) last() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.applied) == 0 {
		return 0, false
	}
	return s.applied[len(s.applied)-1], true
}

func TestPublishCoalescesToLastValue(t *testing.T) {
	sink := &memorySink{authorized: true, gate: make(chan struct{})}
	p := NewPublisher("alice", sink, logger.Nop())
	p.Start()

	p.Publish(1)
	for i := 2; i <= 50; i++ {
		p.Publish(i)
	}
	close(sink.gate)
	p.Stop()

	values := sink.values()
	require.NotEmpty(t, values)
	assert.Equal(t, 50, values[len(values)-1], "final value is never dropped")
	assert.Less(t, len(values), 50, "intermediate values collapse")
}

func TestPublishWithoutAuthorizationIsNoop(t *testing.T) {
	sink := &memorySink{authorized: false}
	p := NewPublisher("alice", sink, logger.Nop())
	p.Start()

	p.Publish(9)
	p.Stop()

	assert.Empty(t, sink.values())
}

func TestResetDropsValuesComputedBefore(t *testing.T) {
	sink := &memorySink{authorized: true}
	p := NewPublisher("alice", sink, logger.Nop())

	p.Publish(12)
	require.NoError(t, p.Reset(context.Background()))
	p.Start()
	p.Stop()

	assert.Equal(t, []int{0}, sink.values())
}

func TestResetThenNextCycle(t *testing.T) {
	sink := &memorySink{authorized: true}
	p := NewPublisher("alice", sink, logger.Nop())
	p.Start()
	defer p.Stop()

	require.NoError(t, p.Reset(context.Background()))
	last, ok := sink.last()
	require.True(t, ok)
	assert.Equal(t, 0, last)

	p.Publish(4)
	assert.Eventually(t, func() bool {
		v, _ := sink.last()
		return v == 4
	}, time.Second, 5*time.Millisecond)
}

func TestResetSurfacesSinkErrors(t *testing.T) {
	sink := &memorySink{authErr: errors.New("redis down")}
	p := NewPublisher("alice", sink, logger.Nop())

	assert.Error(t, p.Reset(context.Background()))
	p.Stop()
}

func TestPublishAfterStopIsIgnored(t *testing.T) {
	sink := &memorySink{authorized: true}
	p := NewPublisher("alice", sink, logger.Nop())
	p.Start()
	p.Stop()

	p.Publish(3)
	p.Stop()

	assert.Empty(t, sink.values())
}

func TestNegativeTotalsClampToZero(t *testing.T) {
	sink := &memorySink{authorized: true}
	p := NewPublisher("alice", sink, logger.Nop())
	p.Start()

	p.Publish(-2)
	p.Stop()

	assert.Equal(t, []int{0}, sink.values())
}

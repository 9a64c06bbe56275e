package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/burakmert236/courtside/common/logger"
	"github.com/burakmert236/courtside/internal/unread"
)

// world is a fake backend: memberships, unread per group, and a badge sink.
type world struct {
	mu         sync.Mutex
	members    map[string][]string
	unread     map[string]int
	badges     map[string][]int
	aggregates map[string]int
}

func newWorld() *world {
	return &world{
		members:    make(map[string][]string),
		unread:     make(map[string]int),
		badges:     make(map[string][]int),
		aggregates: make(map[string]int),
	}
}

func (w *world) setGroups(userId string, groupIds ...string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.members[userId] = groupIds
}

func (w *world) setUnread(groupId string, n int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.unread[groupId] = n
}

func (w *world) ListGroupIdsForUser(ctx context.Context, userId string) ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.members[userId]...), nil
}

func (w *world) AggregateTotal(ctx context.Context, userId string) (unread.Totals, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.aggregates[userId]++
	totals := unread.Totals{UserId: userId, PerGroup: make(map[string]int)}
	for _, g := range w.members[userId] {
		totals.PerGroup[g] = w.unread[g]
		totals.Total += w.unread[g]
	}
	return totals, nil
}

func (w *world) Authorized(ctx context.Context, userId string) (bool, error) {
	return true, nil
}

func (w *world) SetBadge(ctx context.Context, userId string, count int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.badges[userId] = append(w.badges[userId], count)
	return nil
}

func (w *world) lastBadge(userId string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	b := w.badges[userId]
	if len(b) == 0 {
		return -1
	}
	return b[len(b)-1]
}

func (w *world) aggregateCount(userId string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.aggregates[userId]
}

func newTestManager(w *world) *Manager {
	return NewManager(w, w, w, logger.Nop())
}

func eventuallyBadge(t *testing.T, w *world, userId string, want int) {
	t.Helper()
	assert.Eventually(t, func() bool {
		return w.lastBadge(userId) == want
	}, 2*time.Second, 5*time.Millisecond, "badge of %s", userId)
}

func TestOpenResetsThenPublishesTotal(t *testing.T) {
	w := newWorld()
	w.setGroups("alice", "g1", "g2")
	w.setUnread("g1", 2)
	w.setUnread("g2", 3)

	m := newTestManager(w)
	defer m.CloseAll()

	m.Open(context.Background(), "alice")

	eventuallyBadge(t, w, "alice", 5)
	w.mu.Lock()
	first := w.badges["alice"][0]
	w.mu.Unlock()
	assert.Equal(t, 0, first, "badge is reset on session start")
}

func TestOpenIsIdempotent(t *testing.T) {
	w := newWorld()
	m := newTestManager(w)
	defer m.CloseAll()

	a := m.Open(context.Background(), "alice")
	b := m.Open(context.Background(), "alice")

	assert.Same(t, a, b)
	assert.Equal(t, 1, m.Count())
}

func TestMessageRoutedOnlyToMembers(t *testing.T) {
	w := newWorld()
	w.setGroups("alice", "g1")
	w.setGroups("bob", "g2")

	m := newTestManager(w)
	defer m.CloseAll()

	alice := m.Open(context.Background(), "alice")
	m.Open(context.Background(), "bob")
	assert.Eventually(t, func() bool { return alice.InGroup("g1") }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool {
		return w.aggregateCount("alice") >= 1 && w.aggregateCount("bob") >= 1
	}, time.Second, 5*time.Millisecond)
	bobBefore := w.aggregateCount("bob")

	w.setUnread("g1", 4)
	m.OnMessagePosted("g1")

	eventuallyBadge(t, w, "alice", 4)
	assert.Equal(t, bobBefore, w.aggregateCount("bob"))
}

func TestMembershipChangeRefreshesGroups(t *testing.T) {
	w := newWorld()
	w.setGroups("alice", "g1")
	w.setUnread("g1", 1)
	w.setUnread("g2", 6)

	m := newTestManager(w)
	defer m.CloseAll()

	alice := m.Open(context.Background(), "alice")
	eventuallyBadge(t, w, "alice", 1)

	w.setGroups("alice", "g1", "g2")
	m.OnMembershipChanged("alice")

	eventuallyBadge(t, w, "alice", 7)
	assert.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"g1", "g2"}, alice.GroupIds())
	}, time.Second, 5*time.Millisecond)
}

func TestAnnouncementAndResyncReachEverySession(t *testing.T) {
	w := newWorld()
	m := newTestManager(w)
	defer m.CloseAll()

	m.Open(context.Background(), "alice")
	m.Open(context.Background(), "bob")
	assert.Eventually(t, func() bool {
		return w.aggregateCount("alice") >= 1 && w.aggregateCount("bob") >= 1
	}, time.Second, 5*time.Millisecond)

	aliceBefore, bobBefore := w.aggregateCount("alice"), w.aggregateCount("bob")
	m.OnAnnouncementPosted()
	assert.Eventually(t, func() bool {
		return w.aggregateCount("alice") > aliceBefore && w.aggregateCount("bob") > bobBefore
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, 2, m.ResyncAll())
}

func TestWatermarkAdvancedTriggersOwner(t *testing.T) {
	w := newWorld()
	w.setGroups("alice", "g1")
	w.setUnread("g1", 3)

	m := newTestManager(w)
	defer m.CloseAll()

	m.Open(context.Background(), "alice")
	eventuallyBadge(t, w, "alice", 3)

	w.setUnread("g1", 0)
	m.OnWatermarkAdvanced("alice")

	eventuallyBadge(t, w, "alice", 0)
}

func TestCloseStopsSession(t *testing.T) {
	w := newWorld()
	w.setGroups("alice", "g1")
	m := newTestManager(w)

	m.Open(context.Background(), "alice")
	require.True(t, m.Close("alice"))
	assert.False(t, m.Close("alice"))
	assert.Equal(t, 0, m.Count())

	before := w.aggregateCount("alice")
	m.OnMessagePosted("g1")
	m.OnWatermarkAdvanced("alice")
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, before, w.aggregateCount("alice"))
}

// gatedSink holds the first badge write of one user until released.
type gatedSink struct {
	*world
	gatedUser string
	entered   chan struct{}
	release   chan struct{}
	once      sync.Once
}

func (g *gatedSink) SetBadge(ctx context.Context, userId string, count int) error {
	if userId == g.gatedUser {
		g.once.Do(func() {
			close(g.entered)
			<-g.release
		})
	}
	return g.world.SetBadge(ctx, userId, count)
}

func TestSlowSessionStartDoesNotBlockRouting(t *testing.T) {
	w := newWorld()
	w.setGroups("alice", "g1")
	w.setGroups("bob", "g1")
	sink := &gatedSink{world: w, gatedUser: "bob", entered: make(chan struct{}), release: make(chan struct{})}
	m := NewManager(w, w, sink, logger.Nop())
	defer m.CloseAll()

	m.Open(context.Background(), "alice")
	go m.Open(context.Background(), "bob")
	<-sink.entered

	routed := make(chan int, 1)
	go func() {
		m.OnMessagePosted("g1")
		routed <- m.ResyncAll()
	}()

	select {
	case n := <-routed:
		assert.Equal(t, 2, n)
	case <-time.After(time.Second):
		t.Fatal("event routing waited on a session start")
	}

	close(sink.release)
	eventuallyBadge(t, w, "bob", 0)
}

func TestCloseBeforeStartLeavesSessionStopped(t *testing.T) {
	w := newWorld()
	w.setGroups("alice", "g1")

	s := newSession("alice", w, w, w, logger.Nop())
	s.Stop()
	s.Start(context.Background())
	s.Stop()

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, w.aggregateCount("alice"))
	assert.Equal(t, -1, w.lastBadge("alice"))
}

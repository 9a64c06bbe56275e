package session

import (
	"context"
	"sort"
	"sync"

	"github.com/burakmert236/courtside/common/logger"
	"github.com/burakmert236/courtside/internal/badge"
	"github.com/burakmert236/courtside/internal/listener"
	"github.com/burakmert236/courtside/internal/unread"
)

type MembershipLister interface {
	ListGroupIdsForUser(ctx context.Context, userId string) ([]string, error)
}

// Session holds everything that keeps one signed-in user's badge current.
type Session struct {
	userId    string
	groups    MembershipLister
	publisher *badge.Publisher
	tracker   *unread.Tracker
	logger    *logger.Logger

	membershipChanges chan struct{}
	membership        *listener.Subscription[[]string]

	mu       sync.RWMutex
	groupIds map[string]struct{}
	synced   bool

	consumerDone chan struct{}

	lifecycleMu sync.Mutex
	started     bool
	stopped     bool
}

func newSession(userId string, groups MembershipLister, computer unread.TotalComputer, sink badge.Sink, log *logger.Logger) *Session {
	s := &Session{
		userId:            userId,
		groups:            groups,
		publisher:         badge.NewPublisher(userId, sink, log),
		logger:            log.With("component", "session", "user_id", userId),
		membershipChanges: make(chan struct{}, 1),
		groupIds:          make(map[string]struct{}),
		consumerDone:      make(chan struct{}),
	}
	s.tracker = unread.NewTracker(userId, computer, func(t unread.Totals) {
		s.publisher.Publish(t.Total)
	}, log)
	return s
}

// Start zeroes the badge and begins watching the user's memberships. The
// first membership snapshot triggers the first aggregation. Only the first
// call does anything, and a stopped session never starts.
func (s *Session) Start(ctx context.Context) {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if s.started || s.stopped {
		return
	}
	s.started = true

	s.publisher.Start()
	if err := s.publisher.Reset(ctx); err != nil {
		s.logger.Warn("failed to reset badge on session start", "error", err)
	}

	s.membership = listener.Watch(context.Background(), s.membershipChanges,
		func(ctx context.Context) ([]string, error) {
			return s.groups.ListGroupIdsForUser(ctx, s.userId)
		},
		s.logger,
	)
	go s.consumeMemberships()
}

func (s *Session) Stop() {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if s.stopped {
		return
	}
	s.stopped = true

	if s.membership != nil {
		s.membership.Close()
		<-s.consumerDone
	}
	s.tracker.Stop()
	s.publisher.Stop()
}

func (s *Session) UserId() string {
	return s.userId
}

func (s *Session) InGroup(groupId string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.groupIds[groupId]
	return ok
}

func (s *Session) GroupIds() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.groupIds))
	for id := range s.groupIds {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Session) Trigger(reason string) {
	s.tracker.Trigger(reason)
}

func (s *Session) Unread() (unread.Totals, bool) {
	return s.tracker.Last()
}

// membershipChanged asks the listener for a fresh membership snapshot.
func (s *Session) membershipChanged() {
	select {
	case s.membershipChanges <- struct{}{}:
	default:
	}
}

func (s *Session) consumeMemberships() {
	defer close(s.consumerDone)

	for snapshot := range s.membership.C() {
		next := make(map[string]struct{}, len(snapshot))
		for _, id := range snapshot {
			next[id] = struct{}{}
		}

		s.mu.Lock()
		changed := !s.synced || !sameSet(s.groupIds, next)
		s.groupIds = next
		s.synced = true
		s.mu.Unlock()

		if changed {
			s.tracker.Trigger("membership_changed")
		}
	}
}

func sameSet(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

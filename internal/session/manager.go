package session

import (
	"context"
	"sync"

	"github.com/burakmert236/courtside/common/logger"
	"github.com/burakmert236/courtside/internal/badge"
	"github.com/burakmert236/courtside/internal/unread"
)

// Manager owns the open sessions and routes chat change events to them.
type Manager struct {
	groups   MembershipLister
	computer unread.TotalComputer
	sink     badge.Sink
	logger   *logger.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(groups MembershipLister, computer unread.TotalComputer, sink badge.Sink, log *logger.Logger) *Manager {
	return &Manager{
		groups:   groups,
		computer: computer,
		sink:     sink,
		logger:   log.With("component", "session_manager"),
		sessions: make(map[string]*Session),
	}
}

// Open returns the user's session, starting one if none is open. The
// session is started outside the registry lock because Start talks to the
// badge sink.
func (m *Manager) Open(ctx context.Context, userId string) *Session {
	m.mu.Lock()
	if s, ok := m.sessions[userId]; ok {
		m.mu.Unlock()
		return s
	}
	s := newSession(userId, m.groups, m.computer, m.sink, m.logger)
	m.sessions[userId] = s
	m.mu.Unlock()

	s.Start(ctx)

	m.logger.Info("session opened", "user_id", userId)
	return s
}

// Close stops the user's session. Closing an unknown user is a no-op.
func (m *Manager) Close(userId string) bool {
	m.mu.Lock()
	s, ok := m.sessions[userId]
	delete(m.sessions, userId)
	m.mu.Unlock()

	if !ok {
		return false
	}
	s.Stop()
	m.logger.Info("session closed", "user_id", userId)
	return true
}

func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Stop()
	}
}

func (m *Manager) Get(userId string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[userId]
	return s, ok
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) OnMessagePosted(groupId string) {
	for _, s := range m.snapshot() {
		if s.InGroup(groupId) {
			s.Trigger("message_posted")
		}
	}
}

func (m *Manager) OnMembershipChanged(userId string) {
	if s, ok := m.Get(userId); ok {
		s.membershipChanged()
	}
}

func (m *Manager) OnAnnouncementPosted() {
	for _, s := range m.snapshot() {
		s.Trigger("announcement_posted")
	}
}

func (m *Manager) OnWatermarkAdvanced(userId string) {
	if s, ok := m.Get(userId); ok {
		s.Trigger("watermark_advanced")
	}
}

// ResyncAll re-runs the aggregation of every open session.
func (m *Manager) ResyncAll() int {
	sessions := m.snapshot()
	for _, s := range sessions {
		s.Trigger("resync")
	}
	return len(sessions)
}

func (m *Manager) snapshot() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

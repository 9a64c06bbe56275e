package unread

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/burakmert236/courtside/common/errors"
	"github.com/burakmert236/courtside/common/models"
)

// chatStore is an in-memory stand-in for the group, message, announcement
// and watermark repositories.
type chatStore struct {
	mu sync.Mutex

	memberships       map[string]map[string]*models.Membership // groupId -> userId
	messages          map[string][]time.Time
	announcements     []time.Time
	announcementMarks map[string]time.Time

	listErr     error
	groupErrs   map[string]error
	groupBlocks map[string]chan struct{}
	seenAfter   map[string]time.Time
}

func newChatStore() *chatStore {
	return &chatStore{
		memberships:       make(map[string]map[string]*models.Membership),
		messages:          make(map[string][]time.Time),
		announcementMarks: make(map[string]time.Time),
		groupErrs:         make(map[string]error),
		groupBlocks:       make(map[string]chan struct{}),
		seenAfter:         make(map[string]time.Time),
	}
}

func (s *chatStore) join(groupId string, userIds ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.memberships[groupId] == nil {
		s.memberships[groupId] = make(map[string]*models.Membership)
	}
	for _, u := range userIds {
		s.memberships[groupId][u] = &models.Membership{GroupId: groupId, UserId: u}
	}
}

func (s *chatStore) post(groupId string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[groupId] = append(s.messages[groupId], at)
}

func (s *chatStore) announce(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.announcements = append(s.announcements, at)
}

func (s *chatStore) ListGroupIdsForUser(ctx context.Context, userId string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	ids := make([]string, 0)
	for groupId, members := range s.memberships {
		if _, ok := members[userId]; ok {
			ids = append(ids, groupId)
		}
	}
	return ids, nil
}

func (s *chatStore) GetMembership(ctx context.Context, groupId string, userId string) (*models.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.memberships[groupId][userId]
	if !ok {
		return nil, apperrors.New(apperrors.CodeNotMember, "not a member")
	}
	copied := *m
	return &copied, nil
}

func (s *chatStore) CountAfter(ctx context.Context, groupId string, after time.Time) (int, error) {
	s.mu.Lock()
	block := s.groupBlocks[groupId]
	err := s.groupErrs[groupId]
	s.seenAfter[groupId] = after
	s.mu.Unlock()

	if block != nil {
		<-block
	}
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return countAfter(s.messages[groupId], after), nil
}

func (s *chatStore) SetGroupWatermark(ctx context.Context, groupId string, userId string, readAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.memberships[groupId][userId]
	if !ok {
		return apperrors.New(apperrors.CodeNotMember, "not a member")
	}
	m.LastReadAt = readAt
	return nil
}

func (s *chatStore) GetAnnouncementWatermark(ctx context.Context, userId string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.announcementMarks[userId]; ok {
		return t, nil
	}
	return models.EpochZero, nil
}

func (s *chatStore) SetAnnouncementWatermark(ctx context.Context, userId string, readAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.announcementMarks[userId] = readAt
	return nil
}

type announcementCounter struct{ store *chatStore }

func (c announcementCounter) CountAfter(ctx context.Context, after time.Time) (int, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	return countAfter(c.store.announcements, after), nil
}

func countAfter(times []time.Time, after time.Time) int {
	n := 0
	for _, t := range times {
		if t.After(after) {
			n++
		}
	}
	return n
}

type recordingNotifier struct {
	mu    sync.Mutex
	moves []string
}

func (n *recordingNotifier) WatermarkAdvanced(ctx context.Context, userId string, groupId string, readAt time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.moves = append(n.moves, userId+"/"+groupId)
	return nil
}

package service

import (
	"context"
	"sync"
	"time"

	commonevents "github.com/burakmert236/courtside/common/events"
	apperrors "github.com/burakmert236/courtside/common/errors"
	"github.com/burakmert236/courtside/common/models"
)

type memoryTournaments struct {
	mu          sync.Mutex
	tournaments map[string]*models.Tournament
	gets        int
}

func newMemoryTournaments(ts ...*models.Tournament) *memoryTournaments {
	m := &memoryTournaments{tournaments: make(map[string]*models.Tournament)}
	for _, t := range ts {
		m.tournaments[t.TournamentId] = t
	}
	return m
}

func (m *memoryTournaments) Create(ctx context.Context, tournament *models.Tournament) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tournaments[tournament.TournamentId] = tournament
	return nil
}

func (m *memoryTournaments) GetById(ctx context.Context, tournamentId string) (*models.Tournament, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	t, ok := m.tournaments[tournamentId]
	if !ok {
		return nil, apperrors.New(apperrors.CodeNotFound, "tournament not found")
	}
	return t, nil
}

type memoryBracketStore struct {
	mu     sync.Mutex
	lists  int
	rounds map[int]models.BracketRound
}

func newMemoryBracketStore() *memoryBracketStore {
	return &memoryBracketStore{rounds: make(map[int]models.BracketRound)}
}

func (s *memoryBracketStore) ListRounds(ctx context.Context, tournamentId string, categoryId string) ([]models.BracketRound, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists++
	out := make([]models.BracketRound, 0)
	for i := 0; i < len(s.rounds); i++ {
		out = append(out, s.rounds[i])
	}
	return out, nil
}

func (s *memoryBracketStore) GetChampion(ctx context.Context, tournamentId string, categoryId string) (*models.BracketChampion, error) {
	return nil, nil
}

func (s *memoryBracketStore) SaveRound(ctx context.Context, round *models.BracketRound) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rounds[round.RoundIndex] = *round
	return nil
}

func (s *memoryBracketStore) AdvanceRound(ctx context.Context, round *models.BracketRound, lastRoundIndex int) error {
	return s.SaveRound(ctx, round)
}

func (s *memoryBracketStore) DeclareChampion(ctx context.Context, final *models.BracketRound, champion *models.BracketChampion) error {
	return s.SaveRound(ctx, final)
}

func (s *memoryBracketStore) SaveChampion(ctx context.Context, champion *models.BracketChampion) error {
	return nil
}

type memoryGroups struct {
	mu      sync.Mutex
	groups  map[string]*models.Group
	members map[string]map[string]bool
}

func newMemoryGroups() *memoryGroups {
	return &memoryGroups{
		groups:  make(map[string]*models.Group),
		members: make(map[string]map[string]bool),
	}
}

func (g *memoryGroups) CreateGroup(ctx context.Context, group *models.Group) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.groups[group.GroupId] = group
	g.members[group.GroupId] = make(map[string]bool)
	for _, u := range group.MemberIds {
		g.members[group.GroupId][u] = true
	}
	return nil
}

func (g *memoryGroups) GetById(ctx context.Context, groupId string) (*models.Group, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	group, ok := g.groups[groupId]
	if !ok {
		return nil, apperrors.New(apperrors.CodeNotFound, "group not found")
	}
	copied := *group
	copied.MemberIds = make([]string, 0)
	for u := range g.members[groupId] {
		copied.MemberIds = append(copied.MemberIds, u)
	}
	return &copied, nil
}

func (g *memoryGroups) AddMember(ctx context.Context, groupId string, userId string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.groups[groupId]; !ok {
		return apperrors.New(apperrors.CodeNotFound, "group not found")
	}
	g.members[groupId][userId] = true
	return nil
}

func (g *memoryGroups) RemoveMember(ctx context.Context, groupId string, userId string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.members[groupId][userId] {
		return apperrors.New(apperrors.CodeNotMember, "not a member")
	}
	if len(g.members[groupId]) <= models.MinGroupMembers {
		return apperrors.New(apperrors.CodeFailedPrecondition, "a group cannot drop below two members")
	}
	delete(g.members[groupId], userId)
	return nil
}

func (g *memoryGroups) GetMembership(ctx context.Context, groupId string, userId string) (*models.Membership, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.members[groupId][userId] {
		return nil, apperrors.New(apperrors.CodeNotMember, "not a member")
	}
	return &models.Membership{GroupId: groupId, UserId: userId}, nil
}

func (g *memoryGroups) ListGroupIdsForUser(ctx context.Context, userId string) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, 0)
	for groupId, members := range g.members {
		if members[userId] {
			out = append(out, groupId)
		}
	}
	return out, nil
}

type memoryMessages struct {
	mu       sync.Mutex
	messages []*models.Message
}

func (m *memoryMessages) Create(ctx context.Context, message *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, message)
	return nil
}

func (m *memoryMessages) CountAfter(ctx context.Context, groupId string, after time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, msg := range m.messages {
		if msg.GroupId == groupId && msg.CreatedAt.After(after) {
			n++
		}
	}
	return n, nil
}

type memoryAnnouncements struct {
	mu            sync.Mutex
	announcements []*models.Announcement
}

func (m *memoryAnnouncements) Create(ctx context.Context, announcement *models.Announcement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.announcements = append(m.announcements, announcement)
	return nil
}

func (m *memoryAnnouncements) CountAfter(ctx context.Context, after time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.announcements {
		if a.CreatedAt.After(after) {
			n++
		}
	}
	return n, nil
}

type recordingEvents struct {
	mu            sync.Mutex
	messages      []commonevents.MessagePostedEvent
	memberships   []commonevents.MembershipChangedEvent
	announcements []commonevents.AnnouncementPostedEvent
}

func (r *recordingEvents) PublishMessagePosted(ctx context.Context, event commonevents.MessagePostedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, event)
	return nil
}

func (r *recordingEvents) PublishMembershipChanged(ctx context.Context, event commonevents.MembershipChangedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.memberships = append(r.memberships, event)
	return nil
}

func (r *recordingEvents) PublishAnnouncementPosted(ctx context.Context, event commonevents.AnnouncementPostedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.announcements = append(r.announcements, event)
	return nil
}

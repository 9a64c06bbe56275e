package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	commonevents "github.com/burakmert236/courtside/common/events"
	apperrors "github.com/burakmert236/courtside/common/errors"
	"github.com/burakmert236/courtside/common/logger"
	"github.com/burakmert236/courtside/common/models"
	"github.com/burakmert236/courtside/internal/repository"
)

type ChatEventPublisher interface {
	PublishMessagePosted(ctx context.Context, event commonevents.MessagePostedEvent) error
	PublishMembershipChanged(ctx context.Context, event commonevents.MembershipChangedEvent) error
	PublishAnnouncementPosted(ctx context.Context, event commonevents.AnnouncementPostedEvent) error
}

type ChatService interface {
	CreateGroup(ctx context.Context, name string, memberIds []string) (*models.Group, error)
	AddMember(ctx context.Context, groupId string, userId string) error
	RemoveMember(ctx context.Context, groupId string, userId string) error
	PostMessage(ctx context.Context, groupId string, senderId string, text string) (*models.Message, error)
	PostAnnouncement(ctx context.Context, senderUsername string, content string) (*models.Announcement, error)
}

type chatService struct {
	groupRepo        repository.GroupRepository
	messageRepo      repository.MessageRepository
	announcementRepo repository.AnnouncementRepository
	publisher        ChatEventPublisher
	now              func() time.Time
	logger           *logger.Logger
}

func NewChatService(
	groupRepo repository.GroupRepository,
	messageRepo repository.MessageRepository,
	announcementRepo repository.AnnouncementRepository,
	publisher ChatEventPublisher,
	logger *logger.Logger,
) ChatService {
	return &chatService{
		groupRepo:        groupRepo,
		messageRepo:      messageRepo,
		announcementRepo: announcementRepo,
		publisher:        publisher,
		now:              func() time.Time { return time.Now().UTC() },
		logger:           logger.With("component", "chat-service"),
	}
}

// CreateGroup needs at least two distinct members.
func (s *chatService) CreateGroup(ctx context.Context, name string, memberIds []string) (*models.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "group name is required")
	}

	seen := make(map[string]struct{}, len(memberIds))
	members := make([]string, 0, len(memberIds))
	for _, id := range memberIds {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		members = append(members, id)
	}
	if len(members) < models.MinGroupMembers {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "a group needs at least two distinct members")
	}

	group := &models.Group{
		GroupId:   uuid.New().String(),
		Name:      name,
		MemberIds: members,
	}
	if err := s.groupRepo.CreateGroup(ctx, group); err != nil {
		s.logger.Error("failed to create group", "error", err)
		return nil, err
	}

	for _, userId := range members {
		s.publishMembership(ctx, group.GroupId, userId, true)
	}

	s.logger.Info("group created", "group_id", group.GroupId, "members", len(members))
	return group, nil
}

func (s *chatService) AddMember(ctx context.Context, groupId string, userId string) error {
	if groupId == "" || userId == "" {
		return apperrors.New(apperrors.CodeInvalidInput, "group id and user id are required")
	}

	if err := s.groupRepo.AddMember(ctx, groupId, userId); err != nil {
		s.logger.Error("failed to add member", "group_id", groupId, "user_id", userId, "error", err)
		return err
	}

	s.publishMembership(ctx, groupId, userId, true)
	return nil
}

// RemoveMember keeps the two-member floor of a group. The repository
// enforces the floor in the same write that removes the member.
func (s *chatService) RemoveMember(ctx context.Context, groupId string, userId string) error {
	if groupId == "" || userId == "" {
		return apperrors.New(apperrors.CodeInvalidInput, "group id and user id are required")
	}

	if err := s.groupRepo.RemoveMember(ctx, groupId, userId); err != nil {
		if apperrors.HasCode(err, apperrors.CodeFailedPrecondition) || apperrors.HasCode(err, apperrors.CodeNotMember) {
			s.logger.Warn("member removal rejected", "group_id", groupId, "user_id", userId, "error", err)
		} else {
			s.logger.Error("failed to remove member", "group_id", groupId, "user_id", userId, "error", err)
		}
		return err
	}

	s.publishMembership(ctx, groupId, userId, false)
	return nil
}

func (s *chatService) PostMessage(ctx context.Context, groupId string, senderId string, text string) (*models.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "message text is required")
	}

	if _, err := s.groupRepo.GetMembership(ctx, groupId, senderId); err != nil {
		return nil, err
	}

	message := &models.Message{
		MessageId: uuid.New().String(),
		GroupId:   groupId,
		SenderId:  senderId,
		Text:      text,
		CreatedAt: s.now(),
	}
	if err := s.messageRepo.Create(ctx, message); err != nil {
		s.logger.Error("failed to store message", "group_id", groupId, "error", err)
		return nil, err
	}

	if err := s.publisher.PublishMessagePosted(ctx, commonevents.MessagePostedEvent{
		GroupId:   groupId,
		MessageId: message.MessageId,
		SenderId:  senderId,
		CreatedAt: message.CreatedAt,
	}); err != nil {
		s.logger.Warn("message stored but event not published", "message_id", message.MessageId, "error", err)
	}

	return message, nil
}

func (s *chatService) PostAnnouncement(ctx context.Context, senderUsername string, content string) (*models.Announcement, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "announcement content is required")
	}

	announcement := &models.Announcement{
		AnnouncementId: uuid.New().String(),
		SenderUsername: senderUsername,
		Content:        content,
		CreatedAt:      s.now(),
	}
	if err := s.announcementRepo.Create(ctx, announcement); err != nil {
		s.logger.Error("failed to store announcement", "error", err)
		return nil, err
	}

	if err := s.publisher.PublishAnnouncementPosted(ctx, commonevents.AnnouncementPostedEvent{
		AnnouncementId: announcement.AnnouncementId,
		CreatedAt:      announcement.CreatedAt,
	}); err != nil {
		s.logger.Warn("announcement stored but event not published", "announcement_id", announcement.AnnouncementId, "error", err)
	}

	return announcement, nil
}

func (s *chatService) publishMembership(ctx context.Context, groupId string, userId string, joined bool) {
	if err := s.publisher.PublishMembershipChanged(ctx, commonevents.MembershipChangedEvent{
		GroupId: groupId,
		UserId:  userId,
		Joined:  joined,
	}); err != nil {
		s.logger.Warn("membership event not published", "group_id", groupId, "user_id", userId, "error", err)
	}
}

package service

import (
	"context"

	apperrors "github.com/burakmert236/courtside/common/errors"
	"github.com/burakmert236/courtside/common/logger"
	"github.com/burakmert236/courtside/internal/session"
	"github.com/burakmert236/courtside/internal/unread"
)

type UnreadOperations interface {
	AggregateTotal(ctx context.Context, userId string) (unread.Totals, error)
	MarkGroupRead(ctx context.Context, groupId string, userId string) error
	MarkAnnouncementsRead(ctx context.Context, userId string) error
}

type BadgeAuthorizer interface {
	Authorize(ctx context.Context, userId string, authorized bool) error
}

type NotificationService interface {
	OpenSession(ctx context.Context, userId string) error
	CloseSession(ctx context.Context, userId string) bool
	GetUnread(ctx context.Context, userId string) (unread.Totals, error)
	MarkGroupRead(ctx context.Context, groupId string, userId string) error
	MarkAnnouncementsRead(ctx context.Context, userId string) error
	SetBadgeAuthorization(ctx context.Context, userId string, authorized bool) error
}

type notificationService struct {
	sessions   *session.Manager
	unread     UnreadOperations
	authorizer BadgeAuthorizer
	logger     *logger.Logger
}

func NewNotificationService(
	sessions *session.Manager,
	unread UnreadOperations,
	authorizer BadgeAuthorizer,
	logger *logger.Logger,
) NotificationService {
	return &notificationService{
		sessions:   sessions,
		unread:     unread,
		authorizer: authorizer,
		logger:     logger.With("component", "notification-service"),
	}
}

func (s *notificationService) OpenSession(ctx context.Context, userId string) error {
	if userId == "" {
		return apperrors.New(apperrors.CodeUnauthorized, "missing user identity")
	}
	s.sessions.Open(ctx, userId)
	return nil
}

func (s *notificationService) CloseSession(ctx context.Context, userId string) bool {
	return s.sessions.Close(userId)
}

// GetUnread runs a fresh aggregation instead of returning the session's
// last result, so callers without a session get exact numbers too.
func (s *notificationService) GetUnread(ctx context.Context, userId string) (unread.Totals, error) {
	if userId == "" {
		return unread.Totals{}, apperrors.New(apperrors.CodeUnauthorized, "missing user identity")
	}

	totals, err := s.unread.AggregateTotal(ctx, userId)
	if err != nil {
		return unread.Totals{}, apperrors.Wrap(err, apperrors.CodeServiceUnavailable, "failed to aggregate unread counts")
	}
	return totals, nil
}

func (s *notificationService) MarkGroupRead(ctx context.Context, groupId string, userId string) error {
	if groupId == "" {
		return apperrors.New(apperrors.CodeInvalidInput, "group id is required")
	}
	if err := s.unread.MarkGroupRead(ctx, groupId, userId); err != nil {
		return err
	}

	s.sessions.OnWatermarkAdvanced(userId)
	return nil
}

func (s *notificationService) MarkAnnouncementsRead(ctx context.Context, userId string) error {
	if err := s.unread.MarkAnnouncementsRead(ctx, userId); err != nil {
		return err
	}

	s.sessions.OnWatermarkAdvanced(userId)
	return nil
}

func (s *notificationService) SetBadgeAuthorization(ctx context.Context, userId string, authorized bool) error {
	if err := s.authorizer.Authorize(ctx, userId, authorized); err != nil {
		s.logger.Error("failed to store badge authorization", "user_id", userId, "error", err)
		return err
	}

	if sess, ok := s.sessions.Get(userId); ok && authorized {
		sess.Trigger("badge_authorized")
	}
	return nil
}

package events

import (
	"context"
	"time"

	"google.golang.org/protobuf/proto"

	commonevents "github.com/burakmert236/courtside/common/events"
	apperrors "github.com/burakmert236/courtside/common/errors"
	"github.com/burakmert236/courtside/common/logger"
)

type ProtoPublisher interface {
	PublishProto(ctx context.Context, subject string, msg proto.Message) *apperrors.AppError
}

// EventPublisher emits chat change events. It also satisfies the unread
// aggregator's Notifier.
type EventPublisher struct {
	publisher ProtoPublisher
	logger    *logger.Logger
}

func NewEventPublisher(publisher ProtoPublisher, log *logger.Logger) *EventPublisher {
	return &EventPublisher{
		publisher: publisher,
		logger:    log.With("component", "event-publisher"),
	}
}

func (p *EventPublisher) PublishMessagePosted(ctx context.Context, event commonevents.MessagePostedEvent) error {
	payload, err := event.Proto()
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeObjectMarshalError, "failed to build message posted event")
	}
	return p.publish(ctx, commonevents.MessagePosted, payload, "group_id", event.GroupId)
}

func (p *EventPublisher) PublishMembershipChanged(ctx context.Context, event commonevents.MembershipChangedEvent) error {
	payload, err := event.Proto()
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeObjectMarshalError, "failed to build membership changed event")
	}
	return p.publish(ctx, commonevents.MembershipChanged, payload, "group_id", event.GroupId, "user_id", event.UserId)
}

func (p *EventPublisher) PublishAnnouncementPosted(ctx context.Context, event commonevents.AnnouncementPostedEvent) error {
	payload, err := event.Proto()
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeObjectMarshalError, "failed to build announcement posted event")
	}
	return p.publish(ctx, commonevents.AnnouncementPosted, payload, "announcement_id", event.AnnouncementId)
}

func (p *EventPublisher) WatermarkAdvanced(ctx context.Context, userId string, groupId string, readAt time.Time) error {
	event := commonevents.WatermarkAdvancedEvent{UserId: userId, GroupId: groupId, ReadAt: readAt}
	payload, err := event.Proto()
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeObjectMarshalError, "failed to build watermark advanced event")
	}
	return p.publish(ctx, commonevents.WatermarkAdvanced, payload, "user_id", userId, "group_id", groupId)
}

func (p *EventPublisher) publish(ctx context.Context, subject string, payload proto.Message, fields ...interface{}) error {
	if appErr := p.publisher.PublishProto(ctx, subject, payload); appErr != nil {
		p.logger.Error("Failed to publish event", append([]interface{}{"subject", subject, "error", appErr}, fields...)...)
		return appErr
	}

	p.logger.Debug("Published event", append([]interface{}{"subject", subject}, fields...)...)
	return nil
}

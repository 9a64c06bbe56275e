package events

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	commonevents "github.com/burakmert236/courtside/common/events"
	"github.com/burakmert236/courtside/common/logger"
	"github.com/burakmert236/courtside/common/natsjetstream"
)

// SessionRouter receives decoded chat change events.
type SessionRouter interface {
	OnMessagePosted(groupId string)
	OnMembershipChanged(userId string)
	OnAnnouncementPosted()
	OnWatermarkAdvanced(userId string)
}

type EventSubscriber struct {
	subscriber *natsjetstream.Subscriber
	router     SessionRouter
	instanceId string
	logger     *logger.Logger
}

func NewEventSubscriber(
	natsClient *natsjetstream.Client,
	router SessionRouter,
	logger *logger.Logger,
) *EventSubscriber {
	return &EventSubscriber{
		subscriber: natsjetstream.NewSubscriber(natsClient, logger),
		router:     router,
		instanceId: uuid.New().String(),
		logger:     logger.With("component", "event-subscriber"),
	}
}

func (s *EventSubscriber) Start(ctx context.Context) error {
	s.logger.Info("Starting event subscriptions")

	if err := s.subscribeToChatEvents(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to chat events: %w", err)
	}

	s.logger.Info("All event subscriptions started")
	return nil
}

func (s *EventSubscriber) Stop() error {
	return s.subscriber.Stop()
}

// Sessions live in process memory, so every instance needs every event:
// the consumer is ephemeral and named per instance.
func (s *EventSubscriber) subscribeToChatEvents(ctx context.Context) error {
	cfg := natsjetstream.ConsumerConfig{
		StreamName:    commonevents.ChatEventsStream,
		ConsumerName:  "courtside-sessions-" + s.instanceId,
		FilterSubject: commonevents.ChatEventsWildcard,
		AckPolicy:     "explicit",
		DeliverNew:    true,
	}

	s.logger.Info("Subscribing to chat events",
		"stream", cfg.StreamName,
		"consumer", cfg.ConsumerName,
	)

	return s.subscriber.Subscribe(ctx, cfg, s.handleChatEvents)
}

func (s *EventSubscriber) handleChatEvents(ctx context.Context, msg jetstream.Msg) error {
	return s.Dispatch(msg.Subject(), msg.Data())
}

// Dispatch decodes one chat event and routes it. Unknown subjects are
// logged and dropped.
func (s *EventSubscriber) Dispatch(subject string, data []byte) error {
	s.logger.Debug("Received chat event", "subject", subject)

	var payload structpb.Struct
	if err := proto.Unmarshal(data, &payload); err != nil {
		s.logger.Error("Failed to unmarshal chat event", "subject", subject, "error", err)
		return fmt.Errorf("unmarshal error: %w", err)
	}

	switch subject {
	case commonevents.MessagePosted:
		event, err := commonevents.DecodeMessagePosted(&payload)
		if err != nil {
			return err
		}
		s.router.OnMessagePosted(event.GroupId)

	case commonevents.MembershipChanged:
		event, err := commonevents.DecodeMembershipChanged(&payload)
		if err != nil {
			return err
		}
		s.router.OnMembershipChanged(event.UserId)

	case commonevents.AnnouncementPosted:
		if _, err := commonevents.DecodeAnnouncementPosted(&payload); err != nil {
			return err
		}
		s.router.OnAnnouncementPosted()

	case commonevents.WatermarkAdvanced:
		event, err := commonevents.DecodeWatermarkAdvanced(&payload)
		if err != nil {
			return err
		}
		s.router.OnWatermarkAdvanced(event.UserId)

	default:
		s.logger.Warn("Unknown chat event subject", "subject", subject)
	}

	return nil
}

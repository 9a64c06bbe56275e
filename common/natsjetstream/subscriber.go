package natsjetstream

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
	"google.golang.org/protobuf/proto"

	"github.com/burakmert236/courtside/common/logger"
)

type Subscriber struct {
	client   *Client
	logger   *logger.Logger
	contexts []jetstream.ConsumeContext
}

type MessageHandler func(ctx context.Context, msg jetstream.Msg) error

func NewSubscriber(client *Client, log *logger.Logger) *Subscriber {
	return &Subscriber{
		client: client,
		logger: log.With("component", "jetstream-subscriber"),
	}
}

func (s *Subscriber) Subscribe(ctx context.Context, cfg ConsumerConfig, handler MessageHandler) error {
	consumerConfig := jetstream.ConsumerConfig{
		Name:          cfg.ConsumerName,
		Durable:       cfg.Durable,
		FilterSubject: cfg.FilterSubject,
		AckWait:       cfg.AckWait,
		MaxDeliver:    cfg.MaxDeliver,
		MaxAckPending: cfg.MaxAckPending,
	}

	if cfg.DeliverNew {
		consumerConfig.DeliverPolicy = jetstream.DeliverNewPolicy
	}

	switch cfg.AckPolicy {
	case "explicit":
		consumerConfig.AckPolicy = jetstream.AckExplicitPolicy
	case "none":
		consumerConfig.AckPolicy = jetstream.AckNonePolicy
	case "all":
		consumerConfig.AckPolicy = jetstream.AckAllPolicy
	default:
		consumerConfig.AckPolicy = jetstream.AckExplicitPolicy
	}

	consumer, err := s.client.js.CreateOrUpdateConsumer(ctx, cfg.StreamName, consumerConfig)
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	consumeCtx, err := consumer.Consume(func(msg jetstream.Msg) {
		if err := handler(ctx, msg); err != nil {
			s.logger.Error("Error handling message",
				"error", err,
				"subject", msg.Subject(),
			)
			msg.Nak()
			return
		}
		msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	s.contexts = append(s.contexts, consumeCtx)
	return nil
}

// Stop ends every consumer started by this subscriber.
func (s *Subscriber) Stop() error {
	for _, c := range s.contexts {
		c.Stop()
	}
	s.contexts = nil
	return nil
}

func UnmarshalProto(msg jetstream.Msg, pb proto.Message) error {
	return proto.Unmarshal(msg.Data(), pb)
}

package natsjetstream

import (
	"context"

	"github.com/nats-io/nats.go/jetstream"
	"google.golang.org/protobuf/proto"

	apperrors "github.com/burakmert236/courtside/common/errors"
)

type Publisher struct {
	js jetstream.Publisher
}

func NewPublisher(client *Client) *Publisher {
	return &Publisher{js: client.js}
}

func (p *Publisher) PublishProto(ctx context.Context, subject string, msg proto.Message) *apperrors.AppError {
	data, err := proto.Marshal(msg)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeObjectMarshalError, "failed to marshal proto message")
	}

	return p.Publish(ctx, subject, data)
}

func (p *Publisher) Publish(ctx context.Context, subject string, data []byte) *apperrors.AppError {
	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		return apperrors.Wrap(err, apperrors.CodeEventPublishError, "failed to publish message")
	}
	return nil
}

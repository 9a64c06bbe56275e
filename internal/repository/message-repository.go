package repository

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/burakmert236/courtside/common/database"
	apperrors "github.com/burakmert236/courtside/common/errors"
	"github.com/burakmert236/courtside/common/models"
)

type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	// CountAfter counts messages of the group created strictly after the given time.
	CountAfter(ctx context.Context, groupId string, after time.Time) (int, error)
}

type messageRepo struct {
	db *database.DynamoDBClient
}

func NewMessageRepository(db *database.DynamoDBClient) MessageRepository {
	return &messageRepo{db: db}
}

func (r *messageRepo) Create(ctx context.Context, message *models.Message) error {
	message.PK = models.GroupPK(message.GroupId)
	message.SK = models.MessageSK(message.CreatedAt, message.MessageId)

	item, err := attributevalue.MarshalMap(message)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeObjectMarshalError, "failed to marshal message")
	}

	_, err = r.db.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.db.Table()),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to create message")
	}

	return nil
}

func (r *messageRepo) CountAfter(ctx context.Context, groupId string, after time.Time) (int, error) {
	count, err := countRange(ctx, r.db,
		models.GroupPK(groupId),
		models.MessageSKAfter(after),
		models.MessageSKUpperBound(),
	)
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to count messages")
	}
	return count, nil
}

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/burakmert236/courtside/common/database"
	apperrors "github.com/burakmert236/courtside/common/errors"
	"github.com/burakmert236/courtside/common/models"
)

// WatermarkRepository stores "last read" timestamps. Group watermarks live
// on the membership item, the announcement watermark on the user profile.
type WatermarkRepository interface {
	SetGroupWatermark(ctx context.Context, groupId string, userId string, readAt time.Time) error
	GetAnnouncementWatermark(ctx context.Context, userId string) (time.Time, error)
	SetAnnouncementWatermark(ctx context.Context, userId string, readAt time.Time) error
}

type watermarkRepo struct {
	db *database.DynamoDBClient
}

func NewWatermarkRepository(db *database.DynamoDBClient) WatermarkRepository {
	return &watermarkRepo{db: db}
}

func (r *watermarkRepo) SetGroupWatermark(ctx context.Context, groupId string, userId string, readAt time.Time) error {
	_, err := r.db.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.db.Table()),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: models.GroupPK(groupId)},
			"SK": &types.AttributeValueMemberS{Value: models.MemberSK(userId)},
		},
		UpdateExpression:    aws.String("SET last_read_at = :readAt"),
		ConditionExpression: aws.String("attribute_exists(PK)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":readAt": &types.AttributeValueMemberS{Value: readAt.UTC().Format(time.RFC3339Nano)},
		},
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return apperrors.New(apperrors.CodeNotMember, "user is not a member of the group")
		}
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to set group watermark")
	}

	return nil
}

// GetAnnouncementWatermark returns epoch-zero for a user who never read the feed.
func (r *watermarkRepo) GetAnnouncementWatermark(ctx context.Context, userId string) (time.Time, error) {
	result, err := r.db.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.db.Table()),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: models.UserPK(userId)},
			"SK": &types.AttributeValueMemberS{Value: models.ProfileSK()},
		},
		ProjectionExpression: aws.String("last_read_announcements_at"),
	})
	if err != nil {
		return time.Time{}, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to get announcement watermark")
	}

	if result.Item == nil {
		return models.EpochZero, nil
	}

	var user models.User
	if err := attributevalue.UnmarshalMap(result.Item, &user); err != nil {
		return time.Time{}, apperrors.Wrap(err, apperrors.CodeObjectUnmarshalError, "failed to unmarshal user")
	}

	if user.LastReadAnnouncementsAt.IsZero() {
		return models.EpochZero, nil
	}
	return user.LastReadAnnouncementsAt, nil
}

// SetAnnouncementWatermark upserts the profile item.
func (r *watermarkRepo) SetAnnouncementWatermark(ctx context.Context, userId string, readAt time.Time) error {
	_, err := r.db.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.db.Table()),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: models.UserPK(userId)},
			"SK": &types.AttributeValueMemberS{Value: models.ProfileSK()},
		},
		UpdateExpression: aws.String("SET last_read_announcements_at = :readAt, user_id = if_not_exists(user_id, :userId)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":readAt": &types.AttributeValueMemberS{Value: readAt.UTC().Format(time.RFC3339Nano)},
			":userId": &types.AttributeValueMemberS{Value: userId},
		},
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to set announcement watermark")
	}

	return nil
}

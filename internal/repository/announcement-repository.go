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

type AnnouncementRepository interface {
	Create(ctx context.Context, announcement *models.Announcement) error
	CountAfter(ctx context.Context, after time.Time) (int, error)
}

type announcementRepo struct {
	db *database.DynamoDBClient
}

func NewAnnouncementRepository(db *database.DynamoDBClient) AnnouncementRepository {
	return &announcementRepo{db: db}
}

func (r *announcementRepo) Create(ctx context.Context, announcement *models.Announcement) error {
	announcement.PK = models.AnnouncementsPK()
	announcement.SK = models.AnnouncementSK(announcement.CreatedAt, announcement.AnnouncementId)

	item, err := attributevalue.MarshalMap(announcement)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeObjectMarshalError, "failed to marshal announcement")
	}

	_, err = r.db.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.db.Table()),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to create announcement")
	}

	return nil
}

func (r *announcementRepo) CountAfter(ctx context.Context, after time.Time) (int, error) {
	count, err := countRange(ctx, r.db,
		models.AnnouncementsPK(),
		models.AnnouncementSKAfter(after),
		models.AnnouncementSKUpperBound(),
	)
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to count announcements")
	}
	return count, nil
}

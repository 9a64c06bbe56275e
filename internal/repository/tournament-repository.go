package repository

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/burakmert236/courtside/common/database"
	apperrors "github.com/burakmert236/courtside/common/errors"
	"github.com/burakmert236/courtside/common/models"
)

type TournamentRepository interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	GetById(ctx context.Context, tournamentId string) (*models.Tournament, error)
}

type tournamentRepo struct {
	db *database.DynamoDBClient
}

func NewTournamentRepository(db *database.DynamoDBClient) TournamentRepository {
	return &tournamentRepo{db: db}
}

func (r *tournamentRepo) Create(ctx context.Context, tournament *models.Tournament) error {
	now := time.Now().UTC()
	tournament.PK = models.TournamentPK(tournament.TournamentId)
	tournament.SK = models.MetaSK()
	tournament.CreatedAt = now
	tournament.UpdatedAt = now

	item, err := attributevalue.MarshalMap(tournament)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeObjectMarshalError, "failed to marshal tournament")
	}

	_, err = r.db.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.db.Table()),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to create tournament")
	}

	return nil
}

func (r *tournamentRepo) GetById(ctx context.Context, tournamentId string) (*models.Tournament, error) {
	result, err := r.db.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.db.Table()),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: models.TournamentPK(tournamentId)},
			"SK": &types.AttributeValueMemberS{Value: models.MetaSK()},
		},
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to get tournament")
	}

	if result.Item == nil {
		return nil, apperrors.New(apperrors.CodeNotFound, "tournament not found")
	}

	var tournament models.Tournament
	if err := attributevalue.UnmarshalMap(result.Item, &tournament); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeObjectUnmarshalError, "failed to unmarshal tournament")
	}

	return &tournament, nil
}

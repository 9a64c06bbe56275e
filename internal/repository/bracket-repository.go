package repository

import (
	"context"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/burakmert236/courtside/common/database"
	apperrors "github.com/burakmert236/courtside/common/errors"
	"github.com/burakmert236/courtside/common/models"
)

type BracketRepository interface {
	ListRounds(ctx context.Context, tournamentId string, categoryId string) ([]models.BracketRound, error)
	// GetChampion returns nil without error when no champion was stored.
	GetChampion(ctx context.Context, tournamentId string, categoryId string) (*models.BracketChampion, error)
	SaveRound(ctx context.Context, round *models.BracketRound) error
	// AdvanceRound stores the completed round and removes every stored round
	// after it up to lastRoundIndex, together with the champion.
	AdvanceRound(ctx context.Context, round *models.BracketRound, lastRoundIndex int) error
	DeclareChampion(ctx context.Context, final *models.BracketRound, champion *models.BracketChampion) error
	SaveChampion(ctx context.Context, champion *models.BracketChampion) error
}

type bracketRepo struct {
	db  *database.DynamoDBClient
	txn database.TransactionRepository
}

func NewBracketRepository(db *database.DynamoDBClient) BracketRepository {
	return &bracketRepo{
		db:  db,
		txn: database.NewTransactionRepository(db),
	}
}

func (r *bracketRepo) ListRounds(ctx context.Context, tournamentId string, categoryId string) ([]models.BracketRound, error) {
	rounds := make([]models.BracketRound, 0)
	var startKey map[string]types.AttributeValue

	for {
		result, err := r.db.Client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.db.Table()),
			KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: models.DrawPK(tournamentId, categoryId)},
				":sk": &types.AttributeValueMemberS{Value: models.RoundSKPrefix()},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to list bracket rounds")
		}

		page := make([]models.BracketRound, 0, len(result.Items))
		if err := attributevalue.UnmarshalListOfMaps(result.Items, &page); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeObjectUnmarshalError, "failed to unmarshal bracket rounds")
		}
		rounds = append(rounds, page...)

		if len(result.LastEvaluatedKey) == 0 {
			break
		}
		startKey = result.LastEvaluatedKey
	}

	sort.Slice(rounds, func(i, j int) bool {
		return rounds[i].RoundIndex < rounds[j].RoundIndex
	})

	return rounds, nil
}

func (r *bracketRepo) GetChampion(ctx context.Context, tournamentId string, categoryId string) (*models.BracketChampion, error) {
	result, err := r.db.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.db.Table()),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: models.DrawPK(tournamentId, categoryId)},
			"SK": &types.AttributeValueMemberS{Value: models.ChampionSK()},
		},
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to get champion")
	}

	if result.Item == nil {
		return nil, nil
	}

	var champion models.BracketChampion
	if err := attributevalue.UnmarshalMap(result.Item, &champion); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeObjectUnmarshalError, "failed to unmarshal champion")
	}

	return &champion, nil
}

func (r *bracketRepo) SaveRound(ctx context.Context, round *models.BracketRound) error {
	put, err := r.roundPut(round)
	if err != nil {
		return err
	}

	_, err = r.db.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: put.TableName,
		Item:      put.Item,
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to save bracket round")
	}

	return nil
}

func (r *bracketRepo) AdvanceRound(ctx context.Context, round *models.BracketRound, lastRoundIndex int) error {
	put, err := r.roundPut(round)
	if err != nil {
		return err
	}

	tb := database.NewTransactionBuilder()
	_ = tb.AddPut(put)

	pk := models.DrawPK(round.TournamentId, round.CategoryId)
	for idx := round.RoundIndex + 1; idx <= lastRoundIndex; idx++ {
		if err := tb.AddDelete(r.deleteKey(pk, models.RoundSK(idx))); err != nil {
			return apperrors.Wrap(err, apperrors.CodeInvalidInput, "bracket too deep")
		}
	}
	if err := tb.AddDelete(r.deleteKey(pk, models.ChampionSK())); err != nil {
		return apperrors.Wrap(err, apperrors.CodeInvalidInput, "bracket too deep")
	}

	if appErr := r.txn.Execute(ctx, tb); appErr != nil {
		return appErr
	}

	return nil
}

func (r *bracketRepo) DeclareChampion(ctx context.Context, final *models.BracketRound, champion *models.BracketChampion) error {
	roundPut, err := r.roundPut(final)
	if err != nil {
		return err
	}
	championPut, err := r.championPut(champion)
	if err != nil {
		return err
	}

	tb := database.NewTransactionBuilder()
	_ = tb.AddPut(roundPut)
	_ = tb.AddPut(championPut)

	if appErr := r.txn.Execute(ctx, tb); appErr != nil {
		return appErr
	}

	return nil
}

func (r *bracketRepo) SaveChampion(ctx context.Context, champion *models.BracketChampion) error {
	put, err := r.championPut(champion)
	if err != nil {
		return err
	}

	_, err = r.db.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: put.TableName,
		Item:      put.Item,
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to save champion")
	}

	return nil
}

func (r *bracketRepo) roundPut(round *models.BracketRound) (types.Put, error) {
	round.PK = models.DrawPK(round.TournamentId, round.CategoryId)
	round.SK = models.RoundSK(round.RoundIndex)
	round.RoundKey = models.RoundKey(round.RoundIndex)
	round.UpdatedAt = time.Now().UTC()

	item, err := attributevalue.MarshalMap(round)
	if err != nil {
		return types.Put{}, apperrors.Wrap(err, apperrors.CodeObjectMarshalError, "failed to marshal bracket round")
	}

	return types.Put{
		TableName: aws.String(r.db.Table()),
		Item:      item,
	}, nil
}

func (r *bracketRepo) championPut(champion *models.BracketChampion) (types.Put, error) {
	champion.PK = models.DrawPK(champion.TournamentId, champion.CategoryId)
	champion.SK = models.ChampionSK()
	champion.UpdatedAt = time.Now().UTC()

	item, err := attributevalue.MarshalMap(champion)
	if err != nil {
		return types.Put{}, apperrors.Wrap(err, apperrors.CodeObjectMarshalError, "failed to marshal champion")
	}

	return types.Put{
		TableName: aws.String(r.db.Table()),
		Item:      item,
	}, nil
}

func (r *bracketRepo) deleteKey(pk string, sk string) types.Delete {
	return types.Delete{
		TableName: aws.String(r.db.Table()),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk},
			"SK": &types.AttributeValueMemberS{Value: sk},
		},
	}
}

package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/burakmert236/courtside/common/database"
	apperrors "github.com/burakmert236/courtside/common/errors"
	"github.com/burakmert236/courtside/common/models"
)

type GroupRepository interface {
	CreateGroup(ctx context.Context, group *models.Group) error
	GetById(ctx context.Context, groupId string) (*models.Group, error)
	AddMember(ctx context.Context, groupId string, userId string) error
	RemoveMember(ctx context.Context, groupId string, userId string) error
	GetMembership(ctx context.Context, groupId string, userId string) (*models.Membership, error)
	ListGroupIdsForUser(ctx context.Context, userId string) ([]string, error)
}

type groupRepo struct {
	db  *database.DynamoDBClient
	txn database.TransactionRepository
}

func NewGroupRepository(db *database.DynamoDBClient) GroupRepository {
	return &groupRepo{
		db:  db,
		txn: database.NewTransactionRepository(db),
	}
}

// CreateGroup writes the group item and one membership item per member
// in a single transaction.
func (r *groupRepo) CreateGroup(ctx context.Context, group *models.Group) error {
	now := time.Now().UTC()
	group.PK = models.GroupPK(group.GroupId)
	group.SK = models.MetaSK()
	group.CreatedAt = now
	group.UpdatedAt = now

	item, err := attributevalue.MarshalMap(group)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeObjectMarshalError, "failed to marshal group")
	}

	tb := database.NewTransactionBuilder()
	if err := tb.AddPut(types.Put{
		TableName:           aws.String(r.db.Table()),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	}); err != nil {
		return apperrors.Wrap(err, apperrors.CodeInvalidInput, "group too large")
	}

	for _, userId := range group.MemberIds {
		put, err := r.membershipPut(group.GroupId, userId, now)
		if err != nil {
			return err
		}
		if err := tb.AddPut(put); err != nil {
			return apperrors.Wrap(err, apperrors.CodeInvalidInput, "group too large")
		}
	}

	if appErr := r.txn.Execute(ctx, tb); appErr != nil {
		return appErr
	}

	return nil
}

func (r *groupRepo) GetById(ctx context.Context, groupId string) (*models.Group, error) {
	result, err := r.db.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.db.Table()),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: models.GroupPK(groupId)},
			"SK": &types.AttributeValueMemberS{Value: models.MetaSK()},
		},
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to get group")
	}

	if result.Item == nil {
		return nil, apperrors.New(apperrors.CodeNotFound, "group not found")
	}

	var group models.Group
	if err := attributevalue.UnmarshalMap(result.Item, &group); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeObjectUnmarshalError, "failed to unmarshal group")
	}

	return &group, nil
}

func (r *groupRepo) AddMember(ctx context.Context, groupId string, userId string) error {
	put, err := r.membershipPut(groupId, userId, time.Now().UTC())
	if err != nil {
		return err
	}

	tb := database.NewTransactionBuilder()
	_ = tb.AddPut(put)
	_ = tb.AddUpdate(types.Update{
		TableName: aws.String(r.db.Table()),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: models.GroupPK(groupId)},
			"SK": &types.AttributeValueMemberS{Value: models.MetaSK()},
		},
		UpdateExpression:    aws.String("ADD member_ids :member SET updated_at = :now"),
		ConditionExpression: aws.String("attribute_exists(PK)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":member": &types.AttributeValueMemberSS{Value: []string{userId}},
			":now":    &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)},
		},
	})

	if appErr := r.txn.Execute(ctx, tb); appErr != nil {
		return appErr
	}

	return nil
}

// RemoveMember deletes the membership and shrinks the member set in one
// transaction. The group must keep at least two members afterwards.
func (r *groupRepo) RemoveMember(ctx context.Context, groupId string, userId string) error {
	tb := database.NewTransactionBuilder()
	_ = tb.AddDelete(types.Delete{
		TableName: aws.String(r.db.Table()),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: models.GroupPK(groupId)},
			"SK": &types.AttributeValueMemberS{Value: models.MemberSK(userId)},
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})
	_ = tb.AddUpdate(types.Update{
		TableName: aws.String(r.db.Table()),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: models.GroupPK(groupId)},
			"SK": &types.AttributeValueMemberS{Value: models.MetaSK()},
		},
		UpdateExpression:    aws.String("DELETE member_ids :member SET updated_at = :now"),
		ConditionExpression: aws.String("attribute_exists(PK) AND size(member_ids) > :floor"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":member": &types.AttributeValueMemberSS{Value: []string{userId}},
			":now":    &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)},
			":floor":  &types.AttributeValueMemberN{Value: strconv.Itoa(models.MinGroupMembers)},
		},
	})

	if appErr := r.txn.Execute(ctx, tb); appErr != nil {
		return removeMemberError(appErr)
	}

	return nil
}

// removeMemberError maps cancellation reasons, in transaction item order, to
// domain errors: the membership delete first, then the member set update.
func removeMemberError(err *apperrors.AppError) error {
	var canceled *types.TransactionCanceledException
	if !errors.As(err, &canceled) {
		return err
	}

	reasons := canceled.CancellationReasons
	if conditionFailed(reasons, 0) {
		return apperrors.New(apperrors.CodeNotMember, "user is not a member of the group")
	}
	if conditionFailed(reasons, 1) {
		return apperrors.New(apperrors.CodeFailedPrecondition, "a group cannot drop below two members")
	}
	return err
}

func conditionFailed(reasons []types.CancellationReason, i int) bool {
	return i < len(reasons) && aws.ToString(reasons[i].Code) == "ConditionalCheckFailed"
}

// GetMembership returns a CodeNotMember error when the user is not in the group.
func (r *groupRepo) GetMembership(ctx context.Context, groupId string, userId string) (*models.Membership, error) {
	result, err := r.db.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.db.Table()),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: models.GroupPK(groupId)},
			"SK": &types.AttributeValueMemberS{Value: models.MemberSK(userId)},
		},
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to get membership")
	}

	if result.Item == nil {
		return nil, apperrors.New(apperrors.CodeNotMember, "user is not a member of the group")
	}

	var membership models.Membership
	if err := attributevalue.UnmarshalMap(result.Item, &membership); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeObjectUnmarshalError, "failed to unmarshal membership")
	}

	return &membership, nil
}

func (r *groupRepo) ListGroupIdsForUser(ctx context.Context, userId string) ([]string, error) {
	groupIds := make([]string, 0)
	var startKey map[string]types.AttributeValue

	for {
		result, err := r.db.Client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.db.Table()),
			IndexName:              aws.String("GSI1"),
			KeyConditionExpression: aws.String("GSI1PK = :pk AND begins_with(GSI1SK, :sk)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: models.UserPK(userId)},
				":sk": &types.AttributeValueMemberS{Value: models.GroupSKPrefix()},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to list memberships")
		}

		for _, item := range result.Items {
			var membership models.Membership
			if err := attributevalue.UnmarshalMap(item, &membership); err != nil {
				return nil, apperrors.Wrap(err, apperrors.CodeObjectUnmarshalError, "failed to unmarshal membership")
			}
			groupIds = append(groupIds, membership.GroupId)
		}

		if len(result.LastEvaluatedKey) == 0 {
			return groupIds, nil
		}
		startKey = result.LastEvaluatedKey
	}
}

func (r *groupRepo) membershipPut(groupId string, userId string, joinedAt time.Time) (types.Put, error) {
	membership := &models.Membership{
		GroupId:  groupId,
		UserId:   userId,
		JoinedAt: joinedAt,
		PK:       models.GroupPK(groupId),
		SK:       models.MemberSK(userId),
		GSI1PK:   models.UserPK(userId),
		GSI1SK:   models.GroupPK(groupId),
	}

	item, err := attributevalue.MarshalMap(membership)
	if err != nil {
		return types.Put{}, apperrors.Wrap(err, apperrors.CodeObjectMarshalError, "failed to marshal membership")
	}

	return types.Put{
		TableName:           aws.String(r.db.Table()),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	}, nil
}

package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/burakmert236/courtside/common/errors"
	"github.com/burakmert236/courtside/common/models"
)

func stringValue(t *testing.T, av types.AttributeValue) string {
	t.Helper()
	s, ok := av.(*types.AttributeValueMemberS)
	require.True(t, ok, "expected string attribute, got %T", av)
	return s.Value
}

func TestMessageCountAfterFollowsPages(t *testing.T) {
	fake := &fakeDynamo{
		queryPages: []*dynamodb.QueryOutput{
			{
				Count: 3,
				LastEvaluatedKey: map[string]types.AttributeValue{
					"PK": &types.AttributeValueMemberS{Value: "GROUP#g1"},
					"SK": &types.AttributeValueMemberS{Value: "MSG#x"},
				},
			},
			{Count: 2},
		},
	}
	repo := NewMessageRepository(newTestClient(fake))

	watermark := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	count, err := repo.CountAfter(context.Background(), "g1", watermark)

	require.NoError(t, err)
	assert.Equal(t, 5, count)
	require.Len(t, fake.queries, 2)

	first := fake.queries[0]
	assert.Equal(t, types.SelectCount, first.Select)
	assert.Equal(t, "GROUP#g1", stringValue(t, first.ExpressionAttributeValues[":pk"]))
	assert.Equal(t, models.MessageSKAfter(watermark), stringValue(t, first.ExpressionAttributeValues[":from"]))
	assert.Equal(t, models.MessageSKUpperBound(), stringValue(t, first.ExpressionAttributeValues[":to"]))
	assert.Nil(t, first.ExclusiveStartKey)
	assert.NotNil(t, fake.queries[1].ExclusiveStartKey)
}

func TestAnnouncementCountAfterWrapsErrors(t *testing.T) {
	repo := NewAnnouncementRepository(newTestClient(&fakeDynamo{queryErr: errors.New("throttled")}))

	_, err := repo.CountAfter(context.Background(), models.EpochZero)

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeDatabaseError))
}

func TestSetGroupWatermarkRequiresMembership(t *testing.T) {
	fake := &fakeDynamo{updateErr: &types.ConditionalCheckFailedException{Message: aws.String("condition failed")}}
	repo := NewWatermarkRepository(newTestClient(fake))

	err := repo.SetGroupWatermark(context.Background(), "g1", "u1", time.Now())

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotMember))
	require.Len(t, fake.updates, 1)
	assert.Equal(t, "attribute_exists(PK)", aws.ToString(fake.updates[0].ConditionExpression))
	assert.Equal(t, "MEMBER#u1", stringValue(t, fake.updates[0].Key["SK"]))
}

func TestAnnouncementWatermarkDefaultsToEpochZero(t *testing.T) {
	repo := NewWatermarkRepository(newTestClient(&fakeDynamo{}))

	watermark, err := repo.GetAnnouncementWatermark(context.Background(), "u1")

	require.NoError(t, err)
	assert.True(t, watermark.Equal(models.EpochZero))
}

func TestAnnouncementWatermarkRoundTripsStoredValue(t *testing.T) {
	readAt := time.Date(2026, 2, 3, 4, 5, 6, 789, time.UTC)
	item, err := attributevalue.MarshalMap(&models.User{UserId: "u1", LastReadAnnouncementsAt: readAt})
	require.NoError(t, err)

	repo := NewWatermarkRepository(newTestClient(&fakeDynamo{getItem: &dynamodb.GetItemOutput{Item: item}}))

	watermark, err := repo.GetAnnouncementWatermark(context.Background(), "u1")

	require.NoError(t, err)
	assert.True(t, watermark.Equal(readAt))
}

func TestListGroupIdsForUserUsesIndex(t *testing.T) {
	first, err := attributevalue.MarshalMap(&models.Membership{GroupId: "g1", UserId: "u1"})
	require.NoError(t, err)
	second, err := attributevalue.MarshalMap(&models.Membership{GroupId: "g2", UserId: "u1"})
	require.NoError(t, err)

	fake := &fakeDynamo{queryPages: []*dynamodb.QueryOutput{{Items: []map[string]types.AttributeValue{first, second}}}}
	repo := NewGroupRepository(newTestClient(fake))

	groupIds, err := repo.ListGroupIdsForUser(context.Background(), "u1")

	require.NoError(t, err)
	assert.Equal(t, []string{"g1", "g2"}, groupIds)
	assert.Equal(t, "GSI1", aws.ToString(fake.queries[0].IndexName))
	assert.Equal(t, "USER#u1", stringValue(t, fake.queries[0].ExpressionAttributeValues[":pk"]))
}

func TestGetMembershipMissingIsNotMember(t *testing.T) {
	repo := NewGroupRepository(newTestClient(&fakeDynamo{}))

	_, err := repo.GetMembership(context.Background(), "g1", "u9")

	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotMember))
}

func TestCreateGroupWritesMembershipsInOneTransaction(t *testing.T) {
	fake := &fakeDynamo{}
	repo := NewGroupRepository(newTestClient(fake))

	err := repo.CreateGroup(context.Background(), &models.Group{
		GroupId:   "g1",
		Name:      "Tuesday ladder",
		MemberIds: []string{"u1", "u2", "u3"},
	})

	require.NoError(t, err)
	require.Len(t, fake.transacts, 1)
	items := fake.transacts[0].TransactItems
	require.Len(t, items, 4)
	assert.Equal(t, "META", stringValue(t, items[0].Put.Item["SK"]))
	assert.Equal(t, "MEMBER#u2", stringValue(t, items[2].Put.Item["SK"]))
	assert.Equal(t, "USER#u2", stringValue(t, items[2].Put.Item["GSI1PK"]))
}

func canceledBy(codes ...string) error {
	reasons := make([]types.CancellationReason, 0, len(codes))
	for _, code := range codes {
		reasons = append(reasons, types.CancellationReason{Code: aws.String(code)})
	}
	return &types.TransactionCanceledException{
		Message:             aws.String("Transaction cancelled"),
		CancellationReasons: reasons,
	}
}

func TestRemoveMemberGuardsFloorInTransaction(t *testing.T) {
	fake := &fakeDynamo{}
	repo := NewGroupRepository(newTestClient(fake))

	require.NoError(t, repo.RemoveMember(context.Background(), "g1", "u3"))

	require.Len(t, fake.transacts, 1)
	items := fake.transacts[0].TransactItems
	require.Len(t, items, 2)
	assert.Equal(t, "MEMBER#u3", stringValue(t, items[0].Delete.Key["SK"]))

	update := items[1].Update
	require.NotNil(t, update)
	assert.Contains(t, aws.ToString(update.ConditionExpression), "size(member_ids) > :floor")
	floor, ok := update.ExpressionAttributeValues[":floor"].(*types.AttributeValueMemberN)
	require.True(t, ok)
	assert.Equal(t, "2", floor.Value)
}

func TestRemoveMemberMapsCancellationReasons(t *testing.T) {
	cases := map[string]struct {
		err  error
		code string
	}{
		"not a member":      {canceledBy("ConditionalCheckFailed", "None"), apperrors.CodeNotMember},
		"floor reached":     {canceledBy("None", "ConditionalCheckFailed"), apperrors.CodeFailedPrecondition},
		"both conditions":   {canceledBy("ConditionalCheckFailed", "ConditionalCheckFailed"), apperrors.CodeNotMember},
		"throttled":         {canceledBy("ThrottlingError", "None"), apperrors.CodeTransactionError},
		"transport failure": {errors.New("connection reset"), apperrors.CodeTransactionError},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			repo := NewGroupRepository(newTestClient(&fakeDynamo{transactErr: tc.err}))

			err := repo.RemoveMember(context.Background(), "g1", "u3")

			assert.True(t, apperrors.HasCode(err, tc.code), "got %v", err)
		})
	}
}

func TestAdvanceRoundPrunesLaterRoundsAndChampion(t *testing.T) {
	fake := &fakeDynamo{}
	repo := NewBracketRepository(newTestClient(fake))

	round := &models.BracketRound{
		TournamentId: "t1",
		CategoryId:   "open",
		RoundIndex:   0,
		PlayerNames:  []string{"a", "b", "c", "d", "e", "f", "g", "h"},
		Scores:       make([]string, 8),
		Completed:    true,
	}

	err := repo.AdvanceRound(context.Background(), round, 2)

	require.NoError(t, err)
	require.Len(t, fake.transacts, 1)
	items := fake.transacts[0].TransactItems
	require.Len(t, items, 4)

	require.NotNil(t, items[0].Put)
	assert.Equal(t, "ROUND#00", stringValue(t, items[0].Put.Item["SK"]))
	assert.Equal(t, "round_0", stringValue(t, items[0].Put.Item["round_key"]))

	assert.Equal(t, "ROUND#01", stringValue(t, items[1].Delete.Key["SK"]))
	assert.Equal(t, "ROUND#02", stringValue(t, items[2].Delete.Key["SK"]))
	assert.Equal(t, "CHAMPION", stringValue(t, items[3].Delete.Key["SK"]))
}

func TestAdvanceRoundSurfacesTransactionFailure(t *testing.T) {
	fake := &fakeDynamo{transactErr: errors.New("boom")}
	repo := NewBracketRepository(newTestClient(fake))

	err := repo.AdvanceRound(context.Background(), &models.BracketRound{TournamentId: "t1", CategoryId: "c"}, 1)

	assert.True(t, apperrors.HasCode(err, apperrors.CodeTransactionError))
}

func TestGetChampionAbsentIsNil(t *testing.T) {
	repo := NewBracketRepository(newTestClient(&fakeDynamo{}))

	champion, err := repo.GetChampion(context.Background(), "t1", "c")

	require.NoError(t, err)
	assert.Nil(t, champion)
}

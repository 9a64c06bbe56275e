package repository

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/burakmert236/courtside/common/database"
)

// countRange counts the items of one partition whose sort key lies in
// [from, to], following LastEvaluatedKey until the range is exhausted.
func countRange(ctx context.Context, db *database.DynamoDBClient, pk, from, to string) (int, error) {
	total := 0
	var startKey map[string]types.AttributeValue

	for {
		result, err := db.Client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(db.Table()),
			KeyConditionExpression: aws.String("PK = :pk AND SK BETWEEN :from AND :to"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk":   &types.AttributeValueMemberS{Value: pk},
				":from": &types.AttributeValueMemberS{Value: from},
				":to":   &types.AttributeValueMemberS{Value: to},
			},
			Select:            types.SelectCount,
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return 0, err
		}

		total += int(result.Count)

		if len(result.LastEvaluatedKey) == 0 {
			return total, nil
		}
		startKey = result.LastEvaluatedKey
	}
}

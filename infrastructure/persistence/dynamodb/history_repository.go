package dynamodb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/jgchk/romulus-sub005/application/ports"
	"github.com/jgchk/romulus-sub005/domain/core/valueobjects"
	"github.com/jgchk/romulus-sub005/domain/events"
	pkgerrors "github.com/jgchk/romulus-sub005/pkg/errors"
)

// History records are stored under their json attribute names
func useJSONTags(o *attributevalue.EncoderOptions) { o.TagKey = "json" }
func readJSONTags(o *attributevalue.DecoderOptions) { o.TagKey = "json" }

// HistoryRepository implements ports.HistoryRepository using DynamoDB. Each
// record sorts by tree version, then write time.
type HistoryRepository struct {
	client    Client
	tableName string
}

var _ ports.HistoryRepository = (*HistoryRepository)(nil)

// NewHistoryRepository creates a new DynamoDB history repository
func NewHistoryRepository(client Client, tableName string) *HistoryRepository {
	return &HistoryRepository{
		client:    client,
		tableName: tableName,
	}
}

// Record stores an audit record
func (r *HistoryRepository) Record(ctx context.Context, entry events.HistoryRecorded) error {
	item, err := attributevalue.MarshalMapWithOptions(entry, useJSONTags)
	if err != nil {
		return fmt.Errorf("failed to marshal history record: %w", err)
	}
	item["PK"] = &types.AttributeValueMemberS{Value: treePK(entry.GetAggregateID())}
	item["SK"] = &types.AttributeValueMemberS{Value: historySK(entry)}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("record history", err)
	}
	return nil
}

// ListByTree returns the newest records first; limit <= 0 returns all
func (r *HistoryRepository) ListByTree(ctx context.Context, treeID valueobjects.TreeID, limit int) ([]events.HistoryRecorded, error) {
	expr, err := expression.NewBuilder().
		WithKeyCondition(expression.Key("PK").Equal(expression.Value(treePK(treeID.String())))).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(false),
	}
	if limit > 0 {
		input.Limit = aws.Int32(int32(limit))
	}

	out := make([]events.HistoryRecorded, 0)
	for {
		result, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, pkgerrors.NewDatabaseError("list history", err)
		}
		for _, item := range result.Items {
			var record events.HistoryRecorded
			if err := attributevalue.UnmarshalMapWithOptions(item, &record, readJSONTags); err != nil {
				return nil, fmt.Errorf("failed to unmarshal history record: %w", err)
			}
			out = append(out, record)
			if limit > 0 && len(out) == limit {
				return out, nil
			}
		}
		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
	return out, nil
}

func historySK(entry events.HistoryRecorded) string {
	return fmt.Sprintf("V#%010d#%020d#%s", entry.GetVersion(), entry.GetTimestamp().UnixNano(), uuid.NewString())
}

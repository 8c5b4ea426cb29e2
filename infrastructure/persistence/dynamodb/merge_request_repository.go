package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jgchk/romulus-sub005/application/ports"
	"github.com/jgchk/romulus-sub005/domain/core/entities"
	"github.com/jgchk/romulus-sub005/domain/core/valueobjects"
	pkgerrors "github.com/jgchk/romulus-sub005/pkg/errors"
)

const entityTypeMergeRequest = "MERGE_REQUEST"

// mergeRequestItem adds keys to the request's own attributes. GSI1 groups
// requests by target, ordered by creation time.
type mergeRequestItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	GSI1PK     string `dynamodbav:"GSI1PK"` // TARGET#<tree_id>
	GSI1SK     string `dynamodbav:"GSI1SK"` // <created_at>#<request_id>
	entities.MergeRequest
}

// MergeRequestRepository implements ports.MergeRequestRepository using DynamoDB
type MergeRequestRepository struct {
	client    Client
	tableName string
	indexName string
}

var _ ports.MergeRequestRepository = (*MergeRequestRepository)(nil)

// NewMergeRequestRepository creates a new DynamoDB merge request repository
func NewMergeRequestRepository(client Client, tableName, indexName string) *MergeRequestRepository {
	return &MergeRequestRepository{
		client:    client,
		tableName: tableName,
		indexName: indexName,
	}
}

// Save inserts or replaces a request
func (r *MergeRequestRepository) Save(ctx context.Context, req *entities.MergeRequest) error {
	item, err := attributevalue.MarshalMap(mergeRequestItem{
		PK:           mergeRequestPK(req.ID),
		SK:           metaSK,
		EntityType:   entityTypeMergeRequest,
		GSI1PK:       targetGSIPK(req.TargetID.String()),
		GSI1SK:       fmt.Sprintf("%s#%s", req.CreatedAt.UTC().Format(time.RFC3339Nano), req.ID),
		MergeRequest: *req,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal merge request: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("save merge request", err)
	}
	return nil
}

// GetByID loads a request
func (r *MergeRequestRepository) GetByID(ctx context.Context, id string) (*entities.MergeRequest, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       itemKey(mergeRequestPK(id)),
	})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get merge request", err)
	}
	if result.Item == nil {
		return nil, pkgerrors.NewNotFoundError("merge request " + id)
	}
	return unmarshalMergeRequest(result.Item)
}

// FindPending returns the pending requests for a source/target pair
func (r *MergeRequestRepository) FindPending(ctx context.Context, sourceID, targetID valueobjects.TreeID) ([]*entities.MergeRequest, error) {
	filter := expression.Name("SourceID").Equal(expression.Value(sourceID)).
		And(expression.Name("Status").Equal(expression.Value(entities.MergeRequestPending)))
	return r.queryTarget(ctx, targetID, &filter)
}

// ListByTarget returns every request made against a target, oldest first
func (r *MergeRequestRepository) ListByTarget(ctx context.Context, targetID valueobjects.TreeID) ([]*entities.MergeRequest, error) {
	return r.queryTarget(ctx, targetID, nil)
}

func (r *MergeRequestRepository) queryTarget(ctx context.Context, targetID valueobjects.TreeID, filter *expression.ConditionBuilder) ([]*entities.MergeRequest, error) {
	builder := expression.NewBuilder().
		WithKeyCondition(expression.Key("GSI1PK").Equal(expression.Value(targetGSIPK(targetID.String()))))
	if filter != nil {
		builder = builder.WithFilter(*filter)
	}
	expr, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(r.indexName),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(true),
	}

	out := make([]*entities.MergeRequest, 0)
	for {
		result, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, pkgerrors.NewDatabaseError("query merge requests", err)
		}
		for _, item := range result.Items {
			req, err := unmarshalMergeRequest(item)
			if err != nil {
				return nil, err
			}
			out = append(out, req)
		}
		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
	return out, nil
}

func unmarshalMergeRequest(item map[string]types.AttributeValue) (*entities.MergeRequest, error) {
	var record mergeRequestItem
	if err := attributevalue.UnmarshalMap(item, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal merge request: %w", err)
	}
	req := record.MergeRequest
	return &req, nil
}

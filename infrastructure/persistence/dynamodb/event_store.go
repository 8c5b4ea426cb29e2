package dynamodb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/jgchk/romulus-sub005/application/ports"
	"github.com/jgchk/romulus-sub005/domain/core/valueobjects"
	"github.com/jgchk/romulus-sub005/domain/events"
	pkgerrors "github.com/jgchk/romulus-sub005/pkg/errors"
)

// EventRecord is how a tree event is stored. The stream is the partition and
// the event version is the sort key, so each version can be written once.
type EventRecord struct {
	PK        string    `dynamodbav:"PK"`      // TREE#<tree_id>
	Version   int       `dynamodbav:"Version"` // sort key
	EventType string    `dynamodbav:"EventType"`
	EventData string    `dynamodbav:"EventData"`
	Timestamp time.Time `dynamodbav:"Timestamp"`
}

// EventStore implements ports.EventStore using DynamoDB
type EventStore struct {
	client    Client
	tableName string
	logger    *zap.Logger
}

var _ ports.EventStore = (*EventStore)(nil)

// NewEventStore creates a new DynamoDB event store
func NewEventStore(client Client, tableName string, logger *zap.Logger) *EventStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventStore{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// AppendEvents writes events conditionally on their versions being free. The
// first transaction also checks that expectedVersion is the stream's last
// stored event. Streams longer than one transaction are written in chunks.
func (es *EventStore) AppendEvents(ctx context.Context, treeID valueobjects.TreeID, expectedVersion int, evts []events.TreeEvent) error {
	if len(evts) == 0 {
		return nil
	}

	pk := treePK(treeID.String())
	puts := make([]types.TransactWriteItem, 0, len(evts))
	for _, e := range evts {
		put, err := es.eventPut(pk, e)
		if err != nil {
			return err
		}
		puts = append(puts, put)
	}

	var check *types.TransactWriteItem
	if expectedVersion > 0 {
		c, err := es.versionCheck(pk, expectedVersion)
		if err != nil {
			return err
		}
		check = c
	}

	for start := 0; start < len(puts); {
		size := maxTransactItems
		var items []types.TransactWriteItem
		if check != nil {
			items = append(items, *check)
			size--
			check = nil
		}
		end := start + size
		if end > len(puts) {
			end = len(puts)
		}
		items = append(items, puts[start:end]...)

		_, err := es.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
		if err != nil {
			if isConditionFailure(err) {
				return pkgerrors.NewConflictError(fmt.Sprintf("event stream for tree %s moved past version %d", treeID, expectedVersion)).
					WithCause(err)
			}
			return pkgerrors.NewDatabaseError("append events", err)
		}
		start = end
	}

	es.logger.Debug("Events appended",
		zap.String("treeID", treeID.String()),
		zap.Int("from", expectedVersion+1),
		zap.Int("count", len(evts)),
	)
	return nil
}

func (es *EventStore) eventPut(pk string, e events.TreeEvent) (types.TransactWriteItem, error) {
	env, err := events.Encode(e)
	if err != nil {
		return types.TransactWriteItem{}, err
	}
	item, err := attributevalue.MarshalMap(EventRecord{
		PK:        pk,
		Version:   env.Version,
		EventType: env.Type,
		EventData: string(env.Data),
		Timestamp: e.GetTimestamp(),
	})
	if err != nil {
		return types.TransactWriteItem{}, fmt.Errorf("failed to marshal event record: %w", err)
	}

	expr, err := expression.NewBuilder().
		WithCondition(expression.Name("PK").AttributeNotExists()).
		Build()
	if err != nil {
		return types.TransactWriteItem{}, fmt.Errorf("failed to build expression: %w", err)
	}

	return types.TransactWriteItem{Put: &types.Put{
		TableName:                 aws.String(es.tableName),
		Item:                      item,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}}, nil
}

// versionCheck asserts the event at version exists. Together with the
// conditional put of version+1 it pins the stream head.
func (es *EventStore) versionCheck(pk string, version int) (*types.TransactWriteItem, error) {
	key, err := attributevalue.MarshalMap(struct {
		PK      string `dynamodbav:"PK"`
		Version int    `dynamodbav:"Version"`
	}{PK: pk, Version: version})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event key: %w", err)
	}

	expr, err := expression.NewBuilder().
		WithCondition(expression.Name("PK").AttributeExists()).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	return &types.TransactWriteItem{ConditionCheck: &types.ConditionCheck{
		TableName:                 aws.String(es.tableName),
		Key:                       key,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}}, nil
}

// LoadEvents returns the full stream in version order
func (es *EventStore) LoadEvents(ctx context.Context, treeID valueobjects.TreeID) ([]events.TreeEvent, error) {
	return es.LoadEventsAfter(ctx, treeID, 0)
}

// LoadEventsAfter returns events with a version greater than version
func (es *EventStore) LoadEventsAfter(ctx context.Context, treeID valueobjects.TreeID, version int) ([]events.TreeEvent, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(treePK(treeID.String()))).
		And(expression.Key("Version").GreaterThan(expression.Value(version)))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(es.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(true),
		ConsistentRead:            aws.Bool(true),
	}

	out := make([]events.TreeEvent, 0)
	for {
		result, err := es.client.Query(ctx, input)
		if err != nil {
			return nil, pkgerrors.NewDatabaseError("load events", err)
		}

		for _, item := range result.Items {
			var record EventRecord
			if err := attributevalue.UnmarshalMap(item, &record); err != nil {
				return nil, fmt.Errorf("failed to unmarshal event record: %w", err)
			}
			e, err := events.Decode(events.Envelope{
				Type:    record.EventType,
				Version: record.Version,
				Data:    json.RawMessage(record.EventData),
			})
			if err != nil {
				return nil, err
			}
			out = append(out, e)
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
	return out, nil
}

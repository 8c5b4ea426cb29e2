package dynamodb

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/jgchk/romulus-sub005/application/ports"
	"github.com/jgchk/romulus-sub005/domain/config"
	"github.com/jgchk/romulus-sub005/domain/core/aggregates"
	"github.com/jgchk/romulus-sub005/domain/core/entities"
	"github.com/jgchk/romulus-sub005/domain/core/valueobjects"
	pkgerrors "github.com/jgchk/romulus-sub005/pkg/errors"
)

const (
	entityTypeTree = "TREE"

	// mainPK keys the item naming the current main tree. Every write that
	// flags a tree main claims it, so two trees can never both hold it.
	mainPK = "MAIN"
)

// TreeItem is the stored form of a registry entry and its tree snapshot
type TreeItem struct {
	PK          string                `dynamodbav:"PK"`
	SK          string                `dynamodbav:"SK"`
	EntityType  string                `dynamodbav:"EntityType"`
	TreeID      valueobjects.TreeID   `dynamodbav:"TreeID"`
	Name        string                `dynamodbav:"Name"`
	OwnerID     valueobjects.UserID   `dynamodbav:"OwnerID"`
	IsMain      bool                  `dynamodbav:"IsMain"`
	Kind        valueobjects.TreeKind `dynamodbav:"Kind"`
	OriginID    valueobjects.TreeID   `dynamodbav:"OriginID,omitempty"`
	Base        entities.Snapshot     `dynamodbav:"Base"`
	Snapshot    entities.Snapshot     `dynamodbav:"Snapshot"`
	TreeVersion int                   `dynamodbav:"TreeVersion"`
	CreatedAt   time.Time             `dynamodbav:"CreatedAt"`
	UpdatedAt   time.Time             `dynamodbav:"UpdatedAt"`
	Version     int                   `dynamodbav:"Version"`
}

type mainItem struct {
	PK     string              `dynamodbav:"PK"`
	SK     string              `dynamodbav:"SK"`
	TreeID valueobjects.TreeID `dynamodbav:"TreeID"`
}

// TreeRepository implements ports.TreeRepository on a DynamoDB table
type TreeRepository struct {
	client    Client
	tableName string
	cfg       *config.DomainConfig
	logger    *zap.Logger
}

var _ ports.TreeRepository = (*TreeRepository)(nil)

// NewTreeRepository creates a new DynamoDB tree repository
func NewTreeRepository(client Client, tableName string, cfg *config.DomainConfig, logger *zap.Logger) *TreeRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TreeRepository{
		client:    client,
		tableName: tableName,
		cfg:       cfg,
		logger:    logger,
	}
}

// Create stores a new entry; the put is conditional on the key being free
func (r *TreeRepository) Create(ctx context.Context, entry *aggregates.TreeEntry) error {
	item, err := marshalTree(entry, entry.Version()+1)
	if err != nil {
		return err
	}

	expr, err := expression.NewBuilder().
		WithCondition(expression.Name("PK").AttributeNotExists()).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(r.tableName),
		Item:                      item,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		if isConditionFailure(err) {
			return &pkgerrors.TreeAlreadyExistsError{TreeID: entry.ID().String()}
		}
		return pkgerrors.NewDatabaseError("create tree", err)
	}

	entry.IncrementVersion()
	r.logger.Debug("Tree created", zap.String("treeID", entry.ID().String()))
	return nil
}

// Save stores an existing entry with optimistic locking
func (r *TreeRepository) Save(ctx context.Context, entry *aggregates.TreeEntry) error {
	return r.SaveAll(ctx, entry)
}

// SaveAll writes every entry in one transaction, each conditional on its
// stored version still matching
func (r *TreeRepository) SaveAll(ctx context.Context, entries ...*aggregates.TreeEntry) error {
	if len(entries) == 0 {
		return nil
	}

	items := make([]types.TransactWriteItem, 0, len(entries)+1)
	for _, entry := range entries {
		put, err := r.versionedPut(entry)
		if err != nil {
			return err
		}
		items = append(items, types.TransactWriteItem{Put: put})
	}

	mainWrite, err := r.mainWrite(entries)
	if err != nil {
		return err
	}
	if mainWrite != nil {
		items = append(items, *mainWrite)
	}

	if len(items) > maxTransactItems {
		return pkgerrors.NewValidationError(fmt.Sprintf("cannot save %d trees in one transaction", len(entries)))
	}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err != nil {
		if isConditionFailure(err) {
			ids := make([]string, len(entries))
			for i, entry := range entries {
				ids[i] = entry.ID().String()
			}
			return pkgerrors.NewConflictError("tree was modified concurrently").
				WithDetails(map[string]interface{}{"trees": ids}).
				WithCause(err)
		}
		return pkgerrors.NewDatabaseError("save trees", err)
	}

	for _, entry := range entries {
		entry.IncrementVersion()
	}
	return nil
}

func (r *TreeRepository) versionedPut(entry *aggregates.TreeEntry) (*types.Put, error) {
	item, err := marshalTree(entry, entry.Version()+1)
	if err != nil {
		return nil, err
	}

	condition := expression.Name("Version").Equal(expression.Value(entry.Version()))
	expr, err := expression.NewBuilder().WithCondition(condition).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	return &types.Put{
		TableName:                 aws.String(r.tableName),
		Item:                      item,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}, nil
}

// mainWrite claims the main marker for the entry flagged main, conditional on
// the marker being free or held by one of the entries in the same write.
// Main only moves between trees, so the marker is never released.
func (r *TreeRepository) mainWrite(entries []*aggregates.TreeEntry) (*types.TransactWriteItem, error) {
	var (
		claimant *aggregates.TreeEntry
		members  []expression.OperandBuilder
	)
	for _, entry := range entries {
		if entry.IsMain() {
			if claimant != nil {
				return nil, pkgerrors.NewConflictError("another tree is already main")
			}
			claimant = entry
		}
		members = append(members, expression.Value(entry.ID()))
	}

	if claimant == nil {
		return nil, nil
	}

	item, err := attributevalue.MarshalMap(mainItem{PK: mainPK, SK: metaSK, TreeID: claimant.ID()})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal main marker: %w", err)
	}
	condition := expression.Name("PK").AttributeNotExists().
		Or(expression.Name("TreeID").In(members[0], members[1:]...))
	expr, err := expression.NewBuilder().WithCondition(condition).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}
	return &types.TransactWriteItem{Put: &types.Put{
		TableName:                 aws.String(r.tableName),
		Item:                      item,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}}, nil
}

// GetByID loads an entry
func (r *TreeRepository) GetByID(ctx context.Context, id valueobjects.TreeID) (*aggregates.TreeEntry, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            itemKey(treePK(id.String())),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get tree", err)
	}
	if result.Item == nil {
		return nil, &pkgerrors.TreeNotFoundError{TreeID: id.String()}
	}
	return r.unmarshalTree(result.Item)
}

// Exists reports whether an id is taken
func (r *TreeRepository) Exists(ctx context.Context, id valueobjects.TreeID) (bool, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:            aws.String(r.tableName),
		Key:                  itemKey(treePK(id.String())),
		ProjectionExpression: aws.String("PK"),
		ConsistentRead:       aws.Bool(true),
	})
	if err != nil {
		return false, pkgerrors.NewDatabaseError("check tree", err)
	}
	return result.Item != nil, nil
}

// GetMain returns the entry named by the main marker, or nil if none is set
func (r *TreeRepository) GetMain(ctx context.Context) (*aggregates.TreeEntry, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            itemKey(mainPK),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get main tree", err)
	}
	if result.Item == nil {
		return nil, nil
	}

	var marker mainItem
	if err := attributevalue.UnmarshalMap(result.Item, &marker); err != nil {
		return nil, fmt.Errorf("failed to unmarshal main marker: %w", err)
	}
	return r.GetByID(ctx, marker.TreeID)
}

// List returns every entry ordered by id
func (r *TreeRepository) List(ctx context.Context) ([]*aggregates.TreeEntry, error) {
	expr, err := expression.NewBuilder().
		WithFilter(expression.Name("EntityType").Equal(expression.Value(entityTypeTree))).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	input := &dynamodb.ScanInput{
		TableName:                 aws.String(r.tableName),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}

	var entries []*aggregates.TreeEntry
	for {
		result, err := r.client.Scan(ctx, input)
		if err != nil {
			return nil, pkgerrors.NewDatabaseError("list trees", err)
		}
		for _, item := range result.Items {
			entry, err := r.unmarshalTree(item)
			if err != nil {
				return nil, err
			}
			entries = append(entries, entry)
		}
		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].ID() < entries[j].ID() })
	return entries, nil
}

func itemKey(pk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: metaSK},
	}
}

func marshalTree(entry *aggregates.TreeEntry, version int) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(TreeItem{
		PK:          treePK(entry.ID().String()),
		SK:          metaSK,
		EntityType:  entityTypeTree,
		TreeID:      entry.ID(),
		Name:        entry.Name().String(),
		OwnerID:     entry.OwnerID(),
		IsMain:      entry.IsMain(),
		Kind:        entry.Kind(),
		OriginID:    entry.OriginID(),
		Base:        entry.Base(),
		Snapshot:    entry.Tree().Snapshot(),
		TreeVersion: entry.Tree().Version(),
		CreatedAt:   entry.CreatedAt(),
		UpdatedAt:   entry.UpdatedAt(),
		Version:     version,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tree %s: %w", entry.ID(), err)
	}
	return item, nil
}

func (r *TreeRepository) unmarshalTree(item map[string]types.AttributeValue) (*aggregates.TreeEntry, error) {
	var record TreeItem
	if err := attributevalue.UnmarshalMap(item, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tree: %w", err)
	}

	tree, err := aggregates.TreeFromSnapshot(record.TreeID, aggregates.PolicyFor(record.Kind), r.cfg, record.Snapshot, record.TreeVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to restore tree %s: %w", record.TreeID, err)
	}
	return aggregates.ReconstructTreeEntry(aggregates.TreeEntryParams{
		ID:        record.TreeID,
		Name:      record.Name,
		OwnerID:   record.OwnerID,
		IsMain:    record.IsMain,
		Kind:      record.Kind,
		OriginID:  record.OriginID,
		Base:      record.Base,
		Tree:      tree,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
		Version:   record.Version,
	}, r.cfg)
}

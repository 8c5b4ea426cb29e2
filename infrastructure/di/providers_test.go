package di

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jgchk/romulus-sub005/infrastructure/config"
	"github.com/jgchk/romulus-sub005/infrastructure/persistence/dynamodb"
	"github.com/jgchk/romulus-sub005/infrastructure/persistence/memory"
)

func testConfig(storage string) *config.Config {
	return &config.Config{
		Environment:      "development",
		AWSRegion:        "us-west-2",
		Storage:          storage,
		TreesTable:       "taxonomy",
		EventsTable:      "taxonomy-events",
		MergeTable:       "taxonomy",
		HistoryTable:     "taxonomy-history",
		TargetIndexName:  "GSI1",
		EventBusName:     "taxonomy-events",
		MetricsNamespace: "Romulus/Test",
		LogLevel:         "error",
		HistoryLimit:     50,
	}
}

func TestInitializeContainer_Storage(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		container, err := InitializeContainer(context.Background(), testConfig(config.StorageMemory))
		require.NoError(t, err)
		assert.IsType(t, &memory.InMemoryTreeRepository{}, container.Trees)
		assert.IsType(t, &memory.InMemoryEventStore{}, container.EventStore)
		assert.IsType(t, &memory.InMemoryEventBus{}, container.EventBus)
		assert.NotNil(t, container.Router.Setup())
	})

	t.Run("dynamodb", func(t *testing.T) {
		container, err := InitializeContainer(context.Background(), testConfig(config.StorageDynamoDB))
		require.NoError(t, err)
		assert.IsType(t, &dynamodb.TreeRepository{}, container.Trees)
		assert.IsType(t, &dynamodb.EventStore{}, container.EventStore)
		assert.IsType(t, &dynamodb.MergeRequestRepository{}, container.MergeRequests)
		assert.IsType(t, &dynamodb.HistoryRepository{}, container.History)
	})
}

func TestProvideLogger_BadLevel(t *testing.T) {
	cfg := testConfig(config.StorageMemory)
	cfg.LogLevel = "loud"
	_, err := ProvideLogger(cfg)
	assert.Error(t, err)
}

func TestProvideJWTValidator(t *testing.T) {
	cfg := testConfig(config.StorageMemory)
	_, err := ProvideJWTValidator(cfg, zap.NewNop())
	assert.NoError(t, err)

	cfg.Environment = "production"
	_, err = ProvideJWTValidator(cfg, zap.NewNop())
	assert.Error(t, err)
}

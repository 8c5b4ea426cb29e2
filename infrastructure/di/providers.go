package di

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"

	"github.com/jgchk/romulus-sub005/application/commands/bus"
	commandhandlers "github.com/jgchk/romulus-sub005/application/commands/handlers"
	"github.com/jgchk/romulus-sub005/application/ports"
	querybus "github.com/jgchk/romulus-sub005/application/queries/bus"
	queryhandlers "github.com/jgchk/romulus-sub005/application/queries/handlers"
	domainconfig "github.com/jgchk/romulus-sub005/domain/config"
	"github.com/jgchk/romulus-sub005/domain/services"
	"github.com/jgchk/romulus-sub005/infrastructure/config"
	"github.com/jgchk/romulus-sub005/infrastructure/messaging/eventbridge"
	"github.com/jgchk/romulus-sub005/infrastructure/persistence/dynamodb"
	"github.com/jgchk/romulus-sub005/infrastructure/persistence/memory"
	"github.com/jgchk/romulus-sub005/interfaces/http/rest"
	"github.com/jgchk/romulus-sub005/pkg/auth"
	pkgerrors "github.com/jgchk/romulus-sub005/pkg/errors"
	"github.com/jgchk/romulus-sub005/pkg/observability"
)

const (
	serviceName       = "romulus-taxonomy"
	developmentSecret = "romulus-development-secret"
)

// ProvideLogger creates a new logger instance at the configured level
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	zapCfg := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zapCfg.Level = level

	return zapCfg.Build(zap.Fields(zap.String("service", serviceName)))
}

// ProvideDomainConfig selects the business rules for the environment
func ProvideDomainConfig(cfg *config.Config) *domainconfig.DomainConfig {
	return domainconfig.LoadDomainConfig(cfg.Environment)
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideTreeRepository creates the registry store for the configured backend
func ProvideTreeRepository(
	client *awsdynamodb.Client,
	cfg *config.Config,
	domainCfg *domainconfig.DomainConfig,
	logger *zap.Logger,
) ports.TreeRepository {
	if cfg.UsesMemoryStorage() {
		return memory.NewInMemoryTreeRepository(domainCfg)
	}
	return dynamodb.NewTreeRepository(client, cfg.TreesTable, domainCfg, logger)
}

// ProvideEventStore creates the tree event store
func ProvideEventStore(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.EventStore {
	if cfg.UsesMemoryStorage() {
		return memory.NewInMemoryEventStore()
	}
	return dynamodb.NewEventStore(client, cfg.EventsTable, logger)
}

// ProvideMergeRequestRepository creates the merge request store
func ProvideMergeRequestRepository(client *awsdynamodb.Client, cfg *config.Config) ports.MergeRequestRepository {
	if cfg.UsesMemoryStorage() {
		return memory.NewInMemoryMergeRequestRepository()
	}
	return dynamodb.NewMergeRequestRepository(client, cfg.MergeTable, cfg.TargetIndexName)
}

// ProvideHistoryRepository creates the audit trail store
func ProvideHistoryRepository(client *awsdynamodb.Client, cfg *config.Config) ports.HistoryRepository {
	if cfg.UsesMemoryStorage() {
		return memory.NewInMemoryHistoryRepository()
	}
	return dynamodb.NewHistoryRepository(client, cfg.HistoryTable)
}

// ProvideEventBus creates an event bus. Memory storage keeps events in
// process.
func ProvideEventBus(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) ports.EventBus {
	if cfg.UsesMemoryStorage() {
		return memory.NewInMemoryEventBus()
	}
	return eventbridge.NewEventBridgePublisher(client, cfg.EventBusName, logger)
}

// ProvideMetrics creates metrics instance. Disabled metrics get no client.
func ProvideMetrics(client *awscloudwatch.Client, cfg *config.Config, logger *zap.Logger) *observability.Metrics {
	if !cfg.EnableMetrics {
		return observability.NewMetrics(cfg.MetricsNamespace, nil, logger)
	}
	return observability.NewMetrics(cfg.MetricsNamespace, client, logger)
}

// ProvideTracer creates the X-Ray tracer
func ProvideTracer(cfg *config.Config) *observability.Tracer {
	return observability.NewTracer(serviceName, cfg.EnableTracing)
}

// ProvideCommandBus creates a command bus with registered handlers
func ProvideCommandBus(
	trees ports.TreeRepository,
	eventStore ports.EventStore,
	mergeRequests ports.MergeRequestRepository,
	history ports.HistoryRepository,
	eventBus ports.EventBus,
	gate *services.RoleGate,
	metrics *observability.Metrics,
	tracer *observability.Tracer,
	domainCfg *domainconfig.DomainConfig,
	logger *zap.Logger,
) (*bus.CommandBus, error) {
	commandBus := bus.NewCommandBus(
		bus.LoggingMiddleware(logger),
		bus.TracingMiddleware(tracer),
		bus.MetricsMiddleware(metrics),
	)

	handler := commandhandlers.NewTreeCommandHandler(
		trees, eventStore, mergeRequests, history, eventBus, gate, metrics, domainCfg, logger,
	)
	if err := handler.Register(commandBus); err != nil {
		return nil, err
	}
	return commandBus, nil
}

// ProvideQueryBus creates a query bus with registered handlers
func ProvideQueryBus(
	trees ports.TreeRepository,
	eventStore ports.EventStore,
	history ports.HistoryRepository,
	mergeRequests ports.MergeRequestRepository,
	gate *services.RoleGate,
	domainCfg *domainconfig.DomainConfig,
	logger *zap.Logger,
) (*querybus.QueryBus, error) {
	queryBus := querybus.NewQueryBus(logger)

	handler := queryhandlers.NewTreeQueryHandler(trees, eventStore, history, mergeRequests, gate, domainCfg, logger)
	if err := handler.Register(queryBus); err != nil {
		return nil, err
	}
	return queryBus, nil
}

// ProvideErrorHandler creates the HTTP error handler. Internal messages are
// only exposed in development.
func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *pkgerrors.ErrorHandler {
	return pkgerrors.NewErrorHandler(logger, cfg.IsDevelopment())
}

// ProvideJWTValidator creates the bearer token validator
func ProvideJWTValidator(cfg *config.Config, logger *zap.Logger) (*auth.JWTValidator, error) {
	secret := cfg.JWTSecret
	if secret == "" && !cfg.IsProduction() {
		logger.Warn("JWT_SECRET not set, using the development secret")
		secret = developmentSecret
	}
	return auth.NewJWTValidator(auth.JWTConfig{
		SecretKey:  secret,
		Issuer:     cfg.JWTIssuer,
		Audience:   cfg.JWTAudience,
		RolesClaim: cfg.RolesClaim,
	})
}

// ProvideRouter creates the HTTP router
func ProvideRouter(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	validator *auth.JWTValidator,
	errorHandler *pkgerrors.ErrorHandler,
	cfg *config.Config,
	logger *zap.Logger,
) *rest.Router {
	return rest.NewRouter(commandBus, queryBus, validator, errorHandler, cfg, logger)
}

//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"
	"go.uber.org/zap"

	"github.com/jgchk/romulus-sub005/application/commands/bus"
	"github.com/jgchk/romulus-sub005/application/ports"
	querybus "github.com/jgchk/romulus-sub005/application/queries/bus"
	"github.com/jgchk/romulus-sub005/domain/services"
	"github.com/jgchk/romulus-sub005/infrastructure/config"
	"github.com/jgchk/romulus-sub005/interfaces/http/rest"
	"github.com/jgchk/romulus-sub005/pkg/observability"
)

// Container holds all application dependencies
type Container struct {
	Config        *config.Config
	Logger        *zap.Logger
	Trees         ports.TreeRepository
	EventStore    ports.EventStore
	MergeRequests ports.MergeRequestRepository
	History       ports.HistoryRepository
	EventBus      ports.EventBus
	CommandBus    *bus.CommandBus
	QueryBus      *querybus.QueryBus
	Metrics       *observability.Metrics
	Router        *rest.Router
}

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideDomainConfig,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideCloudWatchClient,
	ProvideTreeRepository,
	ProvideEventStore,
	ProvideMergeRequestRepository,
	ProvideHistoryRepository,
	ProvideEventBus,
	ProvideMetrics,
	ProvideTracer,
	services.NewRoleGate,
	ProvideCommandBus,
	ProvideQueryBus,
	ProvideErrorHandler,
	ProvideJWTValidator,
	ProvideRouter,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}

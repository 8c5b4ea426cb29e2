package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	commandbus "github.com/jgchk/romulus-sub005/application/commands/bus"
	querybus "github.com/jgchk/romulus-sub005/application/queries/bus"
	"github.com/jgchk/romulus-sub005/infrastructure/config"
	"github.com/jgchk/romulus-sub005/interfaces/http/rest/handlers"
	"github.com/jgchk/romulus-sub005/interfaces/http/rest/middleware"
	pkgerrors "github.com/jgchk/romulus-sub005/pkg/errors"
)

// Router creates and configures the HTTP router
type Router struct {
	commandBus   *commandbus.CommandBus
	queryBus     *querybus.QueryBus
	validator    middleware.TokenValidator
	errorHandler *pkgerrors.ErrorHandler
	cfg          *config.Config
	logger       *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	commandBus *commandbus.CommandBus,
	queryBus *querybus.QueryBus,
	validator middleware.TokenValidator,
	errorHandler *pkgerrors.ErrorHandler,
	cfg *config.Config,
	logger *zap.Logger,
) *Router {
	return &Router{
		commandBus:   commandBus,
		queryBus:     queryBus,
		validator:    validator,
		errorHandler: errorHandler,
		cfg:          cfg,
		logger:       logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(rt.errorHandler.Middleware)
	router.Use(middleware.Logger(rt.logger))

	if rt.cfg.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{rt.cfg.AllowedOrigin},
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	router.Get("/health", rt.healthCheck)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(rt.validator, rt.errorHandler, rt.logger))

		treeHandler := handlers.NewTreeHandler(rt.commandBus, rt.queryBus, rt.errorHandler, rt.cfg.HistoryLimit, rt.logger)

		r.Route("/trees", func(r chi.Router) {
			r.Get("/", treeHandler.ListTrees)
			r.Post("/", treeHandler.CreateTree)

			r.Route("/{treeID}", func(r chi.Router) {
				r.Get("/", treeHandler.GetTree)
				r.Patch("/", treeHandler.RenameTree)
				r.Post("/copy", treeHandler.CopyTree)
				r.Put("/main", treeHandler.SetMainTree)
				r.Get("/history", treeHandler.GetHistory)
				r.Get("/replay", treeHandler.ReplayTree)
				r.Post("/merge", treeHandler.MergeTrees)
				r.Get("/merge-requests", treeHandler.ListMergeRequests)
				r.Post("/merge-requests", treeHandler.RequestMerge)

				r.Route("/nodes", func(r chi.Router) {
					r.Post("/", treeHandler.AddNode)
					r.Put("/{nodeID}", treeHandler.UpdateNode)
					r.Delete("/{nodeID}", treeHandler.RemoveNode)
					r.Post("/{nodeID}/parents", treeHandler.AddParent)
					r.Get("/{nodeID}/children", treeHandler.GetChildren)
				})
			})
		})
	})

	return router
}

func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

package bus

import (
	"context"
	"net/http"
	"time"

	pkgerrors "github.com/jgchk/romulus-sub005/pkg/errors"
	"github.com/jgchk/romulus-sub005/pkg/observability"
)

// TracingMiddleware runs each command inside an X-Ray subsegment
func TracingMiddleware(tracer *observability.Tracer) Middleware {
	return func(next CommandHandler) CommandHandler {
		return CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
			name := CommandName(cmd)
			return tracer.TraceFunction(ctx, name, func(ctx context.Context) error {
				tracer.AddAnnotation(ctx, "command", name)
				err := next.Handle(ctx, cmd)
				if err != nil && !pkgerrors.IsTyped(err) {
					tracer.RecordError(ctx, err)
				}
				return err
			})
		})
	}
}

// MetricsMiddleware records latency and outcome of each command
func MetricsMiddleware(metrics *observability.Metrics) Middleware {
	return func(next CommandHandler) CommandHandler {
		return CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
			start := time.Now()
			err := next.Handle(ctx, cmd)
			metrics.RecordCommandExecution(ctx, CommandName(cmd), time.Since(start), Outcome(err))
			return err
		})
	}
}

// Outcome classifies a command result for metrics
func Outcome(err error) string {
	if err == nil {
		return observability.OutcomeSuccess
	}
	switch pkgerrors.StatusOf(err) {
	case http.StatusUnprocessableEntity:
		return observability.OutcomeCycle
	case http.StatusForbidden:
		return observability.OutcomeUnauthorized
	case http.StatusNotFound:
		return observability.OutcomeNotFound
	case http.StatusConflict:
		return observability.OutcomeConflict
	case http.StatusBadRequest:
		return observability.OutcomeInvalid
	}
	switch {
	case pkgerrors.IsConflict(err):
		return observability.OutcomeConflict
	case pkgerrors.IsValidation(err):
		return observability.OutcomeInvalid
	}
	return observability.OutcomeFailure
}

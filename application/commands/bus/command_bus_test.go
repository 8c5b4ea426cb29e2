package bus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type pingCommand struct {
	Valid bool
}

func (c pingCommand) Validate() error {
	if !c.Valid {
		return errors.New("invalid ping")
	}
	return nil
}

type typedFailure struct{}

func (typedFailure) Error() string { return "typed" }

func TestCommandBus_Send(t *testing.T) {
	var order []string
	trace := func(name string) Middleware {
		return func(next CommandHandler) CommandHandler {
			return CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
				order = append(order, name)
				return next.Handle(ctx, cmd)
			})
		}
	}

	b := NewCommandBus(trace("outer"), trace("inner"), LoggingMiddleware(zap.NewNop()))
	calls := 0
	require.NoError(t, b.Register(pingCommand{}, HandlerFor(func(ctx context.Context, cmd pingCommand) error {
		calls++
		return nil
	})))

	require.NoError(t, b.Send(context.Background(), pingCommand{Valid: true}))
	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"outer", "inner"}, order)

	// validation is left to the handler, after it has authorized the caller
	require.NoError(t, b.Send(context.Background(), pingCommand{}))
	assert.Equal(t, 2, calls)
}

func TestCommandBus_ErrorsPassThrough(t *testing.T) {
	b := NewCommandBus(LoggingMiddleware(zap.NewNop()))
	require.NoError(t, b.Register(pingCommand{}, HandlerFor(func(ctx context.Context, cmd pingCommand) error {
		return typedFailure{}
	})))

	err := b.Send(context.Background(), pingCommand{Valid: true})
	var target typedFailure
	assert.ErrorAs(t, err, &target)
}

func TestCommandBus_Registration(t *testing.T) {
	b := NewCommandBus()

	err := b.Send(context.Background(), pingCommand{Valid: true})
	assert.ErrorIs(t, err, ErrHandlerNotFound)

	handler := HandlerFor(func(ctx context.Context, cmd pingCommand) error { return nil })
	require.NoError(t, b.Register(pingCommand{}, handler))
	assert.Error(t, b.Register(pingCommand{}, handler))
	assert.Equal(t, "pingCommand", CommandName(pingCommand{}))
}

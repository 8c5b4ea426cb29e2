package bus

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	pkgerrors "github.com/jgchk/romulus-sub005/pkg/errors"
	"github.com/jgchk/romulus-sub005/pkg/observability"
)

type recordingClient struct {
	mu     sync.Mutex
	inputs []*cloudwatch.PutMetricDataInput
}

func (c *recordingClient) PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inputs = append(c.inputs, params)
	return &cloudwatch.PutMetricDataOutput{}, nil
}

type cycleFailure struct{}

func (cycleFailure) Error() string   { return "cycle detected: A → A" }
func (cycleFailure) StatusCode() int { return 422 }

func TestOutcome(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"success", nil, observability.OutcomeSuccess},
		{"cycle", cycleFailure{}, observability.OutcomeCycle},
		{"unauthorized", &pkgerrors.UnauthorizedError{Operation: "AddNode"}, observability.OutcomeUnauthorized},
		{"tree not found", &pkgerrors.TreeNotFoundError{TreeID: "t1"}, observability.OutcomeNotFound},
		{"tree exists", &pkgerrors.TreeAlreadyExistsError{TreeID: "t1"}, observability.OutcomeConflict},
		{"blank name", &pkgerrors.TreeNameInvalidError{}, observability.OutcomeInvalid},
		{"stale write", pkgerrors.NewConflictError("stale"), observability.OutcomeConflict},
		{"bad input", pkgerrors.NewValidationError("bad"), observability.OutcomeInvalid},
		{"unexpected", errors.New("boom"), observability.OutcomeFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Outcome(tt.err))
		})
	}
}

func TestMetricsMiddleware(t *testing.T) {
	client := &recordingClient{}
	metrics := observability.NewMetrics("Taxonomy", client, zap.NewNop())

	b := NewCommandBus(MetricsMiddleware(metrics))
	require.NoError(t, b.Register(pingCommand{}, HandlerFor(func(ctx context.Context, cmd pingCommand) error {
		return cycleFailure{}
	})))

	err := b.Send(context.Background(), pingCommand{Valid: true})
	assert.Error(t, err)

	require.Len(t, client.inputs, 1)
	input := client.inputs[0]
	assert.Equal(t, "Taxonomy", aws.ToString(input.Namespace))
	require.Len(t, input.MetricData, 2)
	dims := map[string]string{}
	for _, d := range input.MetricData[0].Dimensions {
		dims[aws.ToString(d.Name)] = aws.ToString(d.Value)
	}
	assert.Equal(t, "pingCommand", dims["CommandName"])
	assert.Equal(t, observability.OutcomeCycle, dims["Outcome"])
}

func TestMetricsMiddleware_NilMetrics(t *testing.T) {
	b := NewCommandBus(MetricsMiddleware(nil))
	require.NoError(t, b.Register(pingCommand{}, HandlerFor(func(ctx context.Context, cmd pingCommand) error {
		return nil
	})))

	assert.NoError(t, b.Send(context.Background(), pingCommand{Valid: true}))
}

func TestTracingMiddleware_Disabled(t *testing.T) {
	b := NewCommandBus(TracingMiddleware(observability.NewTracer("taxonomy", false)))
	calls := 0
	require.NoError(t, b.Register(pingCommand{}, HandlerFor(func(ctx context.Context, cmd pingCommand) error {
		calls++
		return typedFailure{}
	})))

	err := b.Send(context.Background(), pingCommand{Valid: true})
	assert.Equal(t, typedFailure{}, err)
	assert.Equal(t, 1, calls)
}

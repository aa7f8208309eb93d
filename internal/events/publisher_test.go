package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordingPublisherCounts(t *testing.T) {
	rec := &RecordingPublisher{}
	ctx := context.Background()

	require.NoError(t, rec.Publish(ctx, RoutingGameSessionSettled, GameSessionSettled{SessionId: "s1"}))
	require.NoError(t, rec.Publish(ctx, RoutingDepositCredited, DepositCredited{DepositId: "d1"}))
	require.NoError(t, rec.Publish(ctx, RoutingGameSessionSettled, GameSessionSettled{SessionId: "s2"}))

	assert.Equal(t, 2, rec.Count(RoutingGameSessionSettled))
	assert.Equal(t, 1, rec.Count(RoutingDepositCredited))
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), RoutingDepositCredited, nil))
	assert.NoError(t, p.Close())
}

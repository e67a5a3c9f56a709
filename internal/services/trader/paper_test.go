package trader

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vadiminshakov/sigtrader/internal/domain"
)

func TestPaperBroker_SubmitOrder(t *testing.T) {
	broker := NewPaperBroker(zap.NewNop())
	ctx := context.Background()

	ack, err := broker.SubmitOrder(ctx, "aapl", domain.SideBuy, 3)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(ack.ID, "paper-"))
	assert.Equal(t, "AAPL", ack.Symbol)
	assert.Equal(t, domain.SideBuy, ack.Side)
	assert.Equal(t, int64(3), ack.Quantity)
	assert.Equal(t, "market", ack.Type)
	assert.Equal(t, "day", ack.TimeInForce)
	assert.Equal(t, "accepted", ack.Status)

	other, err := broker.SubmitOrder(ctx, "AAPL", domain.SideSell, 3)
	require.NoError(t, err)
	assert.NotEqual(t, ack.ID, other.ID)
}

func TestPaperBroker_CanceledContext(t *testing.T) {
	broker := NewPaperBroker(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := broker.SubmitOrder(ctx, "AAPL", domain.SideBuy, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPaperBroker_ConcurrentSubmitsGetDistinctIDs(t *testing.T) {
	broker := NewPaperBroker(nil)

	const n = 64
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ack, err := broker.SubmitOrder(context.Background(), "TSLA", domain.SideBuy, 1)
			assert.NoError(t, err)
			ids <- ack.ID
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]struct{}, n)
	for id := range ids {
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, n)
}

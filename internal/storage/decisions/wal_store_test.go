package decisions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/sigtrader/internal/domain"
)

func TestWALStore_SaveAndEventsAfter(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, uint64(0), store.CurrentIndex())

	now := time.Now().UTC()
	for _, sym := range []string{"AAPL", "TSLA", "MSFT"} {
		require.NoError(t, store.Save(domain.DecisionEvent{
			Timestamp:  now,
			Symbol:     sym,
			Action:     domain.ActionBuy,
			Confidence: 0.9,
			Reason:     "EMA fast>slow & MACD>Signal",
			Outcome:    "executed",
		}))
	}
	assert.Equal(t, uint64(3), store.CurrentIndex())

	all, err := store.EventsAfter(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, uint64(1), all[0].Index)
	assert.Equal(t, "AAPL", all[0].Event.Symbol)
	assert.Equal(t, domain.ActionBuy, all[0].Event.Action)

	tail, err := store.EventsAfter(2)
	require.NoError(t, err)
	require.Len(t, tail, 1)
	assert.Equal(t, "MSFT", tail[0].Event.Symbol)

	none, err := store.EventsAfter(3)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestWALStore_Validation(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	assert.Error(t, store.Save(domain.DecisionEvent{}))

	var nilStore *WALStore
	assert.ErrorIs(t, nilStore.Save(domain.DecisionEvent{Symbol: "AAPL"}), ErrNotInitialized)
	assert.Equal(t, uint64(0), nilStore.CurrentIndex())
}

package domain

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSide(t *testing.T) {
	tests := []struct {
		input   string
		want    Side
		wantErr bool
	}{
		{input: "buy", want: SideBuy},
		{input: "SELL", want: SideSell},
		{input: " Buy ", want: SideBuy},
		{input: "short", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			side, err := ParseSide(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidSide))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, side)
		})
	}
}

func TestNewTradeRecord(t *testing.T) {
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	rec, err := NewTradeRecord(ts, " aapl ", SideBuy, 10, decimal.NewFromInt(150), "note")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", rec.Symbol)
	assert.Equal(t, int64(10), rec.SignedQuantity())
	assert.True(t, rec.Notional().Equal(decimal.NewFromInt(1500)))

	sell, err := NewTradeRecord(ts, "AAPL", SideSell, 4, decimal.NewFromInt(150), "")
	require.NoError(t, err)
	assert.Equal(t, int64(-4), sell.SignedQuantity())

	_, err = NewTradeRecord(ts, "AAPL", SideBuy, 0, decimal.NewFromInt(1), "")
	assert.True(t, errors.Is(err, ErrInvalidQuantity))

	_, err = NewTradeRecord(ts, "AAPL", SideSell, MaxQuantity+1, decimal.NewFromInt(1), "")
	assert.True(t, errors.Is(err, ErrInvalidQuantity))

	_, err = NewTradeRecord(ts, "AAPL", SideBuy, 1, decimal.Zero, "")
	assert.True(t, errors.Is(err, ErrInvalidPrice))

	_, err = NewTradeRecord(ts, "  ", SideBuy, 1, decimal.NewFromInt(1), "")
	assert.True(t, errors.Is(err, ErrInvalidSymbol))
}

func TestExecutionError_Kind(t *testing.T) {
	err := errors.Wrap(NewExecutionError(KindPolicy, GateKillSwitch, ErrKillSwitchOn), "execute")

	assert.Equal(t, KindPolicy, KindOf(err))
	assert.True(t, errors.Is(err, ErrKillSwitchOn))
	assert.Contains(t, err.Error(), "kill_switch")
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))
}

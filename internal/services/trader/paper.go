// Package trader submits orders to the paper brokerage.
package trader

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vadiminshakov/sigtrader/internal/domain"
)

const (
	orderIDPrefix = "paper-"

	OrderTypeMarket = "market"
	TimeInForceDay  = "day"
	StatusAccepted  = "accepted"
)

// PaperBroker accepts every market order. It is stateless: fills are booked by
// the caller in the ledger and the acknowledgment is the only record it returns.
type PaperBroker struct {
	logger *zap.Logger
}

// NewPaperBroker creates a new PaperBroker.
func NewPaperBroker(logger *zap.Logger) *PaperBroker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaperBroker{logger: logger}
}

// SubmitOrder acknowledges a day market order.
func (b *PaperBroker) SubmitOrder(ctx context.Context, symbol string, side domain.Side, qty int64) (domain.OrderAck, error) {
	if err := ctx.Err(); err != nil {
		return domain.OrderAck{}, err
	}

	ack := domain.OrderAck{
		ID:          orderIDPrefix + uuid.NewString(),
		Symbol:      domain.NormalizeSymbol(symbol),
		Side:        side,
		Quantity:    qty,
		Type:        OrderTypeMarket,
		TimeInForce: TimeInForceDay,
		Status:      StatusAccepted,
	}

	b.logger.Info("paper order accepted",
		zap.String("id", ack.ID),
		zap.String("symbol", ack.Symbol),
		zap.String("side", side.String()),
		zap.Int64("qty", qty))

	return ack, nil
}

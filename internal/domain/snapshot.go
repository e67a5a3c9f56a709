package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PortfolioSnapshot book state right after a trade was appended.
type PortfolioSnapshot struct {
	Timestamp     time.Time       `json:"ts"`
	TradeSeq      uint64          `json:"trade_seq"`
	Symbol        string          `json:"symbol"`
	Side          Side            `json:"side"`
	Cash          decimal.Decimal `json:"cash"`
	Exposure      decimal.Decimal `json:"exposure"`
	OpenPositions int             `json:"open_positions"`
}

// PortfolioSnapshotRecord bundles a snapshot with its log index.
type PortfolioSnapshotRecord struct {
	Index    uint64
	Snapshot PortfolioSnapshot
}

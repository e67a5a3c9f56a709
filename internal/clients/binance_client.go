package clients

import (
	"os"

	"github.com/adshao/go-binance/v2"
)

// NewBinanceClient creates a Binance client. Keys are optional: public market
// data endpoints work without them.
func NewBinanceClient() *binance.Client {
	return binance.NewClient(os.Getenv("BINANCE_API_KEY"), os.Getenv("BINANCE_API_SECRET"))
}

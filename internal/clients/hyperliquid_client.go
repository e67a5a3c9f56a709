package clients

import (
	"context"
	"os"

	hyperliquid "github.com/sonirico/go-hyperliquid"
)

const hyperliquidMainnet = "https://api.hyperliquid.xyz"

// NewHyperliquidInfo returns the public Info client of an exchange handle built without a key.
// Only read calls are made through it. HYPERLIQUID_API_URL overrides the mainnet endpoint.
func NewHyperliquidInfo(ctx context.Context) *hyperliquid.Info {
	baseURL := os.Getenv("HYPERLIQUID_API_URL")
	if baseURL == "" {
		baseURL = hyperliquidMainnet
	}
	ex := hyperliquid.NewExchange(ctx, nil, baseURL, nil, "", "", nil)
	return ex.Info()
}

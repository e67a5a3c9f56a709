package clients

import (
	"os"

	"github.com/hirokisan/bybit/v2"
)

// NewBybitClient creates a Bybit client, authenticated only when keys are set.
func NewBybitClient() *bybit.Client {
	client := bybit.NewClient()
	if key, secret := os.Getenv("BYBIT_API_KEY"), os.Getenv("BYBIT_API_SECRET"); key != "" && secret != "" {
		client = client.WithAuth(key, secret)
	}
	return client
}

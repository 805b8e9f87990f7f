package connectors

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	APIKey        string        `envconfig:"EXCHANGE_API_KEY"`
	APISecret     string        `envconfig:"EXCHANGE_API_SECRET"`
	BaseURL       string        `envconfig:"EXCHANGE_BASE_URL" default:"https://testnet-api.deriva.exchange"`
	QuoteCurrency string        `envconfig:"EXCHANGE_QUOTE_CURRENCY" default:"USDC"`
	Timeout       time.Duration `envconfig:"EXCHANGE_HTTP_TIMEOUT" default:"15s"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}

package pricecheck

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Symbol string `envconfig:"PRICECHECK_SYMBOL" default:"BTC"`
	Quote  string `envconfig:"PRICECHECK_QUOTE" default:"USDT"`
	// MaxDeviation is the tolerated fractional gap between the derivatives
	// mid and the Binance spot last before the check reports a warning.
	MaxDeviation float64 `envconfig:"PRICECHECK_MAX_DEVIATION" default:"0.02"`
}

func GetConfig() *Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return &config
}

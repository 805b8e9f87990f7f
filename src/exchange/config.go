package exchange

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	MarginMode              string        `envconfig:"EXCHANGE_MARGIN_MODE" default:"cross"`
	CreateOrderAttempts     int           `envconfig:"EXCHANGE_CREATE_ORDER_ATTEMPTS" default:"3"`
	RetryBaseDelay          time.Duration `envconfig:"EXCHANGE_RETRY_BASE_DELAY" default:"500ms"`
	PollInterval            time.Duration `envconfig:"EXCHANGE_POLL_INTERVAL" default:"1s"`
	PositionConfirmAttempts int           `envconfig:"EXCHANGE_POSITION_CONFIRM_ATTEMPTS" default:"10"`
	AggressiveLimitBuffer   float64       `envconfig:"EXCHANGE_AGGRESSIVE_LIMIT_BUFFER" default:"0.002"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}

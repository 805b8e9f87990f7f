package feed

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	URL              string        `envconfig:"SIGNAL_FEED_URL" default:"ws://localhost:8181/signals"`
	AuthToken        string        `envconfig:"SIGNAL_FEED_AUTH_TOKEN"`
	HandshakeTimeout time.Duration `envconfig:"SIGNAL_FEED_HANDSHAKE_TIMEOUT" default:"10s"`
	PingInterval     time.Duration `envconfig:"SIGNAL_FEED_PING_INTERVAL" default:"30s"`
	MaxBackoff       time.Duration `envconfig:"SIGNAL_FEED_MAX_BACKOFF" default:"30s"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}

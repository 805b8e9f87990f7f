package consumer

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// ServerEnabled controls the operator HTTP surface.
	ServerEnabled bool `envconfig:"CONSUMER_SERVER_ENABLED" default:"true"`
	// SignalBuffer is the in-flight signal channel capacity between the
	// feed and the executor.
	SignalBuffer int `envconfig:"CONSUMER_SIGNAL_BUFFER" default:"16"`
}

func GetConfig() *Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return &config
}

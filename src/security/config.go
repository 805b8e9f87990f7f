package security

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// MasterKey is the passphrase used to unwrap ENC[...] values in the
	// environment. Leaving it empty disables secret decryption.
	MasterKey string `envconfig:"SECRETS_MASTER_KEY"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}

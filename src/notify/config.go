package notify

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Enabled  bool          `envconfig:"TELEGRAM_NOTIFY_ENABLED" default:"false"`
	BotToken string        `envconfig:"TELEGRAM_BOT_TOKEN"`
	ChatID   string        `envconfig:"TELEGRAM_NOTIFY_CHAT_ID"`
	BaseURL  string        `envconfig:"TELEGRAM_API_BASE_URL" default:"https://api.telegram.org"`
	Timeout  time.Duration `envconfig:"TELEGRAM_HTTP_TIMEOUT" default:"10s"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}

package executor

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Position sizing in quote currency, keyed by signal conviction.
	LowConvictionUSD     float64 `envconfig:"EXECUTOR_LOW_CONVICTION_USD" default:"6"`
	MediumConvictionUSD  float64 `envconfig:"EXECUTOR_MEDIUM_CONVICTION_USD" default:"12"`
	HighConvictionUSD    float64 `envconfig:"EXECUTOR_HIGH_CONVICTION_USD" default:"24"`
	DefaultConvictionUSD float64 `envconfig:"EXECUTOR_DEFAULT_CONVICTION_USD" default:"12"`

	DefaultLeverage  int     `envconfig:"EXECUTOR_DEFAULT_LEVERAGE" default:"2"`
	DefaultTPPercent float64 `envconfig:"EXECUTOR_DEFAULT_TP_PERCENT" default:"0.05"`
	DefaultSLPercent float64 `envconfig:"EXECUTOR_DEFAULT_SL_PERCENT" default:"0.02"`

	// Signals priced within this fraction of the current market go out as
	// market orders; anything further becomes a resting limit.
	MarketPriceTolerance float64 `envconfig:"EXECUTOR_MARKET_PRICE_TOLERANCE" default:"0.05"`

	FillTimeout time.Duration `envconfig:"EXECUTOR_FILL_TIMEOUT" default:"30s"`

	MinConfidence float64 `envconfig:"EXECUTOR_MIN_CONFIDENCE" default:"0.7"`
	// Chats whose signals bypass the confidence gate entirely.
	ConfidenceOverrideChats []string `envconfig:"EXECUTOR_CONFIDENCE_OVERRIDE_CHATS"`

	DedupWindow time.Duration `envconfig:"EXECUTOR_DEDUP_WINDOW" default:"10m"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}

// ConvictionUSD returns the quote-currency notional for a conviction tier.
func (c Config) ConvictionUSD(conviction string) float64 {
	switch conviction {
	case "low":
		return c.LowConvictionUSD
	case "medium":
		return c.MediumConvictionUSD
	case "high":
		return c.HighConvictionUSD
	default:
		return c.DefaultConvictionUSD
	}
}

// ConfidenceExempt reports whether a chat is exempt from the confidence gate.
func (c Config) ConfidenceExempt(chatID string) bool {
	for _, id := range c.ConfidenceOverrideChats {
		if id == chatID {
			return true
		}
	}
	return false
}

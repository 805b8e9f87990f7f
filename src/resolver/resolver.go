package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

// KiloPrefix marks instrument variants that trade at 1000x the base asset's
// natural unit (e.g. PEPE listed as kPEPE).
const KiloPrefix = "k"

// KiloScale is the denomination multiplier for kilo variants. Absolute
// prices quoted against the plain ticker must be multiplied by this factor
// when an order targets the kilo instrument.
var KiloScale = decimal.NewFromInt(1000)

// Listings supplies the instrument tickers currently listed on the exchange.
type Listings interface {
	ListSymbols(ctx context.Context) ([]string, error)
}

// Resolver maps an exchange-agnostic ticker to the instrument actually
// listed. Listings are queried live on every call; new listings and
// delistings are frequent enough that caching would trade the wrong
// instrument.
type Resolver struct {
	listings Listings
}

func NewResolver(listings Listings) *Resolver {
	return &Resolver{listings: listings}
}

// Resolve probes the live listings for the ticker as-is, then for its
// kilo-prefixed variant. Two probes only; anything fuzzier risks silently
// trading the wrong instrument. Returns ok=false when neither exists.
func (r *Resolver) Resolve(ctx context.Context, ticker string) (string, bool, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return "", false, fmt.Errorf("empty ticker")
	}

	symbols, err := r.listings.ListSymbols(ctx)
	if err != nil {
		return "", false, fmt.Errorf("list exchange symbols: %w", err)
	}

	listed := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		listed[s] = struct{}{}
	}

	if _, ok := listed[ticker]; ok {
		logger.WithField("symbol", ticker).Debug("symbol listed as-is")
		return ticker, true, nil
	}

	kilo := KiloPrefix + ticker
	if _, ok := listed[kilo]; ok {
		logger.WithFields(map[string]interface{}{
			"symbol":   ticker,
			"resolved": kilo,
		}).Info("symbol resolved to kilo variant")
		return kilo, true, nil
	}

	logger.WithFields(map[string]interface{}{
		"symbol":  ticker,
		"checked": []string{ticker, kilo},
		"listed":  len(listed),
	}).Warn("symbol not listed on exchange")
	return "", false, nil
}

// IsKiloVariant reports whether resolved is the kilo-prefixed form of the
// original ticker, meaning absolute prices need rescaling by KiloScale.
func IsKiloVariant(original, resolved string) bool {
	return resolved != original && resolved == KiloPrefix+original
}

package pricecheck

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"github.com/nntaoli-project/goex"
	"github.com/nntaoli-project/goex/binance"

	"signalconsumer/src/connectors"
	"signalconsumer/src/exchange"
)

// PriceCheck compares the derivatives venue mid against the Binance spot
// price for one symbol. A large gap usually means a stale or broken market
// and is worth investigating before trusting executions.
type PriceCheck struct {
	Log      *logger.Entry
	Config   *Config
	spot     goex.API
	exchange *exchange.Adapter
}

func (p *PriceCheck) Start() error {
	p.Config = GetConfig()
	p.spot = p.newBinanceInstance()
	p.exchange = exchange.NewAdapter(connectors.NewClient(connectors.GetConfig()), exchange.GetConfig())

	return p.compare()
}

func (*PriceCheck) newBinanceInstance() *binance.Binance {
	apiConfig := &goex.APIConfig{
		HttpClient: http.DefaultClient,
		Endpoint:   binance.GLOBAL_API_BASE_URL,
	}
	return binance.NewWithConfig(apiConfig)
}

func (p *PriceCheck) compare() error {
	ticker, err := p.exchange.GetTicker(context.Background(), p.Config.Symbol)
	if err != nil {
		p.Log.WithError(err).Error("Failed to fetch venue ticker")
		return err
	}

	pair := goex.NewCurrencyPair(
		goex.Currency{Symbol: p.Config.Symbol},
		goex.Currency{Symbol: p.Config.Quote},
	)
	spotTicker, err := p.spot.GetTicker(pair)
	if err != nil {
		p.Log.WithError(err).Error("Failed to fetch Binance spot ticker")
		return err
	}

	spot := decimal.NewFromFloat(spotTicker.Last)
	if !spot.IsPositive() {
		p.Log.WithField("spot", spotTicker.Last).Warn("Binance returned a non-positive price")
		return nil
	}

	deviation := ticker.Mid.Sub(spot).Abs().Div(spot)

	fields := map[string]interface{}{
		"symbol":    p.Config.Symbol,
		"venue_mid": ticker.Mid,
		"spot_last": spot,
		"deviation": deviation,
	}

	if deviation.GreaterThan(decimal.NewFromFloat(p.Config.MaxDeviation)) {
		p.Log.WithFields(fields).Warn("Venue price deviates from spot reference")
		return nil
	}

	p.Log.WithFields(fields).Info("Venue price within tolerance of spot reference")
	return nil
}

package exchange

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"signalconsumer/src/connectors"
	"signalconsumer/src/mapper"
	"signalconsumer/src/model"
)

// Adapter is the boundary to the exchange. It owns order-lifecycle quirks:
// reference prices for market orders, the aggressive-limit fallback on thin
// books, position-confirmed bracket construction and bounded fill waiting.
// None of its operations are idempotent against the exchange; duplicate
// suppression is the executor's job.
type Adapter struct {
	client *connectors.Client
	cfg    Config
	log    *logger.Entry
}

func NewAdapter(client *connectors.Client, cfg Config) *Adapter {
	if cfg.CreateOrderAttempts <= 0 {
		cfg.CreateOrderAttempts = 3
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = 500 * time.Millisecond
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.PositionConfirmAttempts <= 0 {
		cfg.PositionConfirmAttempts = 10
	}
	if cfg.AggressiveLimitBuffer <= 0 {
		cfg.AggressiveLimitBuffer = 0.002
	}
	if cfg.MarginMode == "" {
		cfg.MarginMode = "cross"
	}

	return &Adapter{
		client: client,
		cfg:    cfg,
		log:    logger.WithField("component", "exchange.Adapter"),
	}
}

// SetLeverage confirms the risk parameter on the exchange. Callers must
// treat failure as fatal for the signal; leverage is never assumed.
func (a *Adapter) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	instrument := a.client.Instrument(symbol)

	if err := a.client.SetLeverage(ctx, instrument, leverage, a.cfg.MarginMode); err != nil {
		return fmt.Errorf("set leverage %dx for %s: %w", leverage, instrument, err)
	}

	a.log.WithFields(map[string]interface{}{
		"symbol":   symbol,
		"leverage": leverage,
		"margin":   a.cfg.MarginMode,
	}).Info("leverage set")
	return nil
}

// GetTicker fetches the current market snapshot for a base ticker.
func (a *Adapter) GetTicker(ctx context.Context, symbol string) (*model.Ticker, error) {
	payload, err := a.client.GetTicker(ctx, a.client.Instrument(symbol))
	if err != nil {
		return nil, fmt.Errorf("get ticker for %s: %w", symbol, err)
	}
	return mapper.MapTickerPayload(payload, symbol)
}

// CreateOrder submits the order, retrying transient failures with
// exponential backoff. Market orders carry the current mid as reference
// price; if the book cannot immediately match one, a single aggressive
// immediate-or-cancel limit is tried instead, priced a fixed buffer beyond
// the touch. The order is updated in place with the exchange response.
func (a *Adapter) CreateOrder(ctx context.Context, order *model.TradeOrder) (*model.TradeOrder, error) {
	ticker, err := a.GetTicker(ctx, order.Symbol)
	if err != nil {
		return nil, err
	}

	req := a.buildOrderRequest(order, ticker)

	payload, err := a.placeWithRetry(ctx, req)
	if err != nil {
		var apiErr *connectors.APIError
		if order.OrderType == model.OrderTypeMarket && errors.As(err, &apiErr) && apiErr.Unmatched() {
			a.log.WithFields(map[string]interface{}{
				"symbol": order.Symbol,
				"side":   req.Side,
			}).Warn("market order unmatched, retrying as aggressive IOC limit")

			payload, err = a.client.PlaceOrder(ctx, a.aggressiveLimitRequest(order, ticker))
		}
		if err != nil {
			order.Status = model.OrderStatusRejected
			return nil, fmt.Errorf("create %s order for %s: %w", order.OrderType, order.Symbol, err)
		}
	}

	placed, err := mapper.MapOrderPayload(payload, order.Symbol)
	if err != nil {
		return nil, fmt.Errorf("decode order response for %s: %w", order.Symbol, err)
	}

	order.ID = placed.ID
	order.ClientOrderID = placed.ClientOrderID
	order.Status = placed.Status
	order.FilledQuantity = placed.FilledQuantity
	order.AveragePrice = placed.AveragePrice

	a.log.WithFields(map[string]interface{}{
		"order_id": order.ID,
		"symbol":   order.Symbol,
		"side":     order.Side,
		"type":     order.OrderType,
		"qty":      order.Quantity,
		"status":   order.Status,
	}).Info("order created")

	return order, nil
}

func (a *Adapter) buildOrderRequest(order *model.TradeOrder, ticker *model.Ticker) connectors.OrderRequest {
	req := connectors.OrderRequest{
		Symbol:     a.client.Instrument(order.Symbol),
		Side:       orderSide(order.Side),
		OrderQty:   order.Quantity.String(),
		ReduceOnly: order.ReduceOnly,
		ClOrdID:    connectors.NewClOrdID(),
	}

	switch order.OrderType {
	case model.OrderTypeLimit:
		req.OrdType = "Limit"
		req.TimeInForce = "GoodTillCancel"
		if order.Price != nil {
			req.Price = order.Price.String()
		} else {
			req.Price = ticker.Mid.String()
		}
	default:
		// Market orders need a reference price for the venue's slippage bounds.
		req.OrdType = "Market"
		req.Price = ticker.Mid.String()
	}

	return req
}

// aggressiveLimitRequest prices an immediate-or-cancel limit a fixed buffer
// beyond the touch on the aggressive side, converting a liquidity failure
// into a marketable limit without an open-ended retry loop.
func (a *Adapter) aggressiveLimitRequest(order *model.TradeOrder, ticker *model.Ticker) connectors.OrderRequest {
	buffer := decimal.NewFromFloat(a.cfg.AggressiveLimitBuffer)

	var price decimal.Decimal
	if order.Side.IsLong() {
		price = ticker.Ask.Mul(decimal.NewFromInt(1).Add(buffer))
	} else {
		price = ticker.Bid.Mul(decimal.NewFromInt(1).Sub(buffer))
	}

	return connectors.OrderRequest{
		Symbol:      a.client.Instrument(order.Symbol),
		Side:        orderSide(order.Side),
		OrdType:     "Limit",
		TimeInForce: "ImmediateOrCancel",
		OrderQty:    order.Quantity.String(),
		Price:       price.String(),
		ReduceOnly:  order.ReduceOnly,
		ClOrdID:     connectors.NewClOrdID(),
	}
}

// placeWithRetry retries order submission on transient errors only, with
// exponential backoff. Business rejections surface immediately.
func (a *Adapter) placeWithRetry(ctx context.Context, req connectors.OrderRequest) (*connectors.OrderPayload, error) {
	var lastErr error

	for attempt := 0; attempt < a.cfg.CreateOrderAttempts; attempt++ {
		if attempt > 0 {
			delay := a.cfg.RetryBaseDelay << uint(attempt-1)
			a.log.WithFields(map[string]interface{}{
				"symbol":  req.Symbol,
				"attempt": attempt + 1,
				"delay":   delay.String(),
			}).Warn("retrying order submission")

			if err := sleepCtx(ctx, delay); err != nil {
				return nil, err
			}
			// Fresh client order ID per attempt: the venue rejects reuse and
			// a resubmission is a new order anyway.
			req.ClOrdID = connectors.NewClOrdID()
		}

		payload, err := a.client.PlaceOrder(ctx, req)
		if err == nil {
			return payload, nil
		}
		lastErr = err

		var apiErr *connectors.APIError
		if errors.As(err, &apiErr) && !apiErr.Transient() {
			return nil, err
		}
	}

	return nil, lastErr
}

// GetPositions returns open non-zero positions for a symbol. An empty
// symbol returns all open positions.
func (a *Adapter) GetPositions(ctx context.Context, symbol string) ([]model.Position, error) {
	instrument := ""
	if symbol != "" {
		instrument = a.client.Instrument(symbol)
	}

	payloads, err := a.client.GetPositions(ctx, instrument)
	if err != nil {
		return nil, fmt.Errorf("get positions for %s: %w", symbol, err)
	}

	positions := make([]model.Position, 0, len(payloads))
	for i := range payloads {
		p := &payloads[i]
		if p.Size == "" || p.Size == "0" {
			continue
		}

		pos, err := mapper.MapPositionPayload(p, a.client.BaseTicker(p.Symbol))
		if err != nil {
			return nil, err
		}
		if pos.Size.IsZero() {
			continue
		}
		positions = append(positions, *pos)
	}

	return positions, nil
}

// GetOpenOrders lists resting orders for a symbol.
func (a *Adapter) GetOpenOrders(ctx context.Context, symbol string) ([]model.TradeOrder, error) {
	payloads, err := a.client.GetOpenOrders(ctx, a.client.Instrument(symbol))
	if err != nil {
		return nil, fmt.Errorf("get open orders for %s: %w", symbol, err)
	}

	orders := make([]model.TradeOrder, 0, len(payloads))
	for i := range payloads {
		order, err := mapper.MapOrderPayload(&payloads[i], symbol)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}

	return orders, nil
}

// GetOrderStatus fetches the current lifecycle status of one order.
func (a *Adapter) GetOrderStatus(ctx context.Context, orderID, symbol string) (model.OrderStatus, error) {
	payload, err := a.client.GetOrder(ctx, orderID, a.client.Instrument(symbol))
	if err != nil {
		return "", fmt.Errorf("get order %s: %w", orderID, err)
	}
	return mapper.MapOrderStatus(payload.Status), nil
}

// CancelOrder cancels one resting order.
func (a *Adapter) CancelOrder(ctx context.Context, orderID, symbol string) error {
	if err := a.client.CancelOrder(ctx, orderID, a.client.Instrument(symbol)); err != nil {
		return fmt.Errorf("cancel order %s: %w", orderID, err)
	}

	a.log.WithFields(map[string]interface{}{
		"order_id": orderID,
		"symbol":   symbol,
	}).Info("order cancelled")
	return nil
}

// ClosePosition submits a reduce-only market order sized to the reported
// position, in the opposite direction of its actual side.
func (a *Adapter) ClosePosition(ctx context.Context, pos *model.Position) (*model.TradeOrder, error) {
	side := model.SignalTypeSell
	if !pos.IsLong() {
		side = model.SignalTypeBuy
	}

	order := &model.TradeOrder{
		Symbol:     pos.Symbol,
		Side:       side,
		OrderType:  model.OrderTypeMarket,
		Quantity:   pos.Size,
		ReduceOnly: true,
	}

	return a.CreateOrder(ctx, order)
}

// CreateBracketOrders attaches take-profit and stop-loss orders to the open
// position for symbol. It first waits for the position to be visible (the
// position endpoint can lag the fill), then sizes both legs to the
// confirmed contract quantity and derives the closing side from the actual
// position side. Each leg tries a primary trigger-order shape and one
// fallback shape; per-leg failures are logged and reflected in the returned
// slice, not escalated.
func (a *Adapter) CreateBracketOrders(ctx context.Context, symbol string, tp, sl *decimal.Decimal) ([]model.TradeOrder, error) {
	pos, err := a.confirmPosition(ctx, symbol)
	if err != nil {
		return nil, err
	}

	side := model.SignalTypeSell
	if !pos.IsLong() {
		side = model.SignalTypeBuy
	}

	ticker, err := a.GetTicker(ctx, symbol)
	if err != nil {
		return nil, err
	}

	var orders []model.TradeOrder

	if tp != nil {
		order, err := a.placeBracketLeg(ctx, symbol, side, pos.Size, ticker,
			bracketLeg{trigger: *tp, triggerType: "takeProfit", fallback: fallbackLimit})
		if err != nil {
			a.log.WithError(err).WithFields(map[string]interface{}{
				"symbol": symbol,
				"tp":     tp.String(),
			}).Error("failed to create take-profit order")
		} else {
			orders = append(orders, *order)
		}
	}

	if sl != nil {
		order, err := a.placeBracketLeg(ctx, symbol, side, pos.Size, ticker,
			bracketLeg{trigger: *sl, triggerType: "stopLoss", fallback: fallbackStopMarket})
		if err != nil {
			a.log.WithError(err).WithFields(map[string]interface{}{
				"symbol": symbol,
				"sl":     sl.String(),
			}).Error("failed to create stop-loss order")
		} else {
			orders = append(orders, *order)
		}
	}

	return orders, nil
}

type fallbackShape int

const (
	fallbackLimit fallbackShape = iota
	fallbackStopMarket
)

type bracketLeg struct {
	trigger     decimal.Decimal
	triggerType string
	fallback    fallbackShape
}

// placeBracketLeg tries the primary conditional-market shape and, on
// failure, one alternative shape. Conditional-order APIs are inconsistent
// across venues; the two-tier fallback is required for portability.
func (a *Adapter) placeBracketLeg(ctx context.Context, symbol string, side model.SignalType, size decimal.Decimal, ticker *model.Ticker, leg bracketLeg) (*model.TradeOrder, error) {
	instrument := a.client.Instrument(symbol)

	primary := connectors.OrderRequest{
		Symbol:       instrument,
		Side:         orderSide(side),
		OrdType:      "Market",
		OrderQty:     size.String(),
		Price:        ticker.Mid.String(),
		TriggerPrice: leg.trigger.String(),
		TriggerType:  leg.triggerType,
		ReduceOnly:   true,
		ClOrdID:      connectors.NewClOrdID(),
	}

	payload, primaryErr := a.client.PlaceOrder(ctx, primary)
	if primaryErr == nil {
		return mapper.MapOrderPayload(payload, symbol)
	}

	a.log.WithError(primaryErr).WithFields(map[string]interface{}{
		"symbol":  symbol,
		"trigger": leg.triggerType,
	}).Warn("primary bracket shape rejected, trying fallback shape")

	secondary := connectors.OrderRequest{
		Symbol:     instrument,
		Side:       orderSide(side),
		OrderQty:   size.String(),
		ReduceOnly: true,
		ClOrdID:    connectors.NewClOrdID(),
	}
	switch leg.fallback {
	case fallbackStopMarket:
		secondary.OrdType = "StopMarket"
		secondary.TriggerPrice = leg.trigger.String()
	default:
		secondary.OrdType = "Limit"
		secondary.TimeInForce = "GoodTillCancel"
		secondary.Price = leg.trigger.String()
	}

	payload, secondaryErr := a.client.PlaceOrder(ctx, secondary)
	if secondaryErr != nil {
		return nil, fmt.Errorf("both bracket shapes failed: %v; %w", primaryErr, secondaryErr)
	}

	return mapper.MapOrderPayload(payload, symbol)
}

// confirmPosition polls until the exchange reports a non-zero position for
// symbol, up to the configured attempt count. Order fill and position-query
// consistency can lag each other.
func (a *Adapter) confirmPosition(ctx context.Context, symbol string) (*model.Position, error) {
	for attempt := 1; attempt <= a.cfg.PositionConfirmAttempts; attempt++ {
		positions, err := a.GetPositions(ctx, symbol)
		if err != nil {
			a.log.WithError(err).WithFields(map[string]interface{}{
				"symbol":  symbol,
				"attempt": attempt,
			}).Warn("error checking position")
		} else {
			for i := range positions {
				if positions[i].Symbol == symbol && !positions[i].Size.IsZero() {
					a.log.WithFields(map[string]interface{}{
						"symbol": symbol,
						"size":   positions[i].Size,
						"side":   positions[i].Side,
					}).Info("position confirmed")
					return &positions[i], nil
				}
			}
		}

		if attempt < a.cfg.PositionConfirmAttempts {
			if err := sleepCtx(ctx, a.cfg.PollInterval); err != nil {
				return nil, err
			}
		}
	}

	return nil, fmt.Errorf("no position found for %s after %d attempts", symbol, a.cfg.PositionConfirmAttempts)
}

// WaitForFill polls until the order reports filled or a position for the
// symbol appears, whichever comes first. Market fills can reflect in
// position state before the order-status endpoint catches up, so either
// signal satisfies "filled". Returns false on timeout; a cancelled or
// rejected order ends the wait with an error.
func (a *Adapter) WaitForFill(ctx context.Context, orderID, symbol string, timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)

	for {
		status, err := a.GetOrderStatus(ctx, orderID, symbol)
		if err != nil {
			a.log.WithError(err).WithField("order_id", orderID).Warn("order status poll failed")
		} else {
			switch status {
			case model.OrderStatusFilled:
				return true, nil
			case model.OrderStatusCancelled, model.OrderStatusRejected:
				return false, fmt.Errorf("order %s terminal with status %s", orderID, status)
			}
		}

		positions, err := a.GetPositions(ctx, symbol)
		if err != nil {
			a.log.WithError(err).WithField("symbol", symbol).Warn("position poll failed")
		} else {
			for i := range positions {
				if positions[i].Symbol == symbol && !positions[i].Size.IsZero() {
					return true, nil
				}
			}
		}

		if time.Now().Add(a.cfg.PollInterval).After(deadline) {
			return false, nil
		}
		if err := sleepCtx(ctx, a.cfg.PollInterval); err != nil {
			return false, err
		}
	}
}

func orderSide(side model.SignalType) string {
	if side.IsShort() {
		return "sell"
	}
	return "buy"
}

// sleepCtx sleeps for d, returning early with the context error if the
// surrounding process is shutting down.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

package executor

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"signalconsumer/src/model"
	"signalconsumer/src/resolver"
)

// Exchange is the order-lifecycle surface the executor drives.
type Exchange interface {
	SetLeverage(ctx context.Context, symbol string, leverage int) error
	GetTicker(ctx context.Context, symbol string) (*model.Ticker, error)
	CreateOrder(ctx context.Context, order *model.TradeOrder) (*model.TradeOrder, error)
	CreateBracketOrders(ctx context.Context, symbol string, tp, sl *decimal.Decimal) ([]model.TradeOrder, error)
	WaitForFill(ctx context.Context, orderID, symbol string, timeout time.Duration) (bool, error)
	GetPositions(ctx context.Context, symbol string) ([]model.Position, error)
	GetOpenOrders(ctx context.Context, symbol string) ([]model.TradeOrder, error)
	CancelOrder(ctx context.Context, orderID, symbol string) error
	ClosePosition(ctx context.Context, pos *model.Position) (*model.TradeOrder, error)
}

// SymbolResolver checks a parsed ticker against live exchange listings.
type SymbolResolver interface {
	Resolve(ctx context.Context, ticker string) (string, bool, error)
}

// Notifier reports execution outcomes to operators. Delivery failures are
// logged and never block trading.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// RecordStore persists the audit trail of execution attempts.
type RecordStore interface {
	Append(ctx context.Context, rec *model.ExecutionRecord) error
}

type duplicateLedger interface {
	IsDuplicate(signal *model.TradingSignal) bool
	Record(signal *model.TradingSignal)
}

// Executor turns validated trading signals into exchange orders. One
// Execute call handles one signal end to end: gate, resolve, dedup, place,
// protect, record.
type Executor struct {
	exchange Exchange
	resolver SymbolResolver
	ledger   duplicateLedger
	notifier Notifier
	records  RecordStore
	cfg      Config
	log      *logger.Entry
}

func NewExecutor(exchange Exchange, symbolResolver SymbolResolver, ledger duplicateLedger, notifier Notifier, records RecordStore, cfg Config) *Executor {
	return &Executor{
		exchange: exchange,
		resolver: symbolResolver,
		ledger:   ledger,
		notifier: notifier,
		records:  records,
		cfg:      cfg,
		log:      logger.WithField("component", "executor.Executor"),
	}
}

// Result summarizes how a signal was handled.
type Result struct {
	Outcome  string
	Reason   string
	Order    *model.TradeOrder
	Brackets []model.TradeOrder
}

// Execute runs one signal through the full pipeline. The returned Result is
// never nil; the error is non-nil only when execution failed after the
// signal was accepted.
func (e *Executor) Execute(ctx context.Context, signal *model.TradingSignal) (*Result, error) {
	log := e.log.WithFields(map[string]interface{}{
		"symbol": signal.Symbol,
		"type":   signal.SignalType,
	})

	e.notify(ctx, fmt.Sprintf("signal received: %s %s", signal.SignalType, signal.Symbol))

	if err := signal.Validate(); err != nil {
		log.WithError(err).Warn("rejecting malformed signal")
		return e.finish(ctx, signal, &Result{Outcome: model.ExecutionOutcomeFailed, Reason: err.Error()}), err
	}

	if skip, reason := e.confidenceGate(signal); skip {
		log.WithField("confidence", signal.Confidence).Info("signal below confidence threshold")
		return e.finish(ctx, signal, &Result{Outcome: model.ExecutionOutcomeSkipped, Reason: reason}), nil
	}

	if e.ledger.IsDuplicate(signal) {
		log.Info("duplicate signal ignored")
		return e.finish(ctx, signal, &Result{Outcome: model.ExecutionOutcomeDuplicate, Reason: "duplicate within dedup window"}), nil
	}

	if signal.NeedsResolution() {
		resolved, listed, err := e.resolver.Resolve(ctx, signal.Symbol)
		if err != nil {
			log.WithError(err).Error("symbol resolution failed")
			return e.finish(ctx, signal, &Result{Outcome: model.ExecutionOutcomeFailed, Reason: "symbol resolution: " + err.Error()}), err
		}
		if !listed {
			log.Info("symbol not listed on exchange, skipping")
			return e.finish(ctx, signal, &Result{Outcome: model.ExecutionOutcomeSkipped, Reason: fmt.Sprintf("symbol %s not listed", signal.Symbol)}), nil
		}

		if resolver.IsKiloVariant(signal.Symbol, resolved) {
			log.WithField("resolved", resolved).Info("rescaling prices for kilo variant")
			signal.RescalePrices(resolver.KiloScale)
		}
		signal.Symbol = resolved
	}

	// Recorded before dispatch so a rapid double delivery is caught while
	// the first signal is still in flight.
	e.ledger.Record(signal)

	var (
		result *Result
		err    error
	)
	if signal.SignalType == model.SignalTypeClose {
		result, err = e.executeClose(ctx, signal)
	} else {
		result, err = e.executeOpen(ctx, signal)
	}

	return e.finish(ctx, signal, result), err
}

func (e *Executor) confidenceGate(signal *model.TradingSignal) (bool, string) {
	if signal.Confidence >= e.cfg.MinConfidence {
		return false, ""
	}
	if chat := signal.ChatID(); chat != 0 && e.cfg.ConfidenceExempt(strconv.FormatInt(chat, 10)) {
		return false, ""
	}
	return true, fmt.Sprintf("confidence %.2f below threshold %.2f", signal.Confidence, e.cfg.MinConfidence)
}

// executeClose flattens all exposure for the symbol: every open position is
// closed reduce-only, then any resting orders are cancelled so nothing
// reopens the position later.
func (e *Executor) executeClose(ctx context.Context, signal *model.TradingSignal) (*Result, error) {
	positions, err := e.exchange.GetPositions(ctx, signal.Symbol)
	if err != nil {
		return &Result{Outcome: model.ExecutionOutcomeFailed, Reason: "query positions: " + err.Error()}, err
	}

	if len(positions) == 0 {
		return &Result{Outcome: model.ExecutionOutcomeSkipped, Reason: "no open position to close"}, nil
	}

	result := &Result{Outcome: model.ExecutionOutcomeExecuted}
	for i := range positions {
		order, err := e.exchange.ClosePosition(ctx, &positions[i])
		if err != nil {
			return &Result{Outcome: model.ExecutionOutcomeFailed, Reason: "close position: " + err.Error()}, err
		}
		result.Order = order
	}

	open, err := e.exchange.GetOpenOrders(ctx, signal.Symbol)
	if err != nil {
		e.log.WithError(err).WithField("symbol", signal.Symbol).Warn("could not list open orders after close")
		return result, nil
	}
	for i := range open {
		if err := e.exchange.CancelOrder(ctx, open[i].ID, signal.Symbol); err != nil {
			e.log.WithError(err).WithField("order_id", open[i].ID).Warn("could not cancel resting order after close")
		}
	}

	return result, nil
}

func (e *Executor) executeOpen(ctx context.Context, signal *model.TradingSignal) (*Result, error) {
	leverage := e.cfg.DefaultLeverage
	if signal.Leverage != nil {
		leverage = *signal.Leverage
	}

	if err := e.exchange.SetLeverage(ctx, signal.Symbol, leverage); err != nil {
		return &Result{Outcome: model.ExecutionOutcomeFailed, Reason: "set leverage: " + err.Error()}, err
	}

	ticker, err := e.exchange.GetTicker(ctx, signal.Symbol)
	if err != nil {
		return &Result{Outcome: model.ExecutionOutcomeFailed, Reason: "get ticker: " + err.Error()}, err
	}

	qty := e.positionSize(signal, ticker.Mid)
	if !qty.IsPositive() {
		err := fmt.Errorf("computed quantity %s is not positive", qty)
		return &Result{Outcome: model.ExecutionOutcomeFailed, Reason: err.Error()}, err
	}

	// Entry reference for default bracket percentages: the signal's own
	// price when it carries one, the market otherwise.
	entryRef := ticker.Mid
	if signal.Price != nil {
		entryRef = *signal.Price
	}
	tp, sl := e.deriveBrackets(signal, entryRef, ticker.Mid)

	orderType := e.chooseEntry(signal, ticker)

	order := &model.TradeOrder{
		Symbol:    signal.Symbol,
		Side:      signal.SignalType,
		OrderType: orderType,
		Quantity:  qty,
		Leverage:  &leverage,
	}
	if orderType == model.OrderTypeLimit {
		order.Price = signal.Price
	}

	if _, err := e.exchange.CreateOrder(ctx, order); err != nil {
		return &Result{Outcome: model.ExecutionOutcomeFailed, Reason: "create order: " + err.Error(), Order: order}, err
	}

	result := &Result{Outcome: model.ExecutionOutcomeExecuted, Order: order}

	filled := order.IsFilled()
	if !filled {
		filled, err = e.exchange.WaitForFill(ctx, order.ID, signal.Symbol, e.cfg.FillTimeout)
		if err != nil {
			return &Result{Outcome: model.ExecutionOutcomeFailed, Reason: "wait for fill: " + err.Error(), Order: order}, err
		}
	}
	if !filled {
		// A fill may still land on the exchange later, un-bracketed. That
		// risk is notified, not remediated here.
		err := fmt.Errorf("order %s not confirmed filled within %s", order.ID, e.cfg.FillTimeout)
		e.log.WithFields(map[string]interface{}{
			"symbol":   signal.Symbol,
			"order_id": order.ID,
		}).Warn("fill timeout, aborting without brackets")
		return &Result{Outcome: model.ExecutionOutcomeFailed, Reason: err.Error(), Order: order}, err
	}

	brackets, err := e.exchange.CreateBracketOrders(ctx, signal.Symbol, tp, sl)
	if err != nil {
		e.log.WithError(err).WithField("symbol", signal.Symbol).Error("bracket creation failed, position is unprotected")
		result.Reason = "brackets failed: " + err.Error()
		return result, nil
	}

	result.Brackets = brackets
	if len(brackets) < 2 {
		result.Reason = fmt.Sprintf("only %d of 2 bracket legs placed", len(brackets))
	}
	return result, nil
}

// chooseEntry picks the order shape. Unpriced signals and signals priced
// within the tolerance of the current market go out as market orders;
// anything further from the market becomes a limit at the signal price.
// The boundary is inclusive.
func (e *Executor) chooseEntry(signal *model.TradingSignal, ticker *model.Ticker) model.OrderType {
	if signal.Price == nil {
		return model.OrderTypeMarket
	}

	diff := ticker.Mid.Sub(*signal.Price).Abs().Div(*signal.Price)
	if diff.LessThanOrEqual(decimal.NewFromFloat(e.cfg.MarketPriceTolerance)) {
		return model.OrderTypeMarket
	}
	return model.OrderTypeLimit
}

// positionSize returns the contract quantity: an explicit signal quantity
// wins, otherwise the conviction-tier notional divided by the reference
// price, rounded to six decimals.
func (e *Executor) positionSize(signal *model.TradingSignal, refPrice decimal.Decimal) decimal.Decimal {
	if signal.Quantity != nil {
		return *signal.Quantity
	}

	usd := decimal.NewFromFloat(e.cfg.ConvictionUSD(string(signal.Conviction)))
	if refPrice.IsZero() {
		return decimal.Zero
	}
	return usd.Div(refPrice).Round(6)
}

// deriveBrackets fills in missing protective prices. Defaults hang off the
// entry reference; a stop-loss given without a take-profit gets a
// take-profit at twice the stop's percent distance from the current market,
// on the profit side.
func (e *Executor) deriveBrackets(signal *model.TradingSignal, entryRef, market decimal.Decimal) (*decimal.Decimal, *decimal.Decimal) {
	long := signal.SignalType.IsLong()
	one := decimal.NewFromInt(1)

	tp := signal.TakeProfit
	sl := signal.StopLoss

	if tp == nil {
		var v decimal.Decimal
		if sl != nil {
			dist := market.Sub(*sl).Abs().Div(market)
			offset := dist.Mul(decimal.NewFromInt(2))
			if long {
				v = market.Mul(one.Add(offset))
			} else {
				v = market.Mul(one.Sub(offset))
			}
		} else {
			pct := decimal.NewFromFloat(e.cfg.DefaultTPPercent)
			if long {
				v = entryRef.Mul(one.Add(pct))
			} else {
				v = entryRef.Mul(one.Sub(pct))
			}
		}
		tp = &v
	}

	if sl == nil {
		pct := decimal.NewFromFloat(e.cfg.DefaultSLPercent)
		var v decimal.Decimal
		if long {
			v = entryRef.Mul(one.Sub(pct))
		} else {
			v = entryRef.Mul(one.Add(pct))
		}
		sl = &v
	}

	return tp, sl
}

// finish persists the audit record and fires the operator notification.
// Neither step can fail the execution itself.
func (e *Executor) finish(ctx context.Context, signal *model.TradingSignal, result *Result) *Result {
	rec := buildRecord(signal, result)
	if err := e.records.Append(ctx, rec); err != nil {
		e.log.WithError(err).Warn("could not persist execution record")
	}

	e.notify(ctx, formatOutcome(signal, result))

	return result
}

func (e *Executor) notify(ctx context.Context, text string) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Notify(ctx, text); err != nil {
		e.log.WithError(err).Warn("could not deliver notification")
	}
}

func buildRecord(signal *model.TradingSignal, result *Result) *model.ExecutionRecord {
	rec := &model.ExecutionRecord{
		Symbol:     signal.Symbol,
		SignalType: string(signal.SignalType),
		Outcome:    result.Outcome,
		FailReason: result.Reason,
	}

	if signal.Leverage != nil {
		rec.Leverage = *signal.Leverage
	}

	if order := result.Order; order != nil {
		rec.OrderID = order.ID
		rec.OrderType = string(order.OrderType)
		rec.Quantity, _ = order.Quantity.Float64()
		if order.AveragePrice != nil {
			v, _ := order.AveragePrice.Float64()
			rec.EntryPrice = &v
		} else if order.Price != nil {
			v, _ := order.Price.Float64()
			rec.EntryPrice = &v
		}
	}

	for i := range result.Brackets {
		b := &result.Brackets[i]
		if b.TriggerPrice == nil {
			continue
		}
		v, _ := b.TriggerPrice.Float64()
		switch {
		case b.OrderType == model.OrderTypeStopMarket:
			rec.StopLoss = &v
		case rec.TakeProfit == nil:
			rec.TakeProfit = &v
		default:
			rec.StopLoss = &v
		}
	}
	rec.BracketsAttached = len(result.Brackets) == 2

	return rec
}

func formatOutcome(signal *model.TradingSignal, result *Result) string {
	head := fmt.Sprintf("%s %s: %s", signal.SignalType, signal.Symbol, result.Outcome)

	if order := result.Order; order != nil && order.ID != "" {
		head += fmt.Sprintf(" (order %s, qty %s", order.ID, order.Quantity)
		if order.AveragePrice != nil {
			head += ", entry " + order.AveragePrice.String()
		} else if order.Price != nil {
			head += ", entry " + order.Price.String()
		}
		if order.Leverage != nil {
			head += fmt.Sprintf(", %dx", *order.Leverage)
		}
		head += ")"
	}

	var tp, sl string
	for i := range result.Brackets {
		b := &result.Brackets[i]
		if b.TriggerPrice == nil {
			continue
		}
		switch {
		case b.OrderType == model.OrderTypeStopMarket:
			sl = b.TriggerPrice.String()
		case tp == "":
			tp = b.TriggerPrice.String()
		default:
			sl = b.TriggerPrice.String()
		}
	}
	if tp != "" {
		head += ", tp " + tp
	}
	if sl != "" {
		head += ", sl " + sl
	}

	if result.Reason != "" {
		head += " - " + result.Reason
	}
	return head
}

package executor

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalconsumer/src/dedup"
	"signalconsumer/src/model"
)

type fakeExchange struct {
	leverageCalls []int
	orders        []*model.TradeOrder
	bracketCalls  []bracketCall
	closed        []model.Position
	cancelled     []string
	waitCalls     int

	ticker       *model.Ticker
	positions    []model.Position
	openOrders   []model.TradeOrder
	fillOnCreate bool
	waitFilled   bool
	waitErr      error
	leverageErr  error
	createErr    error
	bracketErr   error
}

type bracketCall struct {
	symbol string
	tp, sl *decimal.Decimal
}

func (f *fakeExchange) SetLeverage(_ context.Context, _ string, leverage int) error {
	f.leverageCalls = append(f.leverageCalls, leverage)
	return f.leverageErr
}

func (f *fakeExchange) GetTicker(_ context.Context, symbol string) (*model.Ticker, error) {
	if f.ticker == nil {
		return nil, fmt.Errorf("no ticker for %s", symbol)
	}
	return f.ticker, nil
}

func (f *fakeExchange) CreateOrder(_ context.Context, order *model.TradeOrder) (*model.TradeOrder, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	order.ID = fmt.Sprintf("ord-%d", len(f.orders)+1)
	if f.fillOnCreate {
		order.Status = model.OrderStatusFilled
		avg := f.ticker.Mid
		order.AveragePrice = &avg
	} else {
		order.Status = model.OrderStatusOpen
	}
	f.orders = append(f.orders, order)
	return order, nil
}

func (f *fakeExchange) CreateBracketOrders(_ context.Context, symbol string, tp, sl *decimal.Decimal) ([]model.TradeOrder, error) {
	f.bracketCalls = append(f.bracketCalls, bracketCall{symbol: symbol, tp: tp, sl: sl})
	if f.bracketErr != nil {
		return nil, f.bracketErr
	}

	var out []model.TradeOrder
	if tp != nil {
		out = append(out, model.TradeOrder{Symbol: symbol, OrderType: model.OrderTypeMarket, TriggerPrice: tp, ReduceOnly: true})
	}
	if sl != nil {
		out = append(out, model.TradeOrder{Symbol: symbol, OrderType: model.OrderTypeStopMarket, TriggerPrice: sl, ReduceOnly: true})
	}
	return out, nil
}

func (f *fakeExchange) WaitForFill(_ context.Context, _, _ string, _ time.Duration) (bool, error) {
	f.waitCalls++
	return f.waitFilled, f.waitErr
}

func (f *fakeExchange) GetPositions(_ context.Context, _ string) ([]model.Position, error) {
	return f.positions, nil
}

func (f *fakeExchange) GetOpenOrders(_ context.Context, _ string) ([]model.TradeOrder, error) {
	return f.openOrders, nil
}

func (f *fakeExchange) CancelOrder(_ context.Context, orderID, _ string) error {
	f.cancelled = append(f.cancelled, orderID)
	return nil
}

func (f *fakeExchange) ClosePosition(_ context.Context, pos *model.Position) (*model.TradeOrder, error) {
	f.closed = append(f.closed, *pos)
	return &model.TradeOrder{ID: "close-1", Symbol: pos.Symbol, ReduceOnly: true, Quantity: pos.Size, Status: model.OrderStatusFilled}, nil
}

type fakeResolver struct {
	resolved string
	listed   bool
	err      error
	queries  []string
}

func (f *fakeResolver) Resolve(_ context.Context, ticker string) (string, bool, error) {
	f.queries = append(f.queries, ticker)
	return f.resolved, f.listed, f.err
}

type fakeNotifier struct {
	messages []string
}

func (f *fakeNotifier) Notify(_ context.Context, text string) error {
	f.messages = append(f.messages, text)
	return nil
}

type fakeRecords struct {
	records []*model.ExecutionRecord
}

func (f *fakeRecords) Append(_ context.Context, rec *model.ExecutionRecord) error {
	f.records = append(f.records, rec)
	return nil
}

func testConfig() Config {
	return Config{
		LowConvictionUSD:     6,
		MediumConvictionUSD:  12,
		HighConvictionUSD:    24,
		DefaultConvictionUSD: 12,
		DefaultLeverage:      2,
		DefaultTPPercent:     0.05,
		DefaultSLPercent:     0.02,
		MarketPriceTolerance: 0.05,
		FillTimeout:          30 * time.Second,
		MinConfidence:        0.7,
		DedupWindow:          10 * time.Minute,
	}
}

func newTestExecutor(exch *fakeExchange, res *fakeResolver, cfg Config) (*Executor, *fakeNotifier, *fakeRecords) {
	notifier := &fakeNotifier{}
	records := &fakeRecords{}
	ledger := dedup.NewLedger(cfg.DedupWindow)
	return NewExecutor(exch, res, ledger, notifier, records, cfg), notifier, records
}

func ticker(mid string) *model.Ticker {
	m := decimal.RequireFromString(mid)
	return &model.Ticker{
		Symbol: "ETH",
		Bid:    m.Sub(decimal.RequireFromString("10")),
		Ask:    m.Add(decimal.RequireFromString("10")),
		Last:   m,
		Mid:    m,
	}
}

func buySignal() *model.TradingSignal {
	return &model.TradingSignal{
		SignalType: model.SignalTypeBuy,
		Symbol:     "ETH",
		Confidence: 0.9,
		Conviction: model.ConvictionHigh,
		Timestamp:  time.Now(),
	}
}

func TestExecuteBuyMarketWithDerivedBrackets(t *testing.T) {
	exch := &fakeExchange{ticker: ticker("2000"), fillOnCreate: true}
	execr, notifier, records := newTestExecutor(exch, &fakeResolver{}, testConfig())

	result, err := execr.Execute(context.Background(), buySignal())
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionOutcomeExecuted, result.Outcome)

	require.Equal(t, []int{2}, exch.leverageCalls)

	require.Len(t, exch.orders, 1)
	order := exch.orders[0]
	assert.Equal(t, model.OrderTypeMarket, order.OrderType)
	// 24 USD high-conviction notional at mid 2000
	assert.Equal(t, "0.012", order.Quantity.String())

	require.Len(t, exch.bracketCalls, 1)
	call := exch.bracketCalls[0]
	require.NotNil(t, call.tp)
	require.NotNil(t, call.sl)
	assert.Equal(t, "2100", call.tp.String(), "take-profit 5% above entry")
	assert.Equal(t, "1960", call.sl.String(), "stop-loss 2% below entry")

	require.Len(t, records.records, 1)
	rec := records.records[0]
	assert.Equal(t, model.ExecutionOutcomeExecuted, rec.Outcome)
	assert.True(t, rec.BracketsAttached)
	assert.Equal(t, "ord-1", rec.OrderID)

	require.Len(t, notifier.messages, 2)
	assert.Contains(t, notifier.messages[0], "signal received")
	summary := notifier.messages[1]
	assert.Contains(t, summary, "executed")
	assert.Contains(t, summary, "order ord-1")
	assert.Contains(t, summary, "entry 2000")
	assert.Contains(t, summary, "2x")
	assert.Contains(t, summary, "tp 2100")
	assert.Contains(t, summary, "sl 1960")
}

func TestExecuteShortDerivesBracketsOnInverseSides(t *testing.T) {
	exch := &fakeExchange{ticker: ticker("2000"), fillOnCreate: true}
	execr, _, _ := newTestExecutor(exch, &fakeResolver{}, testConfig())

	signal := buySignal()
	signal.SignalType = model.SignalTypeShort

	_, err := execr.Execute(context.Background(), signal)
	require.NoError(t, err)

	require.Len(t, exch.bracketCalls, 1)
	call := exch.bracketCalls[0]
	assert.Equal(t, "1900", call.tp.String(), "take-profit below entry for a short")
	assert.Equal(t, "2040", call.sl.String(), "stop-loss above entry for a short")
}

func TestExecuteStopLossOnlyDoublesDistanceForTakeProfit(t *testing.T) {
	exch := &fakeExchange{ticker: ticker("2000"), fillOnCreate: true}
	execr, _, _ := newTestExecutor(exch, &fakeResolver{}, testConfig())

	sl := decimal.RequireFromString("1960")
	signal := buySignal()
	signal.StopLoss = &sl

	_, err := execr.Execute(context.Background(), signal)
	require.NoError(t, err)

	require.Len(t, exch.bracketCalls, 1)
	call := exch.bracketCalls[0]
	// stop 2% away, so the take-profit lands 4% above the market
	assert.Equal(t, "2080", call.tp.String())
	assert.Equal(t, "1960", call.sl.String())
}

func TestExecuteStopLossOnlyMirrorsForShort(t *testing.T) {
	exch := &fakeExchange{ticker: ticker("2000"), fillOnCreate: true}
	execr, _, _ := newTestExecutor(exch, &fakeResolver{}, testConfig())

	sl := decimal.RequireFromString("2100")
	signal := buySignal()
	signal.SignalType = model.SignalTypeShort
	signal.StopLoss = &sl

	_, err := execr.Execute(context.Background(), signal)
	require.NoError(t, err)

	require.Len(t, exch.bracketCalls, 1)
	call := exch.bracketCalls[0]
	// stop 5% above the market, take-profit 10% below it
	assert.Equal(t, "1800", call.tp.String())
	assert.Equal(t, "2100", call.sl.String())
}

func TestExecuteSignalQuantityOverridesSizing(t *testing.T) {
	exch := &fakeExchange{ticker: ticker("2000"), fillOnCreate: true}
	execr, _, _ := newTestExecutor(exch, &fakeResolver{}, testConfig())

	qty := decimal.RequireFromString("0.25")
	signal := buySignal()
	signal.Quantity = &qty

	_, err := execr.Execute(context.Background(), signal)
	require.NoError(t, err)

	require.Len(t, exch.orders, 1)
	assert.Equal(t, "0.25", exch.orders[0].Quantity.String())
}

func TestExecuteConvictionTiers(t *testing.T) {
	cases := []struct {
		conviction model.Conviction
		wantQty    string
	}{
		{model.ConvictionLow, "0.003"},
		{model.ConvictionMedium, "0.006"},
		{model.ConvictionHigh, "0.012"},
		{"", "0.006"},
	}

	for _, tc := range cases {
		t.Run(string(tc.conviction), func(t *testing.T) {
			exch := &fakeExchange{ticker: ticker("2000"), fillOnCreate: true}
			execr, _, _ := newTestExecutor(exch, &fakeResolver{}, testConfig())

			signal := buySignal()
			signal.Conviction = tc.conviction

			_, err := execr.Execute(context.Background(), signal)
			require.NoError(t, err)
			require.Len(t, exch.orders, 1)
			assert.Equal(t, tc.wantQty, exch.orders[0].Quantity.String())
		})
	}
}

func TestExecuteSignalLeverageOverridesDefault(t *testing.T) {
	exch := &fakeExchange{ticker: ticker("2000"), fillOnCreate: true}
	execr, _, _ := newTestExecutor(exch, &fakeResolver{}, testConfig())

	lev := 5
	signal := buySignal()
	signal.Leverage = &lev

	_, err := execr.Execute(context.Background(), signal)
	require.NoError(t, err)
	assert.Equal(t, []int{5}, exch.leverageCalls)
}

func TestExecutePricedNearMarketGoesOutAsMarket(t *testing.T) {
	exch := &fakeExchange{ticker: ticker("2000"), fillOnCreate: true}
	execr, _, _ := newTestExecutor(exch, &fakeResolver{}, testConfig())

	price := decimal.RequireFromString("1990")
	signal := buySignal()
	signal.Price = &price

	_, err := execr.Execute(context.Background(), signal)
	require.NoError(t, err)

	require.Len(t, exch.orders, 1)
	assert.Equal(t, model.OrderTypeMarket, exch.orders[0].OrderType)
}

func TestExecutePricedAtExactToleranceGoesOutAsMarket(t *testing.T) {
	// |2100 - 2000| / 2000 = 0.05, the boundary is inclusive
	exch := &fakeExchange{ticker: ticker("2100"), fillOnCreate: true}
	execr, _, _ := newTestExecutor(exch, &fakeResolver{}, testConfig())

	price := decimal.RequireFromString("2000")
	signal := buySignal()
	signal.Price = &price

	_, err := execr.Execute(context.Background(), signal)
	require.NoError(t, err)

	require.Len(t, exch.orders, 1)
	assert.Equal(t, model.OrderTypeMarket, exch.orders[0].OrderType)
}

func TestExecutePricedFarFromMarketBecomesLimit(t *testing.T) {
	exch := &fakeExchange{ticker: ticker("2000"), fillOnCreate: true}
	execr, _, records := newTestExecutor(exch, &fakeResolver{}, testConfig())

	price := decimal.RequireFromString("1800")
	signal := buySignal()
	signal.Price = &price

	result, err := execr.Execute(context.Background(), signal)
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionOutcomeExecuted, result.Outcome)

	require.Len(t, exch.orders, 1)
	order := exch.orders[0]
	assert.Equal(t, model.OrderTypeLimit, order.OrderType)
	require.NotNil(t, order.Price)
	assert.Equal(t, "1800", order.Price.String())
	// sizing always uses the current market, not the limit price
	assert.Equal(t, "0.012", order.Quantity.String())

	// A filled limit is protected like any other fill, with the default
	// percentages hung off the limit price.
	require.Len(t, exch.bracketCalls, 1)
	call := exch.bracketCalls[0]
	assert.Equal(t, "1890", call.tp.String())
	assert.Equal(t, "1764", call.sl.String())
	require.Len(t, records.records, 1)
	assert.True(t, records.records[0].BracketsAttached)
}

func TestExecuteUnfilledLimitFailsWithoutBrackets(t *testing.T) {
	exch := &fakeExchange{ticker: ticker("2000"), fillOnCreate: false, waitFilled: false}
	execr, _, records := newTestExecutor(exch, &fakeResolver{}, testConfig())

	price := decimal.RequireFromString("1800")
	signal := buySignal()
	signal.Price = &price

	result, err := execr.Execute(context.Background(), signal)
	require.Error(t, err)
	assert.Equal(t, model.ExecutionOutcomeFailed, result.Outcome)

	assert.Equal(t, 1, exch.waitCalls, "limit entries wait for a fill like market entries")
	assert.Empty(t, exch.bracketCalls)
	require.Len(t, records.records, 1)
	assert.False(t, records.records[0].BracketsAttached)
}

func TestExecuteFillTimeoutFailsWithoutBrackets(t *testing.T) {
	exch := &fakeExchange{ticker: ticker("2000"), fillOnCreate: false, waitFilled: false}
	execr, _, records := newTestExecutor(exch, &fakeResolver{}, testConfig())

	result, err := execr.Execute(context.Background(), buySignal())
	require.Error(t, err)
	assert.Equal(t, model.ExecutionOutcomeFailed, result.Outcome)

	assert.Equal(t, 1, exch.waitCalls)
	assert.Empty(t, exch.bracketCalls)
	require.Len(t, records.records, 1)
	assert.Equal(t, model.ExecutionOutcomeFailed, records.records[0].Outcome)
	assert.False(t, records.records[0].BracketsAttached)
	assert.Contains(t, records.records[0].FailReason, "not confirmed filled")
}

func TestExecuteFillConfirmedViaWaitAttachesBrackets(t *testing.T) {
	exch := &fakeExchange{ticker: ticker("2000"), fillOnCreate: false, waitFilled: true}
	execr, _, _ := newTestExecutor(exch, &fakeResolver{}, testConfig())

	result, err := execr.Execute(context.Background(), buySignal())
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionOutcomeExecuted, result.Outcome)
	assert.Equal(t, 1, exch.waitCalls)
	assert.Len(t, exch.bracketCalls, 1)
}

func TestExecuteLowConfidenceSkipped(t *testing.T) {
	exch := &fakeExchange{ticker: ticker("2000")}
	execr, notifier, records := newTestExecutor(exch, &fakeResolver{}, testConfig())

	signal := buySignal()
	signal.Confidence = 0.5

	result, err := execr.Execute(context.Background(), signal)
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionOutcomeSkipped, result.Outcome)

	assert.Empty(t, exch.orders)
	assert.Empty(t, exch.leverageCalls)
	require.Len(t, records.records, 1)
	assert.Equal(t, model.ExecutionOutcomeSkipped, records.records[0].Outcome)
	require.Len(t, notifier.messages, 2)
}

func TestExecuteConfidenceOverrideChat(t *testing.T) {
	cfg := testConfig()
	cfg.ConfidenceOverrideChats = []string{"12345"}

	exch := &fakeExchange{ticker: ticker("2000"), fillOnCreate: true}
	execr, _, _ := newTestExecutor(exch, &fakeResolver{}, cfg)

	signal := buySignal()
	signal.Confidence = 0.3
	signal.Metadata = map[string]interface{}{"chat_id": float64(12345)}

	result, err := execr.Execute(context.Background(), signal)
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionOutcomeExecuted, result.Outcome)
	require.Len(t, exch.orders, 1)
}

func TestExecuteDuplicateWithinWindow(t *testing.T) {
	exch := &fakeExchange{ticker: ticker("2000"), fillOnCreate: true}
	execr, _, records := newTestExecutor(exch, &fakeResolver{}, testConfig())

	first, err := execr.Execute(context.Background(), buySignal())
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionOutcomeExecuted, first.Outcome)

	second, err := execr.Execute(context.Background(), buySignal())
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionOutcomeDuplicate, second.Outcome)

	assert.Len(t, exch.orders, 1, "the duplicate places no order")
	require.Len(t, records.records, 2)
	assert.Equal(t, model.ExecutionOutcomeDuplicate, records.records[1].Outcome)
}

func TestExecuteSkippedSignalsAreNotRecordedInLedger(t *testing.T) {
	exch := &fakeExchange{ticker: ticker("2000"), fillOnCreate: true}
	execr, _, _ := newTestExecutor(exch, &fakeResolver{}, testConfig())

	low := buySignal()
	low.Confidence = 0.5
	result, err := execr.Execute(context.Background(), low)
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionOutcomeSkipped, result.Outcome)

	// A confident repeat of the same trade must still go through.
	result, err = execr.Execute(context.Background(), buySignal())
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionOutcomeExecuted, result.Outcome)
}

func TestExecuteUnlistedSymbolSkipped(t *testing.T) {
	exch := &fakeExchange{ticker: ticker("2000")}
	res := &fakeResolver{listed: false}
	execr, _, _ := newTestExecutor(exch, res, testConfig())

	signal := buySignal()
	signal.Symbol = "NOPE"
	signal.Metadata = map[string]interface{}{model.MetadataKeyNeedsResolution: true}

	result, err := execr.Execute(context.Background(), signal)
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionOutcomeSkipped, result.Outcome)
	assert.Equal(t, []string{"NOPE"}, res.queries)
	assert.Empty(t, exch.orders)
}

func TestExecuteKiloVariantRescalesPrices(t *testing.T) {
	exch := &fakeExchange{ticker: ticker("0.025"), fillOnCreate: true}
	res := &fakeResolver{resolved: "kBONK", listed: true}
	execr, _, _ := newTestExecutor(exch, res, testConfig())

	price := decimal.RequireFromString("0.0000245")
	sl := decimal.RequireFromString("0.000024")
	signal := buySignal()
	signal.Symbol = "BONK"
	signal.Price = &price
	signal.StopLoss = &sl
	signal.Metadata = map[string]interface{}{model.MetadataKeyNeedsResolution: true}

	result, err := execr.Execute(context.Background(), signal)
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionOutcomeExecuted, result.Outcome)

	require.Len(t, exch.orders, 1)
	order := exch.orders[0]
	assert.Equal(t, "kBONK", order.Symbol)
	// 0.0000245 * 1000 = 0.0245, inside the 5% band of mid 0.025
	assert.Equal(t, model.OrderTypeMarket, order.OrderType)

	require.Len(t, exch.bracketCalls, 1)
	assert.Equal(t, "0.024", exch.bracketCalls[0].sl.String(), "stop-loss rescaled to the kilo denomination")
}

func TestExecuteDuplicateMatchesResolvedSymbol(t *testing.T) {
	exch := &fakeExchange{ticker: ticker("0.025"), fillOnCreate: true}
	res := &fakeResolver{resolved: "kBONK", listed: true}
	execr, _, _ := newTestExecutor(exch, res, testConfig())

	raw := buySignal()
	raw.Symbol = "BONK"
	raw.Metadata = map[string]interface{}{model.MetadataKeyNeedsResolution: true}

	first, err := execr.Execute(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionOutcomeExecuted, first.Outcome)

	// The ledger holds the resolved form, so a repeat that already names
	// the listed symbol is caught.
	repeat := buySignal()
	repeat.Symbol = "kBONK"

	second, err := execr.Execute(context.Background(), repeat)
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionOutcomeDuplicate, second.Outcome)
	assert.Len(t, exch.orders, 1)
}

func TestExecuteCloseFlattensAndCancels(t *testing.T) {
	exch := &fakeExchange{
		ticker: ticker("2000"),
		positions: []model.Position{{
			Symbol: "ETH", Side: model.PositionSideLong,
			Size: decimal.RequireFromString("0.5"), EntryPrice: decimal.RequireFromString("1900"),
		}},
		openOrders: []model.TradeOrder{
			{ID: "tp-1", Symbol: "ETH"},
			{ID: "sl-1", Symbol: "ETH"},
		},
	}
	execr, _, records := newTestExecutor(exch, &fakeResolver{}, testConfig())

	signal := buySignal()
	signal.SignalType = model.SignalTypeClose

	result, err := execr.Execute(context.Background(), signal)
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionOutcomeExecuted, result.Outcome)

	require.Len(t, exch.closed, 1)
	assert.Equal(t, "0.5", exch.closed[0].Size.String())
	assert.ElementsMatch(t, []string{"tp-1", "sl-1"}, exch.cancelled)

	require.Len(t, records.records, 1)
	assert.Equal(t, "close", records.records[0].SignalType)
}

func TestExecuteCloseWithoutPositionSkipped(t *testing.T) {
	exch := &fakeExchange{ticker: ticker("2000")}
	execr, _, _ := newTestExecutor(exch, &fakeResolver{}, testConfig())

	mk := func() *model.TradingSignal {
		signal := buySignal()
		signal.SignalType = model.SignalTypeClose
		return signal
	}

	result, err := execr.Execute(context.Background(), mk())
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionOutcomeSkipped, result.Outcome)

	// A repeated close with nothing open still submits nothing.
	_, err = execr.Execute(context.Background(), mk())
	require.NoError(t, err)
	assert.Empty(t, exch.closed)
	assert.Empty(t, exch.cancelled)
	assert.Empty(t, exch.orders)
}

func TestExecuteMalformedSignalFails(t *testing.T) {
	exch := &fakeExchange{ticker: ticker("2000")}
	execr, _, records := newTestExecutor(exch, &fakeResolver{}, testConfig())

	signal := buySignal()
	signal.Symbol = ""

	result, err := execr.Execute(context.Background(), signal)
	require.Error(t, err)
	assert.Equal(t, model.ExecutionOutcomeFailed, result.Outcome)
	assert.Empty(t, exch.orders)
	require.Len(t, records.records, 1)
	assert.Equal(t, model.ExecutionOutcomeFailed, records.records[0].Outcome)
}

func TestExecuteLeverageFailureAborts(t *testing.T) {
	exch := &fakeExchange{ticker: ticker("2000"), leverageErr: fmt.Errorf("leverage out of bounds")}
	execr, _, _ := newTestExecutor(exch, &fakeResolver{}, testConfig())

	result, err := execr.Execute(context.Background(), buySignal())
	require.Error(t, err)
	assert.Equal(t, model.ExecutionOutcomeFailed, result.Outcome)
	assert.Empty(t, exch.orders, "no order without confirmed leverage")
}

func TestExecuteBracketFailureStillExecuted(t *testing.T) {
	exch := &fakeExchange{ticker: ticker("2000"), fillOnCreate: true, bracketErr: fmt.Errorf("no position found")}
	execr, _, records := newTestExecutor(exch, &fakeResolver{}, testConfig())

	result, err := execr.Execute(context.Background(), buySignal())
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionOutcomeExecuted, result.Outcome)
	assert.Contains(t, result.Reason, "brackets failed")

	require.Len(t, records.records, 1)
	assert.False(t, records.records[0].BracketsAttached)
}

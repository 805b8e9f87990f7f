package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type SignalType string

const (
	SignalTypeBuy   SignalType = "buy"
	SignalTypeSell  SignalType = "sell"
	SignalTypeLong  SignalType = "long"
	SignalTypeShort SignalType = "short"
	SignalTypeClose SignalType = "close"
)

// IsLong reports whether the signal opens or represents long exposure.
func (s SignalType) IsLong() bool {
	return s == SignalTypeBuy || s == SignalTypeLong
}

// IsShort reports whether the signal opens or represents short exposure.
func (s SignalType) IsShort() bool {
	return s == SignalTypeSell || s == SignalTypeShort
}

type Conviction string

const (
	ConvictionLow    Conviction = "low"
	ConvictionMedium Conviction = "medium"
	ConvictionHigh   Conviction = "high"
)

type OrderType string

const (
	OrderTypeMarket     OrderType = "market"
	OrderTypeLimit      OrderType = "limit"
	OrderTypeStopMarket OrderType = "stop_market"
)

type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusOpen            OrderStatus = "open"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusRejected        OrderStatus = "rejected"
)

// IsTerminal reports whether no further status transitions are possible.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusFilled || s == OrderStatusCancelled || s == OrderStatusRejected
}

// MetadataKeyNeedsResolution flags a signal whose symbol came straight from
// the upstream parser and must be checked against live exchange listings
// before trading.
const MetadataKeyNeedsResolution = "symbol_needs_resolution"

// TradingSignal is a parsed trading intent handed to the executor by the
// upstream feed. Optional numeric fields are nil when the signal did not
// carry them.
type TradingSignal struct {
	SignalType SignalType             `json:"signal_type"`
	Symbol     string                 `json:"symbol"`
	Price      *decimal.Decimal       `json:"price,omitempty"`
	Quantity   *decimal.Decimal       `json:"quantity,omitempty"`
	StopLoss   *decimal.Decimal       `json:"stop_loss,omitempty"`
	TakeProfit *decimal.Decimal       `json:"take_profit,omitempty"`
	Leverage   *int                   `json:"leverage,omitempty"`
	Confidence float64                `json:"confidence"`
	Conviction Conviction             `json:"trader_conviction,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// Validate checks the structural invariants the executor relies on: a
// non-empty uppercase symbol, strictly positive numeric fields when present,
// leverage within 1..100 and confidence within 0..1.
func (s *TradingSignal) Validate() error {
	if s.Symbol == "" {
		return fmt.Errorf("signal symbol is empty")
	}
	if s.Symbol != strings.ToUpper(s.Symbol) {
		return fmt.Errorf("signal symbol %q is not uppercase", s.Symbol)
	}

	switch s.SignalType {
	case SignalTypeBuy, SignalTypeSell, SignalTypeLong, SignalTypeShort, SignalTypeClose:
	default:
		return fmt.Errorf("unknown signal type %q", s.SignalType)
	}

	for name, v := range map[string]*decimal.Decimal{
		"price":       s.Price,
		"quantity":    s.Quantity,
		"stop_loss":   s.StopLoss,
		"take_profit": s.TakeProfit,
	} {
		if v != nil && !v.IsPositive() {
			return fmt.Errorf("signal %s must be positive, got %s", name, v)
		}
	}

	if s.Leverage != nil && (*s.Leverage < 1 || *s.Leverage > 100) {
		return fmt.Errorf("signal leverage %d outside 1..100", *s.Leverage)
	}

	if s.Confidence < 0 || s.Confidence > 1 {
		return fmt.Errorf("signal confidence %f outside 0..1", s.Confidence)
	}

	return nil
}

// NeedsResolution reports whether the upstream parser flagged the symbol for
// resolution against live exchange listings.
func (s *TradingSignal) NeedsResolution() bool {
	if s.Metadata == nil {
		return false
	}
	flag, ok := s.Metadata[MetadataKeyNeedsResolution].(bool)
	return ok && flag
}

// RescalePrices multiplies every absolute price field on the signal by the
// given factor. Used when symbol resolution maps a plain ticker to a scaled
// kilo variant, where all quoted prices change denomination.
func (s *TradingSignal) RescalePrices(factor decimal.Decimal) {
	for _, v := range []**decimal.Decimal{&s.Price, &s.StopLoss, &s.TakeProfit} {
		if *v != nil {
			scaled := (*v).Mul(factor)
			*v = &scaled
		}
	}
}

// ChatID returns the originating chat identifier from signal metadata, or 0
// when absent. The feed stores it as float64 after JSON decoding.
func (s *TradingSignal) ChatID() int64 {
	if s.Metadata == nil {
		return 0
	}
	switch v := s.Metadata["chat_id"].(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	}
	return 0
}

// TradeOrder is a request sent to the exchange, updated in place as the
// adapter observes exchange responses. A single order is in flight per
// signal; orders are never mutated concurrently.
type TradeOrder struct {
	ID             string           `json:"id,omitempty"`
	ClientOrderID  string           `json:"client_order_id,omitempty"`
	Symbol         string           `json:"symbol"`
	Side           SignalType       `json:"side"`
	OrderType      OrderType        `json:"order_type"`
	Quantity       decimal.Decimal  `json:"quantity"`
	Price          *decimal.Decimal `json:"price,omitempty"`
	TriggerPrice   *decimal.Decimal `json:"trigger_price,omitempty"`
	Leverage       *int             `json:"leverage,omitempty"`
	ReduceOnly     bool             `json:"reduce_only"`
	Status         OrderStatus      `json:"status"`
	FilledQuantity decimal.Decimal  `json:"filled_quantity"`
	AveragePrice   *decimal.Decimal `json:"average_price,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

// IsFilled reports whether the order is completely filled.
func (o *TradeOrder) IsFilled() bool {
	return o.Status == OrderStatusFilled
}

type PositionSide string

const (
	PositionSideLong  PositionSide = "long"
	PositionSideShort PositionSide = "short"
)

// Position is exchange-reported open exposure. It is owned by the exchange;
// the adapter only reads it to confirm fills and size bracket orders.
type Position struct {
	Symbol        string           `json:"symbol"`
	Side          PositionSide     `json:"side"`
	Size          decimal.Decimal  `json:"size"`
	EntryPrice    decimal.Decimal  `json:"entry_price"`
	CurrentPrice  *decimal.Decimal `json:"current_price,omitempty"`
	UnrealizedPnl *decimal.Decimal `json:"unrealized_pnl,omitempty"`
	Leverage      int              `json:"leverage"`
}

// IsLong reports whether the position is long.
func (p *Position) IsLong() bool { return p.Side == PositionSideLong }

// Ticker is a point-in-time market data snapshot for one instrument.
type Ticker struct {
	Symbol string          `json:"symbol"`
	Bid    decimal.Decimal `json:"bid"`
	Ask    decimal.Decimal `json:"ask"`
	Last   decimal.Decimal `json:"last"`
	Mid    decimal.Decimal `json:"mid"`
}

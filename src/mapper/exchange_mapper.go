package mapper

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"signalconsumer/src/connectors"
	"signalconsumer/src/model"
)

// Loosely-typed exchange payloads are converted to the typed entities here,
// at the adapter boundary, and never passed further up in raw form.

// MapOrderPayload converts an exchange order payload to a TradeOrder. The
// base ticker is the instrument with its quote suffix stripped.
func MapOrderPayload(p *connectors.OrderPayload, baseTicker string) (*model.TradeOrder, error) {
	if p == nil {
		return nil, fmt.Errorf("nil order payload")
	}

	qty, err := parseDecimal("orderQty", p.OrderQty)
	if err != nil {
		return nil, err
	}

	order := &model.TradeOrder{
		ID:             p.OrderID,
		ClientOrderID:  p.ClOrdID,
		Symbol:         baseTicker,
		Side:           mapSide(p.Side),
		OrderType:      mapOrderType(p.OrdType),
		Quantity:       qty,
		ReduceOnly:     p.ReduceOnly,
		Status:         MapOrderStatus(p.Status),
		FilledQuantity: decimal.Zero,
	}

	if p.CumQty != "" {
		filled, err := parseDecimal("cumQty", p.CumQty)
		if err != nil {
			return nil, err
		}
		order.FilledQuantity = filled
	}

	if p.Price != "" {
		price, err := parseDecimal("price", p.Price)
		if err != nil {
			return nil, err
		}
		order.Price = &price
	}

	if p.TriggerPrice != "" {
		trigger, err := parseDecimal("triggerPrice", p.TriggerPrice)
		if err != nil {
			return nil, err
		}
		order.TriggerPrice = &trigger
	}

	if p.AvgPrice != "" {
		avg, err := parseDecimal("avgPrice", p.AvgPrice)
		if err != nil {
			return nil, err
		}
		order.AveragePrice = &avg
	}

	if p.CreatedAtMs > 0 {
		order.CreatedAt = time.UnixMilli(p.CreatedAtMs).UTC()
	}

	return order, nil
}

// MapPositionPayload converts an exchange position payload to a Position.
func MapPositionPayload(p *connectors.PositionPayload, baseTicker string) (*model.Position, error) {
	if p == nil {
		return nil, fmt.Errorf("nil position payload")
	}

	size, err := parseDecimal("size", p.Size)
	if err != nil {
		return nil, err
	}

	entry, err := parseDecimal("entryPrice", p.EntryPrice)
	if err != nil {
		return nil, err
	}

	side := model.PositionSideLong
	if p.Side == "short" {
		side = model.PositionSideShort
	}

	pos := &model.Position{
		Symbol:     baseTicker,
		Side:       side,
		Size:       size.Abs(),
		EntryPrice: entry,
		Leverage:   p.Leverage,
	}

	if p.MarkPrice != "" {
		mark, err := parseDecimal("markPrice", p.MarkPrice)
		if err != nil {
			return nil, err
		}
		pos.CurrentPrice = &mark
	}

	if p.UnrealizedPnl != "" {
		pnl, err := parseDecimal("unrealizedPnl", p.UnrealizedPnl)
		if err != nil {
			return nil, err
		}
		pos.UnrealizedPnl = &pnl
	}

	return pos, nil
}

// MapTickerPayload converts a ticker payload. When the exchange omits the
// mid price it is derived from bid and ask.
func MapTickerPayload(p *connectors.TickerPayload, baseTicker string) (*model.Ticker, error) {
	if p == nil {
		return nil, fmt.Errorf("nil ticker payload")
	}

	bid, err := parseDecimal("bidPx", p.BidPx)
	if err != nil {
		return nil, err
	}

	ask, err := parseDecimal("askPx", p.AskPx)
	if err != nil {
		return nil, err
	}

	last, err := parseDecimal("lastPx", p.LastPx)
	if err != nil {
		return nil, err
	}

	ticker := &model.Ticker{
		Symbol: baseTicker,
		Bid:    bid,
		Ask:    ask,
		Last:   last,
	}

	if p.MidPx != "" {
		mid, err := parseDecimal("midPx", p.MidPx)
		if err != nil {
			return nil, err
		}
		ticker.Mid = mid
	} else {
		ticker.Mid = bid.Add(ask).Div(decimal.NewFromInt(2))
	}

	if !ticker.Mid.IsPositive() {
		return nil, fmt.Errorf("non-positive mid price for %s", baseTicker)
	}

	return ticker, nil
}

// MapOrderStatus maps the exchange's order status vocabulary to ours.
// Unknown statuses are treated as pending.
func MapOrderStatus(status string) model.OrderStatus {
	switch status {
	case "New":
		return model.OrderStatusPending
	case "Open":
		return model.OrderStatusOpen
	case "Filled":
		return model.OrderStatusFilled
	case "PartiallyFilled":
		return model.OrderStatusPartiallyFilled
	case "Canceled", "Cancelled", "Expired":
		return model.OrderStatusCancelled
	case "Rejected":
		return model.OrderStatusRejected
	default:
		return model.OrderStatusPending
	}
}

func mapSide(side string) model.SignalType {
	if side == "sell" {
		return model.SignalTypeSell
	}
	return model.SignalTypeBuy
}

func mapOrderType(ordType string) model.OrderType {
	switch ordType {
	case "Limit":
		return model.OrderTypeLimit
	case "StopMarket":
		return model.OrderTypeStopMarket
	default:
		return model.OrderTypeMarket
	}
}

func parseDecimal(field, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse %s %q: %w", field, value, err)
	}
	return d, nil
}

package connectors

import "fmt"

// Exchange bizError codes, mapped to human-readable names.
var exchangeErrorCodes = map[int]string{
	10001: "TE_INVALID_ARGUMENT",       // Missing or malformed parameter
	10002: "TE_UNKNOWN_ERROR",          // Unknown error
	10005: "TE_MAINTENANCE_MODE",       // System maintenance mode
	20001: "TE_ORDER_REJECTED",         // Order rejected by risk checks
	20002: "TE_INVALID_QTY",            // Quantity below lot size or above max
	20003: "TE_ORDER_UNMATCHED",        // Market order could not immediately match
	20004: "TE_INVALID_PRICE",          // Price off tick size or out of band
	20005: "TE_TRIGGER_PRICE_INVALID",  // Invalid trigger price for conditional order
	20006: "TE_ORDER_TYPE_UNSUPPORTED", // Order shape not supported for instrument
	20011: "TE_REDUCE_ONLY_ABORT",      // Reduce-only order would increase position
	20021: "TE_CLIENT_ID_EXIST",        // Duplicate client order ID
	20031: "TE_ORDER_NOT_FOUND",        // Order ID unknown or already purged
	30001: "TE_INVALID_LEVERAGE",       // Leverage outside instrument bounds
	30002: "TE_INSUFFICIENT_MARGIN",    // Not enough margin
	30003: "TE_RISK_LIMIT_EXCEEDED",    // Risk limit exceeded
	40001: "TE_POSITION_NOT_EXIST",     // No open position for instrument
	50001: "TE_INSTRUMENT_NOT_FOUND",   // Instrument not listed
	50002: "TE_MARKET_CLOSED",          // Market closed or halted
}

// codeOrderUnmatched is returned when a market order finds no resting
// liquidity. The adapter converts it into a single aggressive-limit retry.
const codeOrderUnmatched = 20003

// GetErrorMsg returns a human-readable name for a given exchange error code.
// Unknown codes yield a generic message including the code.
func GetErrorMsg(code int) string {
	if msg, ok := exchangeErrorCodes[code]; ok {
		return msg
	}
	return fmt.Sprintf("UNKNOWN_EXCHANGE_ERROR_%d", code)
}

// APIError is a non-2xx HTTP response or a non-zero business code from the
// exchange.
type APIError struct {
	Status int
	Code   int
	Msg    string
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("exchange error %d (%s): %s", e.Code, GetErrorMsg(e.Code), e.Msg)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Msg)
}

// Transient reports whether the error is worth retrying: server errors,
// rate limiting and request timeouts.
func (e *APIError) Transient() bool {
	if e.Status >= 500 && e.Status <= 599 {
		return true
	}
	return e.Status == 429 || e.Status == 408
}

// Unmatched reports whether a market order was rejected for lack of
// immediately matchable liquidity.
func (e *APIError) Unmatched() bool {
	return e.Code == codeOrderUnmatched
}

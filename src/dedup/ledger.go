package dedup

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"signalconsumer/src/model"
)

// DefaultWindow is the sliding window inside which a repeated instruction is
// treated as a duplicate.
const DefaultWindow = 10 * time.Minute

// priceTolerance is the absolute tolerance when comparing entry prices of
// two signals. Equality is exact beyond this fixed tolerance, not fuzzy.
var priceTolerance = decimal.NewFromFloat(0.01)

// RecentTrade is one ledger entry. Entries are created when a signal begins
// execution and purged once they age out of the window, never updated.
type RecentTrade struct {
	Symbol     string
	SignalType model.SignalType
	EntryPrice *decimal.Decimal
	Leverage   *int
	Timestamp  time.Time
}

// Ledger is an in-memory, time-windowed record of recently executed signals.
// Message delivery may be multiplexed across goroutines, so access is
// serialized with a mutex.
type Ledger struct {
	mu     sync.Mutex
	window time.Duration
	trades []RecentTrade
	now    func() time.Time
}

// NewLedger creates a ledger with the given dedup window. A non-positive
// window falls back to DefaultWindow.
func NewLedger(window time.Duration) *Ledger {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Ledger{window: window, now: time.Now}
}

// IsDuplicate purges expired entries and then reports whether the signal
// matches a remaining entry on (symbol, signal type), with prices both
// absent or within tolerance, and leverage equal exactly.
func (l *Ledger) IsDuplicate(signal *model.TradingSignal) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.purgeExpired()

	for i := range l.trades {
		t := &l.trades[i]
		if t.Symbol != signal.Symbol || t.SignalType != signal.SignalType {
			continue
		}
		if !priceMatch(t.EntryPrice, signal.Price) || !leverageMatch(t.Leverage, signal.Leverage) {
			continue
		}

		logger.WithFields(map[string]interface{}{
			"symbol":      signal.Symbol,
			"signal_type": signal.SignalType,
			"age_seconds": l.now().Sub(t.Timestamp).Seconds(),
		}).Info("duplicate trade detected")
		return true
	}

	return false
}

// Record appends the signal to the ledger. Called before execution so a
// rapid double delivery is caught while the first signal is still in flight.
func (l *Ledger) Record(signal *model.TradingSignal) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.trades = append(l.trades, RecentTrade{
		Symbol:     signal.Symbol,
		SignalType: signal.SignalType,
		EntryPrice: signal.Price,
		Leverage:   signal.Leverage,
		Timestamp:  l.now(),
	})

	logger.WithFields(map[string]interface{}{
		"symbol":      signal.Symbol,
		"signal_type": signal.SignalType,
	}).Debug("recorded trade in dedup ledger")
}

// purgeExpired drops entries older than the window. Caller holds the mutex.
func (l *Ledger) purgeExpired() {
	cutoff := l.now().Add(-l.window)
	kept := l.trades[:0]
	for _, t := range l.trades {
		if t.Timestamp.After(cutoff) {
			kept = append(kept, t)
		}
	}
	l.trades = kept
}

func priceMatch(a, b *decimal.Decimal) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return a.Sub(*b).Abs().LessThan(priceTolerance)
}

func leverageMatch(a, b *int) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

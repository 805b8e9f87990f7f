package model

import "time"

const (
	ExecutionOutcomeExecuted  = "executed"
	ExecutionOutcomeFailed    = "failed"
	ExecutionOutcomeSkipped   = "skipped"
	ExecutionOutcomeDuplicate = "duplicate"
)

// ExecutionRecord is the persisted trail of one signal execution attempt.
// The dedup ledger stays in memory; this table exists so operators can audit
// what was placed, and in particular query entries that ended up without
// bracket protection.
type ExecutionRecord struct {
	ID               uint     `gorm:"primaryKey" json:"id"`
	Symbol           string   `gorm:"index" json:"symbol"`
	SignalType       string   `gorm:"size:10" json:"signal_type"`
	OrderID          string   `gorm:"size:64" json:"order_id,omitempty"`
	OrderType        string   `gorm:"size:20" json:"order_type,omitempty"`
	Quantity         float64  `json:"quantity"`
	EntryPrice       *float64 `json:"entry_price,omitempty"`
	TakeProfit       *float64 `json:"take_profit,omitempty"`
	StopLoss         *float64 `json:"stop_loss,omitempty"`
	Leverage         int      `json:"leverage"`
	Outcome          string   `gorm:"size:20;not null" json:"outcome"`
	BracketsAttached bool     `json:"brackets_attached"`
	FailReason       string   `gorm:"size:255" json:"fail_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName controls the exact table name for execution records.
func (ExecutionRecord) TableName() string {
	return "execution_records"
}

package model

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout is the run date format used by the ledger and export files.
const DateLayout = "2006-01-02"

// AllocationEntry is the dollar amount assigned to one instrument.
type AllocationEntry struct {
	Symbol    string  `json:"symbol"`
	Amount    float64 `json:"amount"`
	Defensive bool    `json:"defensive"`
}

// Allocation is the result of one allocation run.
type Allocation struct {
	RunID              uuid.UUID         `json:"run_id"`
	Date               time.Time         `json:"date"`
	TotalCapital       float64           `json:"total_capital"`
	Fallback           string            `json:"fallback"`
	FallbackPriced     bool              `json:"fallback_priced"`
	TopN               int               `json:"top_n"`
	NegativeCount      int               `json:"negative_count"`
	DefensiveRatio     float64           `json:"defensive_ratio"`
	DefensiveAmount    float64           `json:"defensive_amount"`
	OffensiveRemainder float64           `json:"offensive_remainder"`
	OffensiveShare     float64           `json:"offensive_share"`
	Selected           []string          `json:"selected"`
	Entries            []AllocationEntry `json:"entries"`
	TotalAllocated     float64           `json:"total_allocated"`
	Unallocated        float64           `json:"unallocated"`
}

// Amount returns the amount allocated to symbol and whether it appears in the result.
func (a *Allocation) Amount(symbol string) (float64, bool) {
	for _, e := range a.Entries {
		if e.Symbol == symbol {
			return e.Amount, true
		}
	}
	return 0, false
}

// Map returns the allocation as a symbol -> amount mapping.
func (a *Allocation) Map() map[string]float64 {
	m := make(map[string]float64, len(a.Entries))
	for _, e := range a.Entries {
		m[e.Symbol] = e.Amount
	}
	return m
}

// RunDate returns the run date formatted for storage.
func (a *Allocation) RunDate() string { return a.Date.Format(DateLayout) }

// Records converts the allocation into ledger rows.
func (a *Allocation) Records() []AllocationRecord {
	recs := make([]AllocationRecord, len(a.Entries))
	for i, e := range a.Entries {
		recs[i] = AllocationRecord{
			RunID:  a.RunID,
			Date:   a.RunDate(),
			Symbol: e.Symbol,
			Amount: e.Amount,
		}
	}
	return recs
}

// AllocationRecord is one append-only ledger row.
type AllocationRecord struct {
	ID     int64     `json:"id"`
	RunID  uuid.UUID `json:"run_id"`
	Date   string    `json:"date"`
	Symbol string    `json:"etf"`
	Amount float64   `json:"amount"`
}

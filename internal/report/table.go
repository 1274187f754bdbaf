package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"ProtectiveAllocator/internal/model"
)

// AllocationTable is the ledger reshaped to one row per run date and one
// column per instrument. Missing combinations are zero.
type AllocationTable struct {
	Dates   []time.Time
	Symbols []string
	// Amounts[i][j] is the amount of Symbols[j] on Dates[i].
	Amounts [][]float64
}

// Pivot projects ledger rows into an AllocationTable. Rows must be ordered
// by insertion within a date, as Recorder.History returns them; when a date
// holds several runs only the last one is used.
func Pivot(records []model.AllocationRecord) (*AllocationTable, error) {
	lastRun := make(map[string]uuid.UUID)
	for _, r := range records {
		lastRun[r.Date] = r.RunID
	}

	byDate := make(map[string]map[string]float64)
	symbolSet := make(map[string]bool)
	for _, r := range records {
		if r.RunID != lastRun[r.Date] {
			continue
		}
		if byDate[r.Date] == nil {
			byDate[r.Date] = make(map[string]float64)
		}
		byDate[r.Date][r.Symbol] += r.Amount
		symbolSet[r.Symbol] = true
	}

	t := &AllocationTable{}
	for sym := range symbolSet {
		t.Symbols = append(t.Symbols, sym)
	}
	sort.Strings(t.Symbols)

	dateKeys := make([]string, 0, len(byDate))
	for d := range byDate {
		dateKeys = append(dateKeys, d)
	}
	sort.Strings(dateKeys)

	for _, d := range dateKeys {
		date, err := time.Parse(model.DateLayout, d)
		if err != nil {
			return nil, fmt.Errorf("parse ledger date %q: %w", d, err)
		}
		row := make([]float64, len(t.Symbols))
		for j, sym := range t.Symbols {
			row[j] = byDate[d][sym]
		}
		t.Dates = append(t.Dates, date)
		t.Amounts = append(t.Amounts, row)
	}
	return t, nil
}

// Column returns the amounts of one instrument over time, or nil if unknown.
func (t *AllocationTable) Column(symbol string) []float64 {
	j := sort.SearchStrings(t.Symbols, symbol)
	if j >= len(t.Symbols) || t.Symbols[j] != symbol {
		return nil
	}
	col := make([]float64, len(t.Dates))
	for i := range t.Dates {
		col[i] = t.Amounts[i][j]
	}
	return col
}

// Totals returns the amount allocated on each date.
func (t *AllocationTable) Totals() []float64 {
	out := make([]float64, len(t.Amounts))
	for i, row := range t.Amounts {
		out[i] = floats.Sum(row)
	}
	return out
}

// SymbolSummary aggregates one instrument across all run dates.
type SymbolSummary struct {
	Symbol string  `json:"symbol"`
	Mean   float64 `json:"mean"`
	Max    float64 `json:"max"`
	Last   float64 `json:"last"`
	// Held is the number of run dates with a non-zero amount.
	Held int `json:"held"`
}

// Summarize returns per-instrument statistics in symbol order.
func Summarize(t *AllocationTable) []SymbolSummary {
	if len(t.Dates) == 0 {
		return nil
	}
	out := make([]SymbolSummary, 0, len(t.Symbols))
	for _, sym := range t.Symbols {
		col := t.Column(sym)
		held := 0
		for _, v := range col {
			if v > 0 {
				held++
			}
		}
		out = append(out, SymbolSummary{
			Symbol: sym,
			Mean:   stat.Mean(col, nil),
			Max:    floats.Max(col),
			Last:   col[len(col)-1],
			Held:   held,
		})
	}
	return out
}

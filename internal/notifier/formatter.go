package notifier

import (
	"fmt"
	"sort"
	"strings"

	"ProtectiveAllocator/internal/model"
)

// FormatAllocationReport formats one allocation run into a Telegram message.
func FormatAllocationReport(alloc *model.Allocation, momentum *model.MomentumSet) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>PAA Allocation</b> | %s\n\n", alloc.RunDate()))

	scores := momentum.Scores()
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Value > scores[j].Value })
	if len(scores) > 0 {
		b.WriteString("📈 <b>Momentum:</b>\n")
		for _, s := range scores {
			b.WriteString(fmt.Sprintf("  %s: %+.2f%% (price %.2f / SMA %.2f)\n", s.Symbol, s.Value*100, s.Price, s.MovingAverage))
		}
	}
	if momentum != nil && len(momentum.Excluded) > 0 {
		names := make([]string, len(momentum.Excluded))
		for i, ex := range momentum.Excluded {
			names[i] = ex.Symbol
		}
		b.WriteString(fmt.Sprintf("  excluded: %s\n", strings.Join(names, ", ")))
	}

	b.WriteString(fmt.Sprintf("\nNegative momentum: %d → defensive %.0f%%\n", alloc.NegativeCount, alloc.DefensiveRatio*100))

	b.WriteString("\n💰 <b>Allocation:</b>\n")
	for _, e := range alloc.Entries {
		tag := ""
		if e.Defensive {
			tag = " (defensive)"
		}
		b.WriteString(fmt.Sprintf("  %s: $%.2f%s\n", e.Symbol, e.Amount, tag))
	}
	if len(alloc.Entries) == 0 {
		b.WriteString("  none\n")
	}
	b.WriteString(fmt.Sprintf("  Total: $%.2f of $%.2f\n", alloc.TotalAllocated, alloc.TotalCapital))
	if alloc.Unallocated > 0 {
		b.WriteString(fmt.Sprintf("  Unallocated: $%.2f\n", alloc.Unallocated))
	}

	if alloc.DefensiveAmount > 0 && !alloc.FallbackPriced {
		b.WriteString(fmt.Sprintf("\n⚠️ No price data for %s\n", alloc.Fallback))
	}
	return b.String()
}

// FormatHistory formats ledger rows grouped by run date.
func FormatHistory(records []model.AllocationRecord) string {
	if len(records) == 0 {
		return "No allocations recorded yet."
	}
	var b strings.Builder
	b.WriteString("📅 <b>Allocation history</b>\n")
	current := ""
	for _, r := range records {
		if r.Date != current {
			current = r.Date
			b.WriteString(fmt.Sprintf("\n<b>%s</b>\n", r.Date))
		}
		b.WriteString(fmt.Sprintf("  %s: $%.2f\n", r.Symbol, r.Amount))
	}
	return b.String()
}

// HelpText lists the supported bot commands.
const HelpText = "Available commands:\n• /run - run the allocation now\n• /latest - show the latest allocation\n• /report - render the history report"

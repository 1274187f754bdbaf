package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"ProtectiveAllocator/internal/model"
)

// FileName returns the export file name for a run date.
func FileName(date time.Time) string {
	return fmt.Sprintf("paa_allocation_%s.csv", date.Format(model.DateLayout))
}

// WriteCSV writes the allocation rows to dir, replacing any file of the
// same run date. It returns the path written.
func WriteCSV(dir string, date time.Time, entries []model.AllocationEntry) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, FileName(date))

	// Write to a temp file first so a failed run never leaves a truncated export.
	tmp, err := os.CreateTemp(dir, ".paa_allocation_*.csv")
	if err != nil {
		return "", fmt.Errorf("create temp export: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write([]string{"ETF", "Allocated Amount"}); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write header: %w", err)
	}
	for _, e := range entries {
		if err := w.Write([]string{e.Symbol, strconv.FormatFloat(e.Amount, 'f', 2, 64)}); err != nil {
			tmp.Close()
			return "", fmt.Errorf("write row %s: %w", e.Symbol, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("flush export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close export: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename export: %w", err)
	}
	return path, nil
}

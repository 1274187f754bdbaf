package export

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ProtectiveAllocator/internal/model"
)

func TestWriteCSV(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	date := time.Date(2025, 5, 1, 15, 0, 0, 0, time.UTC)

	path, err := WriteCSV(dir, date, []model.AllocationEntry{
		{Symbol: "SPY", Amount: 166.666},
		{Symbol: "IEF", Amount: 1000, Defensive: true},
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "paa_allocation_2025-05-01.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ETF,Allocated Amount\nSPY,166.67\nIEF,1000.00\n", string(data))
}

func TestWriteCSV_OverwritesSameDate(t *testing.T) {
	dir := t.TempDir()
	date := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	_, err := WriteCSV(dir, date, []model.AllocationEntry{{Symbol: "SPY", Amount: 1}, {Symbol: "QQQ", Amount: 2}})
	require.NoError(t, err)
	path, err := WriteCSV(dir, date, []model.AllocationEntry{{Symbol: "IEF", Amount: 3}})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ETF,Allocated Amount\nIEF,3.00\n", string(data))

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

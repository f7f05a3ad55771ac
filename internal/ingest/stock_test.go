package ingest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStockLoaderLoad(t *testing.T) {
	root := t.TempDir()
	writeExtract(t, filepath.Join(root, "Braza"), "estoque.csv",
		"Código;Estoque\n"+
			"1-ABC123;10,5\n"+
			"0-DEF456;3\n")

	loader := NewStockLoader(root, []string{"Braza"})
	loader.Now = func() time.Time {
		return time.Date(2025, 6, 15, 13, 45, 0, 0, time.UTC)
	}

	readings, summary := loader.Load(context.Background())
	require.Len(t, readings, 2)
	assert.Empty(t, summary.Failed())

	snapshot := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "ABC123", readings[0].SKU)
	assert.Equal(t, 10.5, readings[0].StockUnits)
	assert.Equal(t, 1, readings[0].ItemMultiplier)
	assert.True(t, snapshot.Equal(readings[0].Date))

	assert.Equal(t, "DEF456", readings[1].SKU)
	assert.Equal(t, 0, readings[1].ItemMultiplier)
	assert.True(t, snapshot.Equal(readings[1].Date))
}

func TestStockLoaderExplodesMultiTokenCells(t *testing.T) {
	root := t.TempDir()
	writeExtract(t, filepath.Join(root, "Braza"), "estoque.csv",
		"codigo;stock\n1-ABC 1-DEF;6\n")

	loader := NewStockLoader(root, []string{"Braza"})
	readings, _ := loader.Load(context.Background())

	require.Len(t, readings, 2)
	assert.Equal(t, "ABC", readings[0].SKU)
	assert.Equal(t, "DEF", readings[1].SKU)
	assert.Equal(t, 6.0, readings[0].StockUnits)
	assert.Equal(t, 6.0, readings[1].StockUnits)
}

func TestStockLoaderSkipsBlankSKURows(t *testing.T) {
	root := t.TempDir()
	writeExtract(t, filepath.Join(root, "Braza"), "estoque.csv",
		"sku;estoque\n;5\n1-ABC;2\n")

	loader := NewStockLoader(root, []string{"Braza"})
	readings, summary := loader.Load(context.Background())

	require.Len(t, readings, 1)
	assert.Equal(t, "ABC", readings[0].SKU)
	assert.Equal(t, 1, summary.Files[0].Skipped)
}

//go:build !integration

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edm-tools/partmatch-cli/internal/edmxml"
	"github.com/edm-tools/partmatch-cli/internal/ingest"
)

func TestSheetEntries(t *testing.T) {
	sheet := &ingest.Sheet{
		Name:    "Combined",
		Columns: []string{ingest.ColSourceSheet, ingest.ColMFG, ingest.ColMFGPN, ingest.ColDescription},
		Rows: [][]string{
			{"Resistors", "Vishay", "CRCW0603", "10k 1%"},
			{"Diodes", "Nexperia", "BAV99", ""},
		},
	}

	entries, err := sheetEntries(sheet)
	require.NoError(t, err)
	assert.Equal(t, []edmxml.Entry{
		{Manufacturer: "Vishay", PartNumber: "CRCW0603", Description: "10k 1%"},
		{Manufacturer: "Nexperia", PartNumber: "BAV99"},
	}, entries)
}

func TestSheetEntries_NoDescriptionColumn(t *testing.T) {
	sheet := &ingest.Sheet{
		Name:    "Combined",
		Columns: []string{ingest.ColMFG, ingest.ColMFGPN},
		Rows:    [][]string{{"Vishay", "CRCW0603"}},
	}

	entries, err := sheetEntries(sheet)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Empty(t, entries[0].Description)
}

func TestSheetEntries_MissingColumns(t *testing.T) {
	sheet := &ingest.Sheet{
		Name:    "Sheet1",
		Columns: []string{"Part", "Qty"},
		Rows:    [][]string{{"X1", "5"}},
	}

	_, err := sheetEntries(sheet)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run combine first")
}

package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edm-tools/partmatch-cli/internal/ingest"
	"github.com/edm-tools/partmatch-cli/internal/model"
)

func sampleResults() []model.ResolvedPart {
	return []model.ResolvedPart{
		{
			Part: model.Part{
				Manufacturer: "Vishay", PartNumber: "CRCW0603",
				InternalPN: "R-001", Description: "resistor", SourceSheet: "Resistors",
			},
			Result: model.MatchResult{
				Status: model.StatusFound,
				Matches: []model.MatchCandidate{
					{MPN: "CRCW0603100KFKEA", MFG: "Vishay Dale", MatchString: "CRCW0603100KFKEA@Vishay Dale",
						LifecycleStatus: "Active", LifecycleCode: "AC", ExternalID: "EXT-1"},
				},
			},
		},
		{
			Part: model.Part{Manufacturer: "Murata", PartNumber: "GRM188", SourceSheet: "Caps"},
			Result: model.MatchResult{
				Status: model.StatusMultiple,
				Matches: []model.MatchCandidate{
					{MPN: "GRM188R71C104KA01D", MFG: "Murata", MatchString: "GRM188R71C104KA01D@Murata"},
					{MPN: "GRM188R71E104KA01D", MFG: "Murata", MatchString: "GRM188R71E104KA01D@Murata"},
					{MPN: "GRM188R71H104KA93D", MFG: "Murata Electronics", MatchString: "GRM188R71H104KA93D@Murata Electronics"},
					{MPN: "GRM188R72A104KA35D", MFG: "Murata", MatchString: "GRM188R72A104KA35D@Murata"},
					{MPN: "GRM188R61A105KA61D", MFG: "Murata", MatchString: "GRM188R61A105KA61D@Murata"},
				},
			},
		},
		{
			Part:   model.Part{Manufacturer: "KOA", PartNumber: "RK73H"},
			Result: model.MatchResult{Status: model.StatusNone, Matches: []model.MatchCandidate{}},
		},
		{
			Part:   model.Part{Manufacturer: "TDK", PartNumber: "C1608"},
			Result: model.MatchResult{Status: model.StatusError, Matches: []model.MatchCandidate{}},
			Error:  "pas: search failed",
		},
	}
}

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleResults()))

	var decoded []model.ResolvedPart
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 4)
	assert.Equal(t, model.StatusFound, decoded[0].Result.Status)
	assert.Equal(t, "pas: search failed", decoded[3].Error)
	assert.Contains(t, buf.String(), "\n  ", "output is indented")
}

func TestWriteJSONFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "results.json")
	require.NoError(t, WriteJSONFile(path, sampleResults()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"CRCW0603100KFKEA@Vishay Dale"`)
}

func TestReadJSONFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "results.json")
	require.NoError(t, WriteJSONFile(path, sampleResults()))

	var decoded []model.ResolvedPart
	require.NoError(t, ReadJSONFile(path, &decoded))
	require.Len(t, decoded, 4)
	assert.Equal(t, "Vishay", decoded[0].Part.Manufacturer)
	assert.Equal(t, model.StatusError, decoded[3].Result.Status)
}

func TestReadJSONFile_Missing(t *testing.T) {
	t.Parallel()

	var decoded []model.ResolvedPart
	err := ReadJSONFile(filepath.Join(t.TempDir(), "absent.json"), &decoded)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "report: open")
}

func TestResultsSheet(t *testing.T) {
	t.Parallel()

	sheet := ResultsSheet(sampleResults())
	assert.Equal(t, "Results", sheet.Name)
	require.Len(t, sheet.Rows, 4)

	status := sheet.ColumnIndex("Match_Status")
	count := sheet.ColumnIndex("Match_Count")
	details := sheet.ColumnIndex("Match_Details")

	assert.Equal(t, "Found", sheet.Rows[0][status])
	assert.Equal(t, "1", sheet.Rows[0][count])
	assert.Equal(t, "CRCW0603100KFKEA@Vishay Dale", sheet.Rows[0][details])

	assert.Equal(t, "Multiple", sheet.Rows[1][status])
	assert.Equal(t, "5", sheet.Rows[1][count])
	assert.Equal(t,
		"GRM188R71C104KA01D@Murata, GRM188R71E104KA01D@Murata, GRM188R71H104KA93D@Murata Electronics ... (+2 more)",
		sheet.Rows[1][details])

	assert.Equal(t, "No matches found", sheet.Rows[2][details])
	assert.Equal(t, "pas: search failed", sheet.Rows[3][sheet.ColumnIndex("Error")])

	// Input columns use the canonical names so the sheet can feed ingest.
	assert.Equal(t, "Vishay", sheet.Rows[0][sheet.ColumnIndex(ingest.ColMFG)])
	assert.Equal(t, "CRCW0603", sheet.Rows[0][sheet.ColumnIndex(ingest.ColMFGPN)])
	assert.Equal(t, "R-001", sheet.Rows[0][sheet.ColumnIndex(ingest.ColPartNumber)])
}

func TestMatchesSheet(t *testing.T) {
	t.Parallel()

	sheet := MatchesSheet(sampleResults())
	// 1 + 5 matches, plus one blank row each for the None and Error parts.
	require.Len(t, sheet.Rows, 8)

	assert.Equal(t, []string{
		"CRCW0603", "Vishay", "Found",
		"CRCW0603100KFKEA@Vishay Dale", "Active", "AC", "EXT-1",
	}, sheet.Rows[0])

	assert.Equal(t, []string{"RK73H", "KOA", "None", "", "", "", ""}, sheet.Rows[6])
	assert.Equal(t, "Error", sheet.Rows[7][2])
}

func TestSummarySheet(t *testing.T) {
	t.Parallel()

	sheet := SummarySheet(sampleResults())
	metrics := map[string]string{}
	for _, row := range sheet.Rows {
		metrics[row[0]] = row[1]
	}

	assert.Equal(t, "4", metrics["Total Parts"])
	assert.Equal(t, "1", metrics["Found"])
	assert.Equal(t, "1", metrics["Multiple"])
	assert.Equal(t, "0", metrics["Need user review"])
	assert.Equal(t, "1", metrics["None"])
	assert.Equal(t, "1", metrics["Error"])
	assert.Equal(t, "6", metrics["Total Matches"])
	assert.Equal(t, "4", metrics["Distinct Input Manufacturers"])
	assert.Equal(t, "3", metrics["Distinct Matched Manufacturers"])
}

func TestWriteWorkbook(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "results.xlsx")
	require.NoError(t, WriteWorkbook(path, sampleResults()))

	wb, err := ingest.LoadXLSX(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Results", "Matches", "Summary"}, wb.SheetNames())

	res, ok := wb.Sheet("Results")
	require.True(t, ok)
	assert.Len(t, res.Rows, 4)
}

func TestDefaultResultsStem(t *testing.T) {
	t.Parallel()

	ts := time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)
	assert.Equal(t, "PAS_Search_Results_20250314_150926", DefaultResultsStem(ts))
}

// Package report renders batch resolution results: indented JSON for
// piping, and a results workbook with per-query, per-match, and summary
// sheets for review in Excel.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/edm-tools/partmatch-cli/internal/ingest"
	"github.com/edm-tools/partmatch-cli/internal/model"
)

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "report: encode json")
}

// WriteJSONFile writes v to the named file, or to stdout when path is
// empty or "-".
func WriteJSONFile(path string, v any) error {
	if path == "" || path == "-" {
		return WriteJSON(os.Stdout, v)
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "report: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	if err := WriteJSON(f, v); err != nil {
		return err
	}
	zap.L().Info("wrote results", zap.String("path", path))
	return nil
}

// ReadJSONFile decodes JSON from the named file into v, or from stdin when
// path is "-".
func ReadJSONFile(path string, v any) error {
	var r io.Reader = os.Stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return eris.Wrapf(err, "report: open %s", path)
		}
		defer f.Close() //nolint:errcheck
		r = f
	}
	return eris.Wrapf(json.NewDecoder(r).Decode(v), "report: decode %s", path)
}

// DefaultResultsStem names a results file by timestamp, matching the
// PAS_Search_Results_YYYYMMDD_HHMMSS convention reviewers expect.
func DefaultResultsStem(t time.Time) string {
	return "PAS_Search_Results_" + t.Format("20060102_150405")
}

// Results sheet: one row per query.
const (
	colMatchStatus  = "Match_Status"
	colMatchCount   = "Match_Count"
	colMatchDetails = "Match_Details"
	colError        = "Error"
)

// detailLimit is how many match strings the details cell spells out before
// collapsing the rest into a count.
const detailLimit = 3

// ResultsSheet lays out one row per query: the input columns in canonical
// form, the match status, and a short human-readable match list.
func ResultsSheet(results []model.ResolvedPart) *ingest.Sheet {
	sheet := &ingest.Sheet{
		Name: "Results",
		Columns: []string{
			ingest.ColSourceSheet, ingest.ColMFG, ingest.ColMFGPN,
			ingest.ColPartNumber, ingest.ColDescription,
			colMatchStatus, colMatchCount, colMatchDetails, colError,
		},
	}
	for _, r := range results {
		sheet.Rows = append(sheet.Rows, []string{
			r.Part.SourceSheet,
			r.Part.Manufacturer,
			r.Part.PartNumber,
			r.Part.InternalPN,
			r.Part.Description,
			string(r.Result.Status),
			strconv.Itoa(len(r.Result.Matches)),
			matchDetails(r.Result.Matches),
			r.Error,
		})
	}
	return sheet
}

// MatchesSheet lays out one row per candidate match in the SearchAndAssign
// import format; queries without matches still get a blank-filled row.
func MatchesSheet(results []model.ResolvedPart) *ingest.Sheet {
	sheet := &ingest.Sheet{
		Name: "Matches",
		Columns: []string{
			"PartNumber", "ManufacturerName", "MatchStatus",
			"MatchValue(PartNumber@ManufacturerName)",
			"Lifecycle_Status", "Lifecycle_Code", "External_ID",
		},
	}
	for _, r := range results {
		if len(r.Result.Matches) == 0 {
			sheet.Rows = append(sheet.Rows, []string{
				r.Part.PartNumber, r.Part.Manufacturer, string(r.Result.Status),
				"", "", "", "",
			})
			continue
		}
		for _, m := range r.Result.Matches {
			sheet.Rows = append(sheet.Rows, []string{
				r.Part.PartNumber,
				r.Part.Manufacturer,
				string(r.Result.Status),
				m.MatchString,
				m.LifecycleStatus,
				m.LifecycleCode,
				m.ExternalID,
			})
		}
	}
	return sheet
}

// SummarySheet tallies outcomes across the batch.
func SummarySheet(results []model.ResolvedPart) *ingest.Sheet {
	byStatus := map[model.MatchStatus]int{}
	inputMFGs := map[string]struct{}{}
	matchedMFGs := map[string]struct{}{}
	totalMatches := 0

	for _, r := range results {
		byStatus[r.Result.Status]++
		if m := strings.TrimSpace(r.Part.Manufacturer); m != "" {
			inputMFGs[m] = struct{}{}
		}
		totalMatches += len(r.Result.Matches)
		for _, m := range r.Result.Matches {
			if mfg := strings.TrimSpace(m.MFG); mfg != "" {
				matchedMFGs[mfg] = struct{}{}
			}
		}
	}

	sheet := &ingest.Sheet{Name: "Summary", Columns: []string{"Metric", "Value"}}
	add := func(metric string, value int) {
		sheet.Rows = append(sheet.Rows, []string{metric, strconv.Itoa(value)})
	}
	add("Total Parts", len(results))
	for _, s := range []model.MatchStatus{
		model.StatusFound, model.StatusMultiple, model.StatusNeedReview,
		model.StatusNone, model.StatusError,
	} {
		add(string(s), byStatus[s])
	}
	add("Total Matches", totalMatches)
	add("Distinct Input Manufacturers", len(inputMFGs))
	add("Distinct Matched Manufacturers", len(matchedMFGs))
	return sheet
}

// WriteWorkbook saves the results, matches, and summary sheets to an XLSX
// file.
func WriteWorkbook(path string, results []model.ResolvedPart) error {
	sheets := []*ingest.Sheet{
		ResultsSheet(results),
		MatchesSheet(results),
		SummarySheet(results),
	}
	if err := ingest.WriteWorkbook(path, sheets); err != nil {
		return err
	}
	zap.L().Info("wrote results workbook",
		zap.String("path", path),
		zap.Int("parts", len(results)))
	return nil
}

func matchDetails(matches []model.MatchCandidate) string {
	if len(matches) == 0 {
		return "No matches found"
	}
	shown := matches
	if len(shown) > detailLimit {
		shown = shown[:detailLimit]
	}
	parts := make([]string, len(shown))
	for i, m := range shown {
		parts[i] = m.MatchString
	}
	details := strings.Join(parts, ", ")
	if extra := len(matches) - detailLimit; extra > 0 {
		details += fmt.Sprintf(" ... (+%d more)", extra)
	}
	return details
}

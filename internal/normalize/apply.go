package normalize

import (
	"strings"

	"github.com/edm-tools/partmatch-cli/internal/ingest"
	"github.com/edm-tools/partmatch-cli/internal/model"
)

// Unresolved returns the original spellings whose suggestion is still marked
// manual, i.e. the similarity pass found nothing it could apply on its own.
func Unresolved(suggestions []model.NormalizationSuggestion) []string {
	var out []string
	for _, s := range suggestions {
		if s.Method == model.NormalizeManual {
			out = append(out, s.Original)
		}
	}
	return out
}

// Merge overlays a second suggestion pass onto the first, matching entries by
// original spelling. Exact matches are never displaced; overlay entries for
// originals the base never saw are appended in order.
func Merge(base, overlay []model.NormalizationSuggestion) []model.NormalizationSuggestion {
	out := make([]model.NormalizationSuggestion, len(base))
	copy(out, base)

	index := make(map[string]int, len(out))
	for i, s := range out {
		index[s.Original] = i
	}

	for _, s := range overlay {
		i, ok := index[s.Original]
		if !ok {
			index[s.Original] = len(out)
			out = append(out, s)
			continue
		}
		if out[i].Method == model.NormalizeExact {
			continue
		}
		out[i] = s
	}
	return out
}

// SuggestionMap collects the original-to-canonical pairs safe to apply
// without review: fuzzy and AI suggestions with a real target. Exact matches
// are identity and manual entries still need a human.
func SuggestionMap(suggestions []model.NormalizationSuggestion) map[string]string {
	mapping := make(map[string]string)
	for _, s := range suggestions {
		if s.Method != model.NormalizeFuzzy && s.Method != model.NormalizeAI {
			continue
		}
		if s.Canonical == "" || s.Canonical == s.Original {
			continue
		}
		mapping[s.Original] = s.Canonical
	}
	return mapping
}

// Apply rewrites the manufacturer column of sheet using mapping and returns
// the number of cells changed. Cells are matched on their trimmed value.
// Sheets without an MFG column are left untouched.
func Apply(sheet *ingest.Sheet, mapping map[string]string) int {
	idx := sheet.ColumnIndex(ingest.ColMFG)
	if idx < 0 {
		return 0
	}

	changed := 0
	for _, row := range sheet.Rows {
		canonical, ok := mapping[strings.TrimSpace(row[idx])]
		if !ok || row[idx] == canonical {
			continue
		}
		row[idx] = canonical
		changed++
	}
	return changed
}

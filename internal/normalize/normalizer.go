// Package normalize reconciles user-supplied manufacturer spellings against
// the canonical names the catalog returned for a completed batch.
package normalize

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/agext/levenshtein"
	"go.uber.org/zap"

	"github.com/edm-tools/partmatch-cli/internal/model"
)

const (
	// FuzzyThreshold is the similarity score at or above which a suggestion
	// is applied automatically.
	FuzzyThreshold = 70

	// ReviewThreshold is the similarity score at or above which the best
	// candidate is still surfaced, flagged for manual review.
	ReviewThreshold = 50
)

// CanonicalSet returns the distinct manufacturer names observed across every
// match candidate in the batch, sorted. These spellings are the ones the
// catalog itself vouches for.
func CanonicalSet(results []model.ResolvedPart) []string {
	seen := make(map[string]struct{})
	for _, r := range results {
		for _, m := range r.Result.Matches {
			if name := strings.TrimSpace(m.MFG); name != "" {
				seen[name] = struct{}{}
			}
		}
	}
	return sortedKeys(seen)
}

// InputManufacturers returns the distinct non-empty manufacturer names from
// the source parts, sorted.
func InputManufacturers(results []model.ResolvedPart) []string {
	seen := make(map[string]struct{})
	for _, r := range results {
		if name := strings.TrimSpace(r.Part.Manufacturer); name != "" {
			seen[name] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

// Suggest proposes a canonical spelling for every input manufacturer. Inputs
// already present in the canonical set map to themselves; the rest get their
// best similarity candidate, or a blank suggestion when nothing comes close.
func Suggest(inputs, canonical []string) []model.NormalizationSuggestion {
	canonicalSet := make(map[string]struct{}, len(canonical))
	for _, c := range canonical {
		canonicalSet[c] = struct{}{}
	}

	suggestions := make([]model.NormalizationSuggestion, 0, len(inputs))
	for _, input := range inputs {
		if _, ok := canonicalSet[input]; ok {
			suggestions = append(suggestions, model.NormalizationSuggestion{
				Original:  input,
				Canonical: input,
				Method:    model.NormalizeExact,
				Score:     100,
				Reasoning: "Exact match - already in PAS canonical list",
			})
			continue
		}

		best, score := bestMatch(input, canonical)
		switch {
		case score >= FuzzyThreshold:
			zap.L().Debug("normalize: fuzzy suggestion",
				zap.String("original", input),
				zap.String("canonical", best),
				zap.Int("score", score),
			)
			suggestions = append(suggestions, model.NormalizationSuggestion{
				Original:  input,
				Canonical: best,
				Method:    model.NormalizeFuzzy,
				Score:     score,
				Reasoning: fmt.Sprintf("Fuzzy match against PAS master list: %d%% similarity", score),
			})
		case score >= ReviewThreshold:
			suggestions = append(suggestions, model.NormalizationSuggestion{
				Original:  input,
				Canonical: best,
				Method:    model.NormalizeManual,
				Score:     score,
				Reasoning: fmt.Sprintf("Low confidence match (%d%%) - please review", score),
			})
		default:
			suggestions = append(suggestions, model.NormalizationSuggestion{
				Original:  input,
				Canonical: "",
				Method:    model.NormalizeManual,
				Score:     0,
				Reasoning: "No automatic match found - requires manual review",
			})
		}
	}
	return suggestions
}

// bestMatch returns the canonical name most similar to input and its 0-100
// score. Comparison is case-insensitive; the returned name keeps the
// catalog's casing.
func bestMatch(input string, canonical []string) (string, int) {
	params := levenshtein.NewParams()
	lowered := strings.ToLower(input)

	best := ""
	bestScore := 0
	for _, c := range canonical {
		score := int(math.Round(levenshtein.Similarity(lowered, strings.ToLower(c), params) * 100))
		if score > bestScore {
			best, bestScore = c, score
		}
	}
	return best, bestScore
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

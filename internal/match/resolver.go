package match

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/edm-tools/partmatch-cli/internal/model"
	"github.com/edm-tools/partmatch-cli/pkg/pas"
)

// DefaultMaxMatches caps result candidate lists when the caller does not
// override the limit.
const DefaultMaxMatches = 10

var nonAlnum = regexp.MustCompile(`[^A-Za-z0-9]`)

// alnum strips every character outside [A-Za-z0-9].
func alnum(s string) string {
	return nonAlnum.ReplaceAllString(s, "")
}

// zeroSuppressed additionally strips leading zeros from the alnum form.
func zeroSuppressed(s string) string {
	return strings.TrimLeft(alnum(s), "0")
}

// queryForms holds the precomputed comparison forms of one query.
type queryForms struct {
	pn     string
	pnAl   string
	pnZero string
	mfg    string
}

func newQueryForms(q model.Query) queryForms {
	al := alnum(q.PartNumber)
	return queryForms{
		pn:     q.PartNumber,
		pnAl:   al,
		pnZero: strings.TrimLeft(al, "0"),
		mfg:    q.Manufacturer,
	}
}

// manufacturerMatches reports exact equality or one-directional containment
// of the input manufacturer in the candidate manufacturer.
func manufacturerMatches(input, candidate string) bool {
	return candidate == input || strings.Contains(candidate, input)
}

// tiePolicy decides the outcome when a tier keeps more than one candidate.
type tiePolicy int

const (
	// escalate reports every kept candidate under a Multiple status.
	escalate tiePolicy = iota
	// firstOnly silently resolves to the first kept candidate in list order.
	firstOnly
)

// tier is one stage of the cascade: a predicate over candidate part number
// and manufacturer, plus the tie-break applied when it keeps several.
type tier struct {
	name string
	keep func(f queryForms, pn, mfg string) bool
	tie  tiePolicy
}

// qualifiedTiers run when the query carries a usable manufacturer. The
// first two escalate ambiguity; the alphanumeric tiers resolve it silently
// by taking the first candidate. That asymmetry is observed behavior of the
// legacy matcher and is kept as-is.
var qualifiedTiers = []tier{
	{
		name: "exact",
		keep: func(f queryForms, pn, mfg string) bool {
			return pn == f.pn && mfg == f.mfg
		},
		tie: escalate,
	},
	{
		name: "partial-manufacturer",
		keep: func(f queryForms, pn, mfg string) bool {
			return pn == f.pn && strings.Contains(mfg, f.mfg)
		},
		tie: escalate,
	},
	{
		name: "alphanumeric",
		keep: func(f queryForms, pn, mfg string) bool {
			return alnum(pn) == f.pnAl && manufacturerMatches(f.mfg, mfg)
		},
		tie: firstOnly,
	},
	{
		name: "zero-suppressed",
		keep: func(f queryForms, pn, mfg string) bool {
			return zeroSuppressed(pn) == f.pnZero && manufacturerMatches(f.mfg, mfg)
		},
		tie: firstOnly,
	},
}

// partNumberTiers run when the manufacturer is empty or "Unknown", or when
// every qualified tier came up empty. Manufacturer is ignored entirely.
var partNumberTiers = []tier{
	{
		name: "exact",
		keep: func(f queryForms, pn, _ string) bool {
			return pn == f.pn
		},
		tie: escalate,
	},
	{
		name: "alphanumeric",
		keep: func(f queryForms, pn, _ string) bool {
			return alnum(pn) == f.pnAl
		},
		tie: escalate,
	},
	{
		name: "zero-suppressed",
		keep: func(f queryForms, pn, _ string) bool {
			return zeroSuppressed(pn) == f.pnZero
		},
		tie: firstOnly,
	},
}

// Resolve classifies rawCandidates against the query. It is a pure function
// of its inputs: identical query and candidate list always produce an
// identical result, and neither input is mutated.
func Resolve(q model.Query, rawCandidates []pas.Record, maxMatches int) model.MatchResult {
	if maxMatches <= 0 {
		maxMatches = DefaultMaxMatches
	}

	if q.HasManufacturer() {
		if res, ok := resolveQualified(q, rawCandidates, maxMatches); ok {
			return res
		}
	}
	return resolvePartNumberOnly(q, rawCandidates, maxMatches)
}

// resolveQualified walks the manufacturer-qualified tiers in order. It
// reports ok=false when every tier keeps zero candidates, which hands the
// query to the part-number-only phase.
func resolveQualified(q model.Query, raw []pas.Record, maxMatches int) (model.MatchResult, bool) {
	forms := newQueryForms(q)

	for _, tr := range qualifiedTiers {
		kept := filterRecords(raw, forms, tr.keep)
		switch {
		case len(kept) == 0:
			continue
		case len(kept) == 1:
			logTier(q, tr.name, model.StatusFound, 1)
			return result(model.StatusFound, kept, maxMatches), true
		case tr.tie == firstOnly:
			logTier(q, tr.name, model.StatusFound, len(kept))
			return result(model.StatusFound, kept[:1], maxMatches), true
		default:
			logTier(q, tr.name, model.StatusMultiple, len(kept))
			return result(model.StatusMultiple, kept, maxMatches), true
		}
	}
	return model.MatchResult{}, false
}

// resolvePartNumberOnly ignores the manufacturer and narrows by part number
// alone. Ambiguity here surfaces the full original candidate list so a
// reviewer sees everything the catalog offered.
func resolvePartNumberOnly(q model.Query, raw []pas.Record, maxMatches int) model.MatchResult {
	if len(raw) == 0 {
		return model.MatchResult{Status: model.StatusNone, Matches: []model.MatchCandidate{}}
	}

	// A lone candidate is accepted for review without any part-number
	// agreement check.
	if len(raw) == 1 {
		return result(model.StatusNeedReview, raw, maxMatches)
	}

	forms := newQueryForms(q)

	for _, tr := range partNumberTiers {
		kept := filterRecords(raw, forms, tr.keep)
		switch {
		case len(kept) == 1:
			logTier(q, tr.name, model.StatusNeedReview, 1)
			return result(model.StatusNeedReview, kept, maxMatches)
		case len(kept) > 1 && tr.tie == firstOnly:
			logTier(q, tr.name, model.StatusFound, len(kept))
			return result(model.StatusFound, kept[:1], maxMatches)
		case len(kept) > 1:
			logTier(q, tr.name, model.StatusMultiple, len(kept))
			return result(model.StatusMultiple, raw, maxMatches)
		}
	}

	// No tier narrowed the list at all.
	return result(model.StatusMultiple, raw, maxMatches)
}

func filterRecords(raw []pas.Record, forms queryForms, keep func(queryForms, string, string) bool) []pas.Record {
	var kept []pas.Record
	for _, rec := range raw {
		part := rec.SearchProviderPart
		if keep(forms, part.ManufacturerPartNumber, part.ManufacturerName) {
			kept = append(kept, rec)
		}
	}
	return kept
}

// result builds a MatchResult from the selected records, truncating both
// views to maxMatches while preserving original candidate order.
func result(status model.MatchStatus, recs []pas.Record, maxMatches int) model.MatchResult {
	if len(recs) > maxMatches {
		recs = recs[:maxMatches]
	}
	matches := make([]model.MatchCandidate, len(recs))
	for i, rec := range recs {
		matches[i] = Candidate(rec)
	}
	return model.MatchResult{
		Status:        status,
		Matches:       matches,
		RawCandidates: recs,
	}
}

func logTier(q model.Query, tierName string, status model.MatchStatus, kept int) {
	zap.L().Debug("match: tier resolved",
		zap.String("part_number", q.PartNumber),
		zap.String("manufacturer", q.Manufacturer),
		zap.String("tier", tierName),
		zap.String("status", string(status)),
		zap.Int("kept", kept),
	)
}

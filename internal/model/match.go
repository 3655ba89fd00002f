package model

import (
	"github.com/edm-tools/partmatch-cli/pkg/pas"
)

// MatchStatus classifies the outcome of one catalog lookup.
type MatchStatus string

const (
	StatusFound      MatchStatus = "Found"
	StatusMultiple   MatchStatus = "Multiple"
	StatusNeedReview MatchStatus = "Need user review"
	StatusNone       MatchStatus = "None"
	StatusError      MatchStatus = "Error"
)

// MatchCandidate is the normalized view of one catalog record. Immutable
// after construction; built once by the extraction step and shared freely
// across workers.
type MatchCandidate struct {
	MPN             string `json:"mpn"`
	MFG             string `json:"mfg"`
	LifecycleStatus string `json:"lifecycle_status,omitempty"`
	LifecycleCode   string `json:"lifecycle_code,omitempty"`
	ExternalID      string `json:"external_id,omitempty"`
	FindchipsURL    string `json:"findchips_url,omitempty"`
	MatchString     string `json:"match_string"`
}

// MatchResult is the classified outcome for a single query. Status is
// terminal and assigned exactly once; Matches and RawCandidates preserve
// the service's candidate order and are capped at the configured maximum.
type MatchResult struct {
	Status        MatchStatus      `json:"status"`
	Matches       []MatchCandidate `json:"matches"`
	RawCandidates []pas.Record     `json:"raw_candidates,omitempty"`
}

// ResolvedPart pairs an input part with its match outcome plus any error
// detail for Error-status rows.
type ResolvedPart struct {
	Part   Part        `json:"part"`
	Result MatchResult `json:"result"`
	Error  string      `json:"error,omitempty"`
}

// NormalizationMethod describes how a suggestion was derived.
type NormalizationMethod string

const (
	NormalizeExact  NormalizationMethod = "exact"
	NormalizeFuzzy  NormalizationMethod = "fuzzy"
	NormalizeManual NormalizationMethod = "manual"
	NormalizeAI     NormalizationMethod = "ai"
)

// NormalizationSuggestion proposes a canonical spelling for an input
// manufacturer name. Canonical is empty when no automatic target was found
// and the spelling needs manual entry.
type NormalizationSuggestion struct {
	Original  string              `json:"original"`
	Canonical string              `json:"canonical"`
	Method    NormalizationMethod `json:"method"`
	Score     int                 `json:"score"`
	Reasoning string              `json:"reasoning,omitempty"`
}

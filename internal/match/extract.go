// Package match classifies catalog candidates against an input query using
// a tiered part-number and manufacturer cascade.
package match

import (
	"github.com/edm-tools/partmatch-cli/internal/model"
	"github.com/edm-tools/partmatch-cli/pkg/pas"
)

// Candidate builds the normalized result view of one catalog record.
// Missing or malformed record fields become empty strings, never errors.
func Candidate(rec pas.Record) model.MatchCandidate {
	part := rec.SearchProviderPart
	c := model.MatchCandidate{
		MPN:             part.ManufacturerPartNumber,
		MFG:             part.ManufacturerName,
		LifecycleStatus: part.StringProperty(pas.PropLifecycleStatus),
		LifecycleCode:   part.StringProperty(pas.PropLifecycleCode),
		ExternalID:      part.PartID,
		FindchipsURL:    part.StringProperty(pas.PropFindchipsURL),
	}
	c.MatchString = c.MPN + "@" + c.MFG
	return c
}

package model

import "strings"

// Part is one row of source data: a manufacturer/part-number pair plus the
// optional columns carried along for export.
type Part struct {
	Manufacturer string `json:"manufacturer"`
	PartNumber   string `json:"part_number"`
	InternalPN   string `json:"internal_pn,omitempty"`
	Description  string `json:"description,omitempty"`
	SourceSheet  string `json:"source_sheet,omitempty"`
}

// Query returns the catalog lookup for this part.
func (p Part) Query() Query {
	return Query{Manufacturer: p.Manufacturer, PartNumber: p.PartNumber}
}

// Query is a single catalog lookup request. Manufacturer may be empty or the
// literal "Unknown"; both mean "search by part number only".
type Query struct {
	Manufacturer string `json:"manufacturer"`
	PartNumber   string `json:"part_number"`
}

// HasManufacturer reports whether the query carries a usable manufacturer
// name that should qualify the search and the matching cascade.
func (q Query) HasManufacturer() bool {
	return q.Manufacturer != "" && q.Manufacturer != "Unknown"
}

// BlankPartNumber reports whether the part number is empty after trimming.
// Blank queries resolve to None without a network call.
func (q Query) BlankPartNumber() bool {
	return strings.TrimSpace(q.PartNumber) == ""
}

package ingest

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Profile is a reusable mapping file: which sheets to take from a source,
// how their columns map to the canonical names, and which quality gates to
// apply. Filter flags are pointers so an omitted flag falls back to the
// default rather than to false.
type Profile struct {
	Mappings      map[string]Mapping `yaml:"mappings"`
	IncludeSheets []string           `yaml:"include_sheets"`
	Filters       ProfileFilters     `yaml:"filters"`
	FillTBD       bool               `yaml:"fill_tbd"`
}

// ProfileFilters mirrors Filters with optional fields.
type ProfileFilters struct {
	RequireMFG         *bool `yaml:"require_mfg"`
	RequireMFGPN       *bool `yaml:"require_mfg_pn"`
	RequirePartNumber  *bool `yaml:"require_part_number"`
	RequireDescription *bool `yaml:"require_description"`
}

// LoadProfile reads a mapping profile from a YAML file.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: read profile %s", path)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, eris.Wrapf(err, "ingest: parse profile %s", path)
	}
	if len(p.Mappings) == 0 {
		return nil, eris.Errorf("ingest: profile %s maps no sheets", path)
	}
	return &p, nil
}

// Options resolves the profile into CombineOptions, applying the default
// filters for flags the file left unset.
func (p *Profile) Options() CombineOptions {
	f := DefaultFilters()
	if p.Filters.RequireMFG != nil {
		f.RequireMFG = *p.Filters.RequireMFG
	}
	if p.Filters.RequireMFGPN != nil {
		f.RequireMFGPN = *p.Filters.RequireMFGPN
	}
	if p.Filters.RequirePartNumber != nil {
		f.RequirePartNumber = *p.Filters.RequirePartNumber
	}
	if p.Filters.RequireDescription != nil {
		f.RequireDescription = *p.Filters.RequireDescription
	}
	return CombineOptions{
		Mappings:      p.Mappings,
		IncludeSheets: p.IncludeSheets,
		Filters:       f,
		FillTBD:       p.FillTBD,
	}
}

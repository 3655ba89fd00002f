// Package edmxml writes manufacturer (class 090) and manufacturer part
// number (class 060) library files in the EDM Library Creator import
// format: an XML declaration, three header comments (creator version, DDP
// project, timestamp), then a <data> element of <object> records.
package edmxml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	DefaultProject = "VarTrainingLab"
	DefaultCatalog = "VV"

	creatorComment = "Created By: EDM Library Creator v1.7.000.0130"
	timestampShape = "01/02/2006 03:04:05 PM"

	classMFG   = "090"
	classMFGPN = "060"
)

// Options name the DDP project and catalog the records import into.
type Options struct {
	Project string
	Catalog string

	// Now supplies the header timestamp; nil means time.Now.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Project == "" {
		o.Project = DefaultProject
	}
	if o.Catalog == "" {
		o.Catalog = DefaultCatalog
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Entry is one manufacturer part bound for the MFGPN library.
type Entry struct {
	Manufacturer string
	PartNumber   string
	Description  string
}

type document struct {
	XMLName xml.Name `xml:"data"`
	Objects []object `xml:"object"`
}

type object struct {
	ObjectID string  `xml:"objectid,attr"`
	Catalog  string  `xml:"catalog,attr,omitempty"`
	Class    string  `xml:"class,attr"`
	Fields   []field `xml:"field"`
}

type field struct {
	ID    string `xml:"id,attr"`
	Value string `xml:",chardata"`
}

// WriteMFG writes the manufacturer library: one class-090 object per
// distinct non-blank name, sorted. Returns the number of objects written.
func WriteMFG(w io.Writer, manufacturers []string, opts Options) (int, error) {
	opts = opts.withDefaults()

	seen := make(map[string]struct{}, len(manufacturers))
	names := make([]string, 0, len(manufacturers))
	for _, m := range manufacturers {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		names = append(names, m)
	}
	sort.Strings(names)

	doc := document{Objects: make([]object, 0, len(names))}
	for _, m := range names {
		doc.Objects = append(doc.Objects, object{
			ObjectID: m,
			Catalog:  opts.Catalog,
			Class:    classMFG,
			Fields: []field{
				{ID: "090obj_skn", Value: opts.Catalog},
				{ID: "090obj_id", Value: m},
				{ID: "090her_name", Value: m},
			},
		})
	}

	if err := render(w, doc, opts); err != nil {
		return 0, err
	}
	return len(names), nil
}

// WriteMFGPN writes the part number library: one class-060 object per
// distinct manufacturer/part pair in first-appearance order, keyed
// "MFG:PN". Entries missing either value are skipped; the first
// description seen for a pair wins. Returns the number of objects written.
func WriteMFGPN(w io.Writer, entries []Entry, opts Options) (int, error) {
	opts = opts.withDefaults()

	type key struct{ mfg, pn string }
	seen := make(map[key]struct{}, len(entries))

	doc := document{}
	for _, e := range entries {
		mfg := strings.TrimSpace(e.Manufacturer)
		pn := strings.TrimSpace(e.PartNumber)
		if mfg == "" || pn == "" {
			continue
		}
		k := key{mfg, pn}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		doc.Objects = append(doc.Objects, object{
			ObjectID: mfg + ":" + pn,
			Class:    classMFGPN,
			Fields: []field{
				{ID: "060partnumber", Value: pn},
				{ID: "060mfgref", Value: mfg},
				{ID: "060komp_name", Value: strings.TrimSpace(e.Description)},
			},
		})
	}

	if err := render(w, doc, opts); err != nil {
		return 0, err
	}
	return len(doc.Objects), nil
}

// WriteMFGFile writes the manufacturer library to a file.
func WriteMFGFile(path string, manufacturers []string, opts Options) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrapf(err, "edmxml: create %s", path)
	}

	n, err := WriteMFG(f, manufacturers, opts)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = eris.Wrapf(cerr, "edmxml: close %s", path)
	}
	if err == nil {
		zap.L().Info("wrote manufacturer library",
			zap.String("path", path),
			zap.Int("manufacturers", n))
	}
	return n, err
}

// WriteMFGPNFile writes the part number library to a file.
func WriteMFGPNFile(path string, entries []Entry, opts Options) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrapf(err, "edmxml: create %s", path)
	}

	n, err := WriteMFGPN(f, entries, opts)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = eris.Wrapf(cerr, "edmxml: close %s", path)
	}
	if err == nil {
		zap.L().Info("wrote part number library",
			zap.String("path", path),
			zap.Int("parts", n))
	}
	return n, err
}

func render(w io.Writer, doc document, opts Options) error {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="utf-8" standalone="yes"?>` + "\n")
	fmt.Fprintf(&buf, "<!--%s-->\n", creatorComment)
	fmt.Fprintf(&buf, "<!--DDP Project: %s-->\n", opts.Project)
	fmt.Fprintf(&buf, "<!--Date: %s-->\n", opts.Now().Format(timestampShape))

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return eris.Wrap(err, "edmxml: marshal")
	}
	buf.Write(body)
	buf.WriteByte('\n')

	if _, err := w.Write(buf.Bytes()); err != nil {
		return eris.Wrap(err, "edmxml: write")
	}
	return nil
}

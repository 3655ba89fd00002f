package main

import (
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/edm-tools/partmatch-cli/internal/edmxml"
	"github.com/edm-tools/partmatch-cli/internal/ingest"
)

var (
	exportSource    string
	exportSheet     string
	exportOutputDir string
	exportProject   string
	exportCatalog   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write EDM Library Creator XML from a combined workbook",
	Long: `Reads a combined parts sheet and writes two EDM library XML files: the
distinct manufacturers (class 090) and the manufacturer part numbers with
descriptions (class 060), named {stem}_MFG.xml and {stem}_MFGPN.xml.

Examples:
  partmatch-cli export --source combined.xlsx
  partmatch-cli export --source combined.xlsx --project TrainingLab --output-dir exports`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("export"); err != nil {
			return err
		}

		wb, cleanup, err := loadWorkbook(ctx, exportSource, csvOptions("", ""))
		if err != nil {
			return eris.Wrap(err, "export: load source")
		}
		defer cleanup()

		sheet, ok := wb.Sheet(exportSheet)
		if !ok {
			return eris.Errorf("export: sheet %q not found (have %v)", exportSheet, wb.SheetNames())
		}

		entries, err := sheetEntries(sheet)
		if err != nil {
			return err
		}

		opts := edmxml.Options{Project: exportProject, Catalog: exportCatalog}
		if opts.Project == "" {
			opts.Project = cfg.Export.Project
		}
		if opts.Catalog == "" {
			opts.Catalog = cfg.Export.Catalog
		}

		stem := outputStem(exportSource)
		manufacturers := make([]string, 0, len(entries))
		for _, e := range entries {
			manufacturers = append(manufacturers, e.Manufacturer)
		}

		nMFG, err := edmxml.WriteMFGFile(filepath.Join(exportOutputDir, stem+"_MFG.xml"), manufacturers, opts)
		if err != nil {
			return err
		}
		nPN, err := edmxml.WriteMFGPNFile(filepath.Join(exportOutputDir, stem+"_MFGPN.xml"), entries, opts)
		if err != nil {
			return err
		}

		zap.L().Info("export: complete",
			zap.String("sheet", sheet.Name),
			zap.Int("manufacturers", nMFG),
			zap.Int("part_numbers", nPN),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportSource, "source", "", "combined workbook: XLSX/CSV/SQLite path or http(s)/ftp URL (required)")
	exportCmd.Flags().StringVar(&exportSheet, "sheet", ingest.CombinedSheetName, "sheet holding canonical columns")
	exportCmd.Flags().StringVar(&exportOutputDir, "output-dir", "", "directory for the XML files (default: current)")
	exportCmd.Flags().StringVar(&exportProject, "project", "", "DDP project name for the XML header (default: config)")
	exportCmd.Flags().StringVar(&exportCatalog, "catalog", "", "catalog attribute for manufacturer objects (default: config)")
	_ = exportCmd.MarkFlagRequired("source")
	rootCmd.AddCommand(exportCmd)
}

// sheetEntries extracts manufacturer and part number pairs from a combined
// sheet. MFG and MFG_PN must both be present; Description is optional.
func sheetEntries(s *ingest.Sheet) ([]edmxml.Entry, error) {
	mfg := s.ColumnIndex(ingest.ColMFG)
	pn := s.ColumnIndex(ingest.ColMFGPN)
	if mfg < 0 || pn < 0 {
		return nil, eris.Errorf("export: sheet %q is missing %s/%s columns; run combine first",
			s.Name, ingest.ColMFG, ingest.ColMFGPN)
	}
	desc := s.ColumnIndex(ingest.ColDescription)

	entries := make([]edmxml.Entry, 0, len(s.Rows))
	for _, row := range s.Rows {
		e := edmxml.Entry{Manufacturer: row[mfg], PartNumber: row[pn]}
		if desc >= 0 {
			e.Description = row[desc]
		}
		entries = append(entries, e)
	}
	return entries, nil
}

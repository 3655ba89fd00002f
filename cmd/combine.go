package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/edm-tools/partmatch-cli/internal/ingest"
)

var (
	combineSource    string
	combineProfile   string
	combineOutput    string
	combineEncoding  string
	combineDelimiter string
)

var combineCmd = &cobra.Command{
	Use:   "combine",
	Short: "Merge source sheets into one canonical parts sheet",
	Long: `Loads a multi-sheet source, renames columns per the profile's mappings,
applies row filters, and appends a Combined sheet holding every surviving
row tagged with its source sheet.

The output workbook carries the original sheets plus the Combined sheet,
ready for batch resolution and EDM export.

Examples:
  partmatch-cli combine --source dump.xlsx --profile profile.yaml
  partmatch-cli combine --source parts.csv --profile profile.yaml --output combined.xlsx`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("combine"); err != nil {
			return err
		}

		profile, err := ingest.LoadProfile(combineProfile)
		if err != nil {
			return err
		}

		wb, cleanup, err := loadWorkbook(ctx, combineSource, csvOptions(combineEncoding, combineDelimiter))
		if err != nil {
			return eris.Wrap(err, "combine: load source")
		}
		defer cleanup()

		combined, err := ingest.Combine(wb, profile.Options())
		if err != nil {
			return err
		}

		out := combineOutput
		if out == "" {
			out = outputStem(combineSource) + "_Combined.xlsx"
		}
		sheets := append(append([]*ingest.Sheet{}, wb.Sheets...), combined)
		if err := ingest.WriteWorkbook(out, sheets); err != nil {
			return err
		}

		zap.L().Info("combine: workbook written",
			zap.String("path", out),
			zap.Int("sheets", len(sheets)),
			zap.Int("rows", len(combined.Rows)),
		)
		return nil
	},
}

func init() {
	combineCmd.Flags().StringVar(&combineSource, "source", "", "parts source: XLSX/CSV/SQLite path or http(s)/ftp URL (required)")
	combineCmd.Flags().StringVar(&combineProfile, "profile", "", "YAML mapping profile (required)")
	combineCmd.Flags().StringVar(&combineOutput, "output", "", "output workbook path (default: {stem}_Combined.xlsx)")
	combineCmd.Flags().StringVar(&combineEncoding, "encoding", "", "CSV charset label, e.g. latin1 (default: detect)")
	combineCmd.Flags().StringVar(&combineDelimiter, "delimiter", "", "CSV field separator (default: comma)")
	_ = combineCmd.MarkFlagRequired("source")
	_ = combineCmd.MarkFlagRequired("profile")
	rootCmd.AddCommand(combineCmd)
}

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/edm-tools/partmatch-cli/internal/batch"
	"github.com/edm-tools/partmatch-cli/internal/ingest"
	"github.com/edm-tools/partmatch-cli/internal/model"
	"github.com/edm-tools/partmatch-cli/internal/report"
	"github.com/edm-tools/partmatch-cli/internal/resilience"
)

var (
	batchSource      string
	batchProfile     string
	batchSheet       string
	batchLimit       int
	batchConcurrency int
	batchMaxMatches  int
	batchOutput      string
	batchWorkbook    string
	batchEncoding    string
	batchDelimiter   string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Resolve every part in a source against the PAS catalog",
	Long: `Loads parts from a local or remote source (XLSX, CSV, SQLite), resolves
them concurrently, and writes the results as JSON and optionally as an XLSX
report with Results, Matches, and Summary sheets.

With --profile, sheets are first combined into canonical columns using the
profile's column mappings. Without one, the sheet named by --sheet is used
as-is and must already carry canonical columns (MFG, MFG_PN, ...); the
default is the Combined sheet when present, else the first sheet.

Examples:
  # Combined workbook, JSON results to stdout
  partmatch-cli batch --source combined.xlsx

  # Raw multi-sheet workbook with a mapping profile, full XLSX report
  partmatch-cli batch --source dump.xlsx --profile profile.yaml --workbook results.xlsx

  # Remote CSV, first 100 rows only
  partmatch-cli batch --source https://files.example.com/parts.csv --limit 100`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("batch"); err != nil {
			return err
		}

		wb, cleanup, err := loadWorkbook(ctx, batchSource, csvOptions(batchEncoding, batchDelimiter))
		if err != nil {
			return eris.Wrap(err, "batch: load source")
		}
		defer cleanup()

		sheet, err := selectSheet(wb, batchProfile, batchSheet)
		if err != nil {
			return err
		}

		parts := sheet.Parts()
		if len(parts) == 0 {
			return eris.Errorf("batch: sheet %q has no parts", sheet.Name)
		}
		if batchLimit > 0 && batchLimit < len(parts) {
			parts = parts[:batchLimit]
		}
		zap.L().Info("batch: parts loaded",
			zap.String("source", batchSource),
			zap.String("sheet", sheet.Name),
			zap.Int("parts", len(parts)),
		)

		concurrency := batchConcurrency
		if concurrency <= 0 {
			concurrency = cfg.Batch.Concurrency
		}
		maxMatches := batchMaxMatches
		if maxMatches <= 0 {
			maxMatches = cfg.Batch.MaxMatches
		}
		eng := batch.NewEngine(newCatalogClient(),
			batch.WithConcurrency(concurrency),
			batch.WithMaxMatches(maxMatches),
			batch.WithRetry(resilience.FromRetryConfig(cfg.Batch.RetryAttempts, cfg.Batch.RetryDelay())),
		)

		// Stream per-part progress while the batch runs.
		progress := make(chan batch.Update)
		drained := make(chan struct{})
		go func() {
			defer close(drained)
			for u := range progress {
				logPartProgress(u)
			}
		}()

		results, runErr := eng.ResolveBatch(ctx, parts, progress)
		<-drained

		logBatchSummary(results)

		// Partial results are written even when the run was cancelled.
		if path := workbookPath(batchWorkbook); path != "" {
			if err := report.WriteWorkbook(path, results); err != nil {
				return err
			}
		}
		if err := report.WriteJSONFile(batchOutput, results); err != nil {
			return err
		}

		if runErr != nil {
			return eris.Wrap(runErr, "batch: interrupted")
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchSource, "source", "", "parts source: XLSX/CSV/SQLite path or http(s)/ftp URL (required)")
	batchCmd.Flags().StringVar(&batchProfile, "profile", "", "YAML mapping profile; combines sheets before resolving")
	batchCmd.Flags().StringVar(&batchSheet, "sheet", "", "sheet to resolve (default: Combined, else first)")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max parts to resolve (0 = all)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "parallel lookups (0 = config default)")
	batchCmd.Flags().IntVar(&batchMaxMatches, "max-matches", 0, "max match candidates per part (0 = config default)")
	batchCmd.Flags().StringVar(&batchOutput, "output", "", "write results JSON to file (default: stdout)")
	batchCmd.Flags().StringVar(&batchWorkbook, "workbook", "", "write XLSX report to path; a directory gets a timestamped name")
	batchCmd.Flags().StringVar(&batchEncoding, "encoding", "", "CSV charset label, e.g. latin1 (default: detect)")
	batchCmd.Flags().StringVar(&batchDelimiter, "delimiter", "", "CSV field separator (default: comma)")
	_ = batchCmd.MarkFlagRequired("source")
	rootCmd.AddCommand(batchCmd)
}

// selectSheet picks the sheet to resolve. With a profile the workbook is
// combined into canonical columns first; otherwise the named sheet is used
// as-is, defaulting to the Combined sheet when present, else the first.
func selectSheet(wb *ingest.Workbook, profilePath, name string) (*ingest.Sheet, error) {
	if profilePath != "" {
		p, err := ingest.LoadProfile(profilePath)
		if err != nil {
			return nil, err
		}
		return ingest.Combine(wb, p.Options())
	}

	if name == "" {
		if sheet, ok := wb.Sheet(ingest.CombinedSheetName); ok {
			return sheet, nil
		}
		if len(wb.Sheets) == 0 {
			return nil, eris.New("batch: source has no sheets")
		}
		return wb.Sheets[0], nil
	}

	sheet, ok := wb.Sheet(name)
	if !ok {
		return nil, eris.Errorf("batch: sheet %q not found (have %v)", name, wb.SheetNames())
	}
	return sheet, nil
}

// workbookPath resolves the --workbook flag; an existing directory gets the
// timestamped default report name inside it.
func workbookPath(flag string) string {
	if flag == "" {
		return ""
	}
	if st, err := os.Stat(flag); err == nil && st.IsDir() {
		return filepath.Join(flag, report.DefaultResultsStem(time.Now())+".xlsx")
	}
	return flag
}

// logPartProgress reports one completed part.
func logPartProgress(u batch.Update) {
	zap.L().Info(fmt.Sprintf("part %d/%d", u.Completed, u.Total),
		zap.String("part_number", u.Resolved.Part.PartNumber),
		zap.String("manufacturer", u.Resolved.Part.Manufacturer),
		zap.String("status", string(u.Resolved.Result.Status)),
		zap.Int("matches", len(u.Resolved.Result.Matches)),
	)
}

// logBatchSummary logs the status breakdown for a finished batch.
func logBatchSummary(results []model.ResolvedPart) {
	counts := make(map[model.MatchStatus]int)
	matches := 0
	for _, r := range results {
		counts[r.Result.Status]++
		matches += len(r.Result.Matches)
	}
	zap.L().Info("batch: results",
		zap.Int("total", len(results)),
		zap.Int("found", counts[model.StatusFound]),
		zap.Int("multiple", counts[model.StatusMultiple]),
		zap.Int("review", counts[model.StatusNeedReview]),
		zap.Int("none", counts[model.StatusNone]),
		zap.Int("errors", counts[model.StatusError]),
		zap.Int("matches", matches),
	)
}

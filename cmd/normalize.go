package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/edm-tools/partmatch-cli/internal/ingest"
	"github.com/edm-tools/partmatch-cli/internal/model"
	"github.com/edm-tools/partmatch-cli/internal/normalize"
	"github.com/edm-tools/partmatch-cli/internal/report"
	"github.com/edm-tools/partmatch-cli/pkg/anthropic"
)

var (
	normalizeResults     string
	normalizeOutput      string
	normalizeAI          bool
	normalizeApplyTo     string
	normalizeSheet       string
	normalizeApplyOutput string
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Reconcile manufacturer spellings against catalog names",
	Long: `Reads batch results JSON, collects the manufacturer spellings the catalog
itself returned, and proposes a canonical spelling for every input
manufacturer. Names at or above 70% similarity map automatically; 50-69%
are surfaced for review; the rest stay unresolved.

With --ai, unresolved names get a second pass through Claude, constrained to
the catalog's own spellings. With --apply-to, the fuzzy and AI mappings are
applied to the MFG column of the named sheet and the workbook is rewritten.

Examples:
  # Similarity-only suggestions to stdout
  partmatch-cli normalize --results results.json

  # AI-assisted pass, rewrite the combined workbook
  partmatch-cli normalize --results results.json --ai --apply-to combined.xlsx`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("normalize"); err != nil {
			return err
		}

		var results []model.ResolvedPart
		if err := report.ReadJSONFile(normalizeResults, &results); err != nil {
			return err
		}

		inputs := normalize.InputManufacturers(results)
		canonical := normalize.CanonicalSet(results)
		zap.L().Info("normalize: names collected",
			zap.Int("inputs", len(inputs)),
			zap.Int("canonical", len(canonical)),
		)

		suggestions := normalize.Suggest(inputs, canonical)

		if normalizeAI {
			merged, err := aiPass(ctx, suggestions, canonical)
			if err != nil {
				return err
			}
			suggestions = merged
		}

		if normalizeApplyTo != "" {
			if err := applySuggestions(ctx, suggestions); err != nil {
				return err
			}
		}

		return report.WriteJSONFile(normalizeOutput, suggestions)
	},
}

func init() {
	normalizeCmd.Flags().StringVar(&normalizeResults, "results", "", "batch results JSON to read, '-' for stdin (required)")
	normalizeCmd.Flags().StringVar(&normalizeOutput, "output", "", "write suggestions JSON to file (default: stdout)")
	normalizeCmd.Flags().BoolVar(&normalizeAI, "ai", false, "resolve leftover names with Claude")
	normalizeCmd.Flags().StringVar(&normalizeApplyTo, "apply-to", "", "workbook whose MFG column gets the mappings applied")
	normalizeCmd.Flags().StringVar(&normalizeSheet, "sheet", ingest.CombinedSheetName, "sheet to rewrite in the --apply-to workbook")
	normalizeCmd.Flags().StringVar(&normalizeApplyOutput, "apply-output", "", "path for the rewritten workbook (default: {stem}_Normalized.xlsx)")
	_ = normalizeCmd.MarkFlagRequired("results")
	rootCmd.AddCommand(normalizeCmd)
}

// aiPass sends the names the similarity pass could not resolve through the
// model and merges the validated mappings back into the suggestion list.
// Without an API key the pass is skipped, not failed.
func aiPass(ctx context.Context, suggestions []model.NormalizationSuggestion, canonical []string) ([]model.NormalizationSuggestion, error) {
	if cfg.Anthropic.Key == "" {
		zap.L().Warn("normalize: PARTMATCH_ANTHROPIC_KEY not set, skipping ai pass")
		return suggestions, nil
	}

	unresolved := normalize.Unresolved(suggestions)
	if len(unresolved) == 0 {
		zap.L().Info("normalize: nothing left for the ai pass")
		return suggestions, nil
	}

	suggester := normalize.NewSuggester(anthropic.NewClient(cfg.Anthropic.Key), cfg.Anthropic.Model)
	aiSuggestions, err := suggester.SuggestAI(ctx, unresolved, canonical)
	if err != nil {
		return nil, err
	}
	zap.L().Info("normalize: ai pass complete",
		zap.Int("unresolved", len(unresolved)),
		zap.Int("mapped", len(aiSuggestions)),
	)
	return normalize.Merge(suggestions, aiSuggestions), nil
}

// applySuggestions rewrites the MFG column of the target workbook with the
// fuzzy and AI mappings and writes the updated workbook.
func applySuggestions(ctx context.Context, suggestions []model.NormalizationSuggestion) error {
	mapping := normalize.SuggestionMap(suggestions)
	if len(mapping) == 0 {
		zap.L().Warn("normalize: no applicable mappings, workbook left unchanged")
		return nil
	}

	wb, cleanup, err := loadWorkbook(ctx, normalizeApplyTo, csvOptions("", ""))
	if err != nil {
		return eris.Wrap(err, "normalize: load workbook")
	}
	defer cleanup()

	sheet, ok := wb.Sheet(normalizeSheet)
	if !ok {
		return eris.Errorf("normalize: sheet %q not found (have %v)", normalizeSheet, wb.SheetNames())
	}

	changed := normalize.Apply(sheet, mapping)

	out := normalizeApplyOutput
	if out == "" {
		out = outputStem(normalizeApplyTo) + "_Normalized.xlsx"
	}
	if err := ingest.WriteWorkbook(out, wb.Sheets); err != nil {
		return err
	}
	zap.L().Info("normalize: workbook rewritten",
		zap.String("path", out),
		zap.Int("mappings", len(mapping)),
		zap.Int("cells_changed", changed),
	)
	return nil
}

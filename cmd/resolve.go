package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/edm-tools/partmatch-cli/internal/batch"
	"github.com/edm-tools/partmatch-cli/internal/model"
	"github.com/edm-tools/partmatch-cli/internal/report"
	"github.com/edm-tools/partmatch-cli/internal/resilience"
)

var (
	resolvePart       string
	resolveMFG        string
	resolveOutput     string
	resolveMaxMatches int
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve one part number against the PAS catalog",
	Long: `Looks up a single manufacturer part number and classifies the outcome:
Found (one unambiguous match), Multiple, Need user review, or None.

Examples:
  # Part number only
  partmatch-cli resolve --part CRCW060310K0FKEA

  # Scoped to a manufacturer, result to file
  partmatch-cli resolve --part CRCW060310K0FKEA --mfg "Vishay Dale" --output result.json`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("resolve"); err != nil {
			return err
		}

		maxMatches := resolveMaxMatches
		if maxMatches <= 0 {
			maxMatches = cfg.Batch.MaxMatches
		}
		eng := batch.NewEngine(newCatalogClient(),
			batch.WithMaxMatches(maxMatches),
			batch.WithRetry(resilience.FromRetryConfig(cfg.Batch.RetryAttempts, cfg.Batch.RetryDelay())),
		)

		part := model.Part{PartNumber: resolvePart, Manufacturer: resolveMFG}
		results, err := eng.ResolveBatch(ctx, []model.Part{part}, nil)
		if err != nil {
			return eris.Wrap(err, "resolve: lookup")
		}

		resolved := results[0]
		zap.L().Info("resolve: complete",
			zap.String("part_number", resolvePart),
			zap.String("manufacturer", resolveMFG),
			zap.String("status", string(resolved.Result.Status)),
			zap.Int("matches", len(resolved.Result.Matches)),
		)
		return report.WriteJSONFile(resolveOutput, resolved)
	},
}

func init() {
	resolveCmd.Flags().StringVar(&resolvePart, "part", "", "manufacturer part number to look up (required)")
	resolveCmd.Flags().StringVar(&resolveMFG, "mfg", "", "manufacturer name to scope the search")
	resolveCmd.Flags().StringVar(&resolveOutput, "output", "", "write result JSON to file (default: stdout)")
	resolveCmd.Flags().IntVar(&resolveMaxMatches, "max-matches", 0, "max match candidates to keep (0 = config default)")
	_ = resolveCmd.MarkFlagRequired("part")
	rootCmd.AddCommand(resolveCmd)
}

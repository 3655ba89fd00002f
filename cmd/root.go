package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/edm-tools/partmatch-cli/internal/config"
	"github.com/edm-tools/partmatch-cli/internal/ingest"
	"github.com/edm-tools/partmatch-cli/pkg/pas"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "partmatch-cli",
	Short: "Parts-catalog resolution toolkit",
	Long:  "Resolves manufacturer part numbers against the PAS catalog, normalizes manufacturer spellings, and exports EDM Library Creator XML.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newCatalogClient builds an authenticated catalog client from config.
func newCatalogClient() pas.Client {
	hc := &http.Client{Timeout: cfg.PAS.Timeout()}
	tokens := pas.NewTokenManager(cfg.PAS.AuthURL, cfg.PAS.ClientID, cfg.PAS.ClientSecret,
		pas.WithTokenHTTPClient(hc))
	return pas.NewClient(tokens,
		pas.WithBaseURL(cfg.PAS.BaseURL),
		pas.WithHTTPClient(hc),
		pas.WithRateLimit(cfg.PAS.RateLimit),
	)
}

// loadWorkbook resolves source (local path or http/https/ftp URL) to a local
// file and loads it into sheets. The returned cleanup removes any temporary
// download.
func loadWorkbook(ctx context.Context, source string, opts ingest.CSVOptions) (*ingest.Workbook, func(), error) {
	if ingest.RemoteSource(source) {
		zap.L().Info("downloading source", zap.String("url", source))
	}
	path, cleanup, err := ingest.Fetch(ctx, source, ingest.FetchOptions{
		Timeout: cfg.Ingest.FetchTimeout(),
		Retries: cfg.Ingest.FetchRetries,
	})
	if err != nil {
		return nil, nil, err
	}

	wb, err := ingest.LoadSource(ctx, path, opts)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return wb, cleanup, nil
}

// csvOptions builds loader options from per-command flags, falling back to
// the configured default encoding.
func csvOptions(encoding, delimiter string) ingest.CSVOptions {
	opts := ingest.CSVOptions{Encoding: encoding}
	if opts.Encoding == "" {
		opts.Encoding = cfg.Ingest.Encoding
	}
	if delimiter != "" {
		opts.Delimiter = []rune(delimiter)[0]
	}
	return opts
}

// outputStem derives an output filename stem from a source path or URL.
func outputStem(source string) string {
	base := filepath.Base(source)
	if i := strings.IndexAny(base, "?#"); i >= 0 {
		base = base[:i]
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

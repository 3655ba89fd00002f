// Package batch resolves many parts against the catalog concurrently,
// with per-part retry, streamed progress, and results in input order.
package batch

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/edm-tools/partmatch-cli/internal/match"
	"github.com/edm-tools/partmatch-cli/internal/model"
	"github.com/edm-tools/partmatch-cli/internal/resilience"
	"github.com/edm-tools/partmatch-cli/pkg/pas"
)

const (
	// DefaultConcurrency is the worker pool width. Lookups are I/O bound,
	// so this deliberately exceeds typical core counts.
	DefaultConcurrency = 30

	// DefaultRetryAttempts is the total attempts per part, including the
	// first try.
	DefaultRetryAttempts = 3

	// DefaultRetryDelay is the fixed pause between attempts.
	DefaultRetryDelay = 3 * time.Second
)

// Update is emitted for each completed part, in completion order.
type Update struct {
	Index     int
	Resolved  model.ResolvedPart
	Completed int64
	Total     int
}

// Engine runs catalog resolution over batches of parts.
type Engine struct {
	client      pas.Client
	concurrency int
	maxMatches  int
	retry       resilience.RetryConfig
}

// Option configures an Engine.
type Option func(*Engine)

// WithConcurrency sets the worker pool width.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithMaxMatches caps how many candidates each result carries.
func WithMaxMatches(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxMatches = n
		}
	}
}

// WithRetry overrides the per-part retry configuration.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(e *Engine) {
		e.retry = cfg
	}
}

// NewEngine creates a batch engine on top of a catalog client.
func NewEngine(client pas.Client, opts ...Option) *Engine {
	e := &Engine{
		client:      client,
		concurrency: DefaultConcurrency,
		maxMatches:  match.DefaultMaxMatches,
		retry:       resilience.FixedRetryConfig(DefaultRetryAttempts, DefaultRetryDelay),
	}
	for _, opt := range opts {
		opt(e)
	}

	// A search rejected by the service (success=false) is deterministic:
	// retrying it burns time for the same answer. Everything else, auth
	// failures included, gets the full retry budget.
	if e.retry.ShouldRetry == nil {
		e.retry.ShouldRetry = func(err error) bool { return !pas.IsAPIError(err) }
	}
	if e.retry.OnRetry == nil {
		e.retry.OnRetry = resilience.RetryLogger("pas", "search")
	}
	return e
}

// ResolveBatch resolves every part and returns exactly one ResolvedPart per
// input, in input order. When progress is non-nil, each completed part is
// also sent on it as it finishes; the caller must drain the channel, which
// is closed before ResolveBatch returns. Cancelling ctx stops outstanding
// work promptly; parts not yet resolved are reported with Error status and
// the context error is returned alongside the results.
func (e *Engine) ResolveBatch(ctx context.Context, parts []model.Part, progress chan<- Update) ([]model.ResolvedPart, error) {
	if progress != nil {
		defer close(progress)
	}

	log := zap.L().With(zap.String("run_id", uuid.NewString()))
	log.Info("batch: starting",
		zap.Int("parts", len(parts)),
		zap.Int("concurrency", e.concurrency),
	)

	results := make([]model.ResolvedPart, len(parts))
	var completed, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for i, part := range parts {
		g.Go(func() error {
			var resolved model.ResolvedPart
			if err := gctx.Err(); err != nil {
				resolved = errorResult(part, err)
			} else {
				resolved = e.resolveOne(gctx, part)
			}
			if resolved.Result.Status == model.StatusError {
				failed.Add(1)
			}

			results[i] = resolved
			done := completed.Add(1)
			if progress != nil {
				progress <- Update{Index: i, Resolved: resolved, Completed: done, Total: len(parts)}
			}
			return nil // don't abort batch on individual failure
		})
	}

	_ = g.Wait()

	log.Info("batch: complete",
		zap.Int64("completed", completed.Load()),
		zap.Int64("failed", failed.Load()),
	)
	return results, ctx.Err()
}

// resolveOne runs the lookup and cascade for a single part.
func (e *Engine) resolveOne(ctx context.Context, part model.Part) model.ResolvedPart {
	q := part.Query()

	// Blank part numbers resolve immediately without touching the catalog.
	if q.BlankPartNumber() {
		return model.ResolvedPart{
			Part:   part,
			Result: model.MatchResult{Status: model.StatusNone, Matches: []model.MatchCandidate{}},
		}
	}

	records, err := resilience.DoVal(ctx, e.retry, func(ctx context.Context) ([]pas.Record, error) {
		return e.client.Search(ctx, q.PartNumber, q.Manufacturer)
	})
	if err != nil {
		zap.L().Warn("batch: part failed",
			zap.String("part_number", q.PartNumber),
			zap.String("manufacturer", q.Manufacturer),
			zap.Error(err),
		)
		return errorResult(part, err)
	}

	return model.ResolvedPart{Part: part, Result: match.Resolve(q, records, e.maxMatches)}
}

func errorResult(part model.Part, err error) model.ResolvedPart {
	return model.ResolvedPart{
		Part:   part,
		Result: model.MatchResult{Status: model.StatusError, Matches: []model.MatchCandidate{}},
		Error:  err.Error(),
	}
}

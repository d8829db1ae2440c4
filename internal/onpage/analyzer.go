// Package onpage fetches the audited page and scores it against a fixed
// on-page SEO checklist.
package onpage

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/seo-audit/internal/metrics"
	"github.com/JakeFAU/seo-audit/internal/seo"
)

// ErrFetch marks failures to retrieve the audited page.
var ErrFetch = errors.New("page fetch failed")

// Analyzer runs the on-page part of an audit.
type Analyzer struct {
	plain    seo.Fetcher
	headless seo.Fetcher
	detector seo.HeadlessDetector
	hasher   seo.Hasher
	logger   *zap.Logger
}

// NewAnalyzer constructs an Analyzer. headless and detector may be nil to
// disable rendering; hasher may be nil to skip the content digest.
func NewAnalyzer(
	plain seo.Fetcher,
	headless seo.Fetcher,
	detector seo.HeadlessDetector,
	hasher seo.Hasher,
	logger *zap.Logger,
) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{
		plain:    plain,
		headless: headless,
		detector: detector,
		hasher:   hasher,
		logger:   logger,
	}
}

// Analyze fetches url and evaluates it. Fetch failures wrap ErrFetch.
// ResponseTimeSeconds always times the plain fetch; a render reports its
// own time in RenderTimeSeconds.
func (a *Analyzer) Analyze(ctx context.Context, url string) (Result, error) {
	resp, err := a.plain.Fetch(ctx, seo.FetchRequest{URL: url})
	if err != nil {
		metrics.ObservePageFetch(url, "error")
		return Result{}, fmt.Errorf("%w: %s: %w", ErrFetch, url, err)
	}
	metrics.ObservePageFetch(url, "plain")
	elapsed := resp.Duration

	if a.shouldPromote(resp) {
		rendered, herr := a.headless.Fetch(ctx, seo.FetchRequest{URL: url})
		if herr != nil {
			a.logger.Warn("headless render failed, using plain response",
				zap.String("url", url),
				zap.Error(herr),
			)
		} else {
			metrics.ObservePageFetch(url, "headless")
			resp = rendered
		}
	}

	result, err := Evaluate(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("evaluate %s: %w", url, err)
	}
	result.ResponseTimeSeconds = seo.Round2(elapsed.Seconds())
	result.Rendered = resp.UsedHeadless
	if resp.UsedHeadless {
		result.RenderTimeSeconds = seo.Round2(resp.Duration.Seconds())
	}
	result.FinalURL = resp.URL
	if result.FinalURL == "" {
		result.FinalURL = url
	}
	if a.hasher != nil {
		digest, herr := a.hasher.Hash(resp.Body)
		if herr != nil {
			a.logger.Warn("content hash failed", zap.String("url", url), zap.Error(herr))
		} else {
			result.ContentSHA256 = digest
		}
	}

	a.logger.Debug("page analyzed",
		zap.String("url", url),
		zap.Int("score", result.Score),
		zap.Int("word_count", result.WordCount),
		zap.Bool("rendered", result.Rendered),
		zap.String("final_url", result.FinalURL),
	)
	return result, nil
}

func (a *Analyzer) shouldPromote(resp seo.FetchResponse) bool {
	if a.headless == nil || a.detector == nil {
		return false
	}
	return a.detector.ShouldPromote(resp)
}

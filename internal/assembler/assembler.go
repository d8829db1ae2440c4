// Package assembler turns poll outcomes and keyword metrics into exactly one
// report per requested keyword.
package assembler

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/seo-audit/internal/metrics"
	"github.com/JakeFAU/seo-audit/internal/policy/retry"
	"github.com/JakeFAU/seo-audit/internal/seo"
)

// MaxCompetitors caps the per-keyword competitor list.
const MaxCompetitors = 5

// Input is everything known about an audit once polling ended.
type Input struct {
	TargetURL string
	Queries   []seo.KeywordQuery
	Accepted  []seo.SubmittedTask
	Rejected  []seo.Rejection
	// Outcomes holds terminal poll outcomes keyed by task id. Missing ids
	// never finished within the budget.
	Outcomes map[string]seo.PollOutcome
}

// Result carries the reports in query order and the competitor URLs seen
// across all keywords, deduplicated in first-seen order.
type Result struct {
	Reports     []seo.KeywordReport
	Competitors []string
}

// Usable counts reports carrying keyword data.
func (r Result) Usable() int {
	n := 0
	for _, rep := range r.Reports {
		if rep.Usable() {
			n++
		}
	}
	return n
}

// MetricsSource is the synchronous keyword metrics lookup.
type MetricsSource interface {
	KeywordMetrics(ctx context.Context, query seo.KeywordQuery) (seo.KeywordMetrics, error)
}

// Assembler builds keyword reports.
type Assembler struct {
	metrics MetricsSource
	policy  seo.RetryPolicy
	clock   seo.Clock
	logger  *zap.Logger
}

// New constructs an Assembler. policy governs the metrics lookup retries.
func New(source MetricsSource, policy seo.RetryPolicy, clock seo.Clock, logger *zap.Logger) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy == nil {
		policy = retry.NewFixed(1, 0)
	}
	return &Assembler{metrics: source, policy: policy, clock: clock, logger: logger}
}

// Assemble produces one report per query, in query order.
func (a *Assembler) Assemble(ctx context.Context, in Input) Result {
	resolve := newResolver(in)
	competitors := newOrderedSet()
	reports := make([]seo.KeywordReport, 0, len(in.Queries))

	for _, q := range in.Queries {
		serp := resolve.next(q.Keyword)
		m, err := a.fetchMetrics(ctx, q)
		report := a.build(in.TargetURL, q.Keyword, serp, m, err)
		if report.Kind == seo.ReportFull {
			competitors.add(report.Top5Competitors...)
		}
		metrics.ObserveKeywordReport(string(report.Kind))
		reports = append(reports, report)
	}
	return Result{Reports: reports, Competitors: competitors.values()}
}

func (a *Assembler) fetchMetrics(ctx context.Context, q seo.KeywordQuery) (seo.KeywordMetrics, error) {
	var m seo.KeywordMetrics
	attempts, err := retry.Do(ctx, a.policy, a.clock, func(ctx context.Context) error {
		var callErr error
		m, callErr = a.metrics.KeywordMetrics(ctx, q)
		return callErr
	})
	if err != nil {
		a.logger.Warn("keyword metrics lookup failed",
			zap.String("keyword", q.Keyword),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
		return seo.KeywordMetrics{}, err
	}
	return m, nil
}

func (a *Assembler) build(target, keyword string, serp serpState, m seo.KeywordMetrics, metricsErr error) seo.KeywordReport {
	if metricsErr != nil {
		reason := fmt.Sprintf("keyword metrics unavailable: %v", metricsErr)
		if serp.failed() {
			reason = fmt.Sprintf("%s; SERP: %s", reason, serp.reason)
		}
		return seo.ErrorReport(keyword, reason)
	}

	switch {
	case serp.outcome != nil && serp.outcome.Kind == seo.OutcomeReady:
		position, top := Rank(target, serp.outcome.Items)
		traffic, value := seo.EstimateTraffic(m.SearchVolume, position, m.CostPerClick)
		return seo.FullReport(keyword, m, position, traffic, value, top, serp.outcome.ExtraFeatures)
	case serp.failed():
		return seo.DegradedReport(keyword, m, serp.reason)
	default:
		return seo.DegradedReport(keyword, m, seo.SERPUnavailable)
	}
}

// Rank returns the position of the first organic item whose URL contains
// target (0 when absent) and up to MaxCompetitors organic URLs that do not.
func Rank(target string, items []seo.RankedItem) (int, []string) {
	position := 0
	competitors := make([]string, 0, MaxCompetitors)
	for _, item := range items {
		if !item.Organic() {
			continue
		}
		if target != "" && strings.Contains(item.URL, target) {
			if position == 0 {
				position = item.RankPosition
			}
			continue
		}
		if item.URL == "" || len(competitors) >= MaxCompetitors {
			continue
		}
		competitors = append(competitors, item.URL)
	}
	return position, competitors
}

type serpState struct {
	outcome *seo.PollOutcome
	reason  string
}

func (s serpState) failed() bool {
	return s.reason != ""
}

// resolver maps each query occurrence to its own task or rejection so
// duplicated keywords are not conflated.
type resolver struct {
	outcomes map[string]seo.PollOutcome
	tasks    []seo.SubmittedTask
	taskUsed []bool
	rejected []seo.Rejection
	rejUsed  []bool
}

func newResolver(in Input) *resolver {
	return &resolver{
		outcomes: in.Outcomes,
		tasks:    in.Accepted,
		taskUsed: make([]bool, len(in.Accepted)),
		rejected: in.Rejected,
		rejUsed:  make([]bool, len(in.Rejected)),
	}
}

func (r *resolver) next(keyword string) serpState {
	for i, task := range r.tasks {
		if r.taskUsed[i] || task.Keyword != keyword {
			continue
		}
		r.taskUsed[i] = true
		outcome, ok := r.outcomes[task.TaskID]
		if !ok {
			return serpState{}
		}
		if outcome.Kind == seo.OutcomePermanentError {
			return serpState{outcome: &outcome, reason: outcome.Reason}
		}
		return serpState{outcome: &outcome}
	}
	for i, rej := range r.rejected {
		if r.rejUsed[i] || rej.Keyword != keyword {
			continue
		}
		r.rejUsed[i] = true
		return serpState{reason: rej.Reason}
	}
	return serpState{}
}

type orderedSet struct {
	seen  map[string]struct{}
	order []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: map[string]struct{}{}, order: []string{}}
}

func (s *orderedSet) add(values ...string) {
	for _, v := range values {
		if _, ok := s.seen[v]; ok {
			continue
		}
		s.seen[v] = struct{}{}
		s.order = append(s.order, v)
	}
}

func (s *orderedSet) values() []string {
	return s.order
}

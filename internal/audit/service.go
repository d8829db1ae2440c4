// Package audit runs one SEO audit end to end: on-page analysis, the
// asynchronous SERP tasks, keyword metrics and the optional suggestions.
package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/seo-audit/internal/assembler"
	"github.com/JakeFAU/seo-audit/internal/logging"
	"github.com/JakeFAU/seo-audit/internal/metrics"
	"github.com/JakeFAU/seo-audit/internal/onpage"
	"github.com/JakeFAU/seo-audit/internal/seo"
	"github.com/JakeFAU/seo-audit/internal/suggest"
	"github.com/JakeFAU/seo-audit/internal/tasks"
)

// Errors surfaced to the HTTP layer.
var (
	// ErrProviderCredentials means the SERP provider login is not configured.
	ErrProviderCredentials = errors.New("SERP provider credentials not configured")
	// ErrNoUsableResults means the poll budget ran out and no keyword produced data.
	ErrNoUsableResults = errors.New("no keyword produced usable results within the poll budget")
)

// EventCompleted is the topic-independent type of the completion event.
const EventCompleted = "audit.completed"

// Report is the response body of a successful audit.
type Report struct {
	AuditID     string              `json:"audit_id"`
	AnalyzedURL string              `json:"analyzed_url"`
	GeneratedAt time.Time           `json:"generated_at"`
	OnPage      onpage.Result       `json:"on_page"`
	Keywords    []seo.KeywordReport `json:"keywords"`
	Suggestions suggest.Suggestions `json:"suggestions"`
}

// Event is published once per completed audit.
type Event struct {
	Type        string    `json:"type"`
	AuditID     string    `json:"audit_id"`
	URL         string    `json:"url"`
	Keywords    int       `json:"keywords"`
	Full        int       `json:"full"`
	Degraded    int       `json:"degraded"`
	Errors      int       `json:"errors"`
	DurationMs  int64     `json:"duration_ms"`
	GeneratedAt time.Time `json:"generated_at"`
}

// PageAnalyzer runs the on-page checklist.
type PageAnalyzer interface {
	Analyze(ctx context.Context, url string) (onpage.Result, error)
}

// TaskSubmitter submits the SERP tasks.
type TaskSubmitter interface {
	Submit(ctx context.Context, queries []seo.KeywordQuery) (tasks.Submission, error)
}

// TaskPoller waits for SERP tasks.
type TaskPoller interface {
	Run(ctx context.Context, submitted []seo.SubmittedTask) map[string]seo.PollOutcome
}

// ReportAssembler builds keyword reports.
type ReportAssembler interface {
	Assemble(ctx context.Context, in assembler.Input) assembler.Result
}

// Suggester produces copy suggestions.
type Suggester interface {
	Suggest(ctx context.Context, in suggest.Input) suggest.Suggestions
}

// Config holds per-deployment audit settings.
type Config struct {
	LanguageName string
	LocationCode int
	Depth        int
	MaxKeywords  int
	// CredentialsConfigured is false when the provider login is missing;
	// audits then fail with ErrProviderCredentials.
	CredentialsConfigured bool
	// EventsTopic receives completion events; empty disables publishing.
	EventsTopic string
}

// Deps are the collaborators of a Service. Publisher and Suggester may be nil.
type Deps struct {
	Pages     PageAnalyzer
	Submitter TaskSubmitter
	Poller    TaskPoller
	Assembler ReportAssembler
	Suggester Suggester
	Publisher seo.Publisher
	IDs       seo.IDGenerator
	Clock     seo.Clock
}

// Service runs audits. It holds no per-audit state and is safe for
// concurrent use.
type Service struct {
	cfg    Config
	deps   Deps
	logger *zap.Logger
}

// NewService constructs a Service.
func NewService(cfg Config, deps Deps, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxKeywords <= 0 {
		cfg.MaxKeywords = DefaultMaxKeywords
	}
	return &Service{cfg: cfg, deps: deps, logger: logger}
}

// MaxKeywords returns the per-audit keyword cap.
func (s *Service) MaxKeywords() int {
	return s.cfg.MaxKeywords
}

// Run executes one audit. On ErrNoUsableResults the returned report is still
// populated with the degraded results.
func (s *Service) Run(ctx context.Context, req Request) (Report, error) {
	start := s.deps.Clock.Now()
	report, result, err := s.run(ctx, req, start)
	metrics.ObserveAudit(result, s.deps.Clock.Now().Sub(start))
	return report, err
}

func (s *Service) run(ctx context.Context, req Request, start time.Time) (Report, string, error) {
	if len(req.Keywords) == 0 || len(req.Keywords) > s.cfg.MaxKeywords {
		return Report{}, "validation", &ValidationError{
			Field:   "keywords",
			Message: fmt.Sprintf("provide between 1 and %d keywords", s.cfg.MaxKeywords),
		}
	}
	if !s.cfg.CredentialsConfigured {
		return Report{}, "config", ErrProviderCredentials
	}

	auditID, err := s.deps.IDs.NewID()
	if err != nil {
		return Report{}, "error", fmt.Errorf("generate audit id: %w", err)
	}
	logger := logging.FromContext(ctx, s.logger).With(zap.String("audit_id", auditID))

	page, err := s.deps.Pages.Analyze(ctx, req.URL)
	if err != nil {
		logger.Warn("on-page analysis failed", zap.String("url", req.URL), zap.Error(err))
		return Report{}, "page_error", err
	}

	queries := s.queries(req.Keywords)
	submission, err := s.deps.Submitter.Submit(ctx, queries)
	if err != nil {
		return Report{}, "error", fmt.Errorf("submit tasks: %w", err)
	}
	logger.Info("serp tasks submitted",
		zap.Int("accepted", len(submission.Accepted)),
		zap.Int("rejected", len(submission.Rejected)),
	)

	outcomes := s.deps.Poller.Run(ctx, submission.Accepted)
	timedOut := len(submission.Accepted) - len(outcomes)

	assembled := s.deps.Assembler.Assemble(ctx, assembler.Input{
		TargetURL: req.URL,
		Queries:   queries,
		Accepted:  submission.Accepted,
		Rejected:  submission.Rejected,
		Outcomes:  outcomes,
	})

	report := Report{
		AuditID:     auditID,
		AnalyzedURL: req.URL,
		GeneratedAt: s.deps.Clock.Now(),
		OnPage:      page,
		Keywords:    assembled.Reports,
	}

	if assembled.Usable() == 0 && timedOut > 0 {
		logger.Warn("no usable keyword results", zap.Int("timed_out", timedOut))
		report.Suggestions = suggest.Suggestions{Error: "skipped: no usable keyword results"}
		return report, "no_results", ErrNoUsableResults
	}

	report.Suggestions = s.suggest(ctx, req, page, assembled.Competitors)
	s.publish(ctx, logger, report, start)
	logger.Info("audit completed",
		zap.Int("keywords", len(report.Keywords)),
		zap.Int("usable", assembled.Usable()),
		zap.Int("timed_out", timedOut),
	)
	return report, "ok", nil
}

func (s *Service) queries(keywords []string) []seo.KeywordQuery {
	out := make([]seo.KeywordQuery, len(keywords))
	for i, kw := range keywords {
		out[i] = seo.KeywordQuery{
			Keyword:      kw,
			LanguageName: s.cfg.LanguageName,
			LocationCode: s.cfg.LocationCode,
			Depth:        s.cfg.Depth,
		}
	}
	return out
}

func (s *Service) suggest(ctx context.Context, req Request, page onpage.Result, competitors []string) suggest.Suggestions {
	if s.deps.Suggester == nil {
		return suggest.Suggestions{Error: suggest.ErrMsgNotConfigured}
	}
	return s.deps.Suggester.Suggest(ctx, suggest.Input{
		Keyword:     req.Keywords[0],
		PageText:    page.Text,
		Competitors: competitors,
	})
}

func (s *Service) publish(ctx context.Context, logger *zap.Logger, report Report, start time.Time) {
	if s.deps.Publisher == nil || s.cfg.EventsTopic == "" {
		return
	}
	event := Event{
		Type:        EventCompleted,
		AuditID:     report.AuditID,
		URL:         report.AnalyzedURL,
		Keywords:    len(report.Keywords),
		DurationMs:  report.GeneratedAt.Sub(start).Milliseconds(),
		GeneratedAt: report.GeneratedAt,
	}
	for _, kr := range report.Keywords {
		switch kr.Kind {
		case seo.ReportFull:
			event.Full++
		case seo.ReportDegraded:
			event.Degraded++
		default:
			event.Errors++
		}
	}
	id, err := s.deps.Publisher.Publish(ctx, s.cfg.EventsTopic, event)
	if err != nil {
		logger.Warn("publish audit event failed", zap.String("topic", s.cfg.EventsTopic), zap.Error(err))
		return
	}
	logger.Debug("audit event published", zap.String("message_id", id))
}

// Package main wires together the SEO audit service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/JakeFAU/seo-audit/internal/api"
	"github.com/JakeFAU/seo-audit/internal/assembler"
	"github.com/JakeFAU/seo-audit/internal/audit"
	"github.com/JakeFAU/seo-audit/internal/clock/system"
	"github.com/JakeFAU/seo-audit/internal/config"
	collyfetcher "github.com/JakeFAU/seo-audit/internal/fetcher/colly"
	headlessfetcher "github.com/JakeFAU/seo-audit/internal/fetcher/headless"
	"github.com/JakeFAU/seo-audit/internal/hash/sha256"
	"github.com/JakeFAU/seo-audit/internal/headless/detector"
	"github.com/JakeFAU/seo-audit/internal/id/uuid"
	"github.com/JakeFAU/seo-audit/internal/logging"
	"github.com/JakeFAU/seo-audit/internal/onpage"
	"github.com/JakeFAU/seo-audit/internal/policy/ratelimit"
	"github.com/JakeFAU/seo-audit/internal/policy/retry"
	"github.com/JakeFAU/seo-audit/internal/provider"
	memorypublisher "github.com/JakeFAU/seo-audit/internal/publisher/memory"
	pubsubpublisher "github.com/JakeFAU/seo-audit/internal/publisher/pubsub"
	"github.com/JakeFAU/seo-audit/internal/seo"
	"github.com/JakeFAU/seo-audit/internal/suggest"
	"github.com/JakeFAU/seo-audit/internal/tasks"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	envPath := flag.String("env", ".env", "Optional dotenv file loaded before the config")
	flag.Parse()

	if err := godotenv.Load(*envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load %s failed: %v\n", *envPath, err)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := system.New()
	idGen := uuid.New()
	retryPolicy := retry.NewFixed(cfg.Retry.MaxAttempts, cfg.RetryDelay())

	if !cfg.HasProviderCredentials() {
		logger.Warn("SERP provider credentials missing; audits will be refused")
	}
	client := provider.NewClient(provider.Config{
		Login:     cfg.Provider.Login,
		Password:  cfg.Provider.Password,
		BaseURL:   cfg.Provider.BaseURL,
		Timeout:   time.Duration(cfg.Provider.TimeoutSeconds) * time.Second,
		UserAgent: cfg.Page.UserAgent,
	}, ratelimit.New(ratelimit.Config{
		DefaultRPS:   cfg.Provider.RequestsPerSecond,
		DefaultBurst: cfg.Provider.Burst,
	}), logger.Named("provider"))
	dataforseo := provider.NewDataForSEO(client, provider.Paths{
		Submit:  cfg.Provider.SubmitPath,
		Poll:    cfg.Provider.PollPath,
		Metrics: cfg.Provider.MetricsPath,
	})

	pages, closeHeadless := newPageAnalyzer(cfg, logger)
	defer closeHeadless()

	generator, err := suggest.NewOpenAI(suggest.Config{
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		BaseURL: cfg.LLM.BaseURL,
	}, logger.Named("suggest"))
	if err != nil {
		logger.Warn("suggestion generator init failed", zap.Error(err))
		generator = suggest.New(nil, 0, logger.Named("suggest"))
	}

	publisher, closePublisher := newPublisher(ctx, cfg, logger)
	defer closePublisher()

	service := audit.NewService(audit.Config{
		LanguageName:          cfg.Provider.LanguageName,
		LocationCode:          cfg.Provider.LocationCode,
		Depth:                 cfg.Provider.Depth,
		MaxKeywords:           cfg.API.MaxKeywords,
		CredentialsConfigured: cfg.HasProviderCredentials(),
		EventsTopic:           cfg.Events.Topic,
	}, audit.Deps{
		Pages:     pages,
		Submitter: tasks.NewSubmitter(dataforseo, retryPolicy, clock, cfg.API.MaxKeywords, logger.Named("submitter")),
		Poller: tasks.NewScheduler(dataforseo, clock, tasks.SchedulerConfig{
			MaxWait:       cfg.PollBudget(),
			CheckInterval: cfg.CheckInterval(),
		}, logger.Named("scheduler")),
		Assembler: assembler.New(dataforseo, retryPolicy, clock, logger.Named("assembler")),
		Suggester: generator,
		Publisher: publisher,
		IDs:       idGen,
		Clock:     clock,
	}, logger.Named("audit"))

	apiServer := api.NewServer(service, idGen, clock, api.Options{
		RequestTimeout: cfg.RequestBudget(),
	}, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func newPageAnalyzer(cfg config.Config, logger *zap.Logger) (*onpage.Analyzer, func()) {
	plain := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.Page.UserAgent,
		Timeout:   time.Duration(cfg.Page.TimeoutSeconds) * time.Second,
	})
	closer := func() {}
	var headless seo.Fetcher
	if cfg.Page.HeadlessEnabled {
		renderer, err := headlessfetcher.NewRenderer(headlessfetcher.Config{
			Slots:             2,
			UserAgent:         cfg.Page.UserAgent,
			NavigationTimeout: time.Duration(cfg.Page.HeadlessTimeoutSeconds) * time.Second,
		})
		if err != nil {
			logger.Warn("headless renderer init failed", zap.Error(err))
			headless = headlessfetcher.NewNoop()
		} else {
			headless = renderer
			closer = renderer.Close
		}
	}
	analyzer := onpage.NewAnalyzer(
		plain,
		headless,
		detector.NewShell(cfg.Page.ShellMinWords),
		sha256.New(),
		logger.Named("onpage"),
	)
	return analyzer, closer
}

func newPublisher(ctx context.Context, cfg config.Config, logger *zap.Logger) (seo.Publisher, func()) {
	if cfg.Events.Topic == "" || cfg.Events.ProjectID == "" {
		return memorypublisher.New(), func() {}
	}
	pub, err := pubsubpublisher.Dial(ctx, cfg.Events.ProjectID)
	if err != nil {
		logger.Warn("pubsub init failed; events kept in memory", zap.Error(err))
		return memorypublisher.New(), func() {}
	}
	logger.Info("publishing audit events",
		zap.String("project_id", cfg.Events.ProjectID),
		zap.String("topic", cfg.Events.Topic),
	)
	return pub, func() {
		if err := pub.Close(); err != nil {
			logger.Warn("pubsub close failed", zap.Error(err))
		}
	}
}

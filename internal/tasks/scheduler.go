package tasks

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/seo-audit/internal/metrics"
	"github.com/JakeFAU/seo-audit/internal/provider"
	"github.com/JakeFAU/seo-audit/internal/seo"
)

// SchedulerConfig bounds one polling run.
type SchedulerConfig struct {
	// MaxWait is the wall-clock budget for the whole run.
	MaxWait time.Duration
	// CheckInterval is the pause between two batched status checks.
	CheckInterval time.Duration
}

// Scheduler polls outstanding tasks in batches until each one is terminal or
// the budget runs out.
type Scheduler struct {
	provider seo.Provider
	clock    seo.Clock
	cfg      SchedulerConfig
	logger   *zap.Logger
}

// NewScheduler constructs a Scheduler.
func NewScheduler(p seo.Provider, clock seo.Clock, cfg SchedulerConfig, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = 10 * time.Second
	}
	return &Scheduler{provider: p, clock: clock, cfg: cfg, logger: logger}
}

// Run polls the tasks and returns the outcome of every task that reached a
// terminal state, keyed by task id. Tasks still in progress when the budget
// expires are absent from the map. A failed status check is logged and
// retried on the next tick without discarding earlier outcomes.
func (s *Scheduler) Run(ctx context.Context, tasks []seo.SubmittedTask) map[string]seo.PollOutcome {
	completed := make(map[string]seo.PollOutcome, len(tasks))
	outstanding := make(map[string]*seo.SubmittedTask, len(tasks))
	order := make([]string, 0, len(tasks))
	for i := range tasks {
		task := tasks[i]
		if task.TaskID == "" || task.Status.Terminal() {
			continue
		}
		if _, dup := outstanding[task.TaskID]; dup {
			continue
		}
		outstanding[task.TaskID] = &task
		order = append(order, task.TaskID)
	}

	start := s.clock.Now()
	// Status checks share the poll budget, so a slow provider call cannot
	// overrun it.
	budgetCtx, cancel := context.WithTimeout(ctx, s.cfg.MaxWait)
	defer cancel()
	ticks := 0
	for len(outstanding) > 0 && s.clock.Now().Sub(start) < s.cfg.MaxWait {
		ticks++
		ids := pendingIDs(order, outstanding)
		reports, err := s.provider.CheckTasks(budgetCtx, ids)
		switch {
		case err != nil && ctx.Err() != nil:
			s.logger.Info("polling canceled",
				zap.Int("outstanding", len(outstanding)),
				zap.Error(ctx.Err()),
			)
			s.expire(outstanding)
			return completed
		case err != nil && budgetCtx.Err() != nil:
			s.logger.Info("poll budget exhausted during status check",
				zap.Int("ticks", ticks),
				zap.Int("outstanding", len(outstanding)),
			)
			s.expire(outstanding)
			return completed
		case err != nil:
			metrics.ObservePollTick("error")
			s.logger.Warn("status check failed",
				zap.Int("tick", ticks),
				zap.Int("outstanding", len(ids)),
				zap.Error(err),
			)
		default:
			metrics.ObservePollTick("ok")
			s.apply(reports, outstanding, completed)
		}

		if len(outstanding) == 0 {
			break
		}
		if s.clock.Now().Add(s.cfg.CheckInterval).Sub(start) >= s.cfg.MaxWait {
			break
		}
		select {
		case <-ctx.Done():
			s.logger.Info("polling canceled",
				zap.Int("outstanding", len(outstanding)),
				zap.Error(ctx.Err()),
			)
			s.expire(outstanding)
			return completed
		case <-s.clock.After(s.cfg.CheckInterval):
		}
	}

	if len(outstanding) > 0 {
		s.logger.Info("poll budget exhausted",
			zap.Int("ticks", ticks),
			zap.Int("outstanding", len(outstanding)),
			zap.Duration("elapsed", s.clock.Now().Sub(start)),
		)
		s.expire(outstanding)
	}
	return completed
}

func (s *Scheduler) apply(
	reports []seo.TaskStatusReport,
	outstanding map[string]*seo.SubmittedTask,
	completed map[string]seo.PollOutcome,
) {
	for _, report := range reports {
		task, ok := outstanding[report.TaskID]
		if !ok {
			if _, done := completed[report.TaskID]; done {
				s.logger.Debug("ignoring report for completed task", zap.String("task_id", report.TaskID))
			} else {
				s.logger.Warn("report for unknown task", zap.String("task_id", report.TaskID))
			}
			continue
		}
		if report.Keyword != "" && !sameKeyword(report.Keyword, task.Keyword) {
			s.logger.Warn("provider keyword echo mismatch",
				zap.String("task_id", task.TaskID),
				zap.String("keyword", task.Keyword),
				zap.String("echoed", report.Keyword),
			)
		}

		var (
			outcome seo.PollOutcome
			status  seo.TaskStatus
		)
		switch {
		case report.StatusCode == provider.StatusOK:
			outcome = seo.Ready(report.Items, report.ExtraFeatures)
			status = seo.TaskStatusComplete
		case provider.InProgress(report.StatusCode):
			continue
		default:
			outcome = seo.PermanentError(fmt.Sprintf("task failed with status %d: %s", report.StatusCode, report.StatusMessage))
			status = seo.TaskStatusFailed
		}

		task.Resolve(status)
		delete(outstanding, task.TaskID)
		completed[task.TaskID] = outcome
		metrics.ObserveTaskOutcome(outcome.Kind.String())
		s.logger.Debug("task finished",
			zap.String("task_id", task.TaskID),
			zap.String("keyword", task.Keyword),
			zap.Stringer("outcome", outcome.Kind),
		)
	}
}

func (s *Scheduler) expire(outstanding map[string]*seo.SubmittedTask) {
	for range outstanding {
		metrics.ObserveTaskOutcome(seo.OutcomeNotYetReady.String())
	}
}

func pendingIDs(order []string, outstanding map[string]*seo.SubmittedTask) []string {
	ids := make([]string, 0, len(outstanding))
	for _, id := range order {
		if _, ok := outstanding[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

package tasks

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/seo-audit/internal/policy/retry"
	"github.com/JakeFAU/seo-audit/internal/provider"
	"github.com/JakeFAU/seo-audit/internal/seo"
)

// ErrTooManyQueries is returned when a batch exceeds the submitter's fan-out cap.
var ErrTooManyQueries = errors.New("too many keyword queries")

const reasonNoAck = "no acknowledgement from provider"

// Submission splits a batch into accepted tasks and rejected keywords. Every
// submitted keyword appears in exactly one of the two slices.
type Submission struct {
	Accepted []seo.SubmittedTask
	Rejected []seo.Rejection
}

// Submitter submits keyword queries as one batched provider request.
type Submitter struct {
	provider   seo.Provider
	policy     seo.RetryPolicy
	clock      seo.Clock
	maxQueries int
	logger     *zap.Logger
}

// NewSubmitter constructs a Submitter. maxQueries <= 0 disables the cap.
func NewSubmitter(
	p seo.Provider,
	policy seo.RetryPolicy,
	clock seo.Clock,
	maxQueries int,
	logger *zap.Logger,
) *Submitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy == nil {
		policy = retry.NewFixed(1, 0)
	}
	return &Submitter{
		provider:   p,
		policy:     submitPolicy{policy},
		clock:      clock,
		maxQueries: maxQueries,
		logger:     logger,
	}
}

// Submit posts all queries in a single request and sorts the answers.
// A failure of the whole request, after retries, rejects every keyword.
func (s *Submitter) Submit(ctx context.Context, queries []seo.KeywordQuery) (Submission, error) {
	if s.maxQueries > 0 && len(queries) > s.maxQueries {
		return Submission{}, fmt.Errorf("%w: %d > %d", ErrTooManyQueries, len(queries), s.maxQueries)
	}
	if len(queries) == 0 {
		return Submission{}, nil
	}

	var acks []seo.SubmitAck
	attempts, err := retry.Do(ctx, s.policy, s.clock, func(ctx context.Context) error {
		var callErr error
		acks, callErr = s.provider.SubmitTasks(ctx, queries)
		return callErr
	})
	if err != nil {
		s.logger.Warn("task submission failed",
			zap.Int("keywords", len(queries)),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
		out := Submission{Rejected: make([]seo.Rejection, 0, len(queries))}
		for _, q := range queries {
			out.Rejected = append(out.Rejected, seo.Rejection{Keyword: q.Keyword, Reason: err.Error()})
		}
		return out, nil
	}

	out := s.sort(queries, acks)
	if attempts > 1 {
		ids := make([]string, 0, len(out.Accepted))
		for _, task := range out.Accepted {
			ids = append(ids, task.TaskID)
		}
		s.logger.Info("tasks submitted after retry",
			zap.Int("attempts", attempts),
			zap.Strings("task_ids", ids),
		)
	}
	return out, nil
}

// submitPolicy repeats a batch only when the provider provably never
// processed it. Resending anything else could create the tasks twice.
type submitPolicy struct {
	seo.RetryPolicy
}

func (p submitPolicy) ShouldRetry(err error, attempt int) bool {
	return provider.Undelivered(err) && p.RetryPolicy.ShouldRetry(err, attempt)
}

func (s *Submitter) sort(queries []seo.KeywordQuery, acks []seo.SubmitAck) Submission {
	matched := make([]*seo.SubmitAck, len(queries))
	for i := range acks {
		ack := &acks[i]
		idx := matchAck(queries, matched, ack, i)
		if idx < 0 {
			s.logger.Warn("unmatched submission acknowledgement",
				zap.String("task_id", ack.TaskID),
				zap.String("keyword", ack.Keyword),
			)
			continue
		}
		matched[idx] = ack
	}

	now := s.clock.Now()
	var out Submission
	for i, q := range queries {
		ack := matched[i]
		switch {
		case ack == nil:
			out.Rejected = append(out.Rejected, seo.Rejection{Keyword: q.Keyword, Reason: reasonNoAck})
		case ack.StatusCode != provider.StatusTaskCreated || ack.TaskID == "":
			reason := fmt.Sprintf("submission rejected with status %d: %s", ack.StatusCode, ack.StatusMessage)
			s.logger.Info("keyword task rejected",
				zap.String("keyword", q.Keyword),
				zap.Int("status_code", ack.StatusCode),
				zap.String("status_message", ack.StatusMessage),
			)
			out.Rejected = append(out.Rejected, seo.Rejection{Keyword: q.Keyword, Reason: reason})
		default:
			out.Accepted = append(out.Accepted, seo.SubmittedTask{
				TaskID:      ack.TaskID,
				Keyword:     q.Keyword,
				SubmittedAt: now,
				Status:      seo.TaskStatusPending,
			})
		}
	}
	return out
}

// matchAck finds the query an acknowledgement answers: the echoed tag, then
// the first unused query with the echoed keyword, then the ack's position.
func matchAck(queries []seo.KeywordQuery, matched []*seo.SubmitAck, ack *seo.SubmitAck, position int) int {
	free := func(i int) bool { return i >= 0 && i < len(queries) && matched[i] == nil }

	if ack.Tag != "" {
		if i, err := strconv.Atoi(ack.Tag); err == nil && free(i) {
			return i
		}
	}
	if ack.Keyword != "" {
		for i, q := range queries {
			if free(i) && sameKeyword(q.Keyword, ack.Keyword) {
				return i
			}
		}
	}
	if ack.Tag == "" && ack.Keyword == "" && free(position) {
		return position
	}
	return -1
}

func sameKeyword(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

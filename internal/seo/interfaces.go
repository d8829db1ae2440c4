package seo

import (
	"context"
	"time"
)

// Provider is the asynchronous SERP and keyword data service.
type Provider interface {
	SubmitTasks(ctx context.Context, queries []KeywordQuery) ([]SubmitAck, error)
	CheckTasks(ctx context.Context, taskIDs []string) ([]TaskStatusReport, error)
	KeywordMetrics(ctx context.Context, query KeywordQuery) (KeywordMetrics, error)
}

// Clock returns the current time and waits (swapped in tests).
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// IDGenerator produces audit IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// RetryPolicy decides whether and when a failed call is attempted again.
// attempt counts the attempts already made.
type RetryPolicy interface {
	ShouldRetry(err error, attempt int) bool
	Backoff(attempt int) time.Duration
}

// Publisher pushes audit lifecycle events to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

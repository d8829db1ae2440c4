package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/JakeFAU/seo-audit/internal/seo"
)

// fakeClock advances its time whenever a caller waits on it.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	c.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}

// scriptedProvider answers CheckTasks from a list of ticks.
type scriptedProvider struct {
	mu        sync.Mutex
	submit    func([]seo.KeywordQuery) ([]seo.SubmitAck, error)
	ticks     []func(ids []string) ([]seo.TaskStatusReport, error)
	checked   [][]string
	submitted int
}

func (p *scriptedProvider) SubmitTasks(_ context.Context, queries []seo.KeywordQuery) ([]seo.SubmitAck, error) {
	p.mu.Lock()
	p.submitted++
	p.mu.Unlock()
	return p.submit(queries)
}

func (p *scriptedProvider) CheckTasks(_ context.Context, ids []string) ([]seo.TaskStatusReport, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.checked = append(p.checked, append([]string(nil), ids...))
	n := len(p.checked) - 1
	if n >= len(p.ticks) {
		n = len(p.ticks) - 1
	}
	return p.ticks[n](ids)
}

func (p *scriptedProvider) KeywordMetrics(context.Context, seo.KeywordQuery) (seo.KeywordMetrics, error) {
	return seo.KeywordMetrics{}, nil
}

func pending(id, keyword string) seo.SubmittedTask {
	return seo.SubmittedTask{TaskID: id, Keyword: keyword, Status: seo.TaskStatusPending}
}

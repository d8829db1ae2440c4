package seo

import (
	"time"
)

// TaskStatus represents the lifecycle state of a provider task.
type TaskStatus string

// Task status values. Complete and Failed are terminal.
const (
	TaskStatusPending  TaskStatus = "pending"
	TaskStatusComplete TaskStatus = "complete"
	TaskStatusFailed   TaskStatus = "failed"
)

// Terminal reports whether the status can no longer change.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusComplete || s == TaskStatusFailed
}

// ItemTypeOrganic marks a non-paid ranked search result.
const ItemTypeOrganic = "organic"

// KeywordQuery is one keyword lookup sent to the provider.
type KeywordQuery struct {
	Keyword      string `json:"keyword"`
	LanguageName string `json:"language_name"`
	LocationCode int    `json:"location_code"`
	Depth        int    `json:"depth"`
}

// SubmittedTask tracks a task accepted by the provider.
type SubmittedTask struct {
	TaskID      string
	Keyword     string
	SubmittedAt time.Time
	Status      TaskStatus
}

// Resolve moves a pending task to a terminal status. It returns false and
// leaves the task untouched when the task is already terminal.
func (t *SubmittedTask) Resolve(status TaskStatus) bool {
	if t.Status.Terminal() || !status.Terminal() {
		return false
	}
	t.Status = status
	return true
}

// RankedItem is a single SERP entry.
type RankedItem struct {
	URL          string `json:"url"`
	Type         string `json:"type"`
	RankPosition int    `json:"rank_position"`
}

// Organic reports whether the item is an organic result.
func (i RankedItem) Organic() bool {
	return i.Type == ItemTypeOrganic
}

// OutcomeKind discriminates PollOutcome.
type OutcomeKind int

// Poll outcome kinds.
const (
	OutcomeNotYetReady OutcomeKind = iota
	OutcomeReady
	OutcomePermanentError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeReady:
		return "ready"
	case OutcomePermanentError:
		return "permanent_error"
	default:
		return "not_yet_ready"
	}
}

// PollOutcome is the result of polling one task. Items and ExtraFeatures are
// set only for OutcomeReady, Reason only for OutcomePermanentError.
type PollOutcome struct {
	Kind          OutcomeKind
	Items         []RankedItem
	ExtraFeatures []string
	Reason        string
}

// Ready builds a terminal-success outcome.
func Ready(items []RankedItem, features []string) PollOutcome {
	return PollOutcome{Kind: OutcomeReady, Items: items, ExtraFeatures: features}
}

// PermanentError builds a terminal-failure outcome.
func PermanentError(reason string) PollOutcome {
	return PollOutcome{Kind: OutcomePermanentError, Reason: reason}
}

// NotYetReady builds the in-progress outcome.
func NotYetReady() PollOutcome {
	return PollOutcome{Kind: OutcomeNotYetReady}
}

// Terminal reports whether the outcome ends polling for its task.
func (o PollOutcome) Terminal() bool {
	return o.Kind != OutcomeNotYetReady
}

// KeywordMetrics holds the synchronous keyword lookup result.
type KeywordMetrics struct {
	SearchVolume int     `json:"search_volume"`
	CostPerClick float64 `json:"cpc"`
	Difficulty   int     `json:"difficulty"`
}

// SubmitAck is the provider's per-query answer to a batched submission.
// Tag echoes the correlation tag sent with the query, when the provider
// returns it.
type SubmitAck struct {
	TaskID        string
	Keyword       string
	Tag           string
	StatusCode    int
	StatusMessage string
}

// TaskStatusReport is the provider's per-task answer to a batched status check.
type TaskStatusReport struct {
	TaskID        string
	Keyword       string
	StatusCode    int
	StatusMessage string
	Items         []RankedItem
	ExtraFeatures []string
}

// Rejection records a keyword whose task was never accepted.
type Rejection struct {
	Keyword string
	Reason  string
}

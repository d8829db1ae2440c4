package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/JakeFAU/seo-audit/internal/seo"
)

// Task status codes returned by the provider.
const (
	// StatusTaskCreated acknowledges a task submission.
	StatusTaskCreated = 20100
	// StatusTaskHanded means the task was picked up and is being processed.
	StatusTaskHanded = 40601
	// StatusTaskInQueue means the task is waiting to be processed.
	StatusTaskInQueue = 40602
)

// InProgress reports whether a poll status code means the task is still running.
func InProgress(code int) bool {
	return code == StatusTaskHanded || code == StatusTaskInQueue
}

// Caller issues one provider operation.
type Caller interface {
	Call(ctx context.Context, operationPath string, payload any) (*Envelope, error)
}

// Paths names the provider operations used by the audit.
type Paths struct {
	Submit  string
	Poll    string
	Metrics string
}

// DataForSEO implements seo.Provider on top of a Caller.
type DataForSEO struct {
	caller Caller
	paths  Paths
}

// NewDataForSEO builds the typed operations.
func NewDataForSEO(caller Caller, paths Paths) *DataForSEO {
	return &DataForSEO{caller: caller, paths: paths}
}

type submitItem struct {
	Keyword      string `json:"keyword"`
	LanguageName string `json:"language_name"`
	LocationCode int    `json:"location_code"`
	Depth        int    `json:"depth"`
	Tag          string `json:"tag"`
}

// SubmitTasks posts one task per query in a single request. The query index
// is sent as the task tag so acknowledgements can be matched positionally.
func (d *DataForSEO) SubmitTasks(ctx context.Context, queries []seo.KeywordQuery) ([]seo.SubmitAck, error) {
	items := make([]submitItem, len(queries))
	for i, q := range queries {
		items[i] = submitItem{
			Keyword:      q.Keyword,
			LanguageName: q.LanguageName,
			LocationCode: q.LocationCode,
			Depth:        q.Depth,
			Tag:          strconv.Itoa(i),
		}
	}
	env, err := d.caller.Call(ctx, d.paths.Submit, items)
	if err != nil {
		return nil, err
	}
	acks := make([]seo.SubmitAck, 0, len(env.Tasks))
	for _, task := range env.Tasks {
		acks = append(acks, seo.SubmitAck{
			TaskID:        task.ID,
			Keyword:       task.Data.Keyword,
			Tag:           task.Data.Tag,
			StatusCode:    task.StatusCode,
			StatusMessage: task.StatusMessage,
		})
	}
	return acks, nil
}

type pollItem struct {
	ID string `json:"id"`
}

type serpResult struct {
	Keyword   string     `json:"keyword"`
	ItemTypes []string   `json:"item_types"`
	Items     []serpItem `json:"items"`
}

type serpItem struct {
	Type         string `json:"type"`
	RankGroup    int    `json:"rank_group"`
	RankAbsolute int    `json:"rank_absolute"`
	URL          string `json:"url"`
}

// CheckTasks asks for the status of every id in one request.
func (d *DataForSEO) CheckTasks(ctx context.Context, taskIDs []string) ([]seo.TaskStatusReport, error) {
	body := make([]pollItem, len(taskIDs))
	for i, id := range taskIDs {
		body[i] = pollItem{ID: id}
	}
	env, err := d.caller.Call(ctx, d.paths.Poll, body)
	if err != nil {
		return nil, err
	}
	reports := make([]seo.TaskStatusReport, 0, len(env.Tasks))
	for _, task := range env.Tasks {
		report := seo.TaskStatusReport{
			TaskID:        task.ID,
			Keyword:       task.Data.Keyword,
			StatusCode:    task.StatusCode,
			StatusMessage: task.StatusMessage,
		}
		if task.StatusCode == StatusOK {
			items, features, err := decodeSERP(task.Result)
			if err != nil {
				report.StatusCode = 0
				report.StatusMessage = fmt.Sprintf("decode result: %v", err)
			} else {
				report.Items = items
				report.ExtraFeatures = features
			}
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func decodeSERP(raw json.RawMessage) ([]seo.RankedItem, []string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return []seo.RankedItem{}, nil, nil
	}
	var results []serpResult
	if err := json.Unmarshal(raw, &results); err != nil {
		return nil, nil, err
	}
	if len(results) == 0 {
		return []seo.RankedItem{}, nil, nil
	}
	result := results[0]
	items := make([]seo.RankedItem, 0, len(result.Items))
	seen := map[string]bool{}
	var features []string
	addFeature := func(f string) {
		if f == "" || f == seo.ItemTypeOrganic || seen[f] {
			return
		}
		seen[f] = true
		features = append(features, f)
	}
	for _, it := range result.ItemTypes {
		addFeature(it)
	}
	for _, it := range result.Items {
		rank := it.RankGroup
		if rank == 0 {
			rank = it.RankAbsolute
		}
		items = append(items, seo.RankedItem{URL: it.URL, Type: it.Type, RankPosition: rank})
		addFeature(it.Type)
	}
	return items, features, nil
}

type metricsItem struct {
	Keywords     []string `json:"keywords"`
	LanguageName string   `json:"language_name"`
	LocationCode int      `json:"location_code"`
}

type metricsResult struct {
	Keyword           string   `json:"keyword"`
	SearchVolume      *int     `json:"search_volume"`
	CPC               *float64 `json:"cpc"`
	KeywordDifficulty *int     `json:"keyword_difficulty"`
}

// KeywordMetrics fetches search volume, CPC and difficulty synchronously.
func (d *DataForSEO) KeywordMetrics(ctx context.Context, query seo.KeywordQuery) (seo.KeywordMetrics, error) {
	env, err := d.caller.Call(ctx, d.paths.Metrics, []metricsItem{{
		Keywords:     []string{query.Keyword},
		LanguageName: query.LanguageName,
		LocationCode: query.LocationCode,
	}})
	if err != nil {
		return seo.KeywordMetrics{}, err
	}
	if len(env.Tasks) == 0 {
		return seo.KeywordMetrics{}, rejectedError(d.paths.Metrics, 0, 0, "no task in response")
	}
	task := env.Tasks[0]
	if task.StatusCode != StatusOK {
		return seo.KeywordMetrics{}, rejectedError(d.paths.Metrics, 0, task.StatusCode, task.StatusMessage)
	}
	var results []metricsResult
	if len(task.Result) > 0 && string(task.Result) != "null" {
		if err := json.Unmarshal(task.Result, &results); err != nil {
			return seo.KeywordMetrics{}, rejectedError(d.paths.Metrics, 0, 0, fmt.Sprintf("decode result: %v", err))
		}
	}
	if len(results) == 0 {
		return seo.KeywordMetrics{}, rejectedError(d.paths.Metrics, 0, task.StatusCode, "no metrics for keyword")
	}
	return toMetrics(pickMetrics(results, query.Keyword)), nil
}

// pickMetrics prefers the entry for the exact keyword; related keywords may
// be listed first.
func pickMetrics(results []metricsResult, keyword string) metricsResult {
	for _, r := range results {
		if strings.EqualFold(strings.TrimSpace(r.Keyword), strings.TrimSpace(keyword)) {
			return r
		}
	}
	return results[0]
}

func toMetrics(r metricsResult) seo.KeywordMetrics {
	var m seo.KeywordMetrics
	if r.SearchVolume != nil && *r.SearchVolume > 0 {
		m.SearchVolume = *r.SearchVolume
	}
	if r.CPC != nil && *r.CPC > 0 {
		m.CostPerClick = *r.CPC
	}
	if r.KeywordDifficulty != nil {
		m.Difficulty = *r.KeywordDifficulty
	}
	return m
}
